// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package sources

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.astrophena.name/runbot/internal/events"
	"go.astrophena.name/runbot/internal/testutil"
)

const listingPage = `<!DOCTYPE html>
<html><body>
<div class="card">
  <h3 class="title">Зимний забег</h3>
  <span class="date">15 января 2026</span>
  <span class="city">Москва</span>
  <span class="dist">10 км</span>
  <a href="/events/winter-run">Подробнее</a>
</div>
<div class="card">
  <h3 class="title">О проекте</h3>
  <span class="date"></span>
  <a href="/about">Подробнее</a>
</div>
<div class="card">
  <h3 class="title">Ночной трейл</h3>
  <span class="date">2026-02-01</span>
  <span class="city">Санкт-Петербург</span>
  <a href="javascript:void(0)">Подробнее</a>
</div>
<div class="card"><h3 class="title">ок</h3></div>
</body></html>`

func testClient(t *testing.T, handler http.Handler) (*Client, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &Client{HTTPClient: srv.Client(), Logf: t.Logf}, srv.URL
}

func TestFetchHTML(t *testing.T) {
	t.Parallel()

	c, url := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listingPage))
	}))

	src := &Source{
		Name:      "test",
		URL:       url,
		Kind:      "html",
		Cards:     []string{".missing", ".card"}, // dead selector first, must fall through
		Title:     ".title",
		Date:      ".date",
		Location:  ".city",
		Distance:  ".dist",
		SkipWords: []string{"о проекте"},
	}

	recs := c.Fetch(t.Context(), src)
	testutil.AssertEqual(t, recs, []events.Raw{
		{
			Title:        "Зимний забег",
			DateText:     "15 января 2026",
			LocationText: "Москва",
			DistanceText: "10 км",
			URL:          url + "/events/winter-run",
			Source:       "test",
		},
		{
			Title:        "Ночной трейл",
			DateText:     "2026-02-01",
			LocationText: "Санкт-Петербург",
			Source:       "test",
		},
	})
}

func TestFetchHTMLDefaults(t *testing.T) {
	t.Parallel()

	c, url := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<div class="card"><h3 class="title">Парковый забег</h3></div>`))
	}))

	src := &Source{
		Name:            "test",
		URL:             url,
		Kind:            "html",
		Cards:           []string{".card"},
		Title:           ".title",
		FixedLocation:   "Ижевск",
		DefaultDistance: "5 км",
	}

	recs := c.Fetch(t.Context(), src)
	testutil.AssertEqual(t, len(recs), 1)
	testutil.AssertEqual(t, recs[0].LocationText, "Ижевск")
	testutil.AssertEqual(t, recs[0].DistanceText, "5 км")
}

func TestFetchBrowserHeaders(t *testing.T) {
	t.Parallel()

	var gotUA string
	c, url := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`<div class="card"><h3>Забег в парке</h3></div>`))
	}))

	c.Fetch(t.Context(), &Source{Name: "test", URL: url, Kind: "html", Cards: []string{".card"}})
	testutil.AssertEqual(t, gotUA, browserUserAgent)
}

func TestFetchNeverFails(t *testing.T) {
	t.Parallel()

	t.Run("http error", func(t *testing.T) {
		t.Parallel()
		c, url := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusForbidden)
		}))
		recs := c.Fetch(t.Context(), &Source{Name: "test", URL: url, Kind: "html", Cards: []string{".card"}})
		testutil.AssertEqual(t, len(recs), 0)
	})

	t.Run("connection refused", func(t *testing.T) {
		t.Parallel()
		c := &Client{HTTPClient: http.DefaultClient, Logf: t.Logf}
		recs := c.Fetch(t.Context(), &Source{Name: "test", URL: "http://localhost:1", Kind: "html", Cards: []string{".card"}})
		testutil.AssertEqual(t, len(recs), 0)
	})

	t.Run("no cards match", func(t *testing.T) {
		t.Parallel()
		c, url := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<p>nothing here</p>`))
		}))
		recs := c.Fetch(t.Context(), &Source{Name: "test", URL: url, Kind: "html", Cards: []string{".card"}})
		testutil.AssertEqual(t, len(recs), 0)
	})
}

func TestFetchFeed(t *testing.T) {
	t.Parallel()

	const feed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Забеги</title>
<item>
  <title>Весенний полумарафон</title>
  <link>https://example.com/spring</link>
  <pubDate>Mon, 02 Mar 2026 10:00:00 +0300</pubDate>
</item>
<item>
  <title>Обзор кроссовок</title>
  <link>https://example.com/shoes</link>
</item>
</channel></rss>`

	c, url := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feed))
	}))

	src := &Source{
		Name:          "feed",
		URL:           url,
		Kind:          "feed",
		FixedLocation: "Москва",
		SkipWords:     []string{"обзор"},
	}

	recs := c.Fetch(t.Context(), src)
	testutil.AssertEqual(t, recs, []events.Raw{{
		Title:        "Весенний полумарафон",
		DateText:     "02.03.2026",
		LocationText: "Москва",
		URL:          "https://example.com/spring",
		Source:       "feed",
	}})
}
