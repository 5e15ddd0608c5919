// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"go.astrophena.name/runbot/internal/events"
	"go.astrophena.name/runbot/internal/testutil"
)

const winterListing = `<!DOCTYPE html>
<html><body>
<div class="card">
  <h3 class="title">Зимний забег</h3>
  <span class="date">15 января 2026</span>
  <span class="city">Москва</span>
  <a href="/events/winter">Подробнее</a>
</div>
<div class="card">
  <h3 class="title">Южный забег</h3>
  <span class="date">20 января 2026</span>
  <span class="city">Сочи</span>
  <a href="/events/south">Подробнее</a>
</div>
</body></html>`

func setupListing(t *testing.T, b *bot, tm *testMux, page, eventPage string) {
	t.Helper()
	tm.mux.HandleFunc("GET /listing", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	})
	tm.mux.HandleFunc("GET /events/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(eventPage))
	})
	b.catalog = parseTestCatalog(t, fmt.Sprintf(`
sources = [
    source(
        name = "test",
        url = "%s/listing",
        cards = [".card"],
        title = ".title",
        date = ".date",
        location = ".city",
    ),
]
`, tm.srv.URL))
}

func TestRunCycle(t *testing.T) {
	t.Parallel()
	tm := newTestMux(t)
	b := newTestBot(t, tm)
	setupListing(t, b, tm, winterListing, `<p>Регистрация открыта! <a href="#">Зарегистрироваться</a></p>`)

	published, err := b.runCycle(t.Context(), 0)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, published, 1)

	// Only the Moscow event gets through, the Sochi one is filtered out.
	sent := tm.sentMessages()
	testutil.AssertEqual(t, len(sent), 1)
	msg := sent[0]
	testutil.AssertEqual(t, msg.ChatID, "100")
	if !strings.Contains(msg.Text, "Зимний забег") {
		t.Fatalf("message doesn't mention the event: %q", msg.Text)
	}
	if !strings.Contains(msg.Text, "15.01.2026") {
		t.Fatalf("message doesn't mention the normalized date: %q", msg.Text)
	}
	if strings.Contains(msg.Text, "Южный") {
		t.Fatalf("out-of-region event leaked through: %q", msg.Text)
	}

	// The message must carry a reminder button pointing at the event key.
	key := events.Key("Зимний забег", "15.01.2026")
	if msg.ReplyMarkup == nil {
		t.Fatal("message has no reply markup")
	}
	testutil.AssertEqual(t, msg.ReplyMarkup.Buttons[0][0].CallbackData, "remind:"+key)

	// The published event is persisted for reminder lookups.
	rec, err := b.kv.Get(t.Context(), "event:"+key)
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil {
		t.Fatal("published event is not in the store")
	}

	// A second run finds the same events but publishes nothing.
	published, err = b.runCycle(t.Context(), 0)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, published, 0)
	testutil.AssertEqual(t, len(tm.sentMessages()), 1)
}

func TestRunCycleClosedRegistration(t *testing.T) {
	t.Parallel()
	tm := newTestMux(t)
	b := newTestBot(t, tm)

	var closed atomic.Bool
	closed.Store(true)
	tm.mux.HandleFunc("GET /listing", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(winterListing))
	})
	tm.mux.HandleFunc("GET /events/", func(w http.ResponseWriter, r *http.Request) {
		if closed.Load() {
			w.Write([]byte(`<p>Регистрация закрыта</p>`))
			return
		}
		w.Write([]byte(`<p>Регистрация открыта</p>`))
	})
	b.catalog = parseTestCatalog(t, fmt.Sprintf(`
sources = [
    source(name = "test", url = "%s/listing", cards = [".card"], title = ".title", date = ".date", location = ".city"),
]
`, tm.srv.URL))

	published, err := b.runCycle(t.Context(), 0)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, published, 0)
	testutil.AssertEqual(t, len(tm.sentMessages()), 0)

	// A closed event must not be marked as seen: when its registration
	// reopens, it gets posted.
	key := events.Key("Зимний забег", "15.01.2026")
	if b.seen.Has(key) {
		t.Fatal("closed event was marked as seen")
	}

	closed.Store(false)
	published, err = b.runCycle(t.Context(), 0)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, published, 1)
}

func TestRunCycleVerifyFailure(t *testing.T) {
	t.Parallel()
	tm := newTestMux(t)
	b := newTestBot(t, tm)

	tm.mux.HandleFunc("GET /listing", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(winterListing))
	})
	tm.mux.HandleFunc("GET /events/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "oops", http.StatusInternalServerError)
	})
	b.catalog = parseTestCatalog(t, fmt.Sprintf(`
sources = [
    source(name = "test", url = "%s/listing", cards = [".card"], title = ".title", date = ".date", location = ".city"),
]
`, tm.srv.URL))

	// An unverifiable event is still posted, with a note.
	published, err := b.runCycle(t.Context(), 0)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, published, 1)
	sent := tm.sentMessages()
	if !strings.Contains(sent[0].Text, "Не удалось проверить регистрацию") {
		t.Fatalf("message has no verification note: %q", sent[0].Text)
	}
}

func TestRunCycleAlreadyRunning(t *testing.T) {
	t.Parallel()
	tm := newTestMux(t)
	b := newTestBot(t, tm)
	b.running.Store(true)

	if _, err := b.runCycle(t.Context(), 0); err != errAlreadyRunning {
		t.Fatalf("got %v, want errAlreadyRunning", err)
	}
	if _, err := b.listEvents(t.Context()); err != errAlreadyRunning {
		t.Fatalf("got %v, want errAlreadyRunning", err)
	}
}

func TestPublishThreadFallback(t *testing.T) {
	t.Parallel()
	tm := newTestMux(t)
	b := newTestBot(t, tm)
	tm.failThread = 77
	setupListing(t, b, tm, winterListing, `<p>Регистрация открыта</p>`)

	published, err := b.runCycle(t.Context(), 77)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, published, 1)

	// The message went through without the topic.
	sent := tm.sentMessages()
	testutil.AssertEqual(t, len(sent), 1)
	testutil.AssertEqual(t, sent[0].ThreadID, int64(0))
}

func TestListEvents(t *testing.T) {
	t.Parallel()
	tm := newTestMux(t)
	b := newTestBot(t, tm)
	setupListing(t, b, tm, winterListing, `<p>Регистрация открыта</p>`)

	evs, err := b.listEvents(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, len(evs), 1)
	testutil.AssertEqual(t, evs[0].Title, "Зимний забег")

	// Listing must not publish or dedup anything.
	testutil.AssertEqual(t, len(tm.sentMessages()), 0)
	testutil.AssertEqual(t, b.seen.Len(), 0)
}

func TestEventURLTemplate(t *testing.T) {
	t.Parallel()
	tm := newTestMux(t)
	b := newTestBot(t, tm)
	b.catalog = parseTestCatalog(t, `
sources = [
    source(
        name = "templated",
        url = "https://example.com/calendar",
        cards = [".card"],
        url_template = "https://example.com/events/%s",
    ),
]
`)

	e := events.Normalize(events.Raw{Title: "Зимний забег", Source: "templated"})
	testutil.AssertEqual(t, b.eventURL(e), "https://example.com/events/зимний-забег")

	// An explicit URL wins over the template.
	e.URL = "https://example.com/direct"
	testutil.AssertEqual(t, b.eventURL(e), "https://example.com/direct")
}
