// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package sources

import (
	"context"
	"io"
	"net/http"
	urlpkg "net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.astrophena.name/runbot/internal/events"
	"go.astrophena.name/runbot/internal/logger"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// Listing sites tend to serve stripped-down or bot-walled pages to obvious
// non-browser clients, so fetches identify as a regular browser.
const browserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// readLimit caps how much of a listing page is read. 5 MB covers even the
// most bloated calendar pages.
const readLimit = 5 << 20

// Client fetches sources and extracts raw event records from them.
type Client struct {
	// HTTPClient makes the listing fetches. Its timeout applies per fetch.
	HTTPClient *http.Client
	// Logf is used for per-source diagnostics. Must not be nil.
	Logf logger.Logf
}

// Fetch performs one network fetch of the source and extracts raw event
// records from the response.
//
// A dead source must not abort a pipeline run, so Fetch never fails: any
// fetch or parse error is logged and yields an empty slice.
func (c *Client) Fetch(ctx context.Context, src *Source) []events.Raw {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		c.Logf("sources: %s: %v", src.Name, err)
		return nil
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept-Language", "ru,en;q=0.8")

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logf("sources: %s: fetch failed: %v", src.Name, err)
		return nil
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		c.Logf("sources: %s: want 200, got %d", src.Name, res.StatusCode)
		return nil
	}

	body := io.LimitReader(res.Body, readLimit)

	switch src.Kind {
	case "feed":
		return c.extractFeed(src, body)
	default:
		return c.extractHTML(src, body)
	}
}

func (c *Client) extractHTML(src *Source, body io.Reader) []events.Raw {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		c.Logf("sources: %s: parse failed: %v", src.Name, err)
		return nil
	}

	// Site markup is inconsistent and partially redundant, so card selectors
	// are tried in priority order: the first one that structurally matches
	// wins.
	var cards *goquery.Selection
	for _, sel := range src.Cards {
		if s := doc.Find(sel); s.Length() > 0 {
			cards = s
			break
		}
	}
	if cards == nil {
		c.Logf("sources: %s: no card selector matched", src.Name)
		return nil
	}

	var recs []events.Raw
	cards.Each(func(_ int, card *goquery.Selection) {
		title := c.fieldText(card, src.Title)
		if utf8.RuneCountInString(title) < 3 {
			return
		}
		if skipTitle(title, src.SkipWords) {
			return
		}

		location := src.FixedLocation
		if location == "" {
			location = c.fieldText(card, src.Location)
		}
		distance := c.fieldText(card, src.Distance)
		if distance == "" {
			distance = src.DefaultDistance
		}

		recs = append(recs, events.Raw{
			Title:        title,
			DateText:     c.fieldText(card, src.Date),
			LocationText: location,
			DistanceText: distance,
			URL:          c.fieldLink(card, src),
			Source:       src.Name,
		})
	})
	return recs
}

func (c *Client) extractFeed(src *Source, body io.Reader) []events.Raw {
	feed, err := gofeed.NewParser().Parse(body)
	if err != nil {
		c.Logf("sources: %s: feed parse failed: %v", src.Name, err)
		return nil
	}

	var recs []events.Raw
	for _, item := range feed.Items {
		title := collapseSpace(item.Title)
		if utf8.RuneCountInString(title) < 3 || skipTitle(title, src.SkipWords) {
			continue
		}
		date := item.Published
		if item.PublishedParsed != nil {
			date = item.PublishedParsed.Format("02.01.2006")
		}
		recs = append(recs, events.Raw{
			Title:        title,
			DateText:     date,
			LocationText: src.FixedLocation,
			DistanceText: src.DefaultDistance,
			URL:          item.Link,
			Source:       src.Name,
		})
	}
	return recs
}

var spaceRe = regexp.MustCompile(`\s+`)

func collapseSpace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// fieldText evaluates a field selector within a card, falling back to the
// card's own text if the selector is empty.
func (c *Client) fieldText(card *goquery.Selection, sel string) string {
	if sel == "" {
		return collapseSpace(card.Text())
	}
	return collapseSpace(card.Find(sel).First().Text())
}

// fieldLink extracts the event URL from a card: the card's own href if the
// card is an anchor, otherwise the first anchor matched by the link selector.
// Relative URLs are resolved against the source URL.
func (c *Client) fieldLink(card *goquery.Selection, src *Source) string {
	var href string
	if goquery.NodeName(card) == "a" {
		href = card.AttrOr("href", "")
	} else {
		sel := src.Link
		if sel == "" {
			sel = "a"
		}
		href = card.Find(sel).First().AttrOr("href", "")
	}
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}

	base, err := urlpkg.Parse(src.URL)
	if err != nil {
		return href
	}
	ref, err := urlpkg.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func skipTitle(title string, skipWords []string) bool {
	lower := strings.ToLower(title)
	for _, w := range skipWords {
		if strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}
