// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package events defines the event records flowing through the discovery
// pipeline, their deduplication identity and the filters applied to them.
package events

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"go.astrophena.name/runbot/internal/events/dates"
	"go.astrophena.name/runbot/internal/events/region"
	"go.astrophena.name/runbot/internal/util/syncx"
)

// Raw is an event record as extracted by a source adapter, before any
// normalization. Title is the only required field.
type Raw struct {
	Title        string `json:"title"`
	DateText     string `json:"date_text,omitempty"`
	LocationText string `json:"location_text,omitempty"`
	DistanceText string `json:"distance_text,omitempty"`
	URL          string `json:"url,omitempty"`
	Source       string `json:"source"`
}

// Event is a [Raw] record plus a canonical date and region tag.
type Event struct {
	Raw
	Date   string        `json:"date,omitempty"` // DD.MM.YYYY, or "" if unparsable
	Region region.Region `json:"region,omitempty"`
}

// Normalize derives the canonical date and region for a raw record.
func Normalize(r Raw) Event {
	return Event{
		Raw:    r,
		Date:   dates.Normalize(r.DateText),
		Region: region.Classify(r.LocationText),
	}
}

// Key derives the deduplication identity of an event from its title and
// canonical date. Two records with the same title and date always collide to
// the same key regardless of which source produced them; source and URL are
// deliberately not part of the identity.
func Key(title, date string) string {
	id := strings.ToLower(strings.TrimSpace(title)) + "|" + strings.ToLower(strings.TrimSpace(date))
	sum := sha256.Sum256([]byte(id))
	// 16 bytes are plenty, and the short form fits into Telegram's 64-byte
	// callback data limit together with a prefix.
	return hex.EncodeToString(sum[:16])
}

// Key returns the deduplication identity of this event.
func (e Event) Key() string { return Key(e.Title, e.Date) }

// PassYear reports whether the event is not known to be in a past year.
// Records with no recognizable year are passed through: an ambiguous date is
// not a reason for rejection, the region check still applies.
func PassYear(e Event, now time.Time) bool {
	y := dates.Year(e.DateText)
	if y == 0 {
		y = dates.Year(e.Date)
	}
	if y == 0 {
		return true
	}
	return y >= now.Year()
}

// PassRegion reports whether the event's location matched one of the target
// regions. Unlike the year check, a missing or too-broad location rejects the
// event: otherwise every international listing would leak through.
func PassRegion(e Event) bool {
	return e.Region != region.None
}

// Pass combines the year and region checks.
func Pass(e Event, now time.Time) bool {
	return PassYear(e, now) && PassRegion(e)
}

var slugRe = regexp.MustCompile(`[^a-z0-9а-яё-]+`)

// Slug turns an event title into a URL path segment: lower-cased, spaces
// replaced with hyphens, everything else stripped.
func Slug(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = strings.ReplaceAll(s, " ", "-")
	s = slugRe.ReplaceAllString(s, "")
	return strings.Trim(s, "-")
}

// SeenStore is the process-lifetime set of event keys that have already been
// published. It is created empty at startup, grows monotonically and is never
// persisted: after a restart every event is considered new again.
type SeenStore struct {
	keys *syncx.Protected[map[string]bool]
}

// NewSeenStore returns an empty SeenStore.
func NewSeenStore() *SeenStore {
	return &SeenStore{keys: syncx.Protect(make(map[string]bool))}
}

// Has reports whether key was already published.
func (s *SeenStore) Has(key string) (ok bool) {
	s.keys.RAccess(func(m map[string]bool) { ok = m[key] })
	return ok
}

// Add marks key as published.
func (s *SeenStore) Add(key string) {
	s.keys.Access(func(m map[string]bool) { m[key] = true })
}

// Len returns the number of published keys.
func (s *SeenStore) Len() (n int) {
	s.keys.RAccess(func(m map[string]bool) { n = len(m) })
	return n
}
