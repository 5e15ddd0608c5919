// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package sources implements the catalog of event-listing sites and the
// generic adapter that fetches and extracts event records from them.
//
// Every site is described by a [Source]: one URL, an ordered list of card
// selectors, per-field selectors and a skip-word list. The sites differ only
// in this data, so a single adapter drives all of them.
//
// The catalog itself is a Starlark file (sources.star) defining a list named
// sources, for example:
//
//	sources = [
//	    source(
//	        name = "russiarunning",
//	        url = "https://russiarunning.com/events",
//	        cards = [".b-event-card", ".event-list__item"],
//	        title = ".b-event-card__title, h3",
//	        date = ".b-event-card__date",
//	        location = ".b-event-card__location",
//	        skip = ["о проекте", "контакты"],
//	    ),
//	]
package sources

import (
	"fmt"
	"net/url"

	"go.astrophena.name/runbot/internal/logger"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Source describes one event-listing site and its extraction recipe.
type Source struct {
	// Name identifies the source in records and logs.
	Name string
	// URL is the listing page fetched on every pipeline run.
	URL string
	// Kind is "html" (default, selector-driven extraction) or "feed" (RSS/Atom).
	Kind string
	// Cards is a prioritized list of selectors locating event cards; the first
	// selector with a non-empty match set wins.
	Cards []string
	// Title, Date, Location, Distance and Link are selectors evaluated within a
	// card. Comma alternatives are allowed; the first match is taken. An empty
	// Title selector falls back to the card's own text.
	Title, Date, Location, Distance, Link string
	// SkipWords excludes boilerplate cards (navigation, "about us" and such)
	// whose title contains one of these words, case-insensitively.
	SkipWords []string
	// FixedLocation, when set, is used instead of scraping the location: some
	// sources are inherently single-region.
	FixedLocation string
	// DefaultDistance is used when the card carries no distance text.
	DefaultDistance string
	// URLTemplate, when set, synthesizes an event URL from a slugified title for
	// cards that carry no link. It must contain a single %s verb.
	URLTemplate string
}

func (s *Source) String() string        { return fmt.Sprintf("<source name=%q>", s.Name) }
func (s *Source) Type() string          { return "source" }
func (s *Source) Freeze()               {} // immutable
func (s *Source) Truth() starlark.Bool  { return starlark.Bool(s.Name != "") }
func (s *Source) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: %s", s.Type()) }

func sourceBuiltin(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) > 0 {
		return nil, fmt.Errorf("unexpected positional arguments")
	}
	s := new(Source)
	var cards, skip *starlark.List
	if err := starlark.UnpackArgs("source", args, kwargs,
		"name", &s.Name,
		"url", &s.URL,
		"kind?", &s.Kind,
		"cards?", &cards,
		"title?", &s.Title,
		"date?", &s.Date,
		"location?", &s.Location,
		"distance?", &s.Distance,
		"link?", &s.Link,
		"skip?", &skip,
		"fixed_location?", &s.FixedLocation,
		"default_distance?", &s.DefaultDistance,
		"url_template?", &s.URLTemplate,
	); err != nil {
		return nil, err
	}
	if s.Kind == "" {
		s.Kind = "html"
	}
	if s.Kind != "html" && s.Kind != "feed" {
		return nil, fmt.Errorf("source %q: unknown kind %q", s.Name, s.Kind)
	}
	var err error
	if s.Cards, err = stringList(cards); err != nil {
		return nil, fmt.Errorf("source %q: cards: %v", s.Name, err)
	}
	if s.SkipWords, err = stringList(skip); err != nil {
		return nil, fmt.Errorf("source %q: skip: %v", s.Name, err)
	}
	if s.Kind == "html" && len(s.Cards) == 0 {
		return nil, fmt.Errorf("source %q: at least one card selector is required", s.Name)
	}
	return s, nil
}

func stringList(l *starlark.List) ([]string, error) {
	if l == nil {
		return nil, nil
	}
	var res []string
	iter := l.Iterate()
	defer iter.Done()
	var elem starlark.Value
	for iter.Next(&elem) {
		s, ok := starlark.AsString(elem)
		if !ok {
			return nil, fmt.Errorf("%s is not a string", elem)
		}
		res = append(res, s)
	}
	return res, nil
}

// ParseCatalog parses a Starlark source catalog and returns the sources in
// definition order.
func ParseCatalog(logf logger.Logf, catalog string) ([]*Source, error) {
	globals, err := starlark.ExecFileOptions(
		&syntax.FileOptions{
			TopLevelControl: true,
		},
		&starlark.Thread{
			Print: func(_ *starlark.Thread, msg string) { logf("%s", msg) },
		},
		"sources.star",
		catalog,
		starlark.StringDict{
			"source": starlark.NewBuiltin("source", sourceBuiltin),
		},
	)
	if err != nil {
		return nil, err
	}

	list, ok := globals["sources"].(*starlark.List)
	if !ok {
		return nil, fmt.Errorf("sources must be defined and be a list")
	}

	var srcs []*Source
	seen := make(map[string]bool)

	iter := list.Iterate()
	defer iter.Done()
	var elem starlark.Value
	for iter.Next(&elem) {
		src, ok := elem.(*Source)
		if !ok {
			continue
		}
		if _, err := url.Parse(src.URL); err != nil {
			return nil, fmt.Errorf("invalid URL %q of source %q", src.URL, src.Name)
		}
		if seen[src.Name] {
			return nil, fmt.Errorf("duplicate source %q", src.Name)
		}
		seen[src.Name] = true
		srcs = append(srcs, src)
	}

	return srcs, nil
}
