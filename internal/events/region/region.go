// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package region maps free-text event locations to the small fixed set of
// regions the bot cares about.
package region

import "strings"

// Region is one of the target geographic areas.
type Region string

// Known regions. None means the location didn't match any target region.
const (
	None            Region = ""
	Moscow          Region = "moscow"
	SaintPetersburg Region = "spb"
	Izhevsk         Region = "izhevsk"
)

// String implements the fmt.Stringer interface.
func (r Region) String() string {
	switch r {
	case Moscow:
		return "Москва и область"
	case SaintPetersburg:
		return "Санкт-Петербург и область"
	case Izhevsk:
		return "Ижевск и Удмуртия"
	}
	return "не определен"
}

// Bare country names and similar placeholders: a listing that says just
// "Россия" tells us nothing about the city, so it must not pass the region
// filter.
var tooBroad = map[string]bool{
	"россия":   true,
	"рф":       true,
	"russia":   true,
	"онлайн":   true,
	"online":   true,
	"беларусь": true,
}

// Keyword lists include administrative names and the misspellings and
// transliterations that actually occur on the listing sites.
var keywords = map[Region][]string{
	Moscow: {
		"москва", "москве", "московская", "подмосковь", "зеленоград", "moscow",
	},
	SaintPetersburg: {
		"санкт-петербург", "санкт петербург", "санкт-петебург", "петербург",
		"спб", "питер", "ленинградская", "ленобласть", "петергоф", "пушкин",
		"колпино", "кронштадт", "st. petersburg", "saint petersburg",
	},
	Izhevsk: {
		"ижевск", "удмурт", "воткинск", "сарапул", "глазов", "можга", "izhevsk",
	},
}

// Classify maps free-text location to a target region. Matching is
// case-insensitive and substring-based; an empty or too-broad location yields
// None.
func Classify(location string) Region {
	loc := strings.ToLower(strings.TrimSpace(location))
	if loc == "" || tooBroad[loc] {
		return None
	}
	for _, r := range []Region{Moscow, SaintPetersburg, Izhevsk} {
		for _, kw := range keywords[r] {
			if strings.Contains(loc, kw) {
				return r
			}
		}
	}
	return None
}
