// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package dates converts the date text scraped from event listings into a
// canonical DD.MM.YYYY form.
//
// Listing sites disagree wildly on date formats: some already use
// DD.MM.YYYY, some use ISO 8601, most spell the date out in Russian prose
// ("24 января 2025"), a few in English. Normalize recognizes the common
// shapes and leaves everything else untouched, so that an unparsable date
// never loses information.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	canonicalRe = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)
	isoRe       = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)
	proseRe     = regexp.MustCompile(`(\d{1,2})\s+([\p{L}]+)\.?\s+(\d{4})`)
	yearRe      = regexp.MustCompile(`20[2-9][0-9]`)
)

// Russian genitive month names (as they appear in "24 января 2025") plus
// English ones, mapped to zero-padded month numbers.
var months = map[string]string{
	"января": "01", "февраля": "02", "марта": "03", "апреля": "04",
	"мая": "05", "июня": "06", "июля": "07", "августа": "08",
	"сентября": "09", "октября": "10", "ноября": "11", "декабря": "12",

	"january": "01", "february": "02", "march": "03", "april": "04",
	"may": "05", "june": "06", "july": "07", "august": "08",
	"september": "09", "october": "10", "november": "11", "december": "12",
}

// Normalize converts free-form date text into "DD.MM.YYYY".
//
// Already-canonical text passes through unchanged, ISO dates are reordered,
// and "<day> <month name> <year>" prose is recognized using the month table.
// If the month name is unknown, the month defaults to "01". If no pattern
// matches, the original text is returned unchanged; empty input yields an
// empty string.
func Normalize(text string) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return ""
	}

	if canonicalRe.MatchString(s) {
		return s
	}

	if m := isoRe.FindStringSubmatch(s); m != nil {
		return m[3] + "." + m[2] + "." + m[1]
	}

	if m := proseRe.FindStringSubmatch(s); m != nil {
		day, err := strconv.Atoi(m[1])
		if err != nil || day < 1 || day > 31 {
			return text
		}
		month, ok := months[strings.ToLower(m[2])]
		if !ok {
			month = "01"
		}
		return fmt.Sprintf("%02d.%s.%s", day, month, m[3])
	}

	return text
}

// Year extracts a plausible 4-digit event year from date text, returning 0 if
// none is found. Ambiguous dates (no year at all) are deliberately not an
// error: the caller decides what to do with year 0.
func Year(text string) int {
	m := yearRe.FindString(text)
	if m == "" {
		return 0
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return y
}
