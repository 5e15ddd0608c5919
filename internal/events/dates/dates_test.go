// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package dates

import (
	"testing"

	"go.astrophena.name/runbot/internal/testutil"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		in, want string
	}{
		"empty":             {"", ""},
		"whitespace only":   {"  \n ", ""},
		"already canonical": {"24.01.2025", "24.01.2025"},
		"iso":               {"2025-03-07", "07.03.2025"},
		"iso with time":     {"2025-03-07T09:00:00", "07.03.2025"},
		"russian prose":     {"24 января 2025", "24.01.2025"},
		"russian prose may": {"9 мая 2026", "09.05.2026"},
		"english prose":     {"7 September 2025", "07.09.2025"},
		"abbreviated month": {"12 сент. 2025", "12.01.2025"}, // unknown month falls back to January
		"prose inside text": {"Старт: 15 июня 2025 года", "15.06.2025"},
		"single digit day":  {"1 декабря 2025", "01.12.2025"},
		"unparsable":        {"скоро", "скоро"},
		"date range":        {"10-11 августа 2025", "11.08.2025"}, // the second day wins, close enough
		"day out of range":  {"40 января 2025", "40 января 2025"},
		"no year":           {"24 января", "24 января"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			testutil.AssertEqual(t, Normalize(tc.in), tc.want)
		})
	}
}

func TestYear(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		in   string
		want int
	}{
		"canonical":      {"24.01.2025", 2025},
		"prose":          {"24 января 2026", 2026},
		"no year":        {"24 января", 0},
		"empty":          {"", 0},
		"too old":        {"24.01.2019", 0},
		"year in middle": {"Старт 15 июня 2025 года", 2025},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			testutil.AssertEqual(t, Year(tc.in), tc.want)
		})
	}
}
