// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package region

import (
	"testing"

	"go.astrophena.name/runbot/internal/testutil"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		in   string
		want Region
	}{
		"moscow":                  {"Москва", Moscow},
		"moscow in prose":         {"г. Москва, Лужники", Moscow},
		"moscow oblast":           {"Московская область", Moscow},
		"zelenograd":              {"Зеленоград", Moscow},
		"spb":                     {"Санкт-Петербург", SaintPetersburg},
		"spb abbreviated":         {"СПб", SaintPetersburg},
		"spb misspelled":          {"Санкт-Петебург", SaintPetersburg},
		"leningrad oblast":        {"Ленинградская область", SaintPetersburg},
		"izhevsk":                 {"Ижевск", Izhevsk},
		"udmurtia":                {"Удмуртская Республика", Izhevsk},
		"votkinsk":                {"Воткинск", Izhevsk},
		"empty":                   {"", None},
		"bare country":            {"Россия", None},
		"bare country lowercase":  {"россия", None},
		"online":                  {"Онлайн", None},
		"other city":              {"Сочи", None},
		"other city with country": {"Казань, Россия", None},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			testutil.AssertEqual(t, Classify(tc.in), tc.want)
		})
	}
}

func TestString(t *testing.T) {
	t.Parallel()
	testutil.AssertEqual(t, Moscow.String(), "Москва и область")
	testutil.AssertEqual(t, None.String(), "не определен")
}
