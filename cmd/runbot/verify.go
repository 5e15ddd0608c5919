// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
)

// Same rationale as in the sources package: event pages behave better for
// browser-looking clients.
const browserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// regStatus is the result of the secondary registration-status fetch of an
// event page.
type regStatus struct {
	// Closed reports that the page positively says registration is over.
	Closed bool
	// Deadline is the registration deadline, if the page mentions one.
	Deadline string
	// Price is the entry fee text, if the page mentions one.
	Price string
	// Note is attached to the posted message when the status couldn't be
	// checked.
	Note string
}

// Closed markers are checked before open markers: pages routinely say
// "регистрация закрыта" inside a layout that also has a generic
// "зарегистрироваться" navigation button.
var closedMarkers = []string{
	"регистрация закрыта",
	"регистрация завершена",
	"регистрация окончена",
	"регистрация приостановлена",
	"мест нет",
	"слоты закончились",
	"registration closed",
	"sold out",
}

var openMarkers = []string{
	"регистрация открыта",
	"зарегистрироваться",
	"регистрация на",
	"купить слот",
	"registration open",
	"register now",
}

var (
	deadlineRe = regexp.MustCompile(`(?i)регистрация\s+(?:открыта\s+)?до\s+(\d{1,2}[.\s][\p{L}\d.]+(?:\s+\d{4})?)`)
	priceRe    = regexp.MustCompile(`(?i)(?:стоимость|взнос|цена)[:\s]+(?:от\s+)?(\d[\d\s]*(?:руб|₽|р\.))`)
)

// verify fetches the event page and determines its registration status.
//
// Absence of evidence is treated as open: only a positive closed marker
// suppresses publication. When the page can't be fetched at all, the event is
// still posted, with a note that the status is unknown, because missing an
// open race is worse than posting a closed one.
func (b *bot) verify(ctx context.Context, url string) regStatus {
	if url == "" {
		return regStatus{Note: "Статус регистрации неизвестен"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return regStatus{Note: "Не удалось проверить регистрацию"}
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept-Language", "ru,en;q=0.8")

	res, err := b.verifyc.Do(req)
	if err != nil {
		b.logf("verify %s: %v", url, err)
		return regStatus{Note: "Не удалось проверить регистрацию"}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		b.logf("verify %s: want 200, got %d", url, res.StatusCode)
		return regStatus{Note: "Не удалось проверить регистрацию"}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 2<<20))
	if err != nil {
		return regStatus{Note: "Не удалось проверить регистрацию"}
	}

	return parseRegStatus(string(body))
}

func parseRegStatus(page string) (st regStatus) {
	lower := strings.ToLower(page)

	for _, m := range closedMarkers {
		if strings.Contains(lower, m) {
			st.Closed = true
			return st
		}
	}

	if m := deadlineRe.FindStringSubmatch(page); m != nil {
		st.Deadline = strings.TrimSpace(m[1])
	}
	if m := priceRe.FindStringSubmatch(page); m != nil {
		st.Price = strings.Join(strings.Fields(m[1]), " ")
	}

	for _, m := range openMarkers {
		if strings.Contains(lower, m) {
			return st
		}
	}

	// No marker either way: assume open, don't hide the event.
	return st
}
