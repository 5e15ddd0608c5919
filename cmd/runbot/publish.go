// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"go.astrophena.name/runbot/internal/events"
)

// publishedEvent is what gets persisted per posted event, keyed by
// "event:<key>". Reminder handling looks events up here.
type publishedEvent struct {
	Title  string `json:"title"`
	Date   string `json:"date"`
	URL    string `json:"url,omitempty"`
	Region string `json:"region"`
}

// publish posts one eligible event to the chat, reporting whether it was
// actually posted.
//
// The dedup check runs before the registration check so that a
// closed-registration event stays unmarked: if its registration reopens
// later, it gets another chance. The dedup set is only updated after a
// successful send, so a delivery failure doesn't burn the event.
func (b *bot) publish(ctx context.Context, e events.Event, threadID int64) (bool, error) {
	key := e.Key()
	if b.seen.Has(key) {
		metricEventsSkipped.WithLabelValues("dedup").Inc()
		return false, nil
	}

	url := b.eventURL(e)
	st := b.verify(ctx, url)
	if st.Closed {
		metricEventsSkipped.WithLabelValues("closed").Inc()
		b.logf("skipping %q: registration is closed", e.Title)
		return false, nil
	}

	msg := outgoingMessage{
		ChatID:   b.chatID,
		ThreadID: threadID,
		Text:     renderEvent(e, url, st),
		ReplyMarkup: &inlineKeyboard{
			Buttons: [][]inlineKeyboardButton{{
				{Text: "🔔 Напомнить", CallbackData: "remind:" + key},
			}},
		},
	}
	if err := b.send(ctx, msg); err != nil {
		return false, err
	}

	b.seen.Add(key)
	metricEventsPublished.Inc()

	rec, err := json.Marshal(publishedEvent{
		Title:  e.Title,
		Date:   e.Date,
		URL:    url,
		Region: string(e.Region),
	})
	if err != nil {
		return true, err
	}
	if err := b.kv.Set(ctx, "event:"+key, rec); err != nil {
		// The event is posted, losing the reminder record is the lesser problem.
		b.logf("storing event %s: %v", key, err)
	}
	return true, nil
}

// eventURL returns the event's own URL, synthesizing one from the source's
// URL template when the card carried no link.
func (b *bot) eventURL(e events.Event) string {
	if e.URL != "" {
		return e.URL
	}
	for _, src := range b.catalog {
		if src.Name == e.Source && src.URLTemplate != "" {
			return fmt.Sprintf(src.URLTemplate, events.Slug(e.Title))
		}
	}
	return ""
}

// renderEvent formats the chat message for an event, in Telegram HTML.
func renderEvent(e events.Event, url string, st regStatus) string {
	var sb strings.Builder

	title := html.EscapeString(e.Title)
	if url != "" {
		fmt.Fprintf(&sb, "🏃 <b><a href=%q>%s</a></b>\n", url, title)
	} else {
		fmt.Fprintf(&sb, "🏃 <b>%s</b>\n", title)
	}
	if e.Date != "" {
		fmt.Fprintf(&sb, "📅 %s\n", html.EscapeString(e.Date))
	}
	fmt.Fprintf(&sb, "📍 %s\n", e.Region)
	if e.DistanceText != "" {
		fmt.Fprintf(&sb, "📏 %s\n", html.EscapeString(e.DistanceText))
	}
	if st.Deadline != "" {
		fmt.Fprintf(&sb, "⏳ Регистрация до %s\n", html.EscapeString(st.Deadline))
	}
	if st.Price != "" {
		fmt.Fprintf(&sb, "💰 %s\n", html.EscapeString(st.Price))
	}
	if st.Note != "" {
		fmt.Fprintf(&sb, "\n<i>%s</i>\n", html.EscapeString(st.Note))
	}
	return strings.TrimRight(sb.String(), "\n")
}
