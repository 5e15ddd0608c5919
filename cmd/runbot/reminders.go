// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// reminder is a per-user subscription to an event, keyed by
// "remind:<event key>:<chat ID>".
type reminder struct {
	ChatID int64  `json:"chat_id"`
	Key    string `json:"key"`
	Title  string `json:"title"`
	Date   string `json:"date"` // DD.MM.YYYY
	URL    string `json:"url,omitempty"`
}

func (b *bot) handleCallback(ctx context.Context, cq *callbackQuery) {
	key, ok := strings.CutPrefix(cq.Data, "remind:")
	if !ok {
		b.logf("callback: unknown data %q", cq.Data)
		return
	}

	answer := func(text string) {
		if err := b.answerCallbackQuery(ctx, cq.ID, text); err != nil {
			b.logf("answerCallbackQuery: %v", err)
		}
	}

	rec, err := b.kv.Get(ctx, "event:"+key)
	if err != nil {
		b.logf("callback: loading event %s: %v", key, err)
		answer("Что-то пошло не так.")
		return
	}
	if rec == nil {
		// The event was posted by a previous process and the store doesn't have
		// it anymore.
		answer("Этот забег уже не отслеживается.")
		return
	}
	var ev publishedEvent
	if err := json.Unmarshal(rec, &ev); err != nil {
		b.logf("callback: decoding event %s: %v", key, err)
		answer("Что-то пошло не так.")
		return
	}

	rkey := fmt.Sprintf("remind:%s:%d", key, cq.From.ID)
	if existing, err := b.kv.Get(ctx, rkey); err == nil && existing != nil {
		answer("Уже напомню, не волнуйтесь.")
		return
	}

	rem, err := json.Marshal(reminder{
		ChatID: cq.From.ID,
		Key:    key,
		Title:  ev.Title,
		Date:   ev.Date,
		URL:    ev.URL,
	})
	if err != nil {
		answer("Что-то пошло не так.")
		return
	}
	if err := b.kv.Set(ctx, rkey, rem); err != nil {
		b.logf("callback: saving reminder %s: %v", rkey, err)
		answer("Что-то пошло не так.")
		return
	}
	answer("Напомню за день до старта!")
}

// sendReminders delivers reminders for events starting tomorrow and deletes
// them. Dateless events never match and their reminders simply age out with
// the store.
func (b *bot) sendReminders(ctx context.Context) {
	tomorrow := b.now().AddDate(0, 0, 1).Format("02.01.2006")

	rems, err := b.kv.List(ctx, "remind:")
	if err != nil {
		b.logf("reminders: %v", err)
		return
	}

	for key, raw := range rems {
		var rem reminder
		if err := json.Unmarshal(raw, &rem); err != nil {
			b.logf("reminders: decoding %s: %v", key, err)
			continue
		}
		if rem.Date != tomorrow {
			continue
		}

		text := fmt.Sprintf("⏰ Напоминание: завтра, %s, стартует «%s».", rem.Date, rem.Title)
		if rem.URL != "" {
			text += "\n" + rem.URL
		}
		if err := b.send(ctx, outgoingMessage{
			ChatID: chatIDStr(rem.ChatID),
			Text:   text,
		}); err != nil {
			b.logf("reminders: sending to %d: %v", rem.ChatID, err)
			continue
		}
		if err := b.kv.Delete(ctx, key); err != nil {
			b.logf("reminders: deleting %s: %v", key, err)
		}
	}
}
