// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.astrophena.name/runbot/internal/request"
)

func (b *bot) method(name string) string {
	return b.tgAPI + "/bot" + b.tgToken + "/" + name
}

// Subset of Telegram Bot API types the bot cares about.
type (
	update struct {
		ID            int64          `json:"update_id"`
		Message       *message       `json:"message"`
		CallbackQuery *callbackQuery `json:"callback_query"`
	}

	message struct {
		ID       int64  `json:"message_id"`
		From     *user  `json:"from"`
		Chat     chat   `json:"chat"`
		ThreadID int64  `json:"message_thread_id"`
		Text     string `json:"text"`
	}

	chat struct {
		ID   int64  `json:"id"`
		Type string `json:"type"`
	}

	user struct {
		ID        int64  `json:"id"`
		FirstName string `json:"first_name"`
		Username  string `json:"username"`
	}

	callbackQuery struct {
		ID      string   `json:"id"`
		From    user     `json:"from"`
		Message *message `json:"message"`
		Data    string   `json:"data"`
	}

	inlineKeyboardButton struct {
		Text         string `json:"text"`
		URL          string `json:"url,omitempty"`
		CallbackData string `json:"callback_data,omitempty"`
	}

	inlineKeyboard struct {
		Buttons [][]inlineKeyboardButton `json:"inline_keyboard"`
	}

	linkPreviewOptions struct {
		IsDisabled bool `json:"is_disabled"`
	}
)

// outgoingMessage is the sendMessage request payload. ChatID is a string
// because Telegram accepts both numeric IDs and @channelusername.
type outgoingMessage struct {
	ChatID             string             `json:"chat_id"`
	ThreadID           int64              `json:"message_thread_id,omitempty"`
	Text               string             `json:"text"`
	ParseMode          string             `json:"parse_mode,omitempty"`
	LinkPreviewOptions linkPreviewOptions `json:"link_preview_options"`
	ReplyMarkup        *inlineKeyboard    `json:"reply_markup,omitempty"`
}

// send delivers an HTML-formatted message. If the message targets a forum
// topic that doesn't exist anymore, it is retried once without a topic, so a
// deleted topic doesn't silence the bot.
func (b *bot) send(ctx context.Context, msg outgoingMessage) error {
	msg.ParseMode = "HTML"
	msg.LinkPreviewOptions.IsDisabled = true

	err := b.call(ctx, "sendMessage", msg)
	if msg.ThreadID != 0 && isThreadNotFound(err) {
		b.logf("send: topic %d is gone, retrying without it", msg.ThreadID)
		msg.ThreadID = 0
		err = b.call(ctx, "sendMessage", msg)
	}
	return err
}

func isThreadNotFound(err error) bool {
	var se *request.StatusError
	if !errors.As(err, &se) {
		return false
	}
	return strings.Contains(strings.ToLower(string(se.Body)), "message thread not found")
}

// call makes a Bot API call, retrying once when rate limited.
func (b *bot) call(ctx context.Context, name string, body any) error {
	for attempt := 0; ; attempt++ {
		_, err := request.Make[request.IgnoreResponse](ctx, request.Params{
			Method:     "POST",
			URL:        b.method(name),
			Body:       body,
			HTTPClient: b.httpc,
			Scrubber:   b.scrubber,
		})
		var se *request.StatusError
		if attempt == 0 && errors.As(err, &se) && se.StatusCode == 429 {
			select {
			case <-time.After(3 * time.Second):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return err
	}
}

func (b *bot) getMe(ctx context.Context) (user, error) {
	res, err := request.Make[struct {
		Result user `json:"result"`
	}](ctx, request.Params{
		Method:     "GET",
		URL:        b.method("getMe"),
		HTTPClient: b.httpc,
		Scrubber:   b.scrubber,
	})
	return res.Result, err
}

func (b *bot) answerCallbackQuery(ctx context.Context, id, text string) error {
	return b.call(ctx, "answerCallbackQuery", map[string]string{
		"callback_query_id": id,
		"text":              text,
	})
}

// pollUpdates runs the getUpdates long-polling loop until ctx is canceled.
// Transient errors are logged and retried with a small backoff.
func (b *bot) pollUpdates(ctx context.Context) {
	for ctx.Err() == nil {
		updates, err := b.getUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logf("getUpdates: %v", err)
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}
		for _, upd := range updates {
			b.updateOffset = upd.ID + 1
			b.handleUpdate(ctx, upd)
		}
	}
}

func (b *bot) getUpdates(ctx context.Context) ([]update, error) {
	res, err := request.Make[struct {
		Result []update `json:"result"`
	}](ctx, request.Params{
		Method: "POST",
		URL:    b.method("getUpdates"),
		Body: map[string]any{
			"offset":          b.updateOffset,
			"timeout":         25,
			"allowed_updates": []string{"message", "callback_query"},
		},
		HTTPClient: b.httpc,
		Scrubber:   b.scrubber,
	})
	return res.Result, err
}

func (b *bot) handleUpdate(ctx context.Context, upd update) {
	defer func() {
		if r := recover(); r != nil {
			b.logf("panic while handling update %d: %v", upd.ID, r)
		}
	}()
	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && strings.HasPrefix(upd.Message.Text, "/"):
		b.handleCommand(ctx, upd.Message)
	}
}

// chatIDStr formats a numeric chat ID for the string chat_id field.
func chatIDStr(id int64) string { return fmt.Sprintf("%d", id) }
