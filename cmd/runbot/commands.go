// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"go.astrophena.name/runbot/internal/events"
)

const helpText = `Я слежу за календарями беговых стартов и публикую новые забеги в Москве, Петербурге и Ижевске.

Команды:
/events — показать предстоящие забеги
/check — проверить источники прямо сейчас
/weather — погода в Ижевске
/ping — проверить, что я жив`

func (b *bot) handleCommand(ctx context.Context, msg *message) {
	cmd, _, _ := strings.Cut(msg.Text, " ")
	// Commands in groups arrive as /cmd@botname.
	cmd, _, _ = strings.Cut(cmd, "@")

	reply := func(text string) {
		err := b.send(ctx, outgoingMessage{
			ChatID:   chatIDStr(msg.Chat.ID),
			ThreadID: msg.ThreadID,
			Text:     text,
		})
		if err != nil {
			b.logf("%s: reply failed: %v", cmd, err)
		}
	}

	switch cmd {
	case "/start", "/help":
		reply(helpText)
	case "/ping":
		reply("pong")
	case "/events":
		evs, err := b.listEvents(ctx)
		if err != nil {
			reply(commandError(err))
			return
		}
		reply(renderEventList(evs))
	case "/check":
		reply("Проверяю источники, это займет около минуты...")
		published, err := b.runCycle(ctx, msg.ThreadID)
		if err != nil {
			reply(commandError(err))
			return
		}
		if published == 0 {
			reply("Новых забегов не нашлось.")
			return
		}
		reply(fmt.Sprintf("Нашлось новых забегов: %d.", published))
	case "/weather":
		report, err := b.weather(ctx)
		if err != nil {
			b.logf("weather: %v", err)
			reply("Не удалось узнать погоду, попробуйте позже.")
			return
		}
		reply(report)
	}
}

func commandError(err error) string {
	if errors.Is(err, errAlreadyRunning) {
		return "Проверка уже идет, подождите."
	}
	return "Что-то пошло не так, попробуйте позже."
}

func renderEventList(evs []events.Event) string {
	if len(evs) == 0 {
		return "Предстоящих забегов пока не видно."
	}

	var sb strings.Builder
	sb.WriteString("<b>Предстоящие забеги:</b>\n")
	const limit = 20
	for i, e := range evs {
		if i == limit {
			fmt.Fprintf(&sb, "\n...и еще %d.", len(evs)-limit)
			break
		}
		date := e.Date
		if date == "" {
			date = "дата уточняется"
		}
		if e.URL != "" {
			fmt.Fprintf(&sb, "\n• %s — <a href=%q>%s</a> (%s)", html.EscapeString(date), e.URL, html.EscapeString(e.Title), e.Region)
		} else {
			fmt.Fprintf(&sb, "\n• %s — %s (%s)", html.EscapeString(date), html.EscapeString(e.Title), e.Region)
		}
	}
	return sb.String()
}
