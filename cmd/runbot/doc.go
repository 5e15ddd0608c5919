// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Runbot is a Telegram bot that watches running event listings and posts
upcoming races to a chat.

It periodically scrapes a couple dozen event-listing sites, normalizes
the scraped dates, keeps only events in the target regions (Moscow,
Saint Petersburg, Izhevsk), checks that registration is still open and
posts each event to the chat exactly once per process lifetime. Every
posted event carries a "remind me" button; the bot sends a reminder the
day before the start.

# Usage

	$ runbot [flags...]

# Commands

The bot understands the following chat commands:

  - /events: list upcoming events without posting them to the channel;
  - /check: run the discovery pipeline now, posting into the current topic;
  - /weather: current weather in Izhevsk;
  - /ping: check that the bot is alive;
  - /start, /help: short usage message.

A daily scheduled run is equivalent to /check in the default topic.

# Environment Variables

The runbot program relies on the following environment variables:

  - TELEGRAM_TOKEN: Telegram bot token (required).
  - CHAT_ID: chat where events are posted (required).
  - THREAD_ID: forum topic ID used by scheduled posts; optional.
  - ADDR: address of the HTTP server serving /health, /metrics and
    /debug/ (defaults to localhost:3000).
  - SOURCES_FILE: path to a sources.star catalog overriding the embedded
    one; optional.
  - DB_PATH: path to the SQLite database storing reminders. If empty,
    reminders are kept in memory only.
  - TZ_NAME: IANA time zone used by the scheduler (defaults to
    Europe/Moscow).
  - CHECK_SPEC, MORNING_SPEC, REMIND_SPEC: cron expressions for the
    daily event check, the morning greeting and the reminder sweep.

# Source Catalog

The source catalog is a Starlark file defining the listing sites, their
card selectors and skip words. See the sources.star file embedded into
the binary for the default catalog and the sources package documentation
for the format.

The dedup set that prevents reposting is in-memory and process-scoped:
restarting the bot makes every event eligible for posting again.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/runbot/internal/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
