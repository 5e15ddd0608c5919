// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
)

// startCron wires up the scheduled jobs: the daily event check, the morning
// greeting and the reminder sweep. Job times are interpreted in the
// configured time zone.
func (b *bot) startCron(ctx context.Context) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(b.loc))

	jobs := []struct {
		name string
		spec string
		run  func()
	}{
		{"check", b.checkSpec, func() { b.scheduledCheck(ctx) }},
		{"morning", b.morningSpec, func() { b.morningGreeting(ctx) }},
		{"remind", b.remindSpec, func() { b.sendReminders(ctx) }},
	}
	for _, job := range jobs {
		if _, err := c.AddFunc(job.spec, job.run); err != nil {
			return nil, fmt.Errorf("scheduling %s (%q): %v", job.name, job.spec, err)
		}
	}

	c.Start()
	return c, nil
}

// scheduledCheck is the daily unattended pipeline run, posting into the
// default topic.
func (b *bot) scheduledCheck(ctx context.Context) {
	if _, err := b.runCycle(ctx, b.defaultThreadID); err != nil && !errors.Is(err, errAlreadyRunning) {
		b.logf("scheduled check: %v", err)
	}
}

// morningGreeting posts the daily greeting with the weather to the default
// topic.
func (b *bot) morningGreeting(ctx context.Context) {
	text := "Доброе утро! Хорошей пробежки ☀️"
	if report, err := b.weather(ctx); err == nil {
		text += "\n\n" + report
	} else {
		b.logf("morning greeting: weather: %v", err)
	}
	if err := b.send(ctx, outgoingMessage{
		ChatID:   b.chatID,
		ThreadID: b.defaultThreadID,
		Text:     text,
	}); err != nil {
		b.logf("morning greeting: %v", err)
	}
}
