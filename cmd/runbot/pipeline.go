// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"errors"
	"time"

	"go.astrophena.name/runbot/internal/events"
	"go.astrophena.name/runbot/internal/util/syncx"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// concurrencyLimit is how many sources are fetched at the same time.
const concurrencyLimit = 8

var (
	metricEventsFound = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "runbot_events_found_total",
		Help: "Raw event records extracted, per source.",
	}, []string{"source"})
	metricEventsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "runbot_events_skipped_total",
		Help: "Events dropped before publication, per reason.",
	}, []string{"reason"})
	metricEventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "runbot_events_published_total",
		Help: "Events posted to the chat.",
	})
	metricRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "runbot_pipeline_runs_total",
		Help: "Completed pipeline runs.",
	})
)

// errAlreadyRunning is returned when a pipeline run is requested while another
// one is still in progress.
var errAlreadyRunning = errors.New("pipeline is already running")

// discover fetches every source in the catalog and returns the eligible
// events: normalized, filtered by year and region, in catalog order. Source
// order within a run is stable so that publication order is too.
func (b *bot) discover(ctx context.Context) (eligible []events.Event, found int) {
	results := make([][]events.Raw, len(b.catalog))

	lwg := syncx.NewLimitedWaitGroup(concurrencyLimit)
	for i, src := range b.catalog {
		lwg.Go(func() {
			results[i] = b.srcClient.Fetch(ctx, src)
		})
	}
	lwg.Wait()

	now := b.now()
	for i, src := range b.catalog {
		metricEventsFound.WithLabelValues(src.Name).Add(float64(len(results[i])))
		found += len(results[i])
		for _, raw := range results[i] {
			e := events.Normalize(raw)
			if !events.PassYear(e, now) {
				metricEventsSkipped.WithLabelValues("year").Inc()
				continue
			}
			if !events.PassRegion(e) {
				metricEventsSkipped.WithLabelValues("region").Inc()
				continue
			}
			eligible = append(eligible, e)
		}
	}
	return eligible, found
}

// runCycle performs one full pipeline run: discover, dedup, verify, publish.
// Publication is serialized and ordered; threadID selects the forum topic the
// events are posted into (0 means no topic). At most one run is in flight at
// a time.
func (b *bot) runCycle(ctx context.Context, threadID int64) (published int, err error) {
	if !b.running.CompareAndSwap(false, true) {
		return 0, errAlreadyRunning
	}
	defer b.running.Store(false)

	start := b.now()
	eligible, found := b.discover(ctx)

	for _, e := range eligible {
		ok, err := b.publish(ctx, e, threadID)
		if err != nil {
			b.logf("publish %q: %v", e.Title, err)
			continue
		}
		if ok {
			published++
		}
	}

	metricRuns.Inc()
	stats := runStats{
		Started:   start,
		Duration:  time.Since(start).Round(time.Millisecond).String(),
		Found:     found,
		Eligible:  len(eligible),
		Published: published,
	}
	b.lastRun.Store(stats)
	b.logf("run finished: %d found, %d eligible, %d published (took %s)",
		stats.Found, stats.Eligible, stats.Published, stats.Duration)

	return published, nil
}

// listEvents is the read-only variant of the pipeline used by /events and
// -dry: it discovers and filters, but doesn't verify, dedup or post anything.
func (b *bot) listEvents(ctx context.Context) ([]events.Event, error) {
	if !b.running.CompareAndSwap(false, true) {
		return nil, errAlreadyRunning
	}
	defer b.running.Store(false)

	eligible, _ := b.discover(ctx)
	return eligible, nil
}
