// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"cmp"
	"context"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.astrophena.name/runbot/internal/cli"
	"go.astrophena.name/runbot/internal/events"
	"go.astrophena.name/runbot/internal/logger"
	"go.astrophena.name/runbot/internal/sources"
	"go.astrophena.name/runbot/internal/store"
	"go.astrophena.name/runbot/internal/version"
	"go.astrophena.name/runbot/internal/web"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() { cli.Main(new(bot)) }

//go:embed sources.star
var defaultCatalog string

type bot struct {
	init    sync.Once
	initErr error

	// Flags.
	dry         bool
	sourcesFile string

	// Configuration, read from environment variables in doInit.
	addr            string
	tgToken         string
	chatID          string
	defaultThreadID int64
	dbPath          string
	tzName          string
	checkSpec       string
	morningSpec     string
	remindSpec      string

	logf     logger.Logf
	slog     *logger.Streamer
	scrubber *strings.Replacer

	// API endpoints, overridden in tests.
	tgAPI      string
	weatherURL string

	// Clients. httpc talks to the Telegram API and weather, discoveryc fetches
	// listing pages, verifyc makes the secondary registration-status fetches.
	httpc      *http.Client
	discoveryc *http.Client
	verifyc    *http.Client

	srcClient *sources.Client
	catalog   []*sources.Source

	seen *events.SeenStore
	kv   store.Store

	loc *time.Location
	now func() time.Time // replaced in tests

	running      atomic.Bool
	lastRun      syncValue[runStats]
	updateOffset int64
}

// syncValue is a tiny typed wrapper around atomic.Value.
type syncValue[T any] struct{ v atomic.Value }

func (s *syncValue[T]) Store(val T) { s.v.Store(val) }
func (s *syncValue[T]) Load() (val T, ok bool) {
	v := s.v.Load()
	if v == nil {
		return val, false
	}
	return v.(T), true
}

// runStats summarizes one pipeline run for /debug/ and the health check.
type runStats struct {
	Started   time.Time `json:"started"`
	Duration  string    `json:"duration"`
	Found     int       `json:"found"`
	Eligible  int       `json:"eligible"`
	Published int       `json:"published"`
}

func (b *bot) Flags(fs *flag.FlagSet) {
	fs.BoolVar(&b.dry, "dry", false, "Run the discovery pipeline once, print events and exit without posting.")
	fs.StringVar(&b.sourcesFile, "sources", "", "`path` to a sources.star catalog overriding the embedded one.")
}

func (b *bot) doInit(ctx context.Context, env *cli.Env) {
	if b.logf == nil {
		b.logf = env.Logf
	}
	b.slog = logger.NewStreamer(300)
	stderr := b.logf
	b.logf = func(format string, args ...any) {
		stderr(format, args...)
		fmt.Fprintf(b.slog, format+"\n", args...)
	}

	b.addr = cmp.Or(env.Getenv("ADDR"), "localhost:3000")
	b.tgToken = env.Getenv("TELEGRAM_TOKEN")
	b.chatID = env.Getenv("CHAT_ID")
	b.dbPath = env.Getenv("DB_PATH")
	b.tzName = cmp.Or(env.Getenv("TZ_NAME"), "Europe/Moscow")
	b.checkSpec = cmp.Or(env.Getenv("CHECK_SPEC"), "0 10 * * *")
	b.morningSpec = cmp.Or(env.Getenv("MORNING_SPEC"), "0 8 * * *")
	b.remindSpec = cmp.Or(env.Getenv("REMIND_SPEC"), "0 18 * * *")
	if tid := env.Getenv("THREAD_ID"); tid != "" {
		var err error
		b.defaultThreadID, err = strconv.ParseInt(tid, 10, 64)
		if err != nil {
			b.initErr = fmt.Errorf("THREAD_ID must be an integer: %v", err)
			return
		}
	}

	if !b.dry && b.tgToken == "" {
		b.initErr = errors.New("TELEGRAM_TOKEN environment variable is not set")
		return
	}
	if !b.dry && b.chatID == "" {
		b.initErr = errors.New("CHAT_ID environment variable is not set")
		return
	}

	if b.scrubber == nil && b.tgToken != "" {
		b.scrubber = strings.NewReplacer(b.tgToken, "[EXPUNGED]")
	}
	if b.tgAPI == "" {
		b.tgAPI = "https://api.telegram.org"
	}
	if b.weatherURL == "" {
		b.weatherURL = defaultWeatherURL
	}

	if b.httpc == nil {
		b.httpc = &http.Client{Timeout: 30 * time.Second}
	}
	if b.discoveryc == nil {
		b.discoveryc = &http.Client{Timeout: 30 * time.Second}
	}
	if b.verifyc == nil {
		b.verifyc = &http.Client{Timeout: 15 * time.Second}
	}
	b.srcClient = &sources.Client{
		HTTPClient: b.discoveryc,
		Logf:       b.logf,
	}

	var err error
	b.loc, err = time.LoadLocation(b.tzName)
	if err != nil {
		b.initErr = fmt.Errorf("loading time zone %q: %v", b.tzName, err)
		return
	}
	if b.now == nil {
		b.now = func() time.Time { return time.Now().In(b.loc) }
	}

	catalog := defaultCatalog
	if b.sourcesFile == "" {
		b.sourcesFile = env.Getenv("SOURCES_FILE")
	}
	if b.sourcesFile != "" {
		bs, err := os.ReadFile(b.sourcesFile)
		if err != nil {
			b.initErr = err
			return
		}
		catalog = string(bs)
	}
	b.catalog, err = sources.ParseCatalog(b.logf, catalog)
	if err != nil {
		b.initErr = fmt.Errorf("parsing source catalog: %v", err)
		return
	}

	b.seen = events.NewSeenStore()

	if b.kv == nil {
		if b.dbPath != "" {
			b.kv, err = store.NewSQLiteStore(ctx, b.dbPath)
			if err != nil {
				b.initErr = fmt.Errorf("opening %s: %v", b.dbPath, err)
				return
			}
		} else {
			b.kv = store.NewMemStore()
		}
	}
}

func (b *bot) Run(ctx context.Context, env *cli.Env) error {
	b.init.Do(func() { b.doInit(ctx, env) })
	if b.initErr != nil {
		return b.initErr
	}
	defer b.kv.Close()

	if b.dry {
		evs, err := b.listEvents(ctx)
		if err != nil {
			return err
		}
		for _, e := range evs {
			fmt.Fprintf(env.Stdout, "%s\t%s\t%s\t%s\n", e.Date, e.Region, e.Title, e.URL)
		}
		return nil
	}

	b.logf("%s starting, %d sources in catalog", version.CmdName(), len(b.catalog))

	mux := http.NewServeMux()
	health := web.Health(mux)
	health.RegisterFunc("telegram", b.telegramHealth)
	health.RegisterFunc("pipeline", b.pipelineHealth)
	mux.Handle("/metrics", promhttp.Handler())

	dbg := web.Debugger(b.logf, mux)
	dbg.Handle("log", "Logs", b.slog)
	dbg.KVFunc("Seen events", func() any { return b.seen.Len() })
	dbg.KVFunc("Last run", func() any {
		stats, ok := b.lastRun.Load()
		if !ok {
			return "never"
		}
		return fmt.Sprintf("%s: %d found, %d eligible, %d published (took %s)",
			stats.Started.Format(time.RFC3339), stats.Found, stats.Eligible, stats.Published, stats.Duration)
	})

	cron, err := b.startCron(ctx)
	if err != nil {
		return err
	}
	defer cron.Stop()

	go b.pollUpdates(ctx)

	return web.ListenAndServe(ctx, &web.ListenAndServeConfig{
		Addr:       b.addr,
		Mux:        mux,
		Logf:       b.logf,
		Debuggable: true,
		DebugAuth:  b.debugAuth,
	})
}

// debugAuth only allows access to debug endpoints from localhost.
func (b *bot) debugAuth(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return false
	}
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

func (b *bot) pipelineHealth() (status string, ok bool) {
	stats, ran := b.lastRun.Load()
	if !ran {
		return "no runs yet", true
	}
	return fmt.Sprintf("last run at %s: %d found, %d eligible, %d published",
		stats.Started.Format(time.RFC3339), stats.Found, stats.Eligible, stats.Published), true
}

func (b *bot) telegramHealth() (status string, ok bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	me, err := b.getMe(ctx)
	if err != nil {
		return err.Error(), false
	}
	return "connected as @" + me.Username, true
}
