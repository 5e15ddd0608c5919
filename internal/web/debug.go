// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package web

import (
	"cmp"
	"fmt"
	"html"
	"net/http"
	"net/http/pprof"
	"net/url"
	"os"
	"runtime"
	"slices"
	"sync"
	"time"

	"go.astrophena.name/runbot/internal/logger"
	"go.astrophena.name/runbot/internal/version"
)

// DebugHandler is an [http.Handler] that serves a debugging "homepage" at
// /debug/ and provides helpers to register more debug endpoints and reports.
//
// Methods of DebugHandler can be safely called by multiple goroutines.
type DebugHandler struct {
	mux  *http.ServeMux
	logf logger.Logf

	mu      sync.RWMutex // covers fields below, mux is protected by its own mutex
	kvfuncs []kvfunc
	links   []link
}

type (
	kvfunc struct {
		k string
		v func() any
	}
	link struct{ url, desc string }
)

// Debugger returns the [DebugHandler] registered on mux at /debug/, creating
// it if necessary.
func Debugger(logf logger.Logf, mux *http.ServeMux) *DebugHandler {
	h, pat := mux.Handler(&http.Request{URL: &url.URL{Path: "/debug/"}})
	if d, ok := h.(*DebugHandler); ok && pat == "/debug/" {
		return d
	}
	ret := &DebugHandler{mux: mux, logf: logf}
	mux.Handle("/debug/", ret)

	hostname, err := os.Hostname()
	if err == nil {
		ret.KV("Machine", hostname)
	}
	ret.KVFunc("Uptime", uptime)
	ret.Handle("pprof/", "pprof", http.HandlerFunc(pprof.Index))
	ret.Link("/debug/pprof/goroutine?debug=1", "Goroutines (collapsed)")
	ret.Link("/debug/pprof/goroutine?debug=2", "Goroutines (full)")
	ret.Handle("gc", "Force GC", http.HandlerFunc(serveGC))
	// The /pprof/ index already covers it, no need for another line of output.
	mux.Handle("/debug/pprof/profile", http.HandlerFunc(pprof.Profile))

	return ret
}

func serveGC(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Running GC...\n"))
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	runtime.GC()
	w.Write([]byte("Done.\n"))
}

var timeStart = time.Now()

func uptime() any { return time.Since(timeStart).Round(time.Second) }

// ServeHTTP implements the [http.Handler] interface.
func (d *DebugHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/debug/" {
		// Sub-handlers are handled by the parent mux directly.
		RespondJSONError(d.logf, w, ErrNotFound)
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!DOCTYPE html><html><head><title>%s debug</title></head><body>", html.EscapeString(version.CmdName()))
	fmt.Fprintf(w, "<h1>%s</h1><pre>%s</pre>", html.EscapeString(version.CmdName()), html.EscapeString(version.Version().String()))
	fmt.Fprint(w, "<table>")
	for _, kvf := range d.kvfuncs {
		fmt.Fprintf(w, "<tr><td>%s</td><td>%v</td></tr>", html.EscapeString(kvf.k), kvf.v())
	}
	fmt.Fprint(w, "</table><ul>")
	for _, l := range d.links {
		fmt.Fprintf(w, `<li><a href="%s">%s</a></li>`, l.url, html.EscapeString(l.desc))
	}
	fmt.Fprint(w, "</ul></body></html>")
}

// Handle registers handler at /debug/<slug> and creates a descriptive entry in
// /debug/ for it.
func (d *DebugHandler) Handle(slug, desc string, handler http.Handler) {
	href := "/debug/" + slug
	d.mux.Handle(href, handler)
	d.Link(href, desc)
}

// HandleFunc is like Handle, but accepts [http.HandlerFunc] instead of
// [http.Handler].
func (d *DebugHandler) HandleFunc(slug, desc string, handler http.HandlerFunc) {
	d.Handle(slug, desc, handler)
}

// KV adds a key/value list item to /debug/.
func (d *DebugHandler) KV(k string, v any) {
	d.KVFunc(k, func() any { return v })
}

// KVFunc adds a key/value list item to /debug/. v is called on every render
// of /debug/.
func (d *DebugHandler) KVFunc(k string, v func() any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.kvfuncs = append(d.kvfuncs, kvfunc{k, v})
}

// Link adds a URL and description list item to /debug/.
func (d *DebugHandler) Link(url, desc string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.links = append(d.links, link{url, desc})
	slices.SortStableFunc(d.links, func(a, b link) int {
		return cmp.Compare(a.desc, b.desc)
	})
}
