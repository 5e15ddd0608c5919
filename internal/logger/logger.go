// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package logger defines a type for writing to logs and a thread-safe
// implementation of an io.Writer that buffers log lines in a ring buffer
// and allows them to be retrieved as a snapshot or served over HTTP.
package logger

import (
	"container/ring"
	"net/http"
	"strings"
	"sync"
)

// Logf is the basic logger type: a printf-like func. Like [log.Printf], the
// format need not end in a newline. Logf functions must be safe for concurrent
// use.
type Logf func(format string, args ...any)

// Write implements the [io.Writer] interface.
func (f Logf) Write(p []byte) (n int, err error) {
	f("%s", p)
	return len(p), nil
}

// NewStreamer returns a new ring buffer of log lines with the given size.
func NewStreamer(size int) *Streamer {
	return &Streamer{
		r: ring.New(size),
	}
}

// Streamer is an io.Writer that keeps the most recent logged lines.
type Streamer struct {
	sync.RWMutex
	remainder string
	r         *ring.Ring
}

// Write implements the [io.Writer] interface.
func (s *Streamer) Write(b []byte) (int, error) {
	s.Lock()
	defer s.Unlock()
	text := s.remainder + string(b)
	for {
		idx := strings.Index(text, "\n")
		if idx == -1 {
			break
		}
		s.r.Value = text[:idx+1]
		s.r = s.r.Next()
		text = text[idx+1:]
	}
	s.remainder = text
	return len(b), nil
}

// Lines returns all buffered lines, oldest first.
func (s *Streamer) Lines() []string {
	s.RLock()
	defer s.RUnlock()
	lines := make([]string, 0, s.r.Len())
	s.r.Do(func(x any) {
		if x != nil {
			lines = append(lines, x.(string))
		}
	})
	return lines
}

// ServeHTTP implements the [http.Handler] interface by dumping the buffered
// lines as plain text.
func (s *Streamer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	for _, line := range s.Lines() {
		w.Write([]byte(line))
	}
}

var _ http.Handler = (*Streamer)(nil)
