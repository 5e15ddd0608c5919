// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"go.astrophena.name/runbot/internal/request"
	"go.astrophena.name/runbot/internal/testutil"
)

func TestIsThreadNotFound(t *testing.T) {
	t.Parallel()

	se := &request.StatusError{
		StatusCode: http.StatusBadRequest,
		Body:       []byte(`{"ok":false,"description":"Bad Request: message thread not found"}`),
	}
	if !isThreadNotFound(se) {
		t.Fatal("want true for a thread-not-found error")
	}
	if isThreadNotFound(errors.New("connection refused")) {
		t.Fatal("want false for an unrelated error")
	}
	if isThreadNotFound(nil) {
		t.Fatal("want false for nil")
	}
}

func TestCallRetriesRateLimit(t *testing.T) {
	t.Parallel()
	tm := newTestMux(t)
	b := newTestBot(t, tm)

	var calls atomic.Int64
	tm.mux.HandleFunc("POST /bot"+testToken+"/limited", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests"}`))
			return
		}
		apiOK(w)
	})

	if err := b.call(t.Context(), "limited", nil); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, calls.Load(), int64(2))
}

func TestHandleUpdateDispatch(t *testing.T) {
	t.Parallel()
	tm := newTestMux(t)
	b := newTestBot(t, tm)

	// Non-command messages are ignored.
	b.handleUpdate(t.Context(), update{ID: 1, Message: userMessage("привет")})
	testutil.AssertEqual(t, len(tm.sentMessages()), 0)

	// Commands get a reply.
	b.handleUpdate(t.Context(), update{ID: 2, Message: userMessage("/ping")})
	testutil.AssertEqual(t, len(tm.sentMessages()), 1)

	// Unknown callbacks are ignored.
	b.handleUpdate(t.Context(), update{ID: 3, CallbackQuery: &callbackQuery{ID: "cb", Data: "bogus"}})
	testutil.AssertEqual(t, len(tm.answeredCallbacks()), 0)
}

func TestScrubberHidesToken(t *testing.T) {
	t.Parallel()
	tm := newTestMux(t)
	b := newTestBot(t, tm)
	b.tgToken = "secret-token"
	b.scrubber = strings.NewReplacer(b.tgToken, "[EXPUNGED]")

	tm.mux.HandleFunc("POST /botsecret-token/fail", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	err := b.call(t.Context(), "fail", nil)
	if err == nil {
		t.Fatal("want error")
	}
	if strings.Contains(err.Error(), "secret-token") {
		t.Fatalf("error message leaks the token: %q", err)
	}
	if !strings.Contains(err.Error(), "[EXPUNGED]") {
		t.Fatalf("error message is not scrubbed: %q", err)
	}
}
