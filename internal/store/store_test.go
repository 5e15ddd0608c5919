// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package store

import (
	"context"
	"path/filepath"
	"testing"

	"go.astrophena.name/runbot/internal/testutil"
)

func TestStore(t *testing.T) {
	t.Parallel()

	stores := map[string]func(t *testing.T) Store{
		"mem": func(t *testing.T) Store {
			return NewMemStore()
		},
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLiteStore(t.Context(), filepath.Join(t.TempDir(), "test.db"))
			if err != nil {
				t.Fatal(err)
			}
			return s
		},
	}

	for name, create := range stores {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			s := create(t)
			t.Cleanup(func() { s.Close() })
			testStore(t, s)
		})
	}
}

func testStore(t *testing.T, s Store) {
	ctx := context.Background()

	// Missing key is not an error.
	val, err := s.Get(ctx, "missing")
	if err != nil {
		t.Fatal(err)
	}
	if val != nil {
		t.Fatalf("got %q, want nil", val)
	}

	if err := s.Set(ctx, "event:abc", []byte("one")); err != nil {
		t.Fatal(err)
	}
	val, err = s.Get(ctx, "event:abc")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, string(val), "one")

	// Set overwrites.
	if err := s.Set(ctx, "event:abc", []byte("two")); err != nil {
		t.Fatal(err)
	}
	val, err = s.Get(ctx, "event:abc")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, string(val), "two")

	if err := s.Set(ctx, "remind:abc:1", []byte("r1")); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "remind:abc:2", []byte("r2")); err != nil {
		t.Fatal(err)
	}

	list, err := s.List(ctx, "remind:")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, list, map[string][]byte{
		"remind:abc:1": []byte("r1"),
		"remind:abc:2": []byte("r2"),
	})

	if err := s.Delete(ctx, "remind:abc:1"); err != nil {
		t.Fatal(err)
	}
	// Deleting a missing key is not an error.
	if err := s.Delete(ctx, "remind:abc:1"); err != nil {
		t.Fatal(err)
	}

	list, err = s.List(ctx, "remind:")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, len(list), 1)
}
