// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package store

import (
	"context"
	"strings"

	"go.astrophena.name/runbot/internal/util/syncx"
)

// MemStore is an in-memory implementation of the [Store] interface.
type MemStore struct {
	cache *syncx.Protected[map[string][]byte]
}

// NewMemStore creates a new MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		cache: syncx.Protect(make(map[string][]byte)),
	}
}

// Get retrieves a value for a given key.
func (s *MemStore) Get(_ context.Context, key string) (val []byte, err error) {
	s.cache.RAccess(func(m map[string][]byte) {
		v, ok := m[key]
		if !ok {
			return
		}
		// Return a copy to prevent the caller from mutating the cache.
		val = append([]byte(nil), v...)
	})
	return val, nil
}

// Set stores a value for a given key.
func (s *MemStore) Set(_ context.Context, key string, value []byte) error {
	// Store a copy to prevent the caller from mutating the cache.
	valueCopy := append([]byte(nil), value...)
	s.cache.Access(func(m map[string][]byte) {
		m[key] = valueCopy
	})
	return nil
}

// Delete removes a value for a given key.
func (s *MemStore) Delete(_ context.Context, key string) error {
	s.cache.Access(func(m map[string][]byte) {
		delete(m, key)
	})
	return nil
}

// List returns all key-value pairs whose keys start with prefix.
func (s *MemStore) List(_ context.Context, prefix string) (map[string][]byte, error) {
	res := make(map[string][]byte)
	s.cache.RAccess(func(m map[string][]byte) {
		for k, v := range m {
			if strings.HasPrefix(k, prefix) {
				res[k] = append([]byte(nil), v...)
			}
		}
	})
	return res, nil
}

// Close is a no-op for MemStore.
func (s *MemStore) Close() error {
	return nil
}
