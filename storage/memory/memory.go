// Package memory provides an in-memory implementation of the kv.Store interface.
// This implementation is primarily intended for testing and development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ishtar07770/telegram-codex777/pkg/kv"
)

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// Store implements kv.Store using an in-memory map
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry

	// now is swappable for tests
	now func() time.Time
}

// New creates a new in-memory store adapter
func New() *Store {
	return &Store{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get implements kv.Store
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return "", kv.ErrNotFound
	}
	if e.expiresAt.IsZero() {
		return e.value, nil
	}

	now := s.now()
	if now.Before(e.expiresAt) {
		return e.value, nil
	}

	// A concurrent Set may have replaced the entry since the snapshot;
	// delete only when the stored entry is still expired.
	s.mu.Lock()
	if cur, ok := s.entries[key]; ok && !cur.expiresAt.IsZero() && !now.Before(cur.expiresAt) {
		delete(s.entries, key)
	}
	s.mu.Unlock()

	return "", kv.ErrNotFound
}

// Set implements kv.Store
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{value: value, expiresAt: expiresAt}
	return nil
}

// Ping implements kv.Store
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// Close implements kv.Store
func (s *Store) Close() error {
	return nil
}

// Clear removes all data (useful for testing)
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]entry)
}

// SetNow overrides the clock used for expiry checks (useful for testing)
func (s *Store) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.now = now
}
