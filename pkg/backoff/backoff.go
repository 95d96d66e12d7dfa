// Package backoff implements the store-wide circuit breaker that suppresses
// upstream completion calls after the model provider reports resource
// exhaustion. The gate is a single shared key: once tripped it blocks every
// chat until the cooldown passes, protecting the one upstream credential.
package backoff

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ishtar07770/telegram-codex777/pkg/kv"
)

// blockKey is the global gate entry, shared by all chats
const blockKey = "openai:quota:block-until"

// Gate reads and trips the shared backoff state
type Gate struct {
	store kv.Store
}

// NewGate creates a backoff gate over the given key-value backend
func NewGate(store kv.Store) (*Gate, error) {
	if store == nil {
		return nil, fmt.Errorf("kv store is required")
	}

	return &Gate{store: store}, nil
}

// Blocked reports whether completion calls are currently suppressed.
// The remaining wait is rounded up to whole minutes for user messaging.
// A missing or non-numeric value counts as not blocked.
func (g *Gate) Blocked(ctx context.Context) (bool, time.Duration, error) {
	raw, err := g.store.Get(ctx, blockKey)
	if errors.Is(err, kv.ErrNotFound) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to read backoff state: %w", err)
	}

	until, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, 0, nil
	}

	remaining := time.Unix(until, 0).Sub(time.Now().UTC())
	if remaining <= 0 {
		return false, 0, nil
	}

	return true, roundUpToMinute(remaining), nil
}

// Trip suppresses completion calls for the cooldown window. Repeated trips
// overwrite the previous window; last write wins. The key's own expiry runs
// an hour past the cooldown so a stale block cannot outlive it by much.
func (g *Gate) Trip(ctx context.Context, cooldown time.Duration) error {
	until := time.Now().UTC().Add(cooldown)

	err := g.store.Set(ctx, blockKey, strconv.FormatInt(until.Unix(), 10), cooldown+time.Hour)
	if err != nil {
		return fmt.Errorf("failed to trip backoff gate: %w", err)
	}

	return nil
}

func roundUpToMinute(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}

	minutes := d / time.Minute
	if d%time.Minute != 0 {
		minutes++
	}
	return minutes * time.Minute
}
