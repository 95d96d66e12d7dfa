// Package quota tracks per-chat, per-day message counts against a fixed
// daily cap. Counts are partitioned by UTC calendar day and expire at the
// next UTC midnight, so day rollover needs no explicit reset.
package quota

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ishtar07770/telegram-codex777/pkg/kv"
)

// Ledger counts messages per chat and day
type Ledger struct {
	store kv.Store
}

// NewLedger creates a quota ledger over the given key-value backend
func NewLedger(store kv.Store) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("kv store is required")
	}

	return &Ledger{store: store}, nil
}

// CheckAndConsume admits one message for the chat's current UTC day.
// It returns the count recorded before this message and whether the
// message was admitted. At or above the cap nothing is written and the
// caller must not proceed.
//
// Read and write are separate store operations, so concurrent messages
// from the same chat can both be admitted on the same stale count. The
// cap is a soft limit under concurrency.
func (l *Ledger) CheckAndConsume(ctx context.Context, chatID int64, dailyCap int) (int, bool, error) {
	now := time.Now().UTC()
	key := quotaKey(chatID, dayKey(now))

	used, err := l.readCount(ctx, key)
	if err != nil {
		return 0, false, err
	}

	if used >= dailyCap {
		return used, false, nil
	}

	ttl := untilNextMidnightUTC(now)
	if err := l.store.Set(ctx, key, strconv.Itoa(used+1), ttl); err != nil {
		return 0, false, fmt.Errorf("failed to record quota consumption: %w", err)
	}

	return used, true, nil
}

// Used returns the count recorded for the chat's current UTC day
func (l *Ledger) Used(ctx context.Context, chatID int64) (int, error) {
	now := time.Now().UTC()
	return l.readCount(ctx, quotaKey(chatID, dayKey(now)))
}

// readCount treats a missing or non-numeric value as zero
func (l *Ledger) readCount(ctx context.Context, key string) (int, error) {
	raw, err := l.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read quota count: %w", err)
	}

	count, err := strconv.Atoi(raw)
	if err != nil || count < 0 {
		return 0, nil
	}

	return count, nil
}

// dayKey returns the UTC calendar-day partition key
func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// untilNextMidnightUTC returns the expiry for a count written at now,
// clamped to at least one second to satisfy store expiry constraints.
func untilNextMidnightUTC(now time.Time) time.Duration {
	n := now.UTC()
	midnight := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)

	ttl := midnight.Sub(n)
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

func quotaKey(chatID int64, day string) string {
	return fmt.Sprintf("quota:%d:%s", chatID, day)
}
