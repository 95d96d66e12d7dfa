// Package settings persists per-chat response preferences in the key-value
// store. Settings are created lazily with defaults on first read and
// overwritten wholesale on update; they are never deleted.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ishtar07770/telegram-codex777/pkg/kv"
)

// Tone selects the instruction style used when answering a chat
type Tone string

const (
	ToneFriendly  Tone = "friendly"
	ToneFormal    Tone = "formal"
	ToneTechnical Tone = "technical"
)

// DefaultTone is applied when a chat has no stored settings
const DefaultTone = ToneFriendly

var (
	// ErrInvalidTone is returned for a tone outside the known set
	ErrInvalidTone = errors.New("invalid tone")
)

// ParseTone validates a user-supplied tone argument
func ParseTone(s string) (Tone, error) {
	switch Tone(s) {
	case ToneFriendly, ToneFormal, ToneTechnical:
		return Tone(s), nil
	}
	return "", ErrInvalidTone
}

// UserSettings holds the stored preferences for one chat
type UserSettings struct {
	Tone Tone `json:"tone"`
}

// Store reads and writes per-chat settings
type Store struct {
	store kv.Store
}

// NewStore creates a settings store over the given key-value backend
func NewStore(store kv.Store) (*Store, error) {
	if store == nil {
		return nil, fmt.Errorf("kv store is required")
	}

	return &Store{store: store}, nil
}

// Get returns the settings for a chat. A missing entry, malformed JSON, or
// an unknown stored tone all yield the defaults rather than an error; only
// backend failures are returned.
func (s *Store) Get(ctx context.Context, chatID int64) (UserSettings, error) {
	raw, err := s.store.Get(ctx, settingsKey(chatID))
	if errors.Is(err, kv.ErrNotFound) {
		return UserSettings{Tone: DefaultTone}, nil
	}
	if err != nil {
		return UserSettings{}, fmt.Errorf("failed to get settings: %w", err)
	}

	var us UserSettings
	if err := json.Unmarshal([]byte(raw), &us); err != nil {
		return UserSettings{Tone: DefaultTone}, nil
	}
	if _, err := ParseTone(string(us.Tone)); err != nil {
		return UserSettings{Tone: DefaultTone}, nil
	}

	return us, nil
}

// SetTone overwrites the stored settings for a chat with the given tone
func (s *Store) SetTone(ctx context.Context, chatID int64, tone Tone) error {
	if _, err := ParseTone(string(tone)); err != nil {
		return err
	}

	data, err := json.Marshal(UserSettings{Tone: tone})
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := s.store.Set(ctx, settingsKey(chatID), string(data), 0); err != nil {
		return fmt.Errorf("failed to set settings: %w", err)
	}

	return nil
}

func settingsKey(chatID int64) string {
	return fmt.Sprintf("settings:%d", chatID)
}
