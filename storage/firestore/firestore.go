// Package firestore provides a Firestore implementation of the kv.Store
// interface. Firestore has no server-side key expiry, so each document
// carries its deadline and expired documents are treated as absent on read.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ishtar07770/telegram-codex777/pkg/kv"
)

// Store implements kv.Store using Google Cloud Firestore
type Store struct {
	client     *firestore.Client
	collection string
}

// Config holds Firestore storage configuration
type Config struct {
	// Collection is the Firestore collection for key-value entries
	// Default: "kv_entries"
	Collection string
}

// New creates a new Firestore store adapter
func New(client *firestore.Client, config Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client is required")
	}

	if config.Collection == "" {
		config.Collection = "kv_entries"
	}

	return &Store{
		client:     client,
		collection: config.Collection,
	}, nil
}

// Get implements kv.Store
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	doc := s.client.Collection(s.collection).Doc(key)
	snap, err := doc.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", kv.ErrNotFound
		}
		return "", fmt.Errorf("failed to get key: %w", err)
	}

	if !snap.Exists() {
		return "", kv.ErrNotFound
	}

	data := snap.Data()

	if expireAt, ok := data["expireAt"].(time.Time); ok && !expireAt.IsZero() {
		if !time.Now().UTC().Before(expireAt) {
			return "", kv.ErrNotFound
		}
	}

	value, ok := data["value"].(string)
	if !ok {
		return "", fmt.Errorf("invalid value format for key %q", key)
	}

	return value, nil
}

// Set implements kv.Store
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	doc := s.client.Collection(s.collection).Doc(key)

	data := map[string]interface{}{
		"value":     value,
		"updatedAt": time.Now().UTC(),
	}

	if ttl > 0 {
		data["expireAt"] = time.Now().UTC().Add(ttl)
	} else {
		data["expireAt"] = nil
	}

	if _, err := doc.Set(ctx, data); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}

	return nil
}

// Ping verifies the Firestore connection by reading a probe document
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.Collection(s.collection).Doc("_ping").Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("failed to ping firestore: %w", err)
	}
	return nil
}

// Close closes the Firestore client
func (s *Store) Close() error {
	return s.client.Close()
}
