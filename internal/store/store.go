// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/mockdy/internal/domain"
)

// Fixed record keys. The suffix is the only schema version.
const (
	SessionsKey   = "mockdy_history_v1"
	ConnectionKey = "mockdy_notion_connection_v1"
)

// Repository persists anonymous profiles and the opaque JSON records they own.
type Repository interface {
	// GetProfile retrieves a profile by ID. Returns (nil, nil) when absent.
	GetProfile(ctx context.Context, profileID string) (*domain.Profile, error)

	// UpsertProfile creates or updates a profile.
	UpsertProfile(ctx context.Context, profile *domain.Profile) error

	// TouchProfile updates last_seen_at for a profile.
	TouchProfile(ctx context.Context, profileID string, lastSeen time.Time) error

	// GetRecord returns the raw value stored under key for a profile.
	// The boolean is false when no record exists.
	GetRecord(ctx context.Context, profileID, key string) (string, bool, error)

	// PutRecord overwrites the record stored under key.
	PutRecord(ctx context.Context, profileID, key, value string) error

	// DeleteRecord removes the record stored under key. Missing records are not an error.
	DeleteRecord(ctx context.Context, profileID, key string) error

	// DeleteStaleProfiles removes profiles idle longer than ttl along with their records.
	DeleteStaleProfiles(ctx context.Context, ttl time.Duration) (profilesDeleted int64, recordsDeleted int64, err error)

	// Ping verifies connectivity to the backing store.
	Ping(ctx context.Context) error

	// Close releases the backing store.
	Close() error
}
