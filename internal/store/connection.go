package store

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ashureev/mockdy/internal/domain"
)

// ConnectionRepository holds the single Notion connection record of a profile.
// Implementations never fail loudly: errors are logged and reads degrade to absent.
type ConnectionRepository interface {
	// Get returns the stored connection or nil.
	Get(ctx context.Context, profileID string) *domain.NotionConnection
	// Save replaces the stored connection.
	Save(ctx context.Context, profileID string, conn domain.NotionConnection)
	// Clear removes the stored connection.
	Clear(ctx context.Context, profileID string)
}

// RecordConnectionStore stores the connection as a JSON record in a Repository.
type RecordConnectionStore struct {
	repo Repository
}

// NewConnectionStore creates a ConnectionRepository over repo.
func NewConnectionStore(repo Repository) *RecordConnectionStore {
	return &RecordConnectionStore{repo: repo}
}

var _ ConnectionRepository = (*RecordConnectionStore)(nil)

func (s *RecordConnectionStore) Get(ctx context.Context, profileID string) *domain.NotionConnection {
	raw, ok, err := s.repo.GetRecord(ctx, profileID, ConnectionKey)
	if err != nil {
		slog.Error("Failed to load Notion connection", "profile_id", profileID, "error", err)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}

	var conn domain.NotionConnection
	if err := json.Unmarshal([]byte(raw), &conn); err != nil {
		slog.Warn("Stored Notion connection is malformed, treating as absent", "profile_id", profileID, "error", err)
		return nil
	}
	return &conn
}

func (s *RecordConnectionStore) Save(ctx context.Context, profileID string, conn domain.NotionConnection) {
	data, err := json.Marshal(conn)
	if err != nil {
		slog.Error("Failed to encode Notion connection", "profile_id", profileID, "error", err)
		return
	}
	if err := s.repo.PutRecord(ctx, profileID, ConnectionKey, string(data)); err != nil {
		slog.Error("Failed to save Notion connection", "profile_id", profileID, "error", err)
	}
}

func (s *RecordConnectionStore) Clear(ctx context.Context, profileID string) {
	if err := s.repo.DeleteRecord(ctx, profileID, ConnectionKey); err != nil {
		slog.Error("Failed to clear Notion connection", "profile_id", profileID, "error", err)
	}
}

// SetDatabaseID stores the target database while keeping any existing tokens.
func SetDatabaseID(ctx context.Context, conns ConnectionRepository, profileID, databaseID string) domain.NotionConnection {
	var next domain.NotionConnection
	if current := conns.Get(ctx, profileID); current != nil {
		next = *current
	}
	next.DatabaseID = databaseID
	conns.Save(ctx, profileID, next)
	return next
}
