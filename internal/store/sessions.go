package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/ashureev/mockdy/internal/domain"
)

// SessionStore keeps each profile's completed interviews, most recent first.
// Read failures degrade to an empty list and write failures are logged.
type SessionStore struct {
	repo Repository
	mu   sync.Mutex // makes read-modify-write of the list atomic
}

// NewSessionStore creates a session store over repo.
func NewSessionStore(repo Repository) *SessionStore {
	return &SessionStore{repo: repo}
}

// List returns all stored sessions for a profile, most recent first.
func (s *SessionStore) List(ctx context.Context, profileID string) []domain.StoredSession {
	sessions, err := s.load(ctx, profileID)
	if err != nil {
		slog.Error("Failed to load history", "profile_id", profileID, "error", err)
		return []domain.StoredSession{}
	}
	return sessions
}

// load reads the stored list. A missing or malformed record is an empty list;
// only repository failures are returned as errors.
func (s *SessionStore) load(ctx context.Context, profileID string) ([]domain.StoredSession, error) {
	raw, ok, err := s.repo.GetRecord(ctx, profileID, SessionsKey)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return []domain.StoredSession{}, nil
	}

	var sessions []domain.StoredSession
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		slog.Warn("Stored history is malformed, treating as empty", "profile_id", profileID, "error", err)
		return []domain.StoredSession{}, nil
	}
	if sessions == nil {
		sessions = []domain.StoredSession{}
	}
	return sessions, nil
}

// Get returns one session by ID.
func (s *SessionStore) Get(ctx context.Context, profileID, id string) (domain.StoredSession, bool) {
	for _, session := range s.List(ctx, profileID) {
		if session.ID == id {
			return session, true
		}
	}
	return domain.StoredSession{}, false
}

// Save prepends session to the profile's list. Nothing is written when the
// existing list cannot be read.
func (s *SessionStore) Save(ctx context.Context, profileID string, session domain.StoredSession) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load(ctx, profileID)
	if err != nil {
		slog.Error("Failed to load history, session not saved", "profile_id", profileID, "session_id", session.ID, "error", err)
		return
	}
	next := make([]domain.StoredSession, 0, len(sessions)+1)
	next = append(next, session)
	next = append(next, sessions...)
	s.write(ctx, profileID, next, "save")
}

// Delete removes the session with the given ID. Unknown IDs are a no-op.
func (s *SessionStore) Delete(ctx context.Context, profileID, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load(ctx, profileID)
	if err != nil {
		slog.Error("Failed to load history, session not deleted", "profile_id", profileID, "session_id", id, "error", err)
		return
	}
	next := make([]domain.StoredSession, 0, len(sessions))
	for _, session := range sessions {
		if session.ID != id {
			next = append(next, session)
		}
	}
	if len(next) == len(sessions) {
		return
	}
	s.write(ctx, profileID, next, "delete")
}

func (s *SessionStore) write(ctx context.Context, profileID string, sessions []domain.StoredSession, op string) {
	data, err := json.Marshal(sessions)
	if err != nil {
		slog.Error("Failed to encode history", "op", op, "profile_id", profileID, "error", err)
		return
	}
	if err := s.repo.PutRecord(ctx, profileID, SessionsKey, string(data)); err != nil {
		slog.Error("Failed to persist history", "op", op, "profile_id", profileID, "error", err)
	}
}
