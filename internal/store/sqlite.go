package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/mockdy/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db       *sql.DB
	recordMu sync.Mutex // serializes record writes to avoid SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Pragmas in the DSN apply to every pooled connection.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS profiles (
		profile_id TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_profiles_last_seen ON profiles(last_seen_at);

	CREATE TABLE IF NOT EXISTS records (
		profile_id TEXT NOT NULL,
		record_key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (profile_id, record_key)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetProfile retrieves a profile by its ID.
func (s *SQLiteStore) GetProfile(ctx context.Context, profileID string) (*domain.Profile, error) {
	query := `
		SELECT profile_id, label, last_seen_at, created_at, updated_at
		FROM profiles WHERE profile_id = ?`

	row := s.db.QueryRowContext(ctx, query, profileID)

	var p domain.Profile
	var lastSeen, createdAt, updatedAt int64
	err := row.Scan(&p.ProfileID, &p.Label, &lastSeen, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile row: %w", err)
	}

	p.LastSeenAt = time.Unix(lastSeen, 0)
	p.CreatedAt = time.Unix(createdAt, 0)
	p.UpdatedAt = time.Unix(updatedAt, 0)
	return &p, nil
}

// UpsertProfile creates or updates a profile record.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, p *domain.Profile) error {
	query := `
	INSERT INTO profiles (profile_id, label, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(profile_id) DO UPDATE SET
		label = excluded.label,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		p.ProfileID, p.Label, p.LastSeenAt.Unix(), p.CreatedAt.Unix(), p.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// TouchProfile updates the last_seen_at timestamp for a profile.
func (s *SQLiteStore) TouchProfile(ctx context.Context, profileID string, lastSeen time.Time) error {
	query := `UPDATE profiles SET last_seen_at = ?, updated_at = ? WHERE profile_id = ?`
	result, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), profileID)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("TouchProfile affected 0 rows", "profile_id", profileID)
	}
	return nil
}

// GetRecord returns the raw value stored under key.
func (s *SQLiteStore) GetRecord(ctx context.Context, profileID, key string) (string, bool, error) {
	query := `SELECT value FROM records WHERE profile_id = ? AND record_key = ?`

	var value string
	err := s.db.QueryRowContext(ctx, query, profileID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("scan record: %w", err)
	}
	return value, true, nil
}

// PutRecord overwrites the record stored under key.
func (s *SQLiteStore) PutRecord(ctx context.Context, profileID, key, value string) error {
	query := `
	INSERT INTO records (profile_id, record_key, value, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(profile_id, record_key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at`

	return s.withRetry(ctx, "put record", profileID, func() error {
		_, err := s.db.ExecContext(ctx, query, profileID, key, value, time.Now().Unix())
		return err
	})
}

// DeleteRecord removes the record stored under key.
func (s *SQLiteStore) DeleteRecord(ctx context.Context, profileID, key string) error {
	query := `DELETE FROM records WHERE profile_id = ? AND record_key = ?`
	return s.withRetry(ctx, "delete record", profileID, func() error {
		_, err := s.db.ExecContext(ctx, query, profileID, key)
		return err
	})
}

// withRetry runs a write under the record mutex with exponential backoff on SQLITE_BUSY.
func (s *SQLiteStore) withRetry(ctx context.Context, op, profileID string, fn func() error) error {
	maxRetries := 3
	baseDelay := 50 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		s.recordMu.Lock()
		err = fn()
		s.recordMu.Unlock()
		if err == nil {
			return nil
		}

		if isWriteConflict(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i) // exponential backoff: 50ms, 100ms, 200ms
			slog.Debug("Record write hit SQLITE_BUSY, retrying",
				"op", op,
				"profile_id", profileID,
				"attempt", i+1,
				"delay", delay)
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return fmt.Errorf("%s: %w", op, ctx.Err())
			}
		}
		break
	}
	return fmt.Errorf("%s: %w", op, err)
}

// DeleteStaleProfiles removes idle profiles and everything they own.
func (s *SQLiteStore) DeleteStaleProfiles(ctx context.Context, ttl time.Duration) (int64, int64, error) {
	s.recordMu.Lock()
	defer s.recordMu.Unlock()

	threshold := time.Now().Add(-ttl).Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin cleanup: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.Warn("failed to roll back cleanup", "error", rbErr)
		}
	}()

	recRes, err := tx.ExecContext(ctx, `
		DELETE FROM records WHERE profile_id IN (
			SELECT profile_id FROM profiles WHERE last_seen_at < ?
		)`, threshold)
	if err != nil {
		return 0, 0, fmt.Errorf("delete stale records: %w", err)
	}
	recRows, err := recRes.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("stale records rows affected: %w", err)
	}

	profRes, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE last_seen_at < ?`, threshold)
	if err != nil {
		return 0, 0, fmt.Errorf("delete stale profiles: %w", err)
	}
	profRows, err := profRes.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("stale profiles rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit cleanup: %w", err)
	}
	return profRows, recRows, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
