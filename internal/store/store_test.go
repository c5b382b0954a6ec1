package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/mockdy/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "data", "mockdy.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

// repositories runs fn against every Repository implementation.
func repositories(t *testing.T, fn func(t *testing.T, repo Repository)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemory()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newTestSQLite(t)) })
}

func TestRepositoryProfiles(t *testing.T) {
	repositories(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()

		got, err := repo.GetProfile(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)

		now := time.Now().Truncate(time.Second)
		require.NoError(t, repo.UpsertProfile(ctx, &domain.Profile{
			ProfileID:  "p1",
			Label:      "anon-1",
			LastSeenAt: now,
			CreatedAt:  now,
			UpdatedAt:  now,
		}))

		later := now.Add(time.Hour)
		require.NoError(t, repo.TouchProfile(ctx, "p1", later))

		got, err = repo.GetProfile(ctx, "p1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "anon-1", got.Label)
		assert.True(t, got.LastSeenAt.Equal(later))
	})
}

func TestRepositoryRecords(t *testing.T) {
	repositories(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()

		_, ok, err := repo.GetRecord(ctx, "p1", SessionsKey)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, repo.PutRecord(ctx, "p1", SessionsKey, "[]"))
		require.NoError(t, repo.PutRecord(ctx, "p1", SessionsKey, `[{"id":"a"}]`))

		v, ok, err := repo.GetRecord(ctx, "p1", SessionsKey)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `[{"id":"a"}]`, v)

		// Records are scoped per profile.
		_, ok, err = repo.GetRecord(ctx, "p2", SessionsKey)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, repo.DeleteRecord(ctx, "p1", SessionsKey))
		require.NoError(t, repo.DeleteRecord(ctx, "p1", SessionsKey))
		_, ok, err = repo.GetRecord(ctx, "p1", SessionsKey)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestRepositoryDeleteStaleProfiles(t *testing.T) {
	repositories(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		now := time.Now()

		stale := now.Add(-48 * time.Hour)
		require.NoError(t, repo.UpsertProfile(ctx, &domain.Profile{ProfileID: "old", Label: "old", LastSeenAt: stale, CreatedAt: stale, UpdatedAt: stale}))
		require.NoError(t, repo.UpsertProfile(ctx, &domain.Profile{ProfileID: "new", Label: "new", LastSeenAt: now, CreatedAt: now, UpdatedAt: now}))
		require.NoError(t, repo.PutRecord(ctx, "old", SessionsKey, "[]"))
		require.NoError(t, repo.PutRecord(ctx, "old", ConnectionKey, "{}"))
		require.NoError(t, repo.PutRecord(ctx, "new", SessionsKey, "[]"))

		profiles, records, err := repo.DeleteStaleProfiles(ctx, 24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(1), profiles)
		assert.Equal(t, int64(2), records)

		p, err := repo.GetProfile(ctx, "old")
		require.NoError(t, err)
		assert.Nil(t, p)

		_, ok, err := repo.GetRecord(ctx, "new", SessionsKey)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func session(id string, ts int64) domain.StoredSession {
	return domain.StoredSession{
		ID:        id,
		Timestamp: ts,
		Type:      domain.InterviewTechnical,
		Messages:  []domain.Message{{Role: domain.RoleModel, Text: "hi", Timestamp: ts}},
		Feedback:  domain.FallbackFeedback(),
	}
}

func TestSessionStoreSaveListsMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessionStore(NewMemory())

	assert.Empty(t, sessions.List(ctx, "p1"))

	for i := 0; i < 5; i++ {
		sessions.Save(ctx, "p1", session(fmt.Sprintf("s%d", i), int64(i)))
	}

	list := sessions.List(ctx, "p1")
	require.Len(t, list, 5)
	for i, s := range list {
		assert.Equal(t, fmt.Sprintf("s%d", 4-i), s.ID)
	}

	got, ok := sessions.Get(ctx, "p1", "s2")
	require.True(t, ok)
	assert.Equal(t, int64(2), got.Timestamp)

	_, ok = sessions.Get(ctx, "p1", "nope")
	assert.False(t, ok)
}

func TestSessionStoreDelete(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessionStore(NewMemory())
	sessions.Save(ctx, "p1", session("a", 1))
	sessions.Save(ctx, "p1", session("b", 2))
	sessions.Save(ctx, "p1", session("c", 3))

	sessions.Delete(ctx, "p1", "missing")
	assert.Len(t, sessions.List(ctx, "p1"), 3)

	sessions.Delete(ctx, "p1", "b")
	list := sessions.List(ctx, "p1")
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].ID)
	assert.Equal(t, "a", list[1].ID)
}

func TestSessionStoreMalformedRecordIsEmpty(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	require.NoError(t, repo.PutRecord(ctx, "p1", SessionsKey, "{not json"))

	sessions := NewSessionStore(repo)
	assert.Empty(t, sessions.List(ctx, "p1"))

	// Saving over a malformed record starts a fresh list.
	sessions.Save(ctx, "p1", session("a", 1))
	assert.Len(t, sessions.List(ctx, "p1"), 1)
}

// flakyRepo fails the next failReads calls to GetRecord.
type flakyRepo struct {
	Repository
	failReads int
}

func (f *flakyRepo) GetRecord(ctx context.Context, profileID, key string) (string, bool, error) {
	if f.failReads > 0 {
		f.failReads--
		return "", false, errors.New("database is locked")
	}
	return f.Repository.GetRecord(ctx, profileID, key)
}

func TestSessionStoreReadErrorDoesNotOverwriteHistory(t *testing.T) {
	ctx := context.Background()
	repo := &flakyRepo{Repository: NewMemory()}
	sessions := NewSessionStore(repo)
	sessions.Save(ctx, "p1", session("a", 1))
	sessions.Save(ctx, "p1", session("b", 2))
	sessions.Save(ctx, "p1", session("c", 3))

	repo.failReads = 1
	sessions.Save(ctx, "p1", session("d", 4))
	require.Len(t, sessions.List(ctx, "p1"), 3)

	repo.failReads = 1
	sessions.Delete(ctx, "p1", "b")
	require.Len(t, sessions.List(ctx, "p1"), 3)

	repo.failReads = 1
	assert.Empty(t, sessions.List(ctx, "p1"))
	assert.Len(t, sessions.List(ctx, "p1"), 3)
}

func TestSQLitePragmasApplyToEveryConnection(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t).(*SQLiteStore)

	// Hold two connections at once so the pool cannot hand back the same one.
	first, err := store.db.Conn(ctx)
	require.NoError(t, err)
	defer first.Close()
	second, err := store.db.Conn(ctx)
	require.NoError(t, err)
	defer second.Close()

	for _, conn := range []*sql.Conn{first, second} {
		var mode string
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
		assert.Equal(t, "wal", mode)

		var timeout int
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
		assert.Equal(t, 5000, timeout)
	}
}

func TestIsWriteConflict(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "busy.db")
	repo, err := NewSQLite(path)
	require.NoError(t, err)
	defer repo.Close()

	holder, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer holder.Close()
	conn, err := holder.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.ExecContext(ctx, "BEGIN IMMEDIATE")
	require.NoError(t, err)
	defer func() { _, _ = conn.ExecContext(ctx, "ROLLBACK") }()

	writer, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(0)")
	require.NoError(t, err)
	defer writer.Close()
	_, err = writer.ExecContext(ctx, `INSERT INTO records (profile_id, record_key, value, updated_at) VALUES ('p', 'k', 'v', 0)`)
	require.Error(t, err)
	assert.True(t, isWriteConflict(err), "got %v", err)

	assert.False(t, isWriteConflict(nil))
	assert.False(t, isWriteConflict(errors.New("SQLITE_BUSY: not from the driver")))
}

func TestSessionStoreRoundTripsOnSQLite(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessionStore(newTestSQLite(t))

	s := session("a", 1700000000000)
	s.CodeOrNotes = "def solve(): pass"
	s.ProblemInfo = &domain.ProblemInfo{ID: 1, Name: "Two Sum", Difficulty: domain.DifficultyEasy, Category: "Arrays & Hashing"}
	sessions.Save(ctx, "p1", s)

	got, ok := sessions.Get(ctx, "p1", "a")
	require.True(t, ok)
	assert.Equal(t, s, got)
}

func TestConnectionStore(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	conns := NewConnectionStore(repo)

	assert.Nil(t, conns.Get(ctx, "p1"))

	conns.Save(ctx, "p1", domain.NotionConnection{
		AccessToken:   "secret_a",
		RefreshToken:  "refresh_a",
		WorkspaceName: "Acme",
	})
	got := conns.Get(ctx, "p1")
	require.NotNil(t, got)
	assert.Equal(t, "secret_a", got.AccessToken)
	assert.Equal(t, "Acme", got.WorkspaceName)

	updated := SetDatabaseID(ctx, conns, "p1", "db-1")
	assert.Equal(t, "secret_a", updated.AccessToken)
	assert.Equal(t, "db-1", conns.Get(ctx, "p1").DatabaseID)

	conns.Clear(ctx, "p1")
	assert.Nil(t, conns.Get(ctx, "p1"))
}

func TestConnectionStoreMalformedRecordIsAbsent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	require.NoError(t, repo.PutRecord(ctx, "p1", ConnectionKey, "nope"))

	assert.Nil(t, NewConnectionStore(repo).Get(ctx, "p1"))
}

func TestSetDatabaseIDWithoutConnection(t *testing.T) {
	ctx := context.Background()
	conns := NewConnectionStore(NewMemory())

	got := SetDatabaseID(ctx, conns, "p1", "db-9")
	assert.Equal(t, "db-9", got.DatabaseID)
	assert.Empty(t, got.AccessToken)
}

func TestSweepStaleProfilesInvokesCallback(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, repo.UpsertProfile(ctx, &domain.Profile{ProfileID: "old", LastSeenAt: old, CreatedAt: old, UpdatedAt: old}))

	var removed int64
	sweepStaleProfiles(ctx, repo, time.Hour, func(n int64) { removed = n })
	assert.Equal(t, int64(1), removed)

	removed = 0
	sweepStaleProfiles(ctx, repo, time.Hour, func(n int64) { removed = n })
	assert.Equal(t, int64(0), removed)
}
