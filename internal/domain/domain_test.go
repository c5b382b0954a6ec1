package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInterviewType(t *testing.T) {
	for in, want := range map[string]InterviewType{
		"technical":      InterviewTechnical,
		"BEHAVIORAL":     InterviewBehavioral,
		"system-design":  InterviewSystemDesign,
		" system design": InterviewSystemDesign,
	} {
		got, err := ParseInterviewType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseInterviewType("coding")
	assert.Error(t, err)
}

func TestRandomProblemHonorsDifficulty(t *testing.T) {
	for i := 0; i < 50; i++ {
		p := RandomProblem(DifficultyHard)
		assert.Equal(t, DifficultyHard, p.Difficulty)
	}
}

func TestConnectionPredicates(t *testing.T) {
	var nilConn *NotionConnection
	assert.False(t, nilConn.CanWrite())
	assert.False(t, nilConn.Configured())

	c := &NotionConnection{AccessToken: "tok"}
	assert.True(t, c.CanWrite())
	assert.False(t, c.Configured())

	c.DatabaseID = "db"
	assert.True(t, c.Configured())

	status := c.Redacted()
	assert.True(t, status.Connected)
	assert.Equal(t, "db", status.DatabaseID)
}

func TestFirstModelMessage(t *testing.T) {
	s := StoredSession{Messages: []Message{
		{Role: RoleUser, Text: "hi"},
		{Role: RoleModel, Text: "Welcome"},
		{Role: RoleModel, Text: "Second"},
	}}
	assert.Equal(t, "Welcome", s.FirstModelMessage())
}

func TestProfileIsStale(t *testing.T) {
	now := time.Now()
	p := Profile{LastSeenAt: now.Add(-2 * time.Hour)}
	assert.True(t, p.IsStale(time.Hour, now))
	assert.False(t, p.IsStale(3*time.Hour, now))
}
