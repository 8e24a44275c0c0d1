package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "ballotbox/pkg/domain"
)

func TestNewElectionValidation(t *testing.T) {
	now := time.Now()
	start := now.Add(time.Hour)
	end := now.Add(2 * time.Hour)

	t.Run("valid election", func(t *testing.T) {
		election, err := NewElection(id.NewElectionID(), "City Council", []string{"Alice", "Bob"}, start, end, now)
		require.NoError(t, err)
		assert.Equal(t, []string{"Alice", "Bob"}, election.Candidates)
	})

	t.Run("end before start", func(t *testing.T) {
		_, err := NewElection(id.NewElectionID(), "Backwards", []string{"A"}, end, start, now)
		assert.Error(t, err)
	})

	t.Run("end equal to start", func(t *testing.T) {
		_, err := NewElection(id.NewElectionID(), "Zero Window", []string{"A"}, start, start, now)
		assert.Error(t, err)
	})

	t.Run("empty roster", func(t *testing.T) {
		_, err := NewElection(id.NewElectionID(), "Nobody", nil, start, end, now)
		assert.Error(t, err)
	})

	t.Run("roster of blank names counts as empty", func(t *testing.T) {
		_, err := NewElection(id.NewElectionID(), "Blanks", []string{"  ", ""}, start, end, now)
		assert.Error(t, err)
	})

	t.Run("duplicate candidates rejected case-insensitively", func(t *testing.T) {
		_, err := NewElection(id.NewElectionID(), "Twins", []string{"Alice", "alice"}, start, end, now)
		assert.Error(t, err)
	})

	t.Run("missing title", func(t *testing.T) {
		_, err := NewElection(id.NewElectionID(), "  ", []string{"A"}, start, end, now)
		assert.Error(t, err)
	})
}

func TestStatusAt(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	election, err := NewElection(id.NewElectionID(), "Window", []string{"A"}, start, end, start)
	require.NoError(t, err)

	cases := []struct {
		name string
		at   time.Time
		want Status
	}{
		{"before the window", start.Add(-time.Minute), StatusUpcoming},
		{"exactly at start", start, StatusActive},
		{"mid window", start.Add(6 * time.Hour), StatusActive},
		{"exactly at end", end, StatusActive},
		{"after the window", end.Add(time.Second), StatusCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, election.StatusAt(tc.at))
		})
	}
}

func TestHasCandidate(t *testing.T) {
	election, err := NewElection(id.NewElectionID(), "Roster", []string{"Alice", "Bob"},
		time.Now(), time.Now().Add(time.Hour), time.Now())
	require.NoError(t, err)

	assert.True(t, election.HasCandidate("Alice"))
	assert.False(t, election.HasCandidate("alice"), "candidate match is exact")
	assert.False(t, election.HasCandidate("Mallory"))
}
