package session

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario 5: session handoff round-trip.
func TestSessionHandoffRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mgr, err := NewManager(dir)
	require.NoError(t, err)

	first, err := mgr.GetOrCreate()
	require.NoError(t, err)
	assert.Equal(t, ModeInitializer, first.Mode)
	assert.Nil(t, first.ParentSessionID)

	first.Progress.HandoffNotes = "continue X"
	first.Progress.CompletedTasks = []string{"scaffold project"}
	require.NoError(t, mgr.End(first))

	second, err := mgr.GetOrCreate()
	require.NoError(t, err)
	assert.Equal(t, ModeCoding, second.Mode)
	require.NotNil(t, second.ParentSessionID)
	assert.Equal(t, first.ID, *second.ParentSessionID)

	handoff, err := mgr.GetHandoffContext()
	require.NoError(t, err)
	assert.Contains(t, handoff, "continue X")
	assert.Contains(t, handoff, "Previous Session: "+first.ID.String())
	assert.Contains(t, handoff, "- [x] scaffold project")
}

func TestGetOrCreateInitializerWhenNoPriorSession(t *testing.T) {
	t.Parallel()

	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	s, err := mgr.GetOrCreate()
	require.NoError(t, err)
	assert.Equal(t, ModeInitializer, s.Mode)
}

func TestTouchBumpsCountersAndTimestamp(t *testing.T) {
	t.Parallel()

	s := newSession(ModeCoding, nil)
	before := s.UpdatedAt

	s.Touch(150)
	assert.Equal(t, uint64(1), s.RequestCount)
	assert.Equal(t, uint64(150), s.TotalTokens)
	assert.True(t, !s.UpdatedAt.Before(before))

	s.Touch(50)
	assert.Equal(t, uint64(2), s.RequestCount)
	assert.Equal(t, uint64(200), s.TotalTokens)
}

func TestGenerateHandoffOmitsEmptySections(t *testing.T) {
	t.Parallel()

	s := newSession(ModeInitializer, nil)
	doc := GenerateHandoff(s)

	assert.Contains(t, doc, "## Session Handoff")
	assert.NotContains(t, doc, "### Completed Tasks")
	assert.NotContains(t, doc, "### Key Decisions")
	assert.NotContains(t, doc, "### Notes for Next Session")
}

func TestCleanupOldSessionsKeepsMostRecent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mgr, err := NewManager(dir)
	require.NoError(t, err)

	var ids []string
	for i := 0; i < 5; i++ {
		s, err := mgr.GetOrCreate()
		require.NoError(t, err)
		require.NoError(t, mgr.End(s))
		ids = append(ids, s.ID.String())
	}

	require.NoError(t, mgr.CleanupOldSessions(2))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	jsonCount := 0
	for _, e := range entries {
		if e.Name() == "latest.json" || e.Name() == "handoff.md" {
			continue
		}
		jsonCount++
	}
	assert.Equal(t, 2, jsonCount)
	_ = ids
}
