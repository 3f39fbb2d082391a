package checkpoint

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

func TestEmitThenLoadReturnsTheCursor(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	cursor := types.NewWALCursor("0/1A", "slot1")
	require.NoError(t, s.Emit(cursor, types.PhaseFullSyncStart))

	got, ok, err := s.Load(types.PhaseFullSyncStart)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cursor, got)
}

func TestLoadReturnsFalseWhenNoneEmitted(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, ok, err := s.Load(types.PhaseIncrementalProgress)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadReturnsTheMostRecentEmission(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Emit(types.NewAuditCursor(1, "db"), types.PhaseIncrementalProgress))
	require.NoError(t, s.Emit(types.NewAuditCursor(2, "db"), types.PhaseIncrementalProgress))
	require.NoError(t, s.Emit(types.NewAuditCursor(3, "db"), types.PhaseIncrementalProgress))

	got, ok, err := s.Load(types.PhaseIncrementalProgress)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(3), got.SequenceID)
}

func TestLoadDistinguishesPhases(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Emit(types.NewWALCursor("0/1", "slot"), types.PhaseFullSyncStart))
	require.NoError(t, s.Emit(types.NewWALCursor("0/2", "slot"), types.PhaseFullSyncEnd))

	start, ok, err := s.Load(types.PhaseFullSyncStart)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0/1", start.LSN)

	end, ok, err := s.Load(types.PhaseFullSyncEnd)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0/2", end.LSN)
}

func TestNewStoreReloadsRecordsWrittenByAPreviousStore(t *testing.T) {
	dir := filepath.Join(t.TempDir())

	s1, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, s1.Emit(types.NewChangeStreamCursor([]byte{1, 2, 3}, time.Now()), types.PhaseIncrementalProgress))

	s2, err := NewStore(dir)
	require.NoError(t, err)
	got, ok, err := s2.Load(types.PhaseIncrementalProgress)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, got.ResumeToken)
}
