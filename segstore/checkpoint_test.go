package segstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segflash/fsgc/segstore/blockcodec"
)

func newCheckpointTestStore(t *testing.T) (*Store, *Checkpointer) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "segments.log")
	s, err := New(path, blockcodec.Snappy, WithGeometry(Geometry{BlocksPerSeg: 16, SegsPerSec: 1, TotalSegs: 16}))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, NewCheckpointer(s)
}

func TestCheckpointer_TriggerAndWrite(t *testing.T) {
	s, cp := newCheckpointTestStore(t)
	s.SetFreeSections(0)

	assert.False(t, cp.ShouldDoCheckpoint())
	cp.TriggerCheckpoint()
	assert.True(t, cp.ShouldDoCheckpoint())

	require.NoError(t, cp.WriteCheckpoint(context.Background(), false))
	assert.False(t, cp.ShouldDoCheckpoint())
	assert.Equal(t, 1, s.FreeSections())
}

func TestCheckpointer_BlockedHandoffDoesNotDeadlock(t *testing.T) {
	_, cp := newCheckpointTestStore(t)

	cp.CpLock() // simulate a reclaimer that already took cp_mutex on its way to StatusBlocked
	require.NoError(t, cp.WriteCheckpoint(context.Background(), true))
}
