package segstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segflash/fsgc/gc"
	"github.com/segflash/fsgc/segstore/blockcodec"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "segments.log")
	s, err := New(path, blockcodec.Snappy, WithGeometry(Geometry{BlocksPerSeg: 16, SegsPerSec: 2, TotalSegs: 64}))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_MarkValidUpdatesDirtyAndCounts(t *testing.T) {
	s := newTestStore(t)

	s.MarkValid(3, 0, true)
	s.MarkValid(3, 1, true)

	assert.Equal(t, 2, s.SegEntry(3).CurValidCount)
	assert.True(t, s.DirtySegmap(0).Test(3))

	for i := 0; i < s.BlocksPerSeg(); i++ {
		s.MarkValid(3, i, true)
	}
	assert.False(t, s.DirtySegmap(0).Test(3), "a fully-valid segment is not dirty")
}

func TestStore_NodeRoundTripThroughLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segments.log")
	ctx := context.Background()

	s, err := New(path, blockcodec.LZ4, WithGeometry(Geometry{BlocksPerSeg: 16, SegsPerSec: 2, TotalSegs: 64}))
	require.NoError(t, err)

	s.PutNodePage(42, 7, 0, 1)
	page, err := s.GetNodePage(ctx, 42)
	require.NoError(t, err)
	page.MarkDirty()
	require.NoError(t, s.SyncNodePages(ctx))
	require.NoError(t, s.Close())

	reopened, err := New(path, blockcodec.LZ4, WithGeometry(Geometry{BlocksPerSeg: 16, SegsPerSec: 2, TotalSegs: 64}))
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	replayed, err := reopened.GetNodePage(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), reopened.nodeInfo[42].Ino)
	assert.Equal(t, uint32(0), replayed.OfsOfNode())
}

func TestNewLogReader_MissingFile(t *testing.T) {
	reader, err := NewLogReader(filepath.Join(t.TempDir(), "missing"))
	assert.Nil(t, reader)
	assert.Error(t, err)
}

func TestStore_ReclaimNodeSegmentMarksDirty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.PutNodePage(1, 100, 0, 1)
	s.MarkValid(5, 0, true)
	s.SetSummary(5, &gc.Summary{Segno: 5, Type: gc.SumNode, Entries: []gc.SummaryEntry{{Nid: 1}}})

	cp := NewCheckpointer(s)
	status := gc.ReclaimNodeSegment(ctx, s, s, cp, mustSummary(s, 5), 5, gc.GCBackground)

	assert.Equal(t, gc.StatusDone, status)
	page, err := s.GetNodePage(ctx, 1)
	require.NoError(t, err)
	assert.False(t, page.IsWriteback())
	assert.True(t, page.(*nodePageImpl).dirty, "the valid node page must be marked dirty")
}

func mustSummary(s *Store, segno int) *gc.Summary {
	sum, err := s.ReadSummary(context.Background(), segno)
	if err != nil {
		panic(err)
	}
	return sum
}

func TestStore_FreeSpaceAndGCLock(t *testing.T) {
	s := newTestStore(t)
	s.SetFreeSections(1)
	s.SetReservedSections(2)
	assert.True(t, s.HasNotEnoughFreeSecs())

	s.ReclaimSection()
	assert.Equal(t, 2, s.FreeSections())

	assert.True(t, s.TryLock())
	assert.False(t, s.TryLock())
	s.Unlock()
}
