package gc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGCStats_Record(t *testing.T) {
	stats := &GCStats{}
	stats.Record(GCBackground, StatusDone)
	stats.Record(GCForeground, StatusBlocked)
	stats.Record(GCBackground, StatusNone)

	snap := stats.snapshot()
	assert.Equal(t, 2, snap.BackgroundCalls)
	assert.Equal(t, 1, snap.ForegroundCalls)
	assert.Equal(t, 1, snap.DoneCalls)
	assert.Equal(t, 1, snap.BlockedCalls)
	assert.Equal(t, 1, snap.NoVictimCalls)
}

func TestBDF_UniformUtilizationIsZero(t *testing.T) {
	segMgr := newFakeSegmentManager()
	half := segMgr.BlocksPerSeg() / 2
	segMgr.withValid(0, half)
	segMgr.withValid(1, half)

	assert.Equal(t, float64(0), BDF(segMgr, 2))
}

func TestBDF_ExtremeUtilizationIsPositive(t *testing.T) {
	segMgr := newFakeSegmentManager()
	segMgr.withValid(0, 0)
	segMgr.withValid(1, segMgr.BlocksPerSeg())

	assert.Greater(t, BDF(segMgr, 2), float64(0))
}

func TestFormatStats_ContainsExpectedLines(t *testing.T) {
	segMgr := newFakeSegmentManager()
	freeSpace := &fakeFreeSpace{freeSections: 3, reservedSections: 1}
	stats := &GCStats{}
	stats.Record(GCBackground, StatusDone)

	text := FormatStats(segMgr, freeSpace, stats)

	assert.True(t, strings.Contains(text, "background=1"))
	assert.True(t, strings.Contains(text, "free sections: 3"))
	assert.True(t, strings.Contains(text, "BDF:"))
}
