package gc

import (
	"fmt"
	"strings"
	"sync"
)

// GCStats accumulates the counters surfaced by the text-dump stats
// path (spec.md sec. 6). It is safe for concurrent use: the background
// worker and any number of foreground callers record into the same
// instance while an operator reads it.
type GCStats struct {
	mu sync.Mutex

	BackgroundCalls int
	ForegroundCalls int
	DoneCalls       int
	BlockedCalls    int
	ErrorCalls      int
	NoVictimCalls   int
}

// Record tallies the outcome of one RunReclamationLoop call.
func (s *GCStats) Record(gcType GCType, status ReclaimStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gcType == GCForeground {
		s.ForegroundCalls++
	} else {
		s.BackgroundCalls++
	}

	switch status {
	case StatusDone:
		s.DoneCalls++
	case StatusBlocked:
		s.BlockedCalls++
	case StatusError:
		s.ErrorCalls++
	case StatusNone:
		s.NoVictimCalls++
	}
}

func (s *GCStats) snapshot() GCStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return GCStats{
		BackgroundCalls: s.BackgroundCalls,
		ForegroundCalls: s.ForegroundCalls,
		DoneCalls:       s.DoneCalls,
		BlockedCalls:    s.BlockedCalls,
		ErrorCalls:      s.ErrorCalls,
		NoVictimCalls:   s.NoVictimCalls,
	}
}

// BDF computes the bimodal distribution factor over totalSecs sections
// of a section's worth of blocks each (spec.md GLOSSARY "BDF"): the sum
// of squared deviations of each section's valid-block count from half
// capacity, normalized by section count. A higher value means
// utilization clusters at the extremes (mostly-empty or mostly-full
// sections) rather than the middle, which is the favorable shape for a
// greedy or cost-benefit victim search to find cheap candidates.
func BDF(segMgr SegmentManager, totalSecs int) float64 {
	if totalSecs == 0 {
		return 0
	}
	segMgr.SentryLock()
	defer segMgr.SentryUnlock()

	segsPerSec := segMgr.SegsPerSec()
	half := float64(segsPerSec*segMgr.BlocksPerSeg()) / 2

	var sum float64
	for sec := 0; sec < totalSecs; sec++ {
		segno := sec * segsPerSec
		vblocks := float64(segMgr.ValidBlocks(segno, segMgr.LogSegsPerSec()))
		diff := vblocks - half
		sum += diff * diff
	}
	return sum / float64(totalSecs)
}

// FormatStats renders the human-readable operator text dump (spec.md
// sec. 6): GC call counts and outcomes, free section/segment counts,
// the total section count, and the BDF metric. It prints no dirty-segment
// counts, per-temperature current segments, or memory footprint. It does
// not itself touch any I/O; callers
// decide where the text goes (log line, /proc-style file, HTTP handler).
func FormatStats(segMgr SegmentManager, freeSpace FreeSpace, stats *GCStats) string {
	snap := stats.snapshot()
	totalSecs := segMgr.TotalSegs() / segMgr.SegsPerSec()

	var b strings.Builder
	fmt.Fprintf(&b, "GC calls: background=%d foreground=%d\n", snap.BackgroundCalls, snap.ForegroundCalls)
	fmt.Fprintf(&b, "GC outcomes: done=%d blocked=%d error=%d no_victim=%d\n",
		snap.DoneCalls, snap.BlockedCalls, snap.ErrorCalls, snap.NoVictimCalls)
	fmt.Fprintf(&b, "free sections: %d (reserved %d)\n", freeSpace.FreeSections(), freeSpace.ReservedSections())
	fmt.Fprintf(&b, "free segments: %d\n", freeSpace.FreeSegments())
	fmt.Fprintf(&b, "total sections: %d\n", totalSecs)
	fmt.Fprintf(&b, "BDF: %.2f\n", BDF(segMgr, totalSecs))
	return b.String()
}
