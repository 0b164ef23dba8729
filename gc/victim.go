package gc

// BuildPolicy constructs the ephemeral victim-selection policy for one
// selector call (spec.md sec. 4.3). allocMode chooses between an LFS scan
// (dataType ignored, the plain-dirty list is scanned a whole section at
// a time) and an SSR scan (dataType selects the temperature bucket,
// granularity is a single segment).
func BuildPolicy(segMgr SegmentManager, dirtyMgr DirtySegManager, allocMode AllocMode, gcType GCType, dataType int) *Policy {
	p := &Policy{AllocMode: allocMode, MinSegno: -1, MinCost: MaxCostSentinel}

	switch allocMode {
	case AllocSSR:
		p.GCMode = CostGreedy
		p.Type = dataType
		p.LogOfsUnit = 0
	default: // AllocLFS
		p.Type = 0
		p.LogOfsUnit = segMgr.LogSegsPerSec()
		if gcType == GCForeground {
			p.GCMode = CostGreedy
		} else {
			p.GCMode = CostBenefit
		}
	}

	p.Offset = dirtyMgr.LastVictim(p.GCMode)

	if p.GCMode == CostGreedy {
		p.MaxCost = uint64(1) << uint(segMgr.LogBlocksPerSeg()+p.LogOfsUnit)
	} else {
		p.MaxCost = MaxCostSentinel
	}

	return p
}

// GetGCCost dispatches to the greedy or cost-benefit cost function
// selected by the policy (spec.md sec. 4.3).
func GetGCCost(segMgr SegmentManager, segno int, p *Policy) uint64 {
	if p.GCMode == CostBenefit {
		return costBenefitCost(segMgr, segno, p)
	}
	return greedyCost(segMgr, segno, p)
}

// greedyCost is the section-wide (LFS) or checkpoint-stable (SSR) valid
// block count: fewer valid blocks means cheaper to reclaim.
func greedyCost(segMgr SegmentManager, segno int, p *Policy) uint64 {
	if p.AllocMode == AllocSSR {
		return uint64(segMgr.CkptValidBlocks(segno))
	}
	return uint64(segMgr.ValidBlocks(segno, p.LogOfsUnit))
}

// costBenefitCost favors old, under-utilized sections over young, full
// ones: UINT_MAX - ((100*(100-u)*age)/(100+u)), so lower is better and a
// result of MaxCostSentinel means "no benefit at all" (spec.md sec. 4.3,
// sec. 8 property 5).
func costBenefitCost(segMgr SegmentManager, segno int, p *Policy) uint64 {
	vblocks := int64(segMgr.ValidBlocks(segno, p.LogOfsUnit))
	entry := segMgr.SegEntry(segno)
	minMtime, maxMtime := segMgr.MinMaxMtime()

	if entry.Mtime < minMtime || entry.Mtime > maxMtime {
		segMgr.WidenMtimeRange(entry.Mtime)
		minMtime, maxMtime = segMgr.MinMaxMtime()
	}

	avgVblocks := vblocks / int64(segMgr.SegsPerSec())
	u := (avgVblocks * 100) >> uint(segMgr.LogBlocksPerSeg())

	var age int64
	if maxMtime > minMtime {
		age = 100 - (100*(entry.Mtime-minMtime))/(maxMtime-minMtime)
	}

	num := 100 * (100 - u) * age
	den := 100 + u
	return uint64(int64(MaxCostSentinel) - num/den)
}

// sectionEnd returns the offset of the first segment past segno's
// section, given a log2 section width (spec.md sec. 4.3 step 2).
func sectionEnd(segno, logOfsUnit int) int {
	return ((segno >> uint(logOfsUnit)) + 1) << uint(logOfsUnit)
}

// sectionStart aligns segno down to its section boundary.
func sectionStart(segno, logOfsUnit int) int {
	return (segno >> uint(logOfsUnit)) << uint(logOfsUnit)
}

// SelectVictim runs the scan-and-score selection algorithm (spec.md
// sec. 4.3) under sentry_lock, the lock segment-entry reads and victim
// scoring share with the per-block validity checks in the reclaimers
// (spec.md sec. 5, lock order #3). It returns the chosen segno and true
// on success, or (0, false) if no candidate was found.
func SelectVictim(segMgr SegmentManager, dirtyMgr DirtySegManager, gcType GCType, p *Policy) (int, bool) {
	segMgr.SentryLock()
	defer segMgr.SentryUnlock()

	dirtyMgr.SeglistLock()
	defer dirtyMgr.SeglistUnlock()

	if gcType == GCForeground && p.AllocMode == AllocLFS {
		bgMap := dirtyMgr.VictimSegmap(GCBackground)
		if segno, ok := bgMap.NextSet(0); ok {
			bgMap.Clear(segno)
			return segno, true
		}
	}

	dirtySegmap := dirtyMgr.DirtySegmap(p.Type)
	fgVictims := dirtyMgr.VictimSegmap(GCForeground)
	bgVictims := dirtyMgr.VictimSegmap(GCBackground)

	offset := p.Offset
	searchCount := 0

	for {
		segno, ok := dirtySegmap.NextSet(offset)
		if !ok {
			if dirtyMgr.LastVictim(p.GCMode) != 0 {
				dirtyMgr.SetLastVictim(p.GCMode, 0)
				offset = 0
				continue
			}
			break
		}

		offset = sectionEnd(segno, p.LogOfsUnit)

		if fgVictims.Test(segno) ||
			(gcType == GCBackground && bgVictims.Test(segno)) ||
			segMgr.IsCurrentSection(segno) {
			continue
		}

		cost := GetGCCost(segMgr, segno, p)
		if cost < p.MinCost {
			p.MinSegno = segno
			p.MinCost = cost
		}
		if cost == p.MaxCost {
			continue
		}

		searchCount++
		if searchCount >= MaxVictimSearch {
			dirtyMgr.SetLastVictim(p.GCMode, segno)
			break
		}
	}

	if p.MinSegno < 0 {
		return 0, false
	}

	segno := p.MinSegno
	if p.AllocMode == AllocLFS {
		start := sectionStart(segno, p.LogOfsUnit)
		width := 1 << uint(p.LogOfsUnit)
		victims := dirtyMgr.VictimSegmap(gcType)
		for s := start; s < start+width; s++ {
			victims.Set(s)
		}
		segno = start
	}
	return segno, true
}
