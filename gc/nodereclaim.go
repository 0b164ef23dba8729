package gc

import "context"

// ReclaimNodeSegment walks a node segment's summary and relocates every
// still-valid node page by marking it dirty for the writeback pipeline
// (spec.md sec. 4.4, component C4).
func ReclaimNodeSegment(ctx context.Context, segMgr SegmentManager, nodeMgr NodeManager, cp Checkpoint, summary *Summary, segno int, gcType GCType) ReclaimStatus {
	entry := segMgr.SegEntry(segno)
	blocksPerSeg := len(summary.Entries)

	// Phase 0: readahead so phase 1 finds a warm cache.
	for off := 0; off < blocksPerSeg; off++ {
		if !checkValidMap(segMgr, entry, off) {
			continue
		}
		nodeMgr.RaNodePage(ctx, summary.Entries[off].Nid)
	}

	// Phase 1: mark every still-valid node page dirty.
	for off := 0; off < blocksPerSeg; off++ {
		if !checkValidMap(segMgr, entry, off) {
			continue
		}

		if status, blocked := checkpointGate(ctx, cp); blocked {
			return status
		}

		page, err := nodeMgr.GetNodePage(ctx, summary.Entries[off].Nid)
		if err != nil {
			// Transient page errors are expected and skipped
			// (spec.md sec. 7).
			continue
		}
		if !page.IsWriteback() {
			page.MarkDirty()
		}
	}

	if gcType == GCForeground {
		if err := nodeMgr.SyncNodePages(ctx); err != nil {
			return StatusError
		}
	}

	return StatusDone
}
