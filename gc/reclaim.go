package gc

import "context"

// Collaborators bundles every external interface the reclamation loop
// and background driver need. It exists purely to keep the function
// signatures in this package from growing an unwieldy parameter list;
// it carries no state of its own beyond the references.
type Collaborators struct {
	SegMgr     SegmentManager
	DirtyMgr   DirtySegManager
	NodeMgr    NodeManager
	PageCache  PageCache
	InodeSrc   InodeSource
	Checkpoint Checkpoint
	FreeSpace  FreeSpace
	Summary    SummarySource
	Mounted    Mounted
	GCLock     GCLock
}

// doGarbageCollect reads one segment's summary and dispatches to the
// node or data reclaimer by its footer type (spec.md sec. 4.6 step 3c).
func doGarbageCollect(ctx context.Context, c *Collaborators, worklist *InodeWorklist, segno int, gcType GCType) ReclaimStatus {
	summary, err := c.Summary.ReadSummary(ctx, segno)
	if err != nil {
		return StatusError
	}
	if summary.Type == SumNode {
		return ReclaimNodeSegment(ctx, c.SegMgr, c.NodeMgr, c.Checkpoint, summary, segno, gcType)
	}
	return ReclaimDataSegment(ctx, c.SegMgr, c.NodeMgr, c.PageCache, c.InodeSrc, c.Checkpoint, worklist, summary, segno, gcType)
}

// RunReclamationLoop is the outer orchestration loop (spec.md sec. 4.6,
// component C6). The caller must already hold the GC lock; this function
// releases it (and drains the inode work-list) on every exit path,
// including a propagated StatusError.
//
// nGC is the minimum number of free sections the caller wants gained.
// initialGCType seeds the loop; it escalates to Foreground on its own
// once free space runs low, regardless of what the caller passed.
func RunReclamationLoop(ctx context.Context, c *Collaborators, initialGCType GCType, nGC int) ReclaimStatus {
	worklist := NewInodeWorklist()
	defer func() {
		c.GCLock.Unlock()
		worklist.Drain()
	}()

	status := StatusNone

	for {
		nfree := 0
		gcType := initialGCType
		status = StatusNone

		oldFreeSecs := c.FreeSpace.FreeSections()
		if c.FreeSpace.HasNotEnoughFreeSecs() {
			oldFreeSecs = c.FreeSpace.ReservedSections()
		}

	scan:
		for c.Mounted.Mounted() {
			if c.FreeSpace.HasNotEnoughFreeSecs() {
				gcType = GCForeground
			}
			if c.FreeSpace.FreeSections()+nfree-oldFreeSecs >= nGC {
				break scan
			}

			policy := BuildPolicy(c.SegMgr, c.DirtyMgr, AllocLFS, gcType, 0)
			segno, ok := SelectVictim(c.SegMgr, c.DirtyMgr, gcType, policy)
			if !ok {
				break scan
			}

			segsPerSec := c.SegMgr.SegsPerSec()
			for s := segno; s < segno+segsPerSec; s++ {
				status = doGarbageCollect(ctx, c, worklist, s, gcType)
				if status == StatusDone {
					nfree++
					continue
				}
				break scan
			}
		}

		if status == StatusError {
			return StatusError
		}

		if c.FreeSpace.HasNotEnoughFreeSecs() || status == StatusBlocked {
			if err := c.Checkpoint.WriteCheckpoint(ctx, status == StatusBlocked); err != nil {
				return StatusError
			}
			if nfree > 0 {
				continue
			}
		}

		return status
	}
}
