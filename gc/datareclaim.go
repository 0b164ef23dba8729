package gc

import "context"

// dataEntryState carries a summary entry's phase-1 resolution (parent
// dnode info, node offset) forward into phases 2 and 3 (spec.md sec. 4.5,
// sec. 9 "phase-encoded state machines").
type dataEntryState struct {
	valid bool
	dni   DnodeInfo
	nofs  uint32
}

// ReclaimDataSegment walks a data segment's summary, validates each
// block's parent dnode still points at it, and relocates surviving
// blocks via the page cache (spec.md sec. 4.5, component C5).
func ReclaimDataSegment(
	ctx context.Context,
	segMgr SegmentManager,
	nodeMgr NodeManager,
	pageCache PageCache,
	inodeSrc InodeSource,
	cp Checkpoint,
	worklist *InodeWorklist,
	summary *Summary,
	segno int,
	gcType GCType,
) ReclaimStatus {
	entry := segMgr.SegEntry(segno)
	blocksPerSeg := len(summary.Entries)
	states := make([]dataEntryState, blocksPerSeg)
	segStartAddr := int64(segno) * int64(segMgr.BlocksPerSeg())

	// Phase 0: readahead the node page for every still-valid block.
	for off := 0; off < blocksPerSeg; off++ {
		if !checkValidMap(segMgr, entry, off) {
			continue
		}
		nodeMgr.RaNodePage(ctx, summary.Entries[off].Nid)
	}

	// Phase 1: check_dnode - validate the parent dnode still addresses
	// this exact block.
	for off := 0; off < blocksPerSeg; off++ {
		if !checkValidMap(segMgr, entry, off) {
			continue
		}
		if status, blocked := checkpointGate(ctx, cp); blocked {
			return status
		}

		se := summary.Entries[off]

		page, err := nodeMgr.GetNodePage(ctx, se.Nid)
		if err != nil {
			continue
		}
		dni, err := nodeMgr.GetNodeInfo(ctx, se.Nid)
		if err != nil {
			continue
		}
		if se.Version != dni.Version {
			continue
		}

		nofs := page.OfsOfNode()
		sourceBlkAddr := page.DatablockAddr(uint32(se.OfsInNode))
		if sourceBlkAddr != segStartAddr+int64(off) {
			// Already relocated elsewhere; nothing to do here.
			continue
		}

		nodeMgr.RaNodePage(ctx, dni.Ino)
		states[off] = dataEntryState{valid: true, dni: dni, nofs: nofs}
	}

	// Phase 2: resolve the owning inode, warm the data page, and queue
	// the inode for relocation (deduplicated).
	for off := 0; off < blocksPerSeg; off++ {
		if !states[off].valid {
			continue
		}
		if status, blocked := checkpointGate(ctx, cp); blocked {
			return status
		}

		st := &states[off]
		se := summary.Entries[off]

		inode, err := inodeSrc.IgetNowait(ctx, st.dni.Ino)
		if err != nil {
			st.valid = false
			continue
		}

		index := inode.StartBidx(st.nofs) + int64(se.OfsInNode)
		if page, err := pageCache.FindDataPage(ctx, st.dni.Ino, index); err == nil {
			pageCache.ReleaseDataPage(page)
		}

		worklist.Add(inode)
	}

	// Phase 3: lock and relocate each surviving block.
	for off := 0; off < blocksPerSeg; off++ {
		if !states[off].valid {
			continue
		}
		if status, blocked := checkpointGate(ctx, cp); blocked {
			return status
		}

		st := &states[off]
		se := summary.Entries[off]

		ref, ok := worklist.Find(st.dni.Ino)
		if !ok {
			continue
		}
		inode := ref.(Inode)

		index := inode.StartBidx(st.nofs) + int64(se.OfsInNode)
		page, err := pageCache.GetLockDataPage(ctx, st.dni.Ino, index)
		if err != nil {
			continue
		}
		moveDataPage(ctx, pageCache, inode, page, gcType)
	}

	if gcType == GCForeground {
		pageCache.SubmitBio(ctx, true)
	}

	return StatusDone
}

// moveDataPage relocates a single data page by marking it dirty (and, in
// foreground mode, writing it synchronously) so the writeback pipeline
// picks it up (spec.md sec. 4.5 "move_data_page").
func moveDataPage(ctx context.Context, pageCache PageCache, inode Inode, page DataPage, gcType GCType) {
	if page.IsRemapped() || page.IsWriteback() {
		pageCache.ReleaseDataPage(page)
		return
	}

	if gcType == GCBackground {
		pageCache.SetPageDirty(page)
		pageCache.SetPageCold(page, true)
		pageCache.ReleaseDataPage(page)
		return
	}

	pageCache.DataWriteLock()
	defer pageCache.DataWriteUnlock()

	if page.IsDirty() && inode.IsDir() {
		pageCache.DecDirtyDents(inode.Ino())
	}
	pageCache.SetPageCold(page, true)
	_ = pageCache.DoWriteDataPage(ctx, page)
	pageCache.SetPageCold(page, false)
	pageCache.ReleaseDataPage(page)
}
