package gc

import "context"

// Tunables (spec.md sec. 6). NewSleepController copies the three sleep
// bounds into a SleepController, whose fields a caller may change; the
// other constants are used as they are.
const (
	MinSleepMs      = 10_000
	MaxSleepMs      = 60_000
	NoGCSleepMs     = 120_000
	MaxVictimSearch = 4096
	DefaultCursegs  = 6
	NRDirtyType     = 8
)

// SegmentManager is the SIT_I collaborator: segment-entry bookkeeping
// and the geometry of the device (spec.md sec. 6).
type SegmentManager interface {
	SegEntry(segno int) *SegEntry
	ValidBlocks(segno, logUnit int) int
	CkptValidBlocks(segno int) int

	// MinMaxMtime returns the widest mtime range observed so far.
	MinMaxMtime() (min, max int64)
	// WidenMtimeRange grows the [min,max] range to include mtime; it
	// never narrows it (spec.md sec. 3, sec. 9 open question).
	WidenMtimeRange(mtime int64)

	// SentryLock/SentryUnlock guard segment-entry and victim-selection
	// state (spec.md sec. 5, lock order #3).
	SentryLock()
	SentryUnlock()

	TotalSegs() int
	BlocksPerSeg() int
	LogBlocksPerSeg() int
	SegsPerSec() int
	LogSegsPerSec() int

	// IsCurrentSection reports whether segno belongs to a section that
	// is currently open for allocation (never a valid victim).
	IsCurrentSection(segno int) bool
}

// DirtySegManager is the DIRTY_I collaborator: dirty seglists and the
// victim bitmaps that make victim selection mutually exclusive
// (spec.md sec. 6).
type DirtySegManager interface {
	// DirtySegmap returns the bitmap of segments dirty under the given
	// dirty type (plain-dirty == 0 for LFS scans, a temperature bucket
	// for SSR).
	DirtySegmap(dirtyType int) *Bitmap

	// VictimSegmap returns the bitmap of segments already claimed by a
	// GC pass of the given type.
	VictimSegmap(gcType GCType) *Bitmap

	// LastVictim/SetLastVictim persist the incremental scan cursor,
	// indexed by cost mode (spec.md sec. 4.3, sec. 9).
	LastVictim(mode CostMode) int
	SetLastVictim(mode CostMode, segno int)

	// SeglistLock/SeglistUnlock guard the above state (spec.md sec. 5, lock
	// order #4).
	SeglistLock()
	SeglistUnlock()
}

// NodeManager is the NM_I collaborator (spec.md sec. 6).
type NodeManager interface {
	// GetNodePage fetches nid's node page synchronously; the page
	// answers ofs_of_node/datablock_addr queries. Dnode info comes from
	// GetNodeInfo.
	GetNodePage(ctx context.Context, nid uint32) (NodePage, error)
	// RaNodePage issues an asynchronous readahead; errors are not
	// actionable and are swallowed by callers.
	RaNodePage(ctx context.Context, nid uint32)
	GetNodeInfo(ctx context.Context, nid uint32) (DnodeInfo, error)
	SyncNodePages(ctx context.Context) error
}

// NodePage is the minimal view of a node page the node and data
// reclaimers need (spec.md sec. 4.4, sec. 4.5).
type NodePage interface {
	OfsOfNode() uint32
	DatablockAddr(ofsInNode uint32) int64
	// IsWriteback reports whether the page is already queued for
	// writeback; such pages are left alone rather than re-dirtied.
	IsWriteback() bool
	// MarkDirty flags the page dirty so the writeback pipeline picks it
	// up on its next cycle.
	MarkDirty()
}

// DataPage is a pinned page in the page cache.
type DataPage interface {
	IsWriteback() bool
	IsDirty() bool
	IsRemapped() bool
	BlockAddr() int64
}

// PageCache is the page-cache/writeback collaborator (spec.md sec. 6).
type PageCache interface {
	FindDataPage(ctx context.Context, ino uint32, index int64) (DataPage, error)
	GetLockDataPage(ctx context.Context, ino uint32, index int64) (DataPage, error)
	ReleaseDataPage(page DataPage)
	SetPageDirty(page DataPage)
	SetPageCold(page DataPage, cold bool)
	DoWriteDataPage(ctx context.Context, page DataPage) error
	SubmitBio(ctx context.Context, sync bool)
	// DataWriteLock/DataWriteUnlock guard synchronous foreground writes
	// (spec.md sec. 5, lock order #5).
	DataWriteLock()
	DataWriteUnlock()
	// DecDirtyDents decrements dirty-dentry accounting for a directory
	// inode whose dirty data page is about to be relocated synchronously.
	DecDirtyDents(ino uint32)
}

// InodeSource resolves and releases inode handles for the data
// reclaimer's work-list (spec.md sec. 4.5, sec. 5).
type InodeSource interface {
	IgetNowait(ctx context.Context, ino uint32) (Inode, error)
}

// Inode is the minimal inode view the data reclaimer needs.
type Inode interface {
	InodeRef
	IsDir() bool
	StartBidx(nodeOfs uint32) int64
}

// Checkpoint is the checkpoint collaborator (spec.md sec. 6).
type Checkpoint interface {
	ShouldDoCheckpoint() bool
	// CpLock acquires cp_mutex. A reclaimer calls this right before
	// returning StatusBlocked; WriteCheckpoint releases it once the
	// checkpoint completes (spec.md sec. 9 "blocking handshake").
	CpLock()
	// CpUnlock releases cp_mutex without performing a checkpoint, for a
	// caller that took CpLock but must abandon the blocking handshake
	// (e.g. BlockOperations failed before WriteCheckpoint could run).
	CpUnlock()
	BlockOperations(ctx context.Context) error
	WriteCheckpoint(ctx context.Context, blocked bool) error
	BalanceFS(ctx context.Context)
}

// FreeSpace is the free-space-query collaborator (spec.md sec. 6).
type FreeSpace interface {
	FreeSections() int
	FreeSegments() int
	ReservedSections() int
	HasNotEnoughFreeSecs() bool
	IsIdle() bool
	HasEnoughInvalidBlocks() bool
}

// IOHook is the scheduler/cancellation collaborator the background
// driver consults (spec.md sec. 6).
type IOHook interface {
	TryToFreeze(ctx context.Context) bool
	// WaitInterruptibleTimeout blocks for d or until ctx is done /
	// stop is signalled, reporting whether a stop was observed.
	WaitInterruptibleTimeout(ctx context.Context, d int64) (stopped bool)
	ShouldStop() bool
}

// SummarySource reads the summary page for a victim segment, the one
// fatal-on-failure read in the reclamation layer (spec.md sec. 4.4/sec. 4.5/sec. 7).
type SummarySource interface {
	ReadSummary(ctx context.Context, segno int) (*Summary, error)
}

// Mounted reports whether the filesystem is still live; the
// reclamation loop keeps working only while this holds (spec.md sec. 4.6).
type Mounted interface {
	Mounted() bool
}

// GCLock is gc_mutex, the outermost lock in the ordering (spec.md sec. 5,
// lock order #1). Foreground callers block on Lock; the background
// driver uses TryLock so it never stalls a cooperative wait cycle.
type GCLock interface {
	Lock()
	TryLock() bool
	Unlock()
}
