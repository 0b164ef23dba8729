package gc

import "math"

// GCType identifies which caller context is running a reclamation pass.
// It indexes the victim bitmaps in spec.md sec. 3 and selects the cost
// algorithm a fresh Policy defaults to (Greedy for foreground, CostBenefit
// for background, spec.md sec. 4.3).
type GCType int

const (
	GCBackground GCType = iota
	GCForeground
)

func (t GCType) String() string {
	if t == GCForeground {
		return "foreground"
	}
	return "background"
}

// CostMode selects the cost function the victim selector uses to rank
// candidates (spec.md sec. 4.3).
type CostMode int

const (
	CostGreedy CostMode = iota
	CostBenefit
)

// AllocMode distinguishes log-structured reclamation (whole sections,
// driven by this package) from slack-space recycling (single segments,
// driven by an external allocator reusing the same victim selector).
type AllocMode int

const (
	AllocLFS AllocMode = iota
	AllocSSR
)

// ReclaimStatus is the tri-state (plus None) result that flows through
// the reclamation layer, spec.md sec. 7.
type ReclaimStatus int

const (
	// StatusDone: the victim segment was fully processed.
	StatusDone ReclaimStatus = iota
	// StatusBlocked: the dirty-node budget was exhausted; cp_mutex is
	// held and block_operations has already run. The caller must
	// checkpoint before retrying.
	StatusBlocked
	// StatusError: a summary page could not be read, or another fatal
	// condition surfaced.
	StatusError
	// StatusNone: no victim segment was available at all.
	StatusNone
)

func (s ReclaimStatus) String() string {
	switch s {
	case StatusDone:
		return "done"
	case StatusBlocked:
		return "blocked"
	case StatusError:
		return "error"
	case StatusNone:
		return "none"
	default:
		return "unknown"
	}
}

// SumType is the footer type of a segment's summary block.
type SumType int

const (
	SumNode SumType = iota
	SumData
)

// MaxCostSentinel mirrors f2fs's UINT_MAX: the cost-benefit formula is
// subtractive (lower is better) and this value marks "no progress",
// skipped without counting against the search budget.
const MaxCostSentinel = math.MaxUint32

// SummaryEntry maps one block offset in a segment to the node/version
// that owns it (spec.md sec. 3).
type SummaryEntry struct {
	Nid       uint32
	OfsInNode uint16
	Version   uint8
}

// Summary is the per-segment metadata block: one entry per block slot,
// plus the footer type that tells the reclamation loop whether to
// dispatch to the node or the data reclaimer.
type Summary struct {
	Segno   int
	Type    SumType
	Entries []SummaryEntry // len == BlocksPerSeg
}

// DnodeInfo is resolved from the node manager for a given nid
// (spec.md sec. 3).
type DnodeInfo struct {
	Ino       uint32
	OfsInNode uint32
	Version   uint8
}

// SegEntry is the segment manager's bookkeeping record for one segment,
// read (never mutated) by the GC core.
type SegEntry struct {
	ValidMap       *Bitmap // over block offsets [0, BlocksPerSeg)
	CurValidCount  int
	CkptValidCount int
	Mtime          int64
}

// Policy is the ephemeral victim-selection configuration built fresh for
// every SelectVictim call (spec.md sec. 3/sec. 4.3).
type Policy struct {
	AllocMode  AllocMode
	GCMode     CostMode
	Type       int // dirty-type / temperature bucket
	LogOfsUnit int // log_segs_per_sec for LFS, 0 for SSR
	Offset     int
	MinSegno   int
	MinCost    uint64
	MaxCost    uint64
}
