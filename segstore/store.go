// Package segstore is a reference, disk-backed implementation of the
// collaborator interfaces the gc package depends on: segment and dirty
// bookkeeping, node and data page access, checkpointing, and free-space
// accounting. It exists to give the reclamation core something real to
// run against beyond unit-test doubles, and to exercise the codec,
// checksum, and versioning stack the rest of the module wires in.
package segstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/segflash/fsgc/gc"
	"github.com/segflash/fsgc/segstore/blockcodec"
)

// Store bundles the device geometry, segment table, node/data page
// maps, and the durable log together, and implements every
// gc.Collaborators field itself except Checkpoint, which Checkpointer
// provides (see Collaborators in wiring.go).
type Store struct {
	geom Geometry

	sentryMu sync.Mutex
	segs     []*gc.SegEntry
	minMtime int64
	maxMtime int64
	curSecs  map[int]bool

	seglistMu  sync.Mutex
	dirty      map[int]*gc.Bitmap
	victim     map[gc.GCType]*gc.Bitmap
	lastVictim map[gc.CostMode]int

	summaryMu sync.Mutex
	summaries map[int]*gc.Summary

	nodeMu    sync.Mutex
	nodePages map[uint32]*nodePageImpl
	nodeInfo  map[uint32]gc.DnodeInfo

	dataMu     sync.Mutex
	dataPages  map[uint64]*dataPageImpl
	writeLock  sync.Mutex
	dirtyDents map[uint32]int

	inodeMu sync.Mutex
	inodes  map[uint32]*inodeImpl

	cpMu             sync.Mutex
	shouldCheckpoint bool
	mounted          bool

	gcMu sync.Mutex

	freeSections     int
	reservedSections int
	idleFn           func() bool
	invalidBlocksFn  func() bool

	writer *LogWriter
}

// Option configures a new Store.
type Option func(*Store)

// WithGeometry overrides DefaultGeometry.
func WithGeometry(g Geometry) Option { return func(s *Store) { s.geom = g } }

// WithIdleFunc plugs in an external idleness source (e.g. iostat.Monitor.IsIdle).
func WithIdleFunc(fn func() bool) Option { return func(s *Store) { s.idleFn = fn } }

// New builds a Store over geometry defaults (or the given Options) and
// opens logPath as its durable record log, replaying it to rebuild the
// node and data page maps if it already exists. The segment table
// (valid maps, counts, mtimes) is not rebuilt from the log.
func New(logPath string, alg blockcodec.Algorithm, opts ...Option) (*Store, error) {
	s := &Store{
		geom:       DefaultGeometry(),
		curSecs:    make(map[int]bool),
		dirty:      make(map[int]*gc.Bitmap),
		victim:     make(map[gc.GCType]*gc.Bitmap),
		lastVictim: make(map[gc.CostMode]int),
		summaries:  make(map[int]*gc.Summary),
		nodePages:  make(map[uint32]*nodePageImpl),
		nodeInfo:   make(map[uint32]gc.DnodeInfo),
		dataPages:  make(map[uint64]*dataPageImpl),
		dirtyDents: make(map[uint32]int),
		inodes:     make(map[uint32]*inodeImpl),
		mounted:    true,
		idleFn:     func() bool { return true },
	}
	for _, opt := range opts {
		opt(s)
	}

	s.segs = make([]*gc.SegEntry, s.geom.TotalSegs)
	for i := range s.segs {
		s.segs[i] = &gc.SegEntry{ValidMap: gc.NewBitmap(s.geom.BlocksPerSeg)}
	}
	s.victim[gc.GCForeground] = gc.NewBitmap(s.geom.TotalSegs)
	s.victim[gc.GCBackground] = gc.NewBitmap(s.geom.TotalSegs)
	for dt := 0; dt < gc.NRDirtyType; dt++ {
		s.dirty[dt] = gc.NewBitmap(s.geom.TotalSegs)
	}
	s.freeSections = s.geom.TotalSegs / s.geom.SegsPerSec

	writer, err := NewLogWriter(logPath, alg, DefaultMaxBlockSize)
	if err != nil {
		return nil, fmt.Errorf("segstore: open log: %w", err)
	}
	s.writer = writer

	if reader, rerr := NewLogReader(logPath); rerr == nil {
		_ = reader.ReadAll(func(rec Record) bool {
			s.replay(rec)
			return true
		})
		reader.Close()
	}

	return s, nil
}

func (s *Store) replay(rec Record) {
	switch rec.Kind {
	case RecordNode:
		s.nodePages[rec.Nid] = &nodePageImpl{ofsOfNode: rec.Ofs, addrs: map[uint32]int64{}}
		s.nodeInfo[rec.Nid] = gc.DnodeInfo{Ino: rec.Ino, OfsInNode: rec.Ofs}
	case RecordData:
		key := dataKey(rec.Ino, rec.Index)
		s.dataPages[key] = &dataPageImpl{blockAddr: int64(rec.Ofs)}
	}
}

// Close flushes and closes the durable log.
func (s *Store) Close() error {
	return s.writer.Close()
}

// MarkValid sets segno's block ofs valid/invalid and maintains the
// segment's valid-block count and the dirty bitmap membership
// (a segment with zero valid blocks, or fewer than BlocksPerSeg, is
// dirty; a segment with all blocks valid is not).
func (s *Store) MarkValid(segno, ofs int, valid bool) {
	s.sentryMu.Lock()
	defer s.sentryMu.Unlock()

	entry := s.segs[segno]
	was := entry.ValidMap.Test(ofs)
	if was == valid {
		return
	}
	if valid {
		entry.ValidMap.Set(ofs)
		entry.CurValidCount++
	} else {
		entry.ValidMap.Clear(ofs)
		entry.CurValidCount--
	}
	entry.CkptValidCount = entry.CurValidCount

	s.seglistMu.Lock()
	if entry.CurValidCount < s.geom.BlocksPerSeg {
		s.dirty[0].Set(segno)
	} else {
		s.dirty[0].Clear(segno)
	}
	s.seglistMu.Unlock()
}

// SetMtime records segno's age for the cost-benefit formula and widens
// the global [min,max] range to match.
func (s *Store) SetMtime(segno int, mtime int64) {
	s.sentryMu.Lock()
	defer s.sentryMu.Unlock()
	s.segs[segno].Mtime = mtime
	s.widenMtimeLocked(mtime)
}

func (s *Store) widenMtimeLocked(mtime int64) {
	if s.minMtime == 0 && s.maxMtime == 0 {
		s.minMtime, s.maxMtime = mtime, mtime
		return
	}
	if mtime < s.minMtime {
		s.minMtime = mtime
	}
	if mtime > s.maxMtime {
		s.maxMtime = mtime
	}
}

// SetSummary installs the summary block read back for segno.
func (s *Store) SetSummary(segno int, sum *gc.Summary) {
	s.summaryMu.Lock()
	defer s.summaryMu.Unlock()
	s.summaries[segno] = sum
}

// --- gc.SegmentManager ---

func (s *Store) SegEntry(segno int) *gc.SegEntry { return s.segs[segno] }

// ValidBlocks, CkptValidBlocks, MinMaxMtime, WidenMtimeRange, and
// IsCurrentSection read/mutate segment-entry and victim-selection
// state that sentry_lock protects (spec.md sec. 5, lock order #3); the
// gc package always calls them from inside a SentryLock/SentryUnlock
// region (SelectVictim, checkValidMap), so they don't take the lock
// themselves — sentryMu is not reentrant and nesting Lock calls on the
// same goroutine would deadlock.

func (s *Store) ValidBlocks(segno, logUnit int) int {
	width := 1 << uint(logUnit)
	start := (segno >> uint(logUnit)) << uint(logUnit)
	total := 0
	for i := start; i < start+width && i < len(s.segs); i++ {
		total += s.segs[i].CurValidCount
	}
	return total
}

func (s *Store) CkptValidBlocks(segno int) int {
	return s.segs[segno].CkptValidCount
}

func (s *Store) MinMaxMtime() (int64, int64) {
	return s.minMtime, s.maxMtime
}

func (s *Store) WidenMtimeRange(mtime int64) {
	s.widenMtimeLocked(mtime)
}

func (s *Store) SentryLock()   { s.sentryMu.Lock() }
func (s *Store) SentryUnlock() { s.sentryMu.Unlock() }

func (s *Store) TotalSegs() int       { return s.geom.TotalSegs }
func (s *Store) BlocksPerSeg() int    { return s.geom.BlocksPerSeg }
func (s *Store) LogBlocksPerSeg() int { return s.geom.logBlocksPerSeg() }
func (s *Store) SegsPerSec() int      { return s.geom.SegsPerSec }
func (s *Store) LogSegsPerSec() int   { return s.geom.logSegsPerSec() }

func (s *Store) IsCurrentSection(segno int) bool {
	sec := segno / s.geom.SegsPerSec
	return s.curSecs[sec]
}

// SetCurrentSection marks/unmarks sec as the section currently open
// for foreground allocation.
func (s *Store) SetCurrentSection(sec int, current bool) {
	s.sentryMu.Lock()
	defer s.sentryMu.Unlock()
	if current {
		s.curSecs[sec] = true
	} else {
		delete(s.curSecs, sec)
	}
}

// --- gc.DirtySegManager ---

func (s *Store) DirtySegmap(dirtyType int) *gc.Bitmap {
	if b, ok := s.dirty[dirtyType]; ok {
		return b
	}
	return s.dirty[0]
}

func (s *Store) VictimSegmap(gcType gc.GCType) *gc.Bitmap { return s.victim[gcType] }

func (s *Store) LastVictim(mode gc.CostMode) int { return s.lastVictim[mode] }
func (s *Store) SetLastVictim(mode gc.CostMode, segno int) { s.lastVictim[mode] = segno }

func (s *Store) SeglistLock()   { s.seglistMu.Lock() }
func (s *Store) SeglistUnlock() { s.seglistMu.Unlock() }

// --- gc.SummarySource ---

func (s *Store) ReadSummary(_ context.Context, segno int) (*gc.Summary, error) {
	s.summaryMu.Lock()
	defer s.summaryMu.Unlock()
	sum, ok := s.summaries[segno]
	if !ok {
		return nil, fmt.Errorf("segstore: no summary recorded for segment %d", segno)
	}
	return sum, nil
}

// --- gc.Mounted ---

func (s *Store) Mounted() bool { return s.mounted }

// SetMounted flips the mounted flag, e.g. for an orderly-unmount test.
func (s *Store) SetMounted(m bool) { s.mounted = m }

// --- gc.FreeSpace ---

func (s *Store) FreeSections() int     { return s.freeSections }
func (s *Store) FreeSegments() int     { return s.freeSections * s.geom.SegsPerSec }
func (s *Store) ReservedSections() int { return s.reservedSections }

func (s *Store) HasNotEnoughFreeSecs() bool {
	return s.freeSections <= s.reservedSections
}

func (s *Store) IsIdle() bool {
	if s.idleFn == nil {
		return true
	}
	return s.idleFn()
}

func (s *Store) HasEnoughInvalidBlocks() bool {
	if s.invalidBlocksFn != nil {
		return s.invalidBlocksFn()
	}
	return s.HasNotEnoughFreeSecs()
}

// SetFreeSections lets a caller (or a test) drive the free-section
// count directly, e.g. after simulating a reclaimed section.
func (s *Store) SetFreeSections(n int) { s.freeSections = n }

// SetReservedSections sets the floor below which HasNotEnoughFreeSecs
// reports true.
func (s *Store) SetReservedSections(n int) { s.reservedSections = n }

// ReclaimSection increments the free-section count by one, mirroring
// what a successful section-wide LFS reclaim does to free space.
func (s *Store) ReclaimSection() { s.freeSections++ }

// --- gc.GCLock ---

func (s *Store) Lock()          { s.gcMu.Lock() }
func (s *Store) TryLock() bool  { return s.gcMu.TryLock() }
func (s *Store) Unlock()        { s.gcMu.Unlock() }
