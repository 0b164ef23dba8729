package gc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeNodePage struct {
	ofsOfNode uint32
	addrs     map[uint32]int64
	writeback bool
	dirty     bool
}

func (p *fakeNodePage) OfsOfNode() uint32                   { return p.ofsOfNode }
func (p *fakeNodePage) DatablockAddr(ofs uint32) int64      { return p.addrs[ofs] }
func (p *fakeNodePage) IsWriteback() bool                   { return p.writeback }
func (p *fakeNodePage) MarkDirty()                          { p.dirty = true }

type fakeNodeManager struct {
	pages        map[uint32]*fakeNodePage
	infos        map[uint32]DnodeInfo
	raCalls      []uint32
	getCalls     []uint32
	syncCalled   bool
	getErr       map[uint32]error
}

func newFakeNodeManager() *fakeNodeManager {
	return &fakeNodeManager{
		pages:  make(map[uint32]*fakeNodePage),
		infos:  make(map[uint32]DnodeInfo),
		getErr: make(map[uint32]error),
	}
}

func (m *fakeNodeManager) GetNodePage(ctx context.Context, nid uint32) (NodePage, error) {
	m.getCalls = append(m.getCalls, nid)
	if err, ok := m.getErr[nid]; ok {
		return nil, err
	}
	return m.pages[nid], nil
}
func (m *fakeNodeManager) RaNodePage(ctx context.Context, nid uint32) {
	m.raCalls = append(m.raCalls, nid)
}
func (m *fakeNodeManager) GetNodeInfo(ctx context.Context, nid uint32) (DnodeInfo, error) {
	return m.infos[nid], nil
}
func (m *fakeNodeManager) SyncNodePages(ctx context.Context) error {
	m.syncCalled = true
	return nil
}

type fakeCheckpoint struct {
	shouldCheckpoint bool
	cpLockCalled     bool
	cpUnlockCalled   bool
	blockErr         error
}

func (c *fakeCheckpoint) ShouldDoCheckpoint() bool { return c.shouldCheckpoint }
func (c *fakeCheckpoint) CpLock()                  { c.cpLockCalled = true }
func (c *fakeCheckpoint) CpUnlock()                { c.cpUnlockCalled = true }
func (c *fakeCheckpoint) BlockOperations(ctx context.Context) error { return c.blockErr }
func (c *fakeCheckpoint) WriteCheckpoint(ctx context.Context, blocked bool) error { return nil }
func (c *fakeCheckpoint) BalanceFS(ctx context.Context)             {}

func TestReclaimNodeSegment_S3_AllInvalidFastPath(t *testing.T) {
	segMgr := newFakeSegmentManager()
	blocksPerSeg := 4
	segMgr.entries[5] = &SegEntry{ValidMap: NewBitmap(blocksPerSeg)} // all zero

	summary := &Summary{Segno: 5, Type: SumNode, Entries: make([]SummaryEntry, blocksPerSeg)}
	nodeMgr := newFakeNodeManager()
	cp := &fakeCheckpoint{}

	status := ReclaimNodeSegment(context.Background(), segMgr, nodeMgr, cp, summary, 5, GCBackground)

	assert.Equal(t, StatusDone, status)
	assert.Empty(t, nodeMgr.raCalls, "no readahead should be issued for an all-invalid segment")
	assert.Empty(t, nodeMgr.getCalls, "no page fetch should happen for an all-invalid segment")
}

func TestReclaimNodeSegment_MarksValidPagesDirty(t *testing.T) {
	segMgr := newFakeSegmentManager()
	vm := NewBitmap(4)
	vm.Set(0)
	vm.Set(2)
	segMgr.entries[1] = &SegEntry{ValidMap: vm}

	entries := make([]SummaryEntry, 4)
	entries[0] = SummaryEntry{Nid: 100}
	entries[2] = SummaryEntry{Nid: 200}
	summary := &Summary{Segno: 1, Type: SumNode, Entries: entries}

	nodeMgr := newFakeNodeManager()
	nodeMgr.pages[100] = &fakeNodePage{}
	nodeMgr.pages[200] = &fakeNodePage{writeback: true}
	cp := &fakeCheckpoint{}

	status := ReclaimNodeSegment(context.Background(), segMgr, nodeMgr, cp, summary, 1, GCBackground)

	assert.Equal(t, StatusDone, status)
	assert.True(t, nodeMgr.pages[100].dirty)
	assert.False(t, nodeMgr.pages[200].dirty, "a page already under writeback is left alone")
	assert.False(t, nodeMgr.syncCalled, "background GC does not force a synchronous flush")
}

func TestReclaimNodeSegment_ForegroundSyncsOnExit(t *testing.T) {
	segMgr := newFakeSegmentManager()
	segMgr.entries[1] = &SegEntry{ValidMap: NewBitmap(1)}
	summary := &Summary{Segno: 1, Type: SumNode, Entries: make([]SummaryEntry, 1)}
	nodeMgr := newFakeNodeManager()
	cp := &fakeCheckpoint{}

	status := ReclaimNodeSegment(context.Background(), segMgr, nodeMgr, cp, summary, 1, GCForeground)

	assert.Equal(t, StatusDone, status)
	assert.True(t, nodeMgr.syncCalled)
}

func TestReclaimNodeSegment_BlockedOnCheckpointPressure(t *testing.T) {
	segMgr := newFakeSegmentManager()
	vm := NewBitmap(2)
	vm.Set(0)
	segMgr.entries[1] = &SegEntry{ValidMap: vm}
	summary := &Summary{Segno: 1, Type: SumNode, Entries: make([]SummaryEntry, 2)}
	nodeMgr := newFakeNodeManager()
	cp := &fakeCheckpoint{shouldCheckpoint: true}

	status := ReclaimNodeSegment(context.Background(), segMgr, nodeMgr, cp, summary, 1, GCBackground)

	assert.Equal(t, StatusBlocked, status)
	assert.True(t, cp.cpLockCalled, "cp_mutex must be taken before returning Blocked")
}

func TestReclaimNodeSegment_BlockOperationsFailureReleasesCpMutex(t *testing.T) {
	segMgr := newFakeSegmentManager()
	vm := NewBitmap(2)
	vm.Set(0)
	segMgr.entries[1] = &SegEntry{ValidMap: vm}
	summary := &Summary{Segno: 1, Type: SumNode, Entries: make([]SummaryEntry, 2)}
	nodeMgr := newFakeNodeManager()
	cp := &fakeCheckpoint{shouldCheckpoint: true, blockErr: assert.AnError}

	status := ReclaimNodeSegment(context.Background(), segMgr, nodeMgr, cp, summary, 1, GCBackground)

	assert.Equal(t, StatusError, status)
	assert.True(t, cp.cpLockCalled, "cp_mutex must be taken before BlockOperations runs")
	assert.True(t, cp.cpUnlockCalled, "cp_mutex must be released when BlockOperations fails")
}
