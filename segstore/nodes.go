package segstore

import (
	"context"
	"fmt"

	"github.com/segflash/fsgc/gc"
)

// nodePageImpl is the in-memory view of one node page: its own offset
// within its inode's node chain plus the datablock addresses it holds.
type nodePageImpl struct {
	ofsOfNode uint32
	addrs     map[uint32]int64 // ofsInNode -> block address
	writeback bool
	dirty     bool
}

func (p *nodePageImpl) OfsOfNode() uint32 { return p.ofsOfNode }

func (p *nodePageImpl) DatablockAddr(ofsInNode uint32) int64 {
	if p.addrs == nil {
		return -1
	}
	if addr, ok := p.addrs[ofsInNode]; ok {
		return addr
	}
	return -1
}

func (p *nodePageImpl) IsWriteback() bool { return p.writeback }
func (p *nodePageImpl) MarkDirty()        { p.dirty = true }

// PutNodePage installs (or replaces) the node page for nid, owned by
// ino, covering logical node offset ofsOfNode.
func (s *Store) PutNodePage(nid, ino uint32, ofsOfNode uint32, version uint8) {
	s.nodeMu.Lock()
	defer s.nodeMu.Unlock()
	s.nodePages[nid] = &nodePageImpl{ofsOfNode: ofsOfNode, addrs: map[uint32]int64{}}
	s.nodeInfo[nid] = gc.DnodeInfo{Ino: ino, OfsInNode: ofsOfNode, Version: version}
}

// SetDatablockAddr records the current physical address of the block
// at ofsInNode within nid's dnode.
func (s *Store) SetDatablockAddr(nid, ofsInNode uint32, addr int64) {
	s.nodeMu.Lock()
	defer s.nodeMu.Unlock()
	if p, ok := s.nodePages[nid]; ok {
		p.addrs[ofsInNode] = addr
	}
}

// --- gc.NodeManager ---

func (s *Store) GetNodePage(_ context.Context, nid uint32) (gc.NodePage, error) {
	s.nodeMu.Lock()
	defer s.nodeMu.Unlock()
	p, ok := s.nodePages[nid]
	if !ok {
		return nil, fmt.Errorf("segstore: no node page for nid %d", nid)
	}
	return p, nil
}

func (s *Store) RaNodePage(_ context.Context, _ uint32) {
	// Readahead has no effect over an in-memory map; nodes are already
	// resident once PutNodePage has been called.
}

func (s *Store) GetNodeInfo(_ context.Context, nid uint32) (gc.DnodeInfo, error) {
	s.nodeMu.Lock()
	defer s.nodeMu.Unlock()
	info, ok := s.nodeInfo[nid]
	if !ok {
		return gc.DnodeInfo{}, fmt.Errorf("segstore: no dnode info for nid %d", nid)
	}
	return info, nil
}

// SyncNodePages appends every dirty node page to the durable log as a
// RecordNode and clears its dirty flag, then syncs the log to disk.
func (s *Store) SyncNodePages(_ context.Context) error {
	s.nodeMu.Lock()
	type flush struct {
		nid uint32
		p   *nodePageImpl
	}
	var toFlush []flush
	for nid, p := range s.nodePages {
		if p.dirty {
			toFlush = append(toFlush, flush{nid, p})
		}
	}
	s.nodeMu.Unlock()

	for _, f := range toFlush {
		info, _ := s.GetNodeInfo(context.Background(), f.nid)
		rec := Record{Kind: RecordNode, Nid: f.nid, Ino: info.Ino, Ofs: f.p.ofsOfNode}
		if err := s.writer.Append(rec); err != nil {
			return err
		}
		s.nodeMu.Lock()
		f.p.dirty = false
		s.nodeMu.Unlock()
	}
	return s.writer.Sync()
}
