package segstore

import (
	"context"
	"fmt"

	"github.com/segflash/fsgc/gc"
)

func dataKey(ino uint32, index int64) uint64 {
	return uint64(ino)<<32 | uint64(uint32(index))
}

type dataPageImpl struct {
	ino       uint32
	index     int64
	blockAddr int64
	dirty     bool
	cold      bool
	writeback bool
	remapped  bool
}

func (p *dataPageImpl) IsWriteback() bool { return p.writeback }
func (p *dataPageImpl) IsDirty() bool     { return p.dirty }
func (p *dataPageImpl) IsRemapped() bool  { return p.remapped }
func (p *dataPageImpl) BlockAddr() int64  { return p.blockAddr }

// PutDataPage installs (or replaces) the data page at (ino, index).
func (s *Store) PutDataPage(ino uint32, index, blockAddr int64) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	s.dataPages[dataKey(ino, index)] = &dataPageImpl{ino: ino, index: index, blockAddr: blockAddr}
}

// --- gc.PageCache ---

func (s *Store) FindDataPage(_ context.Context, ino uint32, index int64) (gc.DataPage, error) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	p, ok := s.dataPages[dataKey(ino, index)]
	if !ok {
		return nil, fmt.Errorf("segstore: no data page for ino %d index %d", ino, index)
	}
	return p, nil
}

func (s *Store) GetLockDataPage(ctx context.Context, ino uint32, index int64) (gc.DataPage, error) {
	return s.FindDataPage(ctx, ino, index)
}

func (s *Store) ReleaseDataPage(_ gc.DataPage) {}

func (s *Store) SetPageDirty(page gc.DataPage) {
	if p, ok := page.(*dataPageImpl); ok {
		s.dataMu.Lock()
		p.dirty = true
		s.dataMu.Unlock()
	}
}

func (s *Store) SetPageCold(page gc.DataPage, cold bool) {
	if p, ok := page.(*dataPageImpl); ok {
		s.dataMu.Lock()
		p.cold = cold
		s.dataMu.Unlock()
	}
}

// DoWriteDataPage appends the page's current content to the durable log
// as a RecordData and clears its dirty flag.
func (s *Store) DoWriteDataPage(_ context.Context, page gc.DataPage) error {
	p, ok := page.(*dataPageImpl)
	if !ok {
		return fmt.Errorf("segstore: foreign data page type %T", page)
	}
	rec := Record{Kind: RecordData, Ino: p.ino, Index: p.index, Ofs: uint32(p.blockAddr)}
	if err := s.writer.Append(rec); err != nil {
		return err
	}
	s.dataMu.Lock()
	p.dirty = false
	s.dataMu.Unlock()
	return s.writer.Sync()
}

func (s *Store) SubmitBio(_ context.Context, _ bool) {}

func (s *Store) DataWriteLock()   { s.writeLock.Lock() }
func (s *Store) DataWriteUnlock() { s.writeLock.Unlock() }

func (s *Store) DecDirtyDents(ino uint32) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	if s.dirtyDents[ino] > 0 {
		s.dirtyDents[ino]--
	}
}

// SetDirtyDents seeds the dirty-dentry count for a directory inode.
func (s *Store) SetDirtyDents(ino uint32, n int) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	s.dirtyDents[ino] = n
}

// --- gc.Inode / gc.InodeSource ---

type inodeImpl struct {
	ino      uint32
	isDir    bool
	nodeGeom gc.Geometry
	released bool
}

func (i *inodeImpl) Ino() uint32 { return i.ino }
func (i *inodeImpl) Release()    { i.released = true }
func (i *inodeImpl) IsDir() bool { return i.isDir }

func (i *inodeImpl) StartBidx(nodeOfs uint32) int64 {
	return i.nodeGeom.StartBidxOfNode(nodeOfs)
}

// DefaultNodeGeometry is the node-tree shape new inodes use unless a
// caller overrides it: 1018 nid slots per indirect block, 1018 data
// addresses per regular node block, 923 in the inode block itself
// (the same proportions flash filesystems of this block size use).
func DefaultNodeGeometry() gc.Geometry {
	return gc.Geometry{NIDSPerBlock: 1018, ADDRSPerBlock: 1018, ADDRSPerInode: 923}
}

// PutInode registers an inode available to IgetNowait.
func (s *Store) PutInode(ino uint32, isDir bool) {
	s.inodeMu.Lock()
	defer s.inodeMu.Unlock()
	s.inodes[ino] = &inodeImpl{ino: ino, isDir: isDir, nodeGeom: DefaultNodeGeometry()}
}

func (s *Store) IgetNowait(_ context.Context, ino uint32) (gc.Inode, error) {
	s.inodeMu.Lock()
	defer s.inodeMu.Unlock()
	in, ok := s.inodes[ino]
	if !ok {
		return nil, fmt.Errorf("segstore: unknown inode %d", ino)
	}
	return &inodeImpl{ino: in.ino, isDir: in.isDir, nodeGeom: in.nodeGeom}, nil
}
