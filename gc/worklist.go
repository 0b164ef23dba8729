package gc

// InodeRef is a live inode handle acquired during a data-segment pass.
// Release must be called exactly once, regardless of how the pass ends
// (spec.md sec. 3, sec. 5 "Resource discipline").
type InodeRef interface {
	Ino() uint32
	Release()
}

// InodeWorklist is the ordered, deduplicated collection of inode
// references gathered while reclaiming a data segment. Its lifetime is
// bounded by a single call into the reclamation loop and it must be
// fully drained on every exit path (spec.md sec. 3, sec. 8 property 3 and 8).
//
// An intrusive list is the source's choice; a contiguous slice plus a
// lookup index is an equally valid container here (spec.md sec. 9) since
// what matters is the lifetime discipline, not the data structure.
type InodeWorklist struct {
	order []InodeRef
	index map[uint32]int
}

// NewInodeWorklist returns an empty worklist.
func NewInodeWorklist() *InodeWorklist {
	return &InodeWorklist{index: make(map[uint32]int)}
}

// Add inserts ref, deduplicated by inode identity. If ref.Ino() is
// already present, ref is released immediately and the existing entry
// is returned (spec.md sec. 8 property 8).
func (w *InodeWorklist) Add(ref InodeRef) InodeRef {
	if i, ok := w.index[ref.Ino()]; ok {
		ref.Release()
		return w.order[i]
	}
	w.index[ref.Ino()] = len(w.order)
	w.order = append(w.order, ref)
	return ref
}

// Find returns the worklist's reference for ino, if present.
func (w *InodeWorklist) Find(ino uint32) (InodeRef, bool) {
	i, ok := w.index[ino]
	if !ok {
		return nil, false
	}
	return w.order[i], true
}

// Len reports how many distinct inodes are currently held.
func (w *InodeWorklist) Len() int { return len(w.order) }

// Drain releases every held reference exactly once and empties the
// worklist. Safe to call on an already-empty worklist.
func (w *InodeWorklist) Drain() {
	for _, ref := range w.order {
		ref.Release()
	}
	w.order = nil
	w.index = make(map[uint32]int)
}
