package segstore

import "github.com/segflash/fsgc/gc"

// Collaborators builds a gc.Collaborators bundle backed entirely by s
// and its Checkpointer, for handing straight to gc.BuildGCManager or
// gc.RunReclamationLoop.
func Collaborators(s *Store, cp *Checkpointer) *gc.Collaborators {
	return &gc.Collaborators{
		SegMgr:     s,
		DirtyMgr:   s,
		NodeMgr:    s,
		PageCache:  s,
		InodeSrc:   s,
		Checkpoint: cp,
		FreeSpace:  s,
		Summary:    s,
		Mounted:    s,
		GCLock:     s,
	}
}
