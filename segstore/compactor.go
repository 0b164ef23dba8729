package segstore

import (
	"fmt"
	"os"
	"sync"

	"github.com/segflash/fsgc/segstore/blockcodec"
)

// ErrCompactionRunning is returned when Compact is called while a
// previous compaction on the same log is still in flight.
var ErrCompactionRunning = fmt.Errorf("segstore: compaction already running")

// LiveFilter reports whether a record is still worth keeping. Compact
// calls it once per record with whatever predicate its caller supplies;
// Store itself never runs a compaction.
type LiveFilter func(Record) bool

// Compactor rewrites a log file on each Compact call, keeping only the
// records a LiveFilter still considers live, then atomically replaces
// the old file — the segment-store equivalent of reclaiming a section
// once its remaining valid blocks have all been relocated elsewhere.
type Compactor struct {
	mu           sync.Mutex
	path         string
	algorithm    blockcodec.Algorithm
	maxBlockSize int
	running      bool
}

// NewCompactor builds a Compactor for the log at path, writing
// recompacted blocks with algorithm.
func NewCompactor(path string, algorithm blockcodec.Algorithm, maxBlockSize int) *Compactor {
	if maxBlockSize <= 0 {
		maxBlockSize = DefaultMaxBlockSize
	}
	return &Compactor{path: path, algorithm: algorithm, maxBlockSize: maxBlockSize}
}

// CompactionResult summarizes one completed pass.
type CompactionResult struct {
	OldFileSize    int64
	NewFileSize    int64
	TotalRecords   int
	LiveRecords    int
	RemovedRecords int
}

// Compact rewrites the log keeping only records for which keep
// returns true.
func (c *Compactor) Compact(keep LiveFilter) (*CompactionResult, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil, ErrCompactionRunning
	}
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	oldInfo, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &CompactionResult{}, nil
		}
		return nil, err
	}

	reader, err := NewLogReader(c.path)
	if err != nil {
		return nil, err
	}

	tmpPath := c.path + ".compact.tmp"
	writer, err := NewLogWriter(tmpPath, c.algorithm, c.maxBlockSize)
	if err != nil {
		return nil, err
	}

	result := &CompactionResult{OldFileSize: oldInfo.Size()}
	err = reader.ReadAll(func(rec Record) bool {
		result.TotalRecords++
		if keep(rec) {
			result.LiveRecords++
			if werr := writer.Append(rec); werr != nil {
				err = werr
				return false
			}
		}
		return true
	})
	if err == nil {
		err = writer.Sync()
	}
	closeErr := writer.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return nil, err
	}

	if err := reader.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, err
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return nil, err
	}

	result.RemovedRecords = result.TotalRecords - result.LiveRecords
	if newInfo, err := os.Stat(c.path); err == nil {
		result.NewFileSize = newInfo.Size()
	}
	return result, nil
}
