package segstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segflash/fsgc/segstore/blockcodec"
)

func TestCompactor_DropsRecordsFilteredOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segments.log")
	w, err := NewLogWriter(path, blockcodec.Snappy, DefaultMaxBlockSize)
	require.NoError(t, err)

	require.NoError(t, w.Append(Record{Kind: RecordData, Segno: 1, Ino: 10}))
	require.NoError(t, w.Append(Record{Kind: RecordData, Segno: 2, Ino: 11}))
	require.NoError(t, w.Close())

	compactor := NewCompactor(path, blockcodec.Snappy, DefaultMaxBlockSize)
	result, err := compactor.Compact(func(r Record) bool { return r.Segno != 1 })
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalRecords)
	assert.Equal(t, 1, result.LiveRecords)
	assert.Equal(t, 1, result.RemovedRecords)

	reader, err := NewLogReader(path)
	require.NoError(t, err)
	defer reader.Close()

	var kept []Record
	require.NoError(t, reader.ReadAll(func(r Record) bool {
		kept = append(kept, r)
		return true
	}))
	require.Len(t, kept, 1)
	assert.Equal(t, uint32(11), kept[0].Ino)
}

func TestCompactor_MissingFileIsNotAnError(t *testing.T) {
	compactor := NewCompactor(filepath.Join(t.TempDir(), "missing.log"), blockcodec.Snappy, DefaultMaxBlockSize)
	result, err := compactor.Compact(func(Record) bool { return true })
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalRecords)
}

func TestCompactor_RejectsConcurrentRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segments.log")
	w, err := NewLogWriter(path, blockcodec.Snappy, DefaultMaxBlockSize)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	compactor := NewCompactor(path, blockcodec.Snappy, DefaultMaxBlockSize)
	compactor.running = true
	_, err = compactor.Compact(func(Record) bool { return true })
	assert.ErrorIs(t, err, ErrCompactionRunning)
}
