package segstore

import (
	"errors"
	"io"
	"os"
	"sync"

	"github.com/segflash/fsgc/segstore/blockcodec"
)

// DefaultMaxBlockSize caps how many serialized record bytes accumulate
// in memory before a block is flushed to disk.
const DefaultMaxBlockSize = 256 * 1024

var ErrLogClosed = errors.New("segstore: log writer closed")

// writeBuffer batches Records until they reach maxSize, then hands the
// caller one block's worth of serialized+compressed bytes at a time.
type writeBuffer struct {
	maxSize int
	pending []Record
	size    int
	codec   blockcodec.Codec
}

func newWriteBuffer(maxSize int, codec blockcodec.Codec) *writeBuffer {
	if maxSize <= 0 {
		maxSize = DefaultMaxBlockSize
	}
	return &writeBuffer{maxSize: maxSize, codec: codec}
}

// add appends rec to the buffer, reporting whether the buffer has
// grown past its flush threshold.
func (b *writeBuffer) add(rec Record) bool {
	b.pending = append(b.pending, rec)
	b.size += len(rec.Payload) + 29
	return b.size >= b.maxSize
}

func (b *writeBuffer) count() int { return len(b.pending) }

// flush serializes and compresses everything buffered, returning nil,
// nil, nil if there was nothing to flush.
func (b *writeBuffer) flush() (*blockHeader, []byte, error) {
	if len(b.pending) == 0 {
		return nil, nil, nil
	}

	var raw []byte
	for _, rec := range b.pending {
		raw = append(raw, rec.serialize()...)
	}

	compressed, err := b.codec.Encode(raw)
	if err != nil {
		return nil, nil, err
	}

	h := &blockHeader{
		CompressedSize:   uint32(len(compressed)),
		UncompressedSize: uint32(len(raw)),
		RecordCount:      uint32(len(b.pending)),
		Algorithm:        b.codec.Algorithm(),
		Checksum:         checksum(compressed),
	}

	b.pending = b.pending[:0]
	b.size = 0
	return h, compressed, nil
}

// LogWriter appends Records to an on-disk segment log file, batching
// them into codec-compressed blocks (one compaction pass, triggered
// from outside this package, is what actually removes superseded
// records — the writer itself only ever appends).
type LogWriter struct {
	mu         sync.Mutex
	file       *os.File
	path       string
	header     *fileHeader
	buffer     *writeBuffer
	blockCount uint64
	recordCnt  uint64
	closed     bool
}

// NewLogWriter opens path for append, creating it with a fresh header
// if it does not exist yet.
func NewLogWriter(path string, alg blockcodec.Algorithm, maxBlockSize int) (*LogWriter, error) {
	if path == "" {
		return nil, errors.New("segstore: empty log path")
	}
	codec, err := blockcodec.For(alg)
	if err != nil {
		return nil, err
	}

	w := &LogWriter{path: path, buffer: newWriteBuffer(maxBlockSize, codec)}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := w.createNew(); err != nil {
			return nil, err
		}
	} else if err := w.openExisting(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *LogWriter) createNew() error {
	f, err := os.Create(w.path)
	if err != nil {
		return err
	}
	w.file = f
	w.header = newFileHeader()
	_, err = f.Write(w.header.serialize())
	return err
}

func (w *LogWriter) openExisting() error {
	f, err := os.OpenFile(w.path, os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	buf := make([]byte, FileHeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		f.Close()
		return err
	}
	h, err := deserializeFileHeader(buf)
	if err != nil {
		f.Close()
		return err
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return err
	}
	w.file = f
	w.header = h
	w.blockCount = h.BlockCount
	w.recordCnt = h.RecordCnt
	return nil
}

// Append buffers rec, flushing a block to disk if the buffer just
// crossed its size threshold.
func (w *LogWriter) Append(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrLogClosed
	}
	if w.buffer.add(rec) {
		return w.flushLocked()
	}
	return nil
}

func (w *LogWriter) flushLocked() error {
	h, compressed, err := w.buffer.flush()
	if err != nil {
		return err
	}
	if h == nil {
		return nil
	}
	if _, err := w.file.Write(h.serialize()); err != nil {
		return err
	}
	if _, err := w.file.Write(compressed); err != nil {
		return err
	}
	w.blockCount++
	w.recordCnt += uint64(h.RecordCount)
	return nil
}

// Sync flushes any buffered block, rewrites the header with the new
// counts, and fsyncs the file.
func (w *LogWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrLogClosed
	}
	if err := w.flushLocked(); err != nil {
		return err
	}
	w.header.BlockCount = w.blockCount
	w.header.RecordCnt = w.recordCnt
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.file.Write(w.header.serialize()); err != nil {
		return err
	}
	if _, err := w.file.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close flushes, rewrites the header, and closes the file.
func (w *LogWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	if err := w.flushLocked(); err == nil {
		w.header.BlockCount = w.blockCount
		w.header.RecordCnt = w.recordCnt
		if _, err := w.file.Seek(0, io.SeekStart); err == nil {
			_, _ = w.file.Write(w.header.serialize())
		}
	}
	w.closed = true
	return w.file.Close()
}
