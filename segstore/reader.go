package segstore

import (
	"errors"
	"io"
	"os"

	"github.com/segflash/fsgc/segstore/blockcodec"
)

// LogReader reads records back out of a segment log file written by a
// LogWriter, decoding whichever codec each block was compressed with.
type LogReader struct {
	file   *os.File
	path   string
	header *fileHeader
}

// NewLogReader opens path for reading.
func NewLogReader(path string) (*LogReader, error) {
	if path == "" {
		return nil, errors.New("segstore: empty log path")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, FileHeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		f.Close()
		return nil, err
	}
	h, err := deserializeFileHeader(buf)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &LogReader{file: f, path: path, header: h}, nil
}

// ReadAll replays every record in file order, calling fn for each.
// Stopping early (fn returns false) is not an error.
func (r *LogReader) ReadAll(fn func(Record) bool) error {
	if _, err := r.file.Seek(FileHeaderSize, io.SeekStart); err != nil {
		return err
	}
	for {
		block, err := r.readNextBlock()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		for _, rec := range block {
			if !fn(rec) {
				return nil
			}
		}
	}
}

func (r *LogReader) readNextBlock() ([]Record, error) {
	headerBuf := make([]byte, BlockHeaderSize)
	n, err := io.ReadFull(r.file, headerBuf)
	if err != nil {
		if n == 0 {
			return nil, io.EOF
		}
		return nil, err
	}
	bh, err := deserializeBlockHeader(headerBuf)
	if err != nil {
		return nil, err
	}

	compressed := make([]byte, bh.CompressedSize)
	if _, err := io.ReadFull(r.file, compressed); err != nil {
		return nil, err
	}
	if checksum(compressed) != bh.Checksum {
		return nil, errors.New("segstore: block checksum mismatch")
	}

	codec, err := blockcodec.For(bh.Algorithm)
	if err != nil {
		return nil, err
	}
	raw, err := codec.Decode(make([]byte, 0, bh.UncompressedSize), compressed)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, bh.RecordCount)
	off := 0
	for i := uint32(0); i < bh.RecordCount; i++ {
		rec, n, err := deserializeRecord(raw[off:])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
		off += n
	}
	return records, nil
}

// Close closes the underlying file.
func (r *LogReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}
