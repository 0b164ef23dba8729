package segstore

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/cespare/xxhash/v2"

	"github.com/segflash/fsgc/segstore/blockcodec"
)

// FormatVersion is compared against the version recorded in a log
// file's header with semver range matching, so a reader built against
// a later minor version can still open an older file.
var FormatVersion = semver.MustParse("1.0.0")

// FileHeaderSize is the fixed on-disk size of fileHeader.
const FileHeaderSize = 32

var ErrIncompatibleVersion = errors.New("segstore: incompatible log file version")

// fileHeader opens every segment log file on disk.
type fileHeader struct {
	Magic      uint32
	VersionMaj uint16
	VersionMin uint16
	VersionPat uint16
	_          uint16 // padding
	BlockCount uint64
	RecordCnt  uint64
	Reserved   uint64
}

const fileMagic = 0x47435347 // "GCSG"

func newFileHeader() *fileHeader {
	return &fileHeader{
		Magic:      fileMagic,
		VersionMaj: uint16(FormatVersion.Major()),
		VersionMin: uint16(FormatVersion.Minor()),
		VersionPat: uint16(FormatVersion.Patch()),
	}
}

func (h *fileHeader) serialize() []byte {
	buf := make([]byte, FileHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.VersionMaj)
	binary.LittleEndian.PutUint16(buf[6:8], h.VersionMin)
	binary.LittleEndian.PutUint16(buf[8:10], h.VersionPat)
	binary.LittleEndian.PutUint64(buf[16:24], h.BlockCount)
	binary.LittleEndian.PutUint64(buf[24:32], h.RecordCnt)
	return buf
}

func deserializeFileHeader(buf []byte) (*fileHeader, error) {
	if len(buf) < FileHeaderSize {
		return nil, fmt.Errorf("segstore: short header (%d bytes)", len(buf))
	}
	h := &fileHeader{
		Magic:      binary.LittleEndian.Uint32(buf[0:4]),
		VersionMaj: binary.LittleEndian.Uint16(buf[4:6]),
		VersionMin: binary.LittleEndian.Uint16(buf[6:8]),
		VersionPat: binary.LittleEndian.Uint16(buf[8:10]),
		BlockCount: binary.LittleEndian.Uint64(buf[16:24]),
		RecordCnt:  binary.LittleEndian.Uint64(buf[24:32]),
	}
	if h.Magic != fileMagic {
		return nil, fmt.Errorf("segstore: bad magic %x", h.Magic)
	}
	fileVersion, err := semver.NewVersion(fmt.Sprintf("%d.%d.%d", h.VersionMaj, h.VersionMin, h.VersionPat))
	if err != nil {
		return nil, err
	}
	constraint, err := semver.NewConstraint(fmt.Sprintf("^%d", FormatVersion.Major()))
	if err != nil {
		return nil, err
	}
	if !constraint.Check(fileVersion) {
		return nil, ErrIncompatibleVersion
	}
	return h, nil
}

// BlockHeaderSize is the fixed on-disk size of a blockHeader.
const BlockHeaderSize = 24

// blockHeader precedes one codec-compressed block of records.
type blockHeader struct {
	CompressedSize   uint32
	UncompressedSize uint32
	RecordCount      uint32
	Algorithm        blockcodec.Algorithm
	_                [3]byte // padding
	Checksum         uint64
}

func (b *blockHeader) serialize() []byte {
	buf := make([]byte, BlockHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], b.CompressedSize)
	binary.LittleEndian.PutUint32(buf[4:8], b.UncompressedSize)
	binary.LittleEndian.PutUint32(buf[8:12], b.RecordCount)
	buf[12] = byte(b.Algorithm)
	binary.LittleEndian.PutUint64(buf[16:24], b.Checksum)
	return buf
}

func deserializeBlockHeader(buf []byte) (*blockHeader, error) {
	if len(buf) < BlockHeaderSize {
		return nil, fmt.Errorf("segstore: short block header (%d bytes)", len(buf))
	}
	return &blockHeader{
		CompressedSize:   binary.LittleEndian.Uint32(buf[0:4]),
		UncompressedSize: binary.LittleEndian.Uint32(buf[4:8]),
		RecordCount:      binary.LittleEndian.Uint32(buf[8:12]),
		Algorithm:        blockcodec.Algorithm(buf[12]),
		Checksum:         binary.LittleEndian.Uint64(buf[16:24]),
	}, nil
}

func checksum(data []byte) uint64 { return xxhash.Sum64(data) }

// RecordKind distinguishes a node-page record from a data-block record
// within the same log; both share one on-disk representation.
type RecordKind uint8

const (
	RecordNode RecordKind = iota
	RecordData
)

// Record is one relocated or newly written block, keyed by the segment
// it currently lives in plus its offset inside that segment.
type Record struct {
	Kind    RecordKind
	Segno   uint32
	Ofs     uint32
	Ino     uint32 // owning inode, 0 for node records addressed by nid
	Nid     uint32
	Index   int64 // logical block index within the inode, data records only
	Payload []byte
}

func (r Record) serialize() []byte {
	buf := make([]byte, 1+4+4+4+4+8+4+len(r.Payload))
	off := 0
	buf[off] = byte(r.Kind)
	off++
	binary.LittleEndian.PutUint32(buf[off:], r.Segno)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], r.Ofs)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], r.Ino)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], r.Nid)
	off += 4
	binary.LittleEndian.PutUint64(buf[off:], uint64(r.Index))
	off += 8
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(r.Payload)))
	off += 4
	copy(buf[off:], r.Payload)
	return buf
}

func deserializeRecord(buf []byte) (Record, int, error) {
	const fixed = 1 + 4 + 4 + 4 + 4 + 8 + 4
	if len(buf) < fixed {
		return Record{}, 0, errors.New("segstore: truncated record")
	}
	off := 0
	kind := RecordKind(buf[off])
	off++
	segno := binary.LittleEndian.Uint32(buf[off:])
	off += 4
	ofs := binary.LittleEndian.Uint32(buf[off:])
	off += 4
	ino := binary.LittleEndian.Uint32(buf[off:])
	off += 4
	nid := binary.LittleEndian.Uint32(buf[off:])
	off += 4
	index := int64(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	plen := int(binary.LittleEndian.Uint32(buf[off:]))
	off += 4
	if len(buf) < off+plen {
		return Record{}, 0, errors.New("segstore: truncated record payload")
	}
	payload := make([]byte, plen)
	copy(payload, buf[off:off+plen])
	off += plen
	return Record{Kind: kind, Segno: segno, Ofs: ofs, Ino: ino, Nid: nid, Index: index, Payload: payload}, off, nil
}
