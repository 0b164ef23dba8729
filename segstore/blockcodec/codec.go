// Package blockcodec abstracts the single compression algorithm used to
// compress a log block, so the segment store can switch between the
// codecs the encompassing module pulls in without touching its
// on-disk format beyond a one-byte algorithm tag.
package blockcodec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
)

// Algorithm identifies which codec compressed a block; it is stored
// verbatim in the block header so a reader never has to guess.
type Algorithm uint8

const (
	Snappy Algorithm = iota
	LZ4
	Zstd
)

func (a Algorithm) String() string {
	switch a {
	case Snappy:
		return "snappy"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(a))
	}
}

// ParseAlgorithm maps a settings-style name to its Algorithm tag,
// defaulting to Snappy for an unrecognized or empty name.
func ParseAlgorithm(name string) Algorithm {
	switch name {
	case "lz4":
		return LZ4
	case "zstd":
		return Zstd
	default:
		return Snappy
	}
}

// Codec compresses and decompresses one block's payload.
type Codec interface {
	Algorithm() Algorithm
	Encode(src []byte) ([]byte, error)
	Decode(dst, src []byte) ([]byte, error)
}

// For reconstructs the Codec for alg, independent of which one a
// particular writer is configured to produce new blocks with — a
// reader must be able to decode every algorithm ever written to the
// log, not just the current default.
func For(alg Algorithm) (Codec, error) {
	switch alg {
	case Snappy:
		return snappyCodec{}, nil
	case LZ4:
		return lz4Codec{}, nil
	case Zstd:
		return zstdCodec{}, nil
	default:
		return nil, fmt.Errorf("blockcodec: unknown algorithm %d", alg)
	}
}

type snappyCodec struct{}

func (snappyCodec) Algorithm() Algorithm                  { return Snappy }
func (snappyCodec) Encode(src []byte) ([]byte, error)     { return snappy.Encode(nil, src), nil }
func (snappyCodec) Decode(dst, src []byte) ([]byte, error) { return snappy.Decode(dst, src) }

type lz4Codec struct{}

func (lz4Codec) Algorithm() Algorithm { return LZ4 }

func (lz4Codec) Encode(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (lz4Codec) Decode(_ []byte, src []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(src))
	return io.ReadAll(r)
}

type zstdCodec struct{}

func (zstdCodec) Algorithm() Algorithm { return Zstd }

func (zstdCodec) Encode(src []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(src, nil), nil
}

func (zstdCodec) Decode(_ []byte, src []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(src, nil)
}
