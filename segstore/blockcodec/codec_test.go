package blockcodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundTrip(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog, repeated, repeated, repeated")

	for _, alg := range []Algorithm{Snappy, LZ4, Zstd} {
		t.Run(alg.String(), func(t *testing.T) {
			codec, err := For(alg)
			assert.NoError(t, err)
			assert.Equal(t, alg, codec.Algorithm())

			encoded, err := codec.Encode(payload)
			assert.NoError(t, err)

			decoded, err := codec.Decode(nil, encoded)
			assert.NoError(t, err)
			assert.Equal(t, payload, decoded)
		})
	}
}

func TestParseAlgorithm(t *testing.T) {
	assert.Equal(t, LZ4, ParseAlgorithm("lz4"))
	assert.Equal(t, Zstd, ParseAlgorithm("zstd"))
	assert.Equal(t, Snappy, ParseAlgorithm("snappy"))
	assert.Equal(t, Snappy, ParseAlgorithm("unknown"))
	assert.Equal(t, Snappy, ParseAlgorithm(""))
}

func TestFor_UnknownAlgorithm(t *testing.T) {
	_, err := For(Algorithm(99))
	assert.Error(t, err)
}
