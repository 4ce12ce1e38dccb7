package vector

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encode converts a float64 vector into a little-endian byte blob: eight
// bytes per element, concatenated in vector order, no header or length
// prefix. The element count is recoverable as len(blob)/8 and is constant
// per store.
func Encode(v []float64) []byte {
	blob := make([]byte, len(v)*8)
	for i, f := range v {
		binary.LittleEndian.PutUint64(blob[i*8:], math.Float64bits(f))
	}
	return blob
}

// Decode converts a little-endian byte blob back into a float64 vector.
// A blob whose length is not a multiple of 8 is corrupt.
func Decode(blob []byte) ([]float64, error) {
	if len(blob)%8 != 0 {
		return nil, fmt.Errorf("vector: invalid blob length %d (not a multiple of 8)", len(blob))
	}

	v := make([]float64, len(blob)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return v, nil
}
