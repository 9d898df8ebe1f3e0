package vectorstore

import (
	"encoding/binary"
	"math"
)

// deserializeFloat32 reverses sqlitevec.SerializeFloat32's layout: a
// packed little-endian float32 array with no header, the format
// sqlite-vec stores vec0 columns in.
func deserializeFloat32(blob []byte) []float32 {
	out := make([]float32, len(blob)/4)
	for i := range out {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		out[i] = math.Float32frombits(bits)
	}
	return out
}

// cosineFromDistance converts sqlite-vec's cosine distance (1 -
// cosine_similarity, range [0,2]) into the clamped-to-[0,1] similarity
// score spec.md §4.3 requires ("negatives clamped to 0").
func cosineFromDistance(distance float64) float64 {
	similarity := 1 - distance
	if similarity < 0 {
		return 0
	}
	if similarity > 1 {
		return 1
	}
	return similarity
}

// normalizeBM25 maps a non-negative raw BM25 score into [0,1) so it can
// combine with cosine scores outside RRF (spec.md §4.3): 1 - 1/(1 + s/5).
func normalizeBM25(raw float64) float64 {
	if raw < 0 {
		raw = 0
	}
	return 1 - 1/(1+raw/5)
}
