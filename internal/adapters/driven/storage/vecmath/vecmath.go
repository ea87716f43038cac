// Package vecmath holds the vector helpers shared by the brute-force stores.
package vecmath

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Cosine returns the cosine similarity of a and b.
// Vectors of different length or with zero norm score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Encode packs a vector as little-endian float32 bytes.
func Encode(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Decode unpacks bytes written by Encode. Trailing partial values are ignored.
func Decode(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// TopK sorts results by descending score, ties by chunk id, and keeps k.
func TopK(results []domain.QueryResult, k int) []domain.QueryResult {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})
	if k >= 0 && len(results) > k {
		results = results[:k]
	}
	return results
}
