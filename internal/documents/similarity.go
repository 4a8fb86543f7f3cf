package documents

import "math"

// cosineSimilarity scores two vectors in [-1, 1]. Mismatched lengths,
// empty vectors, and zero magnitudes all score 0 rather than erroring,
// so unembeddable candidates simply rank last.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
