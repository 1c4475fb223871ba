package embedding

import "math"

// NormFloor is the smallest pooled-vector norm that still gets normalized.
// At or below this, division is numerically unstable (degenerate inputs such
// as all-padding rows) and the vector is returned as pooled.
const NormFloor = 1e-8

// Pool reduces per-token vectors to a single embedding by masked mean
// pooling: positions where the mask is zero (padding) are excluded from the
// average. A nil mask treats every position as a real token.
//
// If normalize is set, the pooled vector is scaled to unit length subject to
// the NormFloor guard.
func Pool(vectors [][]float32, mask []float32, normalize bool) Embedding {
	if len(vectors) == 0 {
		return Embedding{}
	}

	pooled := make([]float32, len(vectors[0]))
	var count float32
	for t, vec := range vectors {
		w := float32(1)
		if mask != nil {
			w = mask[t]
		}
		if w == 0 {
			continue
		}
		count += w
		for i, v := range vec {
			pooled[i] += v * w
		}
	}

	if count > 0 {
		for i := range pooled {
			pooled[i] /= count
		}
	}

	if normalize {
		Normalize(pooled)
	}

	return Embedding{Vector: pooled}
}

// Norm computes the L2 norm (magnitude) of a vector.
func Norm(v []float32) float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	return float32(math.Sqrt(float64(sum)))
}

// Normalize scales v to unit length in place. Vectors with a norm at or
// below NormFloor are left unchanged.
func Normalize(v []float32) {
	norm := Norm(v)
	if norm <= NormFloor {
		return
	}
	for i := range v {
		v[i] /= norm
	}
}
