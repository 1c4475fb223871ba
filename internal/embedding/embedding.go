// Package embedding turns encoder token outputs into fixed-length query vectors.
package embedding

// Embedding represents a vector embedding of a query.
type Embedding struct {
	Vector []float32 // The embedding vector (e.g., 768 dimensions for SciBERT)
}

// Dimensions returns the dimensionality of the embedding.
func (e Embedding) Dimensions() int {
	return len(e.Vector)
}

// Norm returns the Euclidean length of the embedding.
func (e Embedding) Norm() float32 {
	return Norm(e.Vector)
}
