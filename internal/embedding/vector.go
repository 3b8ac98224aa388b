// Package embedding holds the face embedding vector type, its math helpers and
// the storage codec used by every Record Store backend.
package embedding

import "math"

// Vector is a face embedding produced by the Embedding Provider.
type Vector []float32

// Norm returns the Euclidean length of the vector.
func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// IsZero reports whether the vector has zero magnitude (or no elements).
func (v Vector) IsZero() bool {
	return v.Norm() == 0
}

// Unit returns v scaled to unit length as float64 values.
// Returns nil for zero-magnitude vectors.
func (v Vector) Unit() []float64 {
	n := v.Norm()
	if n == 0 {
		return nil
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x) / n
	}
	return out
}

// Dot computes the dot product of two equal-length unit vectors.
func Dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// CosineSimilarity computes the cosine similarity between two embedding vectors.
// Returns a value between -1 and 1, where 1 means identical.
// Mismatched lengths and zero vectors yield 0.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	ua, ub := a.Unit(), b.Unit()
	if ua == nil || ub == nil {
		return 0
	}
	return Clamp(Dot(ua, ub))
}

// CosineDistance computes the cosine distance between two vectors.
// Returns a value between 0 (identical) and 2 (opposite).
// Cosine distance = 1 - cosine similarity.
func CosineDistance(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0 // Maximum distance for invalid input
	}
	ua, ub := a.Unit(), b.Unit()
	if ua == nil || ub == nil {
		return 2.0 // Maximum distance for zero vectors
	}
	return 1 - Clamp(Dot(ua, ub))
}

// Clamp keeps a similarity in [-1, 1] to absorb floating point error.
func Clamp(similarity float64) float64 {
	if similarity > 1 {
		return 1
	}
	if similarity < -1 {
		return -1
	}
	return similarity
}
