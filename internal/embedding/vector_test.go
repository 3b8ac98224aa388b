package embedding

import (
	"math"
	"testing"
)

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Vector
		expected float64
	}{
		{"identical", Vector{1, 2, 3}, Vector{1, 2, 3}, 0},
		{"scaled", Vector{1, 2, 3}, Vector{2, 4, 6}, 0},
		{"orthogonal", Vector{1, 0}, Vector{0, 1}, 1},
		{"opposite", Vector{1, 0}, Vector{-1, 0}, 2},
		{"length mismatch", Vector{1, 0}, Vector{1, 0, 0}, 2},
		{"zero vector", Vector{0, 0}, Vector{1, 0}, 2},
		{"empty", Vector{}, Vector{}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineDistance(tt.a, tt.b)
			if math.Abs(got-tt.expected) > 1e-6 {
				t.Errorf("CosineDistance(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestCosineDistanceRange(t *testing.T) {
	vectors := []Vector{
		{1, 2, 3, 4},
		{-1, 0.5, 3, -7},
		{0.001, 0.002, -0.003, 0.004},
		{1e6, -1e6, 1e6, 1e-6},
		{-4, -3, -2, -1},
	}

	for i, a := range vectors {
		if d := CosineDistance(a, a); math.Abs(d) > 1e-6 {
			t.Errorf("distance(v%d, v%d) = %v, want 0", i, i, d)
		}
		for j, b := range vectors {
			d := CosineDistance(a, b)
			if d < 0 || d > 2 {
				t.Errorf("distance(v%d, v%d) = %v, outside [0, 2]", i, j, d)
			}
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity(Vector{1, 0}, Vector{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("expected 1, got %v", got)
	}
	if got := CosineSimilarity(Vector{1, 0}, Vector{0, 0}); got != 0 {
		t.Errorf("expected 0 for zero vector, got %v", got)
	}
	if got := CosineSimilarity(Vector{1}, Vector{1, 1}); got != 0 {
		t.Errorf("expected 0 for length mismatch, got %v", got)
	}
}

func TestUnit(t *testing.T) {
	u := Vector{3, 4}.Unit()
	if len(u) != 2 || math.Abs(u[0]-0.6) > 1e-9 || math.Abs(u[1]-0.8) > 1e-9 {
		t.Errorf("Unit({3,4}) = %v, want [0.6 0.8]", u)
	}
	if (Vector{0, 0}).Unit() != nil {
		t.Error("expected nil unit vector for zero input")
	}
	if !(Vector{0, 0}).IsZero() {
		t.Error("expected zero vector to report IsZero")
	}
}
