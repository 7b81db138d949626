package store

import (
	"math"
	"testing"
)

func TestVectorRoundTrip(t *testing.T) {
	vec := []float64{0.1, -0.5, 3.14159, 0, math.MaxFloat64}
	got := decodeVector(encodeVector(vec))

	if len(got) != len(vec) {
		t.Fatalf("length = %d, want %d", len(got), len(vec))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("vec[%d] = %f, want %f", i, got[i], vec[i])
		}
	}
}

func TestVectorEmpty(t *testing.T) {
	if got := decodeVector(encodeVector(nil)); len(got) != 0 {
		t.Errorf("round trip of nil = %v, want empty", got)
	}
}
