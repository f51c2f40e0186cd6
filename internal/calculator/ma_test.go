package calculator

import (
	"math"
	"testing"
)

func TestSMASeries_Warmup(t *testing.T) {
	got, err := SMASeries([]float64{2, 4, 6, 8}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !math.IsNaN(got[0]) {
		t.Errorf("expected NaN warmup, got %v", got[0])
	}
	want := []float64{3, 5, 7}
	for i, w := range want {
		if got[i+1] != w {
			t.Errorf("index %d: expected %v, got %v", i+1, w, got[i+1])
		}
	}
}

func TestEMASeries(t *testing.T) {
	got, err := EMASeries([]float64{10, 20, 20}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// k = 0.5
	want := []float64{10, 15, 17.5}
	for i, w := range want {
		if math.Abs(got[i]-w) > 1e-9 {
			t.Errorf("index %d: expected %v, got %v", i, w, got[i])
		}
	}
	if out, _ := EMASeries(nil, 3); len(out) != 0 {
		t.Errorf("expected empty series, got %v", out)
	}
	if _, err := EMASeries([]float64{1}, 0); err == nil {
		t.Error("expected error for zero period")
	}
}
