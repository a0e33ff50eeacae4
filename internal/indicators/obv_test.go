package indicators

import "testing"

func TestOBVBasic(t *testing.T) {
	closes := []float64{10, 11, 11, 9, 12}
	volumes := []float64{100, 200, 150, 300, 400}

	values, err := OBV(closes, volumes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{0, 200, 200, -100, 300}
	if len(values) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(values))
	}
	for i, w := range want {
		if values[i] != w {
			t.Errorf("obv[%d] = %.2f, want %.2f", i, values[i], w)
		}
	}
}

func TestOBVMismatchedLengths(t *testing.T) {
	if _, err := OBV([]float64{1, 2, 3}, []float64{1, 2}); err == nil {
		t.Error("expected error for mismatched array lengths")
	}
}
