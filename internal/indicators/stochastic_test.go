package indicators

import "testing"

func TestStochasticRange(t *testing.T) {
	high, low, closePrices := trendingOHLC(30, 100.0, 0.5, 2.0)

	result, err := Stochastic(high, low, closePrices, 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.K) != len(result.D) {
		t.Errorf("%%K and %%D series must be aligned: %d vs %d", len(result.K), len(result.D))
	}
	for i, k := range result.K {
		if k < 0 || k > 100 {
			t.Errorf("%%K[%d] = %.2f out of range [0, 100]", i, k)
		}
	}
}

func TestStochasticFlatRangeIsNeutral(t *testing.T) {
	n := 20
	high := make([]float64, n)
	low := make([]float64, n)
	closePrices := make([]float64, n)
	for i := range high {
		high[i] = 100
		low[i] = 100
		closePrices[i] = 100
	}

	result, err := Stochastic(high, low, closePrices, 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if Last(result.K) != 50 {
		t.Errorf("expected neutral %%K=50 when high==low, got %.2f", Last(result.K))
	}
}

func TestStochasticMismatchedLengths(t *testing.T) {
	high, low, closePrices := trendingOHLC(30, 100.0, 0.5, 2.0)

	if _, err := Stochastic(high[:20], low, closePrices, 14); err == nil {
		t.Error("expected error for mismatched array lengths")
	}
}
