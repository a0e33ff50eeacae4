package indicators

import "testing"

func TestATRBasic(t *testing.T) {
	high, low, closePrices := trendingOHLC(30, 100.0, 0.5, 2.0)

	values, err := ATR(high, low, closePrices, 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) == 0 {
		t.Fatal("expected non-empty ATR series")
	}
	for _, v := range values {
		if v < 0 {
			t.Errorf("ATR value %.4f must not be negative", v)
		}
	}
	if Last(values) <= 0 {
		t.Errorf("expected a positive ATR for a consistently 4-wide range, got %.4f", Last(values))
	}
}

func TestATRMismatchedLengths(t *testing.T) {
	high, low, closePrices := trendingOHLC(30, 100.0, 0.5, 2.0)

	if _, err := ATR(high[:20], low, closePrices, 14); err == nil {
		t.Error("expected error for mismatched array lengths")
	}
}

func TestATRInvalidPeriod(t *testing.T) {
	high, low, closePrices := trendingOHLC(30, 100.0, 0.5, 2.0)

	if _, err := ATR(high, low, closePrices, 0); err == nil {
		t.Error("expected error for zero period")
	}
	if _, err := ATR(high[:5], low[:5], closePrices[:5], 14); err == nil {
		t.Error("expected error for insufficient data")
	}
}
