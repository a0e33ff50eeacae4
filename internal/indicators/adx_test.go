package indicators

import "testing"

func trendingOHLC(count int, base, step, spread float64) (high, low, closePrices []float64) {
	high = make([]float64, count)
	low = make([]float64, count)
	closePrices = make([]float64, count)
	for i := 0; i < count; i++ {
		b := base + step*float64(i)
		high[i] = b + spread
		low[i] = b - spread
		closePrices[i] = b
	}
	return
}

func TestADXRange(t *testing.T) {
	high, low, closePrices := trendingOHLC(50, 100.0, 0.5, 2.0)

	values, err := ADX(high, low, closePrices, 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) == 0 {
		t.Fatal("expected non-empty ADX series")
	}
	for _, v := range values {
		if v < 0 || v > 100 {
			t.Errorf("ADX value %.2f out of valid range [0, 100]", v)
		}
	}
}

func TestADXStrongTrendIsHigh(t *testing.T) {
	high, low, closePrices := trendingOHLC(50, 100.0, 2.0, 1.0)

	values, err := ADX(high, low, closePrices, 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if Last(values) < 25 {
		t.Errorf("expected a sustained strong trend to produce ADX >= 25, got %.2f", Last(values))
	}
}

func TestADXMismatchedLengths(t *testing.T) {
	high, low, closePrices := trendingOHLC(50, 100.0, 0.5, 2.0)

	if _, err := ADX(high[:40], low, closePrices, 14); err == nil {
		t.Error("expected error for mismatched array lengths")
	}
}

func TestADXInvalidPeriod(t *testing.T) {
	high, low, closePrices := trendingOHLC(50, 100.0, 0.5, 2.0)

	if _, err := ADX(high, low, closePrices, 0); err == nil {
		t.Error("expected error for zero period")
	}
	if _, err := ADX(high[:20], low[:20], closePrices[:20], 14); err == nil {
		t.Error("expected error for insufficient data")
	}
}

func TestSmoothWilder(t *testing.T) {
	data := []float64{1.0, 2.0, 3.0, 4.0, 5.0, 6.0, 7.0, 8.0, 9.0, 10.0}
	period := 5

	result := smoothWilder(data, period)

	if len(result) != len(data) {
		t.Errorf("expected result length %d, got %d", len(data), len(result))
	}
	for i := 0; i < period-1; i++ {
		if result[i] != 0 {
			t.Errorf("expected result[%d] = 0, got %.2f", i, result[i])
		}
	}

	expectedFirst := 3.0 // (1+2+3+4+5)/5
	if result[period-1] != expectedFirst {
		t.Errorf("expected first smoothed value %.2f, got %.2f", expectedFirst, result[period-1])
	}
	for i := period; i < len(result); i++ {
		if result[i] == 0 {
			t.Errorf("expected non-zero result at index %d", i)
		}
	}
}

func TestSmoothWilderInsufficientData(t *testing.T) {
	data := []float64{1.0, 2.0, 3.0}
	period := 5

	result := smoothWilder(data, period)
	for i, v := range result {
		if v != 0 {
			t.Errorf("expected result[%d] = 0 for insufficient data, got %.2f", i, v)
		}
	}
}
