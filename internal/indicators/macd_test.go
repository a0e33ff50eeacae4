package indicators

import "testing"

func TestMACDBasic(t *testing.T) {
	prices := risingPrices(60, 100.0, 0.8)

	result, err := MACD(prices, 12, 26, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.MACD) == 0 || len(result.Signal) == 0 || len(result.Histogram) == 0 {
		t.Fatal("expected non-empty MACD/Signal/Histogram series")
	}
	if len(result.MACD) != len(result.Signal) || len(result.MACD) != len(result.Histogram) {
		t.Errorf("MACD/Signal/Histogram series must be aligned: got %d/%d/%d",
			len(result.MACD), len(result.Signal), len(result.Histogram))
	}
	for i := range result.Histogram {
		want := result.MACD[i] - result.Signal[i]
		if abs(result.Histogram[i]-want) > 1e-9 {
			t.Errorf("histogram[%d] = %.6f, want MACD-Signal = %.6f", i, result.Histogram[i], want)
		}
	}
}

func TestMACDInvalidPeriods(t *testing.T) {
	prices := risingPrices(60, 100.0, 0.8)

	if _, err := MACD(prices, 26, 12, 9); err == nil {
		t.Error("expected error when fast period >= slow period")
	}
	if _, err := MACD(prices, 0, 26, 9); err == nil {
		t.Error("expected error for zero fast period")
	}
	if _, err := MACD(prices[:10], 12, 26, 9); err == nil {
		t.Error("expected error for insufficient data")
	}
}
