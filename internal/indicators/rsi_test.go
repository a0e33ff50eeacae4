package indicators

import "testing"

func risingPrices(n int, start, step float64) []float64 {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = start + step*float64(i)
	}
	return prices
}

func TestRSIRange(t *testing.T) {
	prices := risingPrices(20, 44.0, 0.5)

	values, err := RSI(prices, 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) == 0 {
		t.Fatal("expected at least one RSI value")
	}
	for _, v := range values {
		if v < 0 || v > 100 {
			t.Errorf("RSI value %.2f out of range [0, 100]", v)
		}
	}
}

func TestRSITrends(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   func(last float64) bool
	}{
		{
			name:   "strongly bullish trend pushes RSI high",
			prices: risingPrices(16, 10.0, 2.0),
			want:   func(last float64) bool { return last > 70 },
		},
		{
			name:   "strongly bearish trend pushes RSI low",
			prices: risingPrices(16, 40.0, -2.0),
			want:   func(last float64) bool { return last < 30 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := RSI(tt.prices, 14)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			last := Last(values)
			if !tt.want(last) {
				t.Errorf("unexpected RSI %.2f for %s", last, tt.name)
			}
		})
	}
}

func TestRSIInvalidPeriod(t *testing.T) {
	prices := risingPrices(10, 10, 1)

	if _, err := RSI(prices, 0); err == nil {
		t.Error("expected error for zero period")
	}
	if _, err := RSI(prices, len(prices)+1); err == nil {
		t.Error("expected error for period exceeding sample count")
	}
	if _, err := RSI(nil, 14); err == nil {
		t.Error("expected error for empty price series")
	}
}
