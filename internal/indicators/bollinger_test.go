package indicators

import "testing"

func TestBollingerBasic(t *testing.T) {
	prices := risingPrices(40, 100.0, 0.3)

	result, err := Bollinger(prices, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Upper) == 0 || len(result.Middle) == 0 || len(result.Lower) == 0 {
		t.Fatal("expected non-empty band series")
	}
	if len(result.Upper) != len(result.Middle) || len(result.Upper) != len(result.Lower) {
		t.Errorf("band series must be aligned: upper=%d middle=%d lower=%d",
			len(result.Upper), len(result.Middle), len(result.Lower))
	}
	for i := range result.Middle {
		if result.Upper[i] < result.Middle[i] {
			t.Errorf("upper[%d]=%.4f must be >= middle[%d]=%.4f", i, result.Upper[i], i, result.Middle[i])
		}
		if result.Lower[i] > result.Middle[i] {
			t.Errorf("lower[%d]=%.4f must be <= middle[%d]=%.4f", i, result.Lower[i], i, result.Middle[i])
		}
	}
}

func TestBollingerDifferentPeriods(t *testing.T) {
	prices := risingPrices(50, 100.0, 0.4)

	for _, period := range []int{10, 20, 30} {
		result, err := Bollinger(prices, period)
		if err != nil {
			t.Fatalf("unexpected error for period %d: %v", period, err)
		}
		last := len(result.Middle) - 1
		if result.Upper[last] < result.Middle[last] || result.Middle[last] < result.Lower[last] {
			t.Errorf("period %d: invalid band ordering upper=%.4f middle=%.4f lower=%.4f",
				period, result.Upper[last], result.Middle[last], result.Lower[last])
		}
	}
}

func TestBollingerInvalidPeriod(t *testing.T) {
	prices := risingPrices(10, 100.0, 0.3)

	if _, err := Bollinger(prices, 0); err == nil {
		t.Error("expected error for zero period")
	}
	if _, err := Bollinger(prices, len(prices)+1); err == nil {
		t.Error("expected error for period exceeding sample count")
	}
}
