package indicators

import "testing"

func TestEMABasic(t *testing.T) {
	prices := risingPrices(15, 44.0, 0.5)

	values, err := EMA(prices, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) == 0 {
		t.Fatal("expected non-empty EMA series")
	}

	minPrice, maxPrice := prices[0], prices[0]
	for _, p := range prices {
		if p < minPrice {
			minPrice = p
		}
		if p > maxPrice {
			maxPrice = p
		}
	}
	last := Last(values)
	if last < minPrice*0.8 || last > maxPrice*1.2 {
		t.Errorf("EMA value %.2f seems unreasonable for price range [%.2f, %.2f]", last, minPrice, maxPrice)
	}
}

func TestEMATracksTrend(t *testing.T) {
	bullish := risingPrices(15, 10.0, 1.0)
	bearish := risingPrices(15, 24.0, -1.0)

	bullValues, err := EMA(bullish, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if Last(bullValues) >= bullish[len(bullish)-1] {
		t.Errorf("expected EMA %.2f to lag below rising price %.2f", Last(bullValues), bullish[len(bullish)-1])
	}

	bearValues, err := EMA(bearish, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if Last(bearValues) <= bearish[len(bearish)-1] {
		t.Errorf("expected EMA %.2f to lag above falling price %.2f", Last(bearValues), bearish[len(bearish)-1])
	}
}

func TestEMADifferentPeriods(t *testing.T) {
	prices := risingPrices(16, 10.0, 1.0)

	for _, period := range []int{5, 10, 12} {
		values, err := EMA(prices, period)
		if err != nil {
			t.Fatalf("unexpected error for period %d: %v", period, err)
		}
		if Last(values) <= 0 {
			t.Errorf("EMA value should be positive, got %.2f", Last(values))
		}
	}
}

func TestEMAInvalidPeriod(t *testing.T) {
	prices := risingPrices(10, 10, 1)

	if _, err := EMA(prices, 0); err == nil {
		t.Error("expected error for zero period")
	}
	if _, err := EMA(prices, len(prices)+1); err == nil {
		t.Error("expected error for period exceeding sample count")
	}
}
