package signal

import (
	"testing"
	"time"
)

func buildWindow(n int, base float64) *Window {
	w := NewWindow(500)
	price := base
	for i := 0; i < n; i++ {
		w.Push(price, price+1, price-1, price, 1000)
		price += 0.01
	}
	return w
}

func TestEvaluateInsufficientData(t *testing.T) {
	w := buildWindow(10, 100)
	result, err := Evaluate(w, 200, "BTC/USDT", "ta", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.InsufficientData {
		t.Fatal("expected insufficient_data for a window below min_window")
	}
	if result.Deficit != 190 {
		t.Errorf("expected deficit 190, got %d", result.Deficit)
	}
}

func TestEvaluateRSIBuyOnDowntrend(t *testing.T) {
	w := NewWindow(500)
	price := 200.0
	for i := 0; i < 60; i++ {
		w.Push(price, price+0.5, price-0.5, price, 1000)
		price -= 1.0
	}
	result, err := Evaluate(w, 30, "ETH/USDT", "ta", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sawRSISignal bool
	for _, s := range result.Signals {
		if _, ok := s.Indicators["rsi"]; ok {
			sawRSISignal = true
			if s.Confidence <= 0 || s.Confidence > 1 {
				t.Errorf("RSI signal confidence out of [0,1]: %v", s.Confidence)
			}
		}
	}
	if !sawRSISignal {
		t.Fatal("expected a sustained downtrend to drive RSI oversold and emit a signal")
	}
}

func TestEvaluateNoSignalsOnFlatMarket(t *testing.T) {
	w := NewWindow(500)
	for i := 0; i < 60; i++ {
		w.Push(100, 100, 100, 100, 1000)
	}
	result, err := Evaluate(w, 30, "SOL/USDT", "ta", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Signals) != 0 {
		t.Errorf("flat market should trigger no RSI/MACD/Bollinger rule, got %d signals", len(result.Signals))
	}
}
