package fusion

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/tradingpipeline/internal/protocol"
)

func TestEngineSkipsBelowMinSignals(t *testing.T) {
	now := time.Now()
	e := NewEngine(Config{Strategy: StrategyBayesian, MinSignals: 3, MinConfidence: 0.6}, false)
	e.Ingest(sig(protocol.SignalBuy, 0.9, "rsi", 0, now), now)

	out := e.Decide("ETH/USDT", now, func() (bool, decimal.Decimal) { return true, decimal.NewFromInt(100) })
	if !out.Skipped {
		t.Error("expected a decision with fewer than min_signals buffered to be skipped")
	}
}

func TestEngineGatesOnMinConfidence(t *testing.T) {
	now := time.Now()
	e := NewEngine(Config{Strategy: StrategyConsensus, MinSignals: 2, MinAgreement: 0.9, MinConfidence: 0.95}, false)
	e.Ingest(sig(protocol.SignalBuy, 0.7, "rsi", 0, now), now)
	e.Ingest(sig(protocol.SignalSell, 0.7, "macd", 0, now), now)

	out := e.Decide("ETH/USDT", now, func() (bool, decimal.Decimal) { return true, decimal.NewFromInt(100) })
	if out.Intent != nil {
		t.Error("expected a low-agreement split buffer to gate below min_confidence and not emit")
	}
}

func TestEngineEmitsTradeIntentOnStrongConsensus(t *testing.T) {
	now := time.Now()
	e := NewEngine(Config{Strategy: StrategyConsensus, MinSignals: 2, MinAgreement: 0.6, MinConfidence: 0.6, Cooldown: time.Minute}, false)
	e.Ingest(sig(protocol.SignalBuy, 0.9, "rsi", 0, now), now)
	e.Ingest(sig(protocol.SignalBuy, 0.8, "macd", 0, now), now)

	out := e.Decide("ETH/USDT", now, func() (bool, decimal.Decimal) { return true, decimal.NewFromInt(3500) })
	if out.Intent == nil {
		t.Fatal("expected a unanimous BUY buffer to emit a TradeIntent")
	}
	if out.Intent.Action != protocol.ActionBuy {
		t.Errorf("expected BUY intent, got %s", out.Intent.Action)
	}
	if !out.Intent.ExpectedPrice.Equal(decimal.NewFromInt(3500)) {
		t.Errorf("expected expectedPrice seeded from callback, got %s", out.Intent.ExpectedPrice)
	}
}

func TestEngineEnforcesCooldown(t *testing.T) {
	now := time.Now()
	e := NewEngine(Config{Strategy: StrategyConsensus, MinSignals: 2, MinAgreement: 0.6, MinConfidence: 0.6, Cooldown: time.Minute}, false)
	e.Ingest(sig(protocol.SignalBuy, 0.9, "rsi", 0, now), now)
	e.Ingest(sig(protocol.SignalBuy, 0.8, "macd", 0, now), now)
	price := func() (bool, decimal.Decimal) { return true, decimal.NewFromInt(3500) }

	first := e.Decide("ETH/USDT", now, price)
	if first.Intent == nil {
		t.Fatal("expected the first decision to emit")
	}

	later := now.Add(10 * time.Second)
	e.Ingest(sig(protocol.SignalBuy, 0.9, "rsi", 0, later), later)
	e.Ingest(sig(protocol.SignalBuy, 0.8, "macd", 0, later), later)
	second := e.Decide("ETH/USDT", later, price)
	if second.Intent != nil {
		t.Error("expected cooldown to suppress a second emission within 10s of a 1-minute cooldown")
	}
}

func TestEngineSkipsWithoutExpectedPrice(t *testing.T) {
	now := time.Now()
	e := NewEngine(Config{Strategy: StrategyConsensus, MinSignals: 2, MinAgreement: 0.6, MinConfidence: 0.6, Cooldown: time.Minute}, false)
	e.Ingest(sig(protocol.SignalBuy, 0.9, "rsi", 0, now), now)
	e.Ingest(sig(protocol.SignalBuy, 0.8, "macd", 0, now), now)

	out := e.Decide("ETH/USDT", now, func() (bool, decimal.Decimal) { return false, decimal.Zero })
	if out.Intent != nil {
		t.Error("expected no intent when no price is available to seed it")
	}
}

func TestEngineRecordOutcomeNoOpWithoutAdaptive(t *testing.T) {
	e := NewEngine(Config{Strategy: StrategyBayesian}, false)
	e.RecordOutcome("rsi", true) // must not panic
}
