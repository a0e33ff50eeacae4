package risk

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ajitpratap0/tradingpipeline/internal/protocol"
)

func newTestEngine(balance float64) (*Engine, *Ledger) {
	ledger := NewLedger(d(balance))
	cfg := Config{
		SizingMethod:        SizingHybrid,
		StopMethod:          StopATR,
		TargetRR:            d(2),
		FixedRiskPct:        d(2),
		ATRMultiplier:       d(2),
		RR:                  d(2),
		MinConfidence:       d(0.6),
		MinRR:               d(1.5),
		MaxRiskPerTradePct:  d(5),
		MaxPortfolioRiskPct: d(20),
		StandardTierPct:     d(15),
	}
	clusters, _ := LoadClusters("clusters.yaml")
	return NewEngine(cfg, ledger, clusters), ledger
}

func TestEngineEvaluateApprovesAndReserves(t *testing.T) {
	e, ledger := newTestEngine(10000)
	now := time.Now()

	intent := protocol.TradeIntent{
		ID:         uuid.New(),
		Symbol:     "BTC/USDT",
		Action:     protocol.ActionBuy,
		Confidence: 0.8,
		CreatedAt:  now,
	}
	mkt := MarketContext{Price: d(120000), ATR: d(1500)}

	dec := e.Evaluate(intent, mkt, now)
	if !dec.Approved {
		t.Fatalf("expected approval, got rejection with reasons %v", dec.Assessment.Reasons)
	}
	if dec.Order.StopLoss.IsZero() || dec.Order.TakeProfit.IsZero() {
		t.Error("expected stop-loss and take-profit to be set on an approved order")
	}
	if ledger.Available().GreaterThanOrEqual(d(10000)) {
		t.Error("expected the approved order's size to be reserved against available balance")
	}
}

func TestEngineEvaluateRejectsLowConfidence(t *testing.T) {
	e, _ := newTestEngine(10000)
	now := time.Now()
	intent := protocol.TradeIntent{ID: uuid.New(), Symbol: "BTC/USDT", Action: protocol.ActionBuy, Confidence: 0.4, CreatedAt: now}
	mkt := MarketContext{Price: d(120000), ATR: d(1500)}

	dec := e.Evaluate(intent, mkt, now)
	if dec.Approved {
		t.Fatal("expected rejection for confidence below min_confidence")
	}
	if len(dec.Assessment.Reasons) != 1 || dec.Assessment.Reasons[0] != protocol.ReasonLowConfidence {
		t.Errorf("expected low_confidence reason, got %v", dec.Assessment.Reasons)
	}
}

func TestEngineEvaluateRejectsPortfolioCap(t *testing.T) {
	e, ledger := newTestEngine(10000)
	now := time.Now()
	// Pre-load open risk close to the 20% ($2000) portfolio ceiling, leaving
	// only $2 of headroom - less than the new trade's ~$5 computed risk.
	ledger.TryReserve(uuid.New(), "ETH/USDT", d(1), d(1998), now)

	intent := protocol.TradeIntent{ID: uuid.New(), Symbol: "BTC/USDT", Action: protocol.ActionBuy, Confidence: 0.8, CreatedAt: now}
	mkt := MarketContext{Price: d(120000), ATR: d(1500)}

	dec := e.Evaluate(intent, mkt, now)
	if dec.Approved {
		t.Fatal("expected the new trade's risk to push total open risk over the portfolio cap")
	}
	if len(dec.Assessment.Reasons) != 1 || dec.Assessment.Reasons[0] != protocol.ReasonPortfolioCap {
		t.Errorf("expected portfolio_cap reason, got %v", dec.Assessment.Reasons)
	}
}

func TestEngineEvaluateMinLotRaisesAndRejectsIfBudgetExceeded(t *testing.T) {
	e, _ := newTestEngine(10000)
	now := time.Now()
	intent := protocol.TradeIntent{ID: uuid.New(), Symbol: "BTC/USDT", Action: protocol.ActionBuy, Confidence: 0.8, CreatedAt: now}
	// A huge min-lot forces raisedSize well past the account's tier ceiling.
	mkt := MarketContext{Price: d(120000), ATR: d(1500), MinLot: d(10)}

	dec := e.Evaluate(intent, mkt, now)
	if dec.Approved {
		t.Fatal("expected rejection when the exchange's minimum lot size exceeds the sizing budget")
	}
	if len(dec.Assessment.Reasons) != 1 || dec.Assessment.Reasons[0] != protocol.ReasonBelowMinLotExceedsBudget {
		t.Errorf("expected below_min_lot_exceeds_budget reason, got %v", dec.Assessment.Reasons)
	}
}
