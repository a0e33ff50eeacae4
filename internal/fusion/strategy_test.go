package fusion

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ajitpratap0/tradingpipeline/internal/protocol"
)

func sig(kind protocol.SignalKind, conf float64, agent string, age time.Duration, now time.Time) protocol.Signal {
	return protocol.Signal{
		ID:         uuid.New(),
		Symbol:     "ETH/USDT",
		Agent:      agent,
		Kind:       kind,
		Confidence: conf,
		EmittedAt:  now.Add(-age),
		Indicators: protocol.IndicatorSnapshot{},
	}
}

func TestConsensusMajorityWins(t *testing.T) {
	now := time.Now()
	buf := []protocol.Signal{
		sig(protocol.SignalBuy, 0.8, "rsi", 0, now),
		sig(protocol.SignalBuy, 0.7, "macd", 0, now),
		sig(protocol.SignalSell, 0.6, "bb", 0, now),
	}
	d := consensus(buf)
	if d.Action != protocol.ActionBuy {
		t.Errorf("expected BUY majority, got %s", d.Action)
	}
}

func TestConsensusBelowMinAgreementForcesHold(t *testing.T) {
	now := time.Now()
	buf := []protocol.Signal{
		sig(protocol.SignalBuy, 0.8, "rsi", 0, now),
		sig(protocol.SignalBuy, 0.7, "macd", 0, now),
		sig(protocol.SignalSell, 0.6, "bb", 0, now),
	}
	// BUY wins 2 of 3 votes, a share of 0.67, below min_agreement 0.7.
	d := ConsensusWithAgreement(buf, 0.7)
	if d.Action != protocol.ActionHold {
		t.Errorf("expected HOLD when winner share < min_agreement, got %s", d.Action)
	}
}

func TestBayesianTiesBreakToHold(t *testing.T) {
	now := time.Now()
	buf := []protocol.Signal{
		sig(protocol.SignalBuy, 0.5, "rsi", 0, now),
		sig(protocol.SignalSell, 0.5, "macd", 0, now),
	}
	d := bayesian(buf, nil)
	if d.Action != protocol.ActionHold {
		t.Errorf("expected tie to break to HOLD, got %s", d.Action)
	}
}

func TestTimeDecayFavorsRecentSignals(t *testing.T) {
	now := time.Now()
	buf := []protocol.Signal{
		sig(protocol.SignalSell, 0.9, "old", 29*time.Minute, now),
		sig(protocol.SignalBuy, 0.6, "new", 0, now),
	}
	d := timeDecay(buf, now)
	if d.Action != protocol.ActionBuy {
		t.Errorf("expected the fresh signal to dominate after 29 minutes of decay on the old one, got %s", d.Action)
	}
}

func TestHybridCombinesAllThree(t *testing.T) {
	now := time.Now()
	buf := []protocol.Signal{
		sig(protocol.SignalBuy, 0.85, "rsi", 2*time.Second, now),
		sig(protocol.SignalBuy, 0.75, "macd", 2*time.Second, now),
		sig(protocol.SignalBuy, 0.70, "bb", 2*time.Second, now),
	}
	d := hybrid(buf, now, nil)
	if d.Action != protocol.ActionBuy {
		t.Errorf("expected unanimous BUY buffer to fuse to BUY, got %s", d.Action)
	}
	if d.PerStrategy == nil || len(d.PerStrategy) != 3 {
		t.Error("expected hybrid to report all three per-strategy confidences for audit")
	}
}

func TestReliabilityDefaultsToOneWithoutHistory(t *testing.T) {
	r := NewReliability()
	if w := r.Weight("rsi"); w != 1.0 {
		t.Errorf("expected default weight 1.0, got %v", w)
	}
}

func TestReliabilityClampsToBounds(t *testing.T) {
	r := NewReliability()
	for i := 0; i < 100; i++ {
		r.Record("rsi", true)
	}
	if w := r.Weight("rsi"); w != reliabilityHigh {
		t.Errorf("expected weight clamped to %v for perfect precision, got %v", reliabilityHigh, w)
	}
	for i := 0; i < 100; i++ {
		r.Record("macd", false)
	}
	if w := r.Weight("macd"); w != reliabilityLow {
		t.Errorf("expected weight clamped to %v for zero precision, got %v", reliabilityLow, w)
	}
}
