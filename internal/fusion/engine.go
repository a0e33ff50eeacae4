package fusion

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/tradingpipeline/internal/protocol"
)

// Config carries Strategy's fusion tunables, with its documented defaults.
type Config struct {
	Strategy     StrategyName
	MinSignals   int           // default 2
	SignalTTL    time.Duration // signal_timeout, default 300s
	BufferMax    int           // default 50
	MinAgreement float64       // consensus-only, default 0.6
	MinConfidence float64      // default 0.6
	Cooldown     time.Duration // default = decision_interval
}

// Engine runs Strategy's periodic fuse-and-gate decision per symbol. It
// owns the signal Buffer, the optional Reliability ring, and the
// per-symbol last-emission clock cooldown gating needs.
type Engine struct {
	cfg         Config
	buf         *Buffer
	reliability *Reliability

	mu        sync.Mutex
	lastEmit  map[string]time.Time
}

// NewEngine constructs a fusion Engine. adaptive enables the Bayesian
// reliability ring; pass false to keep every source's weight at 1.0.
func NewEngine(cfg Config, adaptive bool) *Engine {
	var rel *Reliability
	if adaptive {
		rel = NewReliability()
	}
	return &Engine{
		cfg:      cfg,
		buf:      NewBuffer(cfg.SignalTTL, cfg.BufferMax),
		reliability: rel,
		lastEmit: make(map[string]time.Time),
	}
}

// Ingest adds a newly received signal to its symbol's buffer.
func (e *Engine) Ingest(sig protocol.Signal, now time.Time) {
	e.buf.Add(sig, now)
}

// RecordOutcome feeds a position-close outcome back into the reliability
// ring for source, when adaptive weighting is enabled. It is a no-op
// otherwise: absent history, weight stays 1.0.
func (e *Engine) RecordOutcome(source string, correct bool) {
	if e.reliability == nil {
		return
	}
	e.reliability.Record(source, correct)
}

// Outcome is the decision engine's result for one symbol at one tick: the
// intent to publish (if gating passed) plus a FusionMeta that is always
// populated, since rejected decisions are persisted for audit too.
type Outcome struct {
	Intent  *protocol.TradeIntent
	Meta    protocol.FusionMeta
	Skipped bool // buffer below min_signals: no decision at all
}

// Decide fuses symbol's current buffer at now and applies the emission
// gate. expectedPrice seeds the resulting TradeIntent's expectedPrice
// (the most recent signal's triggering price is not itself carried, so
// callers pass the latest known mid/last price).
func (e *Engine) Decide(symbol string, now time.Time, expectedPrice func() (hasPrice bool, price decimal.Decimal)) Outcome {
	buf := e.buf.Snapshot(symbol, now)
	minSignals := e.cfg.MinSignals
	if minSignals <= 0 {
		minSignals = 2
	}
	if len(buf) < minSignals {
		return Outcome{Skipped: true}
	}

	var decision Decision
	switch e.cfg.Strategy {
	case StrategyConsensus:
		agreement := e.cfg.MinAgreement
		if agreement <= 0 {
			agreement = defaultMinAgreement
		}
		decision = ConsensusWithAgreement(buf, agreement)
	default:
		decision = Fuse(e.cfg.Strategy, buf, now, e.reliability)
	}

	meta := protocol.FusionMeta{
		Strategy:        string(e.cfg.Strategy),
		SignalCount:     len(buf),
		ContributingIDs: contributingIDs(buf),
		PerStrategy:     decision.PerStrategy,
	}
	switch decision.Action {
	case protocol.ActionBuy:
		meta.BuyScore = decision.Confidence
	case protocol.ActionSell:
		meta.SellScore = decision.Confidence
	default:
		meta.HoldScore = decision.Confidence
	}

	minConfidence := e.cfg.MinConfidence
	if minConfidence <= 0 {
		minConfidence = 0.6
	}
	if decision.Action == protocol.ActionHold || decision.Confidence < minConfidence {
		return Outcome{Meta: meta}
	}
	if !e.coolingOff(symbol, now) {
		return Outcome{Meta: meta}
	}

	hasPrice, price := expectedPrice()
	if !hasPrice {
		return Outcome{Meta: meta}
	}

	e.mu.Lock()
	e.lastEmit[symbol] = now
	e.mu.Unlock()

	intent := &protocol.TradeIntent{
		ID:            uuid.New(),
		Symbol:        symbol,
		Action:        decision.Action,
		Confidence:    decision.Confidence,
		ExpectedPrice: price,
		FusionMeta:    meta,
		CreatedAt:     now,
	}
	return Outcome{Intent: intent, Meta: meta}
}

// coolingOff reports whether enough time has passed since symbol's last
// emitted intent to clear the configured cooldown.
func (e *Engine) coolingOff(symbol string, now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	last, ok := e.lastEmit[symbol]
	if !ok {
		return true
	}
	cooldown := e.cfg.Cooldown
	return now.Sub(last) >= cooldown
}
