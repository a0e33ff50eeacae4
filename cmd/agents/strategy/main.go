// Command strategy runs the Strategy/Signal-Fusion agent: it buffers
// TechnicalAnalysis signals per symbol, fuses them on a fixed tick via
// internal/fusion, and emits a TradeIntent when the fused decision clears
// the confidence and cooldown gates. When adaptive weighting is enabled
// it also feeds closed-position outcomes back into each source's
// reliability weight.
package main

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/tradingpipeline/internal/agent"
	"github.com/ajitpratap0/tradingpipeline/internal/bootstrap"
	"github.com/ajitpratap0/tradingpipeline/internal/config"
	"github.com/ajitpratap0/tradingpipeline/internal/fusion"
	"github.com/ajitpratap0/tradingpipeline/internal/metrics"
	"github.com/ajitpratap0/tradingpipeline/internal/protocol"
	"github.com/ajitpratap0/tradingpipeline/internal/store/relational"
)

const agentName = "strategy"

func main() {
	ctx, cancel := bootstrap.SignalContext()
	defer cancel()

	bc, err := bootstrap.Setup(ctx, agentName, "")
	if err != nil {
		panic(err)
	}
	defer bc.Shutdown(context.Background())

	stratCfg := bc.Config.Strategy
	engine := fusion.NewEngine(fusion.Config{
		Strategy:      fusion.StrategyName(stratCfg.FusionStrategy),
		MinSignals:    stratCfg.MinSignals,
		SignalTTL:     stratCfg.SignalTimeout,
		BufferMax:     stratCfg.BufferMax,
		MinAgreement:  stratCfg.MinAgreement,
		MinConfidence: stratCfg.MinConfidence,
		Cooldown:      stratCfg.Cooldown,
	}, stratCfg.AdaptiveWeighting)

	a := agent.New(agent.Config{
		Name:         agentName,
		Type:         "strategy",
		Version:      config.GetVersion(),
		StepInterval: stratCfg.DecisionInterval,
	}, bc.Bus, bc.Log)

	bc.Metrics.SetHealthCheck(func() (bool, error) {
		healthy, err := a.Healthy()
		metrics.SetAgentStatus(agentName, healthy)
		return healthy, err
	})
	if err := bc.Metrics.Start(); err != nil {
		bc.Log.Fatal().Err(err).Msg("failed to start metrics server")
	}

	fs := &fusionStation{
		engine:       engine,
		store:        bc.Store,
		publisher:    a,
		log:          bc.Log,
		symbols:      bc.Config.DataCollection.Symbols,
		lastPrice:    make(map[string]decimal.Decimal),
		attribution:  make(map[uuid.UUID]signalOrigin),
		contributors: make(map[string][]uuid.UUID),
		signalTTL:    stratCfg.SignalTimeout,
	}

	a.Subscribe(protocol.TopicSignalsTech, fs.handleSignal)
	a.Subscribe(protocol.TopicPositionUpdate, fs.handlePositionUpdate)
	for _, symbol := range fs.symbols {
		a.Subscribe(protocol.TopicMarketTick(symbol), fs.handleTick(symbol))
	}
	a.WithPeriodicJob(fs.decide)

	if err := a.Run(ctx); err != nil {
		bc.Log.Error().Err(err).Msg("strategy agent exited")
	}
}

// signalOrigin is enough of a signal's identity to attribute a later
// position outcome back to its source agent for adaptive reliability.
type signalOrigin struct {
	Agent     string
	EmittedAt time.Time
}

// fusionStation owns the fusion Engine and the bookkeeping needed to
// close the adaptive-weighting feedback loop: the protocol entity model
// carries no end-to-end intent/order/position linkage back to the
// signals that produced a TradeIntent, so fusionStation tracks, per
// symbol, which signal IDs contributed to the most recently emitted
// intent and attributes the next CLOSED position.update for that symbol
// to them. A second intent on the same symbol before the first closes
// overwrites the attribution, which only affects adaptive weighting's
// training signal, never order execution.
type fusionStation struct {
	engine    *fusion.Engine
	store     *relational.Store
	publisher *agent.Agent
	log       zerolog.Logger
	symbols   []string
	signalTTL time.Duration

	mu           sync.Mutex
	lastPrice    map[string]decimal.Decimal
	attribution  map[uuid.UUID]signalOrigin
	contributors map[string][]uuid.UUID
}

func (fs *fusionStation) handleSignal(ctx context.Context, env *protocol.Envelope) error {
	var sig protocol.Signal
	if err := env.Decode(&sig); err != nil {
		return err
	}
	if !sig.Valid() {
		fs.log.Warn().Str("symbol", sig.Symbol).Msg("dropping invalid signal")
		return nil
	}

	now := time.Now()
	fs.engine.Ingest(sig, now)

	fs.mu.Lock()
	fs.attribution[sig.ID] = signalOrigin{Agent: sig.Agent, EmittedAt: now}
	fs.pruneAttribution(now)
	fs.mu.Unlock()
	return nil
}

func (fs *fusionStation) handleTick(symbol string) agent.TopicHandler {
	return func(ctx context.Context, env *protocol.Envelope) error {
		var tick protocol.Tick
		if err := env.Decode(&tick); err != nil {
			return err
		}
		fs.mu.Lock()
		fs.lastPrice[symbol] = tick.Price
		fs.mu.Unlock()
		return nil
	}
}

func (fs *fusionStation) handlePositionUpdate(ctx context.Context, env *protocol.Envelope) error {
	var evt protocol.PositionUpdateEvent
	if err := env.Decode(&evt); err != nil {
		return err
	}
	if evt.Position.Status != protocol.PositionClosed {
		return nil
	}

	fs.mu.Lock()
	ids := fs.contributors[evt.Position.Symbol]
	delete(fs.contributors, evt.Position.Symbol)
	origins := make([]signalOrigin, 0, len(ids))
	for _, id := range ids {
		if o, ok := fs.attribution[id]; ok {
			origins = append(origins, o)
			delete(fs.attribution, id)
		}
	}
	fs.mu.Unlock()

	correct := evt.Position.RealizedPnl.IsPositive()
	for _, o := range origins {
		fs.engine.RecordOutcome(o.Agent, correct)
	}
	return nil
}

// pruneAttribution drops attribution entries past the signal TTL so the
// map doesn't grow unboundedly for symbols that never close a position.
// Caller must hold fs.mu.
func (fs *fusionStation) pruneAttribution(now time.Time) {
	if fs.signalTTL <= 0 {
		return
	}
	for id, o := range fs.attribution {
		if now.Sub(o.EmittedAt) > fs.signalTTL {
			delete(fs.attribution, id)
		}
	}
}

func (fs *fusionStation) decide(ctx context.Context) error {
	now := time.Now()
	for _, symbol := range fs.symbols {
		outcome := fs.engine.Decide(symbol, now, func() (bool, decimal.Decimal) {
			fs.mu.Lock()
			defer fs.mu.Unlock()
			price, ok := fs.lastPrice[symbol]
			return ok, price
		})
		if outcome.Skipped {
			continue
		}
		if err := fs.store.InsertStrategyDecision(ctx, uuid.New(), symbol, decisionAction(outcome), outcome.Meta, now); err != nil {
			fs.log.Error().Err(err).Str("symbol", symbol).Msg("persist strategy decision failed")
		}
		metrics.RecordStrategyOperation("decide", true)
		if outcome.Intent == nil {
			continue
		}

		fs.mu.Lock()
		fs.contributors[symbol] = outcome.Meta.ContributingIDs
		fs.mu.Unlock()

		if err := fs.publisher.Publish(ctx, protocol.TopicTradeIntent, outcome.Intent); err != nil {
			fs.log.Error().Err(err).Str("symbol", symbol).Msg("publish trade intent failed")
		}
	}
	return nil
}

func decisionAction(outcome fusion.Outcome) protocol.TradeAction {
	if outcome.Intent != nil {
		return outcome.Intent.Action
	}
	return protocol.ActionHold
}
