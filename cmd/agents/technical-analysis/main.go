// Command technical-analysis runs the TechnicalAnalysis agent: for every
// configured symbol it maintains a rolling OHLCV window, derives signals
// via internal/signal's rule engine on each new candle, and publishes
// them for Strategy's fusion to consume.
package main

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajitpratap0/tradingpipeline/internal/agent"
	"github.com/ajitpratap0/tradingpipeline/internal/bootstrap"
	"github.com/ajitpratap0/tradingpipeline/internal/config"
	"github.com/ajitpratap0/tradingpipeline/internal/metrics"
	"github.com/ajitpratap0/tradingpipeline/internal/protocol"
	"github.com/ajitpratap0/tradingpipeline/internal/signal"
	"github.com/ajitpratap0/tradingpipeline/internal/store/relational"
)

const agentName = "technical-analysis"

func main() {
	ctx, cancel := bootstrap.SignalContext()
	defer cancel()

	bc, err := bootstrap.Setup(ctx, agentName, "")
	if err != nil {
		panic(err)
	}
	defer bc.Shutdown(context.Background())

	a := agent.New(agent.Config{
		Name:    agentName,
		Type:    "technical_analysis",
		Version: config.GetVersion(),
	}, bc.Bus, bc.Log)

	bc.Metrics.SetHealthCheck(func() (bool, error) {
		healthy, err := a.Healthy()
		metrics.SetAgentStatus(agentName, healthy)
		return healthy, err
	})
	if err := bc.Metrics.Start(); err != nil {
		bc.Log.Fatal().Err(err).Msg("failed to start metrics server")
	}

	analyzer := &analyzer{
		minWindow: bc.Config.TechnicalAnalysis.MinWindow,
		store:     bc.Store,
		publisher: a,
		log:       bc.Log,
		windows:   make(map[string]*signal.Window),
	}

	windowCapacity := bc.Config.TechnicalAnalysis.MinWindow * 2
	for _, symbol := range bc.Config.DataCollection.Symbols {
		analyzer.windows[symbol] = signal.NewWindow(windowCapacity)
		a.Subscribe(protocol.TopicMarketOHLCV(symbol), analyzer.handleCandle(symbol))
	}

	if err := a.Run(ctx); err != nil {
		bc.Log.Error().Err(err).Msg("technical-analysis agent exited")
	}
}

// analyzer owns one Window per symbol and runs the rule engine whenever
// a new candle arrives for it.
type analyzer struct {
	minWindow int
	store     *relational.Store
	publisher *agent.Agent
	log       zerolog.Logger

	mu      sync.Mutex
	windows map[string]*signal.Window
}

func (an *analyzer) handleCandle(symbol string) agent.TopicHandler {
	return func(ctx context.Context, env *protocol.Envelope) error {
		var candle protocol.Candle
		if err := env.Decode(&candle); err != nil {
			return err
		}
		if !candle.Valid() {
			an.log.Warn().Str("symbol", symbol).Msg("dropping invalid candle")
			return nil
		}

		an.mu.Lock()
		w, ok := an.windows[symbol]
		if !ok {
			w = signal.NewWindow(an.minWindow * 2)
			an.windows[symbol] = w
		}
		w.Push(
			candle.Open.InexactFloat64(),
			candle.High.InexactFloat64(),
			candle.Low.InexactFloat64(),
			candle.Close.InexactFloat64(),
			candle.Volume.InexactFloat64(),
		)
		an.mu.Unlock()

		now := time.Now()
		result, err := signal.Evaluate(w, an.minWindow, symbol, agentName, now)
		if err != nil {
			return err
		}
		if result.InsufficientData {
			signal.LogInsufficient(an.log, symbol, result.Deficit)
			return nil
		}

		for _, sig := range result.Signals {
			if !sig.Valid() {
				an.log.Warn().Str("symbol", symbol).Msg("dropping invalid signal")
				continue
			}
			if err := an.publisher.Publish(ctx, protocol.TopicSignalsTech, sig); err != nil {
				an.log.Error().Err(err).Str("symbol", symbol).Msg("publish signal failed")
				continue
			}
			metrics.RecordAgentSignal(agentName, string(sig.Kind), sig.Confidence)
			if err := an.store.InsertSignal(ctx, sig); err != nil {
				an.log.Error().Err(err).Str("symbol", symbol).Msg("persist signal failed")
			}
		}
		return nil
	}
}
