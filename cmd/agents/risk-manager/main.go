// Command risk-manager runs the RiskManager agent: it sizes every
// TradeIntent against the account ledger, places stops, runs the
// five-layer validation pipeline, and reserves balance for approved
// orders before handing them to Execution.
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
	"github.com/ajitpratap0/tradingpipeline/internal/dedup"
	"github.com/ajitpratap0/tradingpipeline/internal/exchange"
	"github.com/ajitpratap0/tradingpipeline/internal/indicators"
	"github.com/ajitpratap0/tradingpipeline/internal/metrics"
	"github.com/ajitpratap0/tradingpipeline/internal/protocol"
	"github.com/ajitpratap0/tradingpipeline/internal/resilience"
	"github.com/ajitpratap0/tradingpipeline/internal/risk"
	"github.com/ajitpratap0/tradingpipeline/internal/store/relational"
)

const (
	agentName    = "risk-manager"
	atrPeriod    = 14
	candleLookback = atrPeriod + 1
)

func main() {
	ctx, cancel := bootstrap.SignalContext()
	defer cancel()

	bc, err := bootstrap.Setup(ctx, agentName, "")
	if err != nil {
		panic(err)
	}
	defer bc.Shutdown(context.Background())

	exCfg := bc.Config.Exchanges["binance"]
	var ex exchange.Exchange
	if looksConfigured(bc.Creds.ExchangeAPIKey) && looksConfigured(bc.Creds.ExchangeSecret) {
		ex = exchange.NewBinanceAdapter(bc.Creds.ExchangeAPIKey, bc.Creds.ExchangeSecret, exCfg.Testnet)
	} else {
		mock := exchange.NewMockExchange(decimal.NewFromFloat(0.05), decimal.NewFromFloat(0.001))
		for _, symbol := range bc.Config.DataCollection.Symbols {
			mock.SetMarketPrice(symbol, decimal.NewFromFloat(100))
			mock.SetSymbolInfo(symbol, exchange.SymbolInfo{
				MinLot:   decimal.NewFromFloat(0.0001),
				TickSize: decimal.NewFromFloat(0.01),
				StepSize: decimal.NewFromFloat(0.0001),
			})
		}
		ex = mock
	}

	clusters, err := risk.LoadClusters(bc.Config.Risk.ClustersFile)
	if err != nil {
		bc.Log.Fatal().Err(err).Msg("failed to load risk clusters")
	}

	engine := risk.NewEngine(riskConfig(bc.Config.Risk), risk.NewLedger(decimal.NewFromFloat(bc.Config.Risk.InitialBalance)), clusters)

	a := agent.New(agent.Config{
		Name: agentName, Type: "risk_manager", Version: config.GetVersion(),
	}, bc.Bus, bc.Log)

	bc.Metrics.SetHealthCheck(func() (bool, error) {
		healthy, err := a.Healthy()
		metrics.SetAgentStatus(agentName, healthy)
		return healthy, err
	})
	if err := bc.Metrics.Start(); err != nil {
		bc.Log.Fatal().Err(err).Msg("failed to start metrics server")
	}

	rm := &riskManager{
		engine:    engine,
		ex:        ex,
		store:     bc.Store,
		publisher: a,
		log:       bc.Log,
		timeframe: bc.Config.DataCollection.Timeframe,
		lastPrice: make(map[string]decimal.Decimal),
		orders:    make(map[uuid.UUID]orderTracking),
		breakers:  bc.Breakers,
		dedup:     dedup.New(bc.Redis, "risk-manager:intent", 15*time.Minute),
	}

	a.Subscribe(protocol.TopicTradeIntent, rm.handleIntent)
	a.Subscribe(protocol.TopicOrderStatus, rm.handleOrderStatus)
	a.Subscribe(protocol.TopicPositionUpdate, rm.handlePositionUpdate)
	for _, symbol := range bc.Config.DataCollection.Symbols {
		a.Subscribe(protocol.TopicMarketTick(symbol), rm.handleTick(symbol))
	}

	if err := a.Run(ctx); err != nil {
		bc.Log.Error().Err(err).Msg("risk-manager agent exited")
	}
}

// riskConfig converts config.RiskConfig's fractional percentages (e.g.
// 0.02 for 2%) into the risk package's "out of 100" decimal convention.
func riskConfig(cfg config.RiskConfig) risk.Config {
	pct := func(fraction float64) decimal.Decimal {
		return decimal.NewFromFloat(fraction * 100)
	}
	return risk.Config{
		SizingMethod:          risk.SizingMethod(cfg.SizingMethod),
		StopMethod:            risk.StopMethod(cfg.StopMethod),
		TargetRR:              decimal.NewFromFloat(cfg.TargetRR),
		KellyMin:              decimal.NewFromFloat(cfg.KellyMin),
		KellyMax:              decimal.NewFromFloat(cfg.KellyMax),
		FixedRiskPct:          pct(cfg.FixedRiskPct),
		ATRMultiplier:         decimal.NewFromFloat(cfg.ATRMultiplier),
		RR:                    decimal.NewFromFloat(cfg.RR),
		MinConfidence:         decimal.NewFromFloat(cfg.MinConfidence),
		MinRR:                 decimal.NewFromFloat(cfg.MinRR),
		MaxRiskPerTradePct:    pct(cfg.MaxRiskPerTrade),
		MaxPortfolioRiskPct:   pct(cfg.MaxPortfolioRisk),
		StandardTierPct:       decimal.NewFromFloat(cfg.StandardTierPct),
		TrailingEnabled:       cfg.TrailingEnabled,
		TrailingActivationPct: pct(cfg.TrailingActivation),
	}
}

func looksConfigured(v string) bool {
	switch v {
	case "", "changeme", "your-api-key-here", "YOUR_API_KEY":
		return false
	default:
		return true
	}
}

// orderTracking is the risk-manager-local record an approval needs so a
// later order.status or position.update can resolve or release the
// reservation it opened; the Ledger itself only keys reservations by
// orderID and doesn't retain the symbol/riskUSD pair independently.
type orderTracking struct {
	Symbol  string
	RiskUSD decimal.Decimal
}

type riskManager struct {
	engine    *risk.Engine
	ex        exchange.Exchange
	store     *relational.Store
	publisher *agent.Agent
	log       zerolog.Logger
	timeframe string

	breakers *resilience.Manager
	dedup    *dedup.Cache

	mu        sync.Mutex
	lastPrice map[string]decimal.Decimal
	orders    map[uuid.UUID]orderTracking
}

func (rm *riskManager) handleTick(symbol string) agent.TopicHandler {
	return func(ctx context.Context, env *protocol.Envelope) error {
		var tick protocol.Tick
		if err := env.Decode(&tick); err != nil {
			return err
		}
		rm.mu.Lock()
		rm.lastPrice[symbol] = tick.Price
		rm.mu.Unlock()
		return nil
	}
}

func (rm *riskManager) handleIntent(ctx context.Context, env *protocol.Envelope) error {
	firstTime, err := rm.dedup.SeenOrMark(ctx, env.MessageID)
	if err != nil {
		rm.log.Warn().Err(err).Msg("dedup check failed, evaluating intent anyway")
	} else if !firstTime {
		rm.log.Info().Str("messageId", env.MessageID).Msg("duplicate trade.intent delivery, skipping")
		return nil
	}

	var intent protocol.TradeIntent
	if err := env.Decode(&intent); err != nil {
		return err
	}
	if intent.Action == protocol.ActionHold {
		return nil
	}

	mkt, err := rm.marketContext(ctx, intent.Symbol)
	if err != nil {
		rm.log.Warn().Err(err).Str("symbol", intent.Symbol).Msg("market context unavailable, skipping intent")
		return nil
	}

	now := time.Now()
	decision := rm.engine.Evaluate(intent, mkt, now)

	if err := rm.store.InsertRiskAssessment(ctx, decision.Assessment); err != nil {
		rm.log.Error().Err(err).Str("symbol", intent.Symbol).Msg("persist risk assessment failed")
	}
	if !decision.Approved {
		reason := "rejected"
		if len(decision.Assessment.Reasons) > 0 {
			reason = string(decision.Assessment.Reasons[0])
		}
		metrics.RecordStrategyValidationFailure(reason)
		rm.log.Info().Str("symbol", intent.Symbol).Interface("reasons", decision.Assessment.Reasons).Msg("intent rejected")
		return nil
	}

	riskUSD := decision.Order.Quantity.Mul(decision.Order.ExpectedPrice.Sub(decision.Order.StopLoss).Abs())
	rm.mu.Lock()
	rm.orders[decision.Order.OrderID] = orderTracking{Symbol: intent.Symbol, RiskUSD: riskUSD}
	rm.mu.Unlock()

	if err := rm.publisher.Publish(ctx, protocol.TopicTradeOrder, decision.Order); err != nil {
		rm.log.Error().Err(err).Str("symbol", intent.Symbol).Msg("publish validated order failed")
	}
	return nil
}

func (rm *riskManager) handleOrderStatus(ctx context.Context, env *protocol.Envelope) error {
	var evt protocol.OrderStatusEvent
	if err := env.Decode(&evt); err != nil {
		return err
	}
	if !evt.IsTerminal() {
		return nil
	}

	rm.mu.Lock()
	tracking, ok := rm.orders[evt.OrderID]
	if ok {
		delete(rm.orders, evt.OrderID)
	}
	rm.mu.Unlock()
	if !ok {
		return nil
	}

	rm.engine.Resolve(evt.OrderID, tracking.Symbol, evt.Status, tracking.RiskUSD)
	return nil
}

func (rm *riskManager) handlePositionUpdate(ctx context.Context, env *protocol.Envelope) error {
	var evt protocol.PositionUpdateEvent
	if err := env.Decode(&evt); err != nil {
		return err
	}
	if evt.Position.Status != protocol.PositionClosed {
		return nil
	}
	rm.engine.ReleaseOpenRisk(evt.Position.Symbol, rm.engine.OpenRiskFor(evt.Position.Symbol))
	return nil
}

// marketContext assembles the price/ATR/min-lot snapshot Evaluate needs.
// ATR is derived from recently persisted candles; when too few are on
// hand yet, it falls back to 1% of the last known price so an early
// intent isn't dropped purely for lack of warmup history.
func (rm *riskManager) marketContext(ctx context.Context, symbol string) (risk.MarketContext, error) {
	rm.mu.Lock()
	price, havePrice := rm.lastPrice[symbol]
	rm.mu.Unlock()

	start := time.Now()
	infoRes, err := rm.breakers.Execute(resilience.ServiceExchange, func() (interface{}, error) {
		return rm.ex.GetExchangeInfo(ctx, symbol)
	})
	metrics.RecordExchangeAPICall("binance", "exchange_info", float64(time.Since(start).Milliseconds()), err)
	if err != nil {
		return risk.MarketContext{}, err
	}
	info := infoRes.(exchange.SymbolInfo)

	if !havePrice {
		start := time.Now()
		tickerRes, err := rm.breakers.Execute(resilience.ServiceExchange, func() (interface{}, error) {
			return rm.ex.GetTicker(ctx, symbol)
		})
		metrics.RecordExchangeAPICall("binance", "ticker", float64(time.Since(start).Milliseconds()), err)
		if err != nil {
			return risk.MarketContext{}, err
		}
		price = tickerRes.(exchange.Ticker).Price
	}

	candles, err := rm.store.RecentCandles(ctx, symbol, rm.timeframe, candleLookback+1)
	if err != nil || len(candles) < candleLookback+1 {
		return risk.MarketContext{
			Price: price, UsingFallbackPrice: !havePrice,
			ATR: price.Mul(decimal.NewFromFloat(0.01)), MinLot: info.MinLot,
		}, nil
	}

	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	closes := make([]float64, len(candles))
	for i, c := range candles {
		highs[i] = c.High.InexactFloat64()
		lows[i] = c.Low.InexactFloat64()
		closes[i] = c.Close.InexactFloat64()
	}
	atrSeries, err := indicators.ATR(highs, lows, closes, atrPeriod)
	atr := price.Mul(decimal.NewFromFloat(0.01))
	if err == nil {
		atr = decimal.NewFromFloat(indicators.Last(atrSeries))
	}

	return risk.MarketContext{
		Price: price, UsingFallbackPrice: !havePrice,
		ATR: atr, MinLot: info.MinLot,
	}, nil
}
