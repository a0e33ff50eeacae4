// Command data-collection runs the DataCollection agent: it polls market
// data for every configured symbol, publishes ticks and candles to the
// bus, and persists every candle to the relational store for
// RiskManager's ATR lookups and backtesting.
package main

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/tradingpipeline/internal/agent"
	"github.com/ajitpratap0/tradingpipeline/internal/bootstrap"
	"github.com/ajitpratap0/tradingpipeline/internal/config"
	"github.com/ajitpratap0/tradingpipeline/internal/exchange"
	"github.com/ajitpratap0/tradingpipeline/internal/metrics"
	"github.com/ajitpratap0/tradingpipeline/internal/protocol"
	"github.com/ajitpratap0/tradingpipeline/internal/resilience"
	"github.com/ajitpratap0/tradingpipeline/internal/store/relational"
)

const agentName = "data-collection"

func main() {
	ctx, cancel := bootstrap.SignalContext()
	defer cancel()

	bc, err := bootstrap.Setup(ctx, agentName, "")
	if err != nil {
		panic(err)
	}
	defer bc.Shutdown(context.Background())

	ex, mock := buildExchange(bc)

	a := agent.New(agent.Config{
		Name:         agentName,
		Type:         "data_collection",
		Version:      config.GetVersion(),
		StepInterval: time.Duration(bc.Config.DataCollection.IntervalSeconds) * time.Second,
	}, bc.Bus, bc.Log)

	bc.Metrics.SetHealthCheck(func() (bool, error) {
		healthy, err := a.Healthy()
		metrics.SetAgentStatus(agentName, healthy)
		return healthy, err
	})
	if err := bc.Metrics.Start(); err != nil {
		bc.Log.Fatal().Err(err).Msg("failed to start metrics server")
	}

	coll := &collector{
		ex:        ex,
		mock:      mock,
		store:     bc.Store,
		cfg:       bc.Config.DataCollection,
		publisher: a,
		log:       bc.Log,
		breakers:  bc.Breakers,
		lastPrice: make(map[string]decimal.Decimal),
	}
	seedMockPrices(coll)
	a.WithPeriodicJob(coll.poll)

	if err := a.Run(ctx); err != nil {
		bc.Log.Error().Err(err).Msg("data-collection agent exited")
	}
}

// buildExchange picks BinanceAdapter when real credentials are present,
// falling back to MockExchange paper trading otherwise, following
// cmd/orchestrator/main.go's --verify-keys placeholder-detection policy.
func buildExchange(bc *bootstrap.Context) (exchange.Exchange, *exchange.MockExchange) {
	exchCfg := bc.Config.Exchanges["binance"]
	apiKey := bc.Creds.ExchangeAPIKey
	secretKey := bc.Creds.ExchangeSecret
	if looksConfigured(apiKey) && looksConfigured(secretKey) {
		bc.Log.Info().Msg("using live binance adapter")
		return exchange.NewBinanceAdapter(apiKey, secretKey, exchCfg.Testnet), nil
	}
	bc.Log.Info().Msg("no exchange credentials configured, running against paper-trading mock")
	mock := exchange.NewMockExchange(decimal.NewFromFloat(0.05), decimal.NewFromFloat(0.001))
	return mock, mock
}

func looksConfigured(v string) bool {
	switch v {
	case "", "changeme", "your-api-key-here", "YOUR_API_KEY":
		return false
	default:
		return true
	}
}

var seedPrices = map[string]float64{
	"BTCUSDT": 65000,
	"ETHUSDT": 3200,
	"SOLUSDT": 150,
	"ADAUSDT": 0.45,
	"AVAXUSDT": 28,
	"DOTUSDT": 6.5,
}

func seedMockPrices(c *collector) {
	if c.mock == nil {
		return
	}
	for _, symbol := range c.cfg.Symbols {
		price, ok := seedPrices[symbol]
		if !ok {
			price = 100
		}
		c.mock.SetMarketPrice(symbol, decimal.NewFromFloat(price))
	}
}

// collector owns the periodic poll job: fetch a ticker per symbol,
// publish the tick and a synthesized candle, and persist the candle.
type collector struct {
	ex        exchange.Exchange
	mock      *exchange.MockExchange // nil when wired to a live adapter
	store     *relational.Store
	cfg       config.DataCollectionConfig
	publisher *agent.Agent
	log       zerolog.Logger
	breakers  *resilience.Manager
	lastPrice map[string]decimal.Decimal
}

func (c *collector) poll(ctx context.Context) error {
	for _, symbol := range c.cfg.Symbols {
		if c.mock != nil {
			c.walkMockPrice(symbol)
		}

		start := time.Now()
		tickerRes, err := c.breakers.Execute(resilience.ServiceExchange, func() (interface{}, error) {
			return c.ex.GetTicker(ctx, symbol)
		})
		metrics.RecordExchangeAPICall("binance", "ticker", float64(time.Since(start).Milliseconds()), err)
		if err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("ticker fetch failed")
			continue
		}
		ticker := tickerRes.(exchange.Ticker)

		now := time.Now()
		tick := protocol.Tick{Symbol: symbol, Price: ticker.Price, Bid: ticker.Bid, Ask: ticker.Ask, Timestamp: now}
		if err := c.publisher.Publish(ctx, protocol.TopicMarketTick(symbol), tick); err != nil {
			c.log.Error().Err(err).Str("symbol", symbol).Msg("publish tick failed")
		}

		open := c.lastPrice[symbol]
		if open.IsZero() {
			open = ticker.Price
		}
		candle := protocol.Candle{
			Symbol:    symbol,
			Timeframe: c.cfg.Timeframe,
			OpenTime:  now,
			Open:      open,
			High:      decimal.Max(open, ticker.Price),
			Low:       decimal.Min(open, ticker.Price),
			Close:     ticker.Price,
			Volume:    decimal.NewFromFloat(rand.Float64() * 10),
		}
		c.lastPrice[symbol] = ticker.Price

		if !candle.Valid() {
			c.log.Warn().Str("symbol", symbol).Msg("built invalid candle, skipping")
			continue
		}
		if err := c.publisher.Publish(ctx, protocol.TopicMarketOHLCV(symbol), candle); err != nil {
			c.log.Error().Err(err).Str("symbol", symbol).Msg("publish candle failed")
		}
		if err := c.store.InsertCandle(ctx, symbol, c.cfg.Timeframe, candle, now); err != nil {
			c.log.Error().Err(err).Str("symbol", symbol).Msg("persist candle failed")
		}
	}
	return nil
}

// walkMockPrice advances the paper-trading mock's price by a small
// bounded random step, so downstream indicators see real movement
// instead of a flat line.
func (c *collector) walkMockPrice(symbol string) {
	base := c.lastPrice[symbol]
	if base.IsZero() {
		seed, ok := seedPrices[symbol]
		if !ok {
			seed = 100
		}
		base = decimal.NewFromFloat(seed)
	}
	driftPct := decimal.NewFromFloat((rand.Float64() - 0.5) * 0.01)
	next := base.Add(base.Mul(driftPct))
	c.mock.SetMarketPrice(symbol, next)
}
