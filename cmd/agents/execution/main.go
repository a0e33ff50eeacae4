// Command execution runs the Execution agent: it places market orders
// for RiskManager's ValidatedOrders, tracks every position through
// internal/position's lifecycle state machine, and runs the periodic
// SL/TP monitor that simulates protective orders locally since the
// exchange interface exposes no native stop-order type.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/tradingpipeline/internal/agent"
	"github.com/ajitpratap0/tradingpipeline/internal/bootstrap"
	"github.com/ajitpratap0/tradingpipeline/internal/config"
	"github.com/ajitpratap0/tradingpipeline/internal/dedup"
	"github.com/ajitpratap0/tradingpipeline/internal/exchange"
	"github.com/ajitpratap0/tradingpipeline/internal/metrics"
	"github.com/ajitpratap0/tradingpipeline/internal/position"
	"github.com/ajitpratap0/tradingpipeline/internal/protocol"
	"github.com/ajitpratap0/tradingpipeline/internal/resilience"
	"github.com/ajitpratap0/tradingpipeline/internal/store/relational"
)

const (
	agentName       = "execution"
	exchangeName    = "binance"
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
		mock := exchange.NewMockExchange(decimal.NewFromFloat(0.05), decimal.NewFromFloat(bc.Config.Execution.DefaultFeeRate))
		for _, symbol := range bc.Config.DataCollection.Symbols {
			mock.SetMarketPrice(symbol, decimal.NewFromFloat(100))
		}
		ex = mock
	}

	a := agent.New(agent.Config{
		Name: agentName, Type: "execution", Version: config.GetVersion(),
		StepInterval: bc.Config.Execution.MonitoringInterval,
	}, bc.Bus, bc.Log)

	bc.Metrics.SetHealthCheck(func() (bool, error) {
		healthy, err := a.Healthy()
		metrics.SetAgentStatus(agentName, healthy)
		return healthy, err
	})
	if err := bc.Metrics.Start(); err != nil {
		bc.Log.Fatal().Err(err).Msg("failed to start metrics server")
	}

	updater := metrics.NewUpdater(bc.Store.Pool(), bc.Config.Execution.MonitoringInterval*10)
	go updater.Start(ctx)

	manager := position.NewManager()
	restoreOpenPositions(ctx, manager, bc.Store, bc.Log)

	ex2 := &executor{
		ex: ex, manager: manager, store: bc.Store, publisher: a, log: bc.Log,
		retryCfg: exchange.DefaultRetryConfig(), feeRate: decimal.NewFromFloat(bc.Config.Execution.DefaultFeeRate),
		breakers: bc.Breakers,
		dedup:    dedup.New(bc.Redis, "execution:order", bc.Config.Execution.OrderFillTimeout*4),
	}

	monitor := position.NewMonitor(manager, ex2.markPrice, ex2.closeTriggered, bc.Config.Execution.MonitoringInterval, bc.Log)

	a.Subscribe(protocol.TopicTradeOrder, ex2.handleOrder)
	a.WithPeriodicJob(func(ctx context.Context) error {
		monitor.Tick(ctx, time.Now())
		return nil
	})

	if err := a.Run(ctx); err != nil {
		bc.Log.Error().Err(err).Msg("execution agent exited")
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

func restoreOpenPositions(ctx context.Context, manager *position.Manager, store *relational.Store, log zerolog.Logger) {
	positions, err := store.OpenPositions(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load open positions at startup")
		return
	}
	for _, p := range positions {
		manager.Restore(p)
		log.Info().Str("symbol", p.Symbol).Str("exchange", p.Exchange).Msg("restored open position")
	}
}

type executor struct {
	ex        exchange.Exchange
	manager   *position.Manager
	store     *relational.Store
	publisher *agent.Agent
	log       zerolog.Logger
	retryCfg  exchange.RetryConfig
	feeRate   decimal.Decimal
	breakers  *resilience.Manager
	dedup     *dedup.Cache
}

// placeOrder routes every exchange order placement through the shared
// exchange circuit breaker, with WithRetry's backoff inside it: once the
// breaker trips, retries stop hammering an exchange that's already down.
func (e *executor) placeOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResult, error) {
	start := time.Now()
	res, err := e.breakers.Execute(resilience.ServiceExchange, func() (interface{}, error) {
		var result exchange.OrderResult
		err := exchange.WithRetry(ctx, e.retryCfg, func() error {
			var err error
			result, err = e.ex.PlaceOrder(ctx, req)
			return err
		})
		return result, err
	})
	metrics.RecordExchangeAPICall("binance", "place_order", float64(time.Since(start).Milliseconds()), err)
	metrics.RecordOrderExecution(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return exchange.OrderResult{}, err
	}
	return res.(exchange.OrderResult), nil
}

func (e *executor) handleOrder(ctx context.Context, env *protocol.Envelope) error {
	firstTime, err := e.dedup.SeenOrMark(ctx, env.MessageID)
	if err != nil {
		e.log.Warn().Err(err).Msg("dedup check failed, processing order anyway")
	} else if !firstTime {
		e.log.Info().Str("messageId", env.MessageID).Msg("duplicate trade.order delivery, skipping")
		return nil
	}

	var order protocol.ValidatedOrder
	if err := env.Decode(&order); err != nil {
		return err
	}

	side := protocol.PositionLong
	exSide := exchange.SideBuy
	if order.Side == protocol.ActionSell {
		side = protocol.PositionShort
		exSide = exchange.SideSell
	}

	now := time.Now()
	tracked, err := e.manager.Open(exchangeName, order.Symbol, side, now)
	if err != nil {
		e.log.Error().Err(err).Str("symbol", order.Symbol).Msg("failed to open tracked position")
		return nil
	}
	tracked.Position.StopLoss = order.StopLoss
	tracked.Position.TakeProfit = order.TakeProfit

	result, placeErr := e.placeOrder(ctx, exchange.OrderRequest{
		Symbol: order.Symbol, Side: exSide, Type: exchange.TypeMarket, Quantity: order.Quantity,
	})

	statusRecord := protocol.OrderRecordFilled
	if placeErr != nil {
		statusRecord = protocol.OrderRecordRejected
		e.log.Error().Err(placeErr).Str("symbol", order.Symbol).Msg("order placement failed")
	}

	e.publishOrderStatus(ctx, order.OrderID, statusRecord, result, now)
	if err := e.store.UpsertOrder(ctx, protocol.OrderRecord{
		OrderID: order.OrderID, ExchangeOrderID: result.ExchangeOrderID, Kind: protocol.OrderMarket,
		Status: statusRecord, PositionID: &tracked.Position.ID, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		e.log.Error().Err(err).Str("symbol", order.Symbol).Msg("persist order record failed")
	}
	if placeErr != nil {
		return nil
	}

	if _, err := e.manager.RecordFill(exchangeName, order.Symbol, result.FilledQty, result.AvgPrice, order.Quantity); err != nil {
		e.log.Error().Err(err).Str("symbol", order.Symbol).Msg("record fill failed")
		return nil
	}

	if err := e.store.InsertTrade(ctx, tracked.Position.ID, order.Symbol, order.Side, result.FilledQty, result.AvgPrice, result.Fee, nil, now); err != nil {
		e.log.Error().Err(err).Str("symbol", order.Symbol).Msg("persist trade failed")
	}
	if err := e.store.UpsertPosition(ctx, tracked.Position); err != nil {
		e.log.Error().Err(err).Str("symbol", order.Symbol).Msg("persist position failed")
	}
	e.publishPositionUpdate(ctx, tracked.Position)
	return nil
}

func (e *executor) publishOrderStatus(ctx context.Context, orderID uuid.UUID, status protocol.OrderRecordStatus, result exchange.OrderResult, now time.Time) {
	if err := e.publisher.Publish(ctx, protocol.TopicOrderStatus, protocol.OrderStatusEvent{
		OrderID: orderID, Status: status, FilledQty: result.FilledQty, AvgPrice: result.AvgPrice, Fee: result.Fee, Timestamp: now,
	}); err != nil {
		e.log.Error().Err(err).Str("orderId", orderID.String()).Msg("publish order status failed")
	}
}

func (e *executor) publishPositionUpdate(ctx context.Context, pos protocol.Position) {
	if err := e.publisher.Publish(ctx, protocol.TopicPositionUpdate, protocol.PositionUpdateEvent{Position: pos}); err != nil {
		e.log.Error().Err(err).Str("symbol", pos.Symbol).Msg("publish position update failed")
	}
}

// markPrice is position.Monitor's PriceSource, routed through the
// exchange circuit breaker since it runs on every monitor tick.
func (e *executor) markPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	res, err := e.breakers.Execute(resilience.ServiceExchange, func() (interface{}, error) {
		return e.ex.GetTicker(ctx, symbol)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return res.(exchange.Ticker).Price, nil
}

// closeTriggered is position.Monitor's CloseFunc: it places the opposite-
// side market order that flattens a SL/TP-triggered position, publishes
// and persists the resulting CLOSED position and trade immediately
// (Monitor's own Finalize call afterward only updates in-memory state,
// since it has no publish/persist hook of its own), and returns the
// realized fill price.
func (e *executor) closeTriggered(ctx context.Context, t *position.Tracked) (decimal.Decimal, error) {
	exSide := exchange.SideSell
	action := protocol.ActionSell
	if t.Position.Side == protocol.PositionShort {
		exSide = exchange.SideBuy
		action = protocol.ActionBuy
	}

	result, err := e.placeOrder(ctx, exchange.OrderRequest{
		Symbol: t.Position.Symbol, Side: exSide, Type: exchange.TypeMarket, Quantity: t.Position.Quantity,
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("close order failed: %w", err)
	}

	now := time.Now()
	realized := position.UnrealizedPnL(t.Position.Side, t.Position.AvgEntry, result.AvgPrice, t.Position.Quantity)

	if err := e.store.InsertTrade(ctx, t.Position.ID, t.Position.Symbol, action, result.FilledQty, result.AvgPrice, result.Fee, &realized, now); err != nil {
		e.log.Error().Err(err).Str("symbol", t.Position.Symbol).Msg("persist closing trade failed")
	}

	closed := t.Position
	closed.CurrentPrice = result.AvgPrice
	closed.RealizedPnl = closed.RealizedPnl.Add(realized)
	closed.UnrealizedPnl = decimal.Zero
	closed.Status = protocol.PositionClosed
	closed.ClosedAt = &now
	if err := e.store.UpsertPosition(ctx, closed); err != nil {
		e.log.Error().Err(err).Str("symbol", closed.Symbol).Msg("persist closed position failed")
	}
	e.publishPositionUpdate(ctx, closed)
	metrics.RecordTrade(realized.InexactFloat64())

	return result.AvgPrice, nil
}
