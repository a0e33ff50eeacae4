package position

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/tradingpipeline/internal/exchange"
	"github.com/ajitpratap0/tradingpipeline/internal/protocol"
)

// PriceSource fetches the current mark price for a symbol; normally the
// exchange ticker, swappable in tests.
type PriceSource func(ctx context.Context, symbol string) (decimal.Decimal, error)

// CloseFunc places a market close order for a triggered position and
// reports the realized fill price.
type CloseFunc func(ctx context.Context, t *Tracked) (decimal.Decimal, error)

// Monitor runs Execution's periodic SL/TP job (default 10s): for every
// OPEN position it refreshes currentPrice/unrealizedPnl, and fires
// a local SL/TP simulation when exchange-side protective orders aren't
// available. Monitoring is idempotent under restart because Finalize and
// BeginClose are themselves idempotent.
type Monitor struct {
	manager  *Manager
	prices   PriceSource
	close    CloseFunc
	interval time.Duration
	log      zerolog.Logger
}

// NewMonitor constructs a Monitor polling at interval (default 10s).
func NewMonitor(manager *Manager, prices PriceSource, closeFn CloseFunc, interval time.Duration, log zerolog.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Monitor{manager: manager, prices: prices, close: closeFn, interval: interval, log: log}
}

// Interval returns the configured polling interval, for wiring into
// internal/agent's periodic-job registration.
func (mon *Monitor) Interval() time.Duration { return mon.interval }

// Tick runs one monitoring pass over every OPEN position.
func (mon *Monitor) Tick(ctx context.Context, now time.Time) {
	for _, tracked := range mon.manager.OpenPositions() {
		if tracked.State != StateOpen {
			continue
		}
		mon.checkOne(ctx, tracked, now)
	}
}

func (mon *Monitor) checkOne(ctx context.Context, t *Tracked, now time.Time) {
	price, err := mon.prices(ctx, t.Position.Symbol)
	if err != nil {
		mon.log.Warn().Err(err).Str("symbol", t.Position.Symbol).Msg("sl_tp_monitor price fetch failed")
		return
	}
	t.Position.CurrentPrice = price
	t.Position.UnrealizedPnl = UnrealizedPnL(t.Position.Side, t.Position.AvgEntry, price, t.Position.Quantity)

	triggered := Triggered(t.Position.Side, price, t.Position.StopLoss, t.Position.TakeProfit)
	if triggered == TriggerNone {
		return
	}

	if err := mon.manager.BeginClose(t.Position.Exchange, t.Position.Symbol); err != nil {
		mon.log.Error().Err(err).Str("symbol", t.Position.Symbol).Msg("sl_tp_monitor begin close failed")
		return
	}

	closePrice, err := mon.close(ctx, t)
	if err != nil {
		mon.log.Error().Err(err).Str("symbol", t.Position.Symbol).Str("trigger", string(triggered)).Msg("sl_tp_monitor close order failed")
		return
	}

	if _, err := mon.manager.Finalize(t.Position.Exchange, t.Position.Symbol, closePrice, now); err != nil {
		mon.log.Error().Err(err).Str("symbol", t.Position.Symbol).Msg("sl_tp_monitor finalize failed")
	}
}

// Trigger names which protective order fired.
type Trigger string

const (
	TriggerNone Trigger = ""
	TriggerSL   Trigger = "stop_loss"
	TriggerTP   Trigger = "take_profit"
)

// Triggered implements the local SL/TP simulation rule: LONG fires SL when
// price <= SL or TP when price >= TP; SHORT symmetric.
func Triggered(side protocol.PositionSide, price, stopLoss, takeProfit decimal.Decimal) Trigger {
	if side == protocol.PositionShort {
		switch {
		case stopLoss.IsPositive() && price.GreaterThanOrEqual(stopLoss):
			return TriggerSL
		case takeProfit.IsPositive() && price.LessThanOrEqual(takeProfit):
			return TriggerTP
		default:
			return TriggerNone
		}
	}
	switch {
	case stopLoss.IsPositive() && price.LessThanOrEqual(stopLoss):
		return TriggerSL
	case takeProfit.IsPositive() && price.GreaterThanOrEqual(takeProfit):
		return TriggerTP
	default:
		return TriggerNone
	}
}

// ReconcileProtectiveOrders updates positionOrders' status against the
// exchange's view, returning true if either the SL or TP order has
// filled (the exchange-side counterpart of Triggered's local simulation,
// used when the exchange itself executes protective orders).
func ReconcileProtectiveOrders(sl, tp exchange.OrderResult) (filled bool, which Trigger) {
	if sl.Status == exchange.StatusFilled {
		return true, TriggerSL
	}
	if tp.Status == exchange.StatusFilled {
		return true, TriggerTP
	}
	return false, TriggerNone
}
