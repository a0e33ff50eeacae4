package position

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/tradingpipeline/internal/protocol"
)

func TestTriggeredLongStopLoss(t *testing.T) {
	// LONG SL=117000, TP=126000, market prints 116950 -> SL triggers.
	trig := Triggered(protocol.PositionLong, decimal.NewFromInt(116950), decimal.NewFromInt(117000), decimal.NewFromInt(126000))
	if trig != TriggerSL {
		t.Errorf("expected stop-loss trigger, got %q", trig)
	}
}

func TestTriggeredNoneWithinBand(t *testing.T) {
	trig := Triggered(protocol.PositionLong, decimal.NewFromInt(121000), decimal.NewFromInt(117000), decimal.NewFromInt(126000))
	if trig != TriggerNone {
		t.Errorf("expected no trigger, got %q", trig)
	}
}

func TestMonitorTickClosesOnStopLoss(t *testing.T) {
	m := NewManager()
	now := time.Now()
	qty := decimal.NewFromFloat(0.001)
	m.Open("binance", "BTC/USDT", protocol.PositionLong, now)
	m.RecordFill("binance", "BTC/USDT", qty, decimal.NewFromInt(120000), qty)

	tracked, _ := m.Get("binance", "BTC/USDT")
	tracked.Position.StopLoss = decimal.NewFromInt(117000)
	tracked.Position.TakeProfit = decimal.NewFromInt(126000)

	prices := func(ctx context.Context, symbol string) (decimal.Decimal, error) {
		return decimal.NewFromInt(116950), nil
	}
	closed := false
	closeFn := func(ctx context.Context, t *Tracked) (decimal.Decimal, error) {
		closed = true
		return decimal.NewFromInt(116950), nil
	}

	mon := NewMonitor(m, prices, closeFn, 10*time.Second, zerolog.Nop())
	mon.Tick(context.Background(), now)

	if !closed {
		t.Fatal("expected the monitor to place a close order on SL trigger")
	}
	tracked, _ = m.Get("binance", "BTC/USDT")
	if tracked.State != StateClosed {
		t.Errorf("expected CLOSED after SL trigger, got %s", tracked.State)
	}
	// (116950 - 120000) * 0.001 = -3.05
	if !tracked.Position.RealizedPnl.Equal(decimal.NewFromFloat(-3.05)) {
		t.Errorf("expected realizedPnl -3.05, got %s", tracked.Position.RealizedPnl)
	}
}
