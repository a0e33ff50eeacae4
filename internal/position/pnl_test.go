package position

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/tradingpipeline/internal/protocol"
)

func TestUnrealizedPnLLong(t *testing.T) {
	// LONG qty=0.001 @ 120000, close at 117000 -> -3.00
	pnl := UnrealizedPnL(protocol.PositionLong, decimal.NewFromInt(120000), decimal.NewFromInt(117000), decimal.NewFromFloat(0.001))
	if !pnl.Equal(decimal.NewFromInt(-3)) {
		t.Errorf("expected -3.00, got %s", pnl)
	}
}

func TestUnrealizedPnLShort(t *testing.T) {
	pnl := UnrealizedPnL(protocol.PositionShort, decimal.NewFromInt(100), decimal.NewFromInt(90), decimal.NewFromInt(10))
	if !pnl.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected 100, got %s", pnl)
	}
}
