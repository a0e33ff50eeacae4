package exchange

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMockExchangeMarketOrderFillsWithSlippage(t *testing.T) {
	m := NewMockExchange(decimal.NewFromFloat(0.05), decimal.NewFromFloat(0.001))
	m.SetMarketPrice("BTC/USDT", decimal.NewFromInt(100000))

	result, err := m.PlaceOrder(context.Background(), OrderRequest{
		Symbol:   "BTC/USDT",
		Side:     SideBuy,
		Type:     TypeMarket,
		Quantity: decimal.NewFromFloat(0.01),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != StatusFilled {
		t.Fatalf("expected FILLED, got %s", result.Status)
	}
	if !result.AvgPrice.GreaterThan(decimal.NewFromInt(100000)) {
		t.Errorf("buy should fill above market price under slippage, got %s", result.AvgPrice)
	}
	if !result.Fee.GreaterThan(decimal.Zero) {
		t.Error("expected a nonzero fee")
	}
}

func TestMockExchangeLimitOrderRestsUntilCrossed(t *testing.T) {
	m := NewMockExchange(decimal.Zero, decimal.NewFromFloat(0.001))
	m.SetMarketPrice("ETH/USDT", decimal.NewFromInt(3000))

	result, err := m.PlaceOrder(context.Background(), OrderRequest{
		Symbol:   "ETH/USDT",
		Side:     SideBuy,
		Type:     TypeLimit,
		Quantity: decimal.NewFromFloat(1),
		Price:    decimal.NewFromInt(2900),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != StatusNew {
		t.Fatalf("expected resting NEW order, got %s", result.Status)
	}

	fetched, err := m.FetchOrder(context.Background(), result.ExchangeOrderID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetched.Status != StatusNew {
		t.Errorf("order should still be resting, got %s", fetched.Status)
	}
}

func TestMockExchangeCancelAlreadyFilledRejected(t *testing.T) {
	m := NewMockExchange(decimal.Zero, decimal.Zero)
	m.SetMarketPrice("SOL/USDT", decimal.NewFromInt(150))

	result, err := m.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "SOL/USDT", Side: SideBuy, Type: TypeMarket, Quantity: decimal.NewFromInt(1),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := m.CancelOrder(context.Background(), result.ExchangeOrderID); err == nil {
		t.Error("expected an error cancelling an already-filled order")
	}
}

func TestMockExchangeGetTickerUnknownSymbol(t *testing.T) {
	m := NewMockExchange(decimal.Zero, decimal.Zero)
	if _, err := m.GetTicker(context.Background(), "DOGE/USDT"); err == nil {
		t.Error("expected error for symbol with no market price set")
	}
}
