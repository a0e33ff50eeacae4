package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MockExchange is a paper-trading Exchange: it fills market orders
// immediately at the last set price plus a configurable slippage/fee
// model. A limit order fills at placement only if the market price has
// already crossed its limit; otherwise it rests unfilled, and later price
// changes do not fill it.
// Settable market price and deterministic fills follow the same
// simulation approach as internal/exchange's original mock, rebuilt
// around the decimal-based contract.
type MockExchange struct {
	mu          sync.Mutex
	prices      map[string]decimal.Decimal
	orders      map[string]*mockOrder
	balances    map[string]Balance
	symbolInfo  map[string]SymbolInfo
	slippagePct decimal.Decimal
	feeRate     decimal.Decimal
}

type mockOrder struct {
	req    OrderRequest
	result OrderResult
}

// NewMockExchange constructs a MockExchange with a flat slippage and fee
// model applied to every fill.
func NewMockExchange(slippagePct, feeRate decimal.Decimal) *MockExchange {
	return &MockExchange{
		prices:     make(map[string]decimal.Decimal),
		orders:     make(map[string]*mockOrder),
		balances:   make(map[string]Balance),
		symbolInfo: make(map[string]SymbolInfo),
		slippagePct: slippagePct,
		feeRate:    feeRate,
	}
}

// SetMarketPrice sets the price MockExchange fills market orders against.
func (m *MockExchange) SetMarketPrice(symbol string, price decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[symbol] = price
}

// SetBalance seeds a paper balance for asset.
func (m *MockExchange) SetBalance(asset string, free decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[asset] = Balance{Asset: asset, Free: free}
}

// SetSymbolInfo seeds getExchangeInfo's response for symbol.
func (m *MockExchange) SetSymbolInfo(symbol string, info SymbolInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.symbolInfo[symbol] = info
}

func (m *MockExchange) GetTicker(ctx context.Context, symbol string) (Ticker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	price, ok := m.prices[symbol]
	if !ok {
		return Ticker{}, &Error{Class: ErrorInvalidParam, Err: fmt.Errorf("no market price set for %s", symbol)}
	}
	spread := price.Mul(decimal.NewFromFloat(0.0005))
	return Ticker{Symbol: symbol, Price: price, Bid: price.Sub(spread), Ask: price.Add(spread)}, nil
}

// GetOHLCV returns limit flat candles at the current market price; the
// mock has no historical series, so every bar degenerates to the last
// set price (sufficient for exercising callers, not for indicator
// backtesting).
func (m *MockExchange) GetOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error) {
	ticker, err := m.GetTicker(ctx, symbol)
	if err != nil {
		return nil, err
	}
	candles := make([]Candle, limit)
	now := time.Now()
	for i := range candles {
		candles[i] = Candle{
			OpenTime: now.Add(-time.Duration(limit-i) * time.Minute),
			Open:     ticker.Price,
			High:     ticker.Price,
			Low:      ticker.Price,
			Close:    ticker.Price,
		}
	}
	return candles, nil
}

func (m *MockExchange) PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	price, ok := m.prices[symbolOr(req)]
	if !ok {
		return OrderResult{}, &Error{Class: ErrorInvalidParam, Err: fmt.Errorf("no market price set for %s", req.Symbol)}
	}

	fillPrice := price
	if req.Type == TypeMarket {
		fillPrice = applySlippage(price, req.Side, m.slippagePct)
	} else {
		crossed := (req.Side == SideBuy && price.LessThanOrEqual(req.Price)) ||
			(req.Side == SideSell && price.GreaterThanOrEqual(req.Price))
		if !crossed {
			id := uuid.NewString()
			m.orders[id] = &mockOrder{req: req, result: OrderResult{ExchangeOrderID: id, Status: StatusNew}}
			return m.orders[id].result, nil
		}
		fillPrice = req.Price
	}

	fee := req.Quantity.Mul(fillPrice).Mul(m.feeRate)
	id := uuid.NewString()
	result := OrderResult{
		ExchangeOrderID: id,
		Status:          StatusFilled,
		FilledQty:       req.Quantity,
		AvgPrice:        fillPrice,
		Fee:             fee,
	}
	m.orders[id] = &mockOrder{req: req, result: result}
	return result, nil
}

func (m *MockExchange) FetchOrder(ctx context.Context, exchangeOrderID string) (OrderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[exchangeOrderID]
	if !ok {
		return OrderResult{}, &Error{Class: ErrorInvalidParam, Err: fmt.Errorf("unknown order %s", exchangeOrderID)}
	}
	return order.result, nil
}

func (m *MockExchange) CancelOrder(ctx context.Context, exchangeOrderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[exchangeOrderID]
	if !ok {
		return &Error{Class: ErrorInvalidParam, Err: fmt.Errorf("unknown order %s", exchangeOrderID)}
	}
	if order.result.Status == StatusFilled {
		return &Error{Class: ErrorRejected, Err: fmt.Errorf("order %s already filled", exchangeOrderID)}
	}
	order.result.Status = StatusCanceled
	return nil
}

func (m *MockExchange) GetBalance(ctx context.Context) ([]Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Balance, 0, len(m.balances))
	for _, b := range m.balances {
		out = append(out, b)
	}
	return out, nil
}

func (m *MockExchange) GetExchangeInfo(ctx context.Context, symbol string) (SymbolInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.symbolInfo[symbol]
	if !ok {
		return SymbolInfo{
			MinLot:   decimal.NewFromFloat(0.00001),
			TickSize: decimal.NewFromFloat(0.01),
			StepSize: decimal.NewFromFloat(0.00001),
		}, nil
	}
	return info, nil
}

func symbolOr(req OrderRequest) string { return req.Symbol }

// applySlippage nudges price against the taker: market orders never
// fill favorably.
func applySlippage(price decimal.Decimal, side Side, pct decimal.Decimal) decimal.Decimal {
	delta := price.Mul(pct).Div(decimal.NewFromInt(100))
	if side == SideBuy {
		return price.Add(delta)
	}
	return price.Sub(delta)
}
