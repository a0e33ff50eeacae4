// Package exchange defines the exchange adapter contract — the consumed
// interface Execution and RiskManager call through — plus a MockExchange
// paper-trading implementation and a thin BinanceAdapter. The adapter
// itself is scoped to the contract and a thin wrapper: reconnection and
// signing internals of adshao/go-binance/v2 are not reimplemented or
// tested here. The split between a generic Exchange interface and its
// Binance/Mock implementations is built around decimal.Decimal
// throughout rather than float64.
package exchange

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the order direction.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType distinguishes market and limit orders.
type OrderType string

const (
	TypeMarket OrderType = "MARKET"
	TypeLimit  OrderType = "LIMIT"
)

// OrderStatus is the exchange-reported lifecycle state of a placed order.
type OrderStatus string

const (
	StatusNew      OrderStatus = "NEW"
	StatusPartial  OrderStatus = "PARTIALLY_FILLED"
	StatusFilled   OrderStatus = "FILLED"
	StatusCanceled OrderStatus = "CANCELED"
	StatusRejected OrderStatus = "REJECTED"
)

// ErrorClass is the exchange error taxonomy, used by callers to decide
// whether to retry.
type ErrorClass string

const (
	ErrorTransient        ErrorClass = "transient"
	ErrorRateLimited      ErrorClass = "rate_limited"
	ErrorRejected         ErrorClass = "rejected"
	ErrorInsufficientFunds ErrorClass = "insufficient_funds"
	ErrorInvalidParam     ErrorClass = "invalid_param"
)

// Error wraps an exchange failure with its retry classification.
type Error struct {
	Class ErrorClass
	Err   error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether err (any error, not just *Error) should be
// retried: true for the transient and rate-limited classes.
func Retryable(err error) bool {
	var e *Error
	if !asError(err, &e) {
		return false
	}
	return e.Class == ErrorTransient || e.Class == ErrorRateLimited
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Ticker is getTicker's result.
type Ticker struct {
	Symbol string
	Price  decimal.Decimal
	Bid    decimal.Decimal
	Ask    decimal.Decimal
}

// Candle is getOHLCV's per-bar result.
type Candle struct {
	OpenTime time.Time
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	Volume   decimal.Decimal
}

// OrderRequest is placeOrder's input.
type OrderRequest struct {
	Symbol   string
	Side     Side
	Type     OrderType
	Quantity decimal.Decimal
	Price    decimal.Decimal // zero for market orders
}

// OrderResult is the exchange's view of one order, returned by
// placeOrder and fetchOrder alike.
type OrderResult struct {
	ExchangeOrderID string
	Status          OrderStatus
	FilledQty       decimal.Decimal
	AvgPrice        decimal.Decimal
	Fee             decimal.Decimal
}

// Balance is one asset's free/locked balance from getBalance.
type Balance struct {
	Asset  string
	Free   decimal.Decimal
	Locked decimal.Decimal
}

// SymbolInfo is getExchangeInfo's result for one symbol.
type SymbolInfo struct {
	MinLot   decimal.Decimal
	TickSize decimal.Decimal
	StepSize decimal.Decimal
}

// Exchange is the consumed interface: every domain call Execution and
// RiskManager make against a live or simulated market.
type Exchange interface {
	GetTicker(ctx context.Context, symbol string) (Ticker, error)
	GetOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	FetchOrder(ctx context.Context, exchangeOrderID string) (OrderResult, error)
	CancelOrder(ctx context.Context, exchangeOrderID string) error
	GetBalance(ctx context.Context) ([]Balance, error)
	GetExchangeInfo(ctx context.Context, symbol string) (SymbolInfo, error)
}
