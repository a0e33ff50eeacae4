package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
)

// BinanceAdapter is the thin wrapper over adshao/go-binance/v2 that
// satisfies the Exchange contract. Its own reconnection, signing, and
// rate-limit internals are the library's concern, not reimplemented or
// unit-tested here — only the contract and this thin adapter are in scope.
type BinanceAdapter struct {
	client *binance.Client
}

// NewBinanceAdapter constructs an adapter around a configured client.
func NewBinanceAdapter(apiKey, secretKey string, testnet bool) *BinanceAdapter {
	binance.UseTestnet = testnet
	return &BinanceAdapter{client: binance.NewClient(apiKey, secretKey)}
}

func (a *BinanceAdapter) GetTicker(ctx context.Context, symbol string) (Ticker, error) {
	book, err := a.client.NewListBookTickersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return Ticker{}, classify(err)
	}
	if len(book) == 0 {
		return Ticker{}, &Error{Class: ErrorInvalidParam, Err: fmt.Errorf("no book ticker for %s", symbol)}
	}
	bid := parseDecimal(book[0].BidPrice)
	ask := parseDecimal(book[0].AskPrice)
	return Ticker{
		Symbol: symbol,
		Price:  bid.Add(ask).Div(decimal.NewFromInt(2)),
		Bid:    bid,
		Ask:    ask,
	}, nil
}

func (a *BinanceAdapter) GetOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error) {
	klines, err := a.client.NewKlinesService().
		Symbol(symbol).
		Interval(timeframe).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, classify(err)
	}
	out := make([]Candle, len(klines))
	for i, k := range klines {
		out[i] = Candle{
			OpenTime: time.UnixMilli(k.OpenTime),
			Open:     parseDecimal(k.Open),
			High:     parseDecimal(k.High),
			Low:      parseDecimal(k.Low),
			Close:    parseDecimal(k.Close),
			Volume:   parseDecimal(k.Volume),
		}
	}
	return out, nil
}

func (a *BinanceAdapter) PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	svc := a.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(binanceSide(req.Side)).
		Type(binanceType(req.Type)).
		Quantity(req.Quantity.String())
	if req.Type == TypeLimit {
		svc = svc.Price(req.Price.String()).TimeInForce(binance.TimeInForceTypeGTC)
	}
	resp, err := svc.Do(ctx)
	if err != nil {
		return OrderResult{}, classify(err)
	}
	return OrderResult{
		ExchangeOrderID: fmt.Sprintf("%d", resp.OrderID),
		Status:          mapStatus(string(resp.Status)),
		FilledQty:       parseDecimal(resp.ExecutedQuantity),
	}, nil
}

func (a *BinanceAdapter) FetchOrder(ctx context.Context, exchangeOrderID string) (OrderResult, error) {
	var orderID int64
	fmt.Sscanf(exchangeOrderID, "%d", &orderID)
	order, err := a.client.NewGetOrderService().OrderID(orderID).Do(ctx)
	if err != nil {
		return OrderResult{}, classify(err)
	}
	return OrderResult{
		ExchangeOrderID: exchangeOrderID,
		Status:          mapStatus(string(order.Status)),
		FilledQty:       parseDecimal(order.ExecutedQuantity),
		AvgPrice:        parseDecimal(order.Price),
	}, nil
}

func (a *BinanceAdapter) CancelOrder(ctx context.Context, exchangeOrderID string) error {
	var orderID int64
	fmt.Sscanf(exchangeOrderID, "%d", &orderID)
	_, err := a.client.NewCancelOrderService().OrderID(orderID).Do(ctx)
	if err != nil {
		return classify(err)
	}
	return nil
}

func (a *BinanceAdapter) GetBalance(ctx context.Context) ([]Balance, error) {
	account, err := a.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, classify(err)
	}
	out := make([]Balance, len(account.Balances))
	for i, b := range account.Balances {
		out[i] = Balance{Asset: b.Asset, Free: parseDecimal(b.Free), Locked: parseDecimal(b.Locked)}
	}
	return out, nil
}

func (a *BinanceAdapter) GetExchangeInfo(ctx context.Context, symbol string) (SymbolInfo, error) {
	info, err := a.client.NewExchangeInfoService().Symbol(symbol).Do(ctx)
	if err != nil {
		return SymbolInfo{}, classify(err)
	}
	if len(info.Symbols) == 0 {
		return SymbolInfo{}, &Error{Class: ErrorInvalidParam, Err: fmt.Errorf("unknown symbol %s", symbol)}
	}
	sym := info.Symbols[0]
	var result SymbolInfo
	for _, f := range sym.Filters {
		switch f["filterType"] {
		case "LOT_SIZE":
			result.MinLot = parseDecimal(fmt.Sprint(f["minQty"]))
			result.StepSize = parseDecimal(fmt.Sprint(f["stepSize"]))
		case "PRICE_FILTER":
			result.TickSize = parseDecimal(fmt.Sprint(f["tickSize"]))
		}
	}
	return result, nil
}

func binanceSide(s Side) binance.SideType {
	if s == SideSell {
		return binance.SideTypeSell
	}
	return binance.SideTypeBuy
}

func binanceType(t OrderType) binance.OrderType {
	if t == TypeLimit {
		return binance.OrderTypeLimit
	}
	return binance.OrderTypeMarket
}

func mapStatus(status string) OrderStatus {
	switch status {
	case "FILLED":
		return StatusFilled
	case "PARTIALLY_FILLED":
		return StatusPartial
	case "CANCELED":
		return StatusCanceled
	case "REJECTED", "EXPIRED":
		return StatusRejected
	default:
		return StatusNew
	}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// classify maps a go-binance error to the transient/rate-limited/
// rejected/insufficient-funds/invalid-param taxonomy ErrorClass defines,
// since the library surfaces API error codes rather than typed classes
// itself.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if apiErr, ok := err.(*binance.APIError); ok {
		switch apiErr.Code {
		case -1003, -1015:
			return &Error{Class: ErrorRateLimited, Err: err}
		case -2010, -2019:
			return &Error{Class: ErrorInsufficientFunds, Err: err}
		case -1100, -1101, -1102, -1106:
			return &Error{Class: ErrorInvalidParam, Err: err}
		case -2011:
			return &Error{Class: ErrorRejected, Err: err}
		default:
			return &Error{Class: ErrorTransient, Err: err}
		}
	}
	return &Error{Class: ErrorTransient, Err: err}
}
