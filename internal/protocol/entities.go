package protocol

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SignalKind is the directional conclusion a TechnicalAnalysis rule reaches.
type SignalKind string

const (
	SignalBuy  SignalKind = "BUY"
	SignalSell SignalKind = "SELL"
	SignalHold SignalKind = "HOLD"
)

// TradeAction is the directional conclusion Strategy reaches after fusion.
type TradeAction string

const (
	ActionBuy  TradeAction = "BUY"
	ActionSell TradeAction = "SELL"
	ActionHold TradeAction = "HOLD"
)

// PositionSide mirrors TradeAction but names the held side rather than the
// action that created it.
type PositionSide string

const (
	PositionLong  PositionSide = "LONG"
	PositionShort PositionSide = "SHORT"
)

// PositionStatus is the persisted, coarse-grained status of a Position row;
// the in-memory lifecycle state machine (internal/position) has finer
// OPENING/REDUCING/CLOSING states that collapse to OPEN or CLOSED here.
type PositionStatus string

const (
	PositionOpen       PositionStatus = "OPEN"
	PositionClosed     PositionStatus = "CLOSED"
	PositionLiquidated PositionStatus = "LIQUIDATED"
)

// OrderKind distinguishes the primary entry order from its protective exits.
type OrderKind string

const (
	OrderMarket     OrderKind = "MARKET"
	OrderLimit      OrderKind = "LIMIT"
	OrderStopLoss   OrderKind = "STOP_LOSS"
	OrderTakeProfit OrderKind = "TAKE_PROFIT"
)

// OrderRecordStatus is the forward-only lifecycle of a persisted order.
type OrderRecordStatus string

const (
	OrderRecordPending   OrderRecordStatus = "PENDING"
	OrderRecordOpen      OrderRecordStatus = "OPEN"
	OrderRecordFilled    OrderRecordStatus = "FILLED"
	OrderRecordCancelled OrderRecordStatus = "CANCELLED"
	OrderRecordRejected  OrderRecordStatus = "REJECTED"
)

// orderRecordRank gives each status a position in the forward-only sequence
// so callers can reject a downgrade.
var orderRecordRank = map[OrderRecordStatus]int{
	OrderRecordPending:   0,
	OrderRecordOpen:      1,
	OrderRecordFilled:    2,
	OrderRecordCancelled: 2,
	OrderRecordRejected:  2,
}

// CanTransition reports whether moving from "from" to "to" is forward-only.
func CanTransition(from, to OrderRecordStatus) bool {
	return orderRecordRank[to] >= orderRecordRank[from]
}

// RejectReason enumerates every cause RiskManager's validation layers can
// reject an order for.
type RejectReason string

const (
	ReasonLowConfidence              RejectReason = "low_confidence"
	ReasonRRBelowMin                 RejectReason = "rr_below_min"
	ReasonRiskCap                    RejectReason = "risk_cap"
	ReasonPortfolioCap               RejectReason = "portfolio_cap"
	ReasonCorrelationCap             RejectReason = "correlation_cap"
	ReasonInsufficientAvailable      RejectReason = "insufficient_available_balance"
	ReasonBelowMinLotExceedsBudget   RejectReason = "below_min_lot_exceeds_budget"
	ReasonExchangeRejected           RejectReason = "exchange_rejected"
	ReasonTimeout                    RejectReason = "timeout"
)

// Candle is one OHLCV bar for a symbol/timeframe.
type Candle struct {
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
	OpenTime  time.Time       `json:"openTime"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// Valid enforces the OHLCV invariants: h≥max(o,c)≥min(o,c)≥l; v≥0.
func (c Candle) Valid() bool {
	hi := decimal.Max(c.Open, c.Close)
	lo := decimal.Min(c.Open, c.Close)
	return c.High.GreaterThanOrEqual(hi) && hi.GreaterThanOrEqual(lo) && lo.GreaterThanOrEqual(c.Low) && c.Volume.GreaterThanOrEqual(decimal.Zero)
}

// Tick is a single top-of-book market update.
type Tick struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	Timestamp time.Time       `json:"ts"`
}

// IndicatorSnapshot is the set of indicator readings that produced a Signal,
// carried alongside it for audit.
type IndicatorSnapshot map[string]decimal.Decimal

// Signal is one TechnicalAnalysis conclusion for a symbol.
type Signal struct {
	ID         uuid.UUID          `json:"id"`
	Symbol     string             `json:"symbol"`
	Agent      string             `json:"agent"`
	Kind       SignalKind         `json:"kind"`
	Confidence float64            `json:"confidence"`
	EmittedAt  time.Time          `json:"emittedAt"`
	Indicators IndicatorSnapshot  `json:"indicators"`
}

// Valid enforces confidence in [0,1], kind is one of the three values, and
// the signal isn't timestamped in the future.
func (s Signal) Valid() bool {
	if s.Confidence < 0 || s.Confidence > 1 {
		return false
	}
	switch s.Kind {
	case SignalBuy, SignalSell, SignalHold:
	default:
		return false
	}
	return !s.EmittedAt.After(time.Now())
}

// FusionMeta records which strategy and inputs produced a TradeIntent (or a
// rejected decision), for the audit trail.
type FusionMeta struct {
	Strategy        string             `json:"strategy"`
	SignalCount     int                `json:"signalCount"`
	BuyScore        float64            `json:"buyScore"`
	SellScore       float64            `json:"sellScore"`
	HoldScore       float64            `json:"holdScore"`
	ContributingIDs []uuid.UUID        `json:"contributingIds"`
	PerStrategy     map[string]float64 `json:"perStrategy,omitempty"`
}

// TradeIntent is Strategy's fused decision before risk sizing.
type TradeIntent struct {
	ID            uuid.UUID   `json:"id"`
	Symbol        string      `json:"symbol"`
	Action        TradeAction `json:"action"`
	Confidence    float64     `json:"confidence"`
	ExpectedPrice decimal.Decimal `json:"expectedPrice"`
	FusionMeta    FusionMeta  `json:"fusionMeta"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// ValidatedOrder is RiskManager's sized, stopped order for Execution.
type ValidatedOrder struct {
	OrderID       uuid.UUID       `json:"orderId"`
	Symbol        string          `json:"symbol"`
	Side          TradeAction     `json:"side"`
	Quantity      decimal.Decimal `json:"quantity"`
	ExpectedPrice decimal.Decimal `json:"expectedPrice"`
	StopLoss      decimal.Decimal `json:"stopLoss"`
	TakeProfit    decimal.Decimal `json:"takeProfit"`
	ReservedUSD   decimal.Decimal `json:"reservedUsd"`
	IntentID      uuid.UUID       `json:"intentId"`
}

// Reservation is the bookkeeping record RiskManager holds against the
// account balance from approval until a terminal order.status arrives.
type Reservation struct {
	OrderID     uuid.UUID       `json:"orderId"`
	ReservedUSD decimal.Decimal `json:"reservedUsd"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Position is Execution's persisted view of an open or closed position.
type Position struct {
	ID            uuid.UUID       `json:"id"`
	Exchange      string          `json:"exchange"`
	Symbol        string          `json:"symbol"`
	Side          PositionSide    `json:"side"`
	Quantity      decimal.Decimal `json:"qty"`
	AvgEntry      decimal.Decimal `json:"avgEntry"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	StopLoss      decimal.Decimal `json:"stopLoss"`
	TakeProfit    decimal.Decimal `json:"takeProfit"`
	UnrealizedPnl decimal.Decimal `json:"unrealizedPnl"`
	RealizedPnl   decimal.Decimal `json:"realizedPnl"`
	Status        PositionStatus  `json:"status"`
	OpenedAt      time.Time       `json:"openedAt"`
	ClosedAt      *time.Time      `json:"closedAt,omitempty"`
}

// OrderRecord is Execution's persisted view of one exchange order, primary
// or protective (SL/TP).
type OrderRecord struct {
	OrderID         uuid.UUID              `json:"orderId"`
	ExchangeOrderID string                 `json:"exchangeOrderId,omitempty"`
	Kind            OrderKind              `json:"kind"`
	Status          OrderRecordStatus      `json:"status"`
	PositionID      *uuid.UUID             `json:"positionId,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

// RiskAssessment is the immutable audit record RiskManager writes for every
// intent it evaluates, approved or not.
type RiskAssessment struct {
	ID        uuid.UUID      `json:"id"`
	IntentID  uuid.UUID      `json:"intentId"`
	Approved  bool           `json:"approved"`
	RiskScore float64        `json:"riskScore"`
	Reasons   []RejectReason `json:"reasons,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// OrderStatusEvent is Execution's published notice of an order state change.
type OrderStatusEvent struct {
	OrderID   uuid.UUID         `json:"orderId"`
	Status    OrderRecordStatus `json:"status"`
	FilledQty decimal.Decimal   `json:"filledQty"`
	AvgPrice  decimal.Decimal   `json:"avgPrice"`
	Fee       decimal.Decimal   `json:"fee"`
	Timestamp time.Time         `json:"ts"`
}

// IsTerminal reports whether this status resolves the order's reservation.
func (e OrderStatusEvent) IsTerminal() bool {
	switch e.Status {
	case OrderRecordFilled, OrderRecordCancelled, OrderRecordRejected:
		return true
	default:
		return false
	}
}

// PositionUpdateEvent is Execution's published Position snapshot.
type PositionUpdateEvent struct {
	Position Position `json:"position"`
}

// AgentErrorEvent is published on the shared diagnostics topic for any
// non-recoverable handler error.
type AgentErrorEvent struct {
	Agent     string    `json:"agent"`
	Err       string    `json:"error"`
	Fatal     bool      `json:"fatal"`
	Timestamp time.Time `json:"ts"`
}
