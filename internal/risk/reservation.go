package risk

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/tradingpipeline/internal/protocol"
)

// Ledger is RiskManager's single balance/reservation mutex: every read and
// write of (accountBalance, reservedBalance, reservations[]) crosses it, so
// approval and reservation release are concurrency-safe and exactly one of
// two overcommitting concurrent intents is ever approved, under arbitrary
// goroutine interleaving.
type Ledger struct {
	mu           sync.Mutex
	balance      decimal.Decimal
	reservations map[uuid.UUID]protocol.Reservation
	openRisk     map[string]decimal.Decimal // symbol -> sum of risk_usd for this symbol's open positions
}

// NewLedger constructs a Ledger seeded with the current account balance.
func NewLedger(balance decimal.Decimal) *Ledger {
	return &Ledger{
		balance:      balance,
		reservations: make(map[uuid.UUID]protocol.Reservation),
		openRisk:     make(map[string]decimal.Decimal),
	}
}

// Balance returns the current account balance (post any FILLED deductions).
func (l *Ledger) Balance() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// Available returns balance minus the sum of all outstanding reservations.
func (l *Ledger) Available() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.available()
}

func (l *Ledger) available() decimal.Decimal {
	reserved := decimal.Zero
	for _, r := range l.reservations {
		reserved = reserved.Add(r.ReservedUSD)
	}
	return l.balance.Sub(reserved)
}

// ReservedTotal returns the sum of all outstanding reservations.
func (l *Ledger) ReservedTotal() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := decimal.Zero
	for _, r := range l.reservations {
		total = total.Add(r.ReservedUSD)
	}
	return total
}

// OpenRiskFor returns the currently tracked open-position risk for symbol,
// used by layer 4 (portfolio risk) and layer 5 (correlation cluster).
func (l *Ledger) OpenRiskFor(symbol string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.openRisk[symbol]
}

// TotalOpenRisk sums open risk across every symbol (layer 4 input).
func (l *Ledger) TotalOpenRisk() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := decimal.Zero
	for _, v := range l.openRisk {
		total = total.Add(v)
	}
	return total
}

// ClusterRisk sums open risk across every symbol in cluster.
func (l *Ledger) ClusterRisk(symbols []string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := decimal.Zero
	for _, sym := range symbols {
		total = total.Add(l.openRisk[sym])
	}
	return total
}

// TryReserve is the reservation critical region: recompute available,
// reject if insufficient, else mint a reservation. orderID is generated
// by the caller so it can be embedded in the ValidatedOrder published
// alongside the reservation inside the same critical section (sizing,
// validation, and reservation all happen while the caller still holds
// the result of this call, before releasing control to publish).
func (l *Ledger) TryReserve(orderID uuid.UUID, symbol string, sizeUSD, riskUSD decimal.Decimal, now time.Time) (ok bool, reason protocol.RejectReason) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.available().LessThan(sizeUSD) {
		return false, protocol.ReasonInsufficientAvailable
	}

	l.reservations[orderID] = protocol.Reservation{
		OrderID:     orderID,
		ReservedUSD: sizeUSD,
		CreatedAt:   now,
	}
	l.openRisk[symbol] = l.openRisk[symbol].Add(riskUSD)
	return true, ""
}

// Resolve applies a terminal order.status to orderID's reservation:
// FILLED deducts the reserved amount from balance exactly once and removes
// the reservation; CANCELLED/REJECTED/FAILED just removes it, balance
// unchanged. A second Resolve call for an already-resolved orderID is a
// no-op (idempotent against redelivery).
func (l *Ledger) Resolve(orderID uuid.UUID, symbol string, status protocol.OrderRecordStatus, riskUSD decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	res, ok := l.reservations[orderID]
	if !ok {
		return
	}
	delete(l.reservations, orderID)

	switch status {
	case protocol.OrderRecordFilled:
		l.balance = l.balance.Sub(res.ReservedUSD)
	case protocol.OrderRecordCancelled, protocol.OrderRecordRejected:
		// reservation released, balance unchanged
		l.openRisk[symbol] = l.openRisk[symbol].Sub(riskUSD)
		if l.openRisk[symbol].IsNegative() {
			l.openRisk[symbol] = decimal.Zero
		}
	}
}

// ReleaseOpenRisk removes riskUSD from symbol's tracked open risk when a
// position closes (independent of reservation resolution, which already
// happened at FILLED time).
func (l *Ledger) ReleaseOpenRisk(symbol string, riskUSD decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.openRisk[symbol] = l.openRisk[symbol].Sub(riskUSD)
	if l.openRisk[symbol].IsNegative() {
		l.openRisk[symbol] = decimal.Zero
	}
}

// Resync replaces balance with an exchange-reported value, but never
// increases it speculatively above what's already tracked plus any
// pending reservations.
func (l *Ledger) Resync(exchangeBalance decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if exchangeBalance.LessThan(l.balance) {
		l.balance = exchangeBalance
	}
}
