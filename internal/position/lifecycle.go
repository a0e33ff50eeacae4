// Package position implements Execution's position lifecycle: the
// NONE/OPENING/OPEN/REDUCING/CLOSING/CLOSED state machine, PnL accrual,
// and the periodic SL/TP monitor, all guarded per-symbol so distinct
// symbols proceed in parallel (Execution owns a per-symbol position
// mutex). The per-resource lock pattern follows
// internal/risk/circuit_breaker.go's per-service lock; every PnL and
// quantity computation uses shopspring/decimal.
package position

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/tradingpipeline/internal/protocol"
)

// State is one of the six position lifecycle states.
type State string

const (
	StateNone     State = "NONE"
	StateOpening  State = "OPENING"
	StateOpen     State = "OPEN"
	StateReducing State = "REDUCING"
	StateClosing  State = "CLOSING"
	StateClosed   State = "CLOSED"
)

// validTransitions enumerates the lifecycle's forward-only edges.
var validTransitions = map[State]map[State]bool{
	StateNone:     {StateOpening: true},
	StateOpening:  {StateOpening: true, StateOpen: true, StateClosing: true},
	StateOpen:     {StateReducing: true, StateClosing: true},
	StateReducing: {StateOpen: true, StateReducing: true, StateClosing: true},
	StateClosing:  {StateClosed: true},
	StateClosed:   {},
}

// CanTransition reports whether moving from "from" to "to" is a legal,
// forward-only edge in the state machine.
func CanTransition(from, to State) bool {
	return validTransitions[from][to]
}

// Tracked is Execution's in-memory view of one position plus its
// lifecycle state (a superset of protocol.Position's persisted,
// coarser-grained status).
type Tracked struct {
	Position protocol.Position
	State    State
	// costBasis is the running cost basis (avgEntry*qty) used by the
	// remaining-basis method to accrue realized PnL on reductions.
	costBasis decimal.Decimal
}

// Manager owns every tracked position, one mutex per symbol so distinct
// symbols proceed independently.
type Manager struct {
	mu        sync.Mutex
	locks     map[string]*sync.Mutex
	positions map[string]*Tracked // keyed by exchange+":"+symbol
}

// NewManager constructs an empty position Manager.
func NewManager() *Manager {
	return &Manager{
		locks:     make(map[string]*sync.Mutex),
		positions: make(map[string]*Tracked),
	}
}

func (m *Manager) lockFor(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

func key(exchange, symbol string) string { return exchange + ":" + symbol }

// Open starts a new position in OPENING on ValidatedOrder approval
// (NONE -> OPENING). It fails if a position already exists for
// (exchange,symbol) and isn't NONE/CLOSED: only one open position is
// allowed per exchange/symbol.
func (m *Manager) Open(exchange, symbol string, side protocol.PositionSide, now time.Time) (*Tracked, error) {
	k := key(exchange, symbol)
	lock := m.lockFor(k)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	existing, ok := m.positions[k]
	m.mu.Unlock()

	if ok && existing.State != StateClosed {
		return nil, fmt.Errorf("position already %s for %s", existing.State, k)
	}

	tracked := &Tracked{
		Position: protocol.Position{
			ID:       uuid.New(),
			Exchange: exchange,
			Symbol:   symbol,
			Side:     side,
			Status:   protocol.PositionOpen,
			OpenedAt: now,
		},
		State: StateOpening,
	}
	m.mu.Lock()
	m.positions[k] = tracked
	m.mu.Unlock()
	return tracked, nil
}

// RecordFill applies a fill to an OPENING position: partial fills keep
// it OPENING with a running weighted-average entry; a fill that
// completes the requested quantity moves it to OPEN.
func (m *Manager) RecordFill(exchange, symbol string, fillQty, fillPrice, requestedQty decimal.Decimal) (*Tracked, error) {
	k := key(exchange, symbol)
	lock := m.lockFor(k)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	tracked, ok := m.positions[k]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no tracked position for %s", k)
	}
	if tracked.State != StateOpening {
		return nil, fmt.Errorf("cannot record fill while position is %s", tracked.State)
	}

	totalQtyBefore := tracked.Position.Quantity
	newQty := totalQtyBefore.Add(fillQty)
	if newQty.IsPositive() {
		weighted := tracked.Position.AvgEntry.Mul(totalQtyBefore).Add(fillPrice.Mul(fillQty))
		tracked.Position.AvgEntry = weighted.Div(newQty)
	}
	tracked.Position.Quantity = newQty
	tracked.costBasis = tracked.Position.AvgEntry.Mul(newQty)

	if newQty.GreaterThanOrEqual(requestedQty) {
		tracked.State = StateOpen
	}
	return tracked, nil
}

// BeginReduce transitions OPEN -> REDUCING for a partial close.
func (m *Manager) BeginReduce(exchange, symbol string) error {
	return m.transition(exchange, symbol, StateOpen, StateReducing)
}

// FinishReduce returns to OPEN if remaining qty>0, else moves to CLOSING.
func (m *Manager) FinishReduce(exchange, symbol string, remainingQty decimal.Decimal) error {
	k := key(exchange, symbol)
	lock := m.lockFor(k)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	tracked, ok := m.positions[k]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("no tracked position for %s", k)
	}
	if tracked.State != StateReducing {
		return fmt.Errorf("cannot finish reduce while position is %s", tracked.State)
	}
	if remainingQty.IsPositive() {
		tracked.State = StateOpen
	} else {
		tracked.State = StateClosing
	}
	return nil
}

// BeginClose transitions OPEN or REDUCING to CLOSING on an SL/TP trigger
// or external close request.
func (m *Manager) BeginClose(exchange, symbol string) error {
	k := key(exchange, symbol)
	lock := m.lockFor(k)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	tracked, ok := m.positions[k]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("no tracked position for %s", k)
	}
	if tracked.State != StateOpen && tracked.State != StateReducing {
		if tracked.State == StateClosing {
			return nil // idempotent: already closing
		}
		return fmt.Errorf("cannot begin close while position is %s", tracked.State)
	}
	tracked.State = StateClosing
	return nil
}

// Finalize transitions CLOSING -> CLOSED, finalizing realizedPnl.
func (m *Manager) Finalize(exchange, symbol string, closePrice decimal.Decimal, now time.Time) (*Tracked, error) {
	k := key(exchange, symbol)
	lock := m.lockFor(k)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	tracked, ok := m.positions[k]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no tracked position for %s", k)
	}
	if tracked.State == StateClosed {
		return tracked, nil // idempotent under restart/redelivery
	}
	if tracked.State != StateClosing {
		return nil, fmt.Errorf("cannot finalize while position is %s", tracked.State)
	}

	realized := UnrealizedPnL(tracked.Position.Side, tracked.Position.AvgEntry, closePrice, tracked.Position.Quantity)
	tracked.Position.RealizedPnl = tracked.Position.RealizedPnl.Add(realized)
	tracked.Position.CurrentPrice = closePrice
	tracked.Position.UnrealizedPnl = decimal.Zero
	tracked.Position.Status = protocol.PositionClosed
	closedAt := now
	tracked.Position.ClosedAt = &closedAt
	tracked.State = StateClosed
	return tracked, nil
}

func (m *Manager) transition(exchange, symbol string, from, to State) error {
	k := key(exchange, symbol)
	lock := m.lockFor(k)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	tracked, ok := m.positions[k]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("no tracked position for %s", k)
	}
	if tracked.State != from {
		return fmt.Errorf("expected state %s, got %s", from, tracked.State)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("illegal transition %s -> %s", from, to)
	}
	tracked.State = to
	return nil
}

// Get returns the tracked position for (exchange,symbol), if any.
func (m *Manager) Get(exchange, symbol string) (*Tracked, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.positions[key(exchange, symbol)]
	return t, ok
}

// OpenPositions returns every position currently tracked as OPEN
// (includes OPENING/REDUCING, since those also represent exchange
// exposure that must survive a restart).
func (m *Manager) OpenPositions() []*Tracked {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Tracked
	for _, t := range m.positions {
		if t.State == StateOpen || t.State == StateOpening || t.State == StateReducing || t.State == StateClosing {
			out = append(out, t)
		}
	}
	return out
}

// Restore reinserts a position loaded from the relational store at
// startup, for restart recovery, reconstructing it as OPEN.
func (m *Manager) Restore(pos protocol.Position) {
	k := key(pos.Exchange, pos.Symbol)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[k] = &Tracked{
		Position:  pos,
		State:     StateOpen,
		costBasis: pos.AvgEntry.Mul(pos.Quantity),
	}
}

