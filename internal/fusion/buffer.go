// Package fusion implements Strategy's signal-fusion decision: a
// per-symbol buffer of recent TechnicalAnalysis signals, four selectable
// fusion strategies over that buffer, and the emission gate that turns a
// fused decision into a TradeIntent. Combining several scored inputs into
// one discrete decision follows internal/risk's threshold- and
// weighted-scoring style; per-decision observability follows
// internal/metrics.
package fusion

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ajitpratap0/tradingpipeline/internal/protocol"
)

// Buffer holds a per-symbol ordered set of recently received signals,
// pruned by age (signal_timeout) and size (buffer_max).
type Buffer struct {
	mu           sync.Mutex
	signalTTL    time.Duration
	maxSize      int
	bySymbol     map[string][]protocol.Signal
}

// NewBuffer constructs a Buffer pruning entries older than signalTTL and
// capping each symbol's signal count at maxSize.
func NewBuffer(signalTTL time.Duration, maxSize int) *Buffer {
	return &Buffer{
		signalTTL: signalTTL,
		maxSize:   maxSize,
		bySymbol:  make(map[string][]protocol.Signal),
	}
}

// Add appends a signal to its symbol's buffer, then prunes.
func (b *Buffer) Add(sig protocol.Signal, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := append(b.bySymbol[sig.Symbol], sig)
	b.bySymbol[sig.Symbol] = b.prune(entries, now)
}

// Snapshot returns the current pruned buffer contents for symbol, oldest
// first. The returned slice is a copy safe for the caller to read freely.
func (b *Buffer) Snapshot(symbol string, now time.Time) []protocol.Signal {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.prune(b.bySymbol[symbol], now)
	b.bySymbol[symbol] = entries

	out := make([]protocol.Signal, len(entries))
	copy(out, entries)
	return out
}

// prune drops signals older than signalTTL, then trims to maxSize keeping
// the most recent (oldest dropped first). Caller must hold b.mu.
func (b *Buffer) prune(entries []protocol.Signal, now time.Time) []protocol.Signal {
	kept := entries[:0]
	for _, s := range entries {
		if b.signalTTL <= 0 || now.Sub(s.EmittedAt) <= b.signalTTL {
			kept = append(kept, s)
		}
	}
	if b.maxSize > 0 && len(kept) > b.maxSize {
		kept = kept[len(kept)-b.maxSize:]
	}
	return kept
}

// Symbols returns the set of symbols with any buffered entries.
func (b *Buffer) Symbols() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, 0, len(b.bySymbol))
	for sym := range b.bySymbol {
		out = append(out, sym)
	}
	return out
}

// contributingIDs collects the uuid of every signal in B, for FusionMeta's
// audit trail.
func contributingIDs(buf []protocol.Signal) []uuid.UUID {
	ids := make([]uuid.UUID, len(buf))
	for i, s := range buf {
		ids[i] = s.ID
	}
	return ids
}
