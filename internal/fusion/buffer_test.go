package fusion

import (
	"testing"
	"time"

	"github.com/ajitpratap0/tradingpipeline/internal/protocol"
)

func TestBufferPrunesByAge(t *testing.T) {
	now := time.Now()
	b := NewBuffer(time.Minute, 50)
	b.Add(sig(protocol.SignalBuy, 0.7, "rsi", 2*time.Minute, now), now)
	b.Add(sig(protocol.SignalBuy, 0.8, "macd", 10*time.Second, now), now)

	snap := b.Snapshot("ETH/USDT", now)
	if len(snap) != 1 {
		t.Fatalf("expected stale signal pruned, got %d entries", len(snap))
	}
	if snap[0].Agent != "macd" {
		t.Errorf("expected the fresh signal to survive, got %q", snap[0].Agent)
	}
}

func TestBufferPrunesBySizeKeepingMostRecent(t *testing.T) {
	now := time.Now()
	b := NewBuffer(time.Hour, 2)
	b.Add(sig(protocol.SignalBuy, 0.5, "a", 3*time.Second, now), now)
	b.Add(sig(protocol.SignalBuy, 0.6, "b", 2*time.Second, now), now)
	b.Add(sig(protocol.SignalBuy, 0.7, "c", 1*time.Second, now), now)

	snap := b.Snapshot("ETH/USDT", now)
	if len(snap) != 2 {
		t.Fatalf("expected buffer capped at 2, got %d", len(snap))
	}
	if snap[0].Agent != "b" || snap[1].Agent != "c" {
		t.Errorf("expected the oldest entry dropped first, got %q then %q", snap[0].Agent, snap[1].Agent)
	}
}

func TestBufferIsPerSymbol(t *testing.T) {
	now := time.Now()
	b := NewBuffer(time.Hour, 50)
	btc := sig(protocol.SignalBuy, 0.7, "rsi", 0, now)
	btc.Symbol = "BTC/USDT"
	b.Add(btc, now)

	eth := sig(protocol.SignalSell, 0.7, "rsi", 0, now)
	eth.Symbol = "ETH/USDT"
	b.Add(eth, now)

	if len(b.Snapshot("BTC/USDT", now)) != 1 || len(b.Snapshot("ETH/USDT", now)) != 1 {
		t.Error("expected each symbol's buffer to be independent")
	}
}
