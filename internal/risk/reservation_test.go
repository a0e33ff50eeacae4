package risk

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ajitpratap0/tradingpipeline/internal/protocol"
)

func TestTryReserveRejectsInsufficientAvailable(t *testing.T) {
	l := NewLedger(d(1000))
	now := time.Now()

	ok, _ := l.TryReserve(uuid.New(), "BTC/USDT", d(600), d(50), now)
	if !ok {
		t.Fatal("expected the first $600 reservation against a $1000 balance to succeed")
	}
	ok, reason := l.TryReserve(uuid.New(), "BTC/USDT", d(600), d(50), now)
	if ok {
		t.Fatal("expected a second $600 reservation to be rejected with only $400 available")
	}
	if reason != protocol.ReasonInsufficientAvailable {
		t.Errorf("expected insufficient_available_balance, got %q", reason)
	}
}

func TestResolveFilledDeductsBalanceOnce(t *testing.T) {
	l := NewLedger(d(1000))
	now := time.Now()
	orderID := uuid.New()
	l.TryReserve(orderID, "BTC/USDT", d(600), d(50), now)

	l.Resolve(orderID, "BTC/USDT", protocol.OrderRecordFilled, d(50))
	if !l.Balance().Equal(d(400)) {
		t.Fatalf("expected balance deducted to 400 after FILLED, got %s", l.Balance())
	}

	// Redelivered resolve must be a no-op.
	l.Resolve(orderID, "BTC/USDT", protocol.OrderRecordFilled, d(50))
	if !l.Balance().Equal(d(400)) {
		t.Errorf("expected a redelivered FILLED resolve not to double-deduct, got %s", l.Balance())
	}
}

func TestResolveCancelledReleasesWithoutDeductingBalance(t *testing.T) {
	l := NewLedger(d(1000))
	now := time.Now()
	orderID := uuid.New()
	l.TryReserve(orderID, "BTC/USDT", d(600), d(50), now)

	l.Resolve(orderID, "BTC/USDT", protocol.OrderRecordCancelled, d(50))
	if !l.Balance().Equal(d(1000)) {
		t.Errorf("expected balance untouched by a CANCELLED resolve, got %s", l.Balance())
	}
	if !l.Available().Equal(d(1000)) {
		t.Errorf("expected reservation released so full balance is available again, got %s", l.Available())
	}
	if !l.OpenRiskFor("BTC/USDT").IsZero() {
		t.Errorf("expected open risk released on CANCELLED, got %s", l.OpenRiskFor("BTC/USDT"))
	}
}

func TestClusterRiskSumsAcrossSymbols(t *testing.T) {
	l := NewLedger(d(100000))
	now := time.Now()
	l.TryReserve(uuid.New(), "BTC/USDT", d(100), d(30), now)
	l.TryReserve(uuid.New(), "ETH/USDT", d(100), d(20), now)

	total := l.ClusterRisk([]string{"BTC/USDT", "ETH/USDT"})
	if !total.Equal(d(50)) {
		t.Errorf("expected cluster risk 30+20=50, got %s", total)
	}
}

func TestResyncNeverIncreasesBalanceSpeculatively(t *testing.T) {
	l := NewLedger(d(1000))
	l.Resync(d(1200))
	if !l.Balance().Equal(d(1000)) {
		t.Errorf("expected Resync not to raise balance above tracked value, got %s", l.Balance())
	}
	l.Resync(d(900))
	if !l.Balance().Equal(d(900)) {
		t.Errorf("expected Resync to adopt a lower exchange-reported balance, got %s", l.Balance())
	}
}

// TestConcurrentTryReserveOnlyOneSucceeds verifies that two concurrent
// intents each reserving more than half the balance result in exactly one
// approval.
func TestConcurrentTryReserveOnlyOneSucceeds(t *testing.T) {
	l := NewLedger(d(1000))
	now := time.Now()

	var wg sync.WaitGroup
	results := make([]bool, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			ok, _ := l.TryReserve(uuid.New(), "BTC/USDT", d(700), d(50), now)
			results[idx] = ok
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, ok := range results {
		if ok {
			successes++
		}
	}
	if successes != 1 {
		t.Errorf("expected exactly one of two overcommitting concurrent reservations to succeed, got %d", successes)
	}
}
