//go:build integration

package relational

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ajitpratap0/tradingpipeline/internal/protocol"
)

// setupStore starts a disposable PostgreSQL container, runs Migrate
// against it, and tears both down when the test finishes.
func setupStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("tradingpipeline_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("testpassword"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(pool.Close)

	s := New(pool)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestStoreRoundTripsPositionAgainstRealPostgres(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	p := protocol.Position{
		ID: uuid.New(), Exchange: "binance", Symbol: "BTC/USDT", Side: protocol.PositionLong,
		Quantity: decimal.NewFromFloat(0.001), AvgEntry: decimal.NewFromInt(120000),
		CurrentPrice: decimal.NewFromInt(120000), StopLoss: decimal.NewFromInt(117000),
		TakeProfit: decimal.NewFromInt(126000), UnrealizedPnl: decimal.Zero, RealizedPnl: decimal.Zero,
		Status: protocol.PositionOpen, OpenedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := s.UpsertPosition(ctx, p); err != nil {
		t.Fatalf("UpsertPosition: %v", err)
	}

	open, err := s.OpenPositions(ctx)
	if err != nil {
		t.Fatalf("OpenPositions: %v", err)
	}
	if len(open) != 1 || open[0].ID != p.ID {
		t.Fatalf("expected the position just inserted to come back open, got %+v", open)
	}
	if !open[0].AvgEntry.Equal(p.AvgEntry) {
		t.Errorf("AvgEntry round-trip mismatch: got %s want %s", open[0].AvgEntry, p.AvgEntry)
	}

	p.Status = protocol.PositionClosed
	p.ClosedAt = &p.OpenedAt
	if err := s.UpsertPosition(ctx, p); err != nil {
		t.Fatalf("UpsertPosition (close): %v", err)
	}
	closedList, err := s.OpenPositions(ctx)
	if err != nil {
		t.Fatalf("OpenPositions after close: %v", err)
	}
	for _, pos := range closedList {
		if pos.ID == p.ID {
			t.Fatalf("expected closed position to drop out of OpenPositions")
		}
	}
}

func TestStorePersistsSignalAndRiskAssessment(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	sig := protocol.Signal{
		ID: uuid.New(), Symbol: "ETH/USDT", Agent: "technical-analysis", Kind: protocol.SignalBuy,
		Confidence: 0.72, EmittedAt: time.Now().UTC().Truncate(time.Microsecond),
		Indicators: protocol.IndicatorSnapshot{"rsi": decimal.NewFromInt(27)},
	}
	if err := s.InsertSignal(ctx, sig); err != nil {
		t.Fatalf("InsertSignal: %v", err)
	}
	// Re-inserting the same id must be a no-op, not a conflict error.
	if err := s.InsertSignal(ctx, sig); err != nil {
		t.Fatalf("InsertSignal (duplicate id): %v", err)
	}

	assessment := protocol.RiskAssessment{
		ID: uuid.New(), IntentID: uuid.New(), Approved: false, RiskScore: 0.9,
		Reasons: []protocol.RejectReason{protocol.ReasonLowConfidence, protocol.ReasonRiskCap},
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := s.InsertRiskAssessment(ctx, assessment); err != nil {
		t.Fatalf("InsertRiskAssessment: %v", err)
	}
}
