package relational

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/tradingpipeline/internal/protocol"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)
	return &Store{pool: mock}, mock
}

func TestInsertSignalIssuesUpsert(t *testing.T) {
	s, mock := newMockStore(t)
	sig := protocol.Signal{
		ID: uuid.New(), Symbol: "BTC/USDT", Agent: "ta", Kind: protocol.SignalBuy,
		Confidence: 0.8, EmittedAt: time.Now(),
		Indicators: protocol.IndicatorSnapshot{"rsi": decimal.NewFromInt(28)},
	}
	mock.ExpectExec("INSERT INTO signals").WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := s.InsertSignal(context.Background(), sig); err != nil {
		t.Fatalf("InsertSignal: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUpsertPositionIssuesUpsert(t *testing.T) {
	s, mock := newMockStore(t)
	p := protocol.Position{
		ID: uuid.New(), Exchange: "binance", Symbol: "BTC/USDT", Side: protocol.PositionLong,
		Quantity: decimal.NewFromFloat(0.001), AvgEntry: decimal.NewFromInt(120000),
		Status: protocol.PositionOpen, OpenedAt: time.Now(),
	}
	mock.ExpectExec("INSERT INTO positions").WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := s.UpsertPosition(context.Background(), p); err != nil {
		t.Fatalf("UpsertPosition: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestInsertRiskAssessmentSerializesReasons(t *testing.T) {
	s, mock := newMockStore(t)
	a := protocol.RiskAssessment{
		ID: uuid.New(), IntentID: uuid.New(), Approved: false,
		Reasons: []protocol.RejectReason{protocol.ReasonLowConfidence}, CreatedAt: time.Now(),
	}
	mock.ExpectExec("INSERT INTO risk_assessments").WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := s.InsertRiskAssessment(context.Background(), a); err != nil {
		t.Fatalf("InsertRiskAssessment: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestOpenPositionsScansRows(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()
	id := uuid.New()
	rows := pgxmock.NewRows([]string{
		"id", "exchange", "symbol", "side", "quantity", "avg_entry", "current_price",
		"stop_loss", "take_profit", "unrealized_pnl", "realized_pnl", "status", "opened_at", "closed_at",
	}).AddRow(id, "binance", "BTC/USDT", protocol.PositionLong, decimal.NewFromFloat(0.001),
		decimal.NewFromInt(120000), decimal.NewFromInt(120000), decimal.NewFromInt(117000),
		decimal.NewFromInt(126000), decimal.Zero, decimal.Zero, protocol.PositionOpen, now, (*time.Time)(nil))

	mock.ExpectQuery("SELECT (.|\\n)* FROM positions WHERE status").WillReturnRows(rows)

	got, err := s.OpenPositions(context.Background())
	if err != nil {
		t.Fatalf("OpenPositions: %v", err)
	}
	if len(got) != 1 || got[0].ID != id {
		t.Fatalf("expected one restored position with id %s, got %+v", id, got)
	}
}

func TestInsertCandleIssuesUpsert(t *testing.T) {
	s, mock := newMockStore(t)
	c := protocol.Candle{
		Open: decimal.NewFromInt(120000), High: decimal.NewFromInt(120500),
		Low: decimal.NewFromInt(119800), Close: decimal.NewFromInt(120200),
		Volume: decimal.NewFromFloat(12.5),
	}
	mock.ExpectExec("INSERT INTO candles").WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := s.InsertCandle(context.Background(), "BTC/USDT", "1m", c, time.Now()); err != nil {
		t.Fatalf("InsertCandle: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRecentCandlesReturnsOldestFirst(t *testing.T) {
	s, mock := newMockStore(t)
	rows := pgxmock.NewRows([]string{"open", "high", "low", "close", "volume"}).
		AddRow(decimal.NewFromInt(2), decimal.NewFromInt(3), decimal.NewFromInt(1), decimal.NewFromInt(2), decimal.NewFromInt(1)).
		AddRow(decimal.NewFromInt(1), decimal.NewFromInt(2), decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.NewFromInt(1))
	mock.ExpectQuery("SELECT (.|\\n)* FROM candles").WillReturnRows(rows)

	got, err := s.RecentCandles(context.Background(), "BTC/USDT", "1m", 2)
	if err != nil {
		t.Fatalf("RecentCandles: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(got))
	}
	// The query returns newest-first (DESC); RecentCandles must reverse it
	// so callers see oldest-first, matching Window.Push's append order.
	if !got[0].Close.Equal(decimal.NewFromInt(1)) || !got[1].Close.Equal(decimal.NewFromInt(2)) {
		t.Errorf("expected oldest-first ordering, got %+v", got)
	}
}
