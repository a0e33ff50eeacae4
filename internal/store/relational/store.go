// Package relational persists the pipeline's durable audit trail —
// positions, orders, risk assessments, strategy decisions, and periodic
// performance snapshots — to PostgreSQL via jackc/pgx/v5's connection
// pool, the same driver internal/config.DatabaseConfig.GetDSN targets.
package relational

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/tradingpipeline/internal/protocol"
)

// Store wraps a pgx connection pool and the SQL every agent needs to
// persist its durable audit records.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to PostgreSQL at dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open relational store: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping relational store: %w", err)
	}
	return &Store{pool: pool}, nil
}

// New wraps an already-constructed pool, for callers (tests) that build
// their own pgxmock- or testcontainers-backed pool.
func New(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

// Close releases the pool's connections.
func (s *Store) Close() { s.pool.Close() }

// Pool exposes the underlying connection pool for callers that need
// aggregate queries beyond Store's own method set (internal/metrics.Updater's
// periodic performance rollups).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Migrate creates every table this store needs if absent. Idempotent;
// safe to call on every process start.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("migrate relational store: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS signals (
	id UUID PRIMARY KEY,
	symbol TEXT NOT NULL,
	agent TEXT NOT NULL,
	kind TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	indicators JSONB NOT NULL,
	emitted_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS strategy_decisions (
	id UUID PRIMARY KEY,
	symbol TEXT NOT NULL,
	action TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	strategy TEXT NOT NULL,
	signal_count INT NOT NULL,
	contributing_ids UUID[] NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS risk_assessments (
	id UUID PRIMARY KEY,
	intent_id UUID NOT NULL,
	approved BOOLEAN NOT NULL,
	risk_score DOUBLE PRECISION NOT NULL,
	reasons TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
	order_id UUID PRIMARY KEY,
	exchange_order_id TEXT,
	symbol TEXT NOT NULL,
	kind TEXT NOT NULL,
	status TEXT NOT NULL,
	position_id UUID,
	metadata JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
	id UUID PRIMARY KEY,
	exchange TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity NUMERIC NOT NULL,
	avg_entry NUMERIC NOT NULL,
	current_price NUMERIC NOT NULL,
	stop_loss NUMERIC NOT NULL,
	take_profit NUMERIC NOT NULL,
	unrealized_pnl NUMERIC NOT NULL,
	realized_pnl NUMERIC NOT NULL,
	status TEXT NOT NULL,
	opened_at TIMESTAMPTZ NOT NULL,
	closed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS trades (
	id UUID PRIMARY KEY,
	position_id UUID NOT NULL REFERENCES positions(id),
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity NUMERIC NOT NULL,
	price NUMERIC NOT NULL,
	fee NUMERIC NOT NULL,
	realized_pnl NUMERIC,
	executed_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS performance_snapshots (
	id UUID PRIMARY KEY,
	taken_at TIMESTAMPTZ NOT NULL,
	balance NUMERIC NOT NULL,
	equity NUMERIC NOT NULL,
	open_positions INT NOT NULL,
	realized_pnl_24h NUMERIC NOT NULL,
	win_rate DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS candles (
	symbol TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	ts TIMESTAMPTZ NOT NULL,
	open NUMERIC NOT NULL,
	high NUMERIC NOT NULL,
	low NUMERIC NOT NULL,
	close NUMERIC NOT NULL,
	volume NUMERIC NOT NULL,
	PRIMARY KEY (symbol, timeframe, ts)
);

CREATE INDEX IF NOT EXISTS idx_signals_symbol_emitted ON signals(symbol, emitted_at DESC);
CREATE INDEX IF NOT EXISTS idx_orders_symbol_status ON orders(symbol, status);
CREATE INDEX IF NOT EXISTS idx_positions_symbol_status ON positions(symbol, status);
CREATE INDEX IF NOT EXISTS idx_trades_position ON trades(position_id);
CREATE INDEX IF NOT EXISTS idx_candles_symbol_timeframe_ts ON candles(symbol, timeframe, ts DESC);
`

// InsertSignal persists one TechnicalAnalysis signal for audit.
func (s *Store) InsertSignal(ctx context.Context, sig protocol.Signal) error {
	indicators := make(map[string]string, len(sig.Indicators))
	for k, v := range sig.Indicators {
		indicators[k] = v.String()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO signals (id, symbol, agent, kind, confidence, indicators, emitted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO NOTHING`,
		sig.ID, sig.Symbol, sig.Agent, sig.Kind, sig.Confidence, indicators, sig.EmittedAt)
	return err
}

// InsertStrategyDecision persists one Strategy fusion outcome.
func (s *Store) InsertStrategyDecision(ctx context.Context, id uuid.UUID, symbol string, action protocol.TradeAction, meta protocol.FusionMeta, createdAt time.Time) error {
	var conf float64
	switch action {
	case protocol.ActionBuy:
		conf = meta.BuyScore
	case protocol.ActionSell:
		conf = meta.SellScore
	default:
		conf = meta.HoldScore
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO strategy_decisions (id, symbol, action, confidence, strategy, signal_count, contributing_ids, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO NOTHING`,
		id, symbol, action, conf, meta.Strategy, meta.SignalCount, meta.ContributingIDs, createdAt)
	return err
}

// InsertRiskAssessment persists RiskManager's audit record for one intent,
// approved or rejected.
func (s *Store) InsertRiskAssessment(ctx context.Context, a protocol.RiskAssessment) error {
	reasons := make([]string, len(a.Reasons))
	for i, r := range a.Reasons {
		reasons[i] = string(r)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO risk_assessments (id, intent_id, approved, risk_score, reasons, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO NOTHING`,
		a.ID, a.IntentID, a.Approved, a.RiskScore, reasons, a.CreatedAt)
	return err
}

// UpsertOrder persists or updates an order's status.
func (s *Store) UpsertOrder(ctx context.Context, o protocol.OrderRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO orders (order_id, exchange_order_id, symbol, kind, status, position_id, metadata, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (order_id) DO UPDATE SET
			exchange_order_id = EXCLUDED.exchange_order_id,
			status = EXCLUDED.status,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at`,
		o.OrderID, o.ExchangeOrderID, symbolFromMetadata(o), o.Kind, o.Status, o.PositionID, o.Metadata, o.CreatedAt, o.UpdatedAt)
	return err
}

func symbolFromMetadata(o protocol.OrderRecord) string {
	if sym, ok := o.Metadata["symbol"].(string); ok {
		return sym
	}
	return ""
}

// UpsertPosition persists or updates a position snapshot.
func (s *Store) UpsertPosition(ctx context.Context, p protocol.Position) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO positions (id, exchange, symbol, side, quantity, avg_entry, current_price, stop_loss, take_profit, unrealized_pnl, realized_pnl, status, opened_at, closed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (id) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			avg_entry = EXCLUDED.avg_entry,
			current_price = EXCLUDED.current_price,
			stop_loss = EXCLUDED.stop_loss,
			take_profit = EXCLUDED.take_profit,
			unrealized_pnl = EXCLUDED.unrealized_pnl,
			realized_pnl = EXCLUDED.realized_pnl,
			status = EXCLUDED.status,
			closed_at = EXCLUDED.closed_at`,
		p.ID, p.Exchange, p.Symbol, p.Side, p.Quantity, p.AvgEntry, p.CurrentPrice, p.StopLoss, p.TakeProfit, p.UnrealizedPnl, p.RealizedPnl, p.Status, p.OpenedAt, p.ClosedAt)
	return err
}

// InsertTrade records one fill against a position, for the realized
// per-trade ledger trades feeds performance reporting from.
func (s *Store) InsertTrade(ctx context.Context, positionID uuid.UUID, symbol string, side protocol.TradeAction, qty, price, fee decimal.Decimal, realizedPnl *decimal.Decimal, executedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO trades (id, position_id, symbol, side, quantity, price, fee, realized_pnl, executed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		uuid.New(), positionID, symbol, side, qty, price, fee, realizedPnl, executedAt)
	return err
}

// InsertPerformanceSnapshot persists one periodic account-level rollup.
func (s *Store) InsertPerformanceSnapshot(ctx context.Context, balance, equity, realizedPnl24h decimal.Decimal, openPositions int, winRate float64, takenAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO performance_snapshots (id, taken_at, balance, equity, open_positions, realized_pnl_24h, win_rate)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		uuid.New(), takenAt, balance, equity, openPositions, realizedPnl24h, winRate)
	return err
}

// OpenPositions returns every position whose status is OPEN, for restart
// recovery.
func (s *Store) OpenPositions(ctx context.Context) ([]protocol.Position, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, exchange, symbol, side, quantity, avg_entry, current_price, stop_loss, take_profit, unrealized_pnl, realized_pnl, status, opened_at, closed_at
		FROM positions WHERE status = $1`, protocol.PositionOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []protocol.Position
	for rows.Next() {
		var p protocol.Position
		if err := rows.Scan(&p.ID, &p.Exchange, &p.Symbol, &p.Side, &p.Quantity, &p.AvgEntry, &p.CurrentPrice, &p.StopLoss, &p.TakeProfit, &p.UnrealizedPnl, &p.RealizedPnl, &p.Status, &p.OpenedAt, &p.ClosedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// InsertCandle persists one closed OHLCV bar for (symbol, timeframe).
// Re-inserting the same (symbol, timeframe, ts) is a no-op, since
// DataCollection may re-fetch overlapping history after a restart.
func (s *Store) InsertCandle(ctx context.Context, symbol, timeframe string, c protocol.Candle, ts time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO candles (symbol, timeframe, ts, open, high, low, close, volume)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (symbol, timeframe, ts) DO NOTHING`,
		symbol, timeframe, ts, c.Open, c.High, c.Low, c.Close, c.Volume)
	return err
}

// RecentCandles returns the most recent limit candles for (symbol,
// timeframe), oldest first, for rebuilding TechnicalAnalysis's rolling
// window after a restart.
func (s *Store) RecentCandles(ctx context.Context, symbol, timeframe string, limit int) ([]protocol.Candle, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT open, high, low, close, volume FROM candles
		WHERE symbol = $1 AND timeframe = $2
		ORDER BY ts DESC LIMIT $3`, symbol, timeframe, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []protocol.Candle
	for rows.Next() {
		var c protocol.Candle
		if err := rows.Scan(&c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
