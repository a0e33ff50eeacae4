package metrics

import (
	"context"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Updater periodically recomputes the trading-performance and position
// gauges from the relational store, the way a dashboard poller would;
// nothing in the hot path (signal/fusion/risk/execution) needs these
// values synchronously, so they're refreshed out-of-band instead of on
// every trade.
type Updater struct {
	pool     *pgxpool.Pool
	interval time.Duration
	stopCh   chan struct{}
}

// NewUpdater creates a new metrics updater over pool (Store.Pool()).
func NewUpdater(pool *pgxpool.Pool, interval time.Duration) *Updater {
	return &Updater{
		pool:     pool,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the metrics update loop. Blocks until ctx is cancelled or
// Stop is called; run it in its own goroutine.
func (u *Updater) Start(ctx context.Context) {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	u.update(ctx)

	for {
		select {
		case <-ticker.C:
			u.update(ctx)
		case <-u.stopCh:
			log.Info().Msg("metrics updater stopped")
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop stops the metrics update loop.
func (u *Updater) Stop() {
	close(u.stopCh)
}

func (u *Updater) update(ctx context.Context) {
	u.updateTradingMetrics(ctx)
	u.updatePositionMetrics(ctx)
	u.updateAgentSignalMetrics(ctx)
	u.updateDatabaseMetrics()
}

// updateTradingMetrics aggregates closing trades (realized_pnl IS NOT
// NULL — opening fills are persisted with a nil realized_pnl) into P&L,
// win rate, and risk/reward.
func (u *Updater) updateTradingMetrics(ctx context.Context) {
	var totalPnL float64
	var totalTrades, winningTrades int64
	err := u.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(realized_pnl), 0), COUNT(*), COUNT(*) FILTER (WHERE realized_pnl > 0)
		FROM trades WHERE realized_pnl IS NOT NULL
	`).Scan(&totalPnL, &totalTrades, &winningTrades)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch trading metrics")
		return
	}
	TotalPnL.Set(totalPnL)
	if totalTrades > 0 {
		WinRate.Set(float64(winningTrades) / float64(totalTrades))
	} else {
		WinRate.Set(0)
	}

	var avgWin, avgLoss float64
	err = u.pool.QueryRow(ctx, `
		SELECT
			COALESCE(AVG(realized_pnl) FILTER (WHERE realized_pnl > 0), 0),
			COALESCE(ABS(AVG(realized_pnl)) FILTER (WHERE realized_pnl < 0), 0)
		FROM trades WHERE realized_pnl IS NOT NULL
	`).Scan(&avgWin, &avgLoss)
	if err == nil && avgLoss > 0 {
		RiskRewardRatio.Set(avgWin / avgLoss)
	}

	u.updateDrawdownMetrics(ctx)
	u.updateReturnMetrics(ctx)
	u.updateSharpeRatio(ctx)
}

func (u *Updater) updateDrawdownMetrics(ctx context.Context) {
	var drawdown float64
	err := u.pool.QueryRow(ctx, `
		WITH cumulative AS (
			SELECT executed_at, SUM(realized_pnl) OVER (ORDER BY executed_at) AS running
			FROM trades WHERE realized_pnl IS NOT NULL ORDER BY executed_at
		),
		peaked AS (
			SELECT running, MAX(running) OVER (ORDER BY executed_at) AS peak FROM cumulative
		)
		SELECT COALESCE(
			CASE WHEN MAX(peak) > 0 THEN (MAX(peak) - MIN(running)) / MAX(peak) ELSE 0 END, 0
		) FROM peaked
	`).Scan(&drawdown)
	if err == nil {
		CurrentDrawdown.Set(drawdown)
	}
}

func (u *Updater) updateReturnMetrics(ctx context.Context) {
	windows := []struct {
		interval string
		gauge    interface{ Set(float64) }
	}{
		{"1 day", DailyReturn},
		{"7 days", WeeklyReturn},
		{"30 days", MonthlyReturn},
	}
	const initialCapital = 10000.0
	for _, w := range windows {
		var pnl float64
		err := u.pool.QueryRow(ctx,
			`SELECT COALESCE(SUM(realized_pnl), 0) FROM trades WHERE realized_pnl IS NOT NULL AND executed_at >= NOW() - $1::interval`,
			w.interval,
		).Scan(&pnl)
		if err == nil {
			w.gauge.Set(pnl / initialCapital)
		}
	}
}

func (u *Updater) updateSharpeRatio(ctx context.Context) {
	rows, err := u.pool.Query(ctx, `
		SELECT DATE(executed_at), SUM(realized_pnl)
		FROM trades
		WHERE realized_pnl IS NOT NULL AND executed_at >= NOW() - INTERVAL '30 days'
		GROUP BY DATE(executed_at)
		ORDER BY 1
	`)
	if err != nil {
		log.Error().Err(err).Msg("failed to calculate sharpe ratio")
		return
	}
	defer rows.Close()

	const initialCapital = 10000.0
	var returns []float64
	for rows.Next() {
		var date time.Time
		var pnl float64
		if err := rows.Scan(&date, &pnl); err != nil {
			continue
		}
		returns = append(returns, pnl/initialCapital)
	}
	if len(returns) < 2 {
		return
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	variance /= float64(len(returns))
	stdDev := math.Sqrt(variance)
	if stdDev > 0 {
		SharpeRatio.Set(mean / stdDev * math.Sqrt(252))
	}
}

func (u *Updater) updatePositionMetrics(ctx context.Context) {
	var openCount int64
	if err := u.pool.QueryRow(ctx, `SELECT COUNT(*) FROM positions WHERE status = 'OPEN'`).Scan(&openCount); err == nil {
		OpenPositions.Set(float64(openCount))
	}

	rows, err := u.pool.Query(ctx, `
		SELECT symbol, SUM(quantity * avg_entry) FROM positions WHERE status = 'OPEN' GROUP BY symbol
	`)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch position values")
		return
	}
	defer rows.Close()
	for rows.Next() {
		var symbol string
		var value float64
		if err := rows.Scan(&symbol, &value); err != nil {
			continue
		}
		UpdatePositionValue(symbol, value)
	}
}

// updateAgentSignalMetrics tracks each signal source's recent average
// confidence. There's no central agent-liveness table in this schema
// (AgentStatus is set by each agent binary's /healthz check closure, not
// polled from the database; ActiveAgents is not set), so only the
// signals table's per-agent confidence is rolled up here.
func (u *Updater) updateAgentSignalMetrics(ctx context.Context) {
	rows, err := u.pool.Query(ctx, `
		SELECT agent, AVG(confidence) FROM signals
		WHERE emitted_at >= NOW() - INTERVAL '5 minutes'
		GROUP BY agent
	`)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch agent signal confidence")
		return
	}
	defer rows.Close()
	for rows.Next() {
		var agentName string
		var confidence float64
		if err := rows.Scan(&agentName, &confidence); err != nil {
			continue
		}
		AgentSignalConfidence.WithLabelValues(agentName).Set(confidence)
	}
}

func (u *Updater) updateDatabaseMetrics() {
	stat := u.pool.Stat()
	UpdateDatabaseConnections(stat.AcquiredConns(), stat.IdleConns())
}
