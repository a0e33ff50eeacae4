// Package signal implements TechnicalAnalysis's per-symbol rule engine:
// it holds a rolling OHLCV window, computes the indicator family
// internal/indicators exposes, and derives zero or more directional
// signals from fixed numeric thresholds. The indicator math comes from
// internal/indicators; mapping a continuous value to a discrete decision
// with a confidence score follows internal/risk/service.go's
// threshold-bucketing style (getPositionRecommendation, getVaRInterpretation).
package signal

// Window is the rolling per-(symbol,timeframe) OHLCV buffer TA keeps. It
// retains at most capacity candles; older candles are dropped as new ones
// arrive, oldest first.
type Window struct {
	capacity int
	opens    []float64
	highs    []float64
	lows     []float64
	closes   []float64
	volumes  []float64
}

// NewWindow constructs an empty Window retaining up to capacity candles.
func NewWindow(capacity int) *Window {
	return &Window{capacity: capacity}
}

// Push appends one candle's OHLCV, dropping the oldest if at capacity.
func (w *Window) Push(open, high, low, close, volume float64) {
	w.opens = append(w.opens, open)
	w.highs = append(w.highs, high)
	w.lows = append(w.lows, low)
	w.closes = append(w.closes, close)
	w.volumes = append(w.volumes, volume)

	if w.capacity > 0 && len(w.closes) > w.capacity {
		w.opens = w.opens[1:]
		w.highs = w.highs[1:]
		w.lows = w.lows[1:]
		w.closes = w.closes[1:]
		w.volumes = w.volumes[1:]
	}
}

// Len reports how many candles the window currently holds.
func (w *Window) Len() int {
	return len(w.closes)
}

// Closes returns the window's close series, oldest first.
func (w *Window) Closes() []float64 { return w.closes }

// Highs returns the window's high series, oldest first.
func (w *Window) Highs() []float64 { return w.highs }

// Lows returns the window's low series, oldest first.
func (w *Window) Lows() []float64 { return w.lows }

// Volumes returns the window's volume series, oldest first.
func (w *Window) Volumes() []float64 { return w.volumes }
