// Package indicators computes the technical indicator family TechnicalAnalysis
// needs (SMA/EMA, RSI(14), MACD(12,26,9), Bollinger(20,2σ), ATR(14), OBV,
// Stochastic, ADX) over a rolling candle window, built on
// github.com/cinar/indicator/v2. TechnicalAnalysis calls these as typed
// Go functions over float64 series, computed fresh per candle close,
// with no hidden state beyond the window itself.
package indicators

import "fmt"

// toChan streams vs onto a channel, the shape cinar/indicator/v2 computes
// over.
func toChan(vs []float64) <-chan float64 {
	ch := make(chan float64, len(vs))
	for _, v := range vs {
		ch <- v
	}
	close(ch)
	return ch
}

// drain collects every value a cinar/indicator/v2 output channel produces.
func drain(ch <-chan float64) []float64 {
	var out []float64
	for v := range ch {
		out = append(out, v)
	}
	return out
}

func requirePeriod(period, n int) error {
	if period < 1 || period > n {
		return fmt.Errorf("invalid period %d for %d samples", period, n)
	}
	return nil
}

func requireEqualLength(series ...[]float64) error {
	if len(series) == 0 {
		return nil
	}
	n := len(series[0])
	for _, s := range series[1:] {
		if len(s) != n {
			return fmt.Errorf("series length mismatch: %d vs %d", n, len(s))
		}
	}
	return nil
}

// Last returns the final element of vs, or zero if vs is empty.
func Last(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	return vs[len(vs)-1]
}

func errNoValues(name string) error {
	return fmt.Errorf("%s: no values computed", name)
}

// smoothWilder applies Wilder's smoothing (used by ATR/ADX, neither of
// which cinar/indicator/v2 provides).
func smoothWilder(data []float64, period int) []float64 {
	n := len(data)
	result := make([]float64, n)
	if n < period {
		return result
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += data[i]
	}
	result[period-1] = sum / float64(period)

	for i := period; i < n; i++ {
		result[i] = (result[i-1]*float64(period-1) + data[i]) / float64(period)
	}
	return result
}

// trueRange computes the per-bar true range series from OHLC data.
func trueRange(high, low, closePrices []float64) []float64 {
	n := len(closePrices)
	tr := make([]float64, n)
	for i := 1; i < n; i++ {
		hl := high[i] - low[i]
		hc := abs(high[i] - closePrices[i-1])
		lc := abs(low[i] - closePrices[i-1])
		tr[i] = max3(hl, hc, lc)
	}
	return tr
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}
