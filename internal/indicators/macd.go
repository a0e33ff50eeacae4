package indicators

import (
	"fmt"

	"github.com/cinar/indicator/v2/trend"
)

// MACDResult is the aligned MACD line, signal line, and histogram series.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes the Moving Average Convergence Divergence over closes
// (spec default periods 12, 26, 9).
func MACD(closes []float64, fastPeriod, slowPeriod, signalPeriod int) (*MACDResult, error) {
	if fastPeriod < 1 || slowPeriod < 1 || signalPeriod < 1 {
		return nil, fmt.Errorf("invalid periods: fast=%d slow=%d signal=%d", fastPeriod, slowPeriod, signalPeriod)
	}
	if fastPeriod >= slowPeriod {
		return nil, fmt.Errorf("fast period %d must be less than slow period %d", fastPeriod, slowPeriod)
	}
	minRequired := slowPeriod + signalPeriod
	if len(closes) < minRequired {
		return nil, fmt.Errorf("insufficient data: need at least %d closes, got %d", minRequired, len(closes))
	}

	macdIndicator := trend.NewMacdWithPeriod[float64](fastPeriod, slowPeriod, signalPeriod)
	macdChan, signalChan := macdIndicator.Compute(toChan(closes))

	var macdValues, signalValues, histogram []float64
	for {
		m, mok := <-macdChan
		s, sok := <-signalChan
		if !mok || !sok {
			break
		}
		macdValues = append(macdValues, m)
		signalValues = append(signalValues, s)
		histogram = append(histogram, m-s)
	}
	if len(macdValues) == 0 {
		return nil, errNoValues("MACD")
	}

	return &MACDResult{MACD: macdValues, Signal: signalValues, Histogram: histogram}, nil
}
