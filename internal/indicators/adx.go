package indicators

import "fmt"

// ADX computes the Average Directional Index over high/low/close at period
// (spec default 14), via Wilder's smoothing of directional movement. Not
// available in cinar/indicator/v2, implemented directly.
//
// ADX needs twice the lookback RSI/ATR do: the DI series itself only
// stabilizes after one Wilder smoothing pass over true range and directional
// movement, and ADX is a second Wilder smoothing pass over DX.
func ADX(high, low, closePrices []float64, period int) ([]float64, error) {
	if err := requireEqualLength(high, low, closePrices); err != nil {
		return nil, err
	}
	n := len(closePrices)
	if period < 1 || n < period*2 {
		return nil, fmt.Errorf("invalid period %d for %d samples: ADX needs at least 2x period", period, n)
	}

	tr := trueRange(high, low, closePrices)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		upMove := high[i] - high[i-1]
		downMove := low[i-1] - low[i]
		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
	}

	smoothTR := smoothWilder(tr, period)
	smoothPlusDM := smoothWilder(plusDM, period)
	smoothMinusDM := smoothWilder(minusDM, period)

	plusDI := make([]float64, n)
	minusDI := make([]float64, n)
	dx := make([]float64, n)
	for i := period; i < n; i++ {
		if smoothTR[i] == 0 {
			continue
		}
		plusDI[i] = 100 * smoothPlusDM[i] / smoothTR[i]
		minusDI[i] = 100 * smoothMinusDM[i] / smoothTR[i]
		diSum := plusDI[i] + minusDI[i]
		if diSum != 0 {
			dx[i] = 100 * abs(plusDI[i]-minusDI[i]) / diSum
		}
	}

	return smoothWilder(dx, period), nil
}
