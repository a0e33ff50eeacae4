package indicators

// StochasticResult is the aligned %K and %D series.
type StochasticResult struct {
	K []float64
	D []float64
}

// Stochastic computes the Stochastic Oscillator over high/low/close at
// period (spec default 14), with %D as a 3-period SMA of %K. Implemented
// manually — cinar/indicator/v2 does not expose it.
func Stochastic(high, low, closePrices []float64, period int) (*StochasticResult, error) {
	if err := requireEqualLength(high, low, closePrices); err != nil {
		return nil, err
	}
	if err := requirePeriod(period, len(closePrices)); err != nil {
		return nil, err
	}

	n := len(closePrices)
	k := make([]float64, n)
	for i := period - 1; i < n; i++ {
		hh, ll := high[i], low[i]
		for j := i - period + 1; j <= i; j++ {
			if high[j] > hh {
				hh = high[j]
			}
			if low[j] < ll {
				ll = low[j]
			}
		}
		if hh == ll {
			k[i] = 50
			continue
		}
		k[i] = (closePrices[i] - ll) / (hh - ll) * 100
	}

	const dPeriod = 3
	d := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i - dPeriod + 1
		if start < period-1 {
			continue
		}
		sum := 0.0
		for j := start; j <= i; j++ {
			sum += k[j]
		}
		d[i] = sum / dPeriod
	}

	return &StochasticResult{K: k, D: d}, nil
}
