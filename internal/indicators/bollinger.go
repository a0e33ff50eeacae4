package indicators

import (
	"github.com/cinar/indicator/v2/volatility"
)

// BollingerResult is the aligned upper, middle, and lower band series.
type BollingerResult struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Bollinger computes Bollinger Bands over closes at the given period
// (default 20, 2σ — cinar/indicator/v2's implementation is fixed at 2
// standard deviations, so no configurable multiplier is exposed here).
func Bollinger(closes []float64, period int) (*BollingerResult, error) {
	if err := requirePeriod(period, len(closes)); err != nil {
		return nil, err
	}

	bb := volatility.NewBollingerBandsWithPeriod[float64](period)
	lowerChan, middleChan, upperChan := bb.Compute(toChan(closes))

	var lower, middle, upper []float64
	for {
		l, lok := <-lowerChan
		m, mok := <-middleChan
		u, uok := <-upperChan
		if !lok || !mok || !uok {
			break
		}
		lower = append(lower, l)
		middle = append(middle, m)
		upper = append(upper, u)
	}
	if len(middle) == 0 {
		return nil, errNoValues("Bollinger")
	}

	return &BollingerResult{Upper: upper, Middle: middle, Lower: lower}, nil
}
