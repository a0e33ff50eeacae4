package indicators

import (
	"github.com/cinar/indicator/v2/momentum"
)

// RSI computes the Relative Strength Index over closes at the given period
// (spec default 14), returning the full aligned series.
func RSI(closes []float64, period int) ([]float64, error) {
	if err := requirePeriod(period, len(closes)); err != nil {
		return nil, err
	}

	rsi := momentum.NewRsiWithPeriod[float64](period)
	values := drain(rsi.Compute(toChan(closes)))
	if len(values) == 0 {
		return nil, errNoValues("RSI")
	}
	return values, nil
}
