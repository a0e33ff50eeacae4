package indicators

import (
	"github.com/cinar/indicator/v2/trend"
)

// EMA computes the Exponential Moving Average over closes at period.
func EMA(closes []float64, period int) ([]float64, error) {
	if err := requirePeriod(period, len(closes)); err != nil {
		return nil, err
	}

	ema := trend.NewEmaWithPeriod[float64](period)
	values := drain(ema.Compute(toChan(closes)))
	if len(values) == 0 {
		return nil, errNoValues("EMA")
	}
	return values, nil
}
