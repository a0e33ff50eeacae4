package indicators

import (
	"github.com/cinar/indicator/v2/trend"
)

// SMA computes the Simple Moving Average over closes at period. Callers
// compute one SMA series per lookback they need (e.g. the volume.SMA(20)
// confirmation ratio).
func SMA(closes []float64, period int) ([]float64, error) {
	if err := requirePeriod(period, len(closes)); err != nil {
		return nil, err
	}

	sma := trend.NewSmaWithPeriod[float64](period)
	values := drain(sma.Compute(toChan(closes)))
	if len(values) == 0 {
		return nil, errNoValues("SMA")
	}
	return values, nil
}
