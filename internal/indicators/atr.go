package indicators

// ATR computes the Average True Range over high/low/close at period (spec
// default 14), Wilder-smoothed. Not available in cinar/indicator/v2 (same
// gap as ADX), so implemented the same manual way as ADX in adx.go.
func ATR(high, low, closePrices []float64, period int) ([]float64, error) {
	if err := requireEqualLength(high, low, closePrices); err != nil {
		return nil, err
	}
	if err := requirePeriod(period, len(closePrices)); err != nil {
		return nil, err
	}

	tr := trueRange(high, low, closePrices)
	atr := smoothWilder(tr, period)
	return atr, nil
}
