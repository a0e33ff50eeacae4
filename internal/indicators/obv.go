package indicators

// OBV computes On-Balance Volume: a running total that adds the bar's
// volume when close rises, subtracts it when close falls, and holds flat
// on an unchanged close. Not present in cinar/indicator/v2, implemented
// directly from the standard definition.
func OBV(closes, volumes []float64) ([]float64, error) {
	if err := requireEqualLength(closes, volumes); err != nil {
		return nil, err
	}

	n := len(closes)
	obv := make([]float64, n)
	for i := 1; i < n; i++ {
		switch {
		case closes[i] > closes[i-1]:
			obv[i] = obv[i-1] + volumes[i]
		case closes[i] < closes[i-1]:
			obv[i] = obv[i-1] - volumes[i]
		default:
			obv[i] = obv[i-1]
		}
	}
	return obv, nil
}
