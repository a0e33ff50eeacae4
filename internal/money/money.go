// Package money provides the fixed-point decimal helpers every money and
// quantity computation in the pipeline goes through, so rounding behavior is
// defined in exactly one place rather than re-derived per call site.
package money

import "github.com/shopspring/decimal"

// RoundDownToStep truncates v to the nearest multiple of step at or below v,
// e.g. RoundDownToStep(1500/121617, 1e-5) = 0.01233. step must be positive.
func RoundDownToStep(v, step decimal.Decimal) decimal.Decimal {
	if step.IsZero() {
		return v
	}
	units := v.Div(step).Floor()
	return units.Mul(step)
}

// PercentOf returns pct percent of base, e.g. PercentOf(balance, 15) for a
// 15% account-tier ceiling.
func PercentOf(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(pct).Div(decimal.NewFromInt(100))
}

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
