// Package risk implements RiskManager: position sizing, stop/TP
// placement, the five-layer validation pipeline, and the mutex-guarded
// balance/reservation critical region that makes concurrent approvals
// safe. Mapping a continuous score to a discrete, reasoned decision
// follows service.go's threshold-bucketing style; every dollar and
// quantity figure goes through internal/money as a decimal.Decimal,
// never a float64.
package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/tradingpipeline/internal/money"
)

// SizingMethod selects one of RiskManager's four position-sizing methods.
type SizingMethod string

const (
	SizingKelly      SizingMethod = "kelly"
	SizingFixed      SizingMethod = "fixed_fractional"
	SizingVolatility SizingMethod = "volatility"
	SizingHybrid     SizingMethod = "hybrid"
)

var (
	kellyMin = decimal.NewFromFloat(0.01)
	kellyMax = decimal.NewFromFloat(0.25)
	hundred  = decimal.NewFromInt(100)
)

// SizingInput carries every figure a sizing method needs.
type SizingInput struct {
	Balance        decimal.Decimal
	Confidence     decimal.Decimal // p, intent.confidence
	TargetRR       decimal.Decimal // b, default 2.0
	FixedRiskPct   decimal.Decimal // default 2
	ATR            decimal.Decimal
	StopATRMult    decimal.Decimal // k, default 2
	RiskPctPerTrade decimal.Decimal
	Price          decimal.Decimal
}

// SizingResult is one method's proposed size before tier-ceiling and
// min-lot adjustments are applied.
type SizingResult struct {
	SizeUSD      decimal.Decimal
	Quantity     decimal.Decimal
	StopDistance decimal.Decimal
	RiskUSD      decimal.Decimal
}

// Kelly implements f = (b*p - (1-p))/b, clamped to [0.01, 0.25]; size =
// balance * f.
func Kelly(in SizingInput) SizingResult {
	p := in.Confidence
	b := in.TargetRR
	if b.IsZero() {
		b = decimal.NewFromFloat(2.0)
	}
	f := b.Mul(p).Sub(decimal.NewFromInt(1).Sub(p)).Div(b)
	f = money.Clamp(f, kellyMin, kellyMax)
	size := in.Balance.Mul(f)
	qty := decimal.Zero
	if in.Price.IsPositive() {
		qty = size.Div(in.Price)
	}
	return SizingResult{SizeUSD: size, Quantity: qty}
}

// Fixed implements size = balance * fixedRiskPct; quantity = size/price;
// risk_usd = quantity * stopDistance.
func Fixed(in SizingInput, stopDistance decimal.Decimal) SizingResult {
	pct := in.FixedRiskPct
	if pct.IsZero() {
		pct = decimal.NewFromInt(2)
	}
	size := money.PercentOf(in.Balance, pct)
	qty := decimal.Zero
	if in.Price.IsPositive() {
		qty = size.Div(in.Price)
	}
	risk := qty.Mul(stopDistance)
	return SizingResult{SizeUSD: size, Quantity: qty, StopDistance: stopDistance, RiskUSD: risk}
}

// Volatility implements stopDistance = k*ATR; quantity = (balance *
// riskPctPerTrade) / stopDistance.
func Volatility(in SizingInput) SizingResult {
	k := in.StopATRMult
	if k.IsZero() {
		k = decimal.NewFromInt(2)
	}
	stopDistance := k.Mul(in.ATR)
	riskPct := in.RiskPctPerTrade
	if riskPct.IsZero() {
		riskPct = decimal.NewFromFloat(0.01)
	}
	riskBudget := in.Balance.Mul(riskPct)
	qty := decimal.Zero
	if stopDistance.IsPositive() {
		qty = riskBudget.Div(stopDistance)
	}
	sizeUSD := decimal.Zero
	if in.Price.IsPositive() {
		sizeUSD = qty.Mul(in.Price)
	}
	return SizingResult{SizeUSD: sizeUSD, Quantity: qty, StopDistance: stopDistance, RiskUSD: riskBudget}
}

// Hybrid computes Kelly and Fixed, takes the smaller size (the tier
// ceiling is applied separately by the caller).
func Hybrid(in SizingInput, stopDistance decimal.Decimal) SizingResult {
	kelly := Kelly(in)
	fixed := Fixed(in, stopDistance)
	if kelly.SizeUSD.LessThan(fixed.SizeUSD) {
		kelly.StopDistance = stopDistance
		if in.Price.IsPositive() {
			kelly.RiskUSD = kelly.Quantity.Mul(stopDistance)
		}
		return kelly
	}
	return fixed
}

// Size dispatches to the named sizing method.
func Size(method SizingMethod, in SizingInput, stopDistance decimal.Decimal) (SizingResult, error) {
	switch method {
	case SizingKelly:
		return Kelly(in), nil
	case SizingFixed:
		return Fixed(in, stopDistance), nil
	case SizingVolatility:
		return Volatility(in), nil
	case SizingHybrid, "":
		return Hybrid(in, stopDistance), nil
	default:
		return SizingResult{}, fmt.Errorf("unknown sizing method %q", method)
	}
}

// TierCeilingPct returns the account-tier ceiling percentage for balance.
// The documented tiering (80% for <$100, progressively narrower percentages
// for larger balances) is resolved here (see DESIGN.md) by treating
// standardPct as the operator-configured flat ceiling applied above the
// micro-account floor: below $100, where a flat percentage could be too
// small in absolute terms to clear exchange minimum-lot sizes, the ceiling
// widens to 80%; at or above $100 the configured standardPct (default 15)
// applies uniformly.
func TierCeilingPct(balance, standardPct decimal.Decimal) decimal.Decimal {
	if balance.LessThan(decimal.NewFromInt(100)) {
		return decimal.NewFromInt(80)
	}
	if standardPct.IsZero() {
		return decimal.NewFromInt(15)
	}
	return standardPct
}

// ApplyTierCeiling caps sizeUSD at the account-tier ceiling of balance.
func ApplyTierCeiling(sizeUSD, balance, standardPct decimal.Decimal) decimal.Decimal {
	ceiling := money.PercentOf(balance, TierCeilingPct(balance, standardPct))
	return money.Min(sizeUSD, ceiling)
}
