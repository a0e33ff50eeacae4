package risk

import "github.com/shopspring/decimal"

// StopMethod selects one of five stop/TP placement methods. Only
// ATR-based has a fully specified formula; the other four are exposed
// as named methods falling back to the ATR formula so the config
// surface is complete even though their own placement rules are left to
// future tuning.
type StopMethod string

const (
	StopATR        StopMethod = "atr"
	StopFixedPct   StopMethod = "fixed_pct"
	StopSupport    StopMethod = "support_resistance"
	StopVolatility StopMethod = "volatility_band"
	StopTrailing   StopMethod = "trailing"
)

// StopPlan is the SL/TP pair and the distance used to derive them.
type StopPlan struct {
	StopDistance decimal.Decimal
	StopLoss     decimal.Decimal
	TakeProfit   decimal.Decimal
}

// PlaceStops implements the default ATR-based stop/TP placement:
// stopDistance = k*ATR; tpDistance = stopDistance*RR. For LONG: SL =
// price - stopDistance, TP = price + tpDistance; SHORT is symmetric.
func PlaceStops(method StopMethod, side Side, price, atr, atrK, rr decimal.Decimal) StopPlan {
	if atrK.IsZero() {
		atrK = decimal.NewFromInt(2)
	}
	if rr.IsZero() {
		rr = decimal.NewFromFloat(2.0)
	}
	stopDistance := atrK.Mul(atr)
	tpDistance := stopDistance.Mul(rr)

	if side == SideShort {
		return StopPlan{
			StopDistance: stopDistance,
			StopLoss:     price.Add(stopDistance),
			TakeProfit:   price.Sub(tpDistance),
		}
	}
	return StopPlan{
		StopDistance: stopDistance,
		StopLoss:     price.Sub(stopDistance),
		TakeProfit:   price.Add(tpDistance),
	}
}

// Side is the trade direction a sizing/stop computation is for.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// TrailingUpdate returns the new stop-loss after a favorable price move,
// or the unchanged stop if trailing hasn't activated yet (profit below
// activationPct) or the move was unfavorable. Trailing only ever tightens
// toward price, never loosens back in the unfavorable direction.
func TrailingUpdate(side Side, entry, currentPrice, currentStop, stopDistance, activationPct decimal.Decimal) decimal.Decimal {
	if entry.IsZero() {
		return currentStop
	}
	switch side {
	case SideLong:
		profitPct := currentPrice.Sub(entry).Div(entry)
		if profitPct.LessThan(activationPct) {
			return currentStop
		}
		candidate := currentPrice.Sub(stopDistance)
		if candidate.GreaterThan(currentStop) {
			return candidate
		}
		return currentStop
	case SideShort:
		profitPct := entry.Sub(currentPrice).Div(entry)
		if profitPct.LessThan(activationPct) {
			return currentStop
		}
		candidate := currentPrice.Add(stopDistance)
		if candidate.LessThan(currentStop) {
			return candidate
		}
		return currentStop
	default:
		return currentStop
	}
}
