package position

import (
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/tradingpipeline/internal/protocol"
)

// UnrealizedPnL implements the PnL formulas: LONG = (current -
// avgEntry)*qty; SHORT = (avgEntry - current)*qty. Callers also use this
// for realized PnL on close — the formula is identical, only the price
// fed in differs (close price vs. live mark).
func UnrealizedPnL(side protocol.PositionSide, avgEntry, current, qty decimal.Decimal) decimal.Decimal {
	if side == protocol.PositionShort {
		return avgEntry.Sub(current).Mul(qty)
	}
	return current.Sub(avgEntry).Mul(qty)
}

// RealizedOnReduction computes the realized PnL booked when qtyReduced
// of a position is closed at exitPrice, using the remaining-basis method:
// the reduced slice realizes PnL against avgEntry, while the
// remaining quantity's cost basis is untouched.
func RealizedOnReduction(side protocol.PositionSide, avgEntry, exitPrice, qtyReduced decimal.Decimal) decimal.Decimal {
	return UnrealizedPnL(side, avgEntry, exitPrice, qtyReduced)
}
