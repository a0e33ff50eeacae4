package risk

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func TestKellyClampsToBounds(t *testing.T) {
	// p=0.95, b=2 -> f=(2*0.95-0.05)/2=0.925, clamped to 0.25.
	in := SizingInput{Balance: d(10000), Confidence: d(0.95), TargetRR: d(2), Price: d(100)}
	r := Kelly(in)
	want := d(10000).Mul(kellyMax)
	if !r.SizeUSD.Equal(want) {
		t.Errorf("expected Kelly clamped at 25%% of balance (%s), got %s", want, r.SizeUSD)
	}
}

func TestKellyLowConfidenceClampsToFloor(t *testing.T) {
	// p=0.3, b=2 -> f=(0.6-0.7)/2=-0.05, clamped up to 0.01.
	in := SizingInput{Balance: d(10000), Confidence: d(0.3), TargetRR: d(2), Price: d(100)}
	r := Kelly(in)
	want := d(10000).Mul(kellyMin)
	if !r.SizeUSD.Equal(want) {
		t.Errorf("expected Kelly clamped at 1%% floor (%s), got %s", want, r.SizeUSD)
	}
}

func TestFixedUsesDefaultTwoPercent(t *testing.T) {
	in := SizingInput{Balance: d(10000), Price: d(100)}
	r := Fixed(in, d(5))
	if !r.SizeUSD.Equal(d(200)) {
		t.Errorf("expected 2%% of 10000 = 200, got %s", r.SizeUSD)
	}
	if !r.Quantity.Equal(d(2)) {
		t.Errorf("expected quantity 200/100=2, got %s", r.Quantity)
	}
	if !r.RiskUSD.Equal(d(10)) {
		t.Errorf("expected riskUsd = qty*stopDistance = 2*5=10, got %s", r.RiskUSD)
	}
}

func TestVolatilitySizing(t *testing.T) {
	// stopDistance = k*ATR = 2*50=100; riskBudget=balance*riskPct=10000*0.01=100
	// qty = 100/100=1; sizeUSD=qty*price=1*30000=30000
	in := SizingInput{Balance: d(10000), ATR: d(50), StopATRMult: d(2), RiskPctPerTrade: d(0.01), Price: d(30000)}
	r := Volatility(in)
	if !r.StopDistance.Equal(d(100)) {
		t.Errorf("expected stopDistance 100, got %s", r.StopDistance)
	}
	if !r.Quantity.Equal(d(1)) {
		t.Errorf("expected quantity 1, got %s", r.Quantity)
	}
}

func TestHybridTakesSmallerOfKellyAndFixed(t *testing.T) {
	in := SizingInput{Balance: d(10000), Confidence: d(0.3), TargetRR: d(2), FixedRiskPct: d(2), Price: d(100)}
	r := Hybrid(in, d(5))
	kelly := Kelly(in)
	fixed := Fixed(in, d(5))
	smaller := kelly.SizeUSD
	if fixed.SizeUSD.LessThan(smaller) {
		smaller = fixed.SizeUSD
	}
	if !r.SizeUSD.Equal(smaller) {
		t.Errorf("expected Hybrid to take the smaller of Kelly (%s) and Fixed (%s), got %s", kelly.SizeUSD, fixed.SizeUSD, r.SizeUSD)
	}
}

func TestTierCeilingBelow100UsesEightyPercentFloor(t *testing.T) {
	pct := TierCeilingPct(d(50), d(15))
	if !pct.Equal(d(80)) {
		t.Errorf("expected 80%% ceiling for micro-accounts under $100, got %s", pct)
	}
}

func TestTierCeilingAtOrAboveHundredUsesStandardPct(t *testing.T) {
	// $10,000 balance uses the operator-configured standard ceiling (15%)
	// uniformly above the micro-account floor - see TierCeilingPct's doc comment.
	pct := TierCeilingPct(d(10000), d(15))
	if !pct.Equal(d(15)) {
		t.Errorf("expected standardPct 15 applied uniformly at/above $100, got %s", pct)
	}
}

func TestApplyTierCeilingCapsOversizedPosition(t *testing.T) {
	// A raw size of $3000 against a $10,000 balance must cap at 15% = $1500.
	capped := ApplyTierCeiling(d(3000), d(10000), d(15))
	if !capped.Equal(d(1500)) {
		t.Errorf("expected tier ceiling to cap at $1500, got %s", capped)
	}
}

func TestApplyTierCeilingLeavesSmallerSizeUntouched(t *testing.T) {
	sz := ApplyTierCeiling(d(500), d(10000), d(15))
	if !sz.Equal(d(500)) {
		t.Errorf("expected a size already under the ceiling to pass through unchanged, got %s", sz)
	}
}

func TestSizeDispatchesUnknownMethodError(t *testing.T) {
	_, err := Size(SizingMethod("bogus"), SizingInput{}, d(1))
	if err == nil {
		t.Error("expected an error for an unrecognized sizing method")
	}
}
