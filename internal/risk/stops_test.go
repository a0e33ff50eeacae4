package risk

import "testing"

func TestPlaceStopsLong(t *testing.T) {
	// price=120000, ATR=1500, k=2 -> stopDistance=3000; rr=2 -> tpDistance=6000
	plan := PlaceStops(StopATR, SideLong, d(120000), d(1500), d(2), d(2))
	if !plan.StopLoss.Equal(d(117000)) {
		t.Errorf("expected SL 117000, got %s", plan.StopLoss)
	}
	if !plan.TakeProfit.Equal(d(126000)) {
		t.Errorf("expected TP 126000, got %s", plan.TakeProfit)
	}
}

func TestPlaceStopsShortIsSymmetric(t *testing.T) {
	plan := PlaceStops(StopATR, SideShort, d(120000), d(1500), d(2), d(2))
	if !plan.StopLoss.Equal(d(123000)) {
		t.Errorf("expected SHORT SL above entry at 123000, got %s", plan.StopLoss)
	}
	if !plan.TakeProfit.Equal(d(114000)) {
		t.Errorf("expected SHORT TP below entry at 114000, got %s", plan.TakeProfit)
	}
}

func TestRewardRiskRatioLong(t *testing.T) {
	plan := PlaceStops(StopATR, SideLong, d(120000), d(1500), d(2), d(2))
	rr := RewardRiskRatio(plan, SideLong, d(120000))
	if !rr.Equal(d(2)) {
		t.Errorf("expected RR 2.0 for a 2:1 stop/tp placement, got %s", rr)
	}
}

func TestTrailingUpdateTightensOnlyFavorably(t *testing.T) {
	// LONG entry=100, currentStop=95, stopDistance=5, activation=0.05 (5%).
	// Price moves to 110 (10% profit, above activation): candidate=110-5=105 > 95, tightens.
	newStop := TrailingUpdate(SideLong, d(100), d(110), d(95), d(5), d(0.05))
	if !newStop.Equal(d(105)) {
		t.Errorf("expected stop tightened to 105, got %s", newStop)
	}
}

func TestTrailingUpdateNeverLoosens(t *testing.T) {
	// Price pulls back to 108 after having trailed to 105; candidate=108-5=103 < 105, must not loosen.
	newStop := TrailingUpdate(SideLong, d(100), d(108), d(105), d(5), d(0.05))
	if !newStop.Equal(d(105)) {
		t.Errorf("expected stop to remain at 105 rather than loosen to 103, got %s", newStop)
	}
}

func TestTrailingUpdateInactiveBelowActivation(t *testing.T) {
	newStop := TrailingUpdate(SideLong, d(100), d(102), d(95), d(5), d(0.05))
	if !newStop.Equal(d(95)) {
		t.Errorf("expected stop unchanged below the activation threshold, got %s", newStop)
	}
}
