package risk

import (
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/tradingpipeline/internal/protocol"
)

// ValidationInput carries every figure the five-layer pipeline needs,
// already computed by sizing/stop placement.
type ValidationInput struct {
	Confidence       decimal.Decimal
	MinConfidence    decimal.Decimal
	RewardRiskRatio  decimal.Decimal
	MinRR            decimal.Decimal
	RiskUSD          decimal.Decimal
	MaxRiskPerTrade  decimal.Decimal // absolute USD ceiling for this trade
	OpenPortfolioRisk decimal.Decimal // sum of risk_usd across open positions
	MaxPortfolioRisk decimal.Decimal // absolute USD ceiling
	ClusterRisk      decimal.Decimal // sum of risk_usd across this symbol's correlation cluster
	ClusterCap       decimal.Decimal
}

// Validate runs the five-layer validation pipeline in order; the first
// failing layer rejects with its reason, all others are never evaluated.
func Validate(in ValidationInput) (bool, protocol.RejectReason) {
	if in.Confidence.LessThan(in.MinConfidence) {
		return false, protocol.ReasonLowConfidence
	}
	if in.RewardRiskRatio.LessThan(in.MinRR) {
		return false, protocol.ReasonRRBelowMin
	}
	if in.RiskUSD.GreaterThan(in.MaxRiskPerTrade) {
		return false, protocol.ReasonRiskCap
	}
	if in.OpenPortfolioRisk.Add(in.RiskUSD).GreaterThan(in.MaxPortfolioRisk) {
		return false, protocol.ReasonPortfolioCap
	}
	if in.ClusterRisk.Add(in.RiskUSD).GreaterThan(in.ClusterCap) {
		return false, protocol.ReasonCorrelationCap
	}
	return true, ""
}

// RewardRiskRatio computes TP-distance / SL-distance from a StopPlan and
// the entry price, the input Validate's second layer checks.
func RewardRiskRatio(plan StopPlan, side Side, price decimal.Decimal) decimal.Decimal {
	var rewardDist, riskDist decimal.Decimal
	if side == SideShort {
		rewardDist = price.Sub(plan.TakeProfit)
		riskDist = plan.StopLoss.Sub(price)
	} else {
		rewardDist = plan.TakeProfit.Sub(price)
		riskDist = price.Sub(plan.StopLoss)
	}
	if riskDist.IsZero() {
		return decimal.Zero
	}
	return rewardDist.Div(riskDist)
}
