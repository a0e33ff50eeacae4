package risk

import (
	"testing"

	"github.com/ajitpratap0/tradingpipeline/internal/protocol"
)

func TestValidateOrderChecksLayersInOrder(t *testing.T) {
	cases := []struct {
		name   string
		in     ValidationInput
		reason protocol.RejectReason
	}{
		{
			name: "low confidence rejects first",
			in: ValidationInput{
				Confidence: d(0.3), MinConfidence: d(0.6),
				RewardRiskRatio: d(0.5), MinRR: d(1.5), // would also fail RR, but confidence wins
			},
			reason: protocol.ReasonLowConfidence,
		},
		{
			name: "rr below min",
			in: ValidationInput{
				Confidence: d(0.8), MinConfidence: d(0.6),
				RewardRiskRatio: d(1.0), MinRR: d(1.5),
				RiskUSD: d(10), MaxRiskPerTrade: d(1000),
			},
			reason: protocol.ReasonRRBelowMin,
		},
		{
			name: "per-trade risk cap",
			in: ValidationInput{
				Confidence: d(0.8), MinConfidence: d(0.6),
				RewardRiskRatio: d(2.0), MinRR: d(1.5),
				RiskUSD: d(2000), MaxRiskPerTrade: d(1000),
			},
			reason: protocol.ReasonRiskCap,
		},
		{
			name: "portfolio risk cap",
			in: ValidationInput{
				Confidence: d(0.8), MinConfidence: d(0.6),
				RewardRiskRatio: d(2.0), MinRR: d(1.5),
				RiskUSD: d(100), MaxRiskPerTrade: d(1000),
				OpenPortfolioRisk: d(950), MaxPortfolioRisk: d(1000),
			},
			reason: protocol.ReasonPortfolioCap,
		},
		{
			name: "correlation cluster cap",
			in: ValidationInput{
				Confidence: d(0.8), MinConfidence: d(0.6),
				RewardRiskRatio: d(2.0), MinRR: d(1.5),
				RiskUSD: d(100), MaxRiskPerTrade: d(1000),
				OpenPortfolioRisk: d(0), MaxPortfolioRisk: d(100000),
				ClusterRisk: d(950), ClusterCap: d(1000),
			},
			reason: protocol.ReasonCorrelationCap,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, reason := Validate(tc.in)
			if ok {
				t.Fatal("expected rejection")
			}
			if reason != tc.reason {
				t.Errorf("expected reason %q, got %q", tc.reason, reason)
			}
		})
	}
}

func TestValidatePassesAllFiveLayers(t *testing.T) {
	in := ValidationInput{
		Confidence: d(0.8), MinConfidence: d(0.6),
		RewardRiskRatio: d(2.0), MinRR: d(1.5),
		RiskUSD: d(100), MaxRiskPerTrade: d(1000),
		OpenPortfolioRisk: d(0), MaxPortfolioRisk: d(1000),
		ClusterRisk: d(0), ClusterCap: d(1000),
	}
	ok, reason := Validate(in)
	if !ok {
		t.Fatalf("expected approval, got rejection with reason %q", reason)
	}
}
