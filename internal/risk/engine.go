package risk

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/tradingpipeline/internal/protocol"
)

// Config carries RiskManager's tunables, already converted to decimal
// where the figure is money- or ratio-valued.
type Config struct {
	SizingMethod      SizingMethod
	StopMethod        StopMethod
	TargetRR          decimal.Decimal
	KellyMin          decimal.Decimal
	KellyMax          decimal.Decimal
	FixedRiskPct      decimal.Decimal // out of 100, e.g. 2 for 2%
	ATRMultiplier     decimal.Decimal
	RR                decimal.Decimal
	MinConfidence     decimal.Decimal
	MinRR             decimal.Decimal
	MaxRiskPerTradePct decimal.Decimal // out of 100, of balance
	MaxPortfolioRiskPct decimal.Decimal
	StandardTierPct   decimal.Decimal // flat account-tier ceiling, default 15
	TrailingEnabled   bool
	TrailingActivationPct decimal.Decimal
}

// MarketContext is the per-decision market data an evaluation needs:
// current price, ATR, and the exchange's minimum order size.
type MarketContext struct {
	Price             decimal.Decimal
	UsingFallbackPrice bool
	ATR               decimal.Decimal
	MinLot            decimal.Decimal
}

// Decision is one intent's risk evaluation outcome.
type Decision struct {
	Approved  bool
	Order     *protocol.ValidatedOrder
	Assessment protocol.RiskAssessment
}

// Engine evaluates TradeIntents against the Ledger and Clusters, applying
// sizing, stop placement, and the five-layer validation pipeline before
// entering the reservation critical region.
type Engine struct {
	cfg      Config
	ledger   *Ledger
	clusters *Clusters
}

// NewEngine constructs a risk Engine.
func NewEngine(cfg Config, ledger *Ledger, clusters *Clusters) *Engine {
	return &Engine{cfg: cfg, ledger: ledger, clusters: clusters}
}

// Evaluate runs sizing, stop placement, validation, and (on success) the
// reservation critical region for one TradeIntent, returning the
// ValidatedOrder to publish or the rejection reason to record.
func (e *Engine) Evaluate(intent protocol.TradeIntent, mkt MarketContext, now time.Time) Decision {
	side := SideLong
	if intent.Action == protocol.ActionSell {
		side = SideShort
	}

	stopPlan := PlaceStops(e.cfg.StopMethod, side, mkt.Price, mkt.ATR, e.cfg.ATRMultiplier, e.cfg.RR)
	rr := RewardRiskRatio(stopPlan, side, mkt.Price)

	sizing, err := Size(e.cfg.SizingMethod, SizingInput{
		Balance:        e.ledger.Balance(),
		Confidence:     decimal.NewFromFloat(intent.Confidence),
		TargetRR:       e.cfg.TargetRR,
		FixedRiskPct:   e.cfg.FixedRiskPct,
		ATR:            mkt.ATR,
		StopATRMult:    e.cfg.ATRMultiplier,
		RiskPctPerTrade: e.cfg.MaxRiskPerTradePct.Div(decimal.NewFromInt(100)),
		Price:          mkt.Price,
	}, stopPlan.StopDistance)
	if err != nil {
		return e.reject(intent, protocol.ReasonExchangeRejected, now)
	}

	sizeUSD := ApplyTierCeiling(sizing.SizeUSD, e.ledger.Balance(), e.cfg.StandardTierPct)
	quantity := decimal.Zero
	if mkt.Price.IsPositive() {
		quantity = sizeUSD.Div(mkt.Price)
	}

	if mkt.MinLot.IsPositive() && quantity.LessThan(mkt.MinLot) {
		raisedSize := mkt.MinLot.Mul(mkt.Price)
		ceiling := ApplyTierCeiling(raisedSize, e.ledger.Balance(), e.cfg.StandardTierPct)
		if raisedSize.GreaterThan(ceiling) || raisedSize.GreaterThan(e.ledger.Available()) {
			return e.reject(intent, protocol.ReasonBelowMinLotExceedsBudget, now)
		}
		quantity = mkt.MinLot
		sizeUSD = raisedSize
	}

	riskUSD := quantity.Mul(stopPlan.StopDistance)
	maxRiskPerTrade := e.ledger.Balance().Mul(e.cfg.MaxRiskPerTradePct).Div(decimal.NewFromInt(100))
	maxPortfolioRisk := e.ledger.Balance().Mul(e.cfg.MaxPortfolioRiskPct).Div(decimal.NewFromInt(100))

	cluster := e.clusters.ClusterFor(intent.Symbol)
	clusterSymbols := []string{intent.Symbol}
	clusterCap := decimal.NewFromInt(1 << 30)
	if cluster != nil {
		clusterSymbols = cluster.Symbols
		clusterCap = cluster.CapFor(e.ledger.Balance())
	}

	ok, reason := Validate(ValidationInput{
		Confidence:        decimal.NewFromFloat(intent.Confidence),
		MinConfidence:     e.cfg.MinConfidence,
		RewardRiskRatio:   rr,
		MinRR:             e.cfg.MinRR,
		RiskUSD:           riskUSD,
		MaxRiskPerTrade:   maxRiskPerTrade,
		OpenPortfolioRisk: e.ledger.TotalOpenRisk(),
		MaxPortfolioRisk:  maxPortfolioRisk,
		ClusterRisk:       e.ledger.ClusterRisk(clusterSymbols),
		ClusterCap:        clusterCap,
	})
	if !ok {
		return e.reject(intent, reason, now)
	}

	orderID := uuid.New()
	reserved, reason := e.ledger.TryReserve(orderID, intent.Symbol, sizeUSD, riskUSD, now)
	if !reserved {
		return e.reject(intent, reason, now)
	}

	order := &protocol.ValidatedOrder{
		OrderID:       orderID,
		Symbol:        intent.Symbol,
		Side:          intent.Action,
		Quantity:      quantity,
		ExpectedPrice: mkt.Price,
		StopLoss:      stopPlan.StopLoss,
		TakeProfit:    stopPlan.TakeProfit,
		ReservedUSD:   sizeUSD,
		IntentID:      intent.ID,
	}
	assessment := protocol.RiskAssessment{
		ID:        uuid.New(),
		IntentID:  intent.ID,
		Approved:  true,
		RiskScore: riskUSD.InexactFloat64(),
		CreatedAt: now,
	}
	return Decision{Approved: true, Order: order, Assessment: assessment}
}

func (e *Engine) reject(intent protocol.TradeIntent, reason protocol.RejectReason, now time.Time) Decision {
	return Decision{
		Approved: false,
		Assessment: protocol.RiskAssessment{
			ID:        uuid.New(),
			IntentID:  intent.ID,
			Approved:  false,
			Reasons:   []protocol.RejectReason{reason},
			CreatedAt: now,
		},
	}
}
