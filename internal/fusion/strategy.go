package fusion

import (
	"math"
	"time"

	"github.com/ajitpratap0/tradingpipeline/internal/protocol"
)

// StrategyName selects one of the four fusion strategies.
type StrategyName string

const (
	StrategyBayesian  StrategyName = "bayesian"
	StrategyConsensus StrategyName = "consensus"
	StrategyTimeDecay StrategyName = "time_decay"
	StrategyHybrid    StrategyName = "hybrid"
)

// halfLife is TimeDecay's weighting half-life (30 minutes).
const halfLife = 30 * time.Minute

var decayLambda = math.Ln2 / halfLife.Seconds()

// hybridWeights are Hybrid's fixed per-strategy blend weights.
const (
	hybridBayesianWeight  = 0.4
	hybridConsensusWeight = 0.3
	hybridTimeDecayWeight = 0.3
)

// Decision is one fusion strategy's (action, confidence) conclusion plus
// the per-strategy breakdown Hybrid needs for its FusionMeta audit trail.
type Decision struct {
	Action      protocol.TradeAction
	Confidence  float64
	PerStrategy map[string]float64
}

// Fuse runs the named strategy over buf as of now, applying reliability as
// the per-source confidence multiplier Bayesian uses (Hybrid passes it on
// to its Bayesian component; Consensus and TimeDecay ignore it).
func Fuse(name StrategyName, buf []protocol.Signal, now time.Time, reliability *Reliability) Decision {
	switch name {
	case StrategyBayesian:
		return bayesian(buf, reliability)
	case StrategyConsensus:
		return consensus(buf)
	case StrategyTimeDecay:
		return timeDecay(buf, now)
	case StrategyHybrid:
		return hybrid(buf, now, reliability)
	default:
		return bayesian(buf, reliability)
	}
}

// bayesian treats each signal as an independent likelihood: p_B = Π conf_i
// for BUY signals, p_S likewise for SELL, p_H = (1-max(conf))^|HOLD|;
// normalize to sum 1, pick argmax, ties break to HOLD.
func bayesian(buf []protocol.Signal, reliability *Reliability) Decision {
	pBuy, pSell := 1.0, 1.0
	maxConf := 0.0
	holdCount := 0

	for _, s := range buf {
		conf := s.Confidence
		if reliability != nil {
			conf = clampWeight(conf * reliability.Weight(s.Agent))
		}
		switch s.Kind {
		case protocol.SignalBuy:
			pBuy *= conf
			if conf > maxConf {
				maxConf = conf
			}
		case protocol.SignalSell:
			pSell *= conf
			if conf > maxConf {
				maxConf = conf
			}
		case protocol.SignalHold:
			holdCount++
			if conf > maxConf {
				maxConf = conf
			}
		}
	}
	pHold := math.Pow(1-maxConf, float64(holdCount))

	total := pBuy + pSell + pHold
	if total == 0 {
		return Decision{Action: protocol.ActionHold, Confidence: 0}
	}
	pBuy, pSell, pHold = pBuy/total, pSell/total, pHold/total

	action, conf := argmaxTie(pBuy, pSell, pHold)
	return Decision{Action: action, Confidence: conf}
}

// consensus is a majority vote by kind; if the winner's share of the
// buffer is below min_agreement, the decision is forced to HOLD at that
// share's confidence.
func consensus(buf []protocol.Signal) Decision {
	if len(buf) == 0 {
		return Decision{Action: protocol.ActionHold, Confidence: 0}
	}
	var buy, sell, hold int
	for _, s := range buf {
		switch s.Kind {
		case protocol.SignalBuy:
			buy++
		case protocol.SignalSell:
			sell++
		case protocol.SignalHold:
			hold++
		}
	}
	n := float64(len(buf))
	action, votes := argmaxTieVotes(buy, sell, hold)
	share := float64(votes) / n
	if action != protocol.ActionHold && share < defaultMinAgreement {
		return Decision{Action: protocol.ActionHold, Confidence: share}
	}
	return Decision{Action: action, Confidence: share}
}

// defaultMinAgreement is Consensus's default min_agreement (0.6); the
// caller-configurable value lives in internal/config and is threaded
// through ConsensusWithAgreement for anyone needing a non-default value.
const defaultMinAgreement = 0.6

// ConsensusWithAgreement is consensus parameterized by min_agreement,
// used by callers carrying a configured threshold instead of the default.
func ConsensusWithAgreement(buf []protocol.Signal, minAgreement float64) Decision {
	if len(buf) == 0 {
		return Decision{Action: protocol.ActionHold, Confidence: 0}
	}
	var buy, sell, hold int
	for _, s := range buf {
		switch s.Kind {
		case protocol.SignalBuy:
			buy++
		case protocol.SignalSell:
			sell++
		case protocol.SignalHold:
			hold++
		}
	}
	n := float64(len(buf))
	action, votes := argmaxTieVotes(buy, sell, hold)
	share := float64(votes) / n
	if action != protocol.ActionHold && share < minAgreement {
		return Decision{Action: protocol.ActionHold, Confidence: share}
	}
	return Decision{Action: action, Confidence: share}
}

// timeDecay weights each signal by exp(-lambda*age) and picks the argmax
// weighted-sum kind; confidence is that kind's share of total weight.
func timeDecay(buf []protocol.Signal, now time.Time) Decision {
	var wBuy, wSell, wHold, total float64
	for _, s := range buf {
		age := now.Sub(s.EmittedAt).Seconds()
		if age < 0 {
			age = 0
		}
		w := math.Exp(-decayLambda*age) * s.Confidence
		total += w
		switch s.Kind {
		case protocol.SignalBuy:
			wBuy += w
		case protocol.SignalSell:
			wSell += w
		case protocol.SignalHold:
			wHold += w
		}
	}
	if total == 0 {
		return Decision{Action: protocol.ActionHold, Confidence: 0}
	}
	action, w := argmaxTie(wBuy, wSell, wHold)
	return Decision{Action: action, Confidence: w / total}
}

// hybrid runs Bayesian, Consensus, and TimeDecay, then combines their
// confidences with fixed weights bucketed by each strategy's chosen
// action, and picks the argmax bucket.
func hybrid(buf []protocol.Signal, now time.Time, reliability *Reliability) Decision {
	b := bayesian(buf, reliability)
	c := consensus(buf)
	t := timeDecay(buf, now)

	buckets := map[protocol.TradeAction]float64{}
	buckets[b.Action] += b.Confidence * hybridBayesianWeight
	buckets[c.Action] += c.Confidence * hybridConsensusWeight
	buckets[t.Action] += t.Confidence * hybridTimeDecayWeight

	action, conf := argmaxBucket(buckets)
	return Decision{
		Action:     action,
		Confidence: conf,
		PerStrategy: map[string]float64{
			string(StrategyBayesian):  b.Confidence,
			string(StrategyConsensus): c.Confidence,
			string(StrategyTimeDecay): t.Confidence,
		},
	}
}

func argmaxTie(buy, sell, hold float64) (protocol.TradeAction, float64) {
	if buy > sell && buy > hold {
		return protocol.ActionBuy, buy
	}
	if sell > buy && sell > hold {
		return protocol.ActionSell, sell
	}
	return protocol.ActionHold, hold
}

func argmaxTieVotes(buy, sell, hold int) (protocol.TradeAction, int) {
	if buy > sell && buy > hold {
		return protocol.ActionBuy, buy
	}
	if sell > buy && sell > hold {
		return protocol.ActionSell, sell
	}
	return protocol.ActionHold, hold
}

func argmaxBucket(buckets map[protocol.TradeAction]float64) (protocol.TradeAction, float64) {
	buy, sell, hold := buckets[protocol.ActionBuy], buckets[protocol.ActionSell], buckets[protocol.ActionHold]
	return argmaxTie(buy, sell, hold)
}

func clampWeight(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
