package signal

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/tradingpipeline/internal/indicators"
	"github.com/ajitpratap0/tradingpipeline/internal/protocol"
)

const (
	rsiPeriod        = 14
	macdFast         = 12
	macdSlow         = 26
	macdSignal       = 9
	bollingerPeriod  = 20
	atrPeriod        = 14
	volumeSMAPeriod  = 20
	volumeRatioGate  = 1.3
	volumeConfirmCap = 1.1
)

// Result is one evaluation's outcome: the signals emitted (zero or more)
// plus, on cold start, the number of additional candles still needed.
type Result struct {
	Signals          []protocol.Signal
	InsufficientData bool
	Deficit          int
}

// Evaluate derives TechnicalAnalysis's signals for one candle close by
// running the per-indicator-family rules. It never emits HOLD: an indicator
// that doesn't trigger contributes no signal at all.
func Evaluate(w *Window, minWindow int, symbol, agentName string, now time.Time) (*Result, error) {
	if minWindow <= 0 {
		minWindow = 200
	}
	if w.Len() < minWindow {
		return &Result{InsufficientData: true, Deficit: minWindow - w.Len()}, nil
	}

	closes, highs, lows, volumes := w.Closes(), w.Highs(), w.Lows(), w.Volumes()
	price := indicators.Last(closes)

	var signals []protocol.Signal

	if rsiSig, ok, err := rsiSignal(closes, symbol, agentName, now); err != nil {
		return nil, fmt.Errorf("rsi rule: %w", err)
	} else if ok {
		signals = append(signals, rsiSig)
	}

	if macdSig, ok, err := macdSignalRule(closes, highs, lows, symbol, agentName, now); err != nil {
		return nil, fmt.Errorf("macd rule: %w", err)
	} else if ok {
		signals = append(signals, macdSig)
	}

	if bbSig, ok, err := bollingerSignal(closes, symbol, agentName, now); err != nil {
		return nil, fmt.Errorf("bollinger rule: %w", err)
	} else if ok {
		signals = append(signals, bbSig)
	}

	applyVolumeConfirmation(signals, closes, volumes, price)

	return &Result{Signals: signals}, nil
}

// LogInsufficient logs the "insufficient_data" cold-start message.
func LogInsufficient(log zerolog.Logger, symbol string, deficit int) {
	log.Info().Str("symbol", symbol).Int("deficit", deficit).Msg("insufficient_data")
}

func newSignal(symbol, agent string, kind protocol.SignalKind, confidence float64, now time.Time, indicatorsSnap protocol.IndicatorSnapshot) protocol.Signal {
	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}
	return protocol.Signal{
		ID:         uuid.New(),
		Symbol:     symbol,
		Agent:      agent,
		Kind:       kind,
		Confidence: confidence,
		EmittedAt:  now,
		Indicators: indicatorsSnap,
	}
}

// rsiSignal implements: RSI<30 => BUY conf=min(1,(30-rsi)/30*0.85+0.15);
// RSI>70 => SELL symmetric; exactly 30/70 emits nothing (strict inequality
// on both boundaries).
func rsiSignal(closes []float64, symbol, agent string, now time.Time) (protocol.Signal, bool, error) {
	values, err := indicators.RSI(closes, rsiPeriod)
	if err != nil {
		return protocol.Signal{}, false, err
	}
	rsi := indicators.Last(values)

	snap := protocol.IndicatorSnapshot{"rsi": decimal.NewFromFloat(rsi)}

	switch {
	case rsi < 30:
		conf := min1((30-rsi)/30*0.85 + 0.15)
		return newSignal(symbol, agent, protocol.SignalBuy, conf, now, snap), true, nil
	case rsi > 70:
		conf := min1((rsi-70)/30*0.85 + 0.15)
		return newSignal(symbol, agent, protocol.SignalSell, conf, now, snap), true, nil
	default:
		return protocol.Signal{}, false, nil
	}
}

// macdSignalRule implements: MACD line crosses signal from below with
// histogram>0 => BUY; crosses from above with histogram<0 => SELL; conf
// scales with |hist|/ATR clamped to [0,0.85].
func macdSignalRule(closes, highs, lows []float64, symbol, agent string, now time.Time) (protocol.Signal, bool, error) {
	macd, err := indicators.MACD(closes, macdFast, macdSlow, macdSignal)
	if err != nil {
		return protocol.Signal{}, false, err
	}
	n := len(macd.MACD)
	if n < 2 {
		return protocol.Signal{}, false, nil
	}
	prevMACD, prevSignal := macd.MACD[n-2], macd.Signal[n-2]
	curMACD, curSignal := macd.MACD[n-1], macd.Signal[n-1]
	hist := macd.Histogram[n-1]

	atrValues, err := indicators.ATR(highs, lows, closes, atrPeriod)
	if err != nil {
		return protocol.Signal{}, false, err
	}
	atr := indicators.Last(atrValues)

	snap := protocol.IndicatorSnapshot{
		"macd":      decimal.NewFromFloat(curMACD),
		"signal":    decimal.NewFromFloat(curSignal),
		"histogram": decimal.NewFromFloat(hist),
		"atr":       decimal.NewFromFloat(atr),
	}

	crossedUp := prevMACD <= prevSignal && curMACD > curSignal
	crossedDown := prevMACD >= prevSignal && curMACD < curSignal

	switch {
	case crossedUp && hist > 0:
		return newSignal(symbol, agent, protocol.SignalBuy, macdConfidence(hist, atr), now, snap), true, nil
	case crossedDown && hist < 0:
		return newSignal(symbol, agent, protocol.SignalSell, macdConfidence(hist, atr), now, snap), true, nil
	default:
		return protocol.Signal{}, false, nil
	}
}

func macdConfidence(hist, atr float64) float64 {
	if atr == 0 {
		return 0
	}
	return clamp(abs(hist)/atr, 0, 0.85)
}

// bollingerSignal implements: price <= lower band => BUY; price >= upper
// band => SELL; conf = clamp(|price-mid|/(2*sigma), 0, 0.8), where 2*sigma
// is the band half-width (upper-middle, since cinar's bands are fixed at
// 2 standard deviations).
func bollingerSignal(closes []float64, symbol, agent string, now time.Time) (protocol.Signal, bool, error) {
	bb, err := indicators.Bollinger(closes, bollingerPeriod)
	if err != nil {
		return protocol.Signal{}, false, err
	}
	n := len(bb.Middle)
	upper, middle, lower := bb.Upper[n-1], bb.Middle[n-1], bb.Lower[n-1]
	price := indicators.Last(closes)

	twoSigma := upper - middle
	snap := protocol.IndicatorSnapshot{
		"upper":  decimal.NewFromFloat(upper),
		"middle": decimal.NewFromFloat(middle),
		"lower":  decimal.NewFromFloat(lower),
		"price":  decimal.NewFromFloat(price),
	}

	conf := 0.0
	if twoSigma != 0 {
		conf = clamp(abs(price-middle)/twoSigma, 0, 0.8)
	}

	switch {
	case price <= lower:
		return newSignal(symbol, agent, protocol.SignalBuy, conf, now, snap), true, nil
	case price >= upper:
		return newSignal(symbol, agent, protocol.SignalSell, conf, now, snap), true, nil
	default:
		return protocol.Signal{}, false, nil
	}
}

// applyVolumeConfirmation implements volume-ratio confirmation: when
// current volume / SMA20(volume) > 1.3, the dominant directional
// signal (the one matching the majority kind among those just emitted) has
// its confidence multiplied, capped so the result never exceeds 1.1x the
// original confidence.
func applyVolumeConfirmation(signals []protocol.Signal, closes, volumes []float64, price float64) {
	if len(signals) == 0 {
		return
	}
	volSMA, err := indicators.SMA(volumes, volumeSMAPeriod)
	if err != nil {
		return
	}
	avgVolume := indicators.Last(volSMA)
	if avgVolume == 0 {
		return
	}
	currentVolume := indicators.Last(volumes)
	ratio := currentVolume / avgVolume
	if ratio <= volumeRatioGate {
		return
	}

	dominant, ok := dominantKind(signals)
	if !ok {
		return
	}

	for i := range signals {
		if signals[i].Kind != dominant {
			continue
		}
		boosted := signals[i].Confidence * volumeConfirmCap
		if boosted > 1 {
			boosted = 1
		}
		signals[i].Confidence = boosted
		signals[i].Indicators["volumeRatio"] = decimal.NewFromFloat(ratio)
	}
	_ = price
}

func dominantKind(signals []protocol.Signal) (protocol.SignalKind, bool) {
	counts := map[protocol.SignalKind]int{}
	for _, s := range signals {
		counts[s.Kind]++
	}
	var best protocol.SignalKind
	bestCount := 0
	tie := false
	for k, c := range counts {
		switch {
		case c > bestCount:
			best, bestCount, tie = k, c, false
		case c == bestCount:
			tie = true
		}
	}
	if tie || bestCount == 0 {
		return "", false
	}
	return best, true
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
