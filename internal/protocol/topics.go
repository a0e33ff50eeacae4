package protocol

import "fmt"

// Canonical bus topics. Per-symbol topics are formatted with the helpers
// below; the rest are fixed strings every agent shares.
const (
	TopicSignalsTech      = "signals.tech"
	TopicTradeIntent      = "trade.intent"
	TopicTradeOrder       = "trade.order"
	TopicOrderStatus      = "order.status"
	TopicPositionUpdate   = "position.update"
	TopicDiagnosticsError = "diagnostics.agent_error"
)

// TopicMarketTick returns the per-symbol tick topic, e.g. "market.tick.BTCUSDT".
func TopicMarketTick(symbol string) string {
	return fmt.Sprintf("market.tick.%s", symbol)
}

// TopicMarketOHLCV returns the per-symbol candle topic, e.g. "market.ohlcv.BTCUSDT".
func TopicMarketOHLCV(symbol string) string {
	return fmt.Sprintf("market.ohlcv.%s", symbol)
}
