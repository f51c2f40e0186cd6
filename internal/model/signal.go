package model

// Side is the direction of a trade signal.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// SignalMarker is a buy/sell event placed on the bar timeline.
type SignalMarker struct {
	Time  int64
	Side  Side
	Label string
}

// IndicatorPoint is one value of an indicator line, keyed by bar start time.
type IndicatorPoint struct {
	Time  int64
	Value float64
}
