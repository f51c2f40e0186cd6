package model

import "math"

// Bar represents a single OHLC candlestick. Times are unix seconds.
type Bar struct {
	Start int64   `json:"start"`
	End   int64   `json:"end"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Valid reports whether the bar satisfies low <= min(open,close),
// high >= max(open,close) and end > start.
func (b Bar) Valid() bool {
	if b.End <= b.Start {
		return false
	}
	return b.Low <= math.Min(b.Open, b.Close) && b.High >= math.Max(b.Open, b.Close)
}

// PriceTick is one observation of the last-trade price.
type PriceTick struct {
	Price       float64
	BarDuration int64 // nominal bar duration in seconds
	ObservedAt  int64 // unix seconds
}

// Valid reports whether the tick carries a usable price and duration.
func (t PriceTick) Valid() bool {
	if math.IsNaN(t.Price) || math.IsInf(t.Price, 0) {
		return false
	}
	return t.BarDuration > 0
}
