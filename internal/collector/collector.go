package collector

import (
	"context"
	"fmt"
	"log"
	"time"

	"CandleSync/internal/calculator"
	"CandleSync/internal/model"
	"CandleSync/internal/signal"
)

// IndicatorSpec describes one overlay line. Remote indicators are fetched
// from the backend; local ones are computed from closed-bar closes.
type IndicatorSpec struct {
	Name   string
	Local  bool
	Kind   string // ema, sma or rsi; local only
	Period int
}

// Overlay holds the derived display series for one closed-bar snapshot.
type Overlay struct {
	Indicators map[string][]model.IndicatorPoint
	Markers    []model.SignalMarker
	// Failed lists the series that could not be refreshed, keyed by
	// indicator name or "signals". Callers keep showing the previous values.
	Failed map[string]error
}

// Collector orchestrates fetching indicator and signal rows and deriving
// display series aligned to the bar timeline.
type Collector struct {
	Source     Source
	Symbol     string
	Indicators []IndicatorSpec
	Timeout    time.Duration
}

// NewCollector creates a new Collector.
func NewCollector(src Source, symbol string, indicators []IndicatorSpec, timeout time.Duration) *Collector {
	return &Collector{Source: src, Symbol: symbol, Indicators: indicators, Timeout: timeout}
}

// Collect derives every configured indicator and the signal markers for the
// given closed bars. since must be the reference timestamp the bars were
// loaded with, so positional indicator rows line up with them.
func (c *Collector) Collect(ctx context.Context, closed []model.Bar, since string) *Overlay {
	ov := &Overlay{
		Indicators: make(map[string][]model.IndicatorPoint, len(c.Indicators)),
		Failed:     make(map[string]error),
	}

	for _, spec := range c.Indicators {
		points, err := c.indicator(ctx, spec, closed, since)
		if err != nil {
			log.Printf("[WARN] indicator %s: %v", spec.Name, err)
			ov.Failed[spec.Name] = err
			continue
		}
		ov.Indicators[spec.Name] = points
	}

	markers, err := c.signals(ctx, closed)
	if err != nil {
		log.Printf("[WARN] signals: %v", err)
		ov.Failed["signals"] = err
	} else {
		ov.Markers = markers
	}
	return ov
}

func (c *Collector) indicator(ctx context.Context, spec IndicatorSpec, closed []model.Bar, since string) ([]model.IndicatorPoint, error) {
	if spec.Local {
		return calculator.Local(spec.Kind, spec.Period, closed)
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	rows, err := c.Source.FetchIndicator(ctx, spec.Name, c.Symbol, since)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return calculator.Align(rows, closed), nil
}

func (c *Collector) signals(ctx context.Context, closed []model.Bar) ([]model.SignalMarker, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	rows, err := c.Source.FetchSignals(ctx, c.Symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	markers, errs := signal.Map(rows)
	for _, e := range errs {
		log.Printf("[WARN] signals: dropped row: %v", e)
	}
	if outside := signal.OutOfRange(markers, closed); len(outside) > 0 {
		log.Printf("[WARN] signals: %d of %d markers fall outside the bar range", len(outside), len(markers))
	}
	return markers, nil
}

func (c *Collector) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Timeout)
}
