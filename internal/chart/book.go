package chart

import (
	"context"
	"sync"
	"time"

	"CandleSync/internal/collector"
	"CandleSync/internal/history"
	"CandleSync/internal/model"
)

// Snapshot is an immutable view of everything the chart displays.
type Snapshot struct {
	Symbol     string
	Closed     []model.Bar
	Forming    model.Bar
	HasForming bool
	Indicators map[string][]model.IndicatorPoint
	Markers    []model.SignalMarker
	Version    uint64
	TakenAt    time.Time
}

// Book keeps the derived display series in step with a History and pushes
// them to a Surface. Indicators and markers are recomputed only when the
// closed-bar set changes, or when a refresh is forced.
type Book struct {
	Symbol    string
	History   *history.History
	Collector *collector.Collector
	Surface   Surface

	mu         sync.Mutex
	derived    bool
	version    uint64
	indicators map[string][]model.IndicatorPoint
	markers    []model.SignalMarker
}

// NewBook creates a Book.
func NewBook(symbol string, h *history.History, col *collector.Collector, surface Surface) *Book {
	if surface == nil {
		surface = NopSurface{}
	}
	return &Book{
		Symbol:     symbol,
		History:    h,
		Collector:  col,
		Surface:    surface,
		indicators: make(map[string][]model.IndicatorPoint),
	}
}

// PushForming sends the forming bar to the surface.
func (b *Book) PushForming(bar model.Bar) {
	b.Surface.RenderForming(b.Symbol, bar)
}

// Refresh re-derives indicators and markers if the closed-bar set changed
// since the last refresh, or unconditionally when force is set. It returns
// the markers that were not present before; the first refresh only sets the
// baseline and returns none. Series that fail to refresh keep their
// previous values.
func (b *Book) Refresh(ctx context.Context, force bool) (changed bool, fresh []model.SignalMarker) {
	b.mu.Lock()
	defer b.mu.Unlock()

	closed, ref, version := b.History.Snapshot()
	if b.derived && version == b.version && !force {
		return false, nil
	}
	barsChanged := !b.derived || version != b.version

	ov := b.Collector.Collect(ctx, closed, ref)

	if barsChanged {
		b.Surface.RenderBars(b.Symbol, closed)
	}
	next := make(map[string][]model.IndicatorPoint, len(b.indicators))
	for name, pts := range b.indicators {
		next[name] = pts
	}
	for name, pts := range ov.Indicators {
		next[name] = pts
		b.Surface.RenderIndicator(b.Symbol, name, pts)
	}
	b.indicators = next

	if _, failed := ov.Failed["signals"]; !failed {
		if b.derived {
			fresh = diffMarkers(b.markers, ov.Markers)
		}
		b.markers = ov.Markers
		b.Surface.RenderMarkers(b.Symbol, ov.Markers)
	}

	b.derived = true
	b.version = version
	return true, fresh
}

// Snapshot returns the current display state.
func (b *Book) Snapshot() Snapshot {
	b.mu.Lock()
	indicators := make(map[string][]model.IndicatorPoint, len(b.indicators))
	for name, pts := range b.indicators {
		indicators[name] = pts
	}
	markers := b.markers
	b.mu.Unlock()

	closed, _, version := b.History.Snapshot()
	forming, ok := b.History.Forming()
	return Snapshot{
		Symbol:     b.Symbol,
		Closed:     closed,
		Forming:    forming,
		HasForming: ok,
		Indicators: indicators,
		Markers:    markers,
		Version:    version,
		TakenAt:    time.Now(),
	}
}

type markerKey struct {
	time int64
	side model.Side
}

func diffMarkers(prev, next []model.SignalMarker) []model.SignalMarker {
	seen := make(map[markerKey]struct{}, len(prev))
	for _, m := range prev {
		seen[markerKey{m.Time, m.Side}] = struct{}{}
	}
	var out []model.SignalMarker
	for _, m := range next {
		if _, ok := seen[markerKey{m.Time, m.Side}]; !ok {
			out = append(out, m)
		}
	}
	return out
}
