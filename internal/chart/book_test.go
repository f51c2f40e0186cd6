package chart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CandleSync/internal/collector"
	"CandleSync/internal/history"
	"CandleSync/internal/model"
)

type recordingSurface struct {
	mu         sync.Mutex
	bars       int
	forming    []model.Bar
	indicators map[string]int
	markers    int
}

func newRecordingSurface() *recordingSurface {
	return &recordingSurface{indicators: make(map[string]int)}
}

func (r *recordingSurface) RenderBars(string, []model.Bar) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bars++
}

func (r *recordingSurface) RenderForming(_ string, bar model.Bar) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forming = append(r.forming, bar)
}

func (r *recordingSurface) RenderIndicator(_ string, name string, _ []model.IndicatorPoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indicators[name]++
}

func (r *recordingSurface) RenderMarkers(string, []model.SignalMarker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markers++
}

func fixture(t *testing.T) (*collector.MockSource, *history.History, *Book, *recordingSurface) {
	t.Helper()
	src := &collector.MockSource{
		Bars: collector.RawRows(
			[]any{"ref"},
			[]any{0, 100, nil, 10, 12, 13, 9},
			[]any{0, 200, nil, 12, 14, 15, 11},
			[]any{0, 300, nil, 14, 13, 15, 12},
		),
		Indicators: map[string][]json.RawMessage{
			"short": collector.RawRows(11, 12, 13),
		},
		Signals: collector.RawRows([]any{100, "B", "L"}),
	}
	h := history.New()
	_, _, err := h.Reconcile(src.Bars)
	require.NoError(t, err)

	col := collector.NewCollector(src, "BTCUSDT", []collector.IndicatorSpec{
		{Name: "short"},
		{Name: "ema3", Local: true, Kind: "ema", Period: 3},
	}, 0)
	surface := newRecordingSurface()
	return src, h, NewBook("BTCUSDT", h, col, surface), surface
}

func TestRefreshOnlyWhenBarsChange(t *testing.T) {
	src, h, book, surface := fixture(t)

	changed, fresh := book.Refresh(context.Background(), false)
	assert.True(t, changed)
	assert.Empty(t, fresh, "first refresh is the baseline")
	assert.Equal(t, 1, surface.bars)

	snap := book.Snapshot()
	require.Len(t, snap.Closed, 2)
	assert.True(t, snap.HasForming)
	assert.Equal(t, []model.IndicatorPoint{{Time: 100, Value: 12}}, snap.Indicators["short"])
	assert.Len(t, snap.Indicators["ema3"], 1)
	assert.Len(t, snap.Markers, 1)

	changed, _ = book.Refresh(context.Background(), false)
	assert.False(t, changed)
	assert.Equal(t, 1, surface.bars)

	_, _, err := h.Reconcile(src.Bars)
	require.NoError(t, err)
	changed, _ = book.Refresh(context.Background(), false)
	assert.True(t, changed)
	assert.Equal(t, 2, surface.bars)
}

func TestForcedRefreshReportsNewMarkers(t *testing.T) {
	src, _, book, surface := fixture(t)
	book.Refresh(context.Background(), false)

	src.Signals = collector.RawRows([]any{100, "B", "L"}, []any{200, "S", "H"})
	changed, fresh := book.Refresh(context.Background(), true)
	assert.True(t, changed)
	require.Len(t, fresh, 1)
	assert.Equal(t, model.SignalMarker{Time: 200, Side: model.SideSell, Label: "H"}, fresh[0])
	assert.Equal(t, 1, surface.bars, "bars were not re-rendered")
	assert.Equal(t, 2, surface.markers)
}

func TestRefreshKeepsPreviousSeriesOnFailure(t *testing.T) {
	src, _, book, _ := fixture(t)
	book.Refresh(context.Background(), false)
	before := book.Snapshot()

	src.SetErr(&model.TransportError{Op: "fetch", URL: "mock", Status: 500, Err: errors.New("down")})
	changed, fresh := book.Refresh(context.Background(), true)
	assert.True(t, changed)
	assert.Empty(t, fresh)

	after := book.Snapshot()
	assert.Equal(t, before.Indicators["short"], after.Indicators["short"])
	assert.Equal(t, before.Markers, after.Markers)
	// Local indicators do not depend on the backend.
	assert.Equal(t, before.Indicators["ema3"], after.Indicators["ema3"])
}

func TestPushForming(t *testing.T) {
	_, h, book, surface := fixture(t)
	bar, ok := h.Forming()
	require.True(t, ok)

	book.PushForming(bar)
	require.Len(t, surface.forming, 1)
	assert.Equal(t, bar, surface.forming[0])
}

func TestDiffMarkers(t *testing.T) {
	prev := []model.SignalMarker{{Time: 1, Side: model.SideBuy, Label: "a"}}
	next := []model.SignalMarker{
		{Time: 1, Side: model.SideBuy, Label: "relabelled"},
		{Time: 1, Side: model.SideSell, Label: "a"},
	}
	got := diffMarkers(prev, next)
	require.Len(t, got, 1)
	assert.Equal(t, model.SideSell, got[0].Side)
}
