package collector

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CandleSync/internal/model"
)

func closedBars() []model.Bar {
	return []model.Bar{
		{Start: 0, End: 60, Open: 1, High: 2, Low: 1, Close: 2},
		{Start: 60, End: 120, Open: 2, High: 3, Low: 2, Close: 3},
		{Start: 120, End: 180, Open: 3, High: 4, Low: 3, Close: 4},
	}
}

func TestCollect(t *testing.T) {
	src := &MockSource{
		Indicators: map[string][]json.RawMessage{
			"short": RawRows("1", "2.5", "3.5"),
		},
		Signals: RawRows([]any{"60", "B", "go"}, []any{"9999", "S"}),
	}
	c := NewCollector(src, "BTCUSDT", []IndicatorSpec{
		{Name: "short"},
		{Name: "long"},
		{Name: "sma2", Local: true, Kind: "sma", Period: 2},
	}, 0)

	ov := c.Collect(context.Background(), closedBars(), "ref")

	assert.Equal(t, []model.IndicatorPoint{{Time: 60, Value: 2.5}, {Time: 120, Value: 3.5}}, ov.Indicators["short"])
	assert.Equal(t, []model.IndicatorPoint{{Time: 60, Value: 2.5}, {Time: 120, Value: 3.5}}, ov.Indicators["sma2"])

	require.Contains(t, ov.Failed, "long")
	assert.True(t, model.IsTransport(ov.Failed["long"]))
	assert.NotContains(t, ov.Indicators, "long")

	// Out-of-range markers are kept and only logged.
	require.Len(t, ov.Markers, 2)
	assert.Equal(t, model.SideBuy, ov.Markers[0].Side)
	assert.Equal(t, "go", ov.Markers[0].Label)
	assert.NotContains(t, ov.Failed, "signals")
}

func TestCollectSignalsFailure(t *testing.T) {
	src := &MockSource{Err: &model.TransportError{Op: "fetch", URL: "mock", Status: 500}}
	c := NewCollector(src, "BTCUSDT", nil, 0)

	ov := c.Collect(context.Background(), closedBars(), "ref")
	assert.Contains(t, ov.Failed, "signals")
	assert.Nil(t, ov.Markers)
}
