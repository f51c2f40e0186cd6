package calculator

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"CandleSync/internal/model"
)

// Align maps a positional indicator payload onto bar start times. Entry i of
// raw belongs to closed[i]; entry 0 is skipped because the first bar has no
// predecessor to pair with. A raw entry is either a bare value or a
// [timestamp, value] pair. Missing or non-numeric values fall back to the
// bar's close so the line stays continuous; zero is a real value.
func Align(raw []json.RawMessage, closed []model.Bar) []model.IndicatorPoint {
	values := make([]float64, len(closed))
	for i := range values {
		values[i] = math.NaN()
		if i >= len(raw) {
			continue
		}
		row, err := model.DecodeRow(raw[i])
		if err != nil || len(row) == 0 {
			continue
		}
		cell := row[0]
		if len(row) > 1 {
			cell = row[1]
		}
		if v, err := cell.Float(); err == nil {
			values[i] = v
		}
	}
	return AlignValues(values, closed)
}

// AlignValues pairs values[i] with closed[i].Start for i >= 1. NaN entries
// and entries past the end of values fall back to the bar's close.
func AlignValues(values []float64, closed []model.Bar) []model.IndicatorPoint {
	if len(closed) < 2 {
		return []model.IndicatorPoint{}
	}
	points := make([]model.IndicatorPoint, 0, len(closed)-1)
	for i := 1; i < len(closed); i++ {
		v := closed[i].Close
		if i < len(values) && !math.IsNaN(values[i]) {
			v = values[i]
		}
		points = append(points, model.IndicatorPoint{Time: closed[i].Start, Value: v})
	}
	return points
}

// Local computes an indicator of kind "ema", "sma" or "rsi" over the closes
// of closed and aligns it like a server-side indicator.
func Local(kind string, period int, closed []model.Bar) ([]model.IndicatorPoint, error) {
	closes := Closes(closed)
	var (
		values []float64
		err    error
	)
	switch strings.ToLower(kind) {
	case "ema":
		values, err = EMASeries(closes, period)
	case "sma":
		values, err = SMASeries(closes, period)
	case "rsi":
		values, err = RSISeries(closes, period)
	default:
		return nil, fmt.Errorf("unknown indicator kind %q", kind)
	}
	if err != nil {
		return nil, err
	}
	return AlignValues(values, closed), nil
}
