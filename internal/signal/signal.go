package signal

import (
	"encoding/json"
	"strings"

	"CandleSync/internal/model"
)

// DefaultLabel is used when a signal row carries no label.
const DefaultLabel = "X"

// Map converts raw [timestamp, side, label?] rows into markers, one per row.
// Side "B" is a buy, anything else a sell. Rows whose timestamp cannot be
// decoded are skipped and reported in errs.
func Map(rows []json.RawMessage) (markers []model.SignalMarker, errs []error) {
	markers = make([]model.SignalMarker, 0, len(rows))
	for i, raw := range rows {
		row, err := model.DecodeRow(raw)
		if err != nil {
			errs = append(errs, &model.ParseError{Row: i, Field: "row", Err: err})
			continue
		}
		ts, err := row.At(0).Seconds()
		if err != nil {
			errs = append(errs, &model.ParseError{Row: i, Field: "timestamp", Value: row.At(0).String(), Err: err})
			continue
		}
		side := model.SideSell
		if strings.HasPrefix(strings.TrimSpace(row.At(1).String()), "B") {
			side = model.SideBuy
		}
		label := row.At(2).String()
		if label == "" {
			label = DefaultLabel
		}
		markers = append(markers, model.SignalMarker{Time: ts, Side: side, Label: label})
	}
	return markers, errs
}

// OutOfRange returns the markers whose time falls outside the span covered
// by closed, from the first bar's start to the last bar's end.
func OutOfRange(markers []model.SignalMarker, closed []model.Bar) []model.SignalMarker {
	if len(closed) == 0 {
		return markers
	}
	lo, hi := closed[0].Start, closed[len(closed)-1].End
	var out []model.SignalMarker
	for _, m := range markers {
		if m.Time < lo || m.Time > hi {
			out = append(out, m)
		}
	}
	return out
}
