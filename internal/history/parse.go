package history

import (
	"encoding/json"
	"errors"

	"CandleSync/internal/model"
)

// Column layout of a bar row as served by the backend:
// [beginTime, endTime, period, open, close, high, low, amount, volume, trades]
const (
	colBegin = 0
	colEnd   = 1
	colOpen  = 3
	colClose = 4
	colHigh  = 5
	colLow   = 6
)

var (
	// ErrNoReference is returned when a bar payload lacks the leading reference timestamp.
	ErrNoReference = errors.New("bar payload has no reference timestamp")

	errInvalidBar = errors.New("ohlc values violate bar invariant")
	errOutOfOrder = errors.New("end time precedes previous bar")
)

// ParseBars decodes a raw bar payload. The first element is the reference
// timestamp used to key later requests; every other element is a bar row.
// Rows that cannot be decoded are dropped and reported in errs.
func ParseBars(payload []json.RawMessage) (ref string, bars []model.Bar, errs []error, err error) {
	if len(payload) == 0 {
		return "", nil, nil, ErrNoReference
	}
	head, err := model.DecodeRow(payload[0])
	if err != nil || len(head) == 0 {
		return "", nil, nil, ErrNoReference
	}
	ref = head[0].String()

	bars = make([]model.Bar, 0, len(payload)-1)
	for i, raw := range payload[1:] {
		rowIdx := i + 1
		row, err := model.DecodeRow(raw)
		if err != nil {
			errs = append(errs, &model.ParseError{Row: rowIdx, Field: "row", Err: err})
			continue
		}

		end, err := row.At(colEnd).Seconds()
		if err == nil && end == 0 {
			err = model.ErrMissing
		}
		if err != nil {
			errs = append(errs, &model.ParseError{Row: rowIdx, Field: "end", Value: row.At(colEnd).String(), Err: err})
			continue
		}

		// Equal end times replace the previous bar; earlier ones are dropped.
		replace := false
		if n := len(bars); n > 0 {
			last := bars[n-1].End
			if end < last {
				errs = append(errs, &model.ParseError{Row: rowIdx, Field: "end", Value: row.At(colEnd).String(), Err: errOutOfOrder})
				continue
			}
			replace = end == last
		}

		bar, perr := decodeOHLC(rowIdx, row)
		if perr != nil {
			errs = append(errs, perr)
			continue
		}
		bar.End = end

		prev := len(bars) - 1
		if replace {
			prev--
		}
		if begin, err := row.At(colBegin).Seconds(); err == nil && begin > 0 && begin < end {
			bar.Start = begin
		} else if prev >= 0 {
			bar.Start = bars[prev].End
		}

		if !bar.Valid() {
			errs = append(errs, &model.ParseError{Row: rowIdx, Field: "bar", Err: errInvalidBar})
			continue
		}
		if replace {
			bars[len(bars)-1] = bar
		} else {
			bars = append(bars, bar)
		}
	}
	return ref, bars, errs, nil
}

func decodeOHLC(rowIdx int, row model.Row) (model.Bar, error) {
	var bar model.Bar
	fields := []struct {
		name string
		col  int
		dst  *float64
	}{
		{"open", colOpen, &bar.Open},
		{"close", colClose, &bar.Close},
		{"high", colHigh, &bar.High},
		{"low", colLow, &bar.Low},
	}
	for _, f := range fields {
		v, err := row.At(f.col).Float()
		if err != nil {
			return model.Bar{}, &model.ParseError{Row: rowIdx, Field: f.name, Value: row.At(f.col).String(), Err: err}
		}
		*f.dst = v
	}
	return bar, nil
}
