package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrMissing marks a null, empty or absent cell.
	ErrMissing = errors.New("missing value")
	// ErrNotNumeric marks a cell that holds something other than a finite number.
	ErrNotNumeric = errors.New("not a number")
)

// Cell is one positional field of a raw data-source row. The backend
// serializes numbers either as JSON numbers or as numeric strings.
type Cell json.RawMessage

// Row is a raw data-source row.
type Row []Cell

// DecodeRow splits a JSON array into cells. A scalar decodes to a one-cell row.
func DecodeRow(raw json.RawMessage) (Row, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, ErrMissing
	}
	if trimmed[0] != '[' {
		return Row{Cell(trimmed)}, nil
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(trimmed, &parts); err != nil {
		return nil, err
	}
	row := make(Row, len(parts))
	for i, p := range parts {
		row[i] = Cell(p)
	}
	return row, nil
}

// At returns the i-th cell, or nil when the row is too short.
func (r Row) At(i int) Cell {
	if i < 0 || i >= len(r) {
		return nil
	}
	return r[i]
}

// IsNull reports whether the cell is absent or JSON null.
func (c Cell) IsNull() bool {
	t := bytes.TrimSpace(c)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// Float coerces the cell to a finite float64.
func (c Cell) Float() (float64, error) {
	if c.IsNull() {
		return 0, ErrMissing
	}
	t := bytes.TrimSpace(c)
	var s string
	switch t[0] {
	case '"':
		if err := json.Unmarshal(t, &s); err != nil {
			return 0, ErrNotNumeric
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, ErrMissing
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		s = string(t)
	default:
		return 0, ErrNotNumeric
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrNotNumeric
	}
	return f, nil
}

// Seconds coerces the cell to whole unix seconds, dropping any fraction.
func (c Cell) Seconds() (int64, error) {
	f, err := c.Float()
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

// String returns the cell as text: string cells unquoted, others verbatim.
func (c Cell) String() string {
	if c.IsNull() {
		return ""
	}
	t := bytes.TrimSpace(c)
	if t[0] == '"' {
		var s string
		if err := json.Unmarshal(t, &s); err == nil {
			return s
		}
	}
	return string(t)
}
