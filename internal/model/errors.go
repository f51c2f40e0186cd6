package model

import (
	"errors"
	"fmt"
)

// ErrInvalidTick is returned when a price observation cannot be merged.
var ErrInvalidTick = errors.New("invalid tick")

// ParseError describes a raw row field that could not be decoded.
type ParseError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("row %d: field %s: %q: %v", e.Row, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("row %d: field %s: %v", e.Row, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TransportError wraps a failed request to the data source.
type TransportError struct {
	Op     string
	URL    string
	Status int // 0 when no response was received
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Op, e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err originated from the data source transport.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
