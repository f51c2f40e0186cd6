package collector

import (
	"context"
	"encoding/json"

	"CandleSync/internal/model"
)

// Source defines the interface for fetching chart data from the backend.
// Raw payloads are returned undecoded; positional decoding happens in the
// packages that own each row shape.
type Source interface {
	// FetchBars returns the bar payload: a reference timestamp followed by bar rows.
	FetchBars(ctx context.Context, symbol, since string) ([]json.RawMessage, error)
	// FetchLastTrade returns the latest trade price and the nominal bar duration.
	FetchLastTrade(ctx context.Context) (model.PriceTick, error)
	// FetchIndicator returns indicator rows aligned with the bars requested with the same since.
	FetchIndicator(ctx context.Context, name, symbol, since string) ([]json.RawMessage, error)
	// FetchSignals returns [timestamp, side] rows.
	FetchSignals(ctx context.Context, symbol string) ([]json.RawMessage, error)
	// FetchBarDuration returns the backend's bar duration in seconds.
	FetchBarDuration(ctx context.Context) (int64, error)
	Name() string
}
