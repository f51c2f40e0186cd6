package resync

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"CandleSync/internal/collector"
	"CandleSync/internal/history"
)

// Report summarizes one resynchronization.
type Report struct {
	Since    string // reference timestamp the request was keyed by
	Ref      string // reference timestamp returned by the backend
	Closed   int
	Promoted bool
	Dropped  []error // rows skipped while decoding
	Shared   bool    // true when the result was shared with a concurrent caller
	Took     time.Duration
}

// Resynchronizer refreshes a History from the authoritative bar feed.
// Concurrent Resync calls collapse into a single in-flight request.
type Resynchronizer struct {
	Source  collector.Source
	History *history.History
	Symbol  string
	// InitialSince keys the first request, before any reference timestamp is known.
	InitialSince string
	Timeout      time.Duration

	group singleflight.Group
}

// New creates a Resynchronizer.
func New(src collector.Source, h *history.History, symbol, initialSince string, timeout time.Duration) *Resynchronizer {
	return &Resynchronizer{
		Source:       src,
		History:      h,
		Symbol:       symbol,
		InitialSince: initialSince,
		Timeout:      timeout,
	}
}

// Resync fetches the bar history, reloads it and promotes the newest bar to
// forming. On failure the history is left as it was.
func (r *Resynchronizer) Resync(ctx context.Context) (Report, error) {
	v, err, shared := r.group.Do(r.Symbol, func() (any, error) {
		return r.do(ctx)
	})
	if err != nil {
		return Report{}, err
	}
	rep := v.(Report)
	rep.Shared = shared
	return rep, nil
}

func (r *Resynchronizer) do(ctx context.Context) (Report, error) {
	start := time.Now()
	since := r.History.CSVTimestamp()
	if since == "" {
		since = r.InitialSince
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	payload, err := r.Source.FetchBars(ctx, r.Symbol, since)
	if err != nil {
		return Report{}, fmt.Errorf("resync %s: %w", r.Symbol, err)
	}

	promoted, dropped, err := r.History.Reconcile(payload)
	if err != nil {
		return Report{}, fmt.Errorf("resync %s: %w", r.Symbol, err)
	}
	for _, e := range dropped {
		log.Printf("[WARN] resync %s: dropped row: %v", r.Symbol, e)
	}

	return Report{
		Since:    since,
		Ref:      r.History.CSVTimestamp(),
		Closed:   len(r.History.ClosedBars()),
		Promoted: promoted,
		Dropped:  dropped,
		Took:     time.Since(start),
	}, nil
}
