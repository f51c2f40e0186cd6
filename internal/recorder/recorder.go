package recorder

import (
	"time"

	"CandleSync/internal/model"
)

// ResyncEvent records one history resynchronization.
type ResyncEvent struct {
	Symbol   string
	Since    string
	Ref      string
	Closed   int
	Dropped  int
	Promoted bool
	Err      string // empty on success
	Took     time.Duration
}

// Recorder persists chart history for later analysis.
type Recorder interface {
	RecordBars(symbol string, bars []model.Bar) error
	RecordMarkers(symbol string, markers []model.SignalMarker) error
	RecordResync(evt *ResyncEvent) error
	Close() error
}
