package recorder

import "CandleSync/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordBars(_ string, _ []model.Bar) error             { return nil }
func (n *NoopRecorder) RecordMarkers(_ string, _ []model.SignalMarker) error { return nil }
func (n *NoopRecorder) RecordResync(_ *ResyncEvent) error                    { return nil }
func (n *NoopRecorder) Close() error                                         { return nil }
