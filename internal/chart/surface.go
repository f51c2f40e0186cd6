package chart

import (
	"log"

	"CandleSync/internal/model"
)

// Surface is the rendering side of the chart. It only ever receives
// snapshots and must not retain or modify the slices it is handed.
type Surface interface {
	RenderBars(symbol string, closed []model.Bar)
	RenderForming(symbol string, bar model.Bar)
	RenderIndicator(symbol, name string, points []model.IndicatorPoint)
	RenderMarkers(symbol string, markers []model.SignalMarker)
}

// LogSurface renders a one-line summary of every update to the standard logger.
type LogSurface struct{}

func (LogSurface) RenderBars(symbol string, closed []model.Bar) {
	if len(closed) == 0 {
		log.Printf("[INFO] chart %s: no closed bars", symbol)
		return
	}
	last := closed[len(closed)-1]
	log.Printf("[INFO] chart %s: %d closed bars, last end=%d close=%.6f", symbol, len(closed), last.End, last.Close)
}

func (LogSurface) RenderForming(symbol string, bar model.Bar) {
	log.Printf("[INFO] chart %s: forming start=%d o=%.6f h=%.6f l=%.6f c=%.6f",
		symbol, bar.Start, bar.Open, bar.High, bar.Low, bar.Close)
}

func (LogSurface) RenderIndicator(symbol, name string, points []model.IndicatorPoint) {
	if len(points) == 0 {
		log.Printf("[INFO] chart %s: indicator %s empty", symbol, name)
		return
	}
	last := points[len(points)-1]
	log.Printf("[INFO] chart %s: indicator %s %d points, last %.6f@%d", symbol, name, len(points), last.Value, last.Time)
}

func (LogSurface) RenderMarkers(symbol string, markers []model.SignalMarker) {
	log.Printf("[INFO] chart %s: %d signal markers", symbol, len(markers))
}

// NopSurface discards every update.
type NopSurface struct{}

func (NopSurface) RenderBars(string, []model.Bar)                         {}
func (NopSurface) RenderForming(string, model.Bar)                        {}
func (NopSurface) RenderIndicator(string, string, []model.IndicatorPoint) {}
func (NopSurface) RenderMarkers(string, []model.SignalMarker)             {}
