package metrics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the poller's Prometheus instruments.
type Metrics struct {
	Ticks           *prometheus.CounterVec // by outcome
	Resyncs         *prometheus.CounterVec // by result
	TransportErrors *prometheus.CounterVec // by op
	DroppedRows     prometheus.Counter
	ClosedBars      prometheus.Gauge
	FormingClose    prometheus.Gauge
	ResyncSeconds   prometheus.Histogram
}

// New creates the instruments and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "candlesync_ticks_total", Help: "Last-trade ticks processed, by merge outcome",
		}, []string{"outcome"}),
		Resyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "candlesync_resyncs_total", Help: "History resynchronizations, by result",
		}, []string{"result"}),
		TransportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "candlesync_transport_errors_total", Help: "Failed data source requests",
		}, []string{"op"}),
		DroppedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "candlesync_dropped_rows_total", Help: "Bar rows skipped while decoding",
		}),
		ClosedBars: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "candlesync_closed_bars", Help: "Closed bars held in history",
		}),
		FormingClose: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "candlesync_forming_close", Help: "Close price of the forming bar",
		}),
		ResyncSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "candlesync_resync_seconds", Help: "Resync duration",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
	}
	reg.MustRegister(m.Ticks, m.Resyncs, m.TransportErrors, m.DroppedRows, m.ClosedBars, m.FormingClose, m.ResyncSeconds)
	return m
}

// Server exposes a registry over HTTP.
type Server struct {
	srv *http.Server
}

// NewServer serves gatherer on addr at /metrics.
func NewServer(addr string, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &Server{srv: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}}
}

// Start listens in the background.
func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[ERROR] metrics server: %v", err)
		}
	}()
	log.Printf("[INFO] metrics listening on %s", s.srv.Addr)
}

// Stop shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
