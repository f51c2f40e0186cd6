package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"CandleSync/internal/calculator"
	"CandleSync/internal/chart"
	"CandleSync/internal/collector"
	"CandleSync/internal/history"
	"CandleSync/internal/merger"
	"CandleSync/internal/metrics"
	"CandleSync/internal/model"
	"CandleSync/internal/notifier"
	"CandleSync/internal/recorder"
	"CandleSync/internal/resync"
)

// rangeLookback is the number of closed bars /status reports the range over.
const rangeLookback = 20

// Every is a cron.Schedule that fires at a fixed interval. Unlike
// cron.Every it keeps sub-second precision.
type Every time.Duration

func (e Every) Next(t time.Time) time.Time { return t.Add(time.Duration(e)) }

// Deps wires the scheduler to the rest of the chart client.
type Deps struct {
	Symbol      string
	Source      collector.Source
	History     *history.History
	Resync      *resync.Resynchronizer
	Book        *chart.Book
	Notifier    *notifier.TelegramNotifier // optional
	Recorder    recorder.Recorder
	Metrics     *metrics.Metrics
	Timeout     time.Duration
	BarDuration int64 // fallback when neither the tick nor the backend supply one
}

// Scheduler drives the polling loop: one job merges last-trade ticks and
// resynchronizes on bar boundaries, another refreshes indicators and signals.
// A job firing while its previous run is still in progress is skipped, so
// ticks that arrive during a resync are dropped rather than queued.
type Scheduler struct {
	Deps
	Cron *cron.Cron
	Ctx  context.Context

	barDuration atomic.Int64
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, deps Deps) *Scheduler {
	logger := cron.PrintfLogger(log.Default())
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New(prometheus.NewRegistry())
	}
	if deps.Timeout <= 0 {
		deps.Timeout = 10 * time.Second
	}
	s := &Scheduler{
		Deps: deps,
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		Ctx: ctx,
	}
	s.barDuration.Store(deps.BarDuration)
	return s
}

// Register adds the tick job at pollInterval and the refresh job on refreshCron.
func (s *Scheduler) Register(pollInterval time.Duration, refreshCron string) error {
	if pollInterval <= 0 {
		return fmt.Errorf("register tick task: poll interval must be positive")
	}
	s.Cron.Schedule(Every(pollInterval), cron.FuncJob(s.tickTask))
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Bootstrap learns the bar duration from the backend and seeds the history.
// A failed seed is not fatal: the first tick finds no forming bar and
// resynchronizes again.
func (s *Scheduler) Bootstrap() {
	ctx, cancel := context.WithTimeout(s.Ctx, s.Timeout)
	d, err := s.Source.FetchBarDuration(ctx)
	cancel()
	if err != nil {
		log.Printf("[WARN] fetch bar duration: %v, using %ds", err, s.barDuration.Load())
	} else {
		s.barDuration.Store(d)
		log.Printf("[INFO] bar duration: %ds", d)
	}

	if err := s.resync(); err != nil {
		log.Printf("[WARN] initial resync failed, retrying on first tick: %v", err)
	}
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunTickNow executes one polling round immediately.
func (s *Scheduler) RunTickNow() {
	s.tickTask()
}

// RunRefreshNow re-derives indicators and signals immediately.
func (s *Scheduler) RunRefreshNow() {
	s.refreshTask()
}

func (s *Scheduler) tickTask() {
	ctx, cancel := context.WithTimeout(s.Ctx, s.Timeout)
	tick, err := s.Source.FetchLastTrade(ctx)
	cancel()
	if err != nil {
		s.tickFailed(err)
		return
	}
	if tick.BarDuration == 0 {
		tick.BarDuration = s.barDuration.Load()
	}

	res, err := merger.Merge(s.History, tick)
	if err != nil {
		s.tickFailed(err)
		return
	}
	s.Metrics.Ticks.WithLabelValues(res.Outcome.String()).Inc()

	switch res.Outcome {
	case merger.Updated:
		s.Metrics.FormingClose.Set(res.Bar.Close)
		s.Book.PushForming(res.Bar)
	case merger.BoundaryCrossed:
		if err := s.resync(); err != nil {
			log.Printf("[ERROR] resync: %v", err)
		}
	}
}

func (s *Scheduler) tickFailed(err error) {
	switch {
	case errors.Is(err, model.ErrInvalidTick):
		s.Metrics.Ticks.WithLabelValues("invalid").Inc()
		log.Printf("[WARN] discarded tick: %v", err)
	case model.IsTransport(err):
		s.Metrics.TransportErrors.WithLabelValues("last_trade").Inc()
		log.Printf("[WARN] last trade: %v", err)
	default:
		log.Printf("[ERROR] tick: %v", err)
	}
}

// resync refreshes history and, on success, re-derives the display series.
func (s *Scheduler) resync() error {
	rep, err := s.Resync.Resync(s.Ctx)

	evt := &recorder.ResyncEvent{
		Symbol: s.Symbol, Since: rep.Since, Ref: rep.Ref, Closed: rep.Closed,
		Dropped: len(rep.Dropped), Promoted: rep.Promoted, Took: rep.Took,
	}
	if err != nil {
		evt.Err = err.Error()
		s.Metrics.Resyncs.WithLabelValues("error").Inc()
		if model.IsTransport(err) {
			s.Metrics.TransportErrors.WithLabelValues("bars").Inc()
		}
	} else {
		s.Metrics.Resyncs.WithLabelValues("ok").Inc()
		s.Metrics.ResyncSeconds.Observe(rep.Took.Seconds())
		s.Metrics.DroppedRows.Add(float64(len(rep.Dropped)))
		s.Metrics.ClosedBars.Set(float64(rep.Closed))
	}
	if rerr := s.Recorder.RecordResync(evt); rerr != nil {
		log.Printf("[ERROR] record resync: %v", rerr)
	}
	if err != nil {
		return err
	}

	log.Printf("[INFO] resync %s: %d closed bars, ref=%s, promoted=%v, took %v",
		s.Symbol, rep.Closed, rep.Ref, rep.Promoted, rep.Took)
	if err := s.Recorder.RecordBars(s.Symbol, s.History.ClosedBars()); err != nil {
		log.Printf("[ERROR] record bars: %v", err)
	}
	if bar, ok := s.History.Forming(); ok {
		s.Metrics.FormingClose.Set(bar.Close)
		s.Book.PushForming(bar)
	}
	s.refresh(false)
	return nil
}

func (s *Scheduler) refreshTask() {
	s.refresh(true)
}

func (s *Scheduler) refresh(force bool) {
	changed, fresh := s.Book.Refresh(s.Ctx, force)
	if !changed {
		return
	}
	snap := s.Book.Snapshot()
	if err := s.Recorder.RecordMarkers(s.Symbol, snap.Markers); err != nil {
		log.Printf("[ERROR] record markers: %v", err)
	}
	if len(fresh) > 0 {
		log.Printf("[INFO] %d new signal markers", len(fresh))
		s.trySend(notifier.FormatMarkers(s.Symbol, fresh))
	}
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "/bar":
		bar, ok := s.History.Forming()
		if !ok {
			return "No forming bar yet."
		}
		return notifier.FormatBar(s.Symbol, bar, true)
	case "/signals":
		snap := s.Book.Snapshot()
		if len(snap.Markers) == 0 {
			return "No signals."
		}
		markers := snap.Markers
		if len(markers) > 10 {
			markers = markers[len(markers)-10:]
		}
		return notifier.FormatMarkers(s.Symbol, markers)
	case "/status":
		snap := s.Book.Snapshot()
		counts := make(map[string]int, len(snap.Indicators))
		for name, pts := range snap.Indicators {
			counts[name] = len(pts)
		}
		var lastEnd int64
		if n := len(snap.Closed); n > 0 {
			lastEnd = snap.Closed[n-1].End
		}
		status := notifier.FormatStatus(s.Symbol, len(snap.Closed), lastEnd, counts, len(snap.Markers))
		if high, low, err := calculator.Range(snap.Closed, rangeLookback); err == nil && snap.HasForming {
			if pos, err := calculator.Position(snap.Forming.Close, high, low); err == nil {
				status += notifier.FormatRange(rangeLookback, high, low, pos)
			}
		}
		return status
	default:
		return "Available commands:\n• /bar\n• /signals\n• /status"
	}
}

func (s *Scheduler) trySend(text string) {
	if !s.Notifier.Enabled() {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
