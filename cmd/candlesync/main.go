package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"CandleSync/internal/chart"
	"CandleSync/internal/collector"
	"CandleSync/internal/config"
	"CandleSync/internal/history"
	"CandleSync/internal/metrics"
	"CandleSync/internal/notifier"
	"CandleSync/internal/recorder"
	"CandleSync/internal/resync"
	"CandleSync/internal/scheduler"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] CandleSync starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	src := collector.NewHTTPSource(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy, cfg.DataSource.Timeout)
	log.Printf("[INFO] data source: %s %s, symbol %s", src.Name(), cfg.DataSource.BaseURL, cfg.DataSource.Symbol)

	specs := make([]collector.IndicatorSpec, 0, len(cfg.Indicators))
	for _, ind := range cfg.Indicators {
		specs = append(specs, collector.IndicatorSpec{Name: ind.Name, Local: ind.Local(), Kind: ind.Kind, Period: ind.Period})
	}
	col := collector.NewCollector(src, cfg.DataSource.Symbol, specs, cfg.DataSource.Timeout)

	hist := history.New()
	rs := resync.New(src, hist, cfg.DataSource.Symbol, cfg.DataSource.InitialSince, cfg.DataSource.Timeout)
	book := chart.NewBook(cfg.DataSource.Symbol, hist, col, chart.LogSurface{})

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Metrics
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.Metrics.Addr != "" {
		ms := metrics.NewServer(cfg.Metrics.Addr, reg)
		ms.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = ms.Stop(ctx)
		}()
	}

	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.NewScheduler(ctx, scheduler.Deps{
		Symbol:      cfg.DataSource.Symbol,
		Source:      src,
		History:     hist,
		Resync:      rs,
		Book:        book,
		Notifier:    tn,
		Recorder:    rec,
		Metrics:     m,
		Timeout:     cfg.DataSource.Timeout,
		BarDuration: cfg.DataSource.BarDuration,
	})
	if err := sched.Register(cfg.Schedule.PollInterval, cfg.Schedule.RefreshCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}

	sched.Bootstrap()
	sched.Start()
	defer sched.Stop()

	if tn.Enabled() {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	log.Printf("[INFO] CandleSync is running, polling every %v. Press Ctrl+C to stop.", cfg.Schedule.PollInterval)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] CandleSync stopped")
}
