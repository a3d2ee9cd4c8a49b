package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"phishguard/config"
	"phishguard/detector"
	"phishguard/evidence"
	"phishguard/features"
	"phishguard/metrics"
	"phishguard/model"
	"phishguard/storage"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file (or PHISHGUARD_CONFIG)")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	level, _ := logrus.ParseLevel(cfg.LogLevel)
	logrus.SetLevel(level)

	// A missing or mismatched model would mislabel every URL.
	ens, err := model.Load(cfg.ModelPath, features.Width)
	if err != nil {
		logrus.Fatalf("Failed to load model %s: %v", cfg.ModelPath, err)
	}
	logrus.Infof("Model loaded: %s, %d trees, labels %v", cfg.ModelPath, len(ens.Trees), ens.Labels)

	tracker := metrics.NewTracker()
	collector := evidence.NewCollector(
		newFetcher(cfg),
		newRegistrar(cfg),
		evidence.WithOutcomeHook(tracker.RecordEvidence),
	)
	logrus.Infof("Evidence: fetch=%s timeout=%v, whois=%v timeout=%v",
		cfg.Fetch.Mode, cfg.Fetch.Timeout, cfg.Registry.Enabled, cfg.Registry.Timeout)

	var history *storage.Storage
	if cfg.HistoryDB != "" {
		history, err = storage.NewStorage(cfg.HistoryDB)
		if err != nil {
			logrus.Fatalf("Failed to initialize storage: %v", err)
		}
		defer history.Close()
		logrus.Infof("Database initialized: %s", cfg.HistoryDB)
	}

	svc := detector.NewService(collector, ens, history, tracker, detector.Options{
		BatchLimit:       cfg.API.BatchLimit,
		BatchConcurrency: cfg.API.BatchConcurrency,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           detector.NewHandler(svc, cfg.API.RateLimit, cfg.API.RateBurst),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Server failed: %v", err)
		}
	}()

	logrus.Infof("✅ phishguard listening on :%s", cfg.Port)
	logrus.Info("📍 Endpoints:")
	logrus.Info("   POST /classify        - Classify one URL")
	logrus.Infof("   POST /classify/batch  - Classify up to %d URLs", cfg.API.BatchLimit)
	logrus.Info("   GET  /history         - Recent scans")
	logrus.Info("   GET  /stats           - Counters")
	logrus.Info("   GET  /healthz         - Liveness and model summary")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var reason string
	for reason == "" {
		select {
		case sig := <-sigChan:
			reason = sig.String()
		case <-ticker.C:
			logrus.Debug(tracker.LogProgress())
		}
	}

	logrus.Infof("Received %s, shutting down...", reason)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("Graceful shutdown failed: %v", err)
	}

	logrus.Info(tracker.LogProgress())
	if cfg.MetricsPath != "" {
		if err := tracker.WriteToFile(cfg.MetricsPath, reason); err != nil {
			logrus.Errorf("Failed to write metrics: %v", err)
		} else {
			logrus.Infof("Metrics written to %s", cfg.MetricsPath)
		}
	}
}

func newFetcher(cfg *config.Config) evidence.Fetcher {
	opts := evidence.FetchOptions{
		Timeout:      cfg.Fetch.Timeout,
		UserAgent:    cfg.Fetch.UserAgent,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		ChromePath:   cfg.Fetch.ChromePath,
	}
	switch cfg.Fetch.Mode {
	case "render":
		return evidence.NewRenderFetcher(opts)
	case "off":
		return nil
	default:
		return evidence.NewHTTPFetcher(opts)
	}
}

func newRegistrar(cfg *config.Config) evidence.Registrar {
	if !cfg.Registry.Enabled {
		return nil
	}
	return evidence.NewWhoisRegistrar(cfg.Registry.Timeout)
}
