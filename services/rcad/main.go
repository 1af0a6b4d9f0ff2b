package rcad

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"rcavault/config"
	"rcavault/core"
	"rcavault/core/events"
	"rcavault/core/state"
	"rcavault/observability"
	"rcavault/observability/logging"
	telemetry "rcavault/observability/otel"
	"rcavault/storage"
)

// Main runs the rcad view daemon using the provided command line flags.
func Main() error {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config.toml", "path to rcad config")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup("rcad", cfg.Environment, logging.FileOptions{Path: cfg.LogFile})

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "rcad",
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	plan, err := cfg.Plan()
	if err != nil {
		return fmt.Errorf("build genesis plan: %w", err)
	}

	db, err := openEventStore(cfg)
	if err != nil {
		return fmt.Errorf("open event store: %w", err)
	}
	defer db.Close()
	journal, err := events.NewJournal(db)
	if err != nil {
		return fmt.Errorf("open event journal: %w", err)
	}
	journal.SetLogger(logger)

	deployment, err := Deploy(plan, journal, logger)
	if err != nil {
		return err
	}

	server := NewServer(deployment, journal, cfg.RateLimit, logger)
	httpServer := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		logger.Info("rcad listening", "address", cfg.ListenAddress, "shields", len(deployment.Shields()))
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case <-stopCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			_ = httpServer.Close()
			return err
		}
		return nil
	case err := <-errs:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

func openEventStore(cfg *config.Config) (storage.Database, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, err
	}
	path := filepath.Join(cfg.DataDir, "events")
	if cfg.EventStore == storage.BackendBolt {
		path += ".db"
	}
	return storage.Open(cfg.EventStore, path)
}

// Deploy executes plan on a fresh in-memory state. Genesis events reach the
// journal only the first time, so restarts do not duplicate them.
func Deploy(plan *config.Plan, journal *events.Journal, logger *slog.Logger) (*core.Deployment, error) {
	manager, err := state.NewMemoryManager()
	if err != nil {
		return nil, fmt.Errorf("init state: %w", err)
	}
	emitter := events.Fanout{observability.Events()}
	if journal != nil && journal.Len() == 0 {
		emitter = append(emitter, journal)
	}
	deployment, err := core.NewDeployment(plan, manager, core.Options{Emitter: emitter, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("deploy: %w", err)
	}
	return deployment, nil
}
