// Command domguard is the defacement-monitoring daemon: a ticking
// scheduler that checks tracked pages for drift against their reference
// DOM, reindexes stale ones, and reports breaches through the configured
// notifier set. It also serves a minimal read-only admin HTTP surface.
//
// Usage:
//
//	domguard -config domguard.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/domguard/internal/admin"
	"github.com/hazyhaar/domguard/internal/calibrator"
	"github.com/hazyhaar/domguard/internal/comparator"
	"github.com/hazyhaar/domguard/internal/notifier"
	"github.com/hazyhaar/domguard/internal/parser"
	"github.com/hazyhaar/domguard/internal/scheduler"
	"github.com/hazyhaar/domguard/internal/store/sqlite"

	"github.com/hazyhaar/domguard/config"
)

func main() {
	configPath := flag.String("config", "domguard.yaml", "path to domguard.yaml config file")
	flag.Parse()

	cfg, err := config.LoadConfigFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "domguard: load config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("domguard: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	st, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	p, err := buildParser(cfg.Parser, logger)
	if err != nil {
		return fmt.Errorf("build parser: %w", err)
	}

	notifiers, err := buildNotifiers(cfg.EmailNotifier, logger)
	if err != nil {
		return fmt.Errorf("build notifiers: %w", err)
	}

	chain := comparator.Chain{comparator.Checksum{}, comparator.Diff{}}
	calib := calibrator.New(p, logger)
	calib.Samples = cfg.Calibrator.Samples
	calib.SampleSpacing = cfg.Calibrator.SampleSpacing
	calib.SafetyMargin = cfg.Calibrator.SafetyMargin

	mgr := scheduler.New(st, st, p, chain, calib, notifiers, scheduler.Config{
		TickInterval:   cfg.Scheduler.TickInterval,
		CheckInterval:  cfg.Scheduler.CheckInterval,
		MaxConcurrency: cfg.Scheduler.MaxConcurrency,
	}, logger)

	httpServer := &http.Server{
		Addr:    cfg.Admin.ListenAddr,
		Handler: admin.New(st, logger).Router(),
	}
	go func() {
		logger.Info("domguard: admin surface listening", "addr", cfg.Admin.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("domguard: admin surface failed", "error", err)
		}
	}()

	logger.Info("domguard: running", "db", cfg.DBPath)
	mgr.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Scheduler.TickInterval*5)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("domguard: admin surface shutdown", "error", err)
	}

	logger.Info("domguard: shutting down")
	return nil
}

func buildParser(cfg config.ParserConfig, logger *slog.Logger) (parser.Parser, error) {
	switch cfg.Backend {
	case "exec":
		return parser.NewExecParser(parser.ExecConfig{
			Binary:       cfg.Binary,
			FetchTimeout: cfg.FetchTimeout,
		}), nil
	case "rod", "":
		return parser.NewRodParser(parser.RodConfig{
			RemoteURL:       cfg.RemoteURL,
			RecycleInterval: cfg.RecycleInterval,
			FetchTimeout:    cfg.FetchTimeout,
			Logger:          logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown parser backend %q", cfg.Backend)
	}
}

func buildNotifiers(cfg config.EmailNotifierConfig, logger *slog.Logger) (notifier.Set, error) {
	if cfg.ConfigPath == "" {
		logger.Warn("domguard: no email_notifier.config_path set, breaches will not be reported")
		return notifier.Set{}, nil
	}
	emailCfg, err := notifier.LoadEmailConfig(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load email config: %w", err)
	}
	return notifier.Set{notifier.NewEmail(*emailCfg, logger)}, nil
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
