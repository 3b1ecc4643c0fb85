package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"kronos-hq/cerberus/pkg/admission"
	admissionstorage "kronos-hq/cerberus/pkg/admission/storage"
	"kronos-hq/cerberus/pkg/audit"
	"kronos-hq/cerberus/pkg/audit/recorder"
	"kronos-hq/cerberus/pkg/audit/retention"
	auditstorage "kronos-hq/cerberus/pkg/audit/storage"
	"kronos-hq/cerberus/pkg/cli"
	"kronos-hq/cerberus/pkg/config"
	"kronos-hq/cerberus/pkg/telemetry/health"
	"kronos-hq/cerberus/pkg/telemetry/logging"
	"kronos-hq/cerberus/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	watchConfig   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Cerberus admin server",
	Long: `Start the Cerberus admin server with the specified configuration.

The server exposes metrics, health probes, and version information, and
keeps the admission controller, audit recorder, and retention scheduler
running. Query traffic enters through the gateway package embedded in a
host process; this command operates the supporting services.

Examples:
  # Start with default config
  cerberus run

  # Start with custom config
  cerberus run --config /etc/cerberus/cerberus.yaml

  # Override listen address
  cerberus run --listen 0.0.0.0:9834

  # Validate config without starting the server
  cerberus run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
	runCmd.Flags().BoolVar(&runFlags.watchConfig, "watch-config", false, "reload logging level when the config file changes")
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Gateway.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	// Initialize logging based on config
	appLogger, err := logging.New(cfg.Telemetry.Logging)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	logger := appLogger.Slog()
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	// Print startup banner
	printBanner(cfg)

	// Initialize audit storage and recorder
	var auditStore audit.Storage
	switch cfg.Audit.Backend {
	case "sqlite":
		sqliteConfig := auditstorage.DefaultSQLiteConfig()
		sqliteConfig.Path = cfg.Audit.SQLitePath
		auditStore, err = auditstorage.NewSQLiteStorage(sqliteConfig)
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to open audit storage: %w", err))
		}
	case "memory":
		auditStore = auditstorage.NewMemoryStorage()
	default:
		return cli.NewConfigError("audit.backend", fmt.Sprintf("unsupported backend: %s", cfg.Audit.Backend))
	}
	defer auditStore.Close()

	auditRecorder := recorder.NewRecorder(auditStore, cfg.Audit.Recorder, logger)
	defer auditRecorder.Close()
	fmt.Printf("✓ Audit trail initialized (%s backend)\n", cfg.Audit.Backend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start scheduled retention pruning if a schedule is configured
	if cfg.Audit.Retention.PruneSchedule != "" {
		pruner := retention.NewPruner(auditStore, cfg.Audit.Retention, logger)
		scheduler := retention.NewScheduler(pruner)
		if err := scheduler.Start(ctx); err != nil {
			slog.Warn("failed to start retention scheduler", "error", err)
		} else {
			defer scheduler.Stop()
			if next := scheduler.NextRun(); next != nil {
				slog.Debug("retention scheduler started", "next_run", next)
			}
		}
	}

	// Initialize admission controller with snapshot persistence
	controller := admission.NewController(cfg.Admission.Config, logger)

	var snapshotBackend admissionstorage.Backend
	switch cfg.Admission.Snapshot.Backend {
	case "sqlite":
		snapshotBackend, err = admissionstorage.NewSQLiteBackend(cfg.Admission.Snapshot.SQLitePath)
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to open snapshot storage: %w", err))
		}
	case "memory":
		snapshotBackend = admissionstorage.NewMemoryBackend()
	default:
		return cli.NewConfigError("admission.snapshot.backend", fmt.Sprintf("unsupported backend: %s", cfg.Admission.Snapshot.Backend))
	}
	defer snapshotBackend.Close()

	if err := controller.Load(ctx, snapshotBackend); err != nil {
		slog.Warn("failed to restore admission snapshot", "error", err)
	}
	go snapshotLoop(ctx, controller, snapshotBackend, cfg.Admission.Snapshot.Interval)
	fmt.Printf("✓ Admission controller initialized (%s snapshots)\n", cfg.Admission.Snapshot.Backend)

	// Metrics and health endpoints
	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)

	checker := health.New(5 * time.Second)
	checker.Register("audit_storage", func(checkCtx context.Context) error {
		_, countErr := auditStore.Count(checkCtx)
		return countErr
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	health.Mount(mux, checker, Version, GitCommit, BuildDate)

	srv := &http.Server{
		Addr:    cfg.Gateway.ListenAddress,
		Handler: mux,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting admin server", "address", cfg.Gateway.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Optionally watch the config file. Only the logging level can be
	// applied live; everything else requires a restart.
	if runFlags.watchConfig {
		watcher, err := config.NewWatcher(cfgFile, logger)
		if err != nil {
			slog.Warn("failed to create config watcher", "error", err)
		} else {
			defer watcher.Stop()
			go func() {
				watchErr := watcher.Watch(ctx, func(next *config.Config) {
					applyLiveConfig(cfg, next)
				})
				if watchErr != nil {
					slog.Warn("config watcher stopped", "error", watchErr)
				}
			}()
			fmt.Println("✓ Config watcher started")
		}
	}

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Gateway.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/readyz\n", cfg.Gateway.ListenAddress)
	fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.Gateway.ListenAddress)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for shutdown signal or server error
	sigChan := cli.WaitForShutdown()

	select {
	case err := <-errChan:
		return cli.NewCommandError("run", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Gateway.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
			return cli.NewCommandError("run", err)
		}

		// Persist the admission windows so restarts keep counting
		if err := controller.Save(shutdownCtx, snapshotBackend); err != nil {
			slog.Warn("failed to save admission snapshot", "error", err)
		}

		fmt.Println("✓ Server stopped")
		return nil
	}
}

// snapshotLoop periodically persists admission windows so that a restart
// does not reset every client's budget.
func snapshotLoop(ctx context.Context, controller *admission.Controller, backend admissionstorage.Backend, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := controller.Save(ctx, backend); err != nil {
				slog.Warn("failed to save admission snapshot", "error", err)
			}
		}
	}
}

// applyLiveConfig applies the subset of a reloaded config that is safe to
// change without a restart.
func applyLiveConfig(current, next *config.Config) {
	if next.Telemetry.Logging.Level != current.Telemetry.Logging.Level {
		reloaded, err := logging.New(next.Telemetry.Logging)
		if err != nil {
			slog.Warn("reloaded logging config is invalid", "error", err)
			return
		}
		slog.SetDefault(reloaded.Slog())
		slog.Info("log level changed",
			"previous", current.Telemetry.Logging.Level,
			"current", next.Telemetry.Logging.Level,
		)
		current.Telemetry.Logging.Level = next.Telemetry.Logging.Level
	}
	if next.Gateway.ListenAddress != current.Gateway.ListenAddress {
		slog.Warn("listen address change requires restart",
			"current", current.Gateway.ListenAddress,
			"requested", next.Gateway.ListenAddress,
		)
	}
}

func printBanner(cfg *config.Config) {
	fmt.Printf("Cerberus v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	if cfg.Sanitizer.Enabled {
		slog.Debug("sanitizer enabled",
			"read_only", cfg.Sanitizer.ReadOnlyMode,
			"strict", cfg.Sanitizer.StrictMode,
		)
	}
	if cfg.Admission.Enabled {
		slog.Debug("admission enabled",
			"default_limit", cfg.Admission.Default.Limit,
			"default_window", cfg.Admission.Default.Window,
		)
	}
	if cfg.Audit.Recorder.Enabled {
		slog.Debug("audit recording enabled", "backend", cfg.Audit.Backend)
	}
}
