package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"wardworks/trafficward/pkg/config"
	"wardworks/trafficward/pkg/history"
	"wardworks/trafficward/pkg/metrics"
	"wardworks/trafficward/pkg/monitor"
	"wardworks/trafficward/pkg/sched"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run as a self-scheduling daemon",
	Long: `Run as a daemon that schedules its own periodic checks and the monthly
cycle reset, watches the configuration file for changes, and exposes
Prometheus metrics when a metrics listener is configured.

The daemon shares the state directory's advisory lock with one-shot
invocations, so an occasional manual "trafficward check" alongside it
is safe.

Examples:
  trafficward run
  trafficward run --config /etc/trafficward/config.yaml`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		reload, err := daemonCycle(ctx)
		if err != nil {
			return err
		}
		if !reload {
			return nil
		}
	}
}

// daemonCycle runs the daemon until shutdown or a config change. It
// reports whether the caller should rebuild and go again.
func daemonCycle(ctx context.Context) (reload bool, err error) {
	cfg, err := loadConfig()
	if err != nil {
		return false, err
	}
	if err := requireRoot(cfg); err != nil {
		return false, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return false, err
	}

	hist, err := history.Open(history.Config{DBPath: historyPath(cfg.StateDir)})
	if err != nil {
		logger.Warn("history log unavailable, continuing without it", "error", err)
		hist = nil
	} else {
		defer hist.Close()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := monitor.New(monitor.Config{
		App:     cfg,
		Logger:  logger,
		History: hist,
		Metrics: metrics.New(registry),
	})
	if err != nil {
		return false, err
	}

	cycleCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	scheduler := sched.NewScheduler(logger)
	if err := scheduler.Add("check", cfg.Daemon.CheckSchedule, func(jobCtx context.Context) {
		if _, err := m.RunCheck(jobCtx); err != nil {
			logger.Error("scheduled check failed", "error", err)
		}
	}); err != nil {
		return false, err
	}
	resetSpec := fmt.Sprintf("0 0 %d * *", cfg.ResetDay)
	if err := scheduler.Add("cycle-reset", resetSpec, func(jobCtx context.Context) {
		if err := m.Reset(jobCtx); err != nil {
			logger.Error("scheduled reset failed", "error", err)
		}
	}); err != nil {
		return false, err
	}
	if err := scheduler.Start(cycleCtx); err != nil {
		return false, err
	}
	defer scheduler.Stop()

	metricsSrv := startMetricsServer(cfg, registry, logger)
	if metricsSrv != nil {
		defer shutdownMetricsServer(metricsSrv, logger)
	}

	reloadCh := make(chan struct{}, 1)
	watcher, err := sched.NewConfigWatcher(cfgFile, logger)
	if err != nil {
		return false, err
	}
	go func() {
		err := watcher.Watch(cycleCtx, func() error {
			// Validate before tearing anything down; a broken edit keeps
			// the old configuration running.
			if _, err := config.Load(cfgFile); err != nil {
				return err
			}
			select {
			case reloadCh <- struct{}{}:
			default:
			}
			return nil
		})
		if err != nil {
			logger.Error("config watcher exited", "error", err)
		}
	}()
	defer watcher.Stop()

	logger.Info("daemon started",
		"check_schedule", cfg.Daemon.CheckSchedule,
		"reset_schedule", resetSpec,
		"metrics_listen", cfg.Metrics.Listen)

	// One immediate check so a freshly started daemon does not wait for
	// the first scheduled slot.
	if _, err := m.RunCheck(cycleCtx); err != nil {
		logger.Error("initial check failed", "error", err)
	}

	select {
	case <-ctx.Done():
		logger.Info("daemon shutting down")
		return false, nil
	case <-reloadCh:
		logger.Info("configuration changed, restarting daemon components")
		return true, nil
	}
}

func startMetricsServer(cfg *config.Config, registry *prometheus.Registry, logger *slog.Logger) *http.Server {
	if cfg.Metrics.Listen == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	}))

	srv := &http.Server{
		Addr:              cfg.Metrics.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics listener started", "addr", cfg.Metrics.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener failed", "error", err)
		}
	}()
	return srv
}

func shutdownMetricsServer(srv *http.Server, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics listener shutdown failed", "error", err)
	}
}
