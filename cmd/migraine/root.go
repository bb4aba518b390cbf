// ABOUTME: Root Cobra command for migraine CLI.
// ABOUTME: Opens config, storage, and the settings service via PersistentPre/PostRunE.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/harperreed/migraine/internal/config"
	"github.com/harperreed/migraine/internal/jobs"
	"github.com/harperreed/migraine/internal/metrics"
	"github.com/harperreed/migraine/internal/settings"
	"github.com/harperreed/migraine/internal/storage"
	"github.com/spf13/cobra"
)

var (
	cfg       *config.Config
	logger    *slog.Logger
	local     *storage.DB
	repo      storage.Repository
	scheduler *jobs.Scheduler
	svc       *settings.Service

	metricsAddr   string
	stopMetrics   context.CancelFunc
	metricsErrors chan error
)

var rootCmd = &cobra.Command{
	Use:   "migraine",
	Short: "Migraine journal and data-collection settings",
	Long: `Migraine tracks migraine episodes and decides which health signals are
collected for them.

DATA SETTINGS:

  Every metric the app can collect is a row on the data-settings screen.
  Rows are greyed out when they cannot be collected: no wearable connected,
  a missing OS permission, location switched off for weather, or a
  prerequisite metric disabled (stress needs HRV and resting heart rate).

  $ migraine settings list                       # Show every row
  $ migraine wearable connect whoop              # Connect a wearable
  $ migraine settings enable hrv_daily           # Turn a metric on
  $ migraine settings source hrv_daily oura      # Pick the source
  $ migraine permission grant microphone         # Record an OS permission

JOURNAL:

  $ migraine migraine add 7 --notes "aura first"   # Log a migraine
  $ migraine migraine item medicine ibuprofen --migraine abc123 --amount 400 --unit mg
  $ migraine migraine end abc123                   # Mark it over
  $ migraine menstruation log 2025-03-01           # Record a period start

STORAGE:

  The default backend is a local SQLite database at
  ~/.local/share/migraine/migraine.db. Set "backend": "remote" in
  ~/.config/migraine/config.json (or MIGRAINE_REMOTE_URL, MIGRAINE_API_KEY,
  MIGRAINE_USER_ID) to keep settings and the journal in the remote store;
  the local database then caches settings for offline use.

MCP INTEGRATION:

  Run 'migraine mcp' to start the Model Context Protocol server:

  {
    "mcpServers": {
      "migraine": { "command": "migraine", "args": ["mcp"] }
    }
  }`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "install-skill" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger = cfg.NewLogger(os.Stderr)
		slog.SetDefault(logger)

		local, err = cfg.OpenLocal()
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}

		repo, err = cfg.OpenStorage(local)
		if err != nil {
			return fmt.Errorf("failed to open %s storage: %w", cfg.GetBackend(), err)
		}

		scheduler = jobs.NewScheduler(local, logger)

		sc := settings.Config{
			Store:     repo,
			Device:    local,
			Scheduler: scheduler,
			Logger:    logger,
		}
		if repo != storage.Repository(local) {
			sc.Cache = local
		}
		svc, err = settings.New(sc)
		if err != nil {
			return err
		}

		if metricsAddr != "" {
			var ctx context.Context
			ctx, stopMetrics = context.WithCancel(context.Background())
			metricsErrors = make(chan error, 1)
			go func() { metricsErrors <- metrics.Serve(ctx, metricsAddr, logger) }()
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeAll()
	},
}

// closeAll releases everything PersistentPreRunE opened.
func closeAll() error {
	if stopMetrics != nil {
		stopMetrics()
		if err := <-metricsErrors; err != nil {
			logger.Warn("metrics server failed", "error", err)
		}
		stopMetrics = nil
	}

	var firstErr error
	if repo != nil && repo != storage.Repository(local) {
		firstErr = repo.Close()
	}
	repo = nil
	if local != nil {
		if err := local.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		local = nil
	}
	return firstErr
}

func init() {
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9464)")
}
