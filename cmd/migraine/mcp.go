// ABOUTME: CLI command for starting MCP server.
// ABOUTME: Runs stdio-based MCP server for AI assistant integration.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/migraine/internal/jobs"
	"github.com/harperreed/migraine/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpWatch bool

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long: `Start the Model Context Protocol (MCP) server for AI assistant integration.

The server communicates via stdin/stdout.

CONFIGURATION:

  {
    "mcpServers": {
      "migraine": {
        "command": "migraine",
        "args": ["mcp"]
      }
    }
  }

AVAILABLE TOOLS:

  list_data_settings          Every metric with its effective state
  set_metric_enabled          Turn a metric on or off
  select_metric_source        Choose the wearable feeding a metric
  connect_wearable            Mark a wearable connected
  disconnect_wearable         Mark a wearable disconnected
  set_permission              Record a permission grant or revocation
  get_menstruation_settings   Cycle settings and prediction
  save_menstruation_settings  Save cycle settings
  log_period                  Record a period start
  log_migraine                Record a migraine
  add_journal_item            Record a trigger, medicine, or relief
  list_migraines              List recent migraines
  get_migraine                Get a migraine with its items
  delete_migraine             Delete a migraine

AVAILABLE RESOURCES:

  migraine://settings          Data settings grouped by category
  migraine://migraines/recent  Recent migraines and standalone items
  migraine://menstruation      Cycle settings and prediction`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := mcp.NewServer(repo, svc)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if mcpWatch {
			wd := jobs.NewWatchdog(scheduler, svc, logger)
			go func() {
				if err := wd.Run(ctx, jobs.DefaultWatchSpec); err != nil {
					logger.Warn("watchdog stopped", "error", err)
				}
			}()
		}

		return server.Serve(ctx)
	},
}

func init() {
	mcpCmd.Flags().BoolVar(&mcpWatch, "watch", false, "also run the job watchdog while serving")
	rootCmd.AddCommand(mcpCmd)
}
