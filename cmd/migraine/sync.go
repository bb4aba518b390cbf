// ABOUTME: CLI commands for syncing the local settings cache with the remote store.
// ABOUTME: Sync is one-directional: the remote store always wins.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/harperreed/migraine/internal/config"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Aliases: []string{"s"},
	Short:   "Sync settings from the remote store",
	Long: `Sync metric settings from the remote store into the local cache.

The remote store is the source of truth. Every settings command already pulls
before it acts; 'sync pull' does the same on demand and applies any
corrections the rules require (for example switching off stress when resting
heart rate was turned off on another device).

COMMANDS:

  pull      Replace the local settings cache with the remote settings
  status    Show backend, remote endpoint, and cache state`,
}

var syncPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Replace the local settings cache with the remote settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.GetBackend() != config.BackendRemote {
			color.Yellow("Backend is %s; nothing to sync", cfg.GetBackend())
			return nil
		}

		view, err := svc.Refresh(cmd.Context())
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		if view.Stale {
			return fmt.Errorf("remote store unreachable; local cache unchanged")
		}

		color.Green("✓ Pulled settings for %d metrics", len(view.Rows))
		if view.Corrections > 0 {
			color.Yellow("Applied %d correction(s)", view.Corrections)
		}
		return nil
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		faint := color.New(color.Faint)

		fmt.Printf("Backend:   %s\n", cfg.GetBackend())
		fmt.Printf("Config:    %s\n", faint.Sprint(config.GetConfigPath()))
		fmt.Printf("Database:  %s\n", faint.Sprint(local.Path()))

		cached, err := local.ListSettings(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read cache: %w", err)
		}
		fmt.Printf("Cached:    %d settings\n", len(cached))

		if !cfg.Remote.Configured() {
			fmt.Printf("Remote:    %s\n", faint.Sprint("not configured"))
			return nil
		}
		fmt.Printf("Remote:    %s\n", cfg.Remote.URL)
		fmt.Printf("User:      %s\n", cfg.Remote.UserID)

		if cfg.GetBackend() != config.BackendRemote {
			return nil
		}
		if _, err := repo.ListSettings(cmd.Context()); err != nil {
			color.Yellow("Status:    unreachable (%v)", err)
			return nil
		}
		color.Green("Status:    ✓ reachable")
		return nil
	},
}

func init() {
	syncCmd.AddCommand(syncPullCmd)
	syncCmd.AddCommand(syncStatusCmd)
	rootCmd.AddCommand(syncCmd)
}
