// ABOUTME: CLI command for moving data between the local database and the remote store.
// ABOUTME: Upgrades a local-only install to the remote backend, or restores remote data locally.
package main

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/harperreed/migraine/internal/config"
	"github.com/harperreed/migraine/internal/storage"
	"github.com/spf13/cobra"
)

var (
	migrateDryRun bool
	migrateForce  bool
	migrateInto   string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy local data to the remote store",
	Long: `Copy settings, cycle settings, and the journal between the local SQLite
database and the remote store.

By default the local database is copied into the remote store, which must
already be configured (url, api_key, user_id). Afterwards set
"backend": "remote" in the config file to use it.

With --into DIR the remote store is copied into a new SQLite database in
DIR, which must be empty.

USAGE:

  migraine migrate --dry-run          # Preview what would be copied
  migraine migrate                    # Local → remote
  migraine migrate --into ~/restore   # Remote → new local database`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		remoteStore, err := cfg.OpenRemote()
		if err != nil {
			return err
		}
		defer remoteStore.Close()

		var src, dst storage.Repository = local, remoteStore
		if migrateInto != "" {
			dir := config.ExpandPath(migrateInto)
			nonEmpty, err := storage.IsDirNonEmpty(dir)
			if err != nil {
				return err
			}
			if nonEmpty {
				return fmt.Errorf("%s is not empty", dir)
			}
			if migrateDryRun {
				dst = nil
			} else {
				restored, err := storage.Open(filepath.Join(dir, "migraine.db"))
				if err != nil {
					return fmt.Errorf("failed to create database: %w", err)
				}
				defer restored.Close()
				dst = restored
			}
			src = remoteStore
		} else if !migrateForce {
			existing, err := remoteStore.ListMigraines(ctx, 1)
			if err != nil {
				return fmt.Errorf("failed to check remote store: %w", err)
			}
			if len(existing) > 0 {
				return fmt.Errorf("remote store already has migraines; use --force to copy anyway")
			}
		}

		if migrateDryRun {
			color.Yellow("Dry run mode - no changes will be made")
			data, err := src.GetAllData(ctx)
			if err != nil {
				return fmt.Errorf("failed to read source: %w", err)
			}
			fmt.Printf("Would copy %d settings, %d migraines, %d items\n",
				len(data.Settings), len(data.Migraines), len(data.Items))
			return nil
		}

		summary, err := storage.MigrateData(ctx, src, dst)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		color.Green("✓ Copied %d settings, %d migraines, %d items", summary.Settings, summary.Migraines, summary.Items)
		if summary.Menstruation {
			fmt.Println("  cycle settings copied")
		}
		if migrateInto == "" && cfg.GetBackend() != config.BackendRemote {
			fmt.Printf("\nSet \"backend\": \"remote\" in %s to use the remote store.\n", config.GetConfigPath())
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "preview migration without making changes")
	migrateCmd.Flags().BoolVar(&migrateForce, "force", false, "copy even if the remote store has data")
	migrateCmd.Flags().StringVar(&migrateInto, "into", "", "copy the remote store into a new database in this directory")
	rootCmd.AddCommand(migrateCmd)
}
