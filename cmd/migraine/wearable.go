// ABOUTME: CLI commands for wearable connections.
// ABOUTME: Connecting or disconnecting re-evaluates every wearable row.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/harperreed/migraine/internal/models"
	"github.com/spf13/cobra"
)

var wearableCmd = &cobra.Command{
	Use:     "wearable",
	Aliases: []string{"w"},
	Short:   "Manage wearable connections",
	Long: `Manage wearable connections (whoop, oura).

Wearable metrics read from the most recently chosen connected source. When
no wearable is connected, wearable rows are greyed out.

EXAMPLES:

  migraine wearable list
  migraine wearable connect oura
  migraine wearable disconnect whoop`,
}

var wearableListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Show connected wearables",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		connected, err := local.ConnectedSources(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load wearables: %w", err)
		}
		for _, src := range models.AllSources {
			if connected[src] {
				fmt.Printf("%s %s\n", color.GreenString("✓"), src)
			} else {
				fmt.Printf("%s %s\n", color.New(color.Faint).Sprint("○"), src)
			}
		}
		return nil
	},
}

var wearableConnectCmd = &cobra.Command{
	Use:       "connect <source>",
	Short:     "Connect a wearable",
	Args:      cobra.ExactArgs(1),
	ValidArgs: models.AllSources,
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := svc.ConnectWearable(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		color.Green("✓ Connected %s", args[0])
		if view.Corrections > 0 {
			color.Yellow("Applied %d correction(s) to stored settings", view.Corrections)
		}
		return nil
	},
}

var wearableDisconnectCmd = &cobra.Command{
	Use:       "disconnect <source>",
	Short:     "Disconnect a wearable",
	Args:      cobra.ExactArgs(1),
	ValidArgs: models.AllSources,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := svc.DisconnectWearable(cmd.Context(), args[0]); err != nil {
			return err
		}
		color.Yellow("Disconnected %s", args[0])
		return nil
	},
}

func init() {
	wearableCmd.AddCommand(wearableListCmd)
	wearableCmd.AddCommand(wearableConnectCmd)
	wearableCmd.AddCommand(wearableDisconnectCmd)
	rootCmd.AddCommand(wearableCmd)
}
