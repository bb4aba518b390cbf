// ABOUTME: CLI commands for recording OS permission state.
// ABOUTME: Revoking a permission switches off the metric that needed it and cancels its job.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/harperreed/migraine/internal/models"
	"github.com/spf13/cobra"
)

var permissionCmd = &cobra.Command{
	Use:     "permission",
	Aliases: []string{"perm"},
	Short:   "Record OS permission grants",
	Long: `Record OS permission grants and revocations.

Granting a permission never switches a metric on by itself. Revoking one
switches off the metric that depends on it and cancels its background job.

PERMISSIONS:

  microphone, location, background_location, notifications, usage_stats,
  battery_optimization, hc_nutrition, hc_menstruation, hc_sleep, hc_hrv,
  hc_resting_hr, hc_steps

EXAMPLES:

  migraine permission list
  migraine permission grant usage_stats
  migraine permission revoke microphone`,
}

var permissionListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Show permission state",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		perms, err := local.Permissions(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load permissions: %w", err)
		}
		faint := color.New(color.Faint)
		for _, p := range models.AllPermissions {
			if perms[p] {
				fmt.Printf("%s %s\n", color.GreenString("✓"), p)
			} else {
				fmt.Printf("%s %s %s\n", faint.Sprint("○"), padRight(string(p), 22), faint.Sprint(models.PermissionSettings[p]))
			}
		}
		return nil
	},
}

var permissionGrantCmd = &cobra.Command{
	Use:   "grant <permission>",
	Short: "Record a permission as granted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := svc.SetPermission(cmd.Context(), models.Permission(args[0]), true)
		if err != nil {
			return err
		}
		color.Green("✓ Granted %s", args[0])
		if view.Corrections > 0 {
			fmt.Printf("%s\n", color.New(color.Faint).Sprintf("%d metric(s) stay off until enabled with 'migraine settings enable'", view.Corrections))
		}
		return nil
	},
}

var permissionRevokeCmd = &cobra.Command{
	Use:   "revoke <permission>",
	Short: "Record a permission as revoked",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := svc.SetPermission(cmd.Context(), models.Permission(args[0]), false)
		if err != nil {
			return err
		}
		color.Yellow("Revoked %s", args[0])
		if view.Corrections > 0 {
			color.Yellow("Switched off %d metric(s) that needed it", view.Corrections)
		}
		return nil
	},
}

func init() {
	permissionCmd.AddCommand(permissionListCmd)
	permissionCmd.AddCommand(permissionGrantCmd)
	permissionCmd.AddCommand(permissionRevokeCmd)
	rootCmd.AddCommand(permissionCmd)
}
