// ABOUTME: CLI commands for the data-settings screen.
// ABOUTME: Lists rows with their effective state and toggles metrics or sources.
package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/harperreed/migraine/internal/gating"
	"github.com/harperreed/migraine/internal/settings"
	"github.com/spf13/cobra"
)

var settingsGroup string

var settingsCmd = &cobra.Command{
	Use:     "settings",
	Aliases: []string{"set"},
	Short:   "Show and change which metrics are collected",
	Long: `Show and change which metrics are collected.

Each row shows its effective state. A row is greyed out when it cannot be
collected right now; the reason is shown next to it. Switching a metric off
also switches off metrics that need it (stress index needs HRV and resting
heart rate from the same wearable).

EXAMPLES:

  migraine settings list
  migraine settings list --group Weather
  migraine settings enable screen_time_daily
  migraine settings disable hrv_daily
  migraine settings source sleep_score_daily oura`,
}

var settingsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List every metric with its effective state",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := svc.Refresh(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		printView(view, settingsGroup)
		return nil
	},
}

var settingsEnableCmd = &cobra.Command{
	Use:   "enable <metric>",
	Short: "Start collecting a metric",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggle(cmd, args[0], true)
	},
}

var settingsDisableCmd = &cobra.Command{
	Use:   "disable <metric>",
	Short: "Stop collecting a metric",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggle(cmd, args[0], false)
	},
}

var settingsSourceCmd = &cobra.Command{
	Use:   "source <metric> <source>",
	Short: "Choose which wearable feeds a metric",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := svc.SelectSource(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		color.Green("✓ %s now reads from %s", st.Row.Table, st.Source)
		printRow(st)
		return nil
	},
}

func toggle(cmd *cobra.Command, metric string, on bool) error {
	st, err := svc.SetEnabled(cmd.Context(), metric, on)
	if err != nil {
		var permErr *gating.PermissionRequiredError
		if errors.As(err, &permErr) {
			color.Yellow("Grant %s in %s, then run: migraine permission grant %s",
				permErr.Permission, permErr.Settings, permErr.Permission)
		}
		return err
	}

	verb := "Disabled"
	if on {
		verb = "Enabled"
	}
	color.Green("✓ %s %s", verb, st.Row.Table)
	printRow(st)
	return nil
}

func printView(view *settings.View, group string) {
	if view.Stale {
		color.Yellow("Remote store unreachable, showing cached settings")
	}
	if view.Corrections > 0 {
		color.Yellow("Applied %d correction(s) to stored settings", view.Corrections)
	}

	var order []string
	byGroup := make(map[string][]gating.RowState)
	for _, st := range view.Rows {
		if group != "" && !strings.EqualFold(st.Row.Group, group) {
			continue
		}
		if _, ok := byGroup[st.Row.Group]; !ok {
			order = append(order, st.Row.Group)
		}
		byGroup[st.Row.Group] = append(byGroup[st.Row.Group], st)
	}

	for _, g := range order {
		color.New(color.Bold).Println(g)
		for _, st := range byGroup[g] {
			printRow(st)
		}
	}
}

func printRow(st gating.RowState) {
	faint := color.New(color.Faint)

	mark := color.GreenString("✓")
	if !st.Enabled {
		mark = faint.Sprint("○")
	}

	line := fmt.Sprintf("  %s %s %s", mark, padRight(st.Row.Table, 26), padRight(st.Row.Label, 24))
	if st.Source != "" {
		line += " " + st.Source
	}
	if st.Reason != "" {
		if st.NeedsPermission {
			line += " " + color.YellowString("(%s)", st.Reason)
		} else {
			line += " " + faint.Sprintf("(%s)", st.Reason)
		}
	}
	fmt.Println(line)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

func init() {
	settingsListCmd.Flags().StringVarP(&settingsGroup, "group", "g", "", "only show one group (Sleep, Physical, Weather, ...)")

	settingsCmd.AddCommand(settingsListCmd)
	settingsCmd.AddCommand(settingsEnableCmd)
	settingsCmd.AddCommand(settingsDisableCmd)
	settingsCmd.AddCommand(settingsSourceCmd)
	rootCmd.AddCommand(settingsCmd)
}
