// ABOUTME: CLI commands for menstruation cycle settings.
// ABOUTME: Shows, edits, and logs periods, and predicts the next one.
package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/harperreed/migraine/internal/models"
	"github.com/spf13/cobra"
)

var (
	menstruationLast string
	menstruationAvg  int
	menstruationAuto string
)

var menstruationCmd = &cobra.Command{
	Use:     "menstruation",
	Aliases: []string{"cycle"},
	Short:   "Manage menstruation cycle settings",
	Long: `Manage menstruation cycle settings.

The next period is predicted as the last period date plus the average cycle
length. With auto-update on, logging a period moves the average halfway
towards the observed gap.

EXAMPLES:

  migraine menstruation show
  migraine menstruation set --last 2025-03-01 --avg 30 --auto=false
  migraine menstruation log                 # Period started today
  migraine menstruation log 2025-03-29
  migraine menstruation predict`,
}

var menstruationShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show cycle settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := repo.GetMenstruationSettings(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load menstruation settings: %w", err)
		}
		printMenstruation(m)
		return nil
	},
}

var menstruationSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Save cycle settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := repo.GetMenstruationSettings(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load menstruation settings: %w", err)
		}

		if menstruationLast != "" {
			t, err := parseTime(menstruationLast)
			if err != nil {
				return fmt.Errorf("invalid --last: %w", err)
			}
			m.WithLastPeriodDate(t)
		}
		if cmd.Flags().Changed("avg") {
			m.AvgCycleLengthDays = menstruationAvg
		}
		if cmd.Flags().Changed("auto") {
			switch menstruationAuto {
			case "true", "on", "yes":
				m.AutoUpdateAverage = true
			case "false", "off", "no":
				m.AutoUpdateAverage = false
			default:
				return fmt.Errorf("invalid --auto: %s (use true or false)", menstruationAuto)
			}
		}
		if err := m.Validate(); err != nil {
			return err
		}
		m.UpdatedAt = time.Now()

		if err := repo.SaveMenstruationSettings(cmd.Context(), m); err != nil {
			return fmt.Errorf("failed to save menstruation settings: %w", err)
		}
		color.Green("✓ Saved cycle settings")
		printMenstruation(m)
		return nil
	},
}

var menstruationLogCmd = &cobra.Command{
	Use:   "log [date]",
	Short: "Record the start of a period",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		if len(args) == 1 {
			t, err := parseTime(args[0])
			if err != nil {
				return err
			}
			start = t
		}

		m, err := repo.GetMenstruationSettings(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load menstruation settings: %w", err)
		}
		before := m.AvgCycleLengthDays
		m.LogPeriod(start)

		if err := repo.SaveMenstruationSettings(cmd.Context(), m); err != nil {
			return fmt.Errorf("failed to save menstruation settings: %w", err)
		}
		color.Green("✓ Logged period starting %s", start.Format(time.DateOnly))
		if m.AvgCycleLengthDays != before {
			fmt.Printf("Average cycle length %d → %d days\n", before, m.AvgCycleLengthDays)
		}
		return nil
	},
}

var menstruationPredictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict the next period",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := repo.GetMenstruationSettings(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load menstruation settings: %w", err)
		}
		next, ok := m.PredictNext()
		if !ok {
			color.Yellow("No period logged yet. Run: migraine menstruation log <date>")
			return nil
		}
		days := int(time.Until(next).Hours() / 24)
		fmt.Printf("Next period expected %s (%s)\n", next.Format(time.DateOnly), relativeDays(days))
		return nil
	},
}

func relativeDays(days int) string {
	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	case days > 1:
		return fmt.Sprintf("in %d days", days)
	case days == -1:
		return "1 day overdue"
	default:
		return fmt.Sprintf("%d days overdue", -days)
	}
}

func printMenstruation(m *models.MenstruationSettings) {
	faint := color.New(color.Faint)
	last := faint.Sprint("not set")
	if m.LastPeriodDate != nil {
		last = m.LastPeriodDate.Format(time.DateOnly)
	}
	fmt.Printf("Last period:     %s\n", last)
	fmt.Printf("Average cycle:   %d days\n", m.AvgCycleLengthDays)
	fmt.Printf("Auto-update avg: %t\n", m.AutoUpdateAverage)
	if next, ok := m.PredictNext(); ok {
		fmt.Printf("Next expected:   %s\n", next.Format(time.DateOnly))
	}
}

func init() {
	menstruationSetCmd.Flags().StringVar(&menstruationLast, "last", "", "last period start (YYYY-MM-DD)")
	menstruationSetCmd.Flags().IntVar(&menstruationAvg, "avg", models.DefaultCycleLengthDays, "average cycle length in days")
	menstruationSetCmd.Flags().StringVar(&menstruationAuto, "auto", "true", "update the average when periods are logged")

	menstruationCmd.AddCommand(menstruationShowCmd)
	menstruationCmd.AddCommand(menstruationSetCmd)
	menstruationCmd.AddCommand(menstruationLogCmd)
	menstruationCmd.AddCommand(menstruationPredictCmd)
	rootCmd.AddCommand(menstruationCmd)
}
