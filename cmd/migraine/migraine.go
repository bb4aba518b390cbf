// ABOUTME: CLI commands for the migraine journal.
// ABOUTME: Supports add, list, show, end, delete, and item subcommands.
package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/harperreed/migraine/internal/models"
	"github.com/harperreed/migraine/internal/storage"
	"github.com/spf13/cobra"
)

var (
	migraineAt    string
	migraineEnded string
	migraineNotes string
	migraineLimit int

	itemMigraine string
	itemAmount   float64
	itemUnit     string
	itemAt       string
	itemNotes    string
)

var migraineCmd = &cobra.Command{
	Use:     "migraine",
	Aliases: []string{"m"},
	Short:   "Manage the migraine journal",
	Long: `Track migraine episodes and the triggers, medicines, and reliefs around them.

WORKFLOW:

  1. Log a migraine:       migraine migraine add 7
  2. Record what helped:   migraine migraine item medicine ibuprofen --migraine abc123 --amount 400 --unit mg
  3. Mark it over:         migraine migraine end abc123
  4. Review:               migraine migraine show abc123

Triggers, medicines, and reliefs can also be logged on their own, without
--migraine.`,
}

var migraineAddCmd = &cobra.Command{
	Use:   "add <severity>",
	Short: "Log a migraine (severity 1-10)",
	Long: `Log a migraine.

Examples:
  migraine migraine add 6
  migraine migraine add 8 --at "2025-01-31 07:30" --notes "woke up with it"
  migraine migraine add 4 --at 2025-01-30 --ended "2025-01-30 18:00"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		severity, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid severity: %s", args[0])
		}

		m := models.NewMigraine(severity)
		if migraineAt != "" {
			t, err := parseTime(migraineAt)
			if err != nil {
				return fmt.Errorf("invalid --at: %w", err)
			}
			m.WithStartedAt(t)
		}
		if migraineEnded != "" {
			t, err := parseTime(migraineEnded)
			if err != nil {
				return fmt.Errorf("invalid --ended: %w", err)
			}
			m.WithEndedAt(t)
		}
		if migraineNotes != "" {
			m.WithNotes(migraineNotes)
		}
		if err := m.Validate(); err != nil {
			return err
		}

		if err := repo.CreateMigraine(cmd.Context(), m); err != nil {
			return fmt.Errorf("failed to log migraine: %w", err)
		}

		color.Green("✓ Logged migraine, severity %d", m.Severity)
		fmt.Printf("  %s\n", color.New(color.Faint).Sprint(m.ID.String()[:8]))
		return nil
	},
}

var migraineListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List recent migraines",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		migraines, err := repo.ListMigraines(cmd.Context(), migraineLimit)
		if err != nil {
			return fmt.Errorf("failed to list migraines: %w", err)
		}

		if len(migraines) == 0 {
			fmt.Println("No migraines found.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, m := range migraines {
			notes := ""
			if m.Notes != nil && *m.Notes != "" {
				notes = faint.Sprintf(" (%s)", truncate(*m.Notes, 30))
			}
			fmt.Printf("%s %s severity %-2d %s%s\n",
				faint.Sprint(m.ID.String()[:8]),
				faint.Sprint(m.StartedAt.Local().Format("2006-01-02 15:04")),
				m.Severity,
				formatDuration(m),
				notes)
		}
		return nil
	},
}

var migraineShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a migraine with its journal items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := repo.GetMigraineWithItems(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get migraine: %w", err)
		}

		fmt.Printf("Migraine: %s\n", m.ID.String()[:8])
		fmt.Printf("Severity: %d\n", m.Severity)
		fmt.Printf("Started: %s\n", m.StartedAt.Local().Format("2006-01-02 15:04"))
		if m.EndedAt != nil {
			fmt.Printf("Ended: %s (%s)\n", m.EndedAt.Local().Format("2006-01-02 15:04"), formatDuration(m))
		} else {
			color.Yellow("Ongoing")
		}
		if m.Notes != nil {
			fmt.Printf("Notes: %s\n", *m.Notes)
		}

		if len(m.Items) > 0 {
			fmt.Println("\nItems:")
			for _, it := range m.Items {
				fmt.Printf("  %s %s\n", padRight(string(it.Kind), 9), describeItem(&it))
			}
		}
		return nil
	},
}

var migraineEndCmd = &cobra.Command{
	Use:   "end <id>",
	Short: "Mark a migraine as over",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := repo.GetMigraine(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get migraine: %w", err)
		}

		end := time.Now()
		if migraineEnded != "" {
			end, err = parseTime(migraineEnded)
			if err != nil {
				return fmt.Errorf("invalid --at: %w", err)
			}
		}
		m.WithEndedAt(end)
		if err := m.Validate(); err != nil {
			return err
		}

		if err := repo.UpdateMigraine(cmd.Context(), m); err != nil {
			return fmt.Errorf("failed to update migraine: %w", err)
		}
		color.Green("✓ Migraine %s ended after %s", m.ID.String()[:8], formatDuration(m))
		return nil
	},
}

var migraineDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a migraine and its items",
	Long: `Delete a migraine by its ID or ID prefix.

Journal items attached to the migraine are deleted with it. There is no undo.
If the prefix matches multiple migraines, an error is returned.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := repo.GetMigraine(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("migraine not found: %s", args[0])
		}

		if err := repo.DeleteMigraine(cmd.Context(), m.ID.String()); err != nil {
			return fmt.Errorf("failed to delete migraine: %w", err)
		}

		color.Yellow("✗ Deleted migraine")
		fmt.Printf("  %s %s severity %d\n",
			color.New(color.Faint).Sprint(m.ID.String()[:8]),
			m.StartedAt.Local().Format("2006-01-02 15:04"),
			m.Severity)
		return nil
	},
}

var migraineItemCmd = &cobra.Command{
	Use:   "item <trigger|medicine|relief> <name>",
	Short: "Log a trigger, medicine, or relief",
	Long: `Log a trigger, medicine, or relief.

Examples:
  migraine migraine item trigger "red wine"
  migraine migraine item medicine sumatriptan --migraine abc123 --amount 50 --unit mg
  migraine migraine item relief "dark room" --migraine abc123`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !models.IsValidItemKind(args[0]) {
			return fmt.Errorf("unknown item kind: %s (use trigger, medicine, or relief)", args[0])
		}

		it := models.NewJournalItem(models.ItemKind(args[0]), args[1])
		if itemMigraine != "" {
			m, err := repo.GetMigraine(cmd.Context(), itemMigraine)
			if err != nil {
				return fmt.Errorf("migraine not found: %s", itemMigraine)
			}
			it.ForMigraine(m.ID)
		}
		if cmd.Flags().Changed("amount") {
			it.WithAmount(itemAmount, itemUnit)
		}
		if itemAt != "" {
			t, err := parseTime(itemAt)
			if err != nil {
				return fmt.Errorf("invalid --at: %w", err)
			}
			it.WithRecordedAt(t)
		}
		if itemNotes != "" {
			it.WithNotes(itemNotes)
		}

		if err := repo.AddJournalItem(cmd.Context(), it); err != nil {
			return fmt.Errorf("failed to add %s: %w", args[0], err)
		}

		color.Green("✓ Added %s: %s", it.Kind, describeItem(it))
		fmt.Printf("  %s\n", color.New(color.Faint).Sprint(it.ID.String()[:8]))
		return nil
	},
}

var migraineItemsCmd = &cobra.Command{
	Use:   "items",
	Short: "List journal items",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := repo.ListJournalItems(cmd.Context(), storage.ItemFilter{Limit: migraineLimit})
		if err != nil {
			return fmt.Errorf("failed to list items: %w", err)
		}
		if len(items) == 0 {
			fmt.Println("No items found.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, it := range items {
			fmt.Printf("%s %s %s %s\n",
				faint.Sprint(it.ID.String()[:8]),
				faint.Sprint(it.RecordedAt.Local().Format("2006-01-02 15:04")),
				padRight(string(it.Kind), 9),
				describeItem(it))
		}
		return nil
	},
}

func describeItem(it *models.JournalItem) string {
	s := it.Name
	if it.Amount != nil {
		s += fmt.Sprintf(" %g", *it.Amount)
		if it.Unit != nil {
			s += " " + *it.Unit
		}
	}
	if it.Notes != nil && *it.Notes != "" {
		s += color.New(color.Faint).Sprintf(" (%s)", truncate(*it.Notes, 30))
	}
	return s
}

func formatDuration(m *models.Migraine) string {
	if m.EndedAt == nil {
		return "ongoing"
	}
	return m.Duration().Round(time.Minute).String()
}

func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02 15:04",
		"2006-01-02T15:04",
		"2006-01-02",
		time.RFC3339,
	}
	for _, f := range formats {
		if t, err := time.ParseInLocation(f, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format")
}

func init() {
	migraineAddCmd.Flags().StringVar(&migraineAt, "at", "", "start time (YYYY-MM-DD HH:MM)")
	migraineAddCmd.Flags().StringVar(&migraineEnded, "ended", "", "end time (YYYY-MM-DD HH:MM)")
	migraineAddCmd.Flags().StringVar(&migraineNotes, "notes", "", "notes for the migraine")

	migraineEndCmd.Flags().StringVar(&migraineEnded, "at", "", "end time (default: now)")

	migraineListCmd.Flags().IntVarP(&migraineLimit, "limit", "n", 20, "max number of results")
	migraineItemsCmd.Flags().IntVarP(&migraineLimit, "limit", "n", 20, "max number of results")

	migraineItemCmd.Flags().StringVar(&itemMigraine, "migraine", "", "attach to this migraine (ID or prefix)")
	migraineItemCmd.Flags().Float64Var(&itemAmount, "amount", 0, "amount taken")
	migraineItemCmd.Flags().StringVar(&itemUnit, "unit", "", "unit of the amount")
	migraineItemCmd.Flags().StringVar(&itemAt, "at", "", "timestamp (YYYY-MM-DD HH:MM)")
	migraineItemCmd.Flags().StringVar(&itemNotes, "notes", "", "notes for the item")

	migraineCmd.AddCommand(migraineAddCmd)
	migraineCmd.AddCommand(migraineListCmd)
	migraineCmd.AddCommand(migraineShowCmd)
	migraineCmd.AddCommand(migraineEndCmd)
	migraineCmd.AddCommand(migraineDeleteCmd)
	migraineCmd.AddCommand(migraineItemCmd)
	migraineCmd.AddCommand(migraineItemsCmd)
	rootCmd.AddCommand(migraineCmd)
}
