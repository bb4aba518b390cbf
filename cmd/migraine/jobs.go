// ABOUTME: CLI commands for background collection jobs.
// ABOUTME: Lists scheduled jobs and runs the watchdog that keeps them in line with settings.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/harperreed/migraine/internal/jobs"
	"github.com/spf13/cobra"
)

var (
	watchOnce     bool
	watchSchedule string
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect background collection jobs",
	Long: `Inspect background collection jobs.

Ambient noise, screen time, location, and menstruation prediction each run
as a background job paired with a watchdog. Jobs are scheduled when their
metric is switched on and cancelled when it is switched off or its
permission is revoked.

EXAMPLES:

  migraine jobs list
  migraine jobs watch --once          # Reconcile once and exit
  migraine jobs watch                 # Reconcile every 15 minutes`,
}

var jobsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List scheduled jobs",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		scheduled, err := scheduler.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list jobs: %w", err)
		}
		if len(scheduled) == 0 {
			fmt.Println("No jobs scheduled.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, j := range scheduled {
			kind := "job"
			if j.Watchdog {
				kind = "watchdog"
			}
			fmt.Printf("%s %s %s %s\n",
				faint.Sprint(j.ScheduleID[len(j.ScheduleID)-8:]),
				faint.Sprint(j.ScheduledAt.Local().Format("2006-01-02 15:04")),
				padRight(string(j.ID), 34),
				kind)
		}
		return nil
	},
}

var jobsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep scheduled jobs in line with settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wd := jobs.NewWatchdog(scheduler, svc, logger)

		if watchOnce {
			report, err := wd.Check(cmd.Context())
			if err != nil {
				return err
			}
			if !report.Changed() {
				color.Green("✓ Jobs match settings")
				return nil
			}
			for _, j := range report.Rescheduled {
				color.Green("✓ Rescheduled %s", j)
			}
			for _, j := range report.Cancelled {
				color.Yellow("Cancelled %s", j)
			}
			return nil
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Watching jobs on %q (Ctrl-C to stop)\n", watchSchedule)
		return wd.Run(ctx, watchSchedule)
	},
}

func init() {
	jobsWatchCmd.Flags().BoolVar(&watchOnce, "once", false, "reconcile once and exit")
	jobsWatchCmd.Flags().StringVar(&watchSchedule, "schedule", jobs.DefaultWatchSpec, "cron schedule for reconciliation")

	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsWatchCmd)
	rootCmd.AddCommand(jobsCmd)
}
