// ABOUTME: Watchdog that keeps scheduled jobs in line with effective metric settings.
// ABOUTME: Runs a reconciliation check on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/harperreed/migraine/internal/gating"
	"github.com/harperreed/migraine/internal/metrics"
	"github.com/harperreed/migraine/internal/models"
	"github.com/robfig/cron/v3"
)

// DefaultWatchSpec runs the check every fifteen minutes.
const DefaultWatchSpec = "*/15 * * * *"

// PlanSource yields the current gating plan.
type PlanSource interface {
	Plan(ctx context.Context) (*gating.Plan, error)
}

// Report summarizes one watchdog check.
type Report struct {
	Rescheduled []models.JobID
	Cancelled   []models.JobID
}

// Changed reports whether the check altered any schedule.
func (r Report) Changed() bool {
	return len(r.Rescheduled) > 0 || len(r.Cancelled) > 0
}

// Watchdog re-asserts job schedules from the gating plan.
type Watchdog struct {
	scheduler *Scheduler
	plans     PlanSource
	logger    *slog.Logger
}

// NewWatchdog creates a watchdog.
func NewWatchdog(scheduler *Scheduler, plans PlanSource, logger *slog.Logger) *Watchdog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watchdog{scheduler: scheduler, plans: plans, logger: logger}
}

// Check schedules missing jobs of effectively enabled metrics and cancels
// jobs of disabled ones.
func (w *Watchdog) Check(ctx context.Context) (Report, error) {
	var report Report

	plan, err := w.plans.Plan(ctx)
	if err != nil {
		return report, fmt.Errorf("watchdog plan: %w", err)
	}

	desired := plan.DesiredJobs()
	for _, job := range models.AllJobs {
		on, known := desired[job]
		if !known {
			continue
		}

		if on {
			added, err := w.scheduler.Schedule(ctx, job)
			if err != nil {
				return report, err
			}
			if added {
				metrics.JobActionsTotal.WithLabelValues(string(job), metrics.ActionReschedule).Inc()
				report.Rescheduled = append(report.Rescheduled, job)
			}
			continue
		}

		removed, err := w.scheduler.Cancel(ctx, job)
		if err != nil {
			return report, err
		}
		if removed {
			report.Cancelled = append(report.Cancelled, job)
		}
	}

	if report.Changed() {
		w.logger.Info("watchdog reconciled jobs",
			"rescheduled", report.Rescheduled,
			"cancelled", report.Cancelled,
		)
	}
	return report, nil
}

// Run performs Check on the cron spec until ctx is cancelled.
// Check failures are logged and retried on the next tick.
func (w *Watchdog) Run(ctx context.Context, spec string) error {
	if spec == "" {
		spec = DefaultWatchSpec
	}

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := w.Check(ctx); err != nil {
			w.logger.Warn("watchdog check failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("parse watch schedule %q: %w", spec, err)
	}

	// Reconcile once up front rather than waiting for the first tick
	if _, err := w.Check(ctx); err != nil {
		w.logger.Warn("watchdog check failed", "error", err)
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
