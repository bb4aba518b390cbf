// ABOUTME: Background job scheduler over device-local job storage.
// ABOUTME: Every primary job is scheduled and cancelled together with its watchdog.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/harperreed/migraine/internal/metrics"
	"github.com/harperreed/migraine/internal/models"
	"github.com/harperreed/migraine/internal/storage"
	"github.com/oklog/ulid/v2"
)

// Store persists scheduled jobs. storage.DB satisfies it.
type Store interface {
	ListJobs(ctx context.Context) ([]*storage.ScheduledJob, error)
	PutJob(ctx context.Context, j *storage.ScheduledJob) error
	RemoveJob(ctx context.Context, id models.JobID) (bool, error)
}

// Scheduler registers and cancels background jobs.
type Scheduler struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewScheduler creates a scheduler backed by store.
func NewScheduler(store Store, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{store: store, logger: logger, now: time.Now}
}

// List returns every scheduled job, primaries and watchdogs.
func (s *Scheduler) List(ctx context.Context) ([]*storage.ScheduledJob, error) {
	return s.store.ListJobs(ctx)
}

// IsScheduled reports whether job and its watchdog are both scheduled.
func (s *Scheduler) IsScheduled(ctx context.Context, job models.JobID) (bool, error) {
	present, err := s.present(ctx)
	if err != nil {
		return false, err
	}
	return present[job] && present[job.Watchdog()], nil
}

// Schedule registers job and its watchdog. It is idempotent: ids already
// scheduled are left untouched. It reports whether anything was added.
func (s *Scheduler) Schedule(ctx context.Context, job models.JobID) (bool, error) {
	present, err := s.present(ctx)
	if err != nil {
		return false, err
	}

	added := false
	for _, j := range []*storage.ScheduledJob{
		{ID: job},
		{ID: job.Watchdog(), Watchdog: true},
	} {
		if present[j.ID] {
			continue
		}
		j.ScheduleID = ulid.Make().String()
		j.ScheduledAt = s.now()
		if err := s.store.PutJob(ctx, j); err != nil {
			return added, fmt.Errorf("schedule %s: %w", j.ID, err)
		}
		added = true
	}

	if added {
		metrics.JobActionsTotal.WithLabelValues(string(job), metrics.ActionSchedule).Inc()
		s.logger.Info("scheduled job", "job", job)
	}
	return added, nil
}

// Cancel removes job and its watchdog. Cancelling a job that is not
// scheduled is a no-op. It reports whether anything was removed.
func (s *Scheduler) Cancel(ctx context.Context, job models.JobID) (bool, error) {
	removed := false
	for _, id := range []models.JobID{job, job.Watchdog()} {
		ok, err := s.store.RemoveJob(ctx, id)
		if err != nil {
			return removed, fmt.Errorf("cancel %s: %w", id, err)
		}
		removed = removed || ok
	}

	if removed {
		metrics.JobActionsTotal.WithLabelValues(string(job), metrics.ActionCancel).Inc()
		s.logger.Info("cancelled job", "job", job)
	}
	return removed, nil
}

func (s *Scheduler) present(ctx context.Context) (map[models.JobID]bool, error) {
	jobs, err := s.store.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	present := make(map[models.JobID]bool, len(jobs))
	for _, j := range jobs {
		present[j.ID] = true
	}
	return present, nil
}
