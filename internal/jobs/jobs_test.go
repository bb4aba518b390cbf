// ABOUTME: Tests for the job scheduler and watchdog.
// ABOUTME: Uses a temporary SQLite device store and static gating plans.
package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/harperreed/migraine/internal/gating"
	"github.com/harperreed/migraine/internal/models"
	"github.com/harperreed/migraine/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupScheduler(t *testing.T) (*storage.DB, *Scheduler) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, NewScheduler(db, nil)
}

func TestScheduleAddsPrimaryAndWatchdog(t *testing.T) {
	_, s := setupScheduler(t)
	ctx := context.Background()

	added, err := s.Schedule(ctx, models.JobAmbientNoise)
	require.NoError(t, err)
	assert.True(t, added)

	jobs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, models.JobAmbientNoise, jobs[0].ID)
	assert.Equal(t, models.JobID("ambient_noise_watchdog"), jobs[1].ID)
	assert.True(t, jobs[1].Watchdog)
	assert.NotEqual(t, jobs[0].ScheduleID, jobs[1].ScheduleID)
	assert.Len(t, jobs[0].ScheduleID, 26, "schedule ids are ULIDs")
}

func TestScheduleIsIdempotent(t *testing.T) {
	_, s := setupScheduler(t)
	ctx := context.Background()

	_, err := s.Schedule(ctx, models.JobScreenTime)
	require.NoError(t, err)
	first, _ := s.List(ctx)

	added, err := s.Schedule(ctx, models.JobScreenTime)
	require.NoError(t, err)
	assert.False(t, added)

	second, _ := s.List(ctx)
	require.Len(t, second, 2)
	assert.Equal(t, first[0].ScheduleID, second[0].ScheduleID, "existing schedule is kept")
}

func TestScheduleRepairsMissingWatchdog(t *testing.T) {
	db, s := setupScheduler(t)
	ctx := context.Background()

	_, err := s.Schedule(ctx, models.JobLocation)
	require.NoError(t, err)
	_, err = db.RemoveJob(ctx, models.JobLocation.Watchdog())
	require.NoError(t, err)

	ok, err := s.IsScheduled(ctx, models.JobLocation)
	require.NoError(t, err)
	assert.False(t, ok)

	added, err := s.Schedule(ctx, models.JobLocation)
	require.NoError(t, err)
	assert.True(t, added)

	ok, _ = s.IsScheduled(ctx, models.JobLocation)
	assert.True(t, ok)
}

func TestCancelIsIdempotent(t *testing.T) {
	_, s := setupScheduler(t)
	ctx := context.Background()

	_, _ = s.Schedule(ctx, models.JobAmbientNoise)

	removed, err := s.Cancel(ctx, models.JobAmbientNoise)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Cancel(ctx, models.JobAmbientNoise)
	require.NoError(t, err)
	assert.False(t, removed)

	jobs, _ := s.List(ctx)
	assert.Empty(t, jobs)
}

type planFunc func(ctx context.Context) (*gating.Plan, error)

func (f planFunc) Plan(ctx context.Context) (*gating.Plan, error) { return f(ctx) }

func planFor(snap gating.Snapshot) PlanSource {
	return planFunc(func(context.Context) (*gating.Plan, error) {
		return gating.Evaluate(snap), nil
	})
}

func TestWatchdogCheck(t *testing.T) {
	_, s := setupScheduler(t)
	ctx := context.Background()

	// Stale schedule for a metric whose permission is gone
	_, _ = s.Schedule(ctx, models.JobScreenTime)

	snap := gating.Snapshot{
		Permissions: map[models.Permission]bool{
			models.PermMicrophone: true,
			models.PermLocation:   true,
		},
	}
	w := NewWatchdog(s, planFor(snap), nil)

	report, err := w.Check(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.JobID{models.JobAmbientNoise, models.JobLocation}, report.Rescheduled)
	assert.Equal(t, []models.JobID{models.JobScreenTime}, report.Cancelled)

	for _, job := range []models.JobID{models.JobAmbientNoise, models.JobLocation} {
		ok, _ := s.IsScheduled(ctx, job)
		assert.True(t, ok, "%s should be scheduled", job)
	}
	ok, _ := s.IsScheduled(ctx, models.JobScreenTime)
	assert.False(t, ok)

	// A second pass finds nothing to do
	report, err = w.Check(ctx)
	require.NoError(t, err)
	assert.False(t, report.Changed())
}

func TestWatchdogCheckPlanError(t *testing.T) {
	_, s := setupScheduler(t)
	w := NewWatchdog(s, planFunc(func(context.Context) (*gating.Plan, error) {
		return nil, errors.New("offline")
	}), nil)

	_, err := w.Check(context.Background())
	assert.Error(t, err)
}

func TestWatchdogRunBadSpec(t *testing.T) {
	_, s := setupScheduler(t)
	w := NewWatchdog(s, planFor(gating.Snapshot{}), nil)

	err := w.Run(context.Background(), "not a cron spec")
	assert.Error(t, err)
}

func TestWatchdogRunStopsOnCancel(t *testing.T) {
	_, s := setupScheduler(t)
	snap := gating.Snapshot{Permissions: map[models.Permission]bool{models.PermMicrophone: true}}
	w := NewWatchdog(s, planFor(snap), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, "@every 1h") }()

	// The initial check runs before the cron loop starts
	require.Eventually(t, func() bool {
		ok, _ := s.IsScheduled(context.Background(), models.JobAmbientNoise)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
