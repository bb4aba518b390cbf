// ABOUTME: Prometheus metrics for settings writes, background jobs, and the remote store.
// ABOUTME: Registered with the default registry and served by promhttp on --metrics-addr.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label value constants to prevent typos
const (
	// Write results
	ResultSuccess = "success"
	ResultFailure = "failure"

	// Job actions
	ActionSchedule   = "schedule"
	ActionCancel     = "cancel"
	ActionReschedule = "reschedule"

	// Remote operations
	OpSelect = "select"
	OpUpsert = "upsert"
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Settings metrics
var (
	SettingWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "migraine_setting_writes_total",
			Help: "Metric setting writes to the authoritative store",
		},
		[]string{"metric", "result"},
	)

	CorrectiveWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "migraine_corrective_writes_total",
			Help: "Writes issued by gating rules to repair stored settings",
		},
		[]string{"rule"},
	)

	StaleRefreshTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "migraine_stale_refresh_total",
			Help: "Refreshes served from the local cache because the authority was unreachable",
		},
	)
)

// Job metrics
var (
	JobActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "migraine_job_actions_total",
			Help: "Background job schedule and cancel actions",
		},
		[]string{"job", "action"},
	)
)

// Remote store metrics
var (
	RemoteRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "migraine_remote_requests_total",
			Help: "Requests sent to the remote PostgREST store",
		},
		[]string{"op", "status_code"},
	)

	RemoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "migraine_remote_request_duration_seconds",
			Help:    "Remote PostgREST request latency in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"op"},
	)

	RemoteRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "migraine_remote_retries_total",
			Help: "Remote PostgREST requests retried after a transient failure",
		},
		[]string{"op"},
	)
)

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
