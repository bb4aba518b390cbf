// ABOUTME: Tests for the PostgREST client: headers, query encoding, errors, and retries.
// ABOUTME: Runs against an httptest server.
package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	_, err := New(Config{APIKey: "k"})
	assert.Error(t, err)

	_, err = New(Config{URL: "http://x"})
	assert.Error(t, err)

	c, err := New(Config{URL: "http://x/", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "http://x", c.baseURL)
	assert.Equal(t, "k", c.accessToken, "access token falls back to api key")
}

func TestExecuteSendsAuthAndQuery(t *testing.T) {
	f, srv := newFakeServer(t)
	c := newTestClient(t, srv)

	_, err := c.From("migraines").
		Select("id,severity").
		Eq("user_id", "u1").
		Order("started_at", false).
		Limit(5).
		Execute(context.Background())
	require.NoError(t, err)

	req := f.last()
	assert.Equal(t, "anon-key", req.Header.Get("apikey"))
	assert.Equal(t, "Bearer user-token", req.Header.Get("Authorization"))
	assert.Equal(t, "/rest/v1/migraines", req.URL.Path)

	q := req.URL.Query()
	assert.Equal(t, "id,severity", q.Get("select"))
	assert.Equal(t, "eq.u1", q.Get("user_id"))
	assert.Equal(t, "started_at.desc", q.Get("order"))
	assert.Equal(t, "5", q.Get("limit"))
}

func TestUpsertUsesMergeDuplicates(t *testing.T) {
	f, srv := newFakeServer(t)
	c := newTestClient(t, srv)

	_, err := c.From("metric_settings").
		Upsert("user_id,metric,preferred_source").
		ExecuteInsert(context.Background(), map[string]any{"user_id": "u1", "metric": "hrv_daily", "preferred_source": "whoop"})
	require.NoError(t, err)

	req := f.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "resolution=merge-duplicates,return=representation", req.Header.Get("Prefer"))
	assert.Equal(t, "user_id,metric,preferred_source", req.URL.Query().Get("on_conflict"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
}

func TestRetryOnTransientStatus(t *testing.T) {
	f, srv := newFakeServer(t)
	c := newTestClient(t, srv)
	f.failWith(2, http.StatusServiceUnavailable)

	resp, err := c.From("migraines").Select("*").Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, f.count())
}

func TestRetryExhausted(t *testing.T) {
	f, srv := newFakeServer(t)
	c := newTestClient(t, srv)
	f.failWith(10, http.StatusTooManyRequests)

	_, err := c.From("migraines").Select("*").Execute(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "try again", apiErr.Message)
	assert.Equal(t, DefaultRetryConfig().MaxRetries+1, f.count())
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"JWT expired","code":"PGRST301"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.From("metric_settings").Select("*").Execute(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, IsUnauthorized(err))
	assert.Contains(t, err.Error(), "JWT expired")
}

func TestRetryOnTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	retry := DefaultRetryConfig()
	retry.MaxRetries = 1
	retry.InitialBackoff = time.Millisecond
	c, err := New(Config{URL: url, APIKey: "k", Retry: retry})
	require.NoError(t, err)

	_, err = c.From("migraines").Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 1 retries")
}

// dropFirst answers 201 except for the first request, whose connection is
// closed without a response.
func dropFirst(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
		writeJSON(w, http.StatusCreated, []map[string]any{{"id": "m1"}})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestPlainInsertNotReplayedAfterTransportError(t *testing.T) {
	srv, calls := dropFirst(t)
	c := newTestClient(t, srv)

	_, err := c.From("migraines").ExecuteInsert(context.Background(), map[string]any{"id": "m1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outcome unknown")
	assert.Equal(t, int32(1), calls.Load())
}

func TestUpsertReplayedAfterTransportError(t *testing.T) {
	srv, calls := dropFirst(t)
	c := newTestClient(t, srv)

	resp, err := c.From("metric_settings").
		Upsert("user_id,metric,preferred_source").
		ExecuteInsert(context.Background(), map[string]any{"metric": "hrv_daily"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestPlainInsertRetriedOnTransientStatus(t *testing.T) {
	f, srv := newFakeServer(t)
	c := newTestClient(t, srv)
	f.failWith(1, http.StatusServiceUnavailable)

	_, err := c.From("migraines").ExecuteInsert(context.Background(), map[string]any{"id": "m2"})
	require.NoError(t, err)
	assert.Equal(t, 2, f.count())
}

func TestContextCancelStopsRetry(t *testing.T) {
	f, srv := newFakeServer(t)
	f.failWith(10, http.StatusBadGateway)

	retry := DefaultRetryConfig()
	retry.InitialBackoff = time.Second
	c, err := New(Config{URL: srv.URL, APIKey: "k", Retry: retry})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = c.From("migraines").Execute(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRateLimiter(t *testing.T) {
	_, srv := newFakeServer(t)
	c, err := New(Config{URL: srv.URL, APIKey: "k", RequestsPerSecond: 20, Burst: 1})
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.From("migraines").Execute(context.Background())
		require.NoError(t, err)
	}
	// Two waits of 50ms each after the initial burst token
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	rc := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond, BackoffMultiplier: 2}
	assert.Equal(t, 100*time.Millisecond, rc.backoff(1))
	assert.Equal(t, 200*time.Millisecond, rc.backoff(2))
	assert.Equal(t, 300*time.Millisecond, rc.backoff(3))
}
