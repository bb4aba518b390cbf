// ABOUTME: Retry with exponential backoff and client-side rate limiting.
// ABOUTME: Transient failures (429, 5xx, transport errors) are retried; others fail fast.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/harperreed/migraine/internal/metrics"
)

const (
	opSelect = metrics.OpSelect
	opInsert = metrics.OpInsert
	opUpsert = metrics.OpUpsert
	opUpdate = metrics.OpUpdate
	opDelete = metrics.OpDelete
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	// Jitter adds randomness to backoff (0.0 to 1.0)
	Jitter               float64
	RetryableStatusCodes []int
}

// DefaultRetryConfig returns the retry settings used by the CLI.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
		RetryableStatusCodes: []int{
			http.StatusTooManyRequests,     // 429
			http.StatusInternalServerError, // 500
			http.StatusBadGateway,          // 502
			http.StatusServiceUnavailable,  // 503
			http.StatusGatewayTimeout,      // 504
		},
	}
}

func (rc RetryConfig) backoff(attempt int) time.Duration {
	mult := rc.BackoffMultiplier
	if mult <= 0 {
		mult = 2.0
	}
	backoff := float64(rc.InitialBackoff) * math.Pow(mult, float64(attempt-1))
	if rc.MaxBackoff > 0 && backoff > float64(rc.MaxBackoff) {
		backoff = float64(rc.MaxBackoff)
	}
	if rc.Jitter > 0 {
		backoff += backoff * rc.Jitter * (rand.Float64()*2 - 1)
	}
	return time.Duration(backoff)
}

func (rc RetryConfig) retryableStatus(code int) bool {
	for _, c := range rc.RetryableStatusCodes {
		if c == code {
			return true
		}
	}
	return false
}

type request struct {
	method string
	url    string
	body   []byte
	prefer string
	// noReplay marks a plain insert: if the first attempt landed but its
	// response was lost, a replay would fail with a conflict.
	noReplay bool
}

func (r request) build(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.prefer != "" {
		req.Header.Set("Prefer", r.prefer)
	}
	return req, nil
}

// do sends r, retrying transient failures. A non-2xx final response is
// returned together with its *APIError.
func (c *Client) do(ctx context.Context, op string, r request) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			metrics.RemoteRetriesTotal.WithLabelValues(op).Inc()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retry.backoff(attempt)):
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit: %w", err)
			}
		}

		resp, err := c.send(ctx, op, r)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			if r.noReplay {
				return nil, fmt.Errorf("%s not retried, outcome unknown: %w", op, err)
			}
			lastErr = err
			continue
		}

		if c.retry.retryableStatus(resp.StatusCode) && attempt < c.retry.MaxRetries {
			lastErr = resp.Error()
			continue
		}

		if err := resp.Error(); err != nil {
			return resp, err
		}
		return resp, nil
	}

	return nil, fmt.Errorf("after %d retries: %w", c.retry.MaxRetries, lastErr)
}

func (c *Client) send(ctx context.Context, op string, r request) (*Response, error) {
	req, err := r.build(ctx)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.RemoteRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RemoteRequestsTotal.WithLabelValues(op, "error").Inc()
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	metrics.RemoteRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Headers:    resp.Header,
	}, nil
}
