// ABOUTME: PostgREST client for the remote authoritative settings store.
// ABOUTME: Query builder over net/http with apikey plus bearer access token auth.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Config holds client configuration.
type Config struct {
	URL         string
	APIKey      string
	AccessToken string // user session token; falls back to APIKey
	HTTPClient  *http.Client
	Retry       RetryConfig
	// RequestsPerSecond caps outgoing requests; zero disables limiting.
	RequestsPerSecond float64
	Burst             int
}

// Client is a PostgREST API client.
type Client struct {
	baseURL     string
	apiKey      string
	accessToken string
	httpClient  *http.Client
	retry       RetryConfig
	limiter     *rate.Limiter
}

// New creates a new PostgREST client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("APIKey is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	token := cfg.AccessToken
	if token == "" {
		token = cfg.APIKey
	}

	c := &Client{
		baseURL:     strings.TrimSuffix(cfg.URL, "/"),
		apiKey:      cfg.APIKey,
		accessToken: token,
		httpClient:  httpClient,
		retry:       cfg.Retry,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c, nil
}

// From starts a query builder for a table.
func (c *Client) From(table string) *QueryBuilder {
	return &QueryBuilder{client: c, table: table}
}

// QueryBuilder builds PostgREST queries.
type QueryBuilder struct {
	client     *Client
	table      string
	columns    string
	filters    [][2]string
	orders     []string
	limit      int
	upsert     bool
	onConflict string
}

// Select specifies columns to select.
func (q *QueryBuilder) Select(columns string) *QueryBuilder {
	q.columns = columns
	return q
}

// Eq adds an equality filter.
func (q *QueryBuilder) Eq(column string, value any) *QueryBuilder {
	q.filters = append(q.filters, [2]string{column, fmt.Sprintf("eq.%v", value)})
	return q
}

// In adds an IN filter.
func (q *QueryBuilder) In(column string, values []string) *QueryBuilder {
	q.filters = append(q.filters, [2]string{column, fmt.Sprintf("in.(%s)", strings.Join(values, ","))})
	return q
}

// Is adds an IS filter (null, true, false).
func (q *QueryBuilder) Is(column string, value string) *QueryBuilder {
	q.filters = append(q.filters, [2]string{column, "is." + value})
	return q
}

// Order adds an ORDER BY clause.
func (q *QueryBuilder) Order(column string, ascending bool) *QueryBuilder {
	dir := "asc"
	if !ascending {
		dir = "desc"
	}
	q.orders = append(q.orders, column+"."+dir)
	return q
}

// Limit sets the LIMIT.
func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.limit = n
	return q
}

// Upsert makes ExecuteInsert merge rows that collide on the onConflict columns.
func (q *QueryBuilder) Upsert(onConflict string) *QueryBuilder {
	q.upsert = true
	q.onConflict = onConflict
	return q
}

func (q *QueryBuilder) url(withShape bool) string {
	reqURL := fmt.Sprintf("%s/rest/v1/%s", q.client.baseURL, url.PathEscape(q.table))

	params := url.Values{}
	for _, f := range q.filters {
		params.Add(f[0], f[1])
	}
	if withShape {
		if q.columns != "" {
			params.Set("select", q.columns)
		}
		if len(q.orders) > 0 {
			params.Set("order", strings.Join(q.orders, ","))
		}
		if q.limit > 0 {
			params.Set("limit", fmt.Sprintf("%d", q.limit))
		}
	}
	if q.upsert && q.onConflict != "" {
		params.Set("on_conflict", q.onConflict)
	}

	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	return reqURL
}

// Execute executes a SELECT query.
func (q *QueryBuilder) Execute(ctx context.Context) (*Response, error) {
	return q.client.do(ctx, opSelect, request{method: http.MethodGet, url: q.url(true)})
}

// ExecuteInsert executes an INSERT, or an upsert when Upsert was called. A plain
// insert is not replayed after a transport error; upserts and status retries are.
func (q *QueryBuilder) ExecuteInsert(ctx context.Context, data any) (*Response, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal data: %w", err)
	}

	op := opInsert
	prefer := "return=representation"
	if q.upsert {
		op = opUpsert
		prefer = "resolution=merge-duplicates," + prefer
	}

	return q.client.do(ctx, op, request{
		method:   http.MethodPost,
		url:      q.url(false),
		body:     body,
		prefer:   prefer,
		noReplay: !q.upsert,
	})
}

// ExecuteUpdate executes an UPDATE on the filtered rows.
func (q *QueryBuilder) ExecuteUpdate(ctx context.Context, data any) (*Response, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal data: %w", err)
	}
	return q.client.do(ctx, opUpdate, request{
		method: http.MethodPatch,
		url:    q.url(false),
		body:   body,
		prefer: "return=representation",
	})
}

// ExecuteDelete executes a DELETE on the filtered rows.
func (q *QueryBuilder) ExecuteDelete(ctx context.Context) (*Response, error) {
	return q.client.do(ctx, opDelete, request{
		method: http.MethodDelete,
		url:    q.url(false),
		prefer: "return=representation",
	})
}

// Response is a raw API response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// JSON unmarshals the response body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// Error returns an *APIError if the response indicates failure.
func (r *Response) Error() error {
	if r.StatusCode < 400 {
		return nil
	}
	apiErr := &APIError{StatusCode: r.StatusCode}
	var body struct {
		Message string `json:"message"`
		Code    string `json:"code"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(r.Body, &body); err == nil {
		apiErr.Message = body.Message
		if apiErr.Message == "" {
			apiErr.Message = body.Error
		}
		apiErr.Code = body.Code
	}
	return apiErr
}

// APIError is a non-2xx PostgREST response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("remote error: status %d", e.StatusCode)
}

// ErrUnauthorized is matched by 401 and 403 responses.
var ErrUnauthorized = errors.New("unauthorized")

// Is lets errors.Is(err, ErrUnauthorized) match auth failures.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized &&
		(e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
}
