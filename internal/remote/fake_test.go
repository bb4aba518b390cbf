// ABOUTME: In-memory PostgREST stand-in for remote client and store tests.
// ABOUTME: Supports eq filters, single-column order, limit, upsert, patch, and delete.
package remote

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakePostgREST struct {
	mu       sync.Mutex
	tables   map[string][]map[string]any
	requests []*http.Request
	// failNext makes the next n requests return failStatus.
	failNext   int
	failStatus int
}

func newFakeServer(t *testing.T) (*fakePostgREST, *httptest.Server) {
	t.Helper()
	f := &fakePostgREST{tables: make(map[string][]map[string]any)}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	retry := DefaultRetryConfig()
	retry.InitialBackoff = time.Millisecond
	retry.MaxBackoff = 5 * time.Millisecond
	c, err := New(Config{URL: srv.URL, APIKey: "anon-key", AccessToken: "user-token", Retry: retry})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, r.Clone(r.Context()))

	if f.failNext > 0 {
		f.failNext--
		w.WriteHeader(f.failStatus)
		_, _ = w.Write([]byte(`{"message":"try again"}`))
		return
	}

	table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	q := r.URL.Query()

	switch r.Method {
	case http.MethodGet:
		rows := f.filter(table, q)
		if order := q.Get("order"); order != "" {
			first := strings.Split(order, ",")[0]
			parts := strings.SplitN(first, ".", 2)
			col, desc := parts[0], len(parts) == 2 && parts[1] == "desc"
			sort.SliceStable(rows, func(i, j int) bool {
				a, b := fmt.Sprint(rows[i][col]), fmt.Sprint(rows[j][col])
				if desc {
					return a > b
				}
				return a < b
			})
		}
		if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit < len(rows) {
			rows = rows[:limit]
		}
		if sel := q.Get("select"); sel != "" && sel != "*" {
			cols := strings.Split(sel, ",")
			projected := make([]map[string]any, 0, len(rows))
			for _, row := range rows {
				p := map[string]any{}
				for _, c := range cols {
					p[c] = row[c]
				}
				projected = append(projected, p)
			}
			rows = projected
		}
		writeJSON(w, http.StatusOK, rows)

	case http.MethodPost:
		var row map[string]any
		if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		if onConflict := q.Get("on_conflict"); onConflict != "" {
			cols := strings.Split(onConflict, ",")
			for _, existing := range f.tables[table] {
				if sameKey(existing, row, cols) {
					for k, v := range row {
						existing[k] = v
					}
					writeJSON(w, http.StatusCreated, []map[string]any{existing})
					return
				}
			}
		}
		f.tables[table] = append(f.tables[table], row)
		writeJSON(w, http.StatusCreated, []map[string]any{row})

	case http.MethodPatch:
		var patch map[string]any
		_ = json.NewDecoder(r.Body).Decode(&patch)
		rows := f.filter(table, q)
		for _, row := range rows {
			for k, v := range patch {
				row[k] = v
			}
		}
		writeJSON(w, http.StatusOK, rows)

	case http.MethodDelete:
		removed := f.filter(table, q)
		var kept []map[string]any
		for _, row := range f.tables[table] {
			if !matches(row, q) {
				kept = append(kept, row)
			}
		}
		f.tables[table] = kept
		writeJSON(w, http.StatusOK, removed)
	}
}

func (f *fakePostgREST) filter(table string, q map[string][]string) []map[string]any {
	rows := []map[string]any{}
	for _, row := range f.tables[table] {
		if matches(row, q) {
			rows = append(rows, row)
		}
	}
	return rows
}

func matches(row map[string]any, q map[string][]string) bool {
	for col, vals := range q {
		for _, v := range vals {
			if !strings.HasPrefix(v, "eq.") {
				continue
			}
			if fmt.Sprint(row[col]) != strings.TrimPrefix(v, "eq.") {
				return false
			}
		}
	}
	return true
}

func sameKey(a, b map[string]any, cols []string) bool {
	for _, c := range cols {
		if fmt.Sprint(a[c]) != fmt.Sprint(b[c]) {
			return false
		}
	}
	return true
}

func (f *fakePostgREST) rows(table string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tables[table]
}

func (f *fakePostgREST) seed(table string, rows ...map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[table] = append(f.tables[table], rows...)
}

func (f *fakePostgREST) failWith(n, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = n
	f.failStatus = status
}

func (f *fakePostgREST) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakePostgREST) last() *http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
