package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agisilaos/asana-planner/internal/audit"
)

// upstream fakes the remote API and counts calls per "METHOD /path".
type upstream struct {
	mu     sync.Mutex
	calls  map[string]int
	tokens []string
	srv    *httptest.Server
}

func newUpstream(t *testing.T, routes map[string]any) *upstream {
	t.Helper()
	u := &upstream{calls: map[string]int{}}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		u.mu.Lock()
		u.calls[key]++
		u.tokens = append(u.tokens, r.Header.Get("Authorization"))
		u.mu.Unlock()
		data, ok := routes[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"errors":[{"message":"unknown route"}]}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	t.Cleanup(u.srv.Close)
	return u
}

func (u *upstream) count(key string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls[key]
}

func newTestServer(t *testing.T, up *upstream, store *audit.Store) *Server {
	t.Helper()
	return New(Options{
		BaseURL: up.srv.URL,
		Timeout: 5 * time.Second,
		Audit:   store,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:     func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) },
	})
}

func do(t *testing.T, s *Server, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

var authHeaders = map[string]string{HeaderToken: "tok", HeaderWorkspace: "ws1", HeaderProject: "p1"}

func TestHealth(t *testing.T) {
	s := newTestServer(t, newUpstream(t, nil), nil)
	rec := do(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
}

func TestCredentialStatusReadsHeaders(t *testing.T) {
	s := newTestServer(t, newUpstream(t, nil), nil)
	rec := do(t, s, http.MethodGet, "/api/credentials/status", "", map[string]string{HeaderToken: "tok", HeaderProject: "p1"})
	assert.Equal(t, map[string]any{"configured": true, "hasWorkspace": false, "hasProject": true, "hasUser": false}, decode(t, rec))
}

func TestExecuteRunsBatch(t *testing.T) {
	up := newUpstream(t, map[string]any{
		"PUT /tasks/1":          map[string]any{"gid": "1", "completed": true},
		"POST /tasks/2/stories": map[string]any{"gid": "s1"},
	})
	store, err := audit.Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	s := newTestServer(t, up, store)

	body := `{"actions":[{"type":"complete_task","task_gid":"1"},{"type":"nope"},{"type":"comment_task","task_gid":"2","text":"hi"}]}`
	rec := do(t, s, http.MethodPost, "/api/actions/execute", body, authHeaders)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp executeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Results, 3)
	assert.True(t, resp.Results[0].OK)
	assert.False(t, resp.Results[1].OK)
	assert.Equal(t, 1, resp.Results[1].Index)
	assert.True(t, resp.Results[2].OK)
	assert.Equal(t, 3, resp.Summary.Total)
	assert.Equal(t, 1, resp.Summary.Failed)
	assert.NotEmpty(t, resp.AuditID)
	assert.Equal(t, []string{"Bearer tok", "Bearer tok"}, up.tokens)

	entries, err := store.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, resp.AuditID, entries[0].ID)
	assert.Equal(t, audit.SourceServer, entries[0].Source)
	assert.Equal(t, 1, entries[0].Failed)
}

func TestExecuteRejectsBadRequests(t *testing.T) {
	up := newUpstream(t, nil)
	s := newTestServer(t, up, nil)

	cases := []struct {
		name    string
		body    string
		headers map[string]string
	}{
		{"missing token", `[{"type":"complete_task","task_gid":"1"}]`, map[string]string{HeaderWorkspace: "ws1"}},
		{"empty batch", `[]`, authHeaders},
		{"empty plan", `{"actions":[]}`, authHeaders},
		{"malformed", `{"actions":`, authHeaders},
		{"not a batch", `"complete everything"`, authHeaders},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/actions/execute", tc.body, tc.headers)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode(t, rec)["error"])
		})
	}
	assert.Zero(t, up.count("PUT /tasks/1"))
}

func TestWeeklyPlanBucketsProjectTasks(t *testing.T) {
	up := newUpstream(t, map[string]any{
		"GET /projects/p1/tasks": []map[string]any{
			{"gid": "a", "name": "late", "due_on": "2026-02-27"},
			{"gid": "b", "name": "soon", "due_on": "2026-03-04"},
			{"gid": "c", "name": "someday"},
			{"gid": "d", "name": "done", "completed": true},
		},
	})
	s := newTestServer(t, up, nil)
	rec := do(t, s, http.MethodPost, "/api/plan/weekly", "", authHeaders)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Success bool `json:"success"`
		Plan    map[string][]struct {
			GID string `json:"gid"`
		} `json:"plan"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Len(t, resp.Plan["overdue"], 1)
	assert.Len(t, resp.Plan["thisWeek"], 1)
	assert.Len(t, resp.Plan["noDueDate"], 1)
	assert.Empty(t, resp.Plan["nextWeek"])
}

func TestBrainstormWithoutScopeIsEmpty(t *testing.T) {
	up := newUpstream(t, nil)
	s := newTestServer(t, up, nil)
	rec := do(t, s, http.MethodPost, "/api/brainstorm", "", map[string]string{HeaderToken: "tok"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, float64(0), out["completionRate"])
	assert.Equal(t, []any{}, out["taskIdeas"])
}

func TestTasksUpstreamFailureIs500(t *testing.T) {
	up := newUpstream(t, nil)
	s := newTestServer(t, up, nil)
	rec := do(t, s, http.MethodGet, "/api/tasks", "", authHeaders)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "Failed to fetch tasks", out["error"])
	assert.Contains(t, out["details"], "unknown route")
}

func TestProjectsRequiresWorkspace(t *testing.T) {
	s := newTestServer(t, newUpstream(t, nil), nil)
	rec := do(t, s, http.MethodGet, "/api/projects", "", map[string]string{HeaderToken: "tok"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWorkspacesList(t *testing.T) {
	up := newUpstream(t, map[string]any{
		"GET /workspaces": []map[string]any{{"gid": "ws1", "name": "Acme"}},
	})
	s := newTestServer(t, up, nil)
	rec := do(t, s, http.MethodGet, "/api/workspaces", "", authHeaders)
	require.Equal(t, http.StatusOK, rec.Code)
	ws := decode(t, rec)["workspaces"].([]any)
	require.Len(t, ws, 1)
	assert.Equal(t, "Acme", ws[0].(map[string]any)["name"])
}

func TestAuditEndpoint(t *testing.T) {
	s := newTestServer(t, newUpstream(t, nil), nil)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/audit", "", nil).Code)

	store, err := audit.Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	_, err = store.Record(context.Background(), audit.Entry{Total: 1, Request: json.RawMessage(`[]`)})
	require.NoError(t, err)

	s = newTestServer(t, newUpstream(t, nil), store)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/audit?limit=x", "", nil).Code)
	rec := do(t, s, http.MethodGet, "/api/audit?limit=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["entries"], 1)
}

func TestRequestIDHeaderIsAccepted(t *testing.T) {
	s := newTestServer(t, newUpstream(t, nil), nil)
	req := httptest.NewRequest(http.MethodGet, "/health", bytes.NewReader(nil))
	req.Header.Set("X-Request-Id", "abc")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEachRequestGetsItsOwnLimiter(t *testing.T) {
	s := New(Options{BaseURL: "http://upstream.invalid", RateLimit: 5, RateBurst: 2})
	creds := credentialsFromRequest(httptest.NewRequest(http.MethodGet, "/", nil))

	a, b := s.client(creds), s.client(creds)
	require.NotNil(t, a.Limiter)
	require.NotNil(t, b.Limiter)
	assert.NotSame(t, a.Limiter, b.Limiter)
	assert.Equal(t, 2, a.Limiter.Burst())

	unlimited := New(Options{BaseURL: "http://upstream.invalid"})
	assert.Nil(t, unlimited.client(creds).Limiter)
}
