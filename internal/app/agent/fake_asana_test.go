package agent

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	coreagent "github.com/agisilaos/asana-planner/internal/agent"
	"github.com/agisilaos/asana-planner/internal/api"
)

// fakeAsana is an in-memory stand-in for the remote API. Routes are keyed by
// "METHOD /path"; anything unrouted answers 404.
type fakeAsana struct {
	t      *testing.T
	mu     sync.Mutex
	calls  map[string]int
	bodies map[string][]map[string]any
	routes map[string]http.HandlerFunc
	srv    *httptest.Server
}

func newFakeAsana(t *testing.T) *fakeAsana {
	t.Helper()
	f := &fakeAsana{
		t:      t,
		calls:  map[string]int{},
		bodies: map[string][]map[string]any{},
		routes: map[string]http.HandlerFunc{},
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAsana) handle(route string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[route] = h
}

func (f *fakeAsana) serve(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	var body map[string]any
	if r.Body != nil {
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			var env struct {
				Data map[string]any `json:"data"`
			}
			if err := json.Unmarshal(raw, &env); err != nil {
				f.t.Errorf("%s: request body is not an enveloped object: %v", key, err)
			}
			body = env.Data
		}
	}
	f.mu.Lock()
	f.calls[key]++
	if body != nil {
		f.bodies[key] = append(f.bodies[key], body)
	}
	h := f.routes[key]
	f.mu.Unlock()
	if h == nil {
		writeError(w, http.StatusNotFound, "no route for "+key)
		return
	}
	h(w, r)
}

func (f *fakeAsana) count(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

func (f *fakeAsana) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeAsana) sent(route string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.bodies[route]...)
}

func (f *fakeAsana) client() *api.Client {
	return api.NewClient(f.srv.URL, "test-token", 5*time.Second)
}

func (f *fakeAsana) executor() *Executor {
	return NewExecutor(func(coreagent.Credentials) Gateway { return f.client() }, discardLogger())
}

func writeData(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": v})
}

func writePage(w http.ResponseWriter, items any, next string) {
	w.Header().Set("Content-Type", "application/json")
	payload := map[string]any{"data": items, "next_page": nil}
	if next != "" {
		payload["next_page"] = map[string]any{"offset": next}
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"errors": []map[string]any{{"message": msg}}})
}

func respondData(v any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) { writeData(w, v) }
}

func respondPage(items any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) { writePage(w, items, "") }
}

func respondError(status int, msg string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) { writeError(w, status, msg) }
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func batch(items ...string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		out = append(out, json.RawMessage(item))
	}
	return out
}
