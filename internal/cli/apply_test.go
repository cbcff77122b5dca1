package cli

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const mixedPlan = `{"instruction":"tidy up","actions":[
  {"type":"complete_task","task_gid":"1"},
  {"type":"bogus"},
  {"type":"comment_task","task_gid":"2","text":"on it"}
]}`

type applyResult struct {
	Index   int    `json:"index"`
	Type    string `json:"type"`
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	TaskGID string `json:"task_gid"`
}

func writePlan(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write plan: %v", err)
	}
	return path
}

func TestApplyDryRunMakesNoCalls(t *testing.T) {
	h := newCLIHarness(t)
	remote := newFakeRemote(t)
	t.Setenv("ASANA_TOKEN", "tok")
	t.Setenv("ASANA_BASE_URL", remote.srv.URL)

	code, out, _ := h.run("", "--json", "apply", "--plan", writePlan(t, mixedPlan), "--dry-run")
	if code != exitUsage {
		t.Fatalf("expected usage exit for an invalid action, got %d", code)
	}
	if remote.total() != 0 {
		t.Fatalf("dry run must not call the API, saw %d calls", remote.total())
	}
	env := decodeEnvelope(t, out)
	var items []dryRunItem
	if err := json.Unmarshal(env.Data, &items); err != nil {
		t.Fatalf("decode items: %v", err)
	}
	if len(items) != 3 || !env.Meta.DryRun || env.Meta.Failed != 1 {
		t.Fatalf("unexpected dry run output: %s", out)
	}
	if !items[0].Valid || items[0].Type != "complete_task" {
		t.Fatalf("unexpected first item: %#v", items[0])
	}
	if items[1].Valid || items[1].Type != "bogus" || !strings.Contains(items[1].Error, "unsupported action type") {
		t.Fatalf("unexpected second item: %#v", items[1])
	}
}

func TestApplyDryRunAllValid(t *testing.T) {
	h := newCLIHarness(t)
	plan := `[{"type":"set_tags","task_gid":"1","add_tags":"a, b"}]`
	code, out, stderr := h.run(plan, "apply", "--plan", "-", "--dry-run")
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d (%s)", code, stderr)
	}
	if !strings.Contains(out, "set_tags") || !strings.Contains(out, "valid") {
		t.Fatalf("unexpected plain output: %q", out)
	}
}

func TestApplyContinuesPastFailures(t *testing.T) {
	h := newCLIHarness(t)
	remote := newFakeRemote(t)
	remote.data("PUT /tasks/1", map[string]any{"gid": "1", "completed": true})
	remote.fail("POST /tasks/2/stories", http.StatusForbidden, "not allowed")
	t.Setenv("ASANA_TOKEN", "tok")
	t.Setenv("ASANA_BASE_URL", remote.srv.URL)

	code, out, stderr := h.run("", "--json", "apply", "--plan", writePlan(t, mixedPlan))
	if code != exitError {
		t.Fatalf("expected exit %d, got %d", exitError, code)
	}
	if !strings.Contains(stderr, "2 of 3 actions failed") {
		t.Fatalf("unexpected stderr: %q", stderr)
	}
	env := decodeEnvelope(t, out)
	var results []applyResult
	if err := json.Unmarshal(env.Data, &results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if len(results) != 3 || env.Meta.Count != 3 || env.Meta.Failed != 2 {
		t.Fatalf("unexpected results: %s", out)
	}
	if !results[0].OK || results[0].TaskGID != "1" {
		t.Fatalf("first action should succeed: %#v", results[0])
	}
	if results[1].OK || results[1].Index != 1 {
		t.Fatalf("second action should fail in place: %#v", results[1])
	}
	if results[2].OK || !strings.Contains(results[2].Error, "not allowed") {
		t.Fatalf("third action should carry the remote error: %#v", results[2])
	}
	if remote.count("PUT /tasks/1") != 1 || remote.count("POST /tasks/2/stories") != 1 {
		t.Fatalf("unexpected call counts: %#v", remote.calls)
	}
	if remote.tokens[0] != "Bearer tok" {
		t.Fatalf("unexpected auth header: %q", remote.tokens[0])
	}
}

func TestApplyEmitsProgressEvents(t *testing.T) {
	h := newCLIHarness(t)
	remote := newFakeRemote(t)
	remote.data("PUT /tasks/1", map[string]any{"gid": "1"})
	t.Setenv("ASANA_TOKEN", "tok")
	t.Setenv("ASANA_BASE_URL", remote.srv.URL)
	progress := filepath.Join(t.TempDir(), "progress.jsonl")

	plan := `[{"type":"complete_task","task_gid":"1"},{"type":"assign_task","task_gid":"1"}]`
	code, _, _ := h.run(plan, "--progress-jsonl", progress, "apply", "--plan", "-")
	if code != exitError {
		t.Fatalf("expected exit %d, got %d", exitError, code)
	}
	data, err := os.ReadFile(progress)
	if err != nil {
		t.Fatalf("read progress: %v", err)
	}
	events := decodeEvents(t, string(data))
	var types []string
	for _, ev := range events {
		types = append(types, ev["type"].(string))
	}
	want := "plan_loaded action_start action_complete action_start action_error apply_summary"
	if strings.Join(types, " ") != want {
		t.Fatalf("unexpected event order: %v", types)
	}
	if events[4]["action_type"] != "assign_task" || events[4]["index"] != float64(1) {
		t.Fatalf("unexpected error event: %#v", events[4])
	}
}

func TestApplyWorkspaceFlagOverridesProfile(t *testing.T) {
	h := newCLIHarness(t)
	remote := newFakeRemote(t)
	remote.data("POST /tasks", map[string]any{"gid": "t1"})
	t.Setenv("ASANA_TOKEN", "tok")
	t.Setenv("ASANA_WORKSPACE_GID", "ws-env")
	t.Setenv("ASANA_BASE_URL", remote.srv.URL)

	remote.data("POST /tasks/t1/addTag", map[string]any{})
	remote.mux.HandleFunc("GET /workspaces/ws-flag/tags", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"gid":"tag1","name":"urgent"}],"next_page":null}`))
	})
	plan := `[{"type":"create_task","fields":{"name":"Ship","tags":["urgent"]}}]`
	code, out, stderr := h.run(plan, "--json", "apply", "--plan", "-", "--workspace", "ws-flag")
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d (%s)", code, stderr)
	}
	if remote.count("GET /workspaces/ws-flag/tags") != 1 || remote.count("GET /workspaces/ws-env/tags") != 0 {
		t.Fatalf("tags were not resolved in the flag workspace: %#v", remote.calls)
	}
	env := decodeEnvelope(t, out)
	var results []struct {
		TagGIDs []string `json:"tag_gids"`
	}
	if err := json.Unmarshal(env.Data, &results); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(results) != 1 || len(results[0].TagGIDs) != 1 || results[0].TagGIDs[0] != "tag1" {
		t.Fatalf("unexpected results: %s", out)
	}
}

func TestApplyRequiresToken(t *testing.T) {
	h := newCLIHarness(t)
	code, _, stderr := h.run(`[{"type":"complete_task","task_gid":"1"}]`, "apply", "--plan", "-")
	if code != exitAuth {
		t.Fatalf("expected exit %d, got %d", exitAuth, code)
	}
	if !strings.Contains(stderr, "missing auth token") {
		t.Fatalf("unexpected stderr: %q", stderr)
	}
}

func TestApplyRejectsBadPlans(t *testing.T) {
	h := newCLIHarness(t)
	cases := map[string]string{
		"empty array":    `[]`,
		"empty actions":  `{"actions":[]}`,
		"not json":       `tasks please`,
		"no actions key": `{"foo":1}`,
	}
	for name, plan := range cases {
		t.Run(name, func(t *testing.T) {
			code, _, _ := h.run(plan, "apply", "--plan", "-")
			if code != exitUsage {
				t.Fatalf("expected usage exit, got %d", code)
			}
		})
	}
	if code, _, _ := h.run("", "apply"); code != exitUsage {
		t.Fatalf("missing --plan should be a usage error, got %d", code)
	}
}

func TestApplyRecordsAuditEntry(t *testing.T) {
	h := newCLIHarness(t)
	remote := newFakeRemote(t)
	remote.data("PUT /tasks/1", map[string]any{"gid": "1"})
	t.Setenv("ASANA_TOKEN", "tok")
	t.Setenv("ASANA_BASE_URL", remote.srv.URL)
	t.Setenv("ASANA_PLANNER_AUDIT_DB", filepath.Join(t.TempDir(), "audit.db"))

	code, out, stderr := h.run(`[{"type":"complete_task","task_gid":"1"}]`, "--json", "apply", "--plan", "-", "--project", "p9")
	if code != exitOK {
		t.Fatalf("apply failed: %d (%s)", code, stderr)
	}
	auditID := decodeEnvelope(t, out).Meta.AuditID
	if auditID == "" {
		t.Fatalf("expected an audit id in meta: %s", out)
	}

	code, out, stderr = h.run("", "--json", "audit", "list", "--limit", "5")
	if code != exitOK {
		t.Fatalf("audit list failed: %d (%s)", code, stderr)
	}
	var entries []struct {
		ID         string `json:"id"`
		Source     string `json:"source"`
		ProjectGID string `json:"project_gid"`
		Total      int    `json:"total"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, out).Data, &entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != auditID || entries[0].Source != "cli" || entries[0].ProjectGID != "p9" || entries[0].Total != 1 {
		t.Fatalf("unexpected audit entries: %s", out)
	}
}

func TestAuditListWithoutDatabase(t *testing.T) {
	h := newCLIHarness(t)
	code, _, stderr := h.run("", "audit", "list")
	if code != exitUsage || !strings.Contains(stderr, "no audit database") {
		t.Fatalf("unexpected result: %d %q", code, stderr)
	}
}
