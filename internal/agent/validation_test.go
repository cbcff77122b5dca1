package agent

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParseBatchAcceptsArrayAndPlan(t *testing.T) {
	items, err := ParseBatch([]byte(`[{"type":"complete_task","task_gid":"1"}]`))
	if err != nil || len(items) != 1 {
		t.Fatalf("array: items=%d err=%v", len(items), err)
	}
	items, err = ParseBatch([]byte(`{"instruction":"x","actions":[{"type":"a"},{"type":"b"}]}`))
	if err != nil || len(items) != 2 {
		t.Fatalf("plan: items=%d err=%v", len(items), err)
	}
}

func TestParseBatchEmptyIsDistinct(t *testing.T) {
	if _, err := ParseBatch([]byte(`[]`)); !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}
	if _, err := ParseBatch([]byte(`{"actions":[]}`)); !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch for empty plan, got %v", err)
	}
	if _, err := ParseBatch([]byte(`"nope"`)); !errors.Is(err, ErrMalformedBatch) {
		t.Fatalf("expected ErrMalformedBatch, got %v", err)
	}
	if _, err := ParseBatch([]byte(`[1,`)); !errors.Is(err, ErrMalformedBatch) {
		t.Fatalf("expected ErrMalformedBatch for broken JSON, got %v", err)
	}
}

func TestParseBatchObjectWithoutActionsIsMalformed(t *testing.T) {
	for _, raw := range []string{`{}`, `{"foo":1}`, `{"instruction":"x"}`} {
		_, err := ParseBatch([]byte(raw))
		if !errors.Is(err, ErrMalformedBatch) {
			t.Fatalf("%s: expected ErrMalformedBatch, got %v", raw, err)
		}
		if errors.Is(err, ErrEmptyBatch) {
			t.Fatalf("%s: must not be reported as empty", raw)
		}
	}
}

func TestParseActionRejectsAssigneeNames(t *testing.T) {
	for _, raw := range []string{
		`{"type":"assign_task","task_gid":"5","assignee":"Alice Smith"}`,
		`{"type":"assign_task","task_gid":"5","assignee":"id:alice"}`,
		`{"type":"create_task","fields":{"name":"x","assignee":"Alice"}}`,
	} {
		_, err := ParseAction(json.RawMessage(raw))
		if !IsInvalidAction(err) {
			t.Fatalf("%s: expected invalid action, got %v", raw, err)
		}
		if !strings.Contains(err.Error(), "is not a gid, email or") {
			t.Fatalf("%s: unexpected reason: %v", raw, err)
		}
	}
	for _, ref := range []string{"me", "42", "id:42", "kim@example.com"} {
		raw := `{"type":"assign_task","task_gid":"5","assignee":"` + ref + `"}`
		if _, err := ParseAction(json.RawMessage(raw)); err != nil {
			t.Fatalf("%s: unexpected error: %v", ref, err)
		}
	}
}

func TestParseActionKeepsLargeNumericGIDs(t *testing.T) {
	raw := `{"type":"create_task","fields":{"name":"x","assignee":1209876543210987654,"workspace":1209876543210987001,"projects":[1209876543210987002],"custom":1209876543210987003}}`
	action, err := ParseAction(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ct := action.(CreateTask)
	if ct.Assignee != "1209876543210987654" || ct.Workspace != "1209876543210987001" {
		t.Fatalf("gids were altered: assignee=%q workspace=%q", ct.Assignee, ct.Workspace)
	}
	if len(ct.Projects) != 1 || ct.Projects[0] != "1209876543210987002" {
		t.Fatalf("unexpected projects: %#v", ct.Projects)
	}
	body, err := json.Marshal(ct.Extra)
	if err != nil {
		t.Fatalf("marshal extra: %v", err)
	}
	if string(body) != `{"custom":1209876543210987003}` {
		t.Fatalf("pass-through number was altered: %s", body)
	}
}

func TestParseActionRequiredFields(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"update without task", `{"type":"update_task","fields":{"name":"x"}}`},
		{"subtask without parent", `{"type":"create_subtask","fields":{"name":"x"}}`},
		{"comment without text", `{"type":"comment_task","task_gid":"1"}`},
		{"create without name", `{"type":"create_task","fields":{"notes":"n"}}`},
		{"assign without assignee", `{"type":"assign_task","task_gid":"1"}`},
		{"set_tags without lists", `{"type":"set_tags","task_gid":"1"}`},
		{"set_tags bad list", `{"type":"set_tags","task_gid":"1","add_tags":{"a":1}}`},
		{"set_section without section", `{"type":"set_section","task_gid":"1","project_gid":"p"}`},
		{"complete without task", `{"type":"complete_task"}`},
		{"unknown kind", `{"type":"delete_everything","task_gid":"1"}`},
		{"missing type", `{"task_gid":"1"}`},
		{"not an object", `[1,2]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseAction(json.RawMessage(tc.raw))
			if !IsInvalidAction(err) {
				t.Fatalf("expected InvalidActionError, got %v", err)
			}
		})
	}
}

func TestParseActionCreateTask(t *testing.T) {
	raw := `{"type":"create_task","fields":{"name":"X","notes":"n","projects":"p1","tags":["urgent"," ","later"],"assignee_email":"a@example.com","custom_fields":{"1":"2"}}}`
	action, err := ParseAction(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("ParseAction: %v", err)
	}
	ct, ok := action.(CreateTask)
	if !ok {
		t.Fatalf("expected CreateTask, got %T", action)
	}
	if ct.Name != "X" || ct.Notes != "n" || ct.Assignee != "a@example.com" {
		t.Fatalf("unexpected create task: %#v", ct)
	}
	if !reflect.DeepEqual(ct.Projects, []string{"p1"}) || !reflect.DeepEqual(ct.Tags, []string{"urgent", "later"}) {
		t.Fatalf("unexpected lists: %#v", ct)
	}
	if _, ok := ct.Extra["custom_fields"]; !ok || len(ct.Extra) != 1 {
		t.Fatalf("expected passthrough extra fields, got %#v", ct.Extra)
	}
}

func TestParseActionCompleteDefaultsTrue(t *testing.T) {
	action, err := ParseAction(json.RawMessage(`{"type":"complete_task","task_gid":"1"}`))
	if err != nil {
		t.Fatalf("ParseAction: %v", err)
	}
	if !action.(CompleteTask).Completed {
		t.Fatalf("expected completed default true")
	}
	action, err = ParseAction(json.RawMessage(`{"type":"complete_task","task_gid":"1","completed":false}`))
	if err != nil {
		t.Fatalf("ParseAction: %v", err)
	}
	if action.(CompleteTask).Completed {
		t.Fatalf("expected explicit false to be kept")
	}
}

func TestParseActionSetTagsAcceptsSingleString(t *testing.T) {
	action, err := ParseAction(json.RawMessage(`{"type":"set_tags","task_gid":"1","remove_tags":"old"}`))
	if err != nil {
		t.Fatalf("ParseAction: %v", err)
	}
	st := action.(SetTags)
	if len(st.Add) != 0 || !reflect.DeepEqual(st.Remove, []string{"old"}) {
		t.Fatalf("unexpected set_tags: %#v", st)
	}
}

func TestPeekKindAndSummary(t *testing.T) {
	items := []json.RawMessage{
		json.RawMessage(`{"type":"complete_task","task_gid":"1"}`),
		json.RawMessage(`{"type":"complete_task","task_gid":"2"}`),
		json.RawMessage(`{"type":"comment_task","task_gid":"1"}`),
	}
	if PeekKind(items[2]) != "comment_task" {
		t.Fatalf("unexpected peek")
	}
	s := SummarizeBatch(items)
	if s.Total != 3 || s.ByKind[KindCompleteTask] != 2 || s.Reject != 1 {
		t.Fatalf("unexpected summary: %#v", s)
	}
}

func TestNotFoundErrorMessage(t *testing.T) {
	err := error(&NotFoundError{Entity: "user", Name: "a@example.com", Scope: "workspace 1"})
	if err.Error() != `user "a@example.com" not found in workspace 1` {
		t.Fatalf("unexpected message: %s", err)
	}
	if !IsNotFound(err) {
		t.Fatalf("expected IsNotFound")
	}
}

func TestParseActionReportsWrongFieldType(t *testing.T) {
	_, err := ParseAction(json.RawMessage(`{"type":"complete_task","task_gid":1207}`))
	var inv *InvalidActionError
	if !errors.As(err, &inv) {
		t.Fatalf("expected InvalidActionError, got %v", err)
	}
	if inv.Kind != "complete_task" || !strings.HasPrefix(inv.Reason, "task_gid: ") {
		t.Fatalf("unexpected error: %#v", inv)
	}
}

func TestParseActionToleratesNulls(t *testing.T) {
	action, err := ParseAction(json.RawMessage(`{"type":"set_tags","task_gid":"1","add_tags":["a"],"remove_tags":null,"reason":null}`))
	if err != nil {
		t.Fatalf("ParseAction: %v", err)
	}
	if st := action.(SetTags); !reflect.DeepEqual(st.Add, []string{"a"}) || st.Remove != nil {
		t.Fatalf("unexpected set_tags: %#v", st)
	}
}
