package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	apprefs "github.com/agisilaos/asana-planner/internal/app/refs"
)

// create_task keys that are interpreted rather than passed through.
var createTaskKeys = map[string]struct{}{
	"name":           {},
	"notes":          {},
	"due_on":         {},
	"due_at":         {},
	"workspace":      {},
	"projects":       {},
	"project":        {},
	"assignee":       {},
	"assignee_email": {},
	"tags":           {},
}

// ParseBatch accepts either a bare array of descriptors or a plan object with
// an "actions" array.
func ParseBatch(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrMalformedBatch
	}
	var items []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedBatch, err)
		}
	case '{':
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &keys); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedBatch, err)
		}
		if _, ok := keys["actions"]; !ok {
			return nil, fmt.Errorf("%w: plan object has no \"actions\" key", ErrMalformedBatch)
		}
		var plan Plan
		if err := json.Unmarshal(trimmed, &plan); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedBatch, err)
		}
		items = plan.Actions
	default:
		return nil, ErrMalformedBatch
	}
	if len(items) == 0 {
		return nil, ErrEmptyBatch
	}
	return items, nil
}

// PeekKind returns the declared type of a descriptor without validating it.
func PeekKind(raw json.RawMessage) string {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return ""
	}
	return strings.TrimSpace(head.Type)
}

func ParseAction(raw json.RawMessage) (Action, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &InvalidActionError{Kind: PeekKind(raw), Reason: "descriptor is not valid JSON: " + err.Error()}
	}
	if err := checkShape(doc); err != nil {
		return nil, &InvalidActionError{Kind: PeekKind(raw), Reason: err.Error()}
	}
	// numbers stay json.Number so large gids in fields survive intact
	var d Descriptor
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&d); err != nil {
		return nil, &InvalidActionError{Kind: PeekKind(raw), Reason: "descriptor is not a JSON object: " + err.Error()}
	}
	return FromDescriptor(d)
}

func FromDescriptor(d Descriptor) (Action, error) {
	kind := Kind(strings.TrimSpace(d.Type))
	taskGID := strings.TrimSpace(d.TaskGID)
	invalid := func(reason string) error {
		return &InvalidActionError{Kind: string(kind), Reason: reason}
	}
	switch kind {
	case KindUpdateTask:
		if taskGID == "" {
			return nil, invalid("task_gid is required")
		}
		return UpdateTask{TaskGID: taskGID, Fields: cloneFields(d.Fields)}, nil
	case KindCreateSubtask:
		parent := firstNonEmpty(d.ParentGID, d.TaskGID)
		if parent == "" {
			return nil, invalid("parent_gid is required")
		}
		return CreateSubtask{ParentGID: parent, Fields: cloneFields(d.Fields)}, nil
	case KindCommentTask:
		text := strings.TrimSpace(d.Text)
		if text == "" {
			text = stringField(d.Fields, "text")
		}
		if taskGID == "" || text == "" {
			return nil, invalid("task_gid and text are required")
		}
		return CommentTask{TaskGID: taskGID, Text: text}, nil
	case KindCreateTask:
		return parseCreateTask(d)
	case KindAssignTask:
		assignee := firstNonEmpty(d.Assignee, d.AssigneeEmail, stringField(d.Fields, "assignee"))
		if taskGID == "" || assignee == "" {
			return nil, invalid("task_gid and assignee (gid or email) are required")
		}
		if !assigneeRefOK(assignee) {
			return nil, invalid(fmt.Sprintf("assignee %q is not a gid, email or \"me\"", assignee))
		}
		return AssignTask{TaskGID: taskGID, Workspace: strings.TrimSpace(d.WorkspaceGID), Assignee: assignee}, nil
	case KindSetTags:
		add, err := decodeNames(d.AddTags)
		if err != nil {
			return nil, invalid("add_tags: " + err.Error())
		}
		remove, err := decodeNames(d.RemoveTags)
		if err != nil {
			return nil, invalid("remove_tags: " + err.Error())
		}
		if taskGID == "" {
			return nil, invalid("task_gid is required")
		}
		if len(add) == 0 && len(remove) == 0 {
			return nil, invalid("add_tags or remove_tags is required")
		}
		return SetTags{TaskGID: taskGID, Workspace: strings.TrimSpace(d.WorkspaceGID), Add: add, Remove: remove}, nil
	case KindSetSection:
		sectionGID := strings.TrimSpace(d.SectionGID)
		sectionName := strings.TrimSpace(d.SectionName)
		if taskGID == "" {
			return nil, invalid("task_gid is required")
		}
		if sectionGID == "" && sectionName == "" {
			return nil, invalid("section_gid or section_name is required")
		}
		return SetSection{TaskGID: taskGID, Project: strings.TrimSpace(d.ProjectGID), SectionGID: sectionGID, SectionName: sectionName}, nil
	case KindCompleteTask:
		if taskGID == "" {
			return nil, invalid("task_gid is required")
		}
		completed := true
		if d.Completed != nil {
			completed = *d.Completed
		}
		return CompleteTask{TaskGID: taskGID, Completed: completed}, nil
	case "":
		return nil, &InvalidActionError{Reason: "type is required"}
	default:
		return nil, invalid(fmt.Sprintf("unsupported action type %q", d.Type))
	}
}

func parseCreateTask(d Descriptor) (Action, error) {
	f := d.Fields
	name := stringField(f, "name")
	if name == "" {
		return nil, &InvalidActionError{Kind: string(KindCreateTask), Reason: "fields.name is required"}
	}
	projects := stringList(f, "projects")
	if len(projects) == 0 {
		projects = stringList(f, "project")
	}
	if len(projects) == 0 && strings.TrimSpace(d.ProjectGID) != "" {
		projects = []string{strings.TrimSpace(d.ProjectGID)}
	}
	out := CreateTask{
		Name:      name,
		Notes:     stringField(f, "notes"),
		DueOn:     stringField(f, "due_on"),
		DueAt:     stringField(f, "due_at"),
		Workspace: firstNonEmpty(stringField(f, "workspace"), d.WorkspaceGID),
		Projects:  projects,
		Assignee:  firstNonEmpty(stringField(f, "assignee"), stringField(f, "assignee_email"), d.Assignee, d.AssigneeEmail),
		Tags:      stringList(f, "tags"),
	}
	if out.Assignee != "" && !assigneeRefOK(out.Assignee) {
		return nil, &InvalidActionError{Kind: string(KindCreateTask), Reason: fmt.Sprintf("assignee %q is not a gid, email or \"me\"", out.Assignee)}
	}
	for k, v := range f {
		if _, known := createTaskKeys[k]; known {
			continue
		}
		if out.Extra == nil {
			out.Extra = map[string]any{}
		}
		out.Extra[k] = v
	}
	return out, nil
}

func SummarizeBatch(items []json.RawMessage) PlanSummary {
	s := PlanSummary{Total: len(items), ByKind: map[Kind]int{}}
	for _, raw := range items {
		action, err := ParseAction(raw)
		if err != nil {
			s.Reject++
			continue
		}
		s.ByKind[action.Kind()]++
	}
	return s
}

// SupportedKinds returns the kind names sorted for display.
func SupportedKinds() []string {
	out := make([]string, 0, len(Kinds))
	for _, k := range Kinds {
		out = append(out, string(k))
	}
	sort.Strings(out)
	return out
}

// assigneeRefOK accepts "me", an email address, or a numeric gid with an
// optional "id:" prefix. Display names never resolve.
func assigneeRefOK(ref string) bool {
	ref = strings.TrimSpace(ref)
	if strings.EqualFold(ref, "me") || apprefs.IsEmail(ref) {
		return true
	}
	gid, direct := apprefs.NormalizeRef(ref)
	return direct && apprefs.IsNumeric(gid)
}

func decodeNames(raw json.RawMessage) ([]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}
	var single string
	if err := json.Unmarshal(trimmed, &single); err == nil {
		return cleanNames([]string{single}), nil
	}
	var list []string
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, fmt.Errorf("expected a string or list of strings")
	}
	return cleanNames(list), nil
}

func cleanNames(in []string) []string {
	var out []string
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		// only integers a float64 holds exactly
		if v == math.Trunc(v) && math.Abs(v) <= 1<<53 {
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func stringList(m map[string]any, key string) []string {
	if m == nil {
		return nil
	}
	switch v := m[key].(type) {
	case string:
		return cleanNames([]string{v})
	case json.Number:
		return []string{v.String()}
	case []string:
		return cleanNames(v)
	case []any:
		names := make([]string, 0, len(v))
		for _, item := range v {
			switch s := item.(type) {
			case string:
				names = append(names, s)
			case json.Number:
				names = append(names, s.String())
			}
		}
		return cleanNames(names)
	}
	return nil
}

func cloneFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
