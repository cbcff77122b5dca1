package tasks

import (
	"errors"
	"net/url"
	"strings"
)

// read-only attributes a model sometimes echoes back in a field map
var readOnlyFields = map[string]struct{}{
	"gid":           {},
	"resource_type": {},
	"created_at":    {},
	"modified_at":   {},
	"permalink_url": {},
}

type CreateInput struct {
	Name        string
	Notes       string
	DueOn       string
	DueAt       string
	Workspace   string
	Projects    []string
	AssigneeGID string
	Extra       map[string]any
}

func TaskPath(taskGID string) string {
	return "/tasks/" + url.PathEscape(strings.TrimSpace(taskGID))
}

func SubtasksPath(parentGID string) string {
	return TaskPath(parentGID) + "/subtasks"
}

func BuildCreatePayload(in CreateInput) (map[string]any, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errors.New("task name is required")
	}
	body := map[string]any{}
	for k, v := range in.Extra {
		if _, skip := readOnlyFields[k]; skip {
			continue
		}
		body[k] = v
	}
	body["name"] = name
	if in.Notes != "" {
		body["notes"] = in.Notes
	}
	if in.DueOn != "" {
		body["due_on"] = in.DueOn
	}
	if in.DueAt != "" {
		body["due_at"] = in.DueAt
	}
	if ws := strings.TrimSpace(in.Workspace); ws != "" {
		body["workspace"] = ws
	}
	if len(in.Projects) > 0 {
		body["projects"] = in.Projects
	}
	if _, ok := body["workspace"]; !ok && len(in.Projects) == 0 {
		return nil, errors.New("workspace or project is required to create a task")
	}
	if in.AssigneeGID != "" {
		body["assignee"] = in.AssigneeGID
	}
	return body, nil
}

// BuildUpdatePayload copies a field map, dropping read-only attributes.
func BuildUpdatePayload(fields map[string]any) map[string]any {
	body := make(map[string]any, len(fields))
	for k, v := range fields {
		if _, skip := readOnlyFields[k]; skip {
			continue
		}
		body[k] = v
	}
	return body
}

func BuildCompletePayload(completed bool) map[string]any {
	return map[string]any{"completed": completed}
}

func BuildWorkspaceQuery() url.Values {
	query := url.Values{}
	query.Set("opt_fields", "workspace")
	return query
}
