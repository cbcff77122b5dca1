package tasks

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/agisilaos/asana-planner/internal/api"
)

const (
	ListFieldsFull   = "name,completed,due_on,due_at,assignee,assignee.name,tags,tags.name,notes,created_at,modified_at,completed_at"
	ListFieldsReport = "name,completed,due_on,due_at,assignee.name,tags.name,notes"
)

var ErrNoTaskScope = errors.New("a project, or a workspace (optionally with a user), is required to list tasks")

type ListInput struct {
	WorkspaceGID string
	ProjectGID   string
	UserGID      string
	Fields       string
}

type ListPlan struct {
	Mode  string
	Path  string
	Query url.Values
}

// PlanList picks the narrowest listing the credentials allow: project tasks,
// then a user's tasks in a workspace, then a workspace-wide search.
func PlanList(in ListInput) (ListPlan, error) {
	fields := strings.TrimSpace(in.Fields)
	if fields == "" {
		fields = ListFieldsFull
	}
	query := url.Values{}
	query.Set("opt_fields", fields)
	project := strings.TrimSpace(in.ProjectGID)
	workspace := strings.TrimSpace(in.WorkspaceGID)
	user := strings.TrimSpace(in.UserGID)
	switch {
	case project != "":
		return ListPlan{Mode: "project", Path: "/projects/" + url.PathEscape(project) + "/tasks", Query: query}, nil
	case user != "" && workspace != "":
		query.Set("assignee", user)
		query.Set("workspace", workspace)
		return ListPlan{Mode: "user", Path: "/tasks", Query: query}, nil
	case workspace != "":
		return ListPlan{Mode: "workspace", Path: "/workspaces/" + url.PathEscape(workspace) + "/tasks/search", Query: query}, nil
	default:
		return ListPlan{}, ErrNoTaskScope
	}
}

// Fetch runs the planned listing across every page.
func Fetch(ctx context.Context, pager api.Pager, in ListInput) ([]api.Task, error) {
	plan, err := PlanList(in)
	if err != nil {
		return nil, err
	}
	return api.ListAll[api.Task](ctx, pager, plan.Path, plan.Query)
}
