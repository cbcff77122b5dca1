package projects

import (
	"errors"
	"net/url"
	"strings"
)

const WorkspacesPath = "/workspaces"

var ErrWorkspaceRequired = errors.New("a workspace is required to list projects")

func BuildWorkspacesQuery() url.Values {
	query := url.Values{}
	query.Set("opt_fields", "name,is_organization")
	return query
}

// ListPath is the project collection of a workspace.
func ListPath(workspaceGID string) (string, error) {
	workspaceGID = strings.TrimSpace(workspaceGID)
	if workspaceGID == "" {
		return "", ErrWorkspaceRequired
	}
	return "/workspaces/" + url.PathEscape(workspaceGID) + "/projects", nil
}

// BuildListQuery hides archived projects unless includeArchived is set.
func BuildListQuery(includeArchived bool) url.Values {
	query := url.Values{}
	query.Set("opt_fields", "name,archived,workspace")
	if !includeArchived {
		query.Set("archived", "false")
	}
	return query
}
