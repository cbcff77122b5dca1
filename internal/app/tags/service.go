package tags

import (
	"errors"
	"net/url"
	"strings"
)

func ListPath(workspaceGID string) string {
	return "/workspaces/" + url.PathEscape(strings.TrimSpace(workspaceGID)) + "/tags"
}

func BuildListQuery() url.Values {
	query := url.Values{}
	query.Set("opt_fields", "name")
	return query
}

func BuildCreatePayload(workspaceGID, name string) (map[string]any, error) {
	name = strings.TrimSpace(name)
	workspaceGID = strings.TrimSpace(workspaceGID)
	if name == "" {
		return nil, errors.New("tag name is required")
	}
	if workspaceGID == "" {
		return nil, errors.New("workspace is required to create a tag")
	}
	return map[string]any{"name": name, "workspace": workspaceGID}, nil
}

func AttachPath(taskGID string) string {
	return "/tasks/" + url.PathEscape(taskGID) + "/addTag"
}

func DetachPath(taskGID string) string {
	return "/tasks/" + url.PathEscape(taskGID) + "/removeTag"
}

func BuildRelationPayload(tagGID string) map[string]any {
	return map[string]any{"tag": tagGID}
}
