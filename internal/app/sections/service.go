package sections

import (
	"errors"
	"net/url"
	"strings"
)

func ListPath(projectGID string) string {
	return "/projects/" + url.PathEscape(strings.TrimSpace(projectGID)) + "/sections"
}

func BuildListQuery() url.Values {
	query := url.Values{}
	query.Set("opt_fields", "name")
	return query
}

// CreatePath is the same collection as ListPath.
func CreatePath(projectGID string) string {
	return ListPath(projectGID)
}

func BuildCreatePayload(name string) (map[string]any, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("section name is required")
	}
	return map[string]any{"name": name}, nil
}

func AddTaskPath(sectionGID string) string {
	return "/sections/" + url.PathEscape(sectionGID) + "/addTask"
}

func BuildAddTaskPayload(taskGID string) map[string]any {
	return map[string]any{"task": taskGID}
}

// AddProjectPath is the alternate membership call: adding the task to the
// project with a section places it in that section.
func AddProjectPath(taskGID string) string {
	return "/tasks/" + url.PathEscape(taskGID) + "/addProject"
}

func BuildAddProjectPayload(projectGID, sectionGID string) (map[string]any, error) {
	projectGID = strings.TrimSpace(projectGID)
	if projectGID == "" {
		return nil, errors.New("project is required to move a task between sections")
	}
	body := map[string]any{"project": projectGID}
	if sectionGID = strings.TrimSpace(sectionGID); sectionGID != "" {
		body["section"] = sectionGID
	}
	return body, nil
}
