package projects

import (
	"errors"
	"net/url"
	"strings"
)

type BrowseURLInput struct {
	ID   string
	View string
}

// BuildBrowseURL links to a project in the web app. View defaults to the
// list layout.
func BuildBrowseURL(in BrowseURLInput) (string, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return "", errors.New("project id is required")
	}
	view := strings.ToLower(strings.TrimSpace(in.View))
	switch view {
	case "":
		view = "list"
	case "list", "board", "calendar", "timeline":
	default:
		return "", errors.New("view must be one of: list, board, calendar, timeline")
	}
	return "https://app.asana.com/0/" + url.PathEscape(id) + "/" + view, nil
}
