package comments

import (
	"errors"
	"net/url"
	"strings"
)

func StoriesPath(taskGID string) string {
	return "/tasks/" + url.PathEscape(strings.TrimSpace(taskGID)) + "/stories"
}

func BuildAddPayload(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("comment text is required")
	}
	return map[string]any{"text": text}, nil
}
