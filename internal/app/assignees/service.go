package assignees

import (
	"net/url"
	"strings"

	apprefs "github.com/agisilaos/asana-planner/internal/app/refs"
)

type ParsedRef struct {
	ID          string
	IsMe        bool
	Email       string
	NeedsLookup bool
}

// ParseRef classifies an assignee reference. Only email addresses need a
// remote lookup; "me" and numeric gids are passed straight through. Anything
// else, a display name for instance, comes back with Valid() false.
func ParseRef(ref string) ParsedRef {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return ParsedRef{}
	}
	if strings.EqualFold(trimmed, "me") {
		return ParsedRef{ID: "me", IsMe: true}
	}
	if apprefs.IsEmail(trimmed) {
		return ParsedRef{Email: trimmed, NeedsLookup: true}
	}
	if gid, direct := apprefs.NormalizeRef(trimmed); direct && apprefs.IsNumeric(gid) {
		return ParsedRef{ID: gid}
	}
	return ParsedRef{}
}

func (p ParsedRef) Valid() bool {
	return p.ID != "" || p.NeedsLookup
}

func ListPath(workspaceGID string) string {
	return "/workspaces/" + url.PathEscape(strings.TrimSpace(workspaceGID)) + "/users"
}

func BuildListQuery() url.Values {
	query := url.Values{}
	query.Set("opt_fields", "name,email")
	return query
}

func BuildAssignPayload(userGID string) map[string]any {
	return map[string]any{"assignee": userGID}
}
