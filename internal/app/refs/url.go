package refs

import (
	"net/url"
	"strings"
)

// ParseTaskURL extracts a task gid from a web app link. Both the legacy
// /0/<project>/<task>[/f] form and the /1/<ws>/project/<p>/task/<t> form are
// recognized.
func ParseTaskURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u == nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	if host != "app.asana.com" {
		return "", false
	}
	parts := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(parts) == 0 {
		return "", false
	}
	switch parts[0] {
	case "0":
		if len(parts) < 3 {
			return "", false
		}
		id := parts[2]
		if IsNumeric(id) {
			return id, true
		}
	case "1":
		for i := 1; i+1 < len(parts); i++ {
			if parts[i] == "task" && IsNumeric(parts[i+1]) {
				return parts[i+1], true
			}
		}
	}
	return "", false
}

// NormalizeTaskRef accepts a gid, an "id:" prefixed gid, or a task URL.
func NormalizeTaskRef(value string) string {
	if id, ok := ParseTaskURL(value); ok {
		return id
	}
	return StripIDPrefix(value)
}
