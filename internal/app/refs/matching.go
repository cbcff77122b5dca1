package refs

import (
	"net/mail"
	"strconv"
	"strings"
)

func StripIDPrefix(value string) string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(strings.ToLower(value), "id:") {
		return strings.TrimSpace(value[3:])
	}
	return value
}

func IsNumeric(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	_, err := strconv.ParseUint(value, 10, 64)
	return err == nil
}

// NormalizeRef strips an "id:" prefix and reports whether the value can be
// used as a gid without a lookup.
func NormalizeRef(value string) (normalized string, directID bool) {
	original := strings.TrimSpace(value)
	if original == "" {
		return "", false
	}
	explicitID := strings.HasPrefix(strings.ToLower(original), "id:")
	normalized = StripIDPrefix(original)
	if explicitID || IsNumeric(normalized) {
		return normalized, true
	}
	return normalized, false
}

func IsEmail(value string) bool {
	value = strings.TrimSpace(value)
	if !strings.Contains(value, "@") {
		return false
	}
	addr, err := mail.ParseAddress(value)
	return err == nil && addr.Address == value
}

// FoldName is the cache and comparison key for entity names.
func FoldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IndexByName builds a folded-name to id map. The first item with a given
// name wins; later duplicates are ignored.
func IndexByName[T any](items []T, nameFn func(T) string, idFn func(T) string) map[string]string {
	out := make(map[string]string, len(items))
	for _, item := range items {
		key := FoldName(nameFn(item))
		if key == "" {
			continue
		}
		if _, exists := out[key]; exists {
			continue
		}
		out[key] = idFn(item)
	}
	return out
}
