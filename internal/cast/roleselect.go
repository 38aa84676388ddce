package cast

import (
	"strings"

	"github.com/hbq0405/emby-actor-processor/internal/translate"
)

func containsCJK(s string) bool { return translate.ContainsCJK(s) }

// placeholders are generic, non-descriptive role values that carry no
// real character information.
var placeholders = map[string]bool{
	"actor":   true,
	"actress": true,
	"演员":      true,
	"配音":      true,
}

// IsPlaceholderRole reports whether role is empty or one of the generic
// placeholders, case-insensitively.
func IsPlaceholderRole(role string) bool {
	trimmed := strings.TrimSpace(role)
	if trimmed == "" {
		return true
	}
	return placeholders[strings.ToLower(trimmed)]
}

// SelectRole applies the role-selection priority order: a
// non-placeholder CJK candidate always wins; failing that, a
// non-placeholder CJK current value is protected from being overwritten
// by a non-CJK candidate; failing that, a non-placeholder non-CJK value
// is preferred (candidate over current); failing that, a placeholder
// is preferred (candidate over current); failing that, empty.
func SelectRole(current, candidate string) string {
	current = strings.TrimSpace(current)
	candidate = strings.TrimSpace(candidate)

	candidateCJK := candidate != "" && containsCJK(candidate)
	currentCJK := current != "" && containsCJK(current)

	if candidateCJK && !IsPlaceholderRole(candidate) {
		return candidate
	}
	if currentCJK && !IsPlaceholderRole(current) {
		return current
	}
	if candidate != "" && !IsPlaceholderRole(candidate) {
		return candidate
	}
	if current != "" && !IsPlaceholderRole(current) {
		return current
	}
	if candidate != "" {
		return candidate
	}
	if current != "" {
		return current
	}
	return ""
}
