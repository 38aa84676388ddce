package cast

import (
	"sort"
	"strings"

	"golang.org/x/text/width"
)

const (
	roleVoicePlaceholder = "配音"
	roleActorPlaceholder = "演员"
	rolePrefixVoice      = "配 "
	rolePrefixActor      = "饰 "
	zeroWidthSpace       = "​"
	fullWidthSpace       = "　"
)

// IsAnimation implements the is_animation predicate used by formatting.
func IsAnimation(genres []string) bool {
	for _, g := range genres {
		switch g {
		case "Animation", "动画", "动漫":
			return true
		}
	}
	return false
}

// FormatOptions controls the optional role-prefix behavior of the format step.
type FormatOptions struct {
	IsAnimation  bool
	RolePrefixOn bool
}

// Format applies the final formatting pass to a truncated, translated cast list:
// CJK space-stripping, empty-role substitution, optional role
// prefixing, zero-width-space dedup, and the generic-role-last sort
// with re-assigned sequential order.
func Format(records []Record, opts FormatOptions) []Record {
	out := make([]Record, len(records))
	copy(out, records)

	for i := range out {
		if containsCJK(out[i].Name) {
			out[i].Name = stripSpaces(out[i].Name)
		}

		if strings.TrimSpace(out[i].Character) == "" {
			if opts.IsAnimation {
				out[i].Character = roleVoicePlaceholder
			} else {
				out[i].Character = roleActorPlaceholder
			}
		}

		if opts.RolePrefixOn && !IsPlaceholderRole(out[i].Character) {
			if opts.IsAnimation {
				out[i].Character = rolePrefixVoice + out[i].Character
			} else {
				out[i].Character = rolePrefixActor + out[i].Character
			}
		}
	}

	dedupNames(out)
	sortFinal(out)

	for i := range out {
		out[i].Order = i
	}
	return out
}

// stripSpaces removes all spacing from a CJK name, first narrowing any
// fullwidth-form runes (U+3000 space, fullwidth Latin/punctuation that
// sometimes leaks in from scraped Douban text) down to their standard
// form so a single ReplaceAll on " " catches both halfwidth and
// narrowed-fullwidth spaces.
func stripSpaces(s string) string {
	s = width.Narrow.String(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, fullWidthSpace, "")
	return s
}

// dedupNames suffixes colliding canonical names (after stripping any
// prior zero-width-space markers) with i copies of U+200B so the
// target server treats them as distinct persons.
func dedupNames(records []Record) {
	seen := make(map[string]int)
	for i := range records {
		canonical := strings.ReplaceAll(records[i].Name, zeroWidthSpace, "")
		count := seen[canonical]
		if count > 0 {
			records[i].Name = records[i].Name + strings.Repeat(zeroWidthSpace, count)
		}
		seen[canonical] = count + 1
	}
}

// sortFinal moves generic-role records (演员/配音) to the end, stable by
// original order within each group.
func sortFinal(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		iGeneric := isGenericFinalRole(records[i].Character)
		jGeneric := isGenericFinalRole(records[j].Character)
		if iGeneric != jGeneric {
			return !iGeneric
		}
		return records[i].Order < records[j].Order
	})
}

func isGenericFinalRole(role string) bool {
	return role == roleActorPlaceholder || role == roleVoicePlaceholder
}
