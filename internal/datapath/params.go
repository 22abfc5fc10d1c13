package datapath

import (
	"strconv"
	"strings"
)

// Params returns the bracketed placeholder names in s, in order of
// appearance: "Partition [1] of [2]" yields ["1", "2"].
func Params(s string) []string {
	var params []string
	start := strings.Index(s, "[")
	for start != -1 {
		end := strings.Index(s[start+1:], "]")
		if end != -1 {
			params = append(params, s[start+1:start+1+end])
		}
		next := strings.Index(s[start+1:], "[")
		if next == -1 {
			break
		}
		start = start + 1 + next
	}
	return params
}

// StripSelector removes a "|field" selector suffix from a path segment.
func StripSelector(segment string) string {
	value, _, _ := strings.Cut(segment, "|")
	return value
}

// SubstitutePlaceholders replaces numeric "[N]" placeholders in s with the
// Nth-from-right segment of path, selector suffixes stripped. Placeholders
// whose index exceeds the path depth are left untouched.
func SubstitutePlaceholders(s, path string) string {
	if s == "" || path == "" {
		return s
	}

	segments := strings.Split(path, ".")
	// Reverse so index 1 addresses the right-most segment.
	values := make([]string, len(segments))
	for i, segment := range segments {
		values[len(segments)-1-i] = StripSelector(segment)
	}

	for _, param := range Params(s) {
		index, err := strconv.Atoi(param)
		if err != nil || index < 1 || index > len(values) {
			continue
		}
		s = strings.ReplaceAll(s, "["+param+"]", values[index-1])
	}
	return s
}

// Slugify lowercases a value and replaces spaces and dots with underscores,
// producing a stable identifier fragment.
func Slugify(value string) string {
	if value == "" {
		return ""
	}
	return strings.ToLower(strings.NewReplacer(" ", "_", ".", "_").Replace(value))
}
