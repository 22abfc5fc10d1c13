package datapath

import (
	"fmt"
	"sort"
	"strings"
)

// Expand enumerates a path template containing bracketed wildcard segments
// into the concrete paths present in data.
//
// A wildcard segment is either the literal token "[all]" or an explicit
// comma-separated list "[a,b,c]". For "[all]" over a mapping, each key
// becomes a concrete segment; over a sequence, each element contributes a
// "value|field" selector segment built from selectorField (which must be
// set, otherwise the sequence expands to nothing). Expansion recurses so
// templates may hold several wildcard levels ("devices.[all].[all]").
//
// Map keys are emitted in sorted order so expansion is deterministic for a
// given snapshot.
func Expand(template, selectorField string, data any) []string {
	if !strings.Contains(template, "[") {
		return []string{template}
	}

	segments := strings.Split(template, ".")

	var generated []string
	for i, segment := range segments {
		if !strings.HasPrefix(segment, "[") {
			continue
		}
		prefix := strings.Join(segments[:i], ".")
		suffix := strings.Join(segments[i+1:], ".")

		var keys []string
		if segment == "[all]" {
			keys = enumerate(prefix, selectorField, data)
		} else {
			trimmed := strings.NewReplacer("[", "", "]", "", " ", "").Replace(segment)
			keys = strings.Split(trimmed, ",")
		}

		for _, key := range keys {
			generated = append(generated, joinPath(prefix, key, suffix))
		}
		break
	}

	var result []string
	for _, path := range generated {
		if strings.Contains(path, "[") {
			result = append(result, Expand(path, selectorField, data)...)
		} else {
			result = append(result, path)
		}
	}
	return result
}

// enumerate lists the concrete segments under an "[all]" wildcard.
func enumerate(prefix, selectorField string, data any) []string {
	switch d := Resolve(prefix, data).(type) {
	case []any:
		if selectorField == "" {
			return nil
		}
		keys := make([]string, 0, len(d))
		for _, entry := range d {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			keys = append(keys, fmt.Sprintf("%v|%s", m[selectorField], selectorField))
		}
		return keys
	case map[string]any:
		keys := make([]string, 0, len(d))
		for key := range d {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		return keys
	default:
		return nil
	}
}

// joinPath assembles prefix.key.suffix, skipping empty parts.
func joinPath(prefix, key, suffix string) string {
	parts := make([]string, 0, 3)
	if prefix != "" {
		parts = append(parts, prefix)
	}
	parts = append(parts, key)
	if suffix != "" {
		parts = append(parts, suffix)
	}
	return strings.Join(parts, ".")
}
