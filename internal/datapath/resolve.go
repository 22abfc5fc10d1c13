// Package datapath evaluates dot-notation paths over nested panel state.
//
// A path is a dot-separated address into a snapshot of nested maps and
// sequences, e.g. "devices.z1.d1.temperature". A segment of the form
// "value|field" selects the element of a sequence whose field equals value.
package datapath

import (
	"fmt"
	"log/slog"
	"strings"
)

// Resolve walks a dot-notation path through nested data and returns the value
// at that location, or nil if any segment is absent. An empty path returns
// data unchanged. Resolution never panics: a type mismatch (e.g. indexing a
// scalar) is logged and yields nil.
func Resolve(path string, data any) any {
	if path == "" {
		return data
	}

	current := data
	for _, segment := range strings.Split(path, ".") {
		if current == nil {
			return nil
		}
		current = step(current, segment)
	}
	return current
}

// step resolves a single path segment against the current value.
func step(current any, segment string) any {
	if value, field, ok := strings.Cut(segment, "|"); ok {
		// Selector segment: scan a sequence for the element whose
		// field matches the value, string-compared.
		seq, isSeq := current.([]any)
		if !isSeq {
			slog.Debug("Data path selector over non-sequence", "segment", segment, "data_type", fmt.Sprintf("%T", current))
			return nil
		}
		for _, entry := range seq {
			m, isMap := entry.(map[string]any)
			if !isMap {
				continue
			}
			if fmt.Sprint(m[field]) == value {
				return entry
			}
		}
		return nil
	}

	m, isMap := current.(map[string]any)
	if !isMap {
		slog.Debug("Data path key over non-mapping", "segment", segment, "data_type", fmt.Sprintf("%T", current))
		return nil
	}
	return m[segment]
}
