// Package pathutil provides dotted-path addressing over trees of maps and
// lists. A literal dot inside a field name is written escaped ("a\.b") so it
// cannot be confused with a path separator.
package pathutil

import (
	"strconv"
	"strings"
)

// Separator separates path segments
const Separator = "."

// escape marks a literal dot inside a segment
const escape = `\.`

// Split breaks a dotted path into segments, restoring escaped dots
func Split(path string) []string {
	if path == "" {
		return nil
	}
	const placeholder = "\x00"
	escaped := strings.ReplaceAll(path, escape, placeholder)
	parts := strings.Split(escaped, Separator)
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(p, placeholder, Separator)
	}
	return parts
}

// Join builds a dotted path from segments, escaping literal dots
func Join(segments ...string) string {
	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = strings.ReplaceAll(s, Separator, escape)
	}
	return strings.Join(parts, Separator)
}

// Get resolves a dotted path against a tree of maps and lists.
// Numeric segments index into lists.
func Get(data map[string]any, path string) (any, bool) {
	segments := Split(path)
	if len(segments) == 0 {
		return nil, false
	}
	var current any = data
	for _, seg := range segments {
		switch node := current.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			current = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// Has reports whether a dotted path resolves
func Has(data map[string]any, path string) bool {
	_, ok := Get(data, path)
	return ok
}

// Set writes a value at a dotted path, creating intermediate maps as needed.
// An existing non-map intermediate value is replaced by a map.
func Set(data map[string]any, path string, value any) {
	segments := Split(path)
	if len(segments) == 0 {
		return
	}
	current := data
	for _, seg := range segments[:len(segments)-1] {
		next, ok := current[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[seg] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value
}

// Delete removes the value at a dotted path. Absent paths are a no-op.
func Delete(data map[string]any, path string) {
	segments := Split(path)
	if len(segments) == 0 {
		return
	}
	current := data
	for _, seg := range segments[:len(segments)-1] {
		next, ok := current[seg].(map[string]any)
		if !ok {
			return
		}
		current = next
	}
	delete(current, segments[len(segments)-1])
}

// DeepCopy clones a tree of maps, lists and scalars
func DeepCopy(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch node := v.(type) {
	case map[string]any:
		return DeepCopy(node)
	case []any:
		out := make([]any, len(node))
		for i, item := range node {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}

// Merge deep-merges src into dst. Maps merge recursively; any other
// collision takes the src value.
func Merge(dst, src map[string]any) {
	for k, v := range src {
		if srcMap, ok := v.(map[string]any); ok {
			if dstMap, ok := dst[k].(map[string]any); ok {
				Merge(dstMap, srcMap)
				continue
			}
		}
		dst[k] = deepCopyValue(v)
	}
}
