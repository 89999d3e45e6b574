// Package statepath resolves dot-delimited paths against nested string-keyed
// documents. A path like "ac.temperature_c" names a leaf inside an arbitrarily
// nested map, and every operation here treats missing keys and non-map
// intermediates as ordinary, non-fatal conditions.
package statepath

import "strings"

// Document is a nested string-keyed mapping, the shape produced by
// unmarshaling a JSON object. State, telemetry, and patch payloads all use
// this type.
type Document = map[string]any

// Get walks doc along the dot-delimited path and returns the value at the
// leaf. The second return is false when any segment is missing or an
// intermediate value is not itself a map.
func Get(doc Document, path string) (any, bool) {
	if doc == nil {
		return nil, false
	}
	parts := strings.Split(path, ".")
	current := doc
	for i, part := range parts {
		value, ok := current[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return value, true
		}
		next, ok := value.(map[string]any)
		if !ok {
			return nil, false
		}
		current = next
	}
	return nil, false
}

// Set writes value at the dot-delimited path, creating intermediate maps as
// needed. An intermediate that exists but is not a map is replaced with a
// fresh map.
func Set(doc Document, path string, value any) {
	parts := strings.Split(path, ".")
	current := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

// Delete removes the leaf at the dot-delimited path. It returns true when a
// value was actually removed. Intact empty parent maps are left in place.
func Delete(doc Document, path string) bool {
	parts := strings.Split(path, ".")
	current := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			return false
		}
		current = next
	}
	leaf := parts[len(parts)-1]
	if _, ok := current[leaf]; !ok {
		return false
	}
	delete(current, leaf)
	return true
}

// BuildPatch returns the minimal document that carries value at the given
// dot-delimited path: a chain of single-key maps ending in the value.
func BuildPatch(path string, value any) Document {
	parts := strings.Split(path, ".")
	patch := Document{parts[len(parts)-1]: value}
	for i := len(parts) - 2; i >= 0; i-- {
		patch = Document{parts[i]: patch}
	}
	return patch
}

// Flatten converts a nested document into a flat map keyed by dot-delimited
// paths. Nested maps recurse; every other value, including slices, is treated
// as a leaf.
func Flatten(doc Document) map[string]any {
	flat := make(map[string]any)
	flattenInto(flat, doc, "")
	return flat
}

func flattenInto(flat map[string]any, doc map[string]any, prefix string) {
	for key, value := range doc {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			flattenInto(flat, nested, path)
			continue
		}
		flat[path] = value
	}
}

// Clone returns a deep copy of doc. Nested maps and slices are copied;
// scalar leaves are shared (they are immutable in JSON documents).
func Clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	return cloneValue(doc).(map[string]any)
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			out[key] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return value
	}
}

// Merge overlays current onto defaults and returns a new document. The
// defaults document drives the structure: where both sides hold a map the
// merge recurses, where current holds a non-nil value it wins, and keys
// present only in current are carried through unchanged.
func Merge(defaults, current Document) Document {
	merged := make(Document, len(defaults))
	for key, defaultValue := range defaults {
		currentValue, ok := current[key]
		if !ok {
			merged[key] = cloneValue(defaultValue)
			continue
		}
		merged[key] = mergeValue(defaultValue, currentValue)
	}
	for key, currentValue := range current {
		if _, ok := merged[key]; !ok {
			merged[key] = currentValue
		}
	}
	return merged
}

func mergeValue(defaultValue, currentValue any) any {
	if defaultMap, ok := defaultValue.(map[string]any); ok {
		currentMap, ok := currentValue.(map[string]any)
		if !ok {
			return cloneValue(defaultMap)
		}
		return Merge(defaultMap, currentMap)
	}
	if currentValue == nil {
		return cloneValue(defaultValue)
	}
	return currentValue
}
