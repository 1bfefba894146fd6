// Package workflow handles opaque workflow documents. The validator never
// interprets a document's contents; it only clones them, applies parameter
// edits at declared paths, and hands them to the sandbox.
package workflow

import (
	"fmt"
	"strconv"
	"strings"
)

// Document is a structured workflow description. Treated as opaque data:
// transforms always produce a new document rather than mutating the original,
// preserving the baseline for comparison.
type Document map[string]any

// Clone returns a structural deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return deepCopyMap(d)
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case Document:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}

// Get reads the value at a dotted path such as "config.parallelism".
// List elements are addressed by index ("steps.0.batch_size"). Paths are an
// explicit schema per known parameter; there is no recursive search.
func (d Document) Get(path string) (any, bool) {
	var cur any = map[string]any(d)
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = v
		case Document:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// GetInt reads an integer parameter, tolerating the float64 values JSON and
// YAML decoding produce.
func (d Document) GetInt(path string, def int) int {
	v, ok := d.Get(path)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	}
	return def
}

// GetString reads a string parameter.
func (d Document) GetString(path string, def string) string {
	v, ok := d.Get(path)
	if !ok {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

// Set returns a clone of the document with the value at the dotted path
// replaced. Intermediate maps are created as needed; the receiver is never
// modified. Setting through a list index requires the element to exist.
func (d Document) Set(path string, value any) (Document, error) {
	out := d.Clone()
	if out == nil {
		out = Document{}
	}
	parts := strings.Split(path, ".")

	var cur any = map[string]any(out)
	for i, part := range parts[:len(parts)-1] {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok || next == nil {
				created := map[string]any{}
				node[part] = created
				cur = created
				continue
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, fmt.Errorf("path %q: no element at %q", path, strings.Join(parts[:i+1], "."))
			}
			cur = node[idx]
		default:
			return nil, fmt.Errorf("path %q: %q is not a container", path, strings.Join(parts[:i], "."))
		}
	}

	last := parts[len(parts)-1]
	switch node := cur.(type) {
	case map[string]any:
		node[last] = value
	case []any:
		idx, err := strconv.Atoi(last)
		if err != nil || idx < 0 || idx >= len(node) {
			return nil, fmt.Errorf("path %q: no element at index %q", path, last)
		}
		node[idx] = value
	default:
		return nil, fmt.Errorf("path %q: parent is not a container", path)
	}
	return out, nil
}
