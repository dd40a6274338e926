package metadata

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// record is one entry of a document section together with its location,
// so every accessor can report a precise MalformedMetadataError.
type record struct {
	section string
	index   int
	id      string
	fields  map[string]any
}

func (r *record) fail(field, format string, args ...any) *MalformedMetadataError {
	return malformed(r.section, r.index, r.id, field, format, args...)
}

func (r *record) has(field string) bool {
	v, ok := r.fields[field]
	return ok && v != nil
}

func (r *record) requireString(field string) (string, error) {
	if !r.has(field) {
		return "", r.fail(field, "missing required field")
	}
	return r.optionalString(field)
}

func (r *record) optionalString(field string) (string, error) {
	v, ok := r.fields[field]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", r.fail(field, "expected string, got %s", typeName(v))
	}
	return strings.TrimSpace(s), nil
}

func (r *record) requireInt(field string) (int, error) {
	if !r.has(field) {
		return 0, r.fail(field, "missing required field")
	}
	n, ok := asInt(r.fields[field])
	if !ok {
		return 0, r.fail(field, "expected integer, got %s", typeName(r.fields[field]))
	}
	return n, nil
}

func (r *record) optionalInt(field string, def int) (int, error) {
	if !r.has(field) {
		return def, nil
	}
	return r.requireInt(field)
}

func (r *record) stringList(field string) ([]string, error) {
	v, ok := r.fields[field]
	if !ok || v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, r.fail(field, "expected list, got %s", typeName(v))
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, r.fail(field, "element %d: expected string, got %s", i, typeName(item))
		}
		out = append(out, strings.TrimSpace(s))
	}
	return out, nil
}

// asInt accepts the integer representations produced by the JSON and YAML
// decoders. Floats are accepted only when integral.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case uint64:
		if n > math.MaxInt32 {
			return 0, false
		}
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

// scalarString renders ints and strings uniformly, for fields such as
// "mode" and "family" that accept either.
func scalarString(v any) (string, bool) {
	if s, ok := v.(string); ok {
		return s, true
	}
	if n, ok := asInt(v); ok {
		return strconv.Itoa(n), true
	}
	return "", false
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int32, int64, uint64, float64:
		return "number"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
