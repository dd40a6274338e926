package metadata

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ohler55/ojg/oj"
	"gopkg.in/yaml.v2"
)

// Format is the serialization of a metadata document.
type Format string

const (
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml", "yml" and "auto".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown metadata format %q", s)
}

// Decode deserializes a metadata document into the generic map the parser
// consumes. FormatAuto treats input starting with '{' as JSON and anything
// else as YAML.
func Decode(data []byte, format Format) (map[string]any, error) {
	if format == FormatAuto {
		format = sniff(data)
	}

	var v any
	switch format {
	case FormatJSON:
		parsed, err := oj.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("decode json metadata: %w", err)
		}
		v = parsed
	case FormatYAML:
		var parsed any
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("decode yaml metadata: %w", err)
		}
		norm, err := normalize(parsed)
		if err != nil {
			return nil, fmt.Errorf("decode yaml metadata: %w", err)
		}
		v = norm
	default:
		return nil, fmt.Errorf("unknown metadata format %q", format)
	}

	m, ok := v.(map[string]any)
	if !ok {
		return nil, malformed("", -1, "", "", "document root must be an object, got %s", typeName(v))
	}
	return m, nil
}

func sniff(data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatYAML
}

// normalize converts the map[interface{}]interface{} values yaml.v2
// produces into map[string]any, recursively.
func normalize(v any) (any, error) {
	switch t := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string key %v", k)
			}
			nv, err := normalize(val)
			if err != nil {
				return nil, err
			}
			out[ks] = nv
		}
		return out, nil
	case map[string]any:
		for k, val := range t {
			nv, err := normalize(val)
			if err != nil {
				return nil, err
			}
			t[k] = nv
		}
		return t, nil
	case []any:
		for i, val := range t {
			nv, err := normalize(val)
			if err != nil {
				return nil, err
			}
			t[i] = nv
		}
		return t, nil
	}
	return v, nil
}
