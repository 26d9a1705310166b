package platform

import (
	"fmt"
	"strings"
)

// StringValues flattens a front-matter value into its non-empty string
// members. Scalars other than strings are ignored, as are nested maps.
func StringValues(v any) []string {
	switch val := v.(type) {
	case string:
		if s := strings.TrimSpace(val); s != "" {
			return []string{s}
		}
	case []string:
		out := make([]string, 0, len(val))
		for _, s := range val {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
		return out
	}
	return nil
}

// FieldValues returns StringValues for each field in order, concatenated.
func FieldValues(fm map[string]any, fields []string) []string {
	if fm == nil {
		return nil
	}
	var out []string
	for _, f := range fields {
		out = append(out, StringValues(fm[f])...)
	}
	return out
}

// NormalizeTag returns tag in "#name" form, or "" for blank input.
// Numeric YAML tags (e.g. `tags: [2024]`) are accepted via fmt.
func NormalizeTag(tag any) string {
	var s string
	switch v := tag.(type) {
	case string:
		s = v
	case nil:
		return ""
	default:
		s = fmt.Sprint(v)
	}
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "#")
	if s == "" {
		return ""
	}
	return "#" + s
}
