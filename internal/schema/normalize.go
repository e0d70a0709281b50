package schema

import (
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"
)

// ColumnList is an ordered list of column names. It decodes from either a
// native list or the bracketed text form `{a,b}` that PostgreSQL produces
// for arrays cast to text.
type ColumnList []string

// NormalizeColumns turns a foreign-key column list into plain ordered names.
//
// Lists are trimmed and stripped of empty elements. A string of the form
// `{a,"b",c}` is split on commas, and each element trimmed and unquoted once.
// Any other string is a single-element list. Everything else, including nil,
// yields an empty list. NormalizeColumns is idempotent.
func NormalizeColumns(v any) []string {
	switch val := v.(type) {
	case ColumnList:
		return normalizeList([]string(val))
	case []string:
		return normalizeList(val)
	case []any:
		strs := make([]string, 0, len(val))
		for _, e := range val {
			if s, ok := e.(string); ok {
				strs = append(strs, s)
			}
		}
		return normalizeList(strs)
	case string:
		return normalizeText(val)
	case *string:
		if val == nil {
			return []string{}
		}
		return normalizeText(*val)
	default:
		return []string{}
	}
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func normalizeText(s string) []string {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return normalizeList([]string{s})
	}

	parts := strings.Split(s[1:len(s)-1], ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len(p) >= 2 && p[0] == '"' && p[len(p)-1] == '"' {
			p = strings.TrimSpace(p[1 : len(p)-1])
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// UnmarshalJSON accepts a JSON array of strings or a single string.
func (c *ColumnList) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = NormalizeColumns(raw)
	return nil
}

// UnmarshalYAML accepts a YAML sequence or a scalar.
func (c *ColumnList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*c = NormalizeColumns(list)
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			*c = ColumnList{}
			return nil
		}
		*c = NormalizeColumns(value.Value)
	default:
		*c = ColumnList{}
	}
	return nil
}
