package util

import (
	"encoding/json"
	"strconv"
	"strings"
)

// SafeJoin renders a value sequence as a single comma-separated string.
// Nil or empty input yields "".
func SafeJoin(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return strings.Join(values, ",")
}

// ToString coerces a decoded JSON value to its string form. Numbers keep
// their literal text when decoded with UseNumber, so code values like
// "99213" survive untruncated.
func ToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// ToStringSlice coerces a decoded JSON value to a string slice. Scalars
// become a one-element slice, arrays are coerced element-wise, anything
// else yields nil. Blank elements are dropped.
func ToStringSlice(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s := strings.TrimSpace(ToString(item))
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		s := strings.TrimSpace(ToString(v))
		if s == "" {
			return nil
		}
		return []string{s}
	}
}

func SanitizeFilename(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_")
	out := repl.Replace(input)
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}
