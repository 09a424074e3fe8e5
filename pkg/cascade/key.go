package cascade

import (
	"fmt"
	"strconv"
	"strings"
)

// ParentKey normalises a parent value into the string used to look up static
// mappings, fill URL templates and guard against stale fetches. nil, empty
// strings and empty lists mean the parent has no value and yield "".
func ParentKey(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case []string:
		return strings.Join(typed, ",")
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			parts = append(parts, ParentKey(item))
		}
		return strings.Join(parts, ",")
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}

// Expand fills {name} placeholders in a source template with the keys of the
// named values, in the order names are given. Substitution is a single
// literal pass: inserted values are never rescanned, and placeholders not in
// names are left as is.
func Expand(template string, names []string, values map[string]string) string {
	pairs := make([]string, 0, 2*len(names))
	for _, name := range names {
		value, ok := values[name]
		if !ok {
			continue
		}
		pairs = append(pairs, "{"+name+"}", value)
	}
	if len(pairs) == 0 {
		return template
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
