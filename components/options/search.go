package options

import (
	"slices"
	"strings"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// Search returns at most limit values whose label or value contains query,
// case insensitively. Prefix matches come first; dataset order is kept
// otherwise. An empty query returns the first limit values. The result is
// never nil.
func Search(values []schema.EnumValue, query string, limit int) []schema.EnumValue {
	q := strings.ToLower(strings.TrimSpace(query))
	var prefixed, contained []schema.EnumValue
	for _, value := range values {
		label := strings.ToLower(value.Label)
		code := strings.ToLower(value.Value)
		switch {
		case q == "" || strings.HasPrefix(label, q) || strings.HasPrefix(code, q):
			prefixed = append(prefixed, value)
		case strings.Contains(label, q) || strings.Contains(code, q):
			contained = append(contained, value)
		}
	}
	out := slices.Concat(prefixed, contained)
	if out == nil {
		out = []schema.EnumValue{}
	}
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
