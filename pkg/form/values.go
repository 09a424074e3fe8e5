package form

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/goliatone/go-formflow/pkg/capability"
	"github.com/goliatone/go-formflow/pkg/schema"
)

var (
	dateLayouts     = []string{time.DateOnly}
	dateTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"}
	timeLayouts     = []string{"15:04", time.TimeOnly}
)

// normalize coerces value into the canonical shape for the capability. A nil
// result means the field becomes empty and its key is removed.
func normalize(param schema.Param, capa capability.Capability, options []schema.EnumValue, value any) (any, error) {
	if isEmpty(value) {
		return nil, nil
	}
	switch capa {
	case capability.Text:
		str, ok := value.(string)
		if !ok {
			return nil, invalid(param, value)
		}
		return str, nil

	case capability.Number:
		num, ok := toFloat(value)
		if !ok {
			return nil, invalid(param, value)
		}
		if content, isNum := param.Content.(*schema.NumberContent); isNum && content.ContentType() == schema.ContentInteger && math.Trunc(num) != num {
			return nil, invalid(param, value)
		}
		return num, nil

	case capability.Boolean:
		flag, ok := value.(bool)
		if !ok {
			return nil, invalid(param, value)
		}
		return flag, nil

	case capability.SingleChoice, capability.DependentChoice:
		str, ok := value.(string)
		if !ok {
			return nil, invalid(param, value)
		}
		if err := checkOption(param, options, str); err != nil {
			return nil, err
		}
		return str, nil

	case capability.MultiChoice:
		selected, ok := toStrings(value)
		if !ok {
			return nil, invalid(param, value)
		}
		selected = lo.Uniq(selected)
		for _, item := range selected {
			if err := checkOption(param, options, item); err != nil {
				return nil, err
			}
		}
		if content, isEnum := param.Content.(*schema.EnumContent); isEnum && content.MaxSelections > 0 && len(selected) > content.MaxSelections {
			return nil, fmt.Errorf("%w: %s allows %d", ErrMaxSelections, param.Name, content.MaxSelections)
		}
		if len(selected) == 0 {
			return nil, nil
		}
		return selected, nil

	case capability.DateTime:
		str, ok := value.(string)
		if !ok {
			return nil, invalid(param, value)
		}
		if !parsesAs(str, layoutsFor(param)) {
			return nil, invalid(param, value)
		}
		return str, nil

	case capability.Range:
		content, _ := param.Content.(*schema.RangeContent)
		if num, ok := toFloat(value); ok {
			if content != nil && !content.Contains(num) {
				return nil, fmt.Errorf("%w: %s must be between %v and %v", ErrInvalidValue, param.Name, content.Min, content.Max)
			}
			return num, nil
		}
		pair, ok := toFloats(value)
		if !ok || len(pair) != 2 || pair[0] > pair[1] {
			return nil, invalid(param, value)
		}
		if content != nil && (!content.Contains(pair[0]) || !content.Contains(pair[1])) {
			return nil, fmt.Errorf("%w: %s must be between %v and %v", ErrInvalidValue, param.Name, content.Min, content.Max)
		}
		return pair, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, param.Name)
}

func invalid(param schema.Param, value any) error {
	return fmt.Errorf("%w: %s got %T %v", ErrInvalidValue, param.Name, value, value)
}

func checkOption(param schema.Param, options []schema.EnumValue, value string) error {
	option, found := lo.Find(options, func(o schema.EnumValue) bool { return o.Value == value })
	if !found {
		return fmt.Errorf("%w: %s has no option %q", ErrUnknownOption, param.Name, value)
	}
	if option.Disabled {
		return fmt.Errorf("%w: %s option %q is disabled", ErrUnknownOption, param.Name, value)
	}
	return nil
}

func isEmpty(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return typed == ""
	default:
		return false
	}
}

func toFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case json.Number:
		f, err := typed.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toFloats(value any) ([]float64, bool) {
	switch typed := value.(type) {
	case []float64:
		return append([]float64(nil), typed...), true
	case []any:
		out := make([]float64, 0, len(typed))
		for _, item := range typed {
			f, ok := toFloat(item)
			if !ok {
				return nil, false
			}
			out = append(out, f)
		}
		return out, true
	default:
		return nil, false
	}
}

func toStrings(value any) ([]string, bool) {
	switch typed := value.(type) {
	case []string:
		return append([]string(nil), typed...), true
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	default:
		return nil, false
	}
}

func layoutsFor(param schema.Param) []string {
	content, ok := param.Content.(*schema.DateContent)
	if !ok {
		return dateLayouts
	}
	switch content.ContentType() {
	case schema.ContentDateTime:
		return dateTimeLayouts
	case schema.ContentTime:
		return timeLayouts
	default:
		return dateLayouts
	}
}

func parsesAs(value string, layouts []string) bool {
	return lo.SomeBy(layouts, func(layout string) bool {
		_, err := time.Parse(layout, value)
		return err == nil
	})
}
