package server

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/api"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// Validation error codes.
const (
	CodeRequired      = "required"
	CodeMinLength     = "minLength"
	CodeMaxLength     = "maxLength"
	CodePattern       = "pattern"
	CodeType          = "type"
	CodeMin           = "min"
	CodeMax           = "max"
	CodeRange         = "range"
	CodeStep          = "step"
	CodeMaxSelections = "maxSelections"
)

// Validator checks submitted data against a schema. Compiled patterns are
// cached; patterns that do not compile are skipped.
type Validator struct {
	logger *zap.Logger

	mu       sync.Mutex
	patterns map[string]*regexp.Regexp
}

// NewValidator returns a Validator logging to logger.
func NewValidator(logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{logger: logger, patterns: make(map[string]*regexp.Regexp)}
}

// Validate returns the problems found in data, in param declaration order.
func (v *Validator) Validate(s schema.FormSchema, data api.FormData) []api.ValidationError {
	var errs []api.ValidationError
	for _, param := range s.Params() {
		value, present := data[param.Name]
		if !present || blank(value) {
			if param.Required {
				errs = append(errs, failure(param, CodeRequired, "%s is required", label(param)))
			}
			continue
		}
		if verr, ok := v.check(param, value); ok {
			errs = append(errs, verr)
		}
	}
	return errs
}

func (v *Validator) check(param schema.Param, value any) (api.ValidationError, bool) {
	switch content := param.Content.(type) {
	case *schema.StringContent:
		return v.checkString(param, content, value)
	case *schema.NumberContent:
		return checkNumber(param, content, value)
	case *schema.RangeContent:
		return checkRange(param, content, value)
	case *schema.EnumContent:
		if content.Multiple && content.MaxSelections > 0 {
			if n := selections(value); n > content.MaxSelections {
				return failure(param, CodeMaxSelections, "%s allows at most %d selections", label(param), content.MaxSelections), true
			}
		}
	}
	return api.ValidationError{}, false
}

func (v *Validator) checkString(param schema.Param, content *schema.StringContent, value any) (api.ValidationError, bool) {
	text, ok := value.(string)
	if !ok {
		text = fmt.Sprint(value)
	}
	length := utf8.RuneCountInString(text)
	if content.MinLength > 0 && length < content.MinLength {
		return failure(param, CodeMinLength, "%s must be at least %d characters", label(param), content.MinLength), true
	}
	if content.MaxLength > 0 && length > content.MaxLength {
		return failure(param, CodeMaxLength, "%s must be at most %d characters", label(param), content.MaxLength), true
	}
	if content.Pattern != "" {
		if re := v.pattern(content.Pattern); re != nil && !re.MatchString(text) {
			return failure(param, CodePattern, "%s has invalid format", label(param)), true
		}
	}
	return api.ValidationError{}, false
}

func checkNumber(param schema.Param, content *schema.NumberContent, value any) (api.ValidationError, bool) {
	num, ok := number(value)
	if !ok {
		return failure(param, CodeType, "%s must be a number", label(param)), true
	}
	if content.ContentType() == schema.ContentInteger && num != math.Trunc(num) {
		return failure(param, CodeType, "%s must be a whole number", label(param)), true
	}
	if content.Min != nil && num < *content.Min {
		return failure(param, CodeMin, "%s must be at least %s", label(param), formatFloat(*content.Min)), true
	}
	if content.Max != nil && num > *content.Max {
		return failure(param, CodeMax, "%s must be at most %s", label(param), formatFloat(*content.Max)), true
	}
	return api.ValidationError{}, false
}

func checkRange(param schema.Param, content *schema.RangeContent, value any) (api.ValidationError, bool) {
	var points []float64
	if num, ok := number(value); ok {
		points = []float64{num}
	} else if list, ok := value.([]any); ok && len(list) == 2 {
		for _, item := range list {
			num, ok := number(item)
			if !ok {
				return failure(param, CodeType, "%s must be a number", label(param)), true
			}
			points = append(points, num)
		}
		if points[0] > points[1] {
			return failure(param, CodeRange, "%s lower bound exceeds upper bound", label(param)), true
		}
	} else {
		return failure(param, CodeType, "%s must be a number", label(param)), true
	}

	for _, point := range points {
		if !content.Contains(point) {
			return failure(param, CodeRange, "%s must be between %s and %s", label(param), formatFloat(content.Min), formatFloat(content.Max)), true
		}
		if !content.OnStep(point) {
			return failure(param, CodeStep, "%s must be a multiple of %s from %s", label(param), formatFloat(content.StepOrDefault()), formatFloat(content.Min)), true
		}
	}
	return api.ValidationError{}, false
}

// pattern compiles expr with match-at-start semantics. A nil result means
// the expression is not supported by the regexp engine.
func (v *Validator) pattern(expr string) *regexp.Regexp {
	v.mu.Lock()
	defer v.mu.Unlock()
	if re, ok := v.patterns[expr]; ok {
		return re
	}
	re, err := regexp.Compile(`^(?:` + expr + `)`)
	if err != nil {
		v.logger.Warn("skipping pattern", zap.String("pattern", expr), zap.Error(err))
		re = nil
	}
	v.patterns[expr] = re
	return re
}

// failure builds an error, preferring a message from x-error-messages.
func failure(param schema.Param, code, format string, args ...any) api.ValidationError {
	message, ok := param.ErrorMessages[code]
	if !ok || message == "" {
		message = fmt.Sprintf(format, args...)
	}
	return api.ValidationError{Field: param.Name, Message: message, Code: code}
}

func label(param schema.Param) string {
	if param.Description != "" {
		return param.Description
	}
	return param.Name
}

func blank(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	case []any:
		return len(typed) == 0
	default:
		return false
	}
}

func number(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case int:
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

func selections(value any) int {
	switch typed := value.(type) {
	case []any:
		return len(typed)
	case []string:
		return len(typed)
	default:
		return 1
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
