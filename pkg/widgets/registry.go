package widgets

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-formflow/pkg/capability"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// Built-in widget identifiers exposed by the registry.
const (
	WidgetToggle   = "toggle"
	WidgetCheckbox = "checkbox"
	WidgetChips    = "chips"
	WidgetRadio    = "radio"
	WidgetSelect   = "select"
	WidgetSlider   = "slider"
	WidgetPassword = "password"
	WidgetTextarea = "textarea"
	WidgetDate     = "date"
	WidgetDateTime = "datetime"
	WidgetTime     = "time"
	WidgetNumber   = "number"
	WidgetText     = "text"
)

// Field is what matchers inspect: the declared param plus its resolved
// capability.
type Field struct {
	Param      schema.Param
	Capability capability.Capability
}

// FieldFor resolves the capability of param and wraps both.
func FieldFor(param schema.Param) Field {
	return Field{Param: param, Capability: capability.Of(param)}
}

// Matcher decides whether a widget should present the supplied field.
type Matcher func(field Field) bool

type rule struct {
	name     string
	priority int
	match    Matcher
	order    int
}

// Registry selects widgets for fields based on explicit hints or registered
// matchers. Higher priority wins; ties fall back to registration order. An
// empty registry never resolves a widget.
type Registry struct {
	mu    sync.RWMutex
	rules []rule
}

// NewRegistry constructs a registry with the built-in matchers registered.
func NewRegistry() *Registry {
	reg := &Registry{}
	reg.registerBuiltins()
	return reg
}

// Register adds a widget matcher. The latest registration of a duplicate name
// is still evaluated by priority like any other rule.
func (r *Registry) Register(name string, priority int, matcher Matcher) {
	if r == nil || matcher == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = append(r.rules, rule{
		name:     trimmed,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// Resolve returns the widget name for a field. An explicit x-ui-hints widget
// is honoured before matcher evaluation. Unsupported fields never resolve.
func (r *Registry) Resolve(field Field) (string, bool) {
	if field.Capability == capability.Unsupported {
		return "", false
	}
	if explicit := explicitWidget(field.Param); explicit != "" {
		return explicit, true
	}
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	if len(r.rules) == 0 {
		r.mu.RUnlock()
		return "", false
	}
	rules := append([]rule(nil), r.rules...)
	r.mu.RUnlock()
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(field) {
			return entry.name, true
		}
	}
	return "", false
}

// ResolveParam is Resolve(FieldFor(param)).
func (r *Registry) ResolveParam(param schema.Param) (string, bool) {
	return r.Resolve(FieldFor(param))
}

func explicitWidget(param schema.Param) string {
	if param.UIHints == nil {
		return ""
	}
	if widget, ok := param.UIHints["widget"].(string); ok {
		return strings.TrimSpace(widget)
	}
	return ""
}

func hint(param schema.Param, key string) string {
	if param.UIHints == nil {
		return ""
	}
	value, _ := param.UIHints[key].(string)
	return strings.TrimSpace(strings.ToLower(value))
}

func (r *Registry) registerBuiltins() {
	r.Register(WidgetToggle, 90, func(field Field) bool {
		return field.Capability == capability.Boolean && field.Param.Type == schema.ParamSwitch
	})

	r.Register(WidgetCheckbox, 85, func(field Field) bool {
		return field.Capability == capability.Boolean
	})

	r.Register(WidgetChips, 80, func(field Field) bool {
		return field.Capability == capability.MultiChoice
	})

	r.Register(WidgetRadio, 75, func(field Field) bool {
		if field.Capability != capability.SingleChoice {
			return false
		}
		if field.Param.Type == schema.ParamRadio {
			return true
		}
		enum, ok := field.Param.Content.(*schema.EnumContent)
		return ok && enum.Layout != ""
	})

	r.Register(WidgetSelect, 70, func(field Field) bool {
		return field.Capability == capability.SingleChoice || field.Capability == capability.DependentChoice
	})

	r.Register(WidgetSlider, 65, func(field Field) bool {
		return field.Capability == capability.Range
	})

	r.Register(WidgetPassword, 60, func(field Field) bool {
		return field.Capability == capability.Text && hint(field.Param, "inputType") == "password"
	})

	r.Register(WidgetTextarea, 55, func(field Field) bool {
		if field.Capability != capability.Text {
			return false
		}
		if field.Param.Type == schema.ParamTextarea {
			return true
		}
		str, ok := field.Param.Content.(*schema.StringContent)
		return ok && str.Multiline
	})

	for _, kind := range []struct {
		widget  string
		content schema.ContentType
	}{
		{WidgetDate, schema.ContentDate},
		{WidgetDateTime, schema.ContentDateTime},
		{WidgetTime, schema.ContentTime},
	} {
		r.Register(kind.widget, 50, func(field Field) bool {
			date, ok := field.Param.Content.(*schema.DateContent)
			return ok && field.Capability == capability.DateTime && date.ContentType() == kind.content
		})
	}

	r.Register(WidgetNumber, 40, func(field Field) bool {
		return field.Capability == capability.Number
	})

	r.Register(WidgetText, 10, func(field Field) bool {
		return field.Capability == capability.Text
	})
}
