// Package capability maps declared param types onto the fixed set of
// interaction behaviours a host knows how to drive.
package capability

import (
	"fmt"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// Capability is the interaction behaviour a param is driven with.
type Capability int

const (
	Unsupported Capability = iota
	Text
	Number
	SingleChoice
	MultiChoice
	DependentChoice
	Boolean
	DateTime
	Range
)

var names = map[Capability]string{
	Unsupported:     "unsupported",
	Text:            "text",
	Number:          "number",
	SingleChoice:    "single_choice",
	MultiChoice:     "multi_choice",
	DependentChoice: "dependent_choice",
	Boolean:         "boolean",
	DateTime:        "datetime",
	Range:           "range",
}

func (c Capability) String() string {
	if name, ok := names[c]; ok {
		return name
	}
	return fmt.Sprintf("capability(%d)", int(c))
}

// Choice reports whether the capability selects from an option list.
func (c Capability) Choice() bool {
	return c == SingleChoice || c == MultiChoice || c == DependentChoice
}

// Resolution is the outcome of resolving a param. Reason explains an
// Unsupported result.
type Resolution struct {
	Capability Capability
	Reason     string
}

// Supported reports whether the param can be interacted with.
func (r Resolution) Supported() bool {
	return r.Capability != Unsupported
}

var byType = map[schema.ParamType]Capability{
	schema.ParamTextField:     Text,
	schema.ParamTextarea:      Text,
	schema.ParamNumberField:   Number,
	schema.ParamList:          SingleChoice,
	schema.ParamRadio:         SingleChoice,
	schema.ParamMultiSelect:   MultiChoice,
	schema.ParamSubList:       DependentChoice,
	schema.ParamCheckbox:      Boolean,
	schema.ParamSwitch:        Boolean,
	schema.ParamDateField:     DateTime,
	schema.ParamDateTimeField: DateTime,
	schema.ParamTimeField:     DateTime,
	schema.ParamRange:         Range,
}

// Resolve maps a param to its capability. It is total: unknown type tags and
// content that does not fit the declared type yield Unsupported with a reason
// instead of an error, so one bad param never blocks the rest of a form.
func Resolve(param schema.Param) Resolution {
	capability, known := byType[param.Type]
	if !known {
		return unsupported("type %q is not supported", param.Type)
	}
	if param.Content == nil {
		return unsupported("param %q has no content", param.Name)
	}

	var fits bool
	switch param.Content.(type) {
	case *schema.StringContent:
		fits = capability == Text
	case *schema.NumberContent:
		fits = capability == Number
	case *schema.EnumContent:
		fits = capability == SingleChoice || capability == MultiChoice
	case *schema.DependentEnumContent:
		fits = capability == DependentChoice
	case *schema.BooleanContent:
		fits = capability == Boolean
	case *schema.DateContent:
		fits = capability == DateTime
	case *schema.RangeContent:
		fits = capability == Range
	}
	if !fits {
		return unsupported("type %q cannot use %s content", param.Type, param.Content.ContentType())
	}
	return Resolution{Capability: capability}
}

// Of is shorthand for Resolve(param).Capability.
func Of(param schema.Param) Capability {
	return Resolve(param).Capability
}

func unsupported(format string, args ...any) Resolution {
	return Resolution{Capability: Unsupported, Reason: fmt.Sprintf(format, args...)}
}
