package form

import (
	"maps"
	"slices"

	"github.com/goliatone/go-formflow/pkg/api"
	"github.com/goliatone/go-formflow/pkg/capability"
	"github.com/goliatone/go-formflow/pkg/cascade"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// Field is the render state of one param.
type Field struct {
	Param       schema.Param
	Category    string
	Capability  capability.Capability
	Unsupported string
	Value       any
	Options     []schema.EnumValue
	// Status is the cascade status for dependent and remote fields and
	// cascade.Ready for everything else.
	Status        cascade.Status
	Interactive   bool
	Visible       bool
	VisibilityErr error
	LoadErr       *cascade.LoadError
	Error         *api.ValidationError
}

// Snapshot is a copy of the session state safe to hand to other goroutines.
type Snapshot struct {
	FormID  string
	State   State
	Message string
	Data    api.FormData
	Errors  map[string]api.ValidationError
	Fields  []Field
	Result  any
	Failure *SubmissionError
}

// Field looks up a field by name.
func (s Snapshot) Field(name string) (Field, bool) {
	for _, field := range s.Fields {
		if field.Param.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		FormID:  s.formID,
		State:   s.state,
		Message: s.message,
		Data:    s.data.Clone(),
		Errors:  maps.Clone(s.errors),
		Fields:  make([]Field, 0, len(s.order)),
		Result:  s.result,
		Failure: s.failure,
	}
	for _, name := range s.order {
		param := s.params[name]
		res := s.resolved[name]
		field := Field{
			Param:         param,
			Category:      s.category[name],
			Capability:    res.Capability,
			Unsupported:   res.Reason,
			Value:         snap.Data[name],
			Options:       slices.Clone(s.options(param)),
			Status:        cascade.Ready,
			Interactive:   res.Supported(),
			Visible:       !s.hidden[name],
			VisibilityErr: s.visErrs[name],
		}
		if state, ok := s.cascade.State(name); ok {
			field.Status = state.Status
			field.Interactive = field.Interactive && state.Interactive
			field.LoadErr = state.Err
		}
		if verr, ok := s.errors[name]; ok {
			field.Error = &verr
		}
		snap.Fields = append(snap.Fields, field)
	}
	return snap
}
