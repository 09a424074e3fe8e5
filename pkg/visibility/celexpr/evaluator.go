// Package celexpr evaluates visibility conditions written in the Common
// Expression Language.
//
// Conditions see three variables: data (the form values), extras (host
// context) and field (the param being evaluated). Every param name that is a
// legal CEL identifier is also declared as a top-level variable, so
// `country == 'FR'` and `data.country == 'FR'` are equivalent. Absent values
// evaluate as null.
package celexpr

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/visibility"
)

var reserved = map[string]struct{}{
	"data": {}, "extras": {}, "field": {},
	"true": {}, "false": {}, "null": {}, "in": {}, "as": {}, "break": {},
	"const": {}, "continue": {}, "else": {}, "for": {}, "function": {}, "if": {},
	"import": {}, "let": {}, "loop": {}, "package": {}, "namespace": {},
	"return": {}, "var": {}, "void": {}, "while": {},
}

// Evaluator compiles conditions once and caches the resulting programs. It is
// safe for concurrent use.
type Evaluator struct {
	env    *cel.Env
	fields []string

	mu       sync.RWMutex
	programs map[string]cel.Program
}

var _ visibility.Evaluator = (*Evaluator)(nil)

// New builds an evaluator declaring each of fields as a top-level variable.
func New(fields ...string) (*Evaluator, error) {
	opts := []cel.EnvOption{
		cel.Variable("data", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("extras", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("field", cel.StringType),
	}
	declared := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, name := range fields {
		if _, skip := reserved[name]; skip {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		declared = append(declared, name)
		opts = append(opts, cel.Variable(name, cel.DynType))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("visibility/celexpr: build environment: %w", err)
	}
	return &Evaluator{env: env, fields: declared, programs: make(map[string]cel.Program)}, nil
}

// ForSchema declares every param of s.
func ForSchema(s schema.FormSchema) (*Evaluator, error) {
	params := s.Params()
	names := make([]string, 0, len(params))
	for _, param := range params {
		names = append(names, param.Name)
	}
	return New(names...)
}

// Eval implements visibility.Evaluator. An empty rule is always satisfied.
func (e *Evaluator) Eval(fieldPath, rule string, ctx visibility.Context) (bool, error) {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return true, nil
	}
	prg, err := e.program(rule)
	if err != nil {
		return false, err
	}

	values := make(map[string]any, len(ctx.Values))
	for key, value := range ctx.Values {
		values[key] = value
	}
	extras := ctx.Extras
	if extras == nil {
		extras = map[string]any{}
	}
	activation := map[string]any{
		"data":   values,
		"extras": extras,
		"field":  fieldPath,
	}
	for _, name := range e.fields {
		activation[name] = values[name]
	}

	out, _, err := prg.Eval(activation)
	if err != nil {
		return false, fmt.Errorf("visibility/celexpr: evaluate %q for %s: %w", rule, fieldPath, err)
	}
	visible, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("visibility/celexpr: rule %q for %s returned %s, want bool", rule, fieldPath, out.Type().TypeName())
	}
	return visible, nil
}

// Compile checks that rule is a valid condition without evaluating it.
func (e *Evaluator) Compile(rule string) error {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return nil
	}
	_, err := e.program(rule)
	return err
}

func (e *Evaluator) program(rule string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[rule]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, iss := e.env.Compile(rule)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("visibility/celexpr: compile %q: %w", rule, iss.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("visibility/celexpr: program %q: %w", rule, err)
	}

	e.mu.Lock()
	e.programs[rule] = prg
	e.mu.Unlock()
	return prg, nil
}
