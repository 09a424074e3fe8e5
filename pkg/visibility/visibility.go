// Package visibility defines the seam through which opaque x-visibility
// conditions are evaluated. The form session decides when evaluation happens
// and how results apply; expression syntax belongs to the Evaluator.
package visibility

// Evaluator determines whether a field should be visible based on a rule
// string and the current form values plus host-supplied extras.
type Evaluator interface {
	Eval(fieldPath, rule string, ctx Context) (bool, error)
}

// Context provides inputs to an Evaluator. Values is a snapshot of the form
// data; Extras lets hosts inject context such as user roles or feature flags.
type Context struct {
	Values map[string]any
	Extras map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(fieldPath, rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(fieldPath, rule string, ctx Context) (bool, error) {
	return fn(fieldPath, rule, ctx)
}

// AlwaysVisible treats every rule as satisfied.
var AlwaysVisible Evaluator = EvaluatorFunc(func(string, string, Context) (bool, error) {
	return true, nil
})
