// Package form drives a single form session: field edits, dependent option
// cascades, visibility, and the two-phase validate-then-submit workflow.
//
// Session is a single-owner state object. Every event is a method call that
// mutates state synchronously and returns the Effects the host must run;
// nothing blocks and nothing runs concurrently with a transition. Runner
// wraps a Session in an event loop that executes effects against a Backend.
package form

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/api"
	"github.com/goliatone/go-formflow/pkg/capability"
	"github.com/goliatone/go-formflow/pkg/cascade"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/visibility"
)

// Session holds the state of one form: data, errors, cascade state and the
// workflow state. It is not safe for concurrent use.
type Session struct {
	formID    string
	schema    schema.FormSchema
	params    map[string]schema.Param
	category  map[string]string
	order     []string
	resolved  map[string]capability.Resolution
	cascade   *cascade.Controller
	evaluator visibility.Evaluator
	extras    map[string]any
	logger    *zap.Logger

	data    api.FormData
	errors  map[string]api.ValidationError
	hidden  map[string]bool
	visErrs map[string]error

	state   State
	message string
	result  any
	failure *SubmissionError
	cycle   uint64
	pending api.FormSubmission
}

// Option configures a Session.
type Option func(*Session)

// WithFormID sets the identifier sent as formId with validate and submit.
func WithFormID(id string) Option {
	return func(s *Session) { s.formID = id }
}

// WithEvaluator sets the visibility evaluator. Without one every field is
// visible.
func WithEvaluator(evaluator visibility.Evaluator) Option {
	return func(s *Session) { s.evaluator = evaluator }
}

// WithExtras passes host context to the visibility evaluator.
func WithExtras(extras map[string]any) Option {
	return func(s *Session) { s.extras = extras }
}

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSession creates a session over s with empty form data. The schema is
// expected to have been produced by schema.Parse or to satisfy schema.Check.
func NewSession(s schema.FormSchema, opts ...Option) *Session {
	session := &Session{
		schema:   s,
		params:   make(map[string]schema.Param),
		category: make(map[string]string),
		resolved: make(map[string]capability.Resolution),
		logger:   zap.NewNop(),
		data:     api.FormData{},
		errors:   make(map[string]api.ValidationError),
		hidden:   make(map[string]bool),
		visErrs:  make(map[string]error),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(session)
		}
	}
	session.logger = session.logger.With(zap.String("form_id", session.formID))

	for _, cat := range s.Categories {
		for _, param := range cat.Params {
			session.params[param.Name] = param
			session.category[param.Name] = cat.Name
			session.order = append(session.order, param.Name)
			res := capability.Resolve(param)
			session.resolved[param.Name] = res
			if !res.Supported() {
				session.logger.Warn("unsupported param", zap.String("field", param.Name), zap.String("reason", res.Reason))
			}
		}
	}
	session.cascade = cascade.New(s, cascade.WithLogger(session.logger))
	return session
}

// FormID returns the form identifier.
func (s *Session) FormID() string { return s.formID }

// Schema returns the schema the session was built from.
func (s *Session) Schema() schema.FormSchema { return s.schema }

// State returns the workflow state.
func (s *Session) State() State { return s.state }

// Start initialises cascades and visibility. It returns fetches for remote
// enums and for dependents whose parents already hold values.
func (s *Session) Start() []Effect {
	fetches := s.cascade.Start(s.data)
	s.evaluateVisibility()
	return fetchEffects(fetches)
}

// Edit sets the value of a field. nil and empty strings clear it. The field's
// error is cleared, a Success or Failed display state returns to Idle, and
// dependents are cascaded. Rejected edits leave the session unchanged.
func (s *Session) Edit(name string, value any) ([]Effect, error) {
	param, ok := s.params[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	res := s.resolved[name]
	if !res.Supported() {
		return nil, fmt.Errorf("%w: %s: %s", ErrUnsupported, name, res.Reason)
	}
	if !s.cascade.Interactive(name) {
		return nil, fmt.Errorf("%w: %s", ErrNotInteractive, name)
	}

	normalized, err := normalize(param, res.Capability, s.options(param), value)
	if err != nil {
		return nil, err
	}
	if normalized == nil {
		delete(s.data, name)
	} else {
		s.data[name] = normalized
	}
	return s.changed(name), nil
}

// Toggle adds option to a multi-choice field, or removes it when already
// selected. Exceeding the selection limit is rejected with ErrMaxSelections.
func (s *Session) Toggle(name, option string) ([]Effect, error) {
	param, ok := s.params[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	if s.resolved[name].Capability != capability.MultiChoice {
		return nil, fmt.Errorf("%w: %s is not a multi-choice field", ErrInvalidValue, param.Name)
	}
	current, _ := s.data[name].([]string)
	next := slices.Clone(current)
	if idx := slices.Index(next, option); idx >= 0 {
		next = slices.Delete(next, idx, idx+1)
	} else {
		next = append(next, option)
	}
	return s.Edit(name, next)
}

func (s *Session) changed(name string) []Effect {
	delete(s.errors, name)
	if s.state == Success || s.state == Failed {
		s.state = Idle
		s.message = ""
		s.failure = nil
	}
	upd := s.cascade.Observe(s.data, name)
	for _, cleared := range upd.Cleared {
		delete(s.errors, cleared)
	}
	s.evaluateVisibility()
	return fetchEffects(upd.Fetches)
}

// OptionsResolved applies the outcome of a FetchOptions effect. It reports
// whether the result was applied; stale results are dropped.
func (s *Session) OptionsResolved(fetch cascade.Fetch, options []schema.EnumValue, err error) bool {
	return s.cascade.Resolve(fetch, options, err)
}

// RetryOptions reissues a failed option load.
func (s *Session) RetryOptions(name string) []Effect {
	fetch, ok := s.cascade.Retry(s.data, name)
	if !ok {
		return nil
	}
	return []Effect{{Kind: FetchOptions, Fetch: fetch}}
}

// SubmitIntent starts a validate-then-submit cycle. It is ignored (nil
// effects) while a cycle is already in flight.
func (s *Session) SubmitIntent() []Effect {
	if !s.state.AtRest() {
		s.logger.Debug("submit intent ignored", zap.Stringer("state", s.state))
		return nil
	}
	clear(s.errors)
	s.message = ""
	s.failure = nil
	s.result = nil
	s.state = Validating
	s.cycle++
	s.pending = api.FormSubmission{FormID: s.formID, Data: s.payload()}
	return []Effect{{Kind: Validate, Cycle: s.cycle, Submission: s.pending}}
}

// ValidateResolved applies the validate outcome. When valid it moves to
// Submitting and returns the Submit effect for the same payload.
func (s *Session) ValidateResolved(cycle uint64, resp api.ValidationResponse, err error) []Effect {
	if cycle != s.cycle || s.state != Validating {
		s.logger.Debug("stale validate result dropped", zap.Uint64("cycle", cycle))
		return nil
	}
	if err != nil {
		s.fail(&SubmissionError{Message: MessageSubmitError, Err: err})
		return nil
	}
	if !resp.Valid {
		s.attachErrors(resp.Errors)
		s.message = MessageCorrectErrors
		s.state = Idle
		return nil
	}
	s.state = Submitting
	return []Effect{{Kind: Submit, Cycle: s.cycle, Submission: s.pending}}
}

// SubmitResolved applies the submit outcome. Success resets the form; a
// reported failure or transport error keeps the data.
func (s *Session) SubmitResolved(cycle uint64, resp api.SubmissionResponse, err error) {
	if cycle != s.cycle || s.state != Submitting {
		s.logger.Debug("stale submit result dropped", zap.Uint64("cycle", cycle))
		return
	}
	if err != nil {
		s.fail(&SubmissionError{Message: MessageSubmitError, Err: err})
		return
	}
	if !resp.Success {
		message := resp.Message
		if message == "" {
			message = MessageSubmitError
		}
		s.attachErrors(errorsFromPayload(resp.Data))
		s.fail(&SubmissionError{Reported: true, Message: message})
		return
	}

	s.clearForm()
	s.state = Success
	s.message = resp.Message
	if s.message == "" {
		s.message = MessageSubmitted
	}
	s.result = resp.Data
	s.logger.Info("form submitted")
}

func (s *Session) fail(failure *SubmissionError) {
	s.state = Failed
	s.message = failure.Message
	s.failure = failure
	s.logger.Warn("form submission failed", zap.Bool("reported", failure.Reported), zap.Error(failure))
}

// Reset discards form data, errors and messages, returns dependents to Empty
// and abandons any in-flight cycle.
func (s *Session) Reset() {
	s.clearForm()
	s.state = Idle
	s.message = ""
	s.result = nil
	s.failure = nil
	s.cycle++
}

func (s *Session) clearForm() {
	s.data = api.FormData{}
	clear(s.errors)
	s.cascade.Reset()
	s.evaluateVisibility()
}

func (s *Session) attachErrors(errs []api.ValidationError) {
	for _, verr := range errs {
		s.errors[verr.Field] = verr
	}
}

// payload is the data to submit: visible fields only.
func (s *Session) payload() api.FormData {
	out := s.data.Clone()
	for name, hidden := range s.hidden {
		if hidden {
			delete(out, name)
		}
	}
	return out
}

func (s *Session) options(param schema.Param) []schema.EnumValue {
	if s.cascade.Manages(param.Name) {
		return s.cascade.Options(param.Name)
	}
	if content, ok := param.Content.(*schema.EnumContent); ok {
		return content.Values
	}
	return nil
}

func (s *Session) evaluateVisibility() {
	clear(s.hidden)
	clear(s.visErrs)
	if s.evaluator == nil {
		return
	}
	ctx := visibility.Context{Values: s.data.Clone(), Extras: s.extras}
	for _, name := range s.order {
		param := s.params[name]
		if param.Visibility == nil || param.Visibility.Condition == "" {
			continue
		}
		visible, err := s.evaluator.Eval(name, param.Visibility.Condition, ctx)
		if err != nil {
			s.visErrs[name] = err
			s.logger.Warn("visibility evaluation failed", zap.String("field", name), zap.Error(err))
			continue
		}
		s.hidden[name] = !visible
	}
}

// errorsFromPayload extracts {"errors": [...]} from a rejected submission.
func errorsFromPayload(data any) []api.ValidationError {
	body, ok := data.(map[string]any)
	if !ok {
		return nil
	}
	list, ok := body["errors"].([]any)
	if !ok {
		return nil
	}
	var out []api.ValidationError
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		field, _ := entry["field"].(string)
		if field == "" {
			continue
		}
		message, _ := entry["message"].(string)
		code, _ := entry["code"].(string)
		out = append(out, api.ValidationError{Field: field, Message: message, Code: code})
	}
	return out
}
