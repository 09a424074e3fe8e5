package form

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/api"
	"github.com/goliatone/go-formflow/pkg/cascade"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// Backend performs the validate and submit exchanges.
type Backend interface {
	Validate(ctx context.Context, submission api.FormSubmission) (api.ValidationResponse, error)
	Submit(ctx context.Context, submission api.FormSubmission) (api.SubmissionResponse, error)
}

// ErrStopped is returned by Runner calls after Run has returned.
var ErrStopped = errors.New("form: runner stopped")

var errNoOptionSource = errors.New("form: no option source configured")

// Hooks are invoked on the runner goroutine after the corresponding
// transition. They must not call back into the Runner synchronously.
type Hooks struct {
	OnChange  func(Snapshot)
	OnSuccess func(result any)
	OnError   func(*SubmissionError)
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithHooks installs lifecycle hooks.
func WithHooks(hooks Hooks) RunnerOption {
	return func(r *Runner) { r.hooks = hooks }
}

// WithRunnerLogger sets the runner logger.
func WithRunnerLogger(logger *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

type event func()

// Runner owns a Session on a single goroutine. Host calls are posted as
// events; effects run on their own goroutines and post their results back, so
// every Session transition happens on the loop.
type Runner struct {
	session *Session
	backend Backend
	source  cascade.OptionSource
	hooks   Hooks
	logger  *zap.Logger

	events chan event
	done   chan struct{}
	ctx    context.Context

	// loop-owned
	inflight int
	waiters  []chan struct{}
}

// NewRunner wires a session to its backend and option source.
func NewRunner(session *Session, backend Backend, source cascade.OptionSource, opts ...RunnerOption) *Runner {
	r := &Runner{
		session: session,
		backend: backend,
		source:  source,
		logger:  zap.NewNop(),
		events:  make(chan event),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Run starts the session and processes events until ctx is cancelled. It
// must be called exactly once.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)
	r.ctx = ctx
	r.dispatch(r.session.Start())
	r.changed()
	r.release()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-r.events:
			ev()
			r.release()
		}
	}
}

// Edit sets a field value.
func (r *Runner) Edit(ctx context.Context, name string, value any) error {
	var editErr error
	err := r.do(ctx, func() {
		effects, err := r.session.Edit(name, value)
		if err != nil {
			editErr = err
			return
		}
		r.dispatch(effects)
		r.changed()
	})
	if err != nil {
		return err
	}
	return editErr
}

// Toggle flips one option of a multi-choice field.
func (r *Runner) Toggle(ctx context.Context, name, option string) error {
	var editErr error
	err := r.do(ctx, func() {
		effects, err := r.session.Toggle(name, option)
		if err != nil {
			editErr = err
			return
		}
		r.dispatch(effects)
		r.changed()
	})
	if err != nil {
		return err
	}
	return editErr
}

// Submit posts a submit intent. It reports false when the intent was ignored
// because a cycle is already in flight.
func (r *Runner) Submit(ctx context.Context) (bool, error) {
	var accepted bool
	err := r.do(ctx, func() {
		effects := r.session.SubmitIntent()
		accepted = len(effects) > 0
		r.dispatch(effects)
		r.changed()
	})
	return accepted, err
}

// Reset clears the form.
func (r *Runner) Reset(ctx context.Context) error {
	return r.do(ctx, func() {
		r.session.Reset()
		r.changed()
	})
}

// RetryOptions reloads a field whose options failed to load.
func (r *Runner) RetryOptions(ctx context.Context, name string) error {
	return r.do(ctx, func() {
		r.dispatch(r.session.RetryOptions(name))
		r.changed()
	})
}

// Snapshot returns the current session state.
func (r *Runner) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := r.do(ctx, func() { snap = r.session.Snapshot() })
	return snap, err
}

// Settle blocks until no effects are in flight.
func (r *Runner) Settle(ctx context.Context) error {
	idle := make(chan struct{})
	err := r.do(ctx, func() {
		r.waiters = append(r.waiters, idle)
	})
	if err != nil {
		return err
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return ErrStopped
	}
}

func (r *Runner) do(ctx context.Context, fn func()) error {
	reply := make(chan struct{})
	select {
	case r.events <- func() { fn(); close(reply) }:
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return ErrStopped
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return ErrStopped
	}
}

func (r *Runner) post(ev event) {
	select {
	case r.events <- ev:
	case <-r.done:
	}
}

func (r *Runner) release() {
	if r.inflight > 0 || len(r.waiters) == 0 {
		return
	}
	for _, waiter := range r.waiters {
		close(waiter)
	}
	r.waiters = nil
}

func (r *Runner) changed() {
	if r.hooks.OnChange != nil {
		r.hooks.OnChange(r.session.Snapshot())
	}
}

func (r *Runner) dispatch(effects []Effect) {
	for _, effect := range effects {
		r.inflight++
		go r.execute(effect)
	}
}

func (r *Runner) execute(effect Effect) {
	ctx := r.ctx
	switch effect.Kind {
	case FetchOptions:
		var (
			options []schema.EnumValue
			err     error
		)
		if r.source == nil {
			err = errNoOptionSource
		} else {
			options, err = r.source.FetchOptions(ctx, effect.Fetch)
		}
		r.post(func() {
			r.inflight--
			if r.session.OptionsResolved(effect.Fetch, options, err) {
				r.changed()
			}
		})

	case Validate:
		resp, err := r.backend.Validate(ctx, effect.Submission)
		r.post(func() {
			r.inflight--
			before := r.session.State()
			r.dispatch(r.session.ValidateResolved(effect.Cycle, resp, err))
			r.changed()
			if r.session.State() != before {
				r.report()
			}
		})

	case Submit:
		resp, err := r.backend.Submit(ctx, effect.Submission)
		r.post(func() {
			r.inflight--
			before := r.session.State()
			r.session.SubmitResolved(effect.Cycle, resp, err)
			r.changed()
			if r.session.State() != before {
				r.report()
			}
		})

	default:
		r.logger.Error("unknown effect", zap.Stringer("kind", effect.Kind))
		r.post(func() { r.inflight-- })
	}
}

// report fires the outcome hooks once a cycle has settled.
func (r *Runner) report() {
	switch r.session.State() {
	case Success:
		if r.hooks.OnSuccess != nil {
			r.hooks.OnSuccess(r.session.result)
		}
	case Failed:
		if r.hooks.OnError != nil && r.session.failure != nil {
			r.hooks.OnError(r.session.failure)
		}
	}
}
