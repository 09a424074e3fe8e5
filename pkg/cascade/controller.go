// Package cascade owns the option lifecycle of dependent choice fields and of
// remotely sourced enums: which parent value they were loaded for, what
// options are available, and whether a fetch result is still current.
package cascade

import (
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/api"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// parentPlaceholder is an alias for the first declared parent in source
// templates.
const parentPlaceholder = "parent"

// Status is the per-field cascade state.
type Status int

const (
	// Empty means the parent has no value. Options are empty.
	Empty Status = iota
	// Loading means a fetch for the current parent value is outstanding.
	Loading
	// Ready means options reflect the current parent value.
	Ready
	// Failed means the last fetch failed. Options are empty or the static
	// fallback.
	Failed
)

func (s Status) String() string {
	switch s {
	case Empty:
		return "empty"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Fetch describes an option load the host must perform and report back
// through Controller.Resolve. Token identifies the request; results carrying
// an outdated token are discarded.
type Fetch struct {
	Field       string
	Token       uint64
	ParentValue string
	URL         string
	CacheTTL    time.Duration
}

// LoadError records a failed option fetch. It is non-fatal: the field shows
// empty (or fallback) options and the rest of the form stays usable.
type LoadError struct {
	Field string
	URL   string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("cascade: load options for %s from %s: %v", e.Field, e.URL, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// State is a read-only view of one managed field.
type State struct {
	Field       string
	Status      Status
	ParentValue string
	Options     []schema.EnumValue
	Err         *LoadError
	Interactive bool
}

// Update lists what a parent change did: the child values it cleared and the
// fetches the host must now run.
type Update struct {
	Cleared []string
	Fetches []Fetch
}

type binding struct {
	name     string
	parents  []string
	mapping  map[string][]schema.EnumValue
	source   string
	reset    bool
	ttl      time.Duration
	fallback []schema.EnumValue
}

// remote reports an enum loaded from a source with no parent.
func (b *binding) remote() bool { return len(b.parents) == 0 }

type fieldState struct {
	status    Status
	parentKey string
	options   []schema.EnumValue
	token     uint64
	err       *LoadError
}

// Controller tracks every dependent choice field and remote enum of a schema.
// It is not safe for concurrent use; the owning session serialises calls.
type Controller struct {
	bindings map[string]*binding
	states   map[string]*fieldState
	order    []string
	children map[string][]string
	seq      uint64
	logger   *zap.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for fetch and discard events.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a controller for the dependent and remote fields of s. Only the
// first declared parent of a dependent field triggers reloads; the others are
// available as URL placeholders.
func New(s schema.FormSchema, opts ...Option) *Controller {
	c := &Controller{
		bindings: make(map[string]*binding),
		states:   make(map[string]*fieldState),
		children: make(map[string][]string),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	for _, param := range s.Params() {
		switch content := param.Content.(type) {
		case *schema.DependentEnumContent:
			if len(content.DependsOn) == 0 {
				continue
			}
			b := &binding{
				name:    param.Name,
				parents: slices.Clone([]string(content.DependsOn)),
				mapping: content.Mapping,
				source:  content.Source,
				reset:   content.ResetsOnParentChange(),
				ttl:     time.Duration(content.CacheDuration) * time.Second,
			}
			c.add(b)
			trigger := b.parents[0]
			c.children[trigger] = append(c.children[trigger], param.Name)
		case *schema.EnumContent:
			if content.Source == "" {
				continue
			}
			c.add(&binding{
				name:     param.Name,
				source:   content.Source,
				ttl:      time.Duration(content.CacheDuration) * time.Second,
				fallback: content.Values,
			})
		}
	}
	return c
}

func (c *Controller) add(b *binding) {
	c.bindings[b.name] = b
	c.states[b.name] = &fieldState{}
	c.order = append(c.order, b.name)
}

func (c *Controller) next() uint64 {
	c.seq++
	return c.seq
}

// Manages reports whether name is a field owned by the controller.
func (c *Controller) Manages(name string) bool {
	_, ok := c.bindings[name]
	return ok
}

// Start initialises every field against data, issuing loads for remote enums
// and for dependents whose parents are already set. Existing child values are
// kept.
func (c *Controller) Start(data api.FormData) []Fetch {
	var fetches []Fetch
	for _, name := range c.order {
		b := c.bindings[name]
		if b.remote() {
			st := c.states[name]
			st.token = c.next()
			st.status = Loading
			st.options = slices.Clone(b.fallback)
			st.err = nil
			fetches = append(fetches, c.fetch(b, st, data))
			continue
		}
		if fetch, ok := c.load(data, b, ParentKey(data[b.parents[0]])); ok {
			fetches = append(fetches, fetch)
		}
	}
	return fetches
}

// Observe reacts to a change of the named field. Dependents whose trigger
// parent now has a different value are cleared (when their reset policy says
// so) before any load starts, then reloaded. Clearing a child counts as a
// change of that child, so cascades run transitively.
func (c *Controller) Observe(data api.FormData, name string) Update {
	var upd Update
	queue := slices.Clone(c.children[name])
	for len(queue) > 0 {
		child := queue[0]
		queue = queue[1:]

		b := c.bindings[child]
		st := c.states[child]
		key := ParentKey(data[b.parents[0]])
		if key == st.parentKey {
			continue
		}

		if b.reset {
			if _, present := data[child]; present {
				delete(data, child)
				upd.Cleared = append(upd.Cleared, child)
				queue = append(queue, c.children[child]...)
			}
		}
		if fetch, ok := c.load(data, b, key); ok {
			upd.Fetches = append(upd.Fetches, fetch)
		}
	}
	return upd
}

func (c *Controller) load(data api.FormData, b *binding, key string) (Fetch, bool) {
	st := c.states[b.name]
	st.token = c.next()
	st.parentKey = key
	st.err = nil

	if key == "" {
		st.status = Empty
		st.options = nil
		return Fetch{}, false
	}
	if options, ok := b.mapping[key]; ok {
		st.status = Ready
		st.options = slices.Clone(options)
		return Fetch{}, false
	}
	if b.source == "" {
		st.status = Ready
		st.options = nil
		return Fetch{}, false
	}
	st.status = Loading
	st.options = nil
	return c.fetch(b, st, data), true
}

func (c *Controller) fetch(b *binding, st *fieldState, data api.FormData) Fetch {
	names := slices.Clone(b.parents)
	values := make(map[string]string, len(b.parents)+1)
	for _, parent := range b.parents {
		values[parent] = ParentKey(data[parent])
	}
	if _, declared := values[parentPlaceholder]; !declared && len(b.parents) > 0 {
		names = append(names, parentPlaceholder)
		values[parentPlaceholder] = values[b.parents[0]]
	}
	f := Fetch{
		Field:       b.name,
		Token:       st.token,
		ParentValue: st.parentKey,
		URL:         Expand(b.source, names, values),
		CacheTTL:    b.ttl,
	}
	c.logger.Debug("cascade fetch issued",
		zap.String("field", f.Field),
		zap.Uint64("token", f.Token),
		zap.String("parent_value", f.ParentValue),
		zap.String("url", f.URL),
	)
	return f
}

// Resolve applies the outcome of a fetch. It returns false and changes
// nothing when the fetch is no longer current, which is the case whenever the
// parent changed (or the form was reset) after the fetch was issued.
func (c *Controller) Resolve(f Fetch, options []schema.EnumValue, err error) bool {
	st, ok := c.states[f.Field]
	if !ok || st.status != Loading || st.token != f.Token || st.parentKey != f.ParentValue {
		c.logger.Debug("cascade fetch discarded",
			zap.String("field", f.Field),
			zap.Uint64("token", f.Token),
			zap.String("parent_value", f.ParentValue),
		)
		return false
	}
	b := c.bindings[f.Field]
	if err != nil {
		st.status = Failed
		st.options = slices.Clone(b.fallback)
		st.err = &LoadError{Field: f.Field, URL: f.URL, Err: err}
		c.logger.Warn("cascade fetch failed", zap.String("field", f.Field), zap.String("url", f.URL), zap.Error(err))
		return true
	}
	st.status = Ready
	st.options = slices.Clone(options)
	return true
}

// Retry reissues the load of a Failed field for its current parent value.
func (c *Controller) Retry(data api.FormData, name string) (Fetch, bool) {
	b, ok := c.bindings[name]
	if !ok || c.states[name].status != Failed {
		return Fetch{}, false
	}
	if b.remote() {
		st := c.states[name]
		st.token = c.next()
		st.status = Loading
		st.err = nil
		return c.fetch(b, st, data), true
	}
	return c.load(data, b, ParentKey(data[b.parents[0]]))
}

// Reset returns every dependent field to Empty and invalidates its
// outstanding fetches. Remote enums keep their options since they do not
// depend on form data.
func (c *Controller) Reset() {
	for _, name := range c.order {
		if c.bindings[name].remote() {
			continue
		}
		st := c.states[name]
		st.token = c.next()
		st.status = Empty
		st.parentKey = ""
		st.options = nil
		st.err = nil
	}
}

// State returns a view of the named field.
func (c *Controller) State(name string) (State, bool) {
	st, ok := c.states[name]
	if !ok {
		return State{}, false
	}
	b := c.bindings[name]
	return State{
		Field:       name,
		Status:      st.status,
		ParentValue: st.parentKey,
		Options:     slices.Clone(st.options),
		Err:         st.err,
		Interactive: c.interactive(b, st),
	}, true
}

// States returns views of every managed field in declaration order.
func (c *Controller) States() []State {
	out := make([]State, 0, len(c.order))
	for _, name := range c.order {
		state, _ := c.State(name)
		out = append(out, state)
	}
	return out
}

// Interactive reports whether the field may be edited. Dependents are locked
// while their parent has no value or while loading. Unmanaged fields are
// always interactive.
func (c *Controller) Interactive(name string) bool {
	st, ok := c.states[name]
	if !ok {
		return true
	}
	return c.interactive(c.bindings[name], st)
}

func (c *Controller) interactive(b *binding, st *fieldState) bool {
	if b.remote() {
		return true
	}
	return st.parentKey != "" && st.status != Loading
}

// Options returns the current options of a managed field.
func (c *Controller) Options(name string) []schema.EnumValue {
	st, ok := c.states[name]
	if !ok {
		return nil
	}
	return slices.Clone(st.options)
}
