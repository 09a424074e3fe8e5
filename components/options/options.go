package options

import (
	"net/http"
	"strconv"
)

const (
	defaultRoutePath = "/api/options"
	defaultLimit     = 200
	defaultMaxLimit  = 1000

	searchParam = "q"
	limitParam  = "limit"
)

// GuardFunc authorises a request before the dataset is consulted. Returning a
// StatusError picks the response code; any other error answers 403.
type GuardFunc func(r *http.Request) error

// Options configures one options endpoint.
type Options struct {
	RoutePath string
	// ParentParam names the query parameter carrying the parent value.
	// When set, requests without it are rejected with 400.
	ParentParam string
	MaxLimit    int
	// Envelope wraps responses as {"data": [...]}.
	Envelope bool
	Guard    GuardFunc
	Dataset  Dataset
}

type OptionFn func(*Options)

// NewOptions applies fns over the defaults.
func NewOptions(fns ...OptionFn) Options {
	var opts Options
	for _, fn := range fns {
		if fn != nil {
			fn(&opts)
		}
	}
	return opts.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.RoutePath == "" {
		o.RoutePath = defaultRoutePath
	}
	if o.MaxLimit <= 0 {
		o.MaxLimit = defaultMaxLimit
	}
	return o
}

// limitFor resolves the limit query value. Missing or malformed values use
// the default; everything is capped at MaxLimit.
func (o Options) limitFor(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	return min(limit, o.MaxLimit)
}

func WithRoutePath(path string) OptionFn {
	return func(o *Options) { o.RoutePath = path }
}

func WithParentParam(name string) OptionFn {
	return func(o *Options) { o.ParentParam = name }
}

func WithMaxLimit(limit int) OptionFn {
	return func(o *Options) { o.MaxLimit = limit }
}

func WithEnvelope(enabled bool) OptionFn {
	return func(o *Options) { o.Envelope = enabled }
}

func WithGuard(guard GuardFunc) OptionFn {
	return func(o *Options) { o.Guard = guard }
}

func WithDataset(dataset Dataset) OptionFn {
	return func(o *Options) { o.Dataset = dataset }
}
