package options

import "net/http"

// Component bundles a dataset handler with its configuration and routing
// helpers.
type Component struct {
	opts Options
}

// New constructs a component with default options plus any overrides.
func New(fns ...OptionFn) *Component {
	opts := NewOptions(fns...)
	return &Component{opts: opts}
}

// Options returns a copy of the component configuration.
func (c *Component) Options() Options {
	if c == nil {
		return NewOptions()
	}
	return c.opts
}

// RoutePath returns the configured route.
func (c *Component) RoutePath() string {
	return c.Options().RoutePath
}

// Handler returns a net/http handler for option queries.
func (c *Component) Handler() http.Handler {
	if c == nil {
		return NewHandler()
	}
	return HandlerWithOptions(c.opts)
}

// RegisterRoutes registers the component handler under basePath on mux.
func (c *Component) RegisterRoutes(mux Mux, basePath string) (string, error) {
	if c == nil {
		return RegisterRoutes(mux, basePath)
	}
	return RegisterRoutesWithOptions(mux, basePath, c.opts)
}

// Builtins returns the demo country, city and subcategory components.
func Builtins() []*Component {
	return []*Component{
		New(WithRoutePath("/api/countries"), WithDataset(Countries())),
		New(WithRoutePath("/api/cities"), WithParentParam("country"), WithDataset(Cities())),
		New(WithRoutePath("/api/subcategories"), WithParentParam("parent"), WithDataset(Subcategories())),
	}
}
