package options

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Mux is satisfied by *http.ServeMux.
type Mux interface {
	Handle(pattern string, handler http.Handler)
}

// MountPath joins basePath and the configured route.
func MountPath(basePath string, fns ...OptionFn) string {
	opts := NewOptions(fns...)
	return mountPath(basePath, opts.RoutePath)
}

// RegisterRoutes registers a handler under basePath on mux.
func RegisterRoutes(mux Mux, basePath string, fns ...OptionFn) (string, error) {
	return RegisterRoutesWithOptions(mux, basePath, NewOptions(fns...))
}

// RegisterRoutesWithOptions registers a handler built from opts under
// basePath on mux and returns the pattern used.
func RegisterRoutesWithOptions(mux Mux, basePath string, opts Options) (string, error) {
	if mux == nil {
		return "", errors.New("options: missing mux")
	}
	opts = opts.withDefaults()
	pattern := mountPath(basePath, opts.RoutePath)
	mux.Handle(pattern, HandlerWithOptions(opts))
	return pattern, nil
}

// RegisterGin mounts the component on a gin router group for GET and HEAD.
func (c *Component) RegisterGin(routes gin.IRoutes, basePath string) (string, error) {
	if routes == nil {
		return "", errors.New("options: missing gin routes")
	}
	opts := c.Options()
	path := mountPath(basePath, opts.RoutePath)
	handler := gin.WrapH(HandlerWithOptions(opts))
	routes.GET(path, handler)
	routes.HEAD(path, handler)
	return path, nil
}

func mountPath(basePath, routePath string) string {
	basePath = strings.TrimSpace(basePath)
	routePath = strings.TrimSpace(routePath)

	if routePath == "" {
		routePath = "/"
	}
	if !strings.HasPrefix(routePath, "/") {
		routePath = "/" + routePath
	}
	if basePath == "" || basePath == "/" {
		return routePath
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	return strings.TrimRight(basePath, "/") + routePath
}
