// Package server is the reference HTTP backend: schema catalog, option data,
// server-side validation and submission storage.
package server

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/goliatone/go-formflow/components/options"
	"github.com/goliatone/go-formflow/internal/catalog"
	"github.com/goliatone/go-formflow/internal/store"
	"github.com/goliatone/go-formflow/pkg/logger"
)

// RouterConfig holds the router dependencies.
type RouterConfig struct {
	// Catalog serves the form schemas.
	Catalog *catalog.Registry

	// Store persists accepted submissions.
	Store store.Store

	// Emails backs the uniqueness check. Defaults to DefaultEmails.
	Emails *EmailRegistry

	// Options are the option data endpoints. Defaults to options.Builtins.
	Options []*options.Component

	// CORSOrigins are allowed to call the API from a browser.
	CORSOrigins []string

	Logger *logger.Logger
}

// NewRouter creates the gin engine serving the form API.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("server: catalog is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("server: store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Options == nil {
		cfg.Options = options.Builtins()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(Recovery(cfg.Logger))
	router.Use(Trace())
	router.Use(Logger(cfg.Logger))
	router.Use(ErrorHandler(cfg.Logger))
	router.Use(CORS(cfg.CORSOrigins))

	h := NewHandlers(cfg.Catalog, cfg.Store, cfg.Emails, cfg.Logger)

	router.GET("/", h.Root)
	router.GET(OpenAPIPath, openAPIHandler())

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/schemas", h.ListSchemas)
		apiGroup.GET("/schemas/:id", h.GetSchema)

		apiGroup.GET("/validate/email", h.CheckEmail)
		apiGroup.POST("/validate", h.Validate)
		apiGroup.POST("/submit", h.Submit)

		apiGroup.GET("/submissions", h.Submissions)
		apiGroup.GET("/health", h.Health)
	}

	for _, component := range cfg.Options {
		path, err := component.RegisterGin(router, "")
		if err != nil {
			return nil, fmt.Errorf("server: register options: %w", err)
		}
		cfg.Logger.Debugw("options route registered", "path", path)
	}
	return router, nil
}
