package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/goliatone/go-formflow/internal/catalog"
	"github.com/goliatone/go-formflow/internal/config"
	"github.com/goliatone/go-formflow/internal/server"
	"github.com/goliatone/go-formflow/internal/store"
	"github.com/goliatone/go-formflow/internal/store/postgres"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the reference form backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "TOML configuration file",
				EnvVars: []string{"FORMFLOW_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Usage:   "HTTP listen address (default " + config.DefaultAddr + ")",
				EnvVars: []string{"FORMFLOW_ADDR"},
			},
			&cli.StringFlag{
				Name:    "schemas-dir",
				Usage:   "Directory of .json/.yaml form schemas",
				EnvVars: []string{"FORMFLOW_SCHEMAS_DIR"},
			},
			&cli.StringFlag{
				Name:    "openapi",
				Usage:   "OpenAPI document with x-form-schema operations",
				EnvVars: []string{"FORMFLOW_OPENAPI"},
			},
			&cli.StringFlag{
				Name:    "storage",
				Usage:   "Submission store (memory, postgres)",
				EnvVars: []string{"FORMFLOW_STORAGE"},
			},
			&cli.StringFlag{
				Name:    "dsn",
				Usage:   "PostgreSQL connection string",
				EnvVars: []string{"FORMFLOW_DSN", "DATABASE_URL"},
			},
		},
		Action: serve,
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("addr") {
		cfg.Server.Addr = c.String("addr")
	}
	if c.IsSet("schemas-dir") {
		cfg.Schemas.Dir = c.String("schemas-dir")
	}
	if c.IsSet("openapi") {
		cfg.Schemas.OpenAPI = c.String("openapi")
	}
	if c.IsSet("storage") {
		cfg.Storage.Driver = c.String("storage")
	}
	if c.IsSet("dsn") {
		cfg.Storage.DSN = c.String("dsn")
		if !c.IsSet("storage") {
			cfg.Storage.Driver = "postgres"
		}
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	return cfg, cfg.Validate()
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx := c.Context
	registry, err := buildCatalog(ctx, cfg.Schemas)
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer st.Close()

	router, err := server.NewRouter(server.RouterConfig{
		Catalog:     registry,
		Store:       st,
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      log.WithComponent("http"),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Infow("starting server",
			"addr", cfg.Server.Addr,
			"schemas", registry.IDs(),
			"storage", cfg.Storage.Driver,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-done:
		log.Infow("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Infow("server stopped")
	return nil
}

// buildCatalog loads schemas from the configured directory and OpenAPI
// document, or the bundled examples when neither is set.
func buildCatalog(ctx context.Context, cfg config.Schemas) (*catalog.Registry, error) {
	if cfg.Dir == "" && cfg.OpenAPI == "" {
		if !cfg.Examples {
			return catalog.New(), nil
		}
		return catalog.Examples()
	}

	registry := catalog.New()
	if cfg.Dir != "" {
		if err := registry.LoadFS(os.DirFS(cfg.Dir)); err != nil {
			return nil, fmt.Errorf("load schemas from %s: %w", cfg.Dir, err)
		}
	}
	if cfg.OpenAPI != "" {
		raw, err := os.ReadFile(cfg.OpenAPI)
		if err != nil {
			return nil, fmt.Errorf("read openapi document: %w", err)
		}
		if err := registry.LoadOpenAPI(ctx, cfg.OpenAPI, raw); err != nil {
			return nil, fmt.Errorf("load schemas from %s: %w", cfg.OpenAPI, err)
		}
	}
	return registry, nil
}

func openStore(ctx context.Context, cfg config.Storage) (store.Store, error) {
	switch cfg.Driver {
	case "postgres":
		st, err := postgres.Open(ctx, cfg.DSN, cfg.Migrate)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return st, nil
	default:
		return store.NewMemory(), nil
	}
}
