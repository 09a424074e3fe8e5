package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/goliatone/go-formflow/internal/config"
	"github.com/goliatone/go-formflow/pkg/logger"
)

// log is configured by the app Before hook.
var log = logger.Nop()

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Errorw("application error", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "formflow",
		Usage: "Schema-driven forms: reference backend and terminal client",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   config.DefaultLogLevel,
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"FORMFLOW_LOG_LEVEL", "LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:    "log-dev",
				Usage:   "Human readable development logs",
				EnvVars: []string{"FORMFLOW_LOG_DEV"},
			},
		},
		Before: func(c *cli.Context) error {
			l, err := logger.New(logger.Config{
				Level:       c.String("log-level"),
				Development: c.Bool("log-dev"),
			})
			if err != nil {
				return fmt.Errorf("setup logger: %w", err)
			}
			log = l
			return nil
		},
		After: func(*cli.Context) error {
			_ = log.Sync()
			return nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			schemasCommand(),
			fillCommand(),
			lintCommand(),
		},
	}
}
