package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/goliatone/go-formflow/pkg/client"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/tui"
	"github.com/goliatone/go-formflow/pkg/visibility/celexpr"
)

const defaultBackendURL = "http://localhost:8000"

func backendFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "url",
			Aliases: []string{"u"},
			Value:   defaultBackendURL,
			Usage:   "Form backend base URL",
			EnvVars: []string{"FORMFLOW_URL"},
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Per-request timeout (0 disables)",
		},
	}
}

func newClient(c *cli.Context) (*client.Client, error) {
	return client.New(c.String("url"),
		client.WithTimeout(c.Duration("timeout")),
		client.WithLogger(log.WithComponent("client").Zap()),
	)
}

func schemasCommand() *cli.Command {
	return &cli.Command{
		Name:  "schemas",
		Usage: "List the schemas served by a backend",
		Flags: backendFlags(),
		Action: func(c *cli.Context) error {
			cl, err := newClient(c)
			if err != nil {
				return err
			}
			refs, err := cl.ListSchemas(c.Context)
			if err != nil {
				return err
			}
			return printSchemas(c.App.Writer, refs)
		},
	}
}

func printSchemas(w io.Writer, refs []client.SchemaRef) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tURL")
	for _, ref := range refs {
		fmt.Fprintf(tw, "%s\t%s\n", ref.ID, ref.URL)
	}
	return tw.Flush()
}

func fillCommand() *cli.Command {
	return &cli.Command{
		Name:      "fill",
		Usage:     "Fill and submit a form interactively",
		ArgsUsage: "SCHEMA_ID",
		Flags:     backendFlags(),
		Action: func(c *cli.Context) error {
			id := c.Args().First()
			if id == "" {
				return cli.Exit("fill: schema id is required", 2)
			}
			return fill(c, id)
		},
	}
}

func fill(c *cli.Context, id string) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cl, err := newClient(c)
	if err != nil {
		return err
	}
	health, err := cl.Health(ctx)
	if err != nil {
		return cli.Exit(fmt.Sprintf("fill: backend %s unavailable: %v", c.String("url"), err), 1)
	}
	if health.Status != "healthy" {
		log.Warnw("backend reports degraded health", "status", health.Status)
	}

	s, err := cl.GetSchema(ctx, id)
	if err != nil {
		if client.IsNotFound(err) {
			return cli.Exit(fmt.Sprintf("fill: unknown schema %q", id), 1)
		}
		return err
	}
	evaluator, err := celexpr.ForSchema(s)
	if err != nil {
		return err
	}

	zl := log.WithComponent("form").Zap()
	session := form.NewSession(s,
		form.WithFormID(id),
		form.WithEvaluator(evaluator),
		form.WithLogger(zl),
	)
	runner := form.NewRunner(session, cl, cl, form.WithRunnerLogger(zl))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = runner.Run(runCtx) }()

	snap, err := tui.New(tui.WithLogger(zl)).Fill(ctx, runner)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(snap.Result)
}
