package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/goliatone/go-formflow/pkg/capability"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/visibility/celexpr"
)

type severity string

const (
	severityError   severity = "error"
	severityWarning severity = "warning"
)

type violation struct {
	file     string
	location string
	severity severity
	message  string
}

func lintCommand() *cli.Command {
	return &cli.Command{
		Name:      "lint",
		Usage:     "Check schema files for errors and unsupported params",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Treat unsupported params as errors",
			},
		},
		Action: func(c *cli.Context) error {
			paths := c.Args().Slice()
			if len(paths) == 0 {
				return cli.Exit("lint: at least one schema file is required", 2)
			}
			var violations []violation
			for _, path := range paths {
				found, err := lintFile(path)
				if err != nil {
					return fmt.Errorf("lint %s: %w", path, err)
				}
				violations = append(violations, found...)
			}
			failed := report(c.App.ErrWriter, violations, c.Bool("strict"))
			if failed {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

// lintFile returns the problems found in one schema file. Read failures are
// returned as errors; schema problems as violations.
func lintFile(path string) ([]violation, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	doc, err := schema.NewDocument(schema.SourceFromFile(path), raw)
	if err != nil {
		return nil, fmt.Errorf("construct document: %w", err)
	}
	s, err := schema.ParseDocument(doc)
	if err != nil {
		return []violation{{file: path, location: "schema", severity: severityError, message: err.Error()}}, nil
	}

	evaluator, err := celexpr.ForSchema(s)
	if err != nil {
		return nil, err
	}

	var result []violation
	for _, category := range s.Categories {
		for _, param := range category.Params {
			location := category.Name + "." + param.Name
			if res := capability.Resolve(param); !res.Supported() {
				result = append(result, violation{file: path, location: location, severity: severityWarning, message: "unsupported: " + res.Reason})
			}
			if param.Visibility == nil {
				continue
			}
			if err := evaluator.Compile(param.Visibility.Condition); err != nil {
				result = append(result, violation{file: path, location: location + ".x-visibility", severity: severityError, message: err.Error()})
			}
		}
	}
	return result, nil
}

// report prints violations and reports whether any counts as a failure.
func report(w io.Writer, violations []violation, strict bool) bool {
	sort.Slice(violations, func(i, j int) bool {
		if violations[i].file == violations[j].file {
			if violations[i].location == violations[j].location {
				return violations[i].message < violations[j].message
			}
			return violations[i].location < violations[j].location
		}
		return violations[i].file < violations[j].file
	})
	failed := false
	for _, v := range violations {
		fmt.Fprintf(w, "%s: %s: %s -> %s\n", v.file, v.severity, v.location, v.message)
		if v.severity == severityError || strict {
			failed = true
		}
	}
	return failed
}
