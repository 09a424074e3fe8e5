// Package tui fills a form interactively on a terminal. The host walks the
// fields of a running form session, prompts for each through a PromptDriver,
// and drives the validate-then-submit workflow until the server accepts the
// submission.
package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/cascade"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/widgets"
)

// Runner is the subset of *form.Runner the host drives.
type Runner interface {
	Edit(ctx context.Context, name string, value any) error
	Submit(ctx context.Context) (bool, error)
	RetryOptions(ctx context.Context, name string) error
	Snapshot(ctx context.Context) (form.Snapshot, error)
	Settle(ctx context.Context) error
}

var _ Runner = (*form.Runner)(nil)

const defaultMaxAttempts = 3

// Host prompts for form fields and submits the result.
type Host struct {
	driver      PromptDriver
	widgets     *widgets.Registry
	theme       Theme
	maxAttempts int
	logger      *zap.Logger
}

// New constructs a Host with defaults (survey driver, built-in widgets).
func New(opts ...Option) *Host {
	h := &Host{
		widgets:     widgets.NewRegistry(),
		theme:       Theme{ErrorPrefix: "✗ ", SuccessPrefix: "✓ "},
		maxAttempts: defaultMaxAttempts,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.driver == nil {
		h.driver = NewSurveyDriver()
	}
	return h
}

// Fill prompts for every visible field, then submits. Fields rejected by the
// server are prompted again until the submission succeeds. A transport or
// reported failure asks whether to retry; declining returns
// ErrSubmissionFailed together with the final snapshot.
func (h *Host) Fill(ctx context.Context, r Runner) (form.Snapshot, error) {
	snap, err := h.settled(ctx, r)
	if err != nil {
		return snap, err
	}
	var only []string
	for {
		if err := h.promptFields(ctx, r, only); err != nil {
			return snap, err
		}

		snap, err = h.submit(ctx, r)
		if err != nil {
			return snap, err
		}

		switch snap.State {
		case form.Success:
			h.say(ctx, h.theme.SuccessPrefix+plainText(snap.Message))
			return snap, nil

		case form.Failed:
			h.say(ctx, h.theme.ErrorPrefix+plainText(snap.Message))
			h.reportErrors(ctx, snap)
			retry, err := h.driver.Confirm(ctx, ConfirmConfig{Message: "Retry submission?", Default: true})
			if err != nil {
				return snap, err
			}
			if !retry {
				return snap, fmt.Errorf("%w: %s", ErrSubmissionFailed, snap.Message)
			}
			only = erroredFields(snap)

		default:
			h.say(ctx, h.theme.ErrorPrefix+plainText(snap.Message))
			h.reportErrors(ctx, snap)
			only = erroredFields(snap)
			if len(only) == 0 {
				return snap, fmt.Errorf("%w: rejected without field errors", ErrSubmissionFailed)
			}
		}
	}
}

// promptFields prompts each field in declaration order. When only is non-nil
// just those fields are prompted.
func (h *Host) promptFields(ctx context.Context, r Runner, only []string) error {
	snap, err := h.settled(ctx, r)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(snap.Fields))
	for _, field := range snap.Fields {
		names = append(names, field.Param.Name)
	}
	if only != nil {
		only = withParents(snap, only)
	}

	for _, name := range names {
		if only != nil && !slices.Contains(only, name) {
			continue
		}
		// Earlier answers may have changed visibility or loaded options.
		snap, err = h.settled(ctx, r)
		if err != nil {
			return err
		}
		field, ok := snap.Field(name)
		if !ok || !field.Visible {
			continue
		}
		if field.Unsupported != "" {
			h.say(ctx, fmt.Sprintf("%sSkipping %s: %s", h.theme.InfoPrefix, h.label(field), field.Unsupported))
			continue
		}
		if field.Status == cascade.Failed {
			field, err = h.retryLoad(ctx, r, field)
			if err != nil {
				return err
			}
		}
		if !field.Interactive {
			h.logger.Debug("field not interactive", zap.String("field", name), zap.Stringer("status", field.Status))
			continue
		}
		if noChoices(field) {
			h.say(ctx, fmt.Sprintf("%sNo options available for %s", h.theme.InfoPrefix, h.label(field)))
			continue
		}
		if err := h.promptField(ctx, r, field); err != nil {
			return err
		}
	}
	return nil
}

// noChoices reports a choice field with nothing selectable, such as a
// dependent field whose parent value maps to an empty option list.
func noChoices(field form.Field) bool {
	if !field.Capability.Choice() {
		return false
	}
	return !slices.ContainsFunc(field.Options, func(option schema.EnumValue) bool { return !option.Disabled })
}

// withParents adds the parents of dependent fields in names that have no
// choices, transitively, so that a new parent answer can load options.
func withParents(snap form.Snapshot, names []string) []string {
	out := slices.Clone(names)
	for i := 0; i < len(out); i++ {
		field, ok := snap.Field(out[i])
		if !ok || !noChoices(field) {
			continue
		}
		content, ok := field.Param.Content.(*schema.DependentEnumContent)
		if !ok {
			continue
		}
		for _, parent := range content.DependsOn {
			if !slices.Contains(out, parent) {
				out = append(out, parent)
			}
		}
	}
	return out
}

func (h *Host) promptField(ctx context.Context, r Runner, field form.Field) error {
	if field.Error != nil {
		h.say(ctx, h.theme.ErrorPrefix+plainText(field.Error.Message))
	}
	for attempt := 0; attempt < h.maxAttempts; attempt++ {
		value, err := h.ask(ctx, field)
		if err != nil {
			return err
		}
		err = r.Edit(ctx, field.Param.Name, value)
		if err == nil {
			return nil
		}
		if !rejected(err) {
			return err
		}
		h.say(ctx, fmt.Sprintf("%sInvalid %s: %v", h.theme.ErrorPrefix, h.label(field), err))
	}
	return fmt.Errorf("%w: %s", ErrGaveUp, field.Param.Name)
}

func (h *Host) retryLoad(ctx context.Context, r Runner, field form.Field) (form.Field, error) {
	message := fmt.Sprintf("Could not load options for %s. Retry?", h.label(field))
	for field.Status == cascade.Failed {
		retry, err := h.driver.Confirm(ctx, ConfirmConfig{Message: message, Default: true})
		if err != nil || !retry {
			return field, err
		}
		if err := r.RetryOptions(ctx, field.Param.Name); err != nil {
			return field, err
		}
		snap, err := h.settled(ctx, r)
		if err != nil {
			return field, err
		}
		field, _ = snap.Field(field.Param.Name)
	}
	return field, nil
}

func (h *Host) submit(ctx context.Context, r Runner) (form.Snapshot, error) {
	if _, err := r.Submit(ctx); err != nil {
		return form.Snapshot{}, err
	}
	return h.settled(ctx, r)
}

func (h *Host) settled(ctx context.Context, r Runner) (form.Snapshot, error) {
	if err := r.Settle(ctx); err != nil {
		return form.Snapshot{}, err
	}
	return r.Snapshot(ctx)
}

func (h *Host) reportErrors(ctx context.Context, snap form.Snapshot) {
	for _, field := range snap.Fields {
		if field.Error == nil {
			continue
		}
		h.say(ctx, fmt.Sprintf("  %s: %s", h.label(field), plainText(field.Error.Message)))
	}
}

func (h *Host) say(ctx context.Context, msg string) {
	if err := h.driver.Info(ctx, msg); err != nil {
		h.logger.Warn("print message", zap.Error(err))
	}
}

func erroredFields(snap form.Snapshot) []string {
	out := []string{}
	for _, field := range snap.Fields {
		if field.Error != nil {
			out = append(out, field.Param.Name)
		}
	}
	return out
}

func rejected(err error) bool {
	return errors.Is(err, form.ErrInvalidValue) ||
		errors.Is(err, form.ErrUnknownOption) ||
		errors.Is(err, form.ErrMaxSelections)
}
