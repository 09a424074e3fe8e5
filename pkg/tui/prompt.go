package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/goliatone/go-formflow/pkg/capability"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/widgets"
)

const noneOption = "(none)"

// ask prompts once for field and returns the raw answer for form.Runner.Edit.
// Empty answers clear the field.
func (h *Host) ask(ctx context.Context, field form.Field) (any, error) {
	widget, _ := h.widgets.ResolveParam(field.Param)
	switch field.Capability {
	case capability.Boolean:
		return h.askBool(ctx, field)
	case capability.SingleChoice, capability.DependentChoice:
		return h.askChoice(ctx, field)
	case capability.MultiChoice:
		return h.askMulti(ctx, field)
	case capability.Number:
		return h.driver.Input(ctx, InputConfig{
			Message:   h.label(field),
			Default:   stringValue(field.Value),
			Help:      h.help(field, numberHelp(field.Param)),
			Validator: numeric(field.Param.Required),
		})
	case capability.Range:
		content, _ := field.Param.Content.(*schema.RangeContent)
		return h.driver.Input(ctx, InputConfig{
			Message:   h.label(field),
			Default:   stringValue(field.Value),
			Help:      h.help(field, rangeHelp(content)),
			Validator: numeric(field.Param.Required),
		})
	case capability.DateTime:
		return h.driver.Input(ctx, InputConfig{
			Message:   h.label(field),
			Default:   stringValue(field.Value),
			Help:      h.help(field, dateHelp(widget)),
			Validator: requiredText(field.Param.Required),
		})
	case capability.Text:
		return h.askText(ctx, field, widget)
	}
	return nil, fmt.Errorf("tui: %s: no prompt for capability %s", field.Param.Name, field.Capability)
}

func (h *Host) askText(ctx context.Context, field form.Field, widget string) (any, error) {
	cfg := InputConfig{
		Message:   h.label(field),
		Default:   stringValue(field.Value),
		Help:      h.help(field, ""),
		Validator: requiredText(field.Param.Required),
	}
	switch widget {
	case widgets.WidgetPassword:
		cfg.Default = ""
		return h.driver.Password(ctx, cfg)
	case widgets.WidgetTextarea:
		return h.driver.TextArea(ctx, TextAreaConfig{Message: cfg.Message, Default: cfg.Default, Help: cfg.Help})
	default:
		return h.driver.Input(ctx, cfg)
	}
}

func (h *Host) askBool(ctx context.Context, field form.Field) (any, error) {
	current, ok := field.Value.(bool)
	if !ok {
		if content, isBool := field.Param.Content.(*schema.BooleanContent); isBool {
			current = content.DefaultValue
		}
	}
	return h.driver.Confirm(ctx, ConfirmConfig{
		Message: h.label(field),
		Default: current,
		Help:    h.help(field, ""),
	})
}

func (h *Host) askChoice(ctx context.Context, field form.Field) (any, error) {
	labels, values := optionLabels(field.Options)
	if !field.Param.Required {
		labels = append([]string{noneOption}, labels...)
		values = append([]string{""}, values...)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("tui: %s has no options", field.Param.Name)
	}
	current, _ := field.Value.(string)
	idx, err := h.driver.Select(ctx, SelectConfig{
		Message:      h.label(field),
		Options:      labels,
		DefaultIndex: max(slices.Index(values, current), 0),
		Help:         h.help(field, ""),
	})
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(values) {
		return nil, fmt.Errorf("%w: %s selection out of range", form.ErrInvalidValue, field.Param.Name)
	}
	return values[idx], nil
}

func (h *Host) askMulti(ctx context.Context, field form.Field) (any, error) {
	labels, values := optionLabels(field.Options)
	current, _ := field.Value.([]string)
	var defaults []int
	for i, value := range values {
		if slices.Contains(current, value) {
			defaults = append(defaults, i)
		}
	}
	extra := ""
	if content, ok := field.Param.Content.(*schema.EnumContent); ok && content.MaxSelections > 0 {
		extra = fmt.Sprintf("Select up to %d", content.MaxSelections)
	}
	picked, err := h.driver.MultiSelect(ctx, SelectConfig{
		Message:  h.label(field),
		Options:  labels,
		Defaults: defaults,
		Help:     h.help(field, extra),
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(picked))
	for _, idx := range picked {
		if idx >= 0 && idx < len(values) {
			out = append(out, values[idx])
		}
	}
	return out, nil
}

func (h *Host) label(field form.Field) string {
	text := plainText(field.Param.Description)
	if text == "" {
		text = field.Param.Name
	}
	if field.Param.Required {
		text += " *"
	}
	return text
}

func (h *Host) help(field form.Field, extra string) string {
	var parts []string
	if content, ok := field.Param.Content.(*schema.StringContent); ok && content.Placeholder != "" {
		parts = append(parts, plainText(content.Placeholder))
	}
	if content, ok := field.Param.Content.(*schema.NumberContent); ok && content.Placeholder != "" {
		parts = append(parts, plainText(content.Placeholder))
	}
	if extra != "" {
		parts = append(parts, extra)
	}
	return strings.Join(parts, " | ")
}

func optionLabels(options []schema.EnumValue) ([]string, []string) {
	labels := make([]string, 0, len(options))
	values := make([]string, 0, len(options))
	for _, option := range options {
		label := plainText(option.Label)
		if label == "" {
			label = option.Value
		}
		if option.Disabled {
			label += " (unavailable)"
		}
		labels = append(labels, label)
		values = append(values, option.Value)
	}
	return labels, values
}

func numberHelp(param schema.Param) string {
	content, ok := param.Content.(*schema.NumberContent)
	if !ok {
		return ""
	}
	switch {
	case content.Min != nil && content.Max != nil:
		return fmt.Sprintf("%s to %s", formatFloat(*content.Min), formatFloat(*content.Max))
	case content.Min != nil:
		return "at least " + formatFloat(*content.Min)
	case content.Max != nil:
		return "at most " + formatFloat(*content.Max)
	}
	return ""
}

func rangeHelp(content *schema.RangeContent) string {
	if content == nil {
		return ""
	}
	return fmt.Sprintf("%s to %s, step %s", content.FormatValue(content.Min), content.FormatValue(content.Max), formatFloat(content.StepOrDefault()))
}

func dateHelp(widget string) string {
	switch widget {
	case widgets.WidgetTime:
		return "HH:MM"
	case widgets.WidgetDateTime:
		return "YYYY-MM-DDTHH:MM"
	default:
		return "YYYY-MM-DD"
	}
}

var errRequired = errors.New("a value is required")

func requiredText(required bool) func(string) error {
	return func(answer string) error {
		if required && strings.TrimSpace(answer) == "" {
			return errRequired
		}
		return nil
	}
}

func numeric(required bool) func(string) error {
	return func(answer string) error {
		answer = strings.TrimSpace(answer)
		if answer == "" {
			if required {
				return errRequired
			}
			return nil
		}
		if _, err := strconv.ParseFloat(answer, 64); err != nil {
			return fmt.Errorf("%q is not a number", answer)
		}
		return nil
	}
}

func stringValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		return formatFloat(typed)
	default:
		return fmt.Sprint(typed)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
