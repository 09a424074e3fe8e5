package tui

import (
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/widgets"
)

// Theme captures optional prefixes applied to printed messages.
type Theme struct {
	InfoPrefix    string
	ErrorPrefix   string
	SuccessPrefix string
}

// Option configures the Host.
type Option func(*Host)

// WithPromptDriver overrides the prompt driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(h *Host) {
		if driver != nil {
			h.driver = driver
		}
	}
}

// WithWidgets overrides the widget registry used to pick prompt kinds.
func WithWidgets(registry *widgets.Registry) Option {
	return func(h *Host) {
		if registry != nil {
			h.widgets = registry
		}
	}
}

// WithTheme applies message prefixes.
func WithTheme(theme Theme) Option {
	return func(h *Host) {
		h.theme = theme
	}
}

// WithMaxAttempts bounds how often a rejected answer is re-prompted.
func WithMaxAttempts(n int) Option {
	return func(h *Host) {
		if n > 0 {
			h.maxAttempts = n
		}
	}
}

// WithLogger sets the host logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Host) {
		if logger != nil {
			h.logger = logger
		}
	}
}
