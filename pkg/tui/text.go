package tui

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	plainPolicyOnce sync.Once
	plainPolicy     *bluemonday.Policy
)

// plainText strips markup from schema and server supplied text so it is
// safe to print on a terminal.
func plainText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	plainPolicyOnce.Do(func() {
		plainPolicy = bluemonday.StrictPolicy()
	})
	cleaned := html.UnescapeString(plainPolicy.Sanitize(trimmed))
	return strings.Join(strings.Fields(cleaned), " ")
}
