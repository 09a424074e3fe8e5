package cascade

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// OptionSource loads the option list for an outstanding fetch.
type OptionSource interface {
	FetchOptions(ctx context.Context, fetch Fetch) ([]schema.EnumValue, error)
}

// OptionSourceFunc adapts a function into an OptionSource.
type OptionSourceFunc func(ctx context.Context, fetch Fetch) ([]schema.EnumValue, error)

// FetchOptions delegates to the underlying function.
func (fn OptionSourceFunc) FetchOptions(ctx context.Context, fetch Fetch) ([]schema.EnumValue, error) {
	return fn(ctx, fetch)
}

// StaticSource serves option lists from memory keyed by the expanded URL.
// Missing URLs fail with ErrNoOptions. Handy for tests and offline hosts.
type StaticSource map[string][]schema.EnumValue

// ErrNoOptions is returned by StaticSource for unknown URLs.
var ErrNoOptions = errors.New("cascade: no options for source")

func (s StaticSource) FetchOptions(_ context.Context, fetch Fetch) ([]schema.EnumValue, error) {
	options, ok := s[fetch.URL]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoOptions, fetch.URL)
	}
	return options, nil
}
