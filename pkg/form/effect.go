package form

import (
	"github.com/goliatone/go-formflow/pkg/api"
	"github.com/goliatone/go-formflow/pkg/cascade"
)

// EffectKind names the asynchronous work a transition asks the host to run.
type EffectKind int

const (
	// FetchOptions loads options for a dependent or remote field. Report the
	// outcome with Session.OptionsResolved.
	FetchOptions EffectKind = iota
	// Validate sends the submission to the validate endpoint. Report the
	// outcome with Session.ValidateResolved.
	Validate
	// Submit sends the submission to the submit endpoint. Report the outcome
	// with Session.SubmitResolved.
	Submit
)

func (k EffectKind) String() string {
	switch k {
	case FetchOptions:
		return "fetch_options"
	case Validate:
		return "validate"
	case Submit:
		return "submit"
	default:
		return "unknown"
	}
}

// Effect is a unit of asynchronous work. Cycle identifies the
// validate/submit attempt it belongs to; results for an older cycle are
// discarded.
type Effect struct {
	Kind       EffectKind
	Fetch      cascade.Fetch
	Cycle      uint64
	Submission api.FormSubmission
}

func fetchEffects(fetches []cascade.Fetch) []Effect {
	if len(fetches) == 0 {
		return nil
	}
	out := make([]Effect, 0, len(fetches))
	for _, fetch := range fetches {
		out = append(out, Effect{Kind: FetchOptions, Fetch: fetch})
	}
	return out
}
