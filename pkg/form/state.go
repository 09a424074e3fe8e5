package form

import (
	"errors"
	"fmt"
)

// State is the top-level submission workflow state.
type State int

const (
	// Idle accepts edits and submit intents.
	Idle State = iota
	// Validating waits for the server validate response.
	Validating
	// Submitting waits for the server submit response.
	Submitting
	// Success shows the outcome of an accepted submission over a fresh form.
	Success
	// Failed shows a submission failure over the kept form data.
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// AtRest reports whether no validate/submit cycle is in flight. Success and
// Failed are display states over Idle and accept new submit intents.
func (s State) AtRest() bool {
	return s == Idle || s == Success || s == Failed
}

// Top-level messages set by the workflow.
const (
	MessageCorrectErrors = "Please correct the errors below."
	MessageSubmitError   = "An error occurred while submitting the form."
	MessageSubmitted     = "Form submitted successfully."
)

// Rejected edits. The field value is left unchanged.
var (
	ErrUnknownField   = errors.New("form: unknown field")
	ErrUnsupported    = errors.New("form: field capability is unsupported")
	ErrNotInteractive = errors.New("form: field is not interactive")
	ErrInvalidValue   = errors.New("form: invalid value for field")
	ErrUnknownOption  = errors.New("form: value is not an available option")
	ErrMaxSelections  = errors.New("form: selection limit reached")
)

// SubmissionError describes a failed submission. Reported is true when the
// server answered with success=false; otherwise Err holds the transport or
// decoding failure.
type SubmissionError struct {
	Reported bool
	Message  string
	Err      error
}

func (e *SubmissionError) Error() string {
	if e.Reported {
		return "form: submission rejected: " + e.Message
	}
	if e.Err != nil {
		return "form: submission failed: " + e.Err.Error()
	}
	return "form: submission failed"
}

func (e *SubmissionError) Unwrap() error { return e.Err }
