package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrGaveUp is returned when a field keeps rejecting input.
	ErrGaveUp = errors.New("tui: too many invalid answers")
	// ErrSubmissionFailed wraps a submission the user chose not to retry.
	ErrSubmissionFailed = errors.New("tui: submission failed")
)
