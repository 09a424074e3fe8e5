// Package api holds the wire types exchanged between a form session and the
// validate/submit backend.
package api

import (
	"slices"
)

// FormData maps param names to their current values. Values are untyped at
// this layer; their shape depends on the field capability.
type FormData map[string]any

// Clone returns a shallow copy. Slice values are copied so the clone can be
// handed to another goroutine.
func (d FormData) Clone() FormData {
	if d == nil {
		return FormData{}
	}
	out := make(FormData, len(d))
	for key, value := range d {
		switch typed := value.(type) {
		case []string:
			out[key] = slices.Clone(typed)
		case []any:
			out[key] = slices.Clone(typed)
		default:
			out[key] = value
		}
	}
	return out
}

// FormSubmission is the request body for both validate and submit.
type FormSubmission struct {
	FormID string   `json:"formId,omitempty"`
	Data   FormData `json:"data"`
}

// ValidationError is a single field-level problem reported by the server.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	if e.Code == "" {
		return e.Field + ": " + e.Message
	}
	return e.Field + ": " + e.Message + " (" + e.Code + ")"
}

// ValidationResponse is the body returned by the validate endpoint.
type ValidationResponse struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors"`
}

// SubmissionResponse is the body returned by the submit endpoint.
type SubmissionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}
