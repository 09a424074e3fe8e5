// Package options serves EnumValue lists for remote and dependent choice
// fields. A handler answers GET and HEAD requests for one dataset, optionally
// keyed by a parent query parameter, with search and limit filtering.
//
// Responses are bare JSON arrays by default so they can be consumed by any
// client expecting []EnumValue; WithEnvelope switches to {"data": [...]}.
package options
