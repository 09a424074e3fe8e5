package options

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// StatusError attaches an HTTP status to an error returned by a Guard or a
// Dataset.
type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.StatusCode())
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

// NewHandler builds a handler for one dataset from fns over the defaults.
func NewHandler(fns ...OptionFn) http.Handler {
	return HandlerWithOptions(NewOptions(fns...))
}

// HandlerWithOptions builds a handler from opts, filling in defaults.
func HandlerWithOptions(opts Options) http.Handler {
	return &handler{opts: opts.withDefaults()}
}

type handler struct {
	opts Options
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", http.MethodGet+", "+http.MethodHead)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	values, err := h.lookup(r)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	var body any = values
	if h.opts.Envelope {
		body = struct {
			Data []schema.EnumValue `json:"data"`
		}{values}
	}
	_ = json.NewEncoder(w).Encode(body)
}

func (h *handler) lookup(r *http.Request) ([]schema.EnumValue, error) {
	if h.opts.Guard != nil {
		if err := h.opts.Guard(r); err != nil {
			return nil, withStatus(err, http.StatusForbidden)
		}
	}
	if h.opts.Dataset == nil {
		return nil, errors.New("options: no dataset configured")
	}

	query := r.URL.Query()
	var parent string
	if h.opts.ParentParam != "" {
		if !query.Has(h.opts.ParentParam) {
			return nil, StatusError{Code: http.StatusBadRequest, Err: fmt.Errorf("missing query parameter %q", h.opts.ParentParam)}
		}
		parent = query.Get(h.opts.ParentParam)
	}

	values, err := h.opts.Dataset.Lookup(r.Context(), parent)
	if err != nil {
		return nil, withStatus(err, http.StatusBadGateway)
	}
	return Search(values, query.Get(searchParam), h.opts.limitFor(query.Get(limitParam))), nil
}

// withStatus keeps a StatusError as is and assigns code to anything else.
func withStatus(err error, code int) error {
	var status StatusError
	if errors.As(err, &status) {
		return err
	}
	return StatusError{Code: code, Err: err}
}

// writeError answers with the error's status. Only 400 responses echo the
// error text.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	var status StatusError
	if errors.As(err, &status) {
		code = status.StatusCode()
	}
	message := http.StatusText(code)
	if code == http.StatusBadRequest {
		message = err.Error()
	}
	http.Error(w, message, code)
}
