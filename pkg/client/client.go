// Package client talks to a formflow backend: schema discovery, server-side
// validation, submission and remote option lists. A Client satisfies both
// form.Backend and cascade.OptionSource.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-formflow/pkg/api"
	"github.com/goliatone/go-formflow/pkg/cascade"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/schema"
)

var tracer = otel.Tracer("formflow/client")

var (
	_ form.Backend         = (*Client)(nil)
	_ cascade.OptionSource = (*Client)(nil)
)

// maxErrorBody caps how much of an error response is kept on StatusError.
const maxErrorBody = 4 << 10

// StatusError reports a non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("client: %s %s: unexpected status %d: %s", e.Method, e.URL, e.StatusCode, strings.TrimSpace(e.Body))
}

// IsNotFound reports whether err is a 404 StatusError.
func IsNotFound(err error) bool {
	var status *StatusError
	return errors.As(err, &status) && status.StatusCode == http.StatusNotFound
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every request. Zero means no client-side timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.timeout = timeout }
}

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client is safe for concurrent use.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	logger  *zap.Logger

	cache *optionCache
	group singleflight.Group
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("client: base url %q must be absolute", baseURL)
	}
	c := &Client{
		base:   base,
		http:   http.DefaultClient,
		logger: zap.NewNop(),
		cache:  newOptionCache(time.Now),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// SchemaRef is one entry of the schema index.
type SchemaRef struct {
	ID  string
	URL string
}

// ListSchemas returns the schema index sorted by id.
func (c *Client) ListSchemas(ctx context.Context) ([]SchemaRef, error) {
	var index map[string]string
	if err := c.getJSON(ctx, "list_schemas", "/api/schemas", &index); err != nil {
		return nil, err
	}
	refs := make([]SchemaRef, 0, len(index))
	for id, ref := range index {
		refs = append(refs, SchemaRef{ID: id, URL: ref})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs, nil
}

// GetSchema fetches and parses the schema with the given id. Malformed
// schemas surface as *schema.SchemaError.
func (c *Client) GetSchema(ctx context.Context, id string) (schema.FormSchema, error) {
	body, err := c.do(ctx, "get_schema", http.MethodGet, "/api/schemas/"+url.PathEscape(id), nil)
	if err != nil {
		return schema.FormSchema{}, err
	}
	parsed, err := schema.Parse(body)
	if err != nil {
		return schema.FormSchema{}, fmt.Errorf("client: schema %s: %w", id, err)
	}
	return parsed, nil
}

// Validate asks the backend to validate a submission.
func (c *Client) Validate(ctx context.Context, submission api.FormSubmission) (api.ValidationResponse, error) {
	var resp api.ValidationResponse
	err := c.postJSON(ctx, "validate", "/api/validate", submission, &resp)
	return resp, err
}

// Submit sends a submission. A reported failure is a successful exchange
// with Success=false, not an error.
func (c *Client) Submit(ctx context.Context, submission api.FormSubmission) (api.SubmissionResponse, error) {
	var resp api.SubmissionResponse
	err := c.postJSON(ctx, "submit", "/api/submit", submission, &resp)
	return resp, err
}

// FieldCheck is the answer of a single-field async check endpoint.
type FieldCheck struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// CheckField calls an async validation endpoint such as /api/validate/email
// with the value passed as the field query parameter.
func (c *Client) CheckField(ctx context.Context, endpoint, field, value string) (FieldCheck, error) {
	ref, err := url.Parse(endpoint)
	if err != nil {
		return FieldCheck{}, fmt.Errorf("client: parse endpoint: %w", err)
	}
	query := ref.Query()
	query.Set(field, value)
	ref.RawQuery = query.Encode()

	var check FieldCheck
	err = c.getJSON(ctx, "check_field", ref.String(), &check)
	return check, err
}

// Health is the backend health report.
type Health struct {
	Status           string `json:"status"`
	SchemasLoaded    int    `json:"schemas_loaded"`
	SubmissionsCount int    `json:"submissions_count"`
}

// Health fetches /api/health.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var health Health
	err := c.getJSON(ctx, "health", "/api/health", &health)
	return health, err
}

// FetchOptions loads the option list of a cascade fetch. Relative URLs are
// resolved against the base URL. Results are cached for fetch.CacheTTL and
// concurrent loads of the same URL share one request.
func (c *Client) FetchOptions(ctx context.Context, fetch cascade.Fetch) ([]schema.EnumValue, error) {
	target := c.resolve(fetch.URL)
	if options, ok := c.cache.get(target); ok {
		c.logger.Debug("options cache hit", zap.String("field", fetch.Field), zap.String("url", target))
		return options, nil
	}

	result, err, shared := c.group.Do(target, func() (any, error) {
		body, err := c.do(ctx, "fetch_options", http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		options, err := decodeOptions(body)
		if err != nil {
			return nil, fmt.Errorf("client: options from %s: %w", target, err)
		}
		c.cache.put(target, options, fetch.CacheTTL)
		return options, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("options request shared", zap.String("url", target))
	}
	return cloneOptions(result.([]schema.EnumValue)), nil
}

// decodeOptions accepts a bare JSON array or a {"data": [...]} envelope.
func decodeOptions(body []byte) ([]schema.EnumValue, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var options []schema.EnumValue
		if err := json.Unmarshal(trimmed, &options); err != nil {
			return nil, err
		}
		return options, nil
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, err
	}
	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, errors.New("expected an option array or a data envelope")
	}
	var options []schema.EnumValue
	if err := json.Unmarshal(data, &options); err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}
	return options, nil
}

func (c *Client) resolve(ref string) string {
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return c.base.ResolveReference(parsed).String()
}

func (c *Client) getJSON(ctx context.Context, op, ref string, out any) error {
	body, err := c.do(ctx, op, http.MethodGet, ref, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("client: %s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, op, ref string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("client: %s: encode request: %w", op, err)
	}
	body, err := c.do(ctx, op, http.MethodPost, ref, payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("client: %s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, ref string, payload []byte) (_ []byte, err error) {
	target := c.resolve(ref)
	ctx, span := tracer.Start(ctx, "client."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", target),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("client: %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed", zap.String("op", op), zap.String("url", target), zap.Error(err))
		return nil, fmt.Errorf("client: %s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Method: method, URL: target, StatusCode: resp.StatusCode, Body: string(snippet)}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("client: %s: read body: %w", op, err)
	}
	c.logger.Debug("request done",
		zap.String("op", op),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(started)),
	)
	return body, nil
}
