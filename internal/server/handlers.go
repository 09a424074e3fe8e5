package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/goliatone/go-formflow/internal/catalog"
	"github.com/goliatone/go-formflow/internal/store"
	"github.com/goliatone/go-formflow/pkg/api"
	"github.com/goliatone/go-formflow/pkg/logger"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// API identity reported by the root endpoint.
const (
	APIName    = "Dynamic Form API"
	APIVersion = "1.0.0"
)

// Messages returned by the submit endpoint.
const (
	MessageValidationFailed = "Form validation failed"
	MessageSubmitted        = "Form submitted successfully"
)

// Handlers serves the form API.
type Handlers struct {
	catalog   *catalog.Registry
	store     store.Store
	emails    *EmailRegistry
	validator *Validator
	log       *logger.Logger
}

// NewHandlers wires the API handlers.
func NewHandlers(registry *catalog.Registry, st store.Store, emails *EmailRegistry, log *logger.Logger) *Handlers {
	if log == nil {
		log = logger.Nop()
	}
	if emails == nil {
		emails = NewEmailRegistry(DefaultEmails...)
	}
	return &Handlers{
		catalog:   registry,
		store:     st,
		emails:    emails,
		validator: NewValidator(log.Zap()),
		log:       log,
	}
}

// Root describes the API.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":              APIName,
		"version":           APIVersion,
		"documentation":     OpenAPIPath,
		"available_schemas": h.catalog.IDs(),
	})
}

// ListSchemas maps each schema id to its URL.
func (h *Handlers) ListSchemas(c *gin.Context) {
	out := make(map[string]string, h.catalog.Len())
	for _, id := range h.catalog.IDs() {
		out[id] = "/api/schemas/" + id
	}
	c.JSON(http.StatusOK, out)
}

// GetSchema returns one schema.
func (h *Handlers) GetSchema(c *gin.Context) {
	id := c.Param("id")
	s, err := h.catalog.Get(id)
	if err != nil {
		var notFound *catalog.NotFoundError
		if errors.As(err, &notFound) {
			_ = c.Error(NewNotFound("schema", id, notFound.Error()).WithDetail("available", notFound.Available))
			return
		}
		_ = c.Error(NewInternal(err))
		return
	}
	c.JSON(http.StatusOK, s)
}

// CheckEmail reports whether an address is well formed and unregistered.
func (h *Handlers) CheckEmail(c *gin.Context) {
	email, ok := c.GetQuery("email")
	if !ok {
		_ = c.Error(NewInvalidInput("email query parameter is required"))
		return
	}
	valid, message := h.emails.Check(email)
	c.JSON(http.StatusOK, gin.H{"valid": valid, "message": message})
}

// Validate checks a submission against its schema. Submissions for unknown
// forms are accepted as valid.
func (h *Handlers) Validate(c *gin.Context) {
	sub, ok := bindSubmission(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.validate(c, sub))
}

// Submit re-validates and stores a submission.
func (h *Handlers) Submit(c *gin.Context) {
	sub, ok := bindSubmission(c)
	if !ok {
		return
	}
	result := h.validate(c, sub)
	if !result.Valid {
		c.JSON(http.StatusOK, api.SubmissionResponse{
			Success: false,
			Message: MessageValidationFailed,
			Data:    gin.H{"errors": result.Errors},
		})
		return
	}

	record, err := h.store.Save(c.Request.Context(), sub.FormID, sub.Data)
	if err != nil {
		_ = c.Error(NewInternal(err))
		return
	}
	h.registerEmails(sub)
	h.log.WithContext(c.Request.Context()).Infow("form submitted",
		"form_id", sub.FormID,
		"submission_id", record.ID.String(),
	)
	c.JSON(http.StatusOK, api.SubmissionResponse{
		Success: true,
		Message: MessageSubmitted,
		Data:    gin.H{"submissionId": record.ID.String()},
	})
}

// Submissions lists stored submissions, optionally filtered by form_id.
func (h *Handlers) Submissions(c *gin.Context) {
	records, err := h.store.List(c.Request.Context(), c.Query("form_id"))
	if err != nil {
		_ = c.Error(NewInternal(err))
		return
	}
	if records == nil {
		records = []store.Record{}
	}
	c.JSON(http.StatusOK, records)
}

// Health reports schema and submission counts.
func (h *Handlers) Health(c *gin.Context) {
	count, err := h.store.Count(c.Request.Context())
	if err != nil {
		_ = c.Error(NewInternal(err).WithDetail("component", "store"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"schemas_loaded":    h.catalog.Len(),
		"submissions_count": count,
	})
}

func (h *Handlers) validate(c *gin.Context, sub api.FormSubmission) api.ValidationResponse {
	s, err := h.catalog.Get(sub.FormID)
	if err != nil {
		h.log.WithContext(c.Request.Context()).Debugw("validating unknown form", "form_id", sub.FormID)
		return api.ValidationResponse{Valid: true, Errors: []api.ValidationError{}}
	}
	errs := h.validator.Validate(s, sub.Data)
	if errs == nil {
		errs = []api.ValidationError{}
	}
	return api.ValidationResponse{Valid: len(errs) == 0, Errors: errs}
}

// registerEmails records addresses from params backed by the uniqueness
// check so later checks report them as taken.
func (h *Handlers) registerEmails(sub api.FormSubmission) {
	s, err := h.catalog.Get(sub.FormID)
	if err != nil {
		return
	}
	for _, param := range s.Params() {
		checked := lo.ContainsBy(param.Validation, func(rule schema.ValidationRule) bool {
			return strings.HasPrefix(rule.Endpoint, EmailCheckPath)
		})
		if !checked {
			continue
		}
		if email, ok := sub.Data[param.Name].(string); ok {
			h.emails.Register(email)
		}
	}
}

func bindSubmission(c *gin.Context) (api.FormSubmission, bool) {
	var sub api.FormSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		_ = c.Error(NewInvalidInput("invalid submission body").WithCause(err))
		return sub, false
	}
	if sub.Data == nil {
		sub.Data = api.FormData{}
	}
	return sub, true
}
