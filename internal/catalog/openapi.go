package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formflow/pkg/schema"
)

const (
	// SchemaExtension embeds a form schema in an OpenAPI operation.
	SchemaExtension = "x-form-schema"
	// IDExtension overrides the form id, which defaults to the operationId.
	IDExtension = "x-form-id"
)

// LoadOpenAPI registers the form schemas embedded in the operations of an
// OpenAPI 3 document under the x-form-schema extension.
func (r *Registry) LoadOpenAPI(ctx context.Context, location string, raw []byte) error {
	if len(raw) == 0 {
		return errors.New("catalog: openapi document is empty")
	}
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return fmt.Errorf("catalog: load openapi %s: %w", location, err)
	}
	if doc.Paths == nil {
		return nil
	}

	paths := doc.Paths.Map()
	keys := make([]string, 0, len(paths))
	for key := range paths {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, p := range keys {
		item := paths[p]
		if item == nil {
			continue
		}
		for _, method := range []string{"GET", "POST", "PUT", "PATCH", "DELETE"} {
			op := item.GetOperation(method)
			if op == nil {
				continue
			}
			raw, ok := op.Extensions[SchemaExtension]
			if !ok {
				continue
			}
			id := formID(op, method, p)
			source := fmt.Sprintf("%s#%s %s", location, method, p)
			parsed, err := decodeExtension(raw)
			if err != nil {
				return fmt.Errorf("catalog: %s: %w", source, err)
			}
			if err := r.Add(id, source, parsed); err != nil {
				return err
			}
		}
	}
	return nil
}

func formID(op *openapi3.Operation, method, path string) string {
	if id, ok := op.Extensions[IDExtension].(string); ok && strings.TrimSpace(id) != "" {
		return id
	}
	if op.OperationID != "" {
		return op.OperationID
	}
	return strings.ToLower(method) + ":" + path
}

func decodeExtension(value any) (schema.FormSchema, error) {
	var body []byte
	switch typed := value.(type) {
	case json.RawMessage:
		body = typed
	case []byte:
		body = typed
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return schema.FormSchema{}, fmt.Errorf("encode %s: %w", SchemaExtension, err)
		}
		body = encoded
	}
	return schema.Parse(body)
}
