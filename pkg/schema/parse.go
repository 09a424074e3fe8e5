package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

var paramNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

type wireSchema struct {
	Categories []wireCategory `json:"paramCategories"`
}

type wireCategory struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      []wireParam `json:"params"`
}

type wireParam struct {
	Name          string               `json:"name"`
	Type          ParamType            `json:"type"`
	Description   string               `json:"description"`
	Required      bool                 `json:"required"`
	Related       StringList           `json:"related"`
	Content       json.RawMessage      `json:"content"`
	Validation    []ValidationRule     `json:"x-validation"`
	Visibility    *VisibilityCondition `json:"x-visibility"`
	UIHints       map[string]any       `json:"x-ui-hints"`
	ErrorMessages map[string]string    `json:"x-error-messages"`
}

// Parse decodes a JSON schema document. Any structural problem is reported as
// a *SchemaError. Unknown param types are accepted.
func Parse(raw []byte) (FormSchema, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return FormSchema{}, schemaErr("", "document is empty")
	}

	var wire wireSchema
	if err := json.Unmarshal(raw, &wire); err != nil {
		return FormSchema{}, &SchemaError{Message: "invalid JSON", Err: err}
	}

	out := FormSchema{Categories: make([]ParamCategory, 0, len(wire.Categories))}
	for ci, wc := range wire.Categories {
		category := ParamCategory{
			Name:        wc.Name,
			Description: wc.Description,
			Params:      make([]Param, 0, len(wc.Params)),
		}
		for pi, wp := range wc.Params {
			path := fmt.Sprintf("paramCategories[%d].params[%d]", ci, pi)
			content, err := decodeContent(path+".content", wp.Content)
			if err != nil {
				return FormSchema{}, err
			}
			category.Params = append(category.Params, Param{
				Name:          wp.Name,
				Type:          wp.Type,
				Description:   wp.Description,
				Required:      wp.Required,
				Related:       wp.Related,
				Content:       content,
				Validation:    wp.Validation,
				Visibility:    wp.Visibility,
				UIHints:       wp.UIHints,
				ErrorMessages: wp.ErrorMessages,
			})
		}
		out.Categories = append(out.Categories, category)
	}

	if err := Check(out); err != nil {
		return FormSchema{}, err
	}
	return out, nil
}

// ParseYAML decodes a YAML schema document by converting it to JSON first so
// both encodings share one set of rules.
func ParseYAML(raw []byte) (FormSchema, error) {
	var tree any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return FormSchema{}, &SchemaError{Message: "invalid YAML", Err: err}
	}
	body, err := json.Marshal(normalizeYAML(tree))
	if err != nil {
		return FormSchema{}, &SchemaError{Message: "YAML is not representable as JSON", Err: err}
	}
	return Parse(body)
}

// ParseDocument decodes a document as JSON when it is valid JSON and as YAML
// otherwise.
func ParseDocument(doc Document) (FormSchema, error) {
	raw := doc.Raw()
	var (
		out FormSchema
		err error
	)
	if json.Valid(raw) {
		out, err = Parse(raw)
	} else {
		out, err = ParseYAML(raw)
	}
	if err != nil {
		return FormSchema{}, fmt.Errorf("schema: %s: %w", doc.Location(), err)
	}
	return out, nil
}

func decodeContent(path string, raw json.RawMessage) (Content, error) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, schemaErr(path, "content is required")
	}
	var head struct {
		Type *ContentType `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, &SchemaError{Path: path, Message: "content must be an object", Err: err}
	}
	if head.Type == nil || *head.Type == "" {
		return nil, schemaErr(path+".type", "content type is missing")
	}
	content, ok := newContent(*head.Type)
	if !ok {
		return nil, schemaErr(path+".type", "unknown content type %q", *head.Type)
	}
	if err := json.Unmarshal(raw, content); err != nil {
		return nil, &SchemaError{Path: path, Message: "invalid " + string(*head.Type) + " content", Err: err}
	}

	if _, isRange := content.(*RangeContent); isRange {
		var bounds struct {
			Min *float64 `json:"min"`
			Max *float64 `json:"max"`
		}
		_ = json.Unmarshal(raw, &bounds)
		if bounds.Min == nil {
			return nil, schemaErr(path+".min", "range minimum is required")
		}
		if bounds.Max == nil {
			return nil, schemaErr(path+".max", "range maximum is required")
		}
	}
	return content, nil
}

// normalizeYAML rewrites non-string mapping keys so the tree encodes as JSON.
func normalizeYAML(node any) any {
	switch typed := node.(type) {
	case map[string]any:
		for key, value := range typed {
			typed[key] = normalizeYAML(value)
		}
		return typed
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, value := range typed {
			out[fmt.Sprint(key)] = normalizeYAML(value)
		}
		return out
	case time.Time:
		if typed.Equal(typed.Truncate(24 * time.Hour)) {
			return typed.Format(time.DateOnly)
		}
		return typed.Format(time.RFC3339)
	case []any:
		for i, value := range typed {
			typed[i] = normalizeYAML(value)
		}
		return typed
	default:
		return node
	}
}
