package schema

import (
	"encoding/json"
	"fmt"
)

// ParamType is the declared interaction type tag carried by a Param.
type ParamType string

// Known param type tags. Anything else is accepted by the parser and resolves
// to an unsupported capability downstream.
const (
	ParamList          ParamType = "list"
	ParamSubList       ParamType = "sub_list"
	ParamTextField     ParamType = "text_field"
	ParamNumberField   ParamType = "number_field"
	ParamDateField     ParamType = "date_field"
	ParamDateTimeField ParamType = "datetime_field"
	ParamTimeField     ParamType = "time_field"
	ParamRange         ParamType = "range"
	ParamCheckbox      ParamType = "checkbox"
	ParamRadio         ParamType = "radio"
	ParamMultiSelect   ParamType = "multi_select"
	ParamTextarea      ParamType = "textarea"
	ParamFileUpload    ParamType = "file_upload"
	ParamColorPicker   ParamType = "color_picker"
	ParamSwitch        ParamType = "switch"
)

// FormSchema is the root of a declarative form: an ordered list of categories.
// It is immutable once loaded for a session.
type FormSchema struct {
	Categories []ParamCategory `json:"paramCategories"`
}

// ParamCategory groups params under a name. Param order is significant.
type ParamCategory struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Params      []Param `json:"params"`
}

// Param describes a single form field.
type Param struct {
	Name          string               `json:"name"`
	Type          ParamType            `json:"type"`
	Description   string               `json:"description"`
	Required      bool                 `json:"required"`
	Related       StringList           `json:"related,omitempty"`
	Content       Content              `json:"content"`
	Validation    []ValidationRule     `json:"x-validation,omitempty"`
	Visibility    *VisibilityCondition `json:"x-visibility,omitempty"`
	UIHints       map[string]any       `json:"x-ui-hints,omitempty"`
	ErrorMessages map[string]string    `json:"x-error-messages,omitempty"`
}

// ValidationRule is an opaque rule passed through to presentation and to
// external evaluators.
type ValidationRule struct {
	Rule      string   `json:"rule"`
	Message   string   `json:"message"`
	Pattern   string   `json:"pattern,omitempty"`
	Endpoint  string   `json:"endpoint,omitempty"`
	Async     bool     `json:"async,omitempty"`
	Debounce  int      `json:"debounce,omitempty"`
	Condition string   `json:"condition,omitempty"`
	Fields    []string `json:"fields,omitempty"`
}

// VisibilityCondition wraps an opaque condition expression.
type VisibilityCondition struct {
	Condition string `json:"condition"`
}

// EnumValue is a single selectable option.
type EnumValue struct {
	Label    string `json:"label"`
	Value    string `json:"value"`
	Icon     string `json:"icon,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
	Tooltip  string `json:"tooltip,omitempty"`
}

// StringList decodes either a single string or a list of strings. JSON null
// decodes to an empty list.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*l = nil
			return nil
		}
		*l = StringList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or list of strings")
	}
	*l = StringList(many)
	return nil
}

// First returns the first entry or an empty string.
func (l StringList) First() string {
	if len(l) == 0 {
		return ""
	}
	return l[0]
}

// MarshalJSON emits the content with its type discriminator so schemas built
// in code round-trip through Parse.
func (p Param) MarshalJSON() ([]byte, error) {
	type alias Param
	content, err := encodeContent(p.Content)
	if err != nil {
		return nil, fmt.Errorf("schema: encode %s content: %w", p.Name, err)
	}
	return json.Marshal(struct {
		alias
		Content json.RawMessage `json:"content"`
	}{alias: alias(p), Content: content})
}

// UnmarshalJSON parses a full schema document, reporting failures as
// *SchemaError.
func (s *FormSchema) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Params returns every param in declaration order.
func (s FormSchema) Params() []Param {
	var out []Param
	for _, category := range s.Categories {
		out = append(out, category.Params...)
	}
	return out
}

// Param looks up a param by name.
func (s FormSchema) Param(name string) (Param, bool) {
	for _, category := range s.Categories {
		for _, param := range category.Params {
			if param.Name == name {
				return param, true
			}
		}
	}
	return Param{}, false
}

// Dependents returns the dependent-choice params that list name among their
// parents, in declaration order.
func (s FormSchema) Dependents(name string) []Param {
	var out []Param
	for _, param := range s.Params() {
		dep, ok := param.Content.(*DependentEnumContent)
		if !ok {
			continue
		}
		for _, parent := range dep.DependsOn {
			if parent == name {
				out = append(out, param)
				break
			}
		}
	}
	return out
}
