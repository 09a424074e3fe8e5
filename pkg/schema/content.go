package schema

import (
	"encoding/json"
	"fmt"
)

// ContentType is the discriminator carried in content.type.
type ContentType string

const (
	ContentEnum          ContentType = "enum"
	ContentDependentEnum ContentType = "dependent_enum"
	ContentString        ContentType = "string"
	ContentNumber        ContentType = "number"
	ContentInteger       ContentType = "integer"
	ContentDate          ContentType = "date"
	ContentDateTime      ContentType = "datetime"
	ContentTime          ContentType = "time"
	ContentRange         ContentType = "number_range"
	ContentBoolean       ContentType = "boolean"
)

// Content is the closed set of type-specific configurations a Param carries.
// Only the variants declared in this package implement it.
type Content interface {
	ContentType() ContentType
	isContent()
}

// EnumContent is a static (optionally remote-backed) option list.
type EnumContent struct {
	Values        []EnumValue `json:"values"`
	Multiple      bool        `json:"multiple,omitempty"`
	MaxSelections int         `json:"maxSelections,omitempty"`
	Layout        string      `json:"layout,omitempty"`
	Source        string      `json:"source,omitempty"`
	CacheDuration int         `json:"cacheDuration,omitempty"`
	Searchable    bool        `json:"searchable,omitempty"`
}

// DependentEnumContent is an option list keyed by the value of parent params.
type DependentEnumContent struct {
	DependsOn       StringList             `json:"dependsOn"`
	Mapping         map[string][]EnumValue `json:"mapping,omitempty"`
	Source          string                 `json:"source,omitempty"`
	CacheDuration   int                    `json:"cacheDuration,omitempty"`
	CascadeReset    *bool                  `json:"cascadeReset,omitempty"`
	Searchable      bool                   `json:"searchable,omitempty"`
	MinSearchLength int                    `json:"minSearchLength,omitempty"`
}

// ResetsOnParentChange reports whether the child value is cleared when the
// parent changes. Absent means true.
func (c *DependentEnumContent) ResetsOnParentChange() bool {
	return c.CascadeReset == nil || *c.CascadeReset
}

// StringContent constrains free text.
type StringContent struct {
	MinLength   int    `json:"minLength,omitempty"`
	MaxLength   int    `json:"maxLength,omitempty"`
	Pattern     string `json:"pattern,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Multiline   bool   `json:"multiline,omitempty"`
	Rows        int    `json:"rows,omitempty"`
}

// NumberContent constrains numeric input. Kind is number or integer.
type NumberContent struct {
	Kind        ContentType `json:"-"`
	Min         *float64    `json:"min,omitempty"`
	Max         *float64    `json:"max,omitempty"`
	Step        *float64    `json:"step,omitempty"`
	Placeholder string      `json:"placeholder,omitempty"`
	Prefix      string      `json:"prefix,omitempty"`
	Suffix      string      `json:"suffix,omitempty"`
}

// DateContent constrains date, datetime or time input depending on Kind.
type DateContent struct {
	Kind          ContentType `json:"-"`
	Format        string      `json:"format,omitempty"`
	Min           string      `json:"min,omitempty"`
	Max           string      `json:"max,omitempty"`
	DisabledDates []string    `json:"disabledDates,omitempty"`
}

// RangeContent is a bounded numeric range. Min and Max are required.
type RangeContent struct {
	Min          float64   `json:"min"`
	Max          float64   `json:"max"`
	Step         float64   `json:"step,omitempty"`
	DefaultValue []float64 `json:"defaultValue,omitempty"`
	ShowLabels   *bool     `json:"showLabels,omitempty"`
	Currency     string    `json:"currency,omitempty"`
}

// StepOrDefault returns Step, or 1 when unset.
func (c *RangeContent) StepOrDefault() float64 {
	if c.Step <= 0 {
		return 1
	}
	return c.Step
}

// BooleanContent is a boolean toggle.
type BooleanContent struct {
	DefaultValue bool `json:"defaultValue,omitempty"`
}

func (*EnumContent) ContentType() ContentType          { return ContentEnum }
func (*DependentEnumContent) ContentType() ContentType { return ContentDependentEnum }
func (*StringContent) ContentType() ContentType        { return ContentString }
func (*RangeContent) ContentType() ContentType         { return ContentRange }
func (*BooleanContent) ContentType() ContentType       { return ContentBoolean }

func (c *NumberContent) ContentType() ContentType {
	if c.Kind == ContentInteger {
		return ContentInteger
	}
	return ContentNumber
}

func (c *DateContent) ContentType() ContentType {
	switch c.Kind {
	case ContentDateTime, ContentTime:
		return c.Kind
	default:
		return ContentDate
	}
}

func (*EnumContent) isContent()          {}
func (*DependentEnumContent) isContent() {}
func (*StringContent) isContent()        {}
func (*NumberContent) isContent()        {}
func (*DateContent) isContent()          {}
func (*RangeContent) isContent()         {}
func (*BooleanContent) isContent()       {}

// newContent returns an empty variant for a discriminator.
func newContent(kind ContentType) (Content, bool) {
	switch kind {
	case ContentEnum:
		return &EnumContent{}, true
	case ContentDependentEnum:
		return &DependentEnumContent{}, true
	case ContentString:
		return &StringContent{}, true
	case ContentNumber, ContentInteger:
		return &NumberContent{Kind: kind}, true
	case ContentDate, ContentDateTime, ContentTime:
		return &DateContent{Kind: kind}, true
	case ContentRange:
		return &RangeContent{}, true
	case ContentBoolean:
		return &BooleanContent{}, true
	default:
		return nil, false
	}
}

func encodeContent(content Content) (json.RawMessage, error) {
	if content == nil {
		return json.RawMessage("null"), nil
	}
	body, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("content is not an object: %w", err)
	}
	kind, err := json.Marshal(content.ContentType())
	if err != nil {
		return nil, err
	}
	fields["type"] = kind
	return json.Marshal(fields)
}
