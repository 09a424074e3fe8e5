package options

import (
	"context"
	"slices"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// Dataset resolves the option list for a parent value. Parent is empty for
// datasets that are not keyed.
type Dataset interface {
	Lookup(ctx context.Context, parent string) ([]schema.EnumValue, error)
}

// DatasetFunc adapts a function into a Dataset.
type DatasetFunc func(ctx context.Context, parent string) ([]schema.EnumValue, error)

func (fn DatasetFunc) Lookup(ctx context.Context, parent string) ([]schema.EnumValue, error) {
	return fn(ctx, parent)
}

// Static ignores the parent and always returns the same list.
type Static []schema.EnumValue

func (s Static) Lookup(context.Context, string) ([]schema.EnumValue, error) {
	return slices.Clone([]schema.EnumValue(s)), nil
}

// Keyed returns the list stored under the parent value. Unknown parents
// yield an empty list.
type Keyed map[string][]schema.EnumValue

func (k Keyed) Lookup(_ context.Context, parent string) ([]schema.EnumValue, error) {
	return slices.Clone(k[parent]), nil
}

// Countries is the demo country list.
func Countries() Static {
	return Static{
		{Label: "United Kingdom", Value: "GB"},
		{Label: "United States", Value: "US"},
		{Label: "Canada", Value: "CA"},
		{Label: "Australia", Value: "AU"},
		{Label: "Germany", Value: "DE"},
		{Label: "France", Value: "FR"},
	}
}

// Cities is the demo city list keyed by country code.
func Cities() Keyed {
	return Keyed{
		"GB": {
			{Label: "London", Value: "london"},
			{Label: "Manchester", Value: "manchester"},
			{Label: "Birmingham", Value: "birmingham"},
			{Label: "Edinburgh", Value: "edinburgh"},
		},
		"US": {
			{Label: "New York", Value: "new_york"},
			{Label: "Los Angeles", Value: "los_angeles"},
			{Label: "Chicago", Value: "chicago"},
			{Label: "Houston", Value: "houston"},
		},
		"CA": {
			{Label: "Toronto", Value: "toronto"},
			{Label: "Vancouver", Value: "vancouver"},
			{Label: "Montreal", Value: "montreal"},
		},
	}
}

// Subcategories is the demo product subcategory list keyed by category.
func Subcategories() Keyed {
	return Keyed{
		"electronics": {
			{Label: "Laptops", Value: "laptops"},
			{Label: "Phones", Value: "phones"},
			{Label: "Tablets", Value: "tablets"},
		},
		"clothing": {
			{Label: "Men", Value: "men"},
			{Label: "Women", Value: "women"},
			{Label: "Children", Value: "children"},
		},
	}
}
