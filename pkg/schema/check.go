package schema

import (
	"fmt"
	"maps"
	"slices"
)

// Check verifies the structural invariants of a schema: unique category
// names, unique and well-formed param names, unique option values per list,
// content present, and references that resolve to declared params. It
// returns the first violation found.
func Check(s FormSchema) error {
	categories := make(map[string]struct{}, len(s.Categories))
	params := make(map[string]string)

	for ci, category := range s.Categories {
		path := fmt.Sprintf("paramCategories[%d]", ci)
		if category.Name == "" {
			return schemaErr(path+".name", "category name is required")
		}
		if _, dup := categories[category.Name]; dup {
			return schemaErr(path+".name", "duplicate category name %q", category.Name)
		}
		categories[category.Name] = struct{}{}

		for pi, param := range category.Params {
			ppath := fmt.Sprintf("%s.params[%d]", path, pi)
			if !paramNamePattern.MatchString(param.Name) {
				return schemaErr(ppath+".name", "invalid param name %q", param.Name)
			}
			if prev, dup := params[param.Name]; dup {
				return schemaErr(ppath+".name", "duplicate param name %q (first declared at %s)", param.Name, prev)
			}
			params[param.Name] = ppath
			if param.Content == nil {
				return schemaErr(ppath+".content", "content is required")
			}
			if err := checkContent(ppath+".content", param.Content); err != nil {
				return err
			}
		}
	}

	for _, param := range s.Params() {
		ppath := params[param.Name]
		for i, ref := range param.Related {
			if _, ok := params[ref]; !ok {
				return schemaErr(fmt.Sprintf("%s.related[%d]", ppath, i), "unknown param %q", ref)
			}
		}
		dep, ok := param.Content.(*DependentEnumContent)
		if !ok {
			continue
		}
		for i, ref := range dep.DependsOn {
			if _, ok := params[ref]; !ok {
				return schemaErr(fmt.Sprintf("%s.content.dependsOn[%d]", ppath, i), "unknown param %q", ref)
			}
			if ref == param.Name {
				return schemaErr(fmt.Sprintf("%s.content.dependsOn[%d]", ppath, i), "param cannot depend on itself")
			}
		}
	}
	return nil
}

func checkContent(path string, content Content) error {
	switch c := content.(type) {
	case *EnumContent:
		return checkValues(path+".values", c.Values)
	case *DependentEnumContent:
		if len(c.DependsOn) == 0 {
			return schemaErr(path+".dependsOn", "at least one parent is required")
		}
		for _, key := range slices.Sorted(maps.Keys(c.Mapping)) {
			if err := checkValues(fmt.Sprintf("%s.mapping[%q]", path, key), c.Mapping[key]); err != nil {
				return err
			}
		}
	case *RangeContent:
		if c.Min > c.Max {
			return schemaErr(path, "range minimum %v exceeds maximum %v", c.Min, c.Max)
		}
	case *NumberContent:
		if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
			return schemaErr(path, "minimum %v exceeds maximum %v", *c.Min, *c.Max)
		}
	}
	return nil
}

func checkValues(path string, values []EnumValue) error {
	seen := make(map[string]struct{}, len(values))
	for i, value := range values {
		if _, dup := seen[value.Value]; dup {
			return schemaErr(fmt.Sprintf("%s[%d].value", path, i), "duplicate option value %q", value.Value)
		}
		seen[value.Value] = struct{}{}
	}
	return nil
}
