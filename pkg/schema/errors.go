package schema

import "fmt"

// SchemaError reports a malformed schema. Path names the offending location,
// for example paramCategories[0].params[2].content.type. It is fatal to the
// form session that tried to load the schema.
type SchemaError struct {
	Path    string
	Message string
	Err     error
}

func (e *SchemaError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Path == "" {
		return "schema: " + msg
	}
	return fmt.Sprintf("schema: %s: %s", e.Path, msg)
}

func (e *SchemaError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func schemaErr(path, format string, args ...any) *SchemaError {
	return &SchemaError{Path: path, Message: fmt.Sprintf(format, args...)}
}
