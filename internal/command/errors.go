package command

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode is matched by every *DecodeError.
	ErrDecode = errors.New("command: payload is not valid JSON")

	// ErrSchema is matched by every *SchemaError.
	ErrSchema = errors.New("command: payload does not match schema")
)

// DecodeError reports a payload that is not a single well-formed JSON value.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v: %v", ErrDecode, e.Err)
}

// Unwrap returns the underlying parser error.
func (e *DecodeError) Unwrap() error { return e.Err }

// Is reports whether target is ErrDecode.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// SchemaError reports a parsed payload with a missing or mistyped field.
type SchemaError struct {
	// Component is empty when the envelope itself is wrong.
	Component string
	Field     string
	Reason    string
}

func (e *SchemaError) Error() string {
	switch {
	case e.Component == "" && e.Field == "":
		return fmt.Sprintf("%v: %s", ErrSchema, e.Reason)
	case e.Component == "":
		return fmt.Sprintf("%v: %s %s", ErrSchema, e.Field, e.Reason)
	default:
		return fmt.Sprintf("%v: %s: %s %s", ErrSchema, e.Component, e.Field, e.Reason)
	}
}

// Is reports whether target is ErrSchema.
func (e *SchemaError) Is(target error) bool { return target == ErrSchema }
