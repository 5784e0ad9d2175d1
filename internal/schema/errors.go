package schema

import (
	"errors"
	"fmt"
)

var (
	ErrNoFields            = errors.New("message.fields is required")
	ErrUnknownLengthTarget = errors.New("length_of references a field that does not exist")
	ErrLengthCycle         = errors.New("circular length_of dependency")
	ErrInvalidPort         = errors.New("invalid port number")
	ErrDuplicateField      = errors.New("duplicate field name")
	ErrInvalidField        = errors.New("invalid field definition")
	ErrUnknownEncoding     = errors.New("unknown text encoding")
)

// SchemaError reports why a schema was rejected. Field is empty for
// message- or transport-level problems.
type SchemaError struct {
	Field  string
	Err    error
	Detail string
}

func (e *SchemaError) Error() string {
	msg := "schema: "
	if e.Field != "" {
		msg += fmt.Sprintf("field %q: ", e.Field)
	}
	msg += e.Err.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

func fieldError(field string, err error, format string, args ...any) *SchemaError {
	return &SchemaError{Field: field, Err: err, Detail: fmt.Sprintf(format, args...)}
}
