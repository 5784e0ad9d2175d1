package generator

import (
	"errors"
	"fmt"

	"github.com/fluxprobe/fluxprobe/internal/schema"
)

var (
	ErrUnsupportedFieldType = errors.New("unsupported field type")
	ErrValueConversion      = errors.New("cannot convert value")
)

// UnsupportedFieldTypeError is returned when a field's type is not one of
// the recognized kinds. It indicates a configuration bug.
type UnsupportedFieldTypeError struct {
	Field string
	Type  string
}

func (e *UnsupportedFieldTypeError) Error() string {
	return fmt.Sprintf("generator: field %q: unsupported field type %q", e.Field, e.Type)
}

func (e *UnsupportedFieldTypeError) Is(target error) bool {
	return target == ErrUnsupportedFieldType
}

// ValueConversionError is returned when a value cannot be serialized under
// its field's declared type.
type ValueConversionError struct {
	Field  string
	Value  schema.Value
	Reason string
}

func (e *ValueConversionError) Error() string {
	return fmt.Sprintf("generator: field %q: cannot convert value %s: %s", e.Field, e.Value, e.Reason)
}

func (e *ValueConversionError) Is(target error) bool {
	return target == ErrValueConversion
}
