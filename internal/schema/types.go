// Package schema models declarative binary message formats: typed fields,
// derived length relationships and the transport a message is sent over.
//
// A ProtocolSchema is validated once at construction and treated as
// read-only afterwards; generation and mutation share it freely.
package schema

import (
	"fmt"
	"strings"
	"time"
)

// FieldType is the closed set of field kinds a message can contain.
type FieldType int

const (
	TypeUnknown FieldType = iota
	TypeU8
	TypeU16
	TypeU32
	TypeEnum
	TypeBytes
	TypeString
)

// String returns the schema spelling of the type
func (t FieldType) String() string {
	switch t {
	case TypeU8:
		return "u8"
	case TypeU16:
		return "u16"
	case TypeU32:
		return "u32"
	case TypeEnum:
		return "enum"
	case TypeBytes:
		return "bytes"
	case TypeString:
		return "string"
	default:
		return "unknown"
	}
}

// ParseFieldType maps a schema type name to its FieldType, case-insensitively.
// Unrecognized names yield TypeUnknown.
func ParseFieldType(name string) FieldType {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "u8":
		return TypeU8
	case "u16":
		return TypeU16
	case "u32":
		return TypeU32
	case "enum":
		return TypeEnum
	case "bytes":
		return TypeBytes
	case "string":
		return TypeString
	default:
		return TypeUnknown
	}
}

// FieldSpec describes one field of a message.
type FieldSpec struct {
	Name string
	Type FieldType
	// RawType keeps the declared type name for diagnostics.
	RawType string

	Length   *int
	LengthOf string

	MinValue *int64
	MaxValue *int64

	MinLength *int
	MaxLength *int

	Choices    []Value
	Default    Value
	Encoding   string
	FuzzValues []Value
}

// IsDerived reports whether the field's value is the serialized length of another field.
func (f FieldSpec) IsDerived() bool {
	return f.LengthOf != ""
}

// IntChoices returns the integer members of Choices, ignoring other kinds.
func (f FieldSpec) IntChoices() []int64 {
	var out []int64
	for _, c := range f.Choices {
		if c.Kind == KindInt {
			out = append(out, c.Int)
		}
	}
	return out
}

// Width returns the serialized byte width of an integer-valued field.
// Enums use the explicit length when set, otherwise the smallest width that
// fits the largest integer choice, falling back to DefaultEnumWidth.
// Non-integer types report 0.
func (f FieldSpec) Width() int {
	if w, ok := fixedWidths[f.Type]; ok {
		return w
	}
	if f.Type != TypeEnum {
		return 0
	}
	if f.Length != nil && *f.Length > 0 {
		return *f.Length
	}
	ints := f.IntChoices()
	if len(ints) == 0 {
		return DefaultEnumWidth
	}
	max := ints[0]
	for _, v := range ints[1:] {
		if v > max {
			max = v
		}
	}
	return WidthForValue(max)
}

// IntBounds returns the inclusive range random integers are drawn from.
func (f FieldSpec) IntBounds() (int64, int64) {
	min, max := int64(0), MaxForWidth(f.Width())
	if f.MinValue != nil {
		min = *f.MinValue
	}
	if f.MaxValue != nil {
		max = *f.MaxValue
	}
	return min, max
}

// LengthBounds returns the inclusive size range for bytes and string fields.
// A fixed Length collapses the range.
func (f FieldSpec) LengthBounds() (int, int) {
	if f.Length != nil {
		return *f.Length, *f.Length
	}
	min, max := DefaultMinLength, DefaultMaxLength
	if f.MinLength != nil {
		min = *f.MinLength
	}
	if f.MaxLength != nil {
		max = *f.MaxLength
	}
	return min, max
}

// TextEncoding returns the encoding used to turn text values into bytes.
func (f FieldSpec) TextEncoding() string {
	if f.Encoding != "" {
		return f.Encoding
	}
	if f.Type == TypeBytes {
		return DefaultBytesEncoding
	}
	return DefaultStringEncoding
}

// MessageSpec is the ordered field list; order is serialization order.
type MessageSpec struct {
	Fields []FieldSpec
}

// TransportSpec tells the transport layer where and how to send frames.
// A zero Port means the caller must supply one.
type TransportSpec struct {
	Type    string
	Host    string
	Port    int
	Timeout time.Duration
}

// Address returns host:port suitable for net.Dial.
func (t TransportSpec) Address() string {
	host := t.Host
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		host = "[" + host + "]"
	}
	return fmt.Sprintf("%s:%d", host, t.Port)
}

// ProtocolSchema is a validated protocol description. Construct it with New,
// FromDocument or Load; do not modify it afterwards.
type ProtocolSchema struct {
	Name      string
	Transport TransportSpec
	Message   MessageSpec

	index   map[string]int
	derived []int
}

// New validates the parts and assembles a ProtocolSchema.
func New(name string, transport TransportSpec, fields []FieldSpec) (*ProtocolSchema, error) {
	if err := validatePort(transport.Port); err != nil {
		return nil, err
	}
	if transport.Type == "" {
		transport.Type = DefaultTransportType
	}
	transport.Type = strings.ToLower(transport.Type)
	if transport.Timeout <= 0 {
		transport.Timeout = DefaultTimeout
	}

	derived, err := validateFields(fields)
	if err != nil {
		return nil, err
	}

	copied := make([]FieldSpec, len(fields))
	copy(copied, fields)

	s := &ProtocolSchema{
		Name:      name,
		Transport: transport,
		Message:   MessageSpec{Fields: copied},
		index:     make(map[string]int, len(copied)),
		derived:   derived,
	}
	for i, f := range copied {
		s.index[f.Name] = i
	}
	return s, nil
}

// Field looks up a field by name.
func (s *ProtocolSchema) Field(name string) (FieldSpec, bool) {
	if s.index != nil {
		i, ok := s.index[name]
		if !ok {
			return FieldSpec{}, false
		}
		return s.Message.Fields[i], true
	}
	for _, f := range s.Message.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// DerivedFields returns the length_of fields in resolution order: every
// derived field appears after any derived field it targets.
func (s *ProtocolSchema) DerivedFields() []FieldSpec {
	order := s.derived
	if order == nil {
		// Built without New; resolve on the fly and fall back to
		// declaration order if the graph is inconsistent.
		var err error
		order, err = resolutionOrder(s.Message.Fields)
		if err != nil {
			order = order[:0]
			for i, f := range s.Message.Fields {
				if f.IsDerived() {
					order = append(order, i)
				}
			}
		}
	}
	out := make([]FieldSpec, 0, len(order))
	for _, i := range order {
		out = append(out, s.Message.Fields[i])
	}
	return out
}

// FieldsOfType returns the fields of the given type in declaration order.
func (s *ProtocolSchema) FieldsOfType(t FieldType) []FieldSpec {
	var out []FieldSpec
	for _, f := range s.Message.Fields {
		if f.Type == t {
			out = append(out, f)
		}
	}
	return out
}

// WithTarget returns a copy of the schema pointed at host and port. Empty
// host or zero port keep the current values.
func (s *ProtocolSchema) WithTarget(host string, port int) (*ProtocolSchema, error) {
	t := s.Transport
	if host != "" {
		t.Host = host
	}
	if port != 0 {
		t.Port = port
	}
	return New(s.Name, t, s.Message.Fields)
}
