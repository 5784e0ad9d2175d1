// Package generator synthesizes well-formed messages from a protocol schema.
//
// Generation runs in three passes: independent fields get their values,
// derived length fields are set to the serialized size of their targets,
// and finally every field is serialized in declaration order while its
// byte span is recorded.
package generator

import (
	"math"
	"math/rand"

	"github.com/fluxprobe/fluxprobe/internal/schema"
)

// Span is the half-open byte range [Start, End) a field occupies.
type Span struct {
	Start int
	End   int
}

// Len returns the span width.
func (s Span) Len() int {
	return s.End - s.Start
}

// Message is one generated frame. It is not modified after Generate returns.
type Message struct {
	Data   []byte
	Values map[string]schema.Value
	Spans  map[string]Span
}

// Generate produces one valid message for s using rng as the only source of
// randomness, so equal seeds yield equal messages.
func Generate(s *schema.ProtocolSchema, rng *rand.Rand) (*Message, error) {
	fields := s.Message.Fields
	values := make(map[string]schema.Value, len(fields))

	for _, f := range fields {
		if f.IsDerived() {
			continue
		}
		v, err := resolveValue(f, rng)
		if err != nil {
			return nil, err
		}
		values[f.Name] = v
	}

	for _, f := range s.DerivedFields() {
		target, ok := s.Field(f.LengthOf)
		tv, resolved := values[f.LengthOf]
		if !ok || !resolved {
			values[f.Name] = schema.IntValue(0)
			continue
		}
		encoded, err := Encode(target, tv)
		if err != nil {
			return nil, err
		}
		values[f.Name] = schema.IntValue(int64(len(encoded)))
	}

	data := make([]byte, 0, 64)
	spans := make(map[string]Span, len(fields))
	for _, f := range fields {
		encoded, err := Encode(f, values[f.Name])
		if err != nil {
			return nil, err
		}
		start := len(data)
		data = append(data, encoded...)
		spans[f.Name] = Span{Start: start, End: len(data)}
	}

	return &Message{Data: data, Values: values, Spans: spans}, nil
}

// resolveValue picks the logical value of an independent field.
func resolveValue(f schema.FieldSpec, rng *rand.Rand) (schema.Value, error) {
	if f.Default.IsSet() {
		return f.Default, nil
	}
	return RandomValue(f, rng)
}

// RandomValue draws a value for f, ignoring its default.
func RandomValue(f schema.FieldSpec, rng *rand.Rand) (schema.Value, error) {
	if len(f.Choices) > 0 {
		return f.Choices[rng.Intn(len(f.Choices))], nil
	}

	switch f.Type {
	case schema.TypeU8, schema.TypeU16, schema.TypeU32, schema.TypeEnum:
		min, max := f.IntBounds()
		return schema.IntValue(randomInt(rng, min, max)), nil

	case schema.TypeBytes, schema.TypeString:
		if len(f.FuzzValues) > 0 && rng.Float64() < schema.FuzzValueProbability {
			return f.FuzzValues[rng.Intn(len(f.FuzzValues))], nil
		}
		min, max := f.LengthBounds()
		size := int(randomInt(rng, int64(min), int64(max)))
		if f.Type == schema.TypeString {
			return schema.StringValue(randomPrintable(rng, size)), nil
		}
		b := make([]byte, size)
		rng.Read(b)
		return schema.BytesValue(b), nil

	default:
		return schema.Value{}, &UnsupportedFieldTypeError{Field: f.Name, Type: f.RawType}
	}
}

// randomInt returns a uniform integer in [min, max]. An inverted range
// collapses to min. Ranges of 2^63 values or more are drawn from a uint64
// span so they cannot overflow Int63n.
func randomInt(rng *rand.Rand, min, max int64) int64 {
	if max <= min {
		return min
	}
	span := uint64(max) - uint64(min)
	if span < math.MaxInt64 {
		return min + rng.Int63n(int64(span)+1)
	}
	if span == math.MaxUint64 {
		return int64(rng.Uint64())
	}
	for {
		if v := rng.Uint64(); v <= span {
			return int64(uint64(min) + v)
		}
	}
}

const (
	printableLow  = 0x20
	printableHigh = 0x7E
)

func randomPrintable(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(printableLow + rng.Intn(printableHigh-printableLow+1))
	}
	return string(b)
}
