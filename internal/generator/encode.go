package generator

import (
	"github.com/fluxprobe/fluxprobe/internal/schema"
)

// Encode serializes a logical value under the field's declared type.
// Integers are written big-endian at the field width, masked to that width;
// text goes through the field encoding, dropping unencodable characters;
// bytes pass through unchanged.
func Encode(field schema.FieldSpec, v schema.Value) ([]byte, error) {
	switch v.Kind {
	case schema.KindBytes:
		out := make([]byte, len(v.Bytes))
		copy(out, v.Bytes)
		return out, nil

	case schema.KindString:
		enc, err := schema.LookupEncoding(field.TextEncoding())
		if err != nil {
			return nil, &ValueConversionError{Field: field.Name, Value: v, Reason: err.Error()}
		}
		return enc.Encode(v.Str), nil

	case schema.KindInt:
		width := field.Width()
		if width == 0 {
			return nil, &ValueConversionError{
				Field:  field.Name,
				Value:  v,
				Reason: "integer value for " + field.Type.String() + " field",
			}
		}
		return PutUint(width, uint64(v.Int)), nil

	case schema.KindNone:
		return nil, &ValueConversionError{Field: field.Name, Value: v, Reason: "no value resolved"}

	default:
		return nil, &ValueConversionError{Field: field.Name, Value: v, Reason: "unsupported literal"}
	}
}

// PutUint writes the low width bytes of v big-endian.
func PutUint(width int, v uint64) []byte {
	out := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}

// Uint reads b as a big-endian unsigned integer. Slices longer than eight
// bytes keep only the low eight.
func Uint(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
