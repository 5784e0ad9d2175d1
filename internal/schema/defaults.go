package schema

import "time"

// Type defaults shared by validation, generation and mutation.
const (
	DefaultMinLength = 0
	DefaultMaxLength = 32

	DefaultStringEncoding = "ascii"
	DefaultBytesEncoding  = "latin-1"

	DefaultEnumWidth = 1
	MaxEnumWidth     = 4

	// FuzzValueProbability is the chance that a bytes or string field with
	// fuzz_values takes one of them instead of a random value.
	FuzzValueProbability = 0.3

	DefaultTransportType = "tcp"
	DefaultHost          = "127.0.0.1"
	DefaultTimeout       = time.Second

	MaxPort = 65535
)

// fixedWidths holds the serialized width of the fixed-size integer types.
var fixedWidths = map[FieldType]int{
	TypeU8:  1,
	TypeU16: 2,
	TypeU32: 4,
}

// MaxForWidth returns the largest unsigned value representable in width bytes.
func MaxForWidth(width int) int64 {
	if width <= 0 {
		return 0
	}
	if width >= 8 {
		width = 7
	}
	return int64(1)<<(8*uint(width)) - 1
}

// WidthForValue returns the smallest of 1, 2 or 4 bytes that holds v.
func WidthForValue(v int64) int {
	switch {
	case v <= 0xFF:
		return 1
	case v <= 0xFFFF:
		return 2
	default:
		return 4
	}
}
