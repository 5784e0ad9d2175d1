package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// ValueKind discriminates the logical value a field can hold.
type ValueKind int

const (
	KindNone ValueKind = iota
	KindInt
	KindString
	KindBytes
	// KindOther marks a decoded literal of a shape no field type can
	// serialize (bool, float, list, map). It survives parsing so the
	// generator can report it as a conversion error.
	KindOther
)

// Value is a resolved or literal field value.
type Value struct {
	Kind  ValueKind
	Int   int64
	Str   string
	Bytes []byte
	Other any
}

func IntValue(v int64) Value     { return Value{Kind: KindInt, Int: v} }
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }
func BytesValue(b []byte) Value  { return Value{Kind: KindBytes, Bytes: b} }

// ValueOf normalizes a value decoded from YAML or JSON.
func ValueOf(raw any) Value {
	switch v := raw.(type) {
	case nil:
		return Value{}
	case Value:
		return v
	case int:
		return IntValue(int64(v))
	case int8:
		return IntValue(int64(v))
	case int16:
		return IntValue(int64(v))
	case int32:
		return IntValue(int64(v))
	case int64:
		return IntValue(v)
	case uint:
		return uintValue(uint64(v))
	case uint8:
		return IntValue(int64(v))
	case uint16:
		return IntValue(int64(v))
	case uint32:
		return IntValue(int64(v))
	case uint64:
		return uintValue(v)
	case float64:
		if v == math.Trunc(v) && v >= math.MinInt64 && v <= math.MaxInt64 {
			return IntValue(int64(v))
		}
		return Value{Kind: KindOther, Other: v}
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return IntValue(n)
		}
		return Value{Kind: KindOther, Other: v.String()}
	case string:
		return StringValue(v)
	case []byte:
		return BytesValue(v)
	default:
		return Value{Kind: KindOther, Other: v}
	}
}

func uintValue(v uint64) Value {
	if v > math.MaxInt64 {
		return Value{Kind: KindOther, Other: v}
	}
	return IntValue(int64(v))
}

// IsSet reports whether the value carries anything.
func (v Value) IsSet() bool {
	return v.Kind != KindNone
}

// Equal compares two values by kind and content.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindInt:
		return v.Int == o.Int
	case KindString:
		return v.Str == o.Str
	case KindBytes:
		return bytes.Equal(v.Bytes, o.Bytes)
	case KindOther:
		return fmt.Sprint(v.Other) == fmt.Sprint(o.Other)
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindString:
		return fmt.Sprintf("%q", v.Str)
	case KindBytes:
		return fmt.Sprintf("%x", v.Bytes)
	case KindOther:
		return fmt.Sprintf("%v", v.Other)
	default:
		return "<none>"
	}
}

func valuesOf(raw []any) []Value {
	if len(raw) == 0 {
		return nil
	}
	out := make([]Value, len(raw))
	for i, r := range raw {
		out[i] = ValueOf(r)
	}
	return out
}
