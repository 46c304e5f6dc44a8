package entity

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueType discriminates the variants of Value.
type ValueType int

// Value variants.
const (
	TypeNone ValueType = iota
	TypeBool
	TypeFloat
	TypeInt
	TypeString
)

// Value is a small tagged union for entity state. Using a closed set of
// variants keeps the API and history layers free of reflection and gives
// cheap equality for change detection.
type Value struct {
	t ValueType
	b bool
	f float64
	i int64
	s string
}

// None returns the absent value. Entities report it when their backing
// field is missing from the snapshot.
func None() Value { return Value{} }

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{t: TypeBool, b: b} }

// FloatValue wraps a float64.
func FloatValue(f float64) Value { return Value{t: TypeFloat, f: f} }

// IntValue wraps an int64.
func IntValue(i int64) Value { return Value{t: TypeInt, i: i} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{t: TypeString, s: s} }

// Type returns the variant tag.
func (v Value) Type() ValueType { return v.t }

// IsNone reports whether the value is absent.
func (v Value) IsNone() bool { return v.t == TypeNone }

// AsBool returns the bool variant, reporting whether v holds one.
func (v Value) AsBool() (bool, bool) { return v.b, v.t == TypeBool }

// AsFloat returns a numeric value as float64 (float or int variant).
func (v Value) AsFloat() (float64, bool) {
	switch v.t {
	case TypeFloat:
		return v.f, true
	case TypeInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// AsInt returns the int variant.
func (v Value) AsInt() (int64, bool) { return v.i, v.t == TypeInt }

// AsString returns the string variant.
func (v Value) AsString() (string, bool) { return v.s, v.t == TypeString }

// Equal reports whether two values have the same variant and payload.
func (v Value) Equal(o Value) bool { return v == o }

// Interface returns the underlying Go value, or nil for none.
func (v Value) Interface() any {
	switch v.t {
	case TypeBool:
		return v.b
	case TypeFloat:
		return v.f
	case TypeInt:
		return v.i
	case TypeString:
		return v.s
	default:
		return nil
	}
}

// String formats the value for logs and diagnostics.
func (v Value) String() string {
	switch v.t {
	case TypeBool:
		return strconv.FormatBool(v.b)
	case TypeFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case TypeInt:
		return strconv.FormatInt(v.i, 10)
	case TypeString:
		return v.s
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the underlying value, or null for none.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes JSON primitives into the matching variant.
// Whole-number JSON values become the int variant.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch val := raw.(type) {
	case nil:
		*v = None()
	case bool:
		*v = BoolValue(val)
	case float64:
		if val == float64(int64(val)) {
			*v = IntValue(int64(val))
		} else {
			*v = FloatValue(val)
		}
	case string:
		*v = StringValue(val)
	default:
		return fmt.Errorf("%w: unsupported JSON type %T", ErrInvalidValue, raw)
	}
	return nil
}
