package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ValueKind identifies which variant a ConfigValue holds.
type ValueKind int

const (
	KindInvalid ValueKind = iota
	KindString
	KindNumber
	KindBoolean
	KindArray
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindArray:
		return "array"
	default:
		return "invalid"
	}
}

// ConfigValue is the generic value used at the key/value mutation boundary.
// Exactly one of String, Number, Boolean or Array is set.
type ConfigValue struct {
	kind ValueKind
	str  string
	num  int64
	flag bool
	arr  []string
}

// StringValue wraps a string.
func StringValue(s string) ConfigValue { return ConfigValue{kind: KindString, str: s} }

// NumberValue wraps an integer.
func NumberValue(n int64) ConfigValue { return ConfigValue{kind: KindNumber, num: n} }

// BooleanValue wraps a boolean.
func BooleanValue(b bool) ConfigValue { return ConfigValue{kind: KindBoolean, flag: b} }

// ArrayValue wraps a list of strings. The slice is copied.
func ArrayValue(items []string) ConfigValue {
	arr := make([]string, len(items))
	copy(arr, items)
	return ConfigValue{kind: KindArray, arr: arr}
}

// Kind returns the variant held by v.
func (v ConfigValue) Kind() ValueKind { return v.kind }

// AsString returns the string variant.
func (v ConfigValue) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsNumber returns the number variant.
func (v ConfigValue) AsNumber() (int64, bool) { return v.num, v.kind == KindNumber }

// AsBoolean returns the boolean variant.
func (v ConfigValue) AsBoolean() (bool, bool) { return v.flag, v.kind == KindBoolean }

// AsArray returns a copy of the array variant.
func (v ConfigValue) AsArray() ([]string, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	out := make([]string, len(v.arr))
	copy(out, v.arr)
	return out, true
}

// Interface returns the underlying Go value (string, int64, bool or []string).
func (v ConfigValue) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBoolean:
		return v.flag
	case KindArray:
		out, _ := v.AsArray()
		return out
	default:
		return nil
	}
}

// Equal reports whether two values hold the same variant and content.
func (v ConfigValue) Equal(other ConfigValue) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == other.str
	case KindNumber:
		return v.num == other.num
	case KindBoolean:
		return v.flag == other.flag
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if v.arr[i] != other.arr[i] {
				return false
			}
		}
		return true
	}
	return true
}

func (v ConfigValue) String() string {
	switch v.kind {
	case KindString:
		return fmt.Sprintf("%q", v.str)
	case KindArray:
		data, _ := json.Marshal(v.arr)
		return string(data)
	default:
		return fmt.Sprint(v.Interface())
	}
}

// MarshalJSON encodes the value untagged.
func (v ConfigValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON accepts a string, an integer, a boolean or an array of strings.
func (v *ConfigValue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ValueFromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ErrInvalidValue is returned when a raw value has no ConfigValue variant.
var ErrInvalidValue = errors.New("invalid config value")

// ValueFromAny converts a decoded JSON/YAML value into a ConfigValue.
// Numbers must be integral and fit in an int64.
func ValueFromAny(raw any) (ConfigValue, error) {
	switch x := raw.(type) {
	case ConfigValue:
		return x, nil
	case string:
		return StringValue(x), nil
	case bool:
		return BooleanValue(x), nil
	case int:
		return NumberValue(int64(x)), nil
	case int32:
		return NumberValue(int64(x)), nil
	case int64:
		return NumberValue(x), nil
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return ConfigValue{}, fmt.Errorf("%w: %s is not an integer", ErrInvalidValue, x)
		}
		return NumberValue(n), nil
	case float64:
		if math.Trunc(x) != x || x < math.MinInt64 || x >= math.MaxInt64 {
			return ConfigValue{}, fmt.Errorf("%w: %v is not an integer", ErrInvalidValue, x)
		}
		return NumberValue(int64(x)), nil
	case []string:
		return ArrayValue(x), nil
	case []any:
		items := make([]string, 0, len(x))
		for i, elem := range x {
			s, ok := elem.(string)
			if !ok {
				return ConfigValue{}, fmt.Errorf("%w: array element %d is %T, not a string", ErrInvalidValue, i, elem)
			}
			items = append(items, s)
		}
		return ArrayValue(items), nil
	case nil:
		return ConfigValue{}, fmt.Errorf("%w: null", ErrInvalidValue)
	default:
		return ConfigValue{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidValue, raw)
	}
}
