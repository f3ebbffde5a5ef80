package aqua

import (
	"strconv"
)

// Kind identifies which variant of a Value is active.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindText
	KindChannel
)

// Value is the runtime representation of every Aqua datum. It is a closed
// tagged union: exactly one variant is active at a time, selected by Kind.
// Values are copied by value; only the channel variant carries a shared
// reference, and the referenced Channel outlives any single holder.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	ch   *Channel
}

// NullValue returns the null value.
func NullValue() Value {
	return Value{kind: KindNull}
}

// BoolValue wraps a boolean.
func BoolValue(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// IntValue wraps a 64-bit integer.
func IntValue(i int64) Value {
	return Value{kind: KindInt, i: i}
}

// FloatValue wraps a 64-bit float.
func FloatValue(f float64) Value {
	return Value{kind: KindFloat, f: f}
}

// TextValue wraps a string.
func TextValue(s string) Value {
	return Value{kind: KindText, s: s}
}

// ChannelValue wraps a channel handle. A nil channel yields the null value.
func ChannelValue(ch *Channel) Value {
	if ch == nil {
		return NullValue()
	}
	return Value{kind: KindChannel, ch: ch}
}

// Kind reports the active variant.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the value is null.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Bool returns the boolean payload. The second result is false when the
// value is not a boolean.
func (v Value) Bool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// Int returns the integer payload.
func (v Value) Int() (int64, bool) {
	return v.i, v.kind == KindInt
}

// Float returns the float payload.
func (v Value) Float() (float64, bool) {
	return v.f, v.kind == KindFloat
}

// Text returns the string payload.
func (v Value) Text() (string, bool) {
	return v.s, v.kind == KindText
}

// ChannelHandle returns the channel payload.
func (v Value) ChannelHandle() (*Channel, bool) {
	return v.ch, v.kind == KindChannel
}

// TypeName returns the Aqua-level type name of the active variant.
func (v Value) TypeName() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "string"
	case KindChannel:
		return "channel"
	}
	return "unknown"
}

// String renders the value for display, dispatched on the active tag.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindText:
		return v.s
	case KindChannel:
		return "channel"
	}
	return "unknown"
}

// Equal reports tag-dispatched equality. Values of different kinds are never
// equal; channel handles compare by identity.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f
	case KindText:
		return v.s == other.s
	case KindChannel:
		return v.ch == other.ch
	}
	return false
}
