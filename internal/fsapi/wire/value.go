package wire

import (
	"fmt"
	"strconv"
)

// Kind is the decoded representation of a Value.
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindString
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	default:
		return "invalid"
	}
}

// Wire type markers. The child tag of <value> (or <field>) names the type.
const (
	TypeC8Array = "c8_array"
	TypeU8      = "u8"
	TypeU16     = "u16"
	TypeU32     = "u32"
	TypeS8      = "s8"
	TypeS16     = "s16"
	TypeS32     = "s32"
	TypeArray   = "array"
)

var typeKinds = map[string]Kind{
	TypeC8Array: KindString,
	TypeU8:      KindInt,
	TypeU16:     KindInt,
	TypeU32:     KindInt,
	TypeS8:      KindInt,
	TypeS16:     KindInt,
	TypeS32:     KindInt,
	TypeArray:   KindBytes,
}

// KindOf returns the kind a wire type marker decodes to.
func KindOf(typ string) (Kind, bool) {
	k, ok := typeKinds[typ]
	return k, ok
}

// Value is a tagged union over the FSAPI value kinds. The zero Value is invalid.
type Value struct {
	kind Kind
	typ  string
	b    bool
	i    int64
	s    string
	raw  []byte

	// Label is the semantic name of an enumerated integer, filled in by the
	// dispatcher when the capability has a label list.
	Label string
}

// BoolValue wraps a boolean.
func BoolValue(v bool) Value { return Value{kind: KindBool, b: v} }

// IntValue wraps an integer.
func IntValue(v int64) Value { return Value{kind: KindInt, i: v} }

// TextValue wraps a string.
func TextValue(v string) Value { return Value{kind: KindString, typ: TypeC8Array, s: v} }

// BytesValue wraps a raw byte sequence. The slice is copied.
func BytesValue(v []byte) Value {
	return Value{kind: KindBytes, typ: TypeArray, raw: append([]byte(nil), v...)}
}

// Kind returns the value's tag.
func (v Value) Kind() Kind { return v.kind }

// Type returns the wire type marker the value was decoded from, if any.
func (v Value) Type() string { return v.typ }

// IsValid reports whether v holds a value.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInt }

func (v Value) Text() (string, bool) { return v.s, v.kind == KindString }

func (v Value) Bytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return append([]byte(nil), v.raw...), true
}

// WithLabel returns a copy of v carrying an enum label.
func (v Value) WithLabel(label string) Value {
	v.Label = label
	return v
}

// Encode renders the value in the form SET expects before query escaping.
func (v Value) Encode() (string, error) {
	switch v.kind {
	case KindBool:
		if v.b {
			return "1", nil
		}
		return "0", nil
	case KindInt:
		return strconv.FormatInt(v.i, 10), nil
	case KindString:
		return v.s, nil
	case KindBytes:
		return string(v.raw), nil
	default:
		return "", fmt.Errorf("cannot encode invalid value")
	}
}

// Interface returns the value as a plain Go value (bool, int64, string or []byte).
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindString:
		return v.s
	case KindBytes:
		b, _ := v.Bytes()
		return b
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		if v.Label != "" {
			return fmt.Sprintf("%d (%s)", v.i, v.Label)
		}
		return strconv.FormatInt(v.i, 10)
	case KindString:
		return v.s
	case KindBytes:
		return fmt.Sprintf("%x", v.raw)
	default:
		return "<invalid>"
	}
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind || v.Label != other.Label {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == other.b
	case KindInt:
		return v.i == other.i
	case KindString:
		return v.s == other.s
	case KindBytes:
		return string(v.raw) == string(other.raw)
	default:
		return true
	}
}

func decodeTyped(typ, text string) (Value, error) {
	kind, ok := typeKinds[typ]
	if !ok {
		return Value{}, &ProtocolError{Reason: fmt.Sprintf("unknown value type %q", typ)}
	}
	switch kind {
	case KindString:
		return Value{kind: KindString, typ: typ, s: text}, nil
	case KindBytes:
		return Value{kind: KindBytes, typ: typ, raw: []byte(text)}, nil
	}

	var (
		n   int64
		err error
	)
	switch typ {
	case TypeU8:
		var u uint64
		u, err = strconv.ParseUint(text, 10, 8)
		n = int64(u)
	case TypeU16:
		var u uint64
		u, err = strconv.ParseUint(text, 10, 16)
		n = int64(u)
	case TypeU32:
		var u uint64
		u, err = strconv.ParseUint(text, 10, 32)
		n = int64(u)
	case TypeS8:
		n, err = strconv.ParseInt(text, 10, 8)
	case TypeS16:
		n, err = strconv.ParseInt(text, 10, 16)
	case TypeS32:
		n, err = strconv.ParseInt(text, 10, 32)
	}
	if err != nil {
		return Value{}, &ProtocolError{Reason: fmt.Sprintf("invalid %s value %q", typ, text), Err: err}
	}
	return Value{kind: KindInt, typ: typ, i: n}, nil
}
