package model

import "fmt"

// ValueKind discriminates the scalar types a metadata value can hold.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
)

// Value is a scalar metadata value: string, number, or bool. Using a
// closed variant instead of any/interface{} keeps filter-by-equality
// semantics explicit and reflection-free.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
}

// String creates a string metadata value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number creates a numeric metadata value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Bool creates a boolean metadata value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind returns the value's scalar kind.
func (v Value) Kind() ValueKind { return v.kind }

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	default:
		return v.str == o.str
	}
}

// GoString renders the value for logs and error messages.
func (v Value) GoString() string {
	switch v.kind {
	case KindNumber:
		return fmt.Sprintf("%g", v.num)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	default:
		return v.str
	}
}

// Metadata is a string-keyed map of scalar values attached to a chunk.
type Metadata map[string]Value

// Matches reports whether every key/value pair in filter is present and
// equal in m. A nil or empty filter matches everything.
func (m Metadata) Matches(filter Metadata) bool {
	for k, want := range filter {
		got, ok := m[k]
		if !ok || !got.Equal(want) {
			return false
		}
	}
	return true
}

// Clone returns a shallow copy of the metadata map.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
