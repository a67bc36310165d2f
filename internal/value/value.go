// Package value defines the tree values produced by hydration and
// consumed by dehydration.
//
// Value is the untyped form: Unit, Boolean, Number, ByteString,
// TextString, Record and List. Typed mirrors it with every node tagged by
// the layout that produced it; IntoUntyped strips the tags.
package value

import (
	"bytes"
	"fmt"
	"slices"
	"unicode/utf16"
)

// Kind identifies an untyped value variant.
type Kind uint8

const (
	KindUnit Kind = iota
	KindBoolean
	KindNumber
	KindByteString
	KindTextString
	KindRecord
	KindList
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindByteString:
		return "bytes"
	case KindTextString:
		return "text"
	case KindRecord:
		return "record"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Value is a sealed interface over the untyped value variants.
type Value interface {
	Kind() Kind
	isValue() // Sealed - only the types below implement it
}

// Unit is the single value of the unit type. Renders as JSON null.
type Unit struct{}

func (Unit) Kind() Kind { return KindUnit }
func (Unit) isValue()   {}

// Boolean is a boolean value.
type Boolean bool

func (Boolean) Kind() Kind { return KindBoolean }
func (Boolean) isValue()   {}

// ByteString is a byte string. It has no JSON rendering.
type ByteString []byte

func (ByteString) Kind() Kind { return KindByteString }
func (ByteString) isValue()   {}

// TextString is a text string.
type TextString string

func (TextString) Kind() Kind { return KindTextString }
func (TextString) isValue()   {}

// Record maps field names to values.
// Use SortedKeys for deterministic iteration.
type Record map[string]Value

func (Record) Kind() Kind { return KindRecord }
func (Record) isValue()   {}

// List is an ordered sequence of values.
type List []Value

func (List) Kind() Kind { return KindList }
func (List) isValue()   {}

// Pair is a key-value pair for record construction.
type Pair struct {
	Key   string
	Value Value
}

// P is a shorthand for Pair.
// Example: NewRecord(P("name", TextString("Alice")), P("age", Int(30)))
func P(key string, v Value) Pair {
	return Pair{Key: key, Value: v}
}

// NewRecord creates a record from pairs.
func NewRecord(pairs ...Pair) Record {
	r := make(Record, len(pairs))
	for _, p := range pairs {
		r[p.Key] = p.Value
	}
	return r
}

// NewList creates a list from values.
func NewList(vals ...Value) List {
	return List(vals)
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 byte order, which differs for characters
// outside the BMP.
func (r Record) SortedKeys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}

// Equal reports structural equality. Numbers compare by value, so 30 and
// 30.0 are equal; NaN equals NaN.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch a := a.(type) {
	case Unit:
		return true
	case Boolean:
		return a == b.(Boolean)
	case Number:
		return a.Equal(b.(Number))
	case ByteString:
		return bytes.Equal(a, b.(ByteString))
	case TextString:
		return a == b.(TextString)
	case Record:
		br := b.(Record)
		if len(a) != len(br) {
			return false
		}
		for k, av := range a {
			bv, ok := br[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case List:
		bl := b.(List)
		if len(a) != len(bl) {
			return false
		}
		for i := range a {
			if !Equal(a[i], bl[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
