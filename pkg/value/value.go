// Package value implements ember's tagged value representation and the
// heap object model that backs it.
//
// A Value is a small, copyable tagged union: Nil, Bool, Number, or Object.
// Only Object carries a pointer — copying a Value-of-Object duplicates the
// handle, never the underlying object. Objects are created through the VM
// (see pkg/vm) and tracked there for bulk release at shutdown; this package
// only defines their shape.
package value

import (
	"fmt"
	"io"
	"strconv"
)

// Kind discriminates the variant a Value holds.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindObject
)

// Value is a tagged union over exactly four variants. The zero Value is Nil.
type Value struct {
	kind    Kind
	boolean bool
	number  float64
	obj     Object
}

// Nil is the single nil value.
var Nil = Value{kind: KindNil}

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, boolean: b} }

// Number wraps a float64.
func Number(n float64) Value { return Value{kind: KindNumber, number: n} }

// FromObject wraps a heap object handle.
func FromObject(o Object) Value { return Value{kind: KindObject, obj: o} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNil() bool    { return v.kind == KindNil }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsObject() bool { return v.kind == KindObject }

// AsBool returns v's boolean payload; it does not check the variant and
// returns false for a non-Bool. Callers check IsBool first.
func (v Value) AsBool() bool { return v.boolean }

// AsNumber returns v's number payload; it returns 0 for a non-Number.
func (v Value) AsNumber() float64 { return v.number }

// AsObject returns v's object handle; it returns nil for a non-Object.
func (v Value) AsObject() Object { return v.obj }

// IsString reports whether v holds a String object.
func (v Value) IsString() bool {
	return v.kind == KindObject && v.obj.Type() == ObjString
}

// AsString returns the underlying *StringObject; IsString must be true.
func (v Value) AsString() *StringObject {
	return v.obj.(*StringObject)
}

// Equal implements the equality relation from the data model: same variant
// and, within that variant, same bits. Numbers follow IEEE-754 equality
// (NaN != NaN, which Go's == already gives us). Objects compare by handle
// identity, which is sound because strings are interned.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindBool:
		return a.boolean == b.boolean
	case KindNumber:
		return a.number == b.number
	case KindObject:
		return a.obj == b.obj
	default:
		return false
	}
}

// IsFalsey reports whether v is one of the language's two falsey values.
func IsFalsey(v Value) bool {
	return v.kind == KindNil || (v.kind == KindBool && !v.boolean)
}

// Fprint writes the canonical printed representation of v, with no
// trailing newline.
func Fprint(w io.Writer, v Value) {
	switch v.kind {
	case KindNil:
		io.WriteString(w, "nil")
	case KindBool:
		if v.boolean {
			io.WriteString(w, "true")
		} else {
			io.WriteString(w, "false")
		}
	case KindNumber:
		io.WriteString(w, strconv.FormatFloat(v.number, 'g', -1, 64))
	case KindObject:
		switch o := v.obj.(type) {
		case *StringObject:
			io.WriteString(w, o.Chars)
		default:
			fmt.Fprintf(w, "<object %T>", o)
		}
	}
}

// String renders v the same way Fprint does, for use in error messages and
// %v formatting; it is not used on the hot path of OP_PRINT.
func (v Value) String() string {
	var b fprintBuilder
	Fprint(&b, v)
	return string(b)
}

type fprintBuilder []byte

func (b *fprintBuilder) Write(p []byte) (int, error) {
	*b = append(*b, p...)
	return len(p), nil
}

// TypeName returns a short human-readable name for v's variant, used in
// runtime error messages.
func (v Value) TypeName() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindObject:
		if v.IsString() {
			return "string"
		}
		return "object"
	default:
		return "unknown"
	}
}
