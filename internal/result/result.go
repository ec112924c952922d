// Package result defines Result, the tagged union returned by every operation
// of the test runtime.
package result

import (
	"fmt"
	"strconv"
	"strings"

	"mec/internal/blob"
)

// Kind identifies the populated variant of a Result.
type Kind int

const (
	KindUnset Kind = iota
	KindFatal
	KindBool
	KindInt
	KindString
	KindBlob
	KindObject
	KindCommand
	KindIterator
)

var kindNames = map[Kind]string{
	KindUnset:    "unset",
	KindFatal:    "fatal",
	KindBool:     "boolean",
	KindInt:      "integer",
	KindString:   "string",
	KindBlob:     "blob",
	KindObject:   "object",
	KindCommand:  "command",
	KindIterator: "iterator",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// Incomparable is returned by Compare when the two results have no ordering.
const Incomparable = -2

// Object is the minimal view of a test object held by the object and command
// variants.
type Object interface {
	Name() string
}

// Cursor is the minimal view of an iterator held by the iterator variant.
type Cursor interface {
	Done() bool
}

// Result is an immutable tagged union. The zero value is unset.
type Result struct {
	kind Kind
	b    bool
	i    int64
	s    string
	blob *blob.Blob
	obj  Object
	cur  Cursor
}

// Unset returns the unset result. It is equal to Result{}.
func Unset() Result { return Result{} }

// Fatal returns the fatal result.
func Fatal() Result { return Result{kind: KindFatal} }

// Bool returns a boolean result.
func Bool(v bool) Result { return Result{kind: KindBool, b: v} }

// True and False are the two boolean results.
var (
	True  = Bool(true)
	False = Bool(false)
)

// Int returns an integer result.
func Int(v int64) Result { return Result{kind: KindInt, i: v} }

// String returns a string result.
func String(v string) Result { return Result{kind: KindString, s: v} }

// Blob returns a result holding a blob handle.
func Blob(v *blob.Blob) Result { return Result{kind: KindBlob, blob: v} }

// ObjectOf returns a result holding an object handle.
func ObjectOf(v Object) Result { return Result{kind: KindObject, obj: v} }

// CommandOf returns a result holding a command handle.
func CommandOf(v Object) Result { return Result{kind: KindCommand, obj: v} }

// IteratorOf returns a result holding an iterator handle.
func IteratorOf(v Cursor) Result { return Result{kind: KindIterator, cur: v} }

// Kind returns the populated variant.
func (r Result) Kind() Kind { return r.kind }

// IsSet reports whether any variant, including fatal, is populated.
func (r Result) IsSet() bool { return r.kind != KindUnset }

// IsFatal reports whether the result is fatal.
func (r Result) IsFatal() bool { return r.kind == KindFatal }

// IsBool reports whether the result is a boolean.
func (r Result) IsBool() bool { return r.kind == KindBool }

// Truthy is the boolean coercion: unset, fatal and boolean(false) are false,
// everything else is true.
func (r Result) Truthy() bool {
	switch r.kind {
	case KindUnset, KindFatal:
		return false
	case KindBool:
		return r.b
	default:
		return true
	}
}

// AsBool returns the boolean variant.
func (r Result) AsBool() (bool, bool) {
	if r.kind != KindBool {
		return false, false
	}
	return r.b, true
}

// AsInt returns the integer variant.
func (r Result) AsInt() (int64, bool) {
	if r.kind != KindInt {
		return 0, false
	}
	return r.i, true
}

// AsString returns the string variant.
func (r Result) AsString() (string, bool) {
	if r.kind != KindString {
		return "", false
	}
	return r.s, true
}

// AsBlob returns the blob variant.
func (r Result) AsBlob() (*blob.Blob, bool) {
	if r.kind != KindBlob {
		return nil, false
	}
	return r.blob, true
}

// AsObject returns the object variant.
func (r Result) AsObject() (Object, bool) {
	if r.kind != KindObject {
		return nil, false
	}
	return r.obj, true
}

// AsCommand returns the command variant.
func (r Result) AsCommand() (Object, bool) {
	if r.kind != KindCommand {
		return nil, false
	}
	return r.obj, true
}

// AsIterator returns the iterator variant.
func (r Result) AsIterator() (Cursor, bool) {
	if r.kind != KindIterator {
		return nil, false
	}
	return r.cur, true
}

// Compare orders booleans (false < true), integers and strings. Every other
// pairing, including mismatched kinds and unset operands, is Incomparable.
func (r Result) Compare(o Result) int {
	if r.kind != o.kind {
		return Incomparable
	}
	switch r.kind {
	case KindBool:
		switch {
		case r.b == o.b:
			return 0
		case !r.b:
			return -1
		default:
			return 1
		}
	case KindInt:
		switch {
		case r.i < o.i:
			return -1
		case r.i > o.i:
			return 1
		default:
			return 0
		}
	case KindString:
		return strings.Compare(r.s, o.s)
	default:
		return Incomparable
	}
}

// Equal compares scalars by value, blobs by content and handles by identity.
// Two unset or two fatal results are equal.
func (r Result) Equal(o Result) bool {
	if r.kind != o.kind {
		return false
	}
	switch r.kind {
	case KindUnset, KindFatal:
		return true
	case KindBool:
		return r.b == o.b
	case KindInt:
		return r.i == o.i
	case KindString:
		return r.s == o.s
	case KindBlob:
		return r.blob.Equal(o.blob)
	case KindObject, KindCommand:
		return r.obj == o.obj
	case KindIterator:
		return r.cur == o.cur
	default:
		return false
	}
}

// Text renders scalar variants as plain text; used when a result is written
// to a transport or compared against a literal.
func (r Result) Text() string {
	switch r.kind {
	case KindBool:
		return strconv.FormatBool(r.b)
	case KindInt:
		return strconv.FormatInt(r.i, 10)
	case KindString:
		return r.s
	case KindBlob:
		return r.blob.String()
	case KindObject, KindCommand:
		if r.obj == nil {
			return ""
		}
		return r.obj.Name()
	default:
		return ""
	}
}

// String implements fmt.Stringer for diagnostics.
func (r Result) String() string {
	switch r.kind {
	case KindUnset:
		return "unset"
	case KindFatal:
		return "FATAL"
	case KindString:
		return fmt.Sprintf("string(%q)", r.s)
	case KindBlob:
		return fmt.Sprintf("blob(%d bytes)", r.blob.Len())
	case KindIterator:
		return "iterator"
	default:
		return fmt.Sprintf("%s(%s)", r.kind, r.Text())
	}
}
