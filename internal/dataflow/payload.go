package dataflow

import (
	"mec/internal/blob"
	"mec/internal/result"
)

// PayloadKind identifies what a Payload carries.
type PayloadKind int

const (
	PayloadNone PayloadKind = iota
	PayloadObject
	PayloadResult
	PayloadBlob
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadObject:
		return "object"
	case PayloadResult:
		return "result"
	case PayloadBlob:
		return "blob"
	default:
		return "none"
	}
}

// Payload is one item moved through a producer or consumer: a test object,
// a Result or an opaque Blob.
type Payload struct {
	kind   PayloadKind
	object result.Object
	res    result.Result
	blob   *blob.Blob
}

// ObjectPayload wraps a test object.
func ObjectPayload(o result.Object) Payload {
	return Payload{kind: PayloadObject, object: o}
}

// ResultPayload wraps a Result.
func ResultPayload(r result.Result) Payload {
	return Payload{kind: PayloadResult, res: r}
}

// BlobPayload wraps a Blob.
func BlobPayload(b *blob.Blob) Payload {
	return Payload{kind: PayloadBlob, blob: b}
}

// Kind returns the payload kind.
func (p Payload) Kind() PayloadKind { return p.kind }

// Object returns the wrapped test object, if any.
func (p Payload) Object() (result.Object, bool) {
	return p.object, p.kind == PayloadObject
}

// Result returns the wrapped Result, if any.
func (p Payload) Result() (result.Result, bool) {
	return p.res, p.kind == PayloadResult
}

// Blob returns the wrapped Blob, if any.
func (p Payload) Blob() (*blob.Blob, bool) {
	return p.blob, p.kind == PayloadBlob
}

// AsResult converts any payload into a Result: blobs become their text as a
// string result, objects become object handles.
func (p Payload) AsResult() result.Result {
	switch p.kind {
	case PayloadResult:
		return p.res
	case PayloadBlob:
		return result.String(p.blob.String())
	case PayloadObject:
		return result.ObjectOf(p.object)
	default:
		return result.Unset()
	}
}

// Bytes returns a textual rendering of blob and scalar result payloads.
// Object payloads have no byte form.
func (p Payload) Bytes() ([]byte, bool) {
	switch p.kind {
	case PayloadBlob:
		return p.blob.Data, true
	case PayloadResult:
		switch p.res.Kind() {
		case result.KindBool, result.KindInt, result.KindString, result.KindBlob:
			return []byte(p.res.Text()), true
		}
	}
	return nil, false
}
