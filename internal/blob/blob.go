// Package blob holds the opaque payload type moved between steps and the
// JSON-backed structured data used to serialize test objects.
package blob

import (
	"bytes"
	"fmt"

	"sigs.k8s.io/yaml"
)

// Well-known blob types. The type is a hint for consumers, never enforced.
const (
	TypeRaw        = "raw"
	TypeText       = "text"
	TypeStructured = "application/json"
)

// Blob is an opaque, possibly typed payload.
type Blob struct {
	Type string
	Data []byte
}

// New returns a blob of the given type holding data. The slice is not copied.
func New(typ string, data []byte) *Blob {
	return &Blob{Type: typ, Data: data}
}

// FromString returns a text blob holding s.
func FromString(s string) *Blob {
	return &Blob{Type: TypeText, Data: []byte(s)}
}

// FromYAML converts a YAML document into a structured (JSON) blob.
func FromYAML(data []byte) (*Blob, error) {
	j, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to convert YAML to JSON: %w", err)
	}
	return &Blob{Type: TypeStructured, Data: j}, nil
}

// ToYAML converts a structured blob into a YAML document. Keys come out
// sorted.
func (b *Blob) ToYAML() ([]byte, error) {
	y, err := yaml.JSONToYAML(b.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to convert JSON to YAML: %w", err)
	}
	return y, nil
}

// Len returns the payload size; a nil blob has length zero.
func (b *Blob) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Data)
}

// String returns the payload as a string.
func (b *Blob) String() string {
	if b == nil {
		return ""
	}
	return string(b.Data)
}

// Clone returns a deep copy of the blob.
func (b *Blob) Clone() *Blob {
	if b == nil {
		return nil
	}
	return &Blob{Type: b.Type, Data: bytes.Clone(b.Data)}
}

// Equal reports whether both blobs have the same type and content.
func (b *Blob) Equal(o *Blob) bool {
	if b == nil || o == nil {
		return b == o
	}
	return b.Type == o.Type && bytes.Equal(b.Data, o.Data)
}
