package factory

import (
	"errors"
	"fmt"

	"mec/internal/blob"
	"mec/internal/tobject"
)

// ErrNotSerializable is returned for objects without a serialized form.
var ErrNotSerializable = errors.New("object cannot be serialized")

// Serializer is implemented by objects with a serialized form.
type Serializer interface {
	Serialize() (*blob.Structured, error)
}

// Serialize returns obj's serialized form.
func Serialize(obj tobject.TObject) (*blob.Structured, error) {
	s, ok := obj.(Serializer)
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotSerializable, obj.Name(), obj.Type())
	}
	return s.Serialize()
}

// SerializeAll serializes objs in order and fails on the first error.
func SerializeAll(objs []tobject.TObject) ([]*blob.Structured, error) {
	out := make([]*blob.Structured, 0, len(objs))
	for i, obj := range objs {
		s, err := Serialize(obj)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// ConstructEmbedded builds an object of category from a serialized form that
// carries its own "name" field.
func ConstructEmbedded(construct Constructor, category string, s *blob.Structured) (tobject.TObject, error) {
	name, ok := s.GetString("name")
	if !ok || name == "" {
		return nil, fmt.Errorf("%s entry has no name", category)
	}
	b, err := s.Blob()
	if err != nil {
		return nil, err
	}
	return construct(category, name, b)
}

// ConstructAll builds every entry of s's array field, failing as a whole on
// the first error. A missing field yields no objects.
func ConstructAll(construct Constructor, category string, s *blob.Structured, field string) ([]tobject.TObject, error) {
	if !s.Has(field) {
		return nil, nil
	}
	entries, ok := s.GetObjects(field)
	if !ok {
		return nil, fmt.Errorf("%q must be an array of objects", field)
	}
	out := make([]tobject.TObject, 0, len(entries))
	for i, e := range entries {
		obj, err := ConstructEmbedded(construct, category, e)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", field, i, err)
		}
		out = append(out, obj)
	}
	return out, nil
}
