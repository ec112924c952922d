package blob

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ErrNotStructured is returned when a blob does not hold a JSON object.
var ErrNotStructured = errors.New("blob does not contain a structured object")

// Structured is a JSON object with typed get/set/add/remove accessors for
// named scalars, arrays and nested structures. Nested values returned by the
// getters share storage with their parent.
type Structured struct {
	fields map[string]any
}

// NewStructured returns an empty structure.
func NewStructured() *Structured {
	return &Structured{fields: make(map[string]any)}
}

// ParseStructured decodes a blob holding a JSON object.
func ParseStructured(b *Blob) (*Structured, error) {
	if b == nil || len(b.Data) == 0 {
		return nil, ErrNotStructured
	}
	dec := json.NewDecoder(bytes.NewReader(b.Data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode structured data: %w", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotStructured
	}
	return &Structured{fields: m}, nil
}

// Blob encodes the structure as a JSON blob.
func (s *Structured) Blob() (*Blob, error) {
	data, err := json.Marshal(s.fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode structured data: %w", err)
	}
	return &Blob{Type: TypeStructured, Data: data}, nil
}

// MarshalJSON implements json.Marshaler.
func (s *Structured) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.fields)
}

// Keys returns the field names in sorted order.
func (s *Structured) Keys() []string {
	keys := make([]string, 0, len(s.fields))
	for k := range s.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether the field exists.
func (s *Structured) Has(name string) bool {
	_, ok := s.fields[name]
	return ok
}

// Remove deletes a field. Removing a missing field is a no-op.
func (s *Structured) Remove(name string) {
	delete(s.fields, name)
}

// GetString returns a scalar field rendered as a string.
func (s *Structured) GetString(name string) (string, bool) {
	v, ok := s.fields[name]
	if !ok {
		return "", false
	}
	return scalarString(v)
}

// SetString sets a string field.
func (s *Structured) SetString(name, value string) {
	s.fields[name] = value
}

// GetBool returns a boolean field. The strings "true" and "false" are
// accepted as well.
func (s *Structured) GetBool(name string) (bool, bool) {
	switch v := s.fields[name].(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(v)
		return b, err == nil
	default:
		return false, false
	}
}

// SetBool sets a boolean field.
func (s *Structured) SetBool(name string, value bool) {
	s.fields[name] = value
}

// GetStrings returns an array of scalars rendered as strings.
func (s *Structured) GetStrings(name string) ([]string, bool) {
	arr, ok := s.fields[name].([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		str, ok := scalarString(v)
		if !ok {
			return nil, false
		}
		out = append(out, str)
	}
	return out, true
}

// SetStrings sets an array-of-strings field.
func (s *Structured) SetStrings(name string, values []string) {
	arr := make([]any, 0, len(values))
	for _, v := range values {
		arr = append(arr, v)
	}
	s.fields[name] = arr
}

// AddString appends a string to an array field, creating it if needed.
func (s *Structured) AddString(name, value string) error {
	return s.add(name, value)
}

// GetObject returns a nested structure.
func (s *Structured) GetObject(name string) (*Structured, bool) {
	m, ok := s.fields[name].(map[string]any)
	if !ok {
		return nil, false
	}
	return &Structured{fields: m}, true
}

// SetObject sets a nested structure.
func (s *Structured) SetObject(name string, value *Structured) {
	s.fields[name] = value.fields
}

// GetObjects returns an array of nested structures.
func (s *Structured) GetObjects(name string) ([]*Structured, bool) {
	arr, ok := s.fields[name].([]any)
	if !ok {
		return nil, false
	}
	out := make([]*Structured, 0, len(arr))
	for _, v := range arr {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		out = append(out, &Structured{fields: m})
	}
	return out, true
}

// Element is one entry of an array that may mix scalars and structures.
// Object is nil for scalars.
type Element struct {
	Scalar string
	Object *Structured
}

// GetElements returns an array whose entries are scalars or structures.
func (s *Structured) GetElements(name string) ([]Element, bool) {
	arr, ok := s.fields[name].([]any)
	if !ok {
		return nil, false
	}
	out := make([]Element, 0, len(arr))
	for _, v := range arr {
		if m, ok := v.(map[string]any); ok {
			out = append(out, Element{Object: &Structured{fields: m}})
			continue
		}
		str, ok := scalarString(v)
		if !ok {
			return nil, false
		}
		out = append(out, Element{Scalar: str})
	}
	return out, true
}

// SetObjects sets an array-of-structures field. An empty slice is kept as an
// empty array.
func (s *Structured) SetObjects(name string, values []*Structured) {
	arr := make([]any, 0, len(values))
	for _, v := range values {
		arr = append(arr, v.fields)
	}
	s.fields[name] = arr
}

// AddObject appends a nested structure to an array field, creating it if needed.
func (s *Structured) AddObject(name string, value *Structured) error {
	return s.add(name, value.fields)
}

// StringMap returns every scalar field of the structure as a string map.
// Non-scalar fields are skipped.
func (s *Structured) StringMap() map[string]string {
	out := make(map[string]string, len(s.fields))
	for k, v := range s.fields {
		if str, ok := scalarString(v); ok {
			out[k] = str
		}
	}
	return out
}

func (s *Structured) add(name string, value any) error {
	cur, exists := s.fields[name]
	if !exists {
		s.fields[name] = []any{value}
		return nil
	}
	arr, ok := cur.([]any)
	if !ok {
		return fmt.Errorf("field %q is not an array", name)
	}
	s.fields[name] = append(arr, value)
	return nil
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	default:
		return "", false
	}
}
