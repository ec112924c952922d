package tobject

import "strings"

// Operation is a named predicate or action applied to a TObject through
// SupportsOperation/ApplyOperation, e.g. {Name: "state", Args: ["PREPARED"]}.
type Operation struct {
	Name string
	Args []string
}

// NewOperation builds an operation.
func NewOperation(name string, args ...string) Operation {
	return Operation{Name: name, Args: args}
}

// ParseOperation builds an operation from fields, the first being the name.
func ParseOperation(fields []string) Operation {
	if len(fields) == 0 {
		return Operation{}
	}
	return Operation{Name: fields[0], Args: append([]string(nil), fields[1:]...)}
}

// Arg returns the i-th argument or "".
func (o Operation) Arg(i int) string {
	if i < 0 || i >= len(o.Args) {
		return ""
	}
	return o.Args[i]
}

// Fields is the inverse of ParseOperation.
func (o Operation) Fields() []string {
	return append([]string{o.Name}, o.Args...)
}

func (o Operation) String() string {
	return strings.Join(o.Fields(), " ")
}
