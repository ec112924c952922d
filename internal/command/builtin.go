package command

import (
	"fmt"

	"mec/internal/blob"
	"mec/internal/factory"
	"mec/internal/tobject"
)

// Builtin is the factory for the commands in this package.
type Builtin struct{}

// NewBuiltin returns the builtin command factory.
func NewBuiltin() factory.Factory { return Builtin{} }

// Verbs lists the command names the builtin factory builds.
func Verbs() []string {
	return []string{
		"log", "pass", "fail", "setenv",
		VerbOpenWrite, VerbOpenAppend, VerbWrite, VerbWriteLine, VerbClose,
		VerbOpen, VerbRead, VerbReadAll,
		"if", "group", "expect", "flow",
	}
}

func (Builtin) Category() string { return factory.CategoryCommand }

func (Builtin) Deinitialize() {}

// Construct builds a builtin command. Unknown names are declined with
// (nil, nil).
func (Builtin) Construct(name string, data *blob.Blob, construct factory.Constructor) (tobject.TObject, error) {
	s := blob.NewStructured()
	if data.Len() > 0 {
		var err error
		if s, err = blob.ParseStructured(data); err != nil {
			return nil, err
		}
	}
	params, _ := s.GetStrings("parameters")
	if s.Has("parameters") && params == nil {
		return nil, fmt.Errorf("%s: parameters must be an array of scalars", name)
	}

	switch name {
	case "log":
		return NewLog(params...), nil
	case "pass":
		return NewPass(params...), nil
	case "fail":
		return NewFail(params...), nil
	case "setenv":
		if len(params) == 0 {
			return nil, fmt.Errorf("setenv needs a key")
		}
		return NewSetEnv(params[0], params[1:]...), nil
	case VerbOpenWrite, VerbOpenAppend, VerbWrite, VerbWriteLine, VerbClose:
		if len(params) == 0 {
			return nil, fmt.Errorf("%s needs a target", name)
		}
		return NewCons(name, params...), nil
	case VerbOpen, VerbRead, VerbReadAll:
		if len(params) == 0 {
			return nil, fmt.Errorf("%s needs a target", name)
		}
		return NewProd(name, params...), nil
	case "expect":
		if len(params) == 0 {
			return nil, fmt.Errorf("expect needs an outlet")
		}
		return NewExpect(params[0], params[1:]...), nil
	case "flow":
		if len(params) < 2 {
			return nil, fmt.Errorf("flow needs a consumer and at least one producer")
		}
		return NewFlow(params[0], params[1:]...), nil
	case "group":
		children, err := factory.ConstructAll(construct, factory.CategoryCommand, s, "commands")
		if err != nil {
			return nil, err
		}
		return NewGroup(children...), nil
	case "if":
		if len(params) == 0 {
			return nil, fmt.Errorf("if needs a condition")
		}
		then, err := branch(construct, s, "then")
		if err != nil {
			return nil, err
		}
		els, err := branch(construct, s, "else")
		if err != nil {
			return nil, err
		}
		return NewIf(tobject.ParseOperation(params), then, els), nil
	default:
		return nil, nil
	}
}

func branch(construct factory.Constructor, s *blob.Structured, field string) (tobject.TObject, error) {
	if !s.Has(field) {
		return nil, nil
	}
	b, ok := s.GetObject(field)
	if !ok {
		return nil, fmt.Errorf("%q must be an object", field)
	}
	obj, err := factory.ConstructEmbedded(construct, factory.CategoryCommand, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return obj, nil
}
