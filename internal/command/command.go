// Package command implements the verbs a test case is made of: logging,
// opening/writing/reading/closing transports through outlets, branching,
// grouping and environment manipulation.
//
// Every command serializes as
//
//	{"name": "<verb>", "parameters": ["<arg>", ...]}
//
// and is rebuilt by the builtin factory from that name. Parameters are Go
// templates rendered against the run environment when the command runs, so
// "{{ .OUT }}/result.txt" picks up a suite environment value. A parameter
// starting with "raw:" is passed on literally without the prefix, which keeps
// payloads such as mustache text from being parsed as templates. Inside a
// template a literal brace pair is written {{"{{"}}.
package command

import (
	"os"
	"strings"

	"mec/internal/blob"
	"mec/internal/result"
	"mec/internal/template"
	"mec/internal/tobject"
	"mec/pkg/logging"
)

var (
	TypeCommand = tobject.RegisterType("command", tobject.TypeContainer)
	TypeLog     = tobject.RegisterType("command.log", TypeCommand)
	TypeCons    = tobject.RegisterType("command.cons", TypeCommand)
	TypeProd    = tobject.RegisterType("command.prod", TypeCommand)
	TypeIf      = tobject.RegisterType("command.if", TypeCommand)
	TypeGroup   = tobject.RegisterType("command.group", TypeCommand)
	TypeSetEnv  = tobject.RegisterType("command.setenv", TypeCommand)
	TypeExpect  = tobject.RegisterType("command.expect", TypeCommand)
	TypeFlow    = tobject.RegisterType("command.flow", TypeCommand)
	TypeStatus  = tobject.RegisterType("command.status", TypeCommand)
)

var engine = template.New()

// Command is a test object built from a verb and its parameters.
type Command interface {
	tobject.TObject
	Parameters() []string
	Serialize() (*blob.Structured, error)
}

// Base holds the parameters shared by every command.
type Base struct {
	tobject.Container
	params []string
}

func (b *Base) initCommand(self Command, verb string, typ *tobject.Type, params []string) {
	b.Init(self, verb, typ)
	b.params = append([]string(nil), params...)
}

// Parameters returns the raw, unrendered parameters.
func (b *Base) Parameters() []string { return append([]string(nil), b.params...) }

// RawPrefix marks a parameter that is not rendered as a template.
const RawPrefix = "raw:"

// Params renders the parameters against the run environment. A rendering
// error is logged and reported as ok=false.
func (b *Base) Params(ctx *tobject.RunContext) ([]string, bool) {
	var env map[string]string
	if ctx != nil {
		env = ctx.Environment
	}
	out := make([]string, len(b.params))
	for i, p := range b.params {
		if raw, ok := strings.CutPrefix(p, RawPrefix); ok {
			out[i] = raw
			continue
		}
		rendered, err := engine.Render(p, env)
		if err != nil {
			logging.Error("Command", err, "Failed to render parameter %d of %s", i, b.Name())
			return nil, false
		}
		out[i] = rendered
	}
	return out, true
}

// Serialize returns {"name", "parameters"}.
func (b *Base) Serialize() (*blob.Structured, error) {
	s := blob.NewStructured()
	s.SetString("name", b.Name())
	s.SetStrings("parameters", b.params)
	return s, nil
}

// SupportsOperation extends the object operations with env, exists and
// hasdata.
func (b *Base) SupportsOperation(op tobject.Operation) bool {
	switch op.Name {
	case "env", "exists", "hasdata":
		return true
	default:
		return b.Container.SupportsOperation(op)
	}
}

// ApplyOperation evaluates:
//
//	env <key> [value]   the key is set (and equals value when given)
//	exists <target>     the transport target exists
//	hasdata <outlet>    the outlet has data to read
func (b *Base) ApplyOperation(op tobject.Operation, ctx *tobject.RunContext) result.Result {
	switch op.Name {
	case "env":
		v, ok := ctx.Env(op.Arg(0))
		if len(op.Args) > 1 {
			return result.Bool(ok && v == strings.Join(op.Args[1:], " "))
		}
		return result.Bool(ok)
	case "exists":
		return result.Bool(targetExists(ctx, op.Arg(0)))
	case "hasdata":
		o, ok := ctx.OutletSet().Lookup(op.Arg(0))
		return result.Bool(ok && o.HasData())
	default:
		return b.Container.ApplyOperation(op, ctx)
	}
}

type existenceChecker interface {
	Exists(target string) bool
}

func targetExists(ctx *tobject.RunContext, target string) bool {
	if ctx != nil {
		if ec, ok := ctx.Transports.(existenceChecker); ok {
			return ec.Exists(target)
		}
	}
	_, err := os.Stat(target)
	return err == nil
}
