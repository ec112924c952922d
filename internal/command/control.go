package command

import (
	"strings"

	"mec/internal/blob"
	"mec/internal/dataflow"
	"mec/internal/factory"
	"mec/internal/result"
	"mec/internal/tobject"
	"mec/pkg/logging"
)

// Group is a plain container for nesting commands. Running it runs its
// children and stops at the first failure.
type Group struct {
	Base
}

// NewGroup creates a group holding children.
func NewGroup(children ...tobject.TObject) *Group {
	g := &Group{}
	g.initCommand(g, "group", TypeGroup, nil)
	for _, c := range children {
		g.Add(c)
	}
	return g
}

func (g *Group) Process(ctx *tobject.RunContext) result.Result {
	return g.RunChildren(ctx)
}

// Serialize adds the children under "commands".
func (g *Group) Serialize() (*blob.Structured, error) {
	s, err := g.Base.Serialize()
	if err != nil {
		return nil, err
	}
	children, err := factory.SerializeAll(g.Children())
	if err != nil {
		return nil, err
	}
	s.SetObjects("commands", children)
	return s, nil
}

// If evaluates its parameters as an operation against itself and processes
// the then or else branch. An unsupported operation is fatal; a missing
// branch succeeds.
//
//	{"name": "if", "parameters": ["exists", "/tmp/f"], "then": {...}, "else": {...}}
type If struct {
	Base
	then tobject.TObject
	els  tobject.TObject
}

// NewIf creates a conditional. Either branch may be nil.
func NewIf(cond tobject.Operation, then, els tobject.TObject) *If {
	i := &If{then: then, els: els}
	i.initCommand(i, "if", TypeIf, cond.Fields())
	return i
}

// Then returns the branch taken when the condition holds.
func (i *If) Then() tobject.TObject { return i.then }

// Else returns the branch taken when the condition does not hold.
func (i *If) Else() tobject.TObject { return i.els }

func (i *If) Process(ctx *tobject.RunContext) result.Result {
	params, ok := i.Params(ctx)
	if !ok {
		return result.Fatal()
	}
	cond := tobject.ParseOperation(params)
	if !i.SupportsOperation(cond) {
		logging.Warn("Command", "if: unsupported condition %q", cond)
		return result.Fatal()
	}
	r := i.ApplyOperation(cond, ctx)
	if r.IsFatal() {
		return r
	}

	branch := i.els
	if r.Truthy() {
		branch = i.then
	}
	if branch == nil {
		return result.True
	}
	return branch.Process(ctx)
}

// Serialize adds the branches under "then" and "else".
func (i *If) Serialize() (*blob.Structured, error) {
	s, err := i.Base.Serialize()
	if err != nil {
		return nil, err
	}
	branches := []struct {
		field  string
		branch tobject.TObject
	}{{"then", i.then}, {"else", i.els}}
	for _, b := range branches {
		if b.branch == nil {
			continue
		}
		bs, err := factory.Serialize(b.branch)
		if err != nil {
			return nil, err
		}
		s.SetObject(b.field, bs)
	}
	return s, nil
}

// Expect reads everything available on an outlet and compares it with the
// expected text: expect <outlet> <text...>.
type Expect struct {
	Base
}

// NewExpect creates an expectation on an outlet.
func NewExpect(outlet string, text ...string) *Expect {
	e := &Expect{}
	e.initCommand(e, "expect", TypeExpect, append([]string{outlet}, text...))
	return e
}

func (e *Expect) Process(ctx *tobject.RunContext) result.Result {
	params, ok := e.Params(ctx)
	if !ok || len(params) == 0 || ctx == nil {
		return result.Fatal()
	}
	want := strings.Join(params[1:], " ")
	got, _ := readAll(ctx.OutletSet().Get(params[0]))
	if got != want {
		logging.Info("Command", "expect %s: got %q, want %q", params[0], got, want)
		return result.False
	}
	return result.True
}

// Flow drains producer outlets, in order, into a consumer outlet:
// flow <consumer> <producer...>. It returns the number of payloads moved.
type Flow struct {
	Base
}

// NewFlow creates a flow command.
func NewFlow(into string, from ...string) *Flow {
	f := &Flow{}
	f.initCommand(f, "flow", TypeFlow, append([]string{into}, from...))
	return f
}

func (f *Flow) Process(ctx *tobject.RunContext) result.Result {
	params, ok := f.Params(ctx)
	if !ok || len(params) < 2 || ctx == nil {
		return result.Fatal()
	}
	fc := dataflow.NewFlowConsumer(ctx.OutletSet().Get(params[0]))
	for _, name := range params[1:] {
		fc.AddWriter(ctx.OutletSet().Get(name))
	}
	n, ok := fc.FlowData()
	if !ok {
		logging.Warn("Command", "flow: %s rejected data after %d items", params[0], n)
		return result.False
	}
	return result.Int(int64(n))
}
