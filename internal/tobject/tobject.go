package tobject

import (
	"strings"

	"mec/internal/result"
	"mec/pkg/logging"
)

// TObject is the polymorphic unit of execution.
type TObject interface {
	Name() string
	Type() *Type
	State() State
	// SetState changes the state and returns the previous one, so callers can
	// save and restore around nested work.
	SetState(s State) State
	Result() result.Result
	SetResult(r result.Result)

	// Process performs the object's own work.
	Process(ctx *RunContext) result.Result
	// Run executes the object through the context's visitor and records the
	// outcome.
	Run(ctx *RunContext) result.Result

	SupportsOperation(op Operation) bool
	ApplyOperation(op Operation, ctx *RunContext) result.Result
}

// Base carries the identity, state and last result shared by all objects.
// Embedders must call Init before use.
type Base struct {
	self    TObject
	name    string
	typ     *Type
	state   State
	result  result.Result
	threads *ThreadManager
}

// Init binds the embedding object, names it and moves it to INITIAL.
func (b *Base) Init(self TObject, name string, typ *Type) {
	if typ == nil {
		typ = TypeTObject
	}
	b.self = self
	b.name = name
	b.typ = typ
	b.state = StateInitial
}

// Self returns the outermost object bound by Init.
func (b *Base) Self() TObject {
	if b.self == nil {
		return b
	}
	return b.self
}

func (b *Base) Name() string { return b.name }

// SetName renames the object.
func (b *Base) SetName(name string) { b.name = name }

func (b *Base) Type() *Type {
	if b.typ == nil {
		return TypeTObject
	}
	return b.typ
}

func (b *Base) State() State { return b.state }

func (b *Base) SetState(s State) State {
	prev := b.state
	b.state = s
	return prev
}

func (b *Base) Result() result.Result { return b.result }

func (b *Base) SetResult(r result.Result) { b.result = r }

// Process is a no-op that succeeds; embedders override it.
func (b *Base) Process(ctx *RunContext) result.Result {
	return result.True
}

// Run visits the object with the context's visitor (ProcessVisitor when ctx
// is nil or has none) and stores the outcome.
func (b *Base) Run(ctx *RunContext) result.Result {
	self := b.Self()
	r := ctx.visitor().Visit(self, ctx)
	self.SetResult(r)
	return r
}

// Start runs the object on its own goroutine through the context's thread
// manager. The returned Result reports the launch, not the outcome; the
// outcome arrives through cb and Result/Wait.
func (b *Base) Start(ctx *RunContext, cb Callback) result.Result {
	if ctx == nil || ctx.Threads == nil {
		logging.Warn("TObject", "Cannot start %s without a thread manager", b.name)
		return result.Fatal()
	}
	b.threads = ctx.Threads
	_, r := ctx.Threads.Start(b.Self(), ctx.Derive(), cb)
	return r
}

// Stop asks the goroutine running this object to stop. force selects
// terminate-while-running instead of cancel-before-start. An object that is
// not running returns false.
func (b *Base) Stop(force bool) bool {
	if b.threads == nil {
		return false
	}
	return b.threads.Stop(b.Self(), force)
}

// Wait blocks until a started run completes and returns its result. For an
// object that is not running it returns the last result.
func (b *Base) Wait() result.Result {
	if b.threads != nil {
		if h, ok := b.threads.Lookup(b.Self()); ok {
			return h.Wait()
		}
	}
	return b.Self().Result()
}

// SupportsOperation reports the built-in operations every object answers:
// true, false, state, result and name.
func (b *Base) SupportsOperation(op Operation) bool {
	switch op.Name {
	case "true", "false", "state", "result", "name":
		return true
	default:
		return false
	}
}

// ApplyOperation evaluates a built-in operation; unsupported ones are fatal.
func (b *Base) ApplyOperation(op Operation, ctx *RunContext) result.Result {
	self := b.Self()
	switch op.Name {
	case "true":
		return result.True
	case "false":
		return result.False
	case "state":
		return result.Bool(strings.EqualFold(self.State().String(), op.Arg(0)))
	case "result":
		return result.Bool(self.Result().Text() == op.Arg(0))
	case "name":
		return result.Bool(self.Name() == op.Arg(0))
	default:
		return result.Fatal()
	}
}
