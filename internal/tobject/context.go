package tobject

import (
	"io"
	"maps"
	"time"

	"mec/internal/dataflow"
	"mec/internal/result"
)

// EventKind identifies what happened to an object during a run.
type EventKind int

const (
	EventStarted EventKind = iota
	EventFinished
	EventVisited
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventFinished:
		return "finished"
	case EventVisited:
		return "visited"
	default:
		return "unknown"
	}
}

// Event is delivered to the context's Observer.
type Event struct {
	Kind   EventKind
	Object TObject
	Result result.Result
	Time   time.Time
}

// Observer receives run events. Implementations must be safe for concurrent
// use when objects are started on their own goroutines.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

// RunContext carries everything an operation needs from its caller: the
// traversal visitor, the environment, the outlets registered for the current
// test case, the transports used to plug them and the thread manager.
type RunContext struct {
	Visitor     Visitor
	Environment map[string]string
	Outlets     *dataflow.OutletSet
	Transports  dataflow.Opener
	Threads     *ThreadManager
	Output      io.Writer
	Observer    Observer
}

// ContextOption configures a RunContext.
type ContextOption func(*RunContext)

// WithOutput sets the writer used by commands that print.
func WithOutput(w io.Writer) ContextOption {
	return func(c *RunContext) { c.Output = w }
}

// WithTransports sets the opener used to plug outlets.
func WithTransports(o dataflow.Opener) ContextOption {
	return func(c *RunContext) { c.Transports = o }
}

// WithObserver sets the run observer.
func WithObserver(o Observer) ContextOption {
	return func(c *RunContext) { c.Observer = o }
}

// WithVisitor overrides the default ProcessVisitor.
func WithVisitor(v Visitor) ContextOption {
	return func(c *RunContext) { c.Visitor = v }
}

// WithEnvironment seeds the environment. The map is copied.
func WithEnvironment(env map[string]string) ContextOption {
	return func(c *RunContext) { c.MergeEnv(env) }
}

// NewRunContext creates a context with the process visitor, an empty
// environment and outlet set, a fresh thread manager and discarded output.
func NewRunContext(opts ...ContextOption) *RunContext {
	c := &RunContext{
		Visitor:     ProcessVisitor,
		Environment: make(map[string]string),
		Outlets:     dataflow.NewOutletSet(),
		Threads:     NewThreadManager(),
		Output:      io.Discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RunContext) visitor() Visitor {
	if c == nil || c.Visitor == nil {
		return ProcessVisitor
	}
	return c.Visitor
}

// OutletSet returns the context's outlets, allocating an empty set when the
// field is unset. It returns nil for a nil context.
func (c *RunContext) OutletSet() *dataflow.OutletSet {
	if c == nil {
		return nil
	}
	if c.Outlets == nil {
		c.Outlets = dataflow.NewOutletSet()
	}
	return c.Outlets
}

// Env returns an environment value.
func (c *RunContext) Env(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	v, ok := c.Environment[key]
	return v, ok
}

// SetEnv sets an environment value.
func (c *RunContext) SetEnv(key, value string) {
	if c.Environment == nil {
		c.Environment = make(map[string]string)
	}
	c.Environment[key] = value
}

// MergeEnv copies env into the context, overwriting existing keys.
func (c *RunContext) MergeEnv(env map[string]string) {
	if c.Environment == nil {
		c.Environment = make(map[string]string, len(env))
	}
	maps.Copy(c.Environment, env)
}

// Writer returns the output writer, never nil.
func (c *RunContext) Writer() io.Writer {
	if c == nil || c.Output == nil {
		return io.Discard
	}
	return c.Output
}

// Emit forwards an event to the observer, stamping the time if unset.
func (c *RunContext) Emit(e Event) {
	if c == nil || c.Observer == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	c.Observer.OnEvent(e)
}

// Derive returns a context with its own copy of the environment. Outlets,
// transports, threads, output and observer are shared.
func (c *RunContext) Derive() *RunContext {
	if c == nil {
		return NewRunContext()
	}
	d := *c
	d.Environment = maps.Clone(c.Environment)
	if d.Environment == nil {
		d.Environment = make(map[string]string)
	}
	return &d
}
