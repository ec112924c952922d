// Package suite implements test cases and test suites: the containers that
// give a command tree an open/run/close lifecycle, named outlets and an
// environment.
package suite

import (
	"fmt"
	"strings"

	"mec/internal/blob"
	"mec/internal/dataflow"
	"mec/internal/factory"
	"mec/internal/result"
	"mec/internal/tobject"
	"mec/pkg/logging"
)

var (
	TypeTestCase  = tobject.RegisterType("testcase", tobject.TypeContainer)
	TypeTestSuite = tobject.RegisterType("testsuite", tobject.TypeContainer)
)

// Outlet modes.
const (
	ModeNone   = ""
	ModeRead   = "r"
	ModeWrite  = "w"
	ModeAppend = "a"
)

// OutletSpec declares an outlet a test case registers before running. With
// a target it is plugged on that transport: a producer for ModeRead, a
// consumer for ModeWrite and ModeAppend.
type OutletSpec struct {
	Name   string
	Target string
	Mode   string
}

// ParseOutletSpec parses the shorthand "name", "name=target" or
// "name=target,mode". A target without a mode is opened for writing.
func ParseOutletSpec(s string) OutletSpec {
	name, rest, ok := strings.Cut(s, "=")
	if !ok {
		return OutletSpec{Name: s}
	}
	spec := OutletSpec{Name: name, Target: rest, Mode: ModeWrite}
	if target, mode, ok := strings.Cut(rest, ","); ok {
		spec.Target, spec.Mode = target, mode
	}
	return spec
}

// String renders the shorthand form accepted by ParseOutletSpec.
func (o OutletSpec) String() string {
	if o.Target == "" {
		return o.Name
	}
	return o.Name + "=" + o.Target + "," + o.Mode
}

func (o OutletSpec) validate() error {
	if o.Name == "" {
		return fmt.Errorf("outlet has no name")
	}
	switch o.Mode {
	case ModeNone, ModeRead, ModeWrite, ModeAppend:
	default:
		return fmt.Errorf("outlet %s: unknown mode %q", o.Name, o.Mode)
	}
	if o.Target != "" && o.Mode == ModeNone {
		return fmt.Errorf("outlet %s: target %s needs a mode", o.Name, o.Target)
	}
	return nil
}

// Case is a child of a test suite.
type Case interface {
	tobject.TObject
	Open() result.Result
	Close() result.Result
}

// TestCase runs a command tree between Open and Close. Run is only
// meaningful from PREPARED.
type TestCase struct {
	tobject.Container
	outlets []OutletSpec
}

// NewTestCase creates a test case holding commands.
func NewTestCase(name string, commands ...tobject.TObject) *TestCase {
	tc := &TestCase{}
	tc.Init(tc, name, TypeTestCase)
	for _, c := range commands {
		tc.Add(c)
	}
	return tc
}

// AddOutlet declares an outlet.
func (tc *TestCase) AddOutlet(spec OutletSpec) error {
	if err := spec.validate(); err != nil {
		return err
	}
	for _, o := range tc.outlets {
		if o.Name == spec.Name {
			return fmt.Errorf("%w: %s", dataflow.ErrOutletExists, spec.Name)
		}
	}
	tc.outlets = append(tc.outlets, spec)
	return nil
}

// Outlets returns the declared outlets.
func (tc *TestCase) Outlets() []OutletSpec {
	return append([]OutletSpec(nil), tc.outlets...)
}

// Open moves the case from INITIAL to PREPARED.
func (tc *TestCase) Open() result.Result {
	if tc.State() != tobject.StateInitial {
		logging.Warn("TestCase", "Cannot open %s in state %s", tc.Name(), tc.State())
		return result.Fatal()
	}
	tc.SetState(tobject.StatePrepared)
	return result.True
}

// Run executes the commands in order and stops at the first failure. A case
// that is not PREPARED returns FATAL and keeps its state. Results other than
// false and FATAL count as success.
func (tc *TestCase) Run(ctx *tobject.RunContext) result.Result {
	if tc.State() != tobject.StatePrepared {
		logging.Warn("TestCase", "Cannot run %s in state %s", tc.Name(), tc.State())
		return result.Fatal()
	}
	if ctx == nil {
		ctx = tobject.NewRunContext()
	}

	tc.SetState(tobject.StateRunning)
	ctx.Emit(tobject.Event{Kind: tobject.EventStarted, Object: tc})
	logging.Debug("TestCase", "Running %s (%d commands)", tc.Name(), tc.Len())

	r := result.False
	registered, ok := tc.plugOutlets(ctx)
	if ok {
		r = normalize(tc.RunChildren(ctx))
	}
	tc.unplugOutlets(ctx, registered)

	tc.SetResult(r)
	if r.Truthy() {
		tc.SetState(tobject.StateFinishedGood)
	} else {
		tc.SetState(tobject.StateFinishedBad)
	}
	ctx.Emit(tobject.Event{Kind: tobject.EventFinished, Object: tc, Result: r})
	return r
}

// Process runs the case when it is visited as part of a larger tree.
func (tc *TestCase) Process(ctx *tobject.RunContext) result.Result {
	return normalize(tc.RunChildren(ctx))
}

// Close resets the case to INITIAL from any state but INVALID and
// UNINITIALIZED. It does not stop a run in progress on another goroutine.
func (tc *TestCase) Close() result.Result {
	switch tc.State() {
	case tobject.StateInvalid, tobject.StateUninitialized:
		return result.Fatal()
	}
	tc.SetState(tobject.StateInitial)
	return result.True
}

// normalize keeps booleans and FATAL; any other value is a success. An unset
// result means nothing produced a value and counts as a failure.
func normalize(r result.Result) result.Result {
	switch {
	case !r.IsSet():
		return result.False
	case r.IsFatal(), r.IsBool():
		return r
	default:
		return result.True
	}
}

// plugOutlets registers the declared outlets on ctx and plugs those with a
// target. It returns the names it registered, even on failure, so they can
// be released.
func (tc *TestCase) plugOutlets(ctx *tobject.RunContext) ([]string, bool) {
	var registered []string
	for _, spec := range tc.outlets {
		o := dataflow.NewOutlet(spec.Name)
		if err := ctx.OutletSet().Register(o); err != nil {
			logging.Warn("TestCase", "%s: %v", tc.Name(), err)
			return registered, false
		}
		registered = append(registered, spec.Name)
		if spec.Target == "" {
			continue
		}
		if ctx.Transports == nil {
			logging.Warn("TestCase", "%s: no transports to plug outlet %s", tc.Name(), spec.Name)
			return registered, false
		}

		var err error
		switch spec.Mode {
		case ModeRead:
			var p dataflow.Producer
			if p, err = ctx.Transports.OpenProducer(spec.Target); err == nil {
				err = o.PlugProducer(p)
			}
		default:
			var c dataflow.Consumer
			if c, err = ctx.Transports.OpenConsumer(spec.Target, spec.Mode == ModeAppend); err == nil {
				err = o.PlugConsumer(c)
			}
		}
		if err != nil {
			logging.Error("TestCase", err, "%s: failed to plug outlet %s on %s", tc.Name(), spec.Name, spec.Target)
			return registered, false
		}
	}
	return registered, true
}

func (tc *TestCase) unplugOutlets(ctx *tobject.RunContext, names []string) {
	for _, name := range names {
		if err := ctx.OutletSet().Remove(name); err != nil {
			logging.Warn("TestCase", "%s: closing outlet %s: %v", tc.Name(), name, err)
		}
	}
}

// Serialize returns {"name", "outlets", "commands"}.
func (tc *TestCase) Serialize() (*blob.Structured, error) {
	s := blob.NewStructured()
	s.SetString("name", tc.Name())

	s.SetStrings("outlets", nil)
	for _, o := range tc.outlets {
		if o.Target == "" {
			if err := s.AddString("outlets", o.Name); err != nil {
				return nil, err
			}
			continue
		}
		spec := blob.NewStructured()
		spec.SetString("name", o.Name)
		spec.SetString("target", o.Target)
		spec.SetString("mode", o.Mode)
		if err := s.AddObject("outlets", spec); err != nil {
			return nil, err
		}
	}

	commands, err := factory.SerializeAll(tc.Children())
	if err != nil {
		return nil, fmt.Errorf("test case %s: %w", tc.Name(), err)
	}
	s.SetObjects("commands", commands)
	return s, nil
}
