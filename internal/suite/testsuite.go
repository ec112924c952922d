package suite

import (
	"fmt"
	"time"

	"mec/internal/blob"
	"mec/internal/dataflow"
	"mec/internal/factory"
	"mec/internal/result"
	"mec/internal/tobject"
	"mec/pkg/logging"
)

// EnvVar is one suite environment entry. The environment keeps declaration
// order so it serializes back the way it was written.
type EnvVar struct {
	Name  string
	Value string
}

// CaseOutcome records how one case of a suite run ended.
type CaseOutcome struct {
	Name     string
	Result   result.Result
	Duration time.Duration
	Skipped  bool
}

// Passed reports whether the case succeeded.
func (o CaseOutcome) Passed() bool { return !o.Skipped && o.Result.Truthy() }

// Stats counts case outcomes of the last run.
type Stats struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

// TestSuite runs its cases in order, each through open, run and close, with
// the suite environment copied into the run context.
type TestSuite struct {
	tobject.Container
	environment []EnvVar
	// StopOnError is the stopOnError argument Run passes to Execute.
	StopOnError bool

	outcomes []CaseOutcome
	stats    Stats
}

// NewTestSuite creates a suite holding cases.
func NewTestSuite(name string, cases ...tobject.TObject) *TestSuite {
	s := &TestSuite{}
	s.Init(s, name, TypeTestSuite)
	for _, c := range cases {
		s.Add(c)
	}
	return s
}

// SetEnv sets a suite environment value, keeping the original position of
// an existing key.
func (s *TestSuite) SetEnv(name, value string) {
	for i := range s.environment {
		if s.environment[i].Name == name {
			s.environment[i].Value = value
			return
		}
	}
	s.environment = append(s.environment, EnvVar{Name: name, Value: value})
}

// Environment returns the suite environment as a map.
func (s *TestSuite) Environment() map[string]string {
	env := make(map[string]string, len(s.environment))
	for _, v := range s.environment {
		env[v.Name] = v.Value
	}
	return env
}

// Open moves the suite from INITIAL to PREPARED.
func (s *TestSuite) Open() result.Result {
	if s.State() != tobject.StateInitial {
		logging.Warn("TestSuite", "Cannot open %s in state %s", s.Name(), s.State())
		return result.Fatal()
	}
	s.SetState(tobject.StatePrepared)
	return result.True
}

// Close resets the suite to INITIAL, like TestCase.Close.
func (s *TestSuite) Close() result.Result {
	switch s.State() {
	case tobject.StateInvalid, tobject.StateUninitialized:
		return result.Fatal()
	}
	s.SetState(tobject.StateInitial)
	return result.True
}

// Run executes the suite with its StopOnError setting.
func (s *TestSuite) Run(ctx *tobject.RunContext) result.Result {
	return s.Execute(ctx, s.StopOnError)
}

// Process runs the suite when it is visited as part of a larger tree.
func (s *TestSuite) Process(ctx *tobject.RunContext) result.Result {
	return s.execute(ctx, s.StopOnError)
}

// Execute runs every case in order: open, run, close. It stops early when a
// case returns FATAL, or on any failure when stopOnError is set. It returns
// false if any case failed. A suite that is not PREPARED or has no cases
// returns FATAL.
func (s *TestSuite) Execute(ctx *tobject.RunContext, stopOnError bool) result.Result {
	if s.State() != tobject.StatePrepared {
		logging.Warn("TestSuite", "Cannot run %s in state %s", s.Name(), s.State())
		return result.Fatal()
	}
	if s.Len() == 0 {
		logging.Warn("TestSuite", "Suite %s has no test cases", s.Name())
		return result.Fatal()
	}
	if ctx == nil {
		ctx = tobject.NewRunContext()
	}

	s.SetState(tobject.StateRunning)
	ctx.Emit(tobject.Event{Kind: tobject.EventStarted, Object: s})

	r := s.execute(ctx, stopOnError)

	s.SetResult(r)
	if s.stats.Failed > 0 {
		s.SetState(tobject.StateFinishedBad)
	} else {
		s.SetState(tobject.StateFinishedGood)
	}
	ctx.Emit(tobject.Event{Kind: tobject.EventFinished, Object: s, Result: r})
	return r
}

func (s *TestSuite) execute(ctx *tobject.RunContext, stopOnError bool) result.Result {
	if ctx == nil {
		ctx = tobject.NewRunContext()
	}
	suiteCtx := ctx.Derive()
	suiteCtx.MergeEnv(s.Environment())

	cases := s.Children()
	s.outcomes = make([]CaseOutcome, 0, len(cases))
	s.stats = Stats{Total: len(cases)}

	logging.Info("TestSuite", "Running suite %s (%d cases)", s.Name(), len(cases))
	for i, c := range cases {
		caseCtx := suiteCtx.Derive()
		caseCtx.Outlets = dataflow.NewOutletSet()

		start := time.Now()
		r := runCase(c, caseCtx)
		if err := caseCtx.Outlets.CloseAll(); err != nil {
			logging.Warn("TestSuite", "Closing outlets of %s: %v", c.Name(), err)
		}

		outcome := CaseOutcome{Name: c.Name(), Result: r, Duration: time.Since(start)}
		s.outcomes = append(s.outcomes, outcome)
		if outcome.Passed() {
			s.stats.Passed++
		} else {
			s.stats.Failed++
			logging.Info("TestSuite", "Case %s failed: %s", c.Name(), r)
		}

		if r.IsFatal() || (stopOnError && !r.Truthy()) {
			for _, rest := range cases[i+1:] {
				s.outcomes = append(s.outcomes, CaseOutcome{Name: rest.Name(), Skipped: true})
				s.stats.Skipped++
			}
			logging.Info("TestSuite", "Stopping suite %s after %s", s.Name(), c.Name())
			break
		}
	}

	return result.Bool(s.stats.Failed == 0)
}

func runCase(c tobject.TObject, ctx *tobject.RunContext) result.Result {
	tc, ok := c.(Case)
	if !ok {
		return c.Run(ctx)
	}
	if r := tc.Open(); r.IsFatal() {
		return r
	}
	r := tc.Run(ctx)
	tc.Close()
	return r
}

// Outcomes returns the per-case outcomes of the last run, including skipped
// cases.
func (s *TestSuite) Outcomes() []CaseOutcome {
	return append([]CaseOutcome(nil), s.outcomes...)
}

// Stats returns the counts of the last run.
func (s *TestSuite) Stats() Stats { return s.stats }

// Serialize returns {"name", "environment", "stopOnError", "testcases"}.
func (s *TestSuite) Serialize() (*blob.Structured, error) {
	out := blob.NewStructured()
	out.SetString("name", s.Name())
	if s.StopOnError {
		out.SetBool("stopOnError", true)
	}

	env := make([]*blob.Structured, 0, len(s.environment))
	for _, v := range s.environment {
		e := blob.NewStructured()
		e.SetString(v.Name, v.Value)
		env = append(env, e)
	}
	out.SetObjects("environment", env)

	cases, err := factory.SerializeAll(s.Children())
	if err != nil {
		return nil, fmt.Errorf("test suite %s: %w", s.Name(), err)
	}
	out.SetObjects("testcases", cases)
	return out, nil
}
