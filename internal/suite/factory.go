package suite

import (
	"fmt"

	"mec/internal/blob"
	"mec/internal/factory"
	"mec/internal/tobject"
)

// Default names for cases and suites serialized without one.
const (
	DefaultCaseName  = "testcase"
	DefaultSuiteName = "testsuite"
)

// CaseFactory builds test cases from {"name", "outlets", "commands"}. It
// accepts any name; the name becomes the case name.
type CaseFactory struct{}

// SuiteFactory builds test suites from {"name", "environment",
// "stopOnError", "testcases"}.
type SuiteFactory struct{}

func (CaseFactory) Category() string { return factory.CategoryTestCase }

func (CaseFactory) Deinitialize() {}

func (CaseFactory) Construct(name string, data *blob.Blob, construct factory.Constructor) (tobject.TObject, error) {
	s, err := blob.ParseStructured(data)
	if err != nil {
		return nil, fmt.Errorf("test case %s: %w", name, err)
	}
	if name == "" {
		name = DefaultCaseName
	}
	tc := NewTestCase(name)

	if s.Has("outlets") {
		if err := parseOutlets(tc, s); err != nil {
			return nil, fmt.Errorf("test case %s: %w", name, err)
		}
	}

	commands, err := factory.ConstructAll(construct, factory.CategoryCommand, s, "commands")
	if err != nil {
		return nil, fmt.Errorf("test case %s: %w", name, err)
	}
	for _, c := range commands {
		tc.Add(c)
	}
	return tc, nil
}

// parseOutlets accepts "name" shorthand strings and {"name", "target",
// "mode"} objects, mixed in one array.
func parseOutlets(tc *TestCase, s *blob.Structured) error {
	elems, ok := s.GetElements("outlets")
	if !ok {
		return fmt.Errorf("outlets must be an array of names or objects")
	}
	for _, e := range elems {
		spec := ParseOutletSpec(e.Scalar)
		if e.Object != nil {
			name, _ := e.Object.GetString("name")
			target, _ := e.Object.GetString("target")
			mode, hasMode := e.Object.GetString("mode")
			if target != "" && !hasMode {
				mode = ModeWrite
			}
			spec = OutletSpec{Name: name, Target: target, Mode: mode}
		}
		if err := tc.AddOutlet(spec); err != nil {
			return err
		}
	}
	return nil
}

func (SuiteFactory) Category() string { return factory.CategoryTestSuite }

func (SuiteFactory) Deinitialize() {}

func (SuiteFactory) Construct(name string, data *blob.Blob, construct factory.Constructor) (tobject.TObject, error) {
	s, err := blob.ParseStructured(data)
	if err != nil {
		return nil, fmt.Errorf("test suite %s: %w", name, err)
	}
	if name == "" {
		name = DefaultSuiteName
	}
	ts := NewTestSuite(name)

	if stop, ok := s.GetBool("stopOnError"); ok {
		ts.StopOnError = stop
	}

	if s.Has("environment") {
		entries, ok := s.GetObjects("environment")
		if !ok {
			return nil, fmt.Errorf("test suite %s: environment must be an array of objects", name)
		}
		for _, e := range entries {
			for _, k := range e.Keys() {
				v, ok := e.GetString(k)
				if !ok {
					return nil, fmt.Errorf("test suite %s: environment value %s is not a scalar", name, k)
				}
				ts.SetEnv(k, v)
			}
		}
	}

	if s.Has("testcases") {
		entries, ok := s.GetObjects("testcases")
		if !ok {
			return nil, fmt.Errorf("test suite %s: testcases must be an array of objects", name)
		}
		for i, e := range entries {
			caseName, _ := e.GetString("name")
			b, err := e.Blob()
			if err != nil {
				return nil, err
			}
			tc, err := construct(factory.CategoryTestCase, caseName, b)
			if err != nil {
				return nil, fmt.Errorf("test suite %s: testcases[%d]: %w", name, i, err)
			}
			ts.Add(tc)
		}
	}
	return ts, nil
}

// Register adds the case and suite factories to r.
func Register(r *factory.Registry) {
	r.Register(CaseFactory{})
	r.Register(SuiteFactory{})
}

// Decode builds a suite from a serialized suite or, when the document has
// "commands" but no "testcases", from a single serialized case wrapped in a
// suite of the same name.
func Decode(r *factory.Registry, data *blob.Blob) (*TestSuite, error) {
	s, err := blob.ParseStructured(data)
	if err != nil {
		return nil, err
	}
	name, _ := s.GetString("name")

	if s.Has("commands") && !s.Has("testcases") {
		obj, err := r.Construct(factory.CategoryTestCase, name, data)
		if err != nil {
			return nil, err
		}
		ts := NewTestSuite(obj.Name(), obj)
		return ts, nil
	}

	obj, err := r.Construct(factory.CategoryTestSuite, name, data)
	if err != nil {
		return nil, err
	}
	ts, ok := obj.(*TestSuite)
	if !ok {
		return nil, fmt.Errorf("suite factory returned %T", obj)
	}
	return ts, nil
}
