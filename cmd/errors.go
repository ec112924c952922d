package cmd

import "fmt"

// TestsFailedError reports a run in which some suites did not pass.
type TestsFailedError struct {
	Failed int
	Total  int
}

func (e *TestsFailedError) Error() string {
	return fmt.Sprintf("%d of %d suites did not pass", e.Failed, e.Total)
}

// InvalidSuiteError reports suite files that could not be loaded.
type InvalidSuiteError struct {
	Err error
}

func (e *InvalidSuiteError) Error() string {
	return fmt.Sprintf("invalid suites: %v", e.Err)
}

func (e *InvalidSuiteError) Unwrap() error { return e.Err }
