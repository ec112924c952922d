package testing

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// SaveReport writes run as indented JSON into dir and returns the file path.
func SaveReport(dir string, run TestRunResult) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	filename := fmt.Sprintf("mec-report-%s.json", run.StartTime.Format("20060102-150405"))
	fullPath := filepath.Join(dir, filename)

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report to JSON: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return fullPath, nil
}

// NewJSONReporter creates a reporter that prints the whole run as JSON when
// it completes.
func NewJSONReporter(out io.Writer) TestReporter {
	if out == nil {
		out = os.Stdout
	}
	return &jsonReporter{out: out}
}

// jsonReporter implements JSON output for machine consumption
type jsonReporter struct {
	out io.Writer
}

func (r *jsonReporter) ReportStart(TestConfiguration, []LoadedSuite) {}

func (r *jsonReporter) ReportSuiteStart(string) {}

func (r *jsonReporter) ReportCaseResult(string, TestCaseResult) {}

func (r *jsonReporter) ReportSuiteResult(TestSuiteResult) {}

func (r *jsonReporter) ReportRunResult(run TestRunResult) {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		fmt.Fprintf(r.out, `{"error": %q}`+"\n", err.Error())
		return
	}
	fmt.Fprintln(r.out, string(data))
}

func (r *jsonReporter) SetParallelMode(bool) {}
