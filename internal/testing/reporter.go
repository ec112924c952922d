package testing

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/schollz/progressbar/v3"

	pkgstrings "mec/pkg/strings"
)

// testReporter prints progress and a summary table to a terminal.
type testReporter struct {
	mu         sync.Mutex
	out        io.Writer
	verbose    bool
	debug      bool
	reportPath string

	parallelMode bool
	caseBuffers  map[string][]string // per-suite case lines held back in parallel mode
	bar          *progressbar.ProgressBar
	passed       int
	failed       int
}

// NewTestReporter creates the console reporter. A non-empty reportPath also
// saves a JSON report into that directory.
func NewTestReporter(out io.Writer, verbose, debug bool, reportPath string) TestReporter {
	if out == nil {
		out = os.Stdout
	}
	return &testReporter{
		out:         out,
		verbose:     verbose,
		debug:       debug,
		reportPath:  reportPath,
		caseBuffers: make(map[string][]string),
	}
}

// SetParallelMode enables or disables parallel output buffering
func (r *testReporter) SetParallelMode(parallel bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.parallelMode = parallel
	if parallel {
		r.caseBuffers = make(map[string][]string)
	}
}

// ReportStart is called when test execution begins
func (r *testReporter) ReportStart(cfg TestConfiguration, suites []LoadedSuite) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.out, "🧪 Running %d suites\n", len(suites))
	if r.verbose {
		fmt.Fprintf(r.out, "\n⚙️  Configuration:\n")
		fmt.Fprintf(r.out, "   • Suite filter: %s\n", stringOrDefault(cfg.Suite, "all"))
		fmt.Fprintf(r.out, "   • Parallel: %d\n", cfg.Parallel)
		fmt.Fprintf(r.out, "   • Fail fast: %t\n", cfg.FailFast)
		fmt.Fprintf(r.out, "   • Stop on error: %t\n", cfg.StopOnError)
		if cfg.ReportPath != "" {
			fmt.Fprintf(r.out, "   • Report path: %s\n", cfg.ReportPath)
		}
		fmt.Fprintf(r.out, "\n")
		return
	}

	// The bar would interleave with per-case lines, so it is only shown in
	// the compact mode.
	r.bar = progressbar.NewOptions(len(suites),
		progressbar.OptionSetDescription(r.describe()),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        text.FgCyan.Sprint("█"),
			SaucerHead:    text.FgCyan.Sprint("█"),
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionOnCompletion(func() { fmt.Fprint(r.out, "\n") }),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func (r *testReporter) describe() string {
	return text.FgCyan.Sprint("Running suites: ") +
		text.FgGreen.Sprintf("[passed: %d", r.passed) +
		" | " +
		text.FgRed.Sprintf("failed: %d]", r.failed)
}

// ReportSuiteStart is called when a suite begins
func (r *testReporter) ReportSuiteStart(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.verbose && !r.parallelMode {
		fmt.Fprintf(r.out, "🎯 Suite %s\n", name)
	}
}

// ReportCaseResult is called when a case completes
func (r *testReporter) ReportCaseResult(suiteName string, cr TestCaseResult) {
	if !r.verbose {
		return
	}
	line := fmt.Sprintf("   %s %s", resultSymbol(cr.Result), cr.Name)
	if r.debug && cr.Value != "" {
		line += fmt.Sprintf(" → %s", pkgstrings.OneLine(cr.Value, pkgstrings.DefaultValueMaxLen))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.parallelMode {
		r.caseBuffers[suiteName] = append(r.caseBuffers[suiteName], line)
		return
	}
	fmt.Fprintln(r.out, line)
}

// ReportSuiteResult is called when a suite completes
func (r *testReporter) ReportSuiteResult(res TestSuiteResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if res.Result == ResultPassed {
		r.passed++
	} else {
		r.failed++
	}
	if r.bar != nil {
		r.bar.Describe(r.describe())
		_ = r.bar.Add(1)
		return
	}

	if r.parallelMode {
		fmt.Fprintf(r.out, "🎯 Suite %s\n", res.Name)
		for _, line := range r.caseBuffers[res.Name] {
			fmt.Fprintln(r.out, line)
		}
		delete(r.caseBuffers, res.Name)
	}
	fmt.Fprintf(r.out, "%s %s (%v)\n", resultSymbol(res.Result), res.Name, res.Duration.Round(time.Millisecond))
	if res.Error != "" {
		fmt.Fprintf(r.out, "   💥 %s\n", res.Error)
	}
	if r.debug && res.Output != "" {
		fmt.Fprintf(r.out, "   📄 Output:\n%s", indentText(res.Output, "      "))
	}
}

// ReportRunResult prints the summary table and saves the report.
func (r *testReporter) ReportRunResult(run TestRunResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bar != nil {
		_ = r.bar.Finish()
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("SUITE"),
		text.FgHiCyan.Sprint("RESULT"),
		text.FgHiCyan.Sprint("PASSED"),
		text.FgHiCyan.Sprint("FAILED"),
		text.FgHiCyan.Sprint("SKIPPED"),
		text.FgHiCyan.Sprint("DURATION"),
	})
	for _, s := range run.SuiteResults {
		t.AppendRow(table.Row{
			s.Name,
			ColorResult(s.Result),
			s.Stats.Passed,
			s.Stats.Failed,
			s.Stats.Skipped,
			s.Duration.Round(time.Millisecond),
		})
	}
	t.AppendFooter(table.Row{"TOTAL", "", run.PassedSuites, run.FailedSuites + run.ErrorSuites, run.SkippedSuites, run.Duration.Round(time.Millisecond)})
	fmt.Fprintln(r.out)
	t.Render()

	if run.Passed() {
		fmt.Fprintf(r.out, "\n🎉 All %d suites passed!\n", run.TotalSuites)
	} else {
		fmt.Fprintf(r.out, "\n💔 %d of %d suites failed\n", run.FailedSuites+run.ErrorSuites, run.TotalSuites)
	}
	if run.ID != "" {
		fmt.Fprintf(r.out, "🗂️  Run ID: %s\n", run.ID)
	}

	if r.reportPath != "" {
		path, err := SaveReport(r.reportPath, run)
		if err != nil {
			fmt.Fprintf(r.out, "⚠️  Failed to save detailed report: %v\n", err)
		} else {
			fmt.Fprintf(r.out, "📄 Detailed report saved to: %s\n", path)
		}
	}
}

// ColorResult renders a result in its terminal color.
func ColorResult(res TestResult) string {
	switch res {
	case ResultPassed:
		return text.FgGreen.Sprint(res)
	case ResultSkipped:
		return text.FgYellow.Sprint(res)
	default:
		return text.FgRed.Sprint(res)
	}
}

// resultSymbol returns an appropriate symbol for the test result
func resultSymbol(res TestResult) string {
	switch res {
	case ResultPassed:
		return "✅"
	case ResultFailed:
		return "❌"
	case ResultSkipped:
		return "⏭️"
	case ResultError:
		return "💥"
	default:
		return "❓"
	}
}

func indentText(s, indent string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = indent + l
	}
	return strings.Join(lines, "\n") + "\n"
}

// stringOrDefault returns the string if not empty, otherwise returns the default
func stringOrDefault(s, defaultValue string) string {
	if s == "" {
		return defaultValue
	}
	return s
}

// NewQuietReporter creates a reporter that only outputs failures and the
// final line.
func NewQuietReporter(out io.Writer) TestReporter {
	if out == nil {
		out = os.Stdout
	}
	return &quietReporter{out: out}
}

// quietReporter implements minimal output for CI/CD integration
type quietReporter struct {
	mu  sync.Mutex
	out io.Writer
}

func (r *quietReporter) ReportStart(TestConfiguration, []LoadedSuite) {}

func (r *quietReporter) ReportSuiteStart(string) {}

func (r *quietReporter) ReportCaseResult(string, TestCaseResult) {}

func (r *quietReporter) ReportSuiteResult(res TestSuiteResult) {
	if res.Result != ResultFailed && res.Result != ResultError {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "%s %s: %d/%d cases failed %s\n", resultSymbol(res.Result), res.Name, res.Stats.Failed, res.Stats.Total, res.Error)
}

func (r *quietReporter) ReportRunResult(run TestRunResult) {
	if run.Passed() {
		fmt.Fprintf(r.out, "✅ All %d suites passed (%v)\n", run.TotalSuites, run.Duration.Round(time.Millisecond))
		return
	}
	fmt.Fprintf(r.out, "❌ %d/%d suites failed (%v)\n",
		run.FailedSuites+run.ErrorSuites, run.TotalSuites, run.Duration.Round(time.Millisecond))
}

func (r *quietReporter) SetParallelMode(bool) {}
