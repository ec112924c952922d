package testing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mec/internal/command"
	"mec/internal/config"
	"mec/internal/factory"
	"mec/internal/suite"
	"mec/internal/transport"
)

func newRegistry() *factory.Registry {
	r := factory.NewRegistry()
	r.Register(command.NewBuiltin())
	suite.Register(r)
	return r
}

func writeSuite(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

const passingYAML = `
name: passing
environment:
  - WHO: world
testcases:
  - name: greet
    commands:
      - name: log
        parameters: ["hello", "{{ .WHO }}"]
`

const failingJSON = `{
  "name": "failing",
  "testcases": [
    {"name": "ok", "commands": [{"name": "pass"}]},
    {"name": "broken", "commands": [{"name": "fail"}]}
  ]
}`

const bareCaseYAML = `
name: bare
commands:
  - name: pass
`

func TestLoadSuites(t *testing.T) {
	dir := t.TempDir()
	writeSuite(t, dir, "a.yaml", passingYAML)
	writeSuite(t, dir, "nested/b.json", failingJSON)
	writeSuite(t, dir, "nested/c.yml", bareCaseYAML)
	writeSuite(t, dir, "notes.txt", "ignored")

	loader := NewSuiteLoader(newRegistry(), nil)
	suites, err := loader.LoadSuites(dir)
	require.NoError(t, err)
	require.Len(t, suites, 3)

	names := []string{suites[0].Name(), suites[1].Name(), suites[2].Name()}
	assert.Equal(t, []string{"passing", "failing", "bare"}, names)
	assert.Equal(t, filepath.Join(dir, "nested/b.json"), suites[1].File)
	assert.Equal(t, 2, suites[1].Suite.Len())
	assert.Equal(t, 1, suites[2].Suite.Len(), "a bare case is wrapped in a suite")
}

func TestLoadSuitesCollectsErrors(t *testing.T) {
	dir := t.TempDir()
	good := writeSuite(t, dir, "good.yaml", passingYAML)
	badYAML := writeSuite(t, dir, "bad.yaml", "testcases: [")
	badCmd := writeSuite(t, dir, "cmd.json", `{"testcases":[{"commands":[{"name":"nope"}]}]}`)
	missing := filepath.Join(dir, "missing.yaml")

	loader := NewSuiteLoader(newRegistry(), nil)
	suites, err := loader.LoadSuites(good, badYAML, badCmd, missing)
	require.Error(t, err)
	assert.Len(t, suites, 1)

	var coll config.ErrorCollection
	require.True(t, errors.As(err, &coll))
	require.Len(t, coll.Errors, 3)
	types := map[string]string{}
	for _, e := range coll.Errors {
		types[e.FilePath] = e.ErrorType
	}
	assert.Equal(t, config.ErrorTypeParse, types[badYAML])
	assert.Equal(t, config.ErrorTypeConstruct, types[badCmd])
	assert.Equal(t, config.ErrorTypeIO, types[missing])
}

func TestFilterSuites(t *testing.T) {
	dir := t.TempDir()
	loader := NewSuiteLoader(newRegistry(), nil)
	suites, err := loader.LoadSuites(writeSuite(t, dir, "a.yaml", passingYAML), writeSuite(t, dir, "b.json", failingJSON))
	require.NoError(t, err)

	assert.Len(t, loader.FilterSuites(suites, TestConfiguration{}), 2)
	filtered := loader.FilterSuites(suites, TestConfiguration{Suite: "fail"})
	require.Len(t, filtered, 1)
	assert.Equal(t, "failing", filtered[0].Name())
}

func loadAll(t *testing.T, docs ...string) []LoadedSuite {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for i, d := range docs {
		paths = append(paths, writeSuite(t, dir, string(rune('a'+i))+".yaml", d))
	}
	suites, err := NewSuiteLoader(newRegistry(), nil).LoadSuites(paths...)
	require.NoError(t, err)
	return suites
}

type memHistory struct {
	mu   sync.Mutex
	runs []*TestRunResult
}

func (h *memHistory) RecordRun(run *TestRunResult) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs = append(h.runs, run)
	return "run-1", nil
}

func TestRunnerSequential(t *testing.T) {
	suites := loadAll(t, passingYAML, failingJSON)
	var out bytes.Buffer
	hist := &memHistory{}
	runner := NewTestRunner(NewQuietReporter(&out), WithHistory(hist))

	run, err := runner.Run(context.Background(), TestConfiguration{}, suites)
	require.NoError(t, err)

	assert.Equal(t, 2, run.TotalSuites)
	assert.Equal(t, 1, run.PassedSuites)
	assert.Equal(t, 1, run.FailedSuites)
	assert.False(t, run.Passed())
	assert.Equal(t, "run-1", run.ID)
	require.Len(t, hist.runs, 1)

	passing := run.SuiteResults[0]
	assert.Equal(t, ResultPassed, passing.Result)
	assert.Equal(t, "hello world\n", passing.Output)

	failing := run.SuiteResults[1]
	assert.Equal(t, ResultFailed, failing.Result)
	assert.Equal(t, suite.Stats{Total: 2, Passed: 1, Failed: 1}, failing.Stats)
	require.Len(t, failing.CaseResults, 2)
	assert.Equal(t, ResultPassed, failing.CaseResults[0].Result)
	assert.Equal(t, ResultFailed, failing.CaseResults[1].Result)

	assert.Contains(t, out.String(), "failing: 1/2 cases failed")
	assert.Contains(t, out.String(), "1/2 suites failed")
}

func TestRunnerStopOnError(t *testing.T) {
	suites := loadAll(t, failingJSON)
	doc := `{"name":"order","testcases":[{"commands":[{"name":"fail"}]},{"commands":[{"name":"pass"}]}]}`
	suites = append(suites, loadAll(t, doc)...)

	run, err := NewTestRunner(nil).Run(context.Background(), TestConfiguration{StopOnError: true}, suites)
	require.NoError(t, err)

	order := run.SuiteResults[1]
	assert.Equal(t, suite.Stats{Total: 2, Failed: 1, Skipped: 1}, order.Stats)
	assert.Equal(t, ResultSkipped, order.CaseResults[1].Result)
}

func TestRunnerFailFast(t *testing.T) {
	suites := loadAll(t, failingJSON, passingYAML, passingYAML)

	run, err := NewTestRunner(nil).Run(context.Background(), TestConfiguration{FailFast: true, Parallel: 1}, suites)
	require.NoError(t, err)

	assert.Equal(t, ResultFailed, run.SuiteResults[0].Result)
	assert.Equal(t, ResultSkipped, run.SuiteResults[1].Result)
	assert.Equal(t, ResultSkipped, run.SuiteResults[2].Result)
	assert.Equal(t, 2, run.SkippedSuites)
}

func TestRunnerParallel(t *testing.T) {
	docs := []string{passingYAML, failingJSON, passingYAML, passingYAML, failingJSON}
	suites := loadAll(t, docs...)
	reg := transport.NewRegistry(transport.WithQueueDir(t.TempDir()))
	defer reg.Close()

	run, err := NewTestRunner(NewQuietReporter(&bytes.Buffer{}), WithTransports(reg)).
		Run(context.Background(), TestConfiguration{Parallel: 3}, suites)
	require.NoError(t, err)

	require.Len(t, run.SuiteResults, len(docs))
	for i, res := range run.SuiteResults {
		assert.Equal(t, suites[i].Name(), res.Name, "results keep input order")
	}
	assert.Equal(t, 3, run.PassedSuites)
	assert.Equal(t, 2, run.FailedSuites)
}

func TestRunnerCancelledContext(t *testing.T) {
	suites := loadAll(t, passingYAML)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := NewTestRunner(nil).Run(ctx, TestConfiguration{}, suites)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ResultSkipped, run.SuiteResults[0].Result)
}

func TestRunnerEnvironmentAndRerun(t *testing.T) {
	doc := `{"name":"env","testcases":[{"commands":[{"name":"log","parameters":["{{ .EXTRA }}"]}]}]}`
	suites := loadAll(t, doc)
	runner := NewTestRunner(nil)
	cfg := TestConfiguration{Environment: map[string]string{"EXTRA": "from-flag"}}

	for i := 0; i < 2; i++ {
		run, err := runner.Run(context.Background(), cfg, suites)
		require.NoError(t, err)
		assert.Equal(t, ResultPassed, run.SuiteResults[0].Result, "run %d", i)
		assert.Equal(t, "from-flag\n", run.SuiteResults[0].Output)
	}

	run, err := runner.Run(context.Background(), TestConfiguration{}, suites)
	require.NoError(t, err)
	assert.Equal(t, ResultFailed, run.SuiteResults[0].Result, "a missing variable ends the case FATAL")
	assert.Equal(t, ResultError, run.SuiteResults[0].CaseResults[0].Result)
}

func TestConsoleReporter(t *testing.T) {
	suites := loadAll(t, passingYAML, failingJSON)
	var out bytes.Buffer
	reportDir := t.TempDir()

	run, err := NewTestRunner(NewTestReporter(&out, true, false, reportDir)).
		Run(context.Background(), TestConfiguration{}, suites)
	require.NoError(t, err)

	s := out.String()
	assert.Contains(t, s, "Running 2 suites")
	assert.Contains(t, s, "🎯 Suite passing")
	assert.Contains(t, s, "✅ greet")
	assert.Contains(t, s, "❌ broken")
	assert.Contains(t, s, "SUITE")
	assert.Contains(t, s, "1 of 2 suites failed")

	entries, err := os.ReadDir(reportDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(filepath.Join(reportDir, entries[0].Name()))
	require.NoError(t, err)

	var saved TestRunResult
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, run.TotalSuites, saved.TotalSuites)
	assert.Equal(t, "failing", saved.SuiteResults[1].Name)
}

func TestJSONReporter(t *testing.T) {
	suites := loadAll(t, passingYAML)
	var out bytes.Buffer

	_, err := NewTestRunner(NewJSONReporter(&out)).Run(context.Background(), TestConfiguration{}, suites)
	require.NoError(t, err)

	var decoded TestRunResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, 1, decoded.PassedSuites)
	assert.Equal(t, "passing", decoded.SuiteResults[0].Name)
}

func TestWriterLogger(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewWriterLogger(&out, &errOut, false, false)
	l.Info("info")
	l.Debug("debug")
	l.Error("error")
	assert.Empty(t, out.String())
	assert.Equal(t, "error", errOut.String())

	l = NewWriterLogger(&out, &errOut, true, true)
	l.Info("i")
	l.Debug("d")
	assert.Equal(t, "id", out.String())
	assert.True(t, l.IsDebugEnabled())
}
