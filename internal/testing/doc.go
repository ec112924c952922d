// Package testing runs mec test suites from files and reports the results.
//
// # Architecture Overview
//
//	                ┌─────────────────┐
//	                │    mec run      │ (CLI Command)
//	                │  (cmd/run.go)   │
//	                └─────────┬───────┘
//	                          │
//	                ┌─────────▼───────┐
//	                │   TestRunner    │ (runner.go)
//	                └─────────┬───────┘
//	                          │
//	          ┌───────────────┼───────────────┐
//	          │               │               │
//	┌─────────▼──┐   ┌────────▼─────┐   ┌─────▼──────┐
//	│ SuiteLoader │   │ TestReporter │   │  History   │
//	│ (loader.go) │   │(reporter.go) │   │ (recorder) │
//	└─────────────┘   └──────────────┘   └────────────┘
//
// # Suite Files
//
// A suite file is JSON or YAML holding a serialized test suite:
//
//	name: smoke
//	stopOnError: false
//	environment:
//	  - GREETING: hello
//	testcases:
//	  - name: write-and-read
//	    commands:
//	      - name: openw
//	        parameters: ["/tmp/f"]
//	      - name: write
//	        parameters: ["/tmp/f", "{{ .GREETING }}"]
//	      - name: close
//	        parameters: ["/tmp/f"]
//
// A file holding a single test case (a document with "commands" and no
// "testcases") is wrapped in a suite of the same name. Directories are
// walked recursively for .json, .yaml and .yml files. Every file that fails
// to load is reported at once.
//
// # Execution
//
// Suites run sequentially by default. With Parallel above one an errgroup
// bounded to that many goroutines runs them concurrently; each suite gets
// its own run context, outlet set and output buffer. FailFast stops starting
// suites once one has failed. Cases inside a suite always run in order.
//
// # Reporting
//
// The console reporter shows a progress bar, or per-case lines in verbose
// mode, followed by a summary table. The quiet reporter prints only
// failures and the final line. The JSON reporter prints the whole run as
// one JSON document. A report directory also receives a JSON report file.
package testing
