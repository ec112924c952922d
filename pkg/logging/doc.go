// Package logging provides the structured logging used across mec.
//
// It is a thin layer over Go's log/slog that tags every record with the
// subsystem that produced it ("TestCase", "Factory", "Transport", ...), so a
// single run can be filtered by component.
//
// # Initialization
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//	logging.Init(logging.FormatJSON, logging.LevelDebug, file)
//
// # Logging
//
//	logging.Debug("TestCase", "Opening case %s", name)
//	logging.Info("Runner", "Loaded %d suites", n)
//	logging.Warn("Outlet", "Outlet %s is not plugged", name)
//	logging.Error("Factory", err, "Failed to load plugin %s", path)
//
// Until Init is called only Error records are written (to stderr), so library
// use without initialization stays quiet but never loses failures.
//
// An optional entry hook (SetEntryHook) receives every enabled record; tests
// use it to assert on log output without parsing handler text.
package logging
