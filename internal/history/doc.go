// Package history keeps a record of finished test runs.
//
// Runs are stored in an embedded badger database under keys of the form
// "run/<id>", where the id is a random UUID assigned when the run is
// recorded. Values are the JSON encoding of testing.TestRunResult.
//
// An empty path opens an in-memory database.
//
//	store, err := history.Open(path)
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	runner := testing.NewTestRunner(reporter, testing.WithHistory(history.NewTracker(store)))
package history
