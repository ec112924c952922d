package history

import (
	"context"

	"github.com/google/uuid"

	mectesting "mec/internal/testing"
	"mec/pkg/logging"
)

// Tracker assigns ids to finished runs and stores them.
type Tracker struct {
	store *Store
}

// NewTracker returns a tracker writing to store.
func NewTracker(store *Store) *Tracker {
	return &Tracker{store: store}
}

// RecordRun stores run under a fresh id and returns it. A run that already
// carries an id keeps it.
func (t *Tracker) RecordRun(run *mectesting.TestRunResult) (string, error) {
	id := run.ID
	if id == "" {
		id = uuid.New().String()
	}
	run.ID = id
	if err := t.store.Store(context.Background(), run); err != nil {
		return "", err
	}
	logging.Debug("History", "Recorded run %s (%d suites, %d failed)", id, run.TotalSuites, run.FailedSuites+run.ErrorSuites)
	return id, nil
}

var _ mectesting.HistoryRecorder = (*Tracker)(nil)
