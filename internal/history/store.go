package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v2"

	mectesting "mec/internal/testing"
	"mec/pkg/logging"
)

const runPrefix = "run/"

// ErrNotFound is returned when no run with the given id exists.
var ErrNotFound = errors.New("run not found")

// Summary is the listing view of a stored run.
type Summary struct {
	ID       string        `json:"id"`
	Start    time.Time     `json:"start_time"`
	Duration time.Duration `json:"duration"`
	Total    int           `json:"total_suites"`
	Passed   int           `json:"passed_suites"`
	Failed   int           `json:"failed_suites"`
	Skipped  int           `json:"skipped_suites"`
	Errors   int           `json:"error_suites"`
}

// Store persists run results in badger.
type Store struct {
	db *badger.DB

	mu    sync.RWMutex
	cache map[string]Summary
}

// Open opens the history database at path, creating it when needed. An
// empty path gives an in-memory store.
func Open(path string) (*Store, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path).WithSyncWrites(false).WithTruncate(true)
	}
	opts = opts.WithLogger(badgerLogger{})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("could not open history database: %w", err)
	}
	logging.Debug("History", "Opened history database at %q", path)
	return &Store{db: db}, nil
}

func runKey(id string) []byte {
	return []byte(runPrefix + id)
}

// Store writes run under run.ID, replacing an earlier record.
func (s *Store) Store(ctx context.Context, run *mectesting.TestRunResult) error {
	if run.ID == "" {
		return fmt.Errorf("run has no id")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run %s: %w", run.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(runKey(run.ID), data)
	}); err != nil {
		return fmt.Errorf("failed to store run %s: %w", run.ID, err)
	}
	if s.cache != nil {
		s.cache[run.ID] = summarize(run)
	}
	logging.Debug("History", "Stored run %s", run.ID)
	return nil
}

// Get loads the run stored under id.
func (s *Store) Get(ctx context.Context, id string) (*mectesting.TestRunResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(runKey(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	var run mectesting.TestRunResult
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run %s: %w", id, err)
	}
	return &run, nil
}

// List returns summaries of stored runs, most recent first. A positive
// limit caps the number returned.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.refreshCache(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]Summary, 0, len(s.cache))
	for _, sum := range s.cache {
		out = append(out, sum)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.After(out[j].Start)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Delete removes the run stored under id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(runKey(id)); err != nil {
			return err
		}
		return txn.Delete(runKey(id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	if s.cache != nil {
		delete(s.cache, id)
	}
	logging.Debug("History", "Deleted run %s", id)
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// refreshCache builds the summary cache on first use. Later writes keep
// it current.
func (s *Store) refreshCache() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache != nil {
		return nil
	}

	cache := make(map[string]Summary)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(runPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var run mectesting.TestRunResult
				if err := json.Unmarshal(val, &run); err != nil {
					logging.Warn("History", "Skipping unreadable run %s: %v", item.Key(), err)
					return nil
				}
				cache[run.ID] = summarize(&run)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan history: %w", err)
	}
	s.cache = cache
	return nil
}

func summarize(run *mectesting.TestRunResult) Summary {
	return Summary{
		ID:       run.ID,
		Start:    run.StartTime,
		Duration: run.Duration,
		Total:    run.TotalSuites,
		Passed:   run.PassedSuites,
		Failed:   run.FailedSuites,
		Skipped:  run.SkippedSuites,
		Errors:   run.ErrorSuites,
	}
}

// badgerLogger routes badger's own messages into the History subsystem.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logging.Error("History", fmt.Errorf(format, args...), "badger")
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logging.Warn("History", format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logging.Debug("History", format, args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logging.Debug("History", format, args...)
}
