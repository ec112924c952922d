// Package watch reports changes to suite files so they can be re-run.
//
// A Detector watches files and directories with fsnotify. Bursts of events
// for the same file are debounced into one Event. Directories are watched
// recursively; a watched file is followed through its parent directory so
// editors that replace files on save still produce events.
package watch

import "time"

// Operation is the kind of change observed for a file.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Event describes one debounced file change.
type Event struct {
	Path      string
	Operation Operation
	Timestamp time.Time
}

// Filter selects the files a detector reports on.
type Filter func(path string) bool

// DefaultDebounce is used when a detector is created with a zero interval.
const DefaultDebounce = 300 * time.Millisecond
