package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"mec/pkg/logging"
)

// Detector emits debounced change events for watched paths.
type Detector struct {
	mu sync.Mutex

	watcher *fsnotify.Watcher

	filter           Filter
	debounceInterval time.Duration

	// dirs are watched recursively; files are watched through their parent
	dirs  map[string]bool
	files map[string]bool

	pending map[string]*debounceEntry

	stopCh  chan struct{}
	running bool
}

type debounceEntry struct {
	event Event
	timer *time.Timer
}

// NewDetector creates a detector. A nil filter accepts every file.
func NewDetector(debounceInterval time.Duration, filter Filter) *Detector {
	if debounceInterval == 0 {
		debounceInterval = DefaultDebounce
	}
	if filter == nil {
		filter = func(string) bool { return true }
	}
	return &Detector{
		filter:           filter,
		debounceInterval: debounceInterval,
		dirs:             make(map[string]bool),
		files:            make(map[string]bool),
		pending:          make(map[string]*debounceEntry),
	}
}

// Add registers a file or directory. It may be called before or after
// Start.
func (d *Detector) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("cannot watch %s: %w", path, err)
	}

	d.mu.Lock()
	if info.IsDir() {
		d.dirs[abs] = true
	} else {
		d.files[abs] = true
	}
	running := d.running
	d.mu.Unlock()

	if running {
		return d.addWatch(abs, info.IsDir())
	}
	return nil
}

// Start begins delivering events on changes until ctx ends or Stop is
// called.
func (d *Detector) Start(ctx context.Context, changes chan<- Event) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		d.mu.Unlock()
		return err
	}
	d.watcher = watcher
	d.running = true
	d.stopCh = make(chan struct{})

	var dirs, files []string
	for p := range d.dirs {
		dirs = append(dirs, p)
	}
	for p := range d.files {
		files = append(files, p)
	}
	d.mu.Unlock()

	for _, p := range dirs {
		if err := d.addWatch(p, true); err != nil {
			logging.Warn("Watch", "Failed to watch %s: %v", p, err)
		}
	}
	for _, p := range files {
		if err := d.addWatch(p, false); err != nil {
			logging.Warn("Watch", "Failed to watch %s: %v", p, err)
		}
	}

	go d.processEvents(ctx, watcher, d.stopCh, changes)

	logging.Debug("Watch", "Watching %d directories and %d files", len(dirs), len(files))
	return nil
}

func (d *Detector) addWatch(path string, dir bool) error {
	d.mu.Lock()
	w := d.watcher
	d.mu.Unlock()
	if w == nil {
		return nil
	}

	if !dir {
		return w.Add(filepath.Dir(path))
	}
	return filepath.WalkDir(path, func(p string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() {
			logging.Debug("Watch", "Watching directory: %s", p)
			return w.Add(p)
		}
		return nil
	})
}

func (d *Detector) processEvents(ctx context.Context, w *fsnotify.Watcher, stopCh chan struct{}, changes chan<- Event) {
	for {
		select {
		case <-ctx.Done():
			d.cleanupPending()
			return
		case <-stopCh:
			d.cleanupPending()
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			d.handleFsEvent(ev, changes)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logging.Error("Watch", err, "Filesystem watcher error")
		}
	}
}

func (d *Detector) handleFsEvent(ev fsnotify.Event, changes chan<- Event) {
	path := filepath.Clean(ev.Name)

	// new subdirectories of a watched tree join the watch
	if ev.Op&fsnotify.Create == fsnotify.Create && d.underWatchedDir(path) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := d.addWatch(path, true); err != nil {
				logging.Warn("Watch", "Failed to watch new directory %s: %v", path, err)
			}
			return
		}
	}

	if !d.wanted(path) {
		return
	}

	var op Operation
	switch {
	case ev.Op&fsnotify.Create == fsnotify.Create:
		op = OperationCreate
	case ev.Op&fsnotify.Write == fsnotify.Write:
		op = OperationUpdate
	case ev.Op&fsnotify.Remove == fsnotify.Remove:
		op = OperationDelete
	case ev.Op&fsnotify.Rename == fsnotify.Rename:
		// the new name arrives as a create
		op = OperationDelete
	default:
		return
	}

	d.debounce(Event{Path: path, Operation: op, Timestamp: time.Now()}, changes)
}

func (d *Detector) wanted(path string) bool {
	d.mu.Lock()
	explicit := d.files[path]
	d.mu.Unlock()
	if explicit {
		return true
	}
	return d.underWatchedDir(path) && d.filter(path)
}

func (d *Detector) underWatchedDir(path string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for dir := range d.dirs {
		rel, err := filepath.Rel(dir, path)
		if err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (d *Detector) debounce(ev Event, changes chan<- Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := ev.Path
	if entry, ok := d.pending[key]; ok {
		entry.timer.Stop()
		ev.Operation = mergeOperations(entry.event.Operation, ev.Operation)
	}

	timer := time.AfterFunc(d.debounceInterval, func() {
		d.mu.Lock()
		entry, ok := d.pending[key]
		if ok {
			delete(d.pending, key)
		}
		d.mu.Unlock()
		if !ok {
			return
		}
		select {
		case changes <- entry.event:
			logging.Debug("Watch", "Change: %s %s", entry.event.Operation, entry.event.Path)
		default:
			logging.Warn("Watch", "Change channel full, dropping event for %s", entry.event.Path)
		}
	})
	d.pending[key] = &debounceEntry{event: ev, timer: timer}
}

// mergeOperations folds a burst of operations on one file into one.
func mergeOperations(old, new Operation) Operation {
	if old == OperationCreate {
		if new == OperationDelete {
			return OperationDelete
		}
		return OperationCreate
	}
	if old == OperationUpdate && new == OperationDelete {
		return OperationDelete
	}
	return new
}

func (d *Detector) cleanupPending() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, entry := range d.pending {
		entry.timer.Stop()
	}
	d.pending = make(map[string]*debounceEntry)
}

// Stop ends watching. It is safe to call more than once.
func (d *Detector) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return nil
	}
	d.running = false
	close(d.stopCh)

	var err error
	if d.watcher != nil {
		err = d.watcher.Close()
		d.watcher = nil
	}
	logging.Debug("Watch", "Stopped watching")
	return err
}
