package tobject

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"mec/internal/result"
	"mec/pkg/logging"
)

// ErrTerminateUnsupported is returned when a running goroutine is asked to
// terminate. Go offers no way to kill a goroutine from outside.
var ErrTerminateUnsupported = errors.New("terminating a running thread is not supported")

// ThreadState is the lifecycle of a Handle.
type ThreadState int

const (
	ThreadPending ThreadState = iota
	ThreadRunning
	ThreadFinished
	ThreadCancelled
)

func (s ThreadState) String() string {
	switch s {
	case ThreadPending:
		return "pending"
	case ThreadRunning:
		return "running"
	case ThreadFinished:
		return "finished"
	case ThreadCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Callback is invoked with the object and its outcome once a started run
// completes.
type Callback func(obj TObject, r result.Result)

// Handle tracks one object running on its own goroutine.
type Handle struct {
	id  string
	obj TObject

	mu        sync.Mutex
	state     ThreadState
	result    result.Result
	callbacks []Callback
	done      chan struct{}
}

// ID returns the handle's unique identifier.
func (h *Handle) ID() string { return h.id }

// Object returns the object being run.
func (h *Handle) Object() TObject { return h.obj }

// Notify registers a completion callback. Callbacks added after completion
// fire immediately.
func (h *Handle) Notify(cb Callback) {
	if cb == nil {
		return
	}
	h.mu.Lock()
	if h.state == ThreadFinished || h.state == ThreadCancelled {
		r := h.result
		h.mu.Unlock()
		cb(h.obj, r)
		return
	}
	h.callbacks = append(h.callbacks, cb)
	h.mu.Unlock()
}

// Cancel prevents a handle that has not started running from doing so.
func (h *Handle) Cancel() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != ThreadPending {
		return false
	}
	h.state = ThreadCancelled
	h.result = result.Fatal()
	return true
}

// CanTerminate reports whether Terminate can stop a running handle.
func (h *Handle) CanTerminate() bool { return false }

// Terminate always fails; see ErrTerminateUnsupported.
func (h *Handle) Terminate() error { return ErrTerminateUnsupported }

// State returns the handle state.
func (h *Handle) State() ThreadState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Result returns the outcome so far: unset while running.
func (h *Handle) Result() result.Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result
}

// Done is closed when the handle completes or is cancelled.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until completion and returns the outcome.
func (h *Handle) Wait() result.Result {
	<-h.done
	return h.Result()
}

// ThreadManager runs objects on goroutines and keeps at most one handle per
// object.
type ThreadManager struct {
	mu      sync.Mutex
	running map[TObject]*Handle
}

// NewThreadManager creates an empty manager.
func NewThreadManager() *ThreadManager {
	return &ThreadManager{running: make(map[TObject]*Handle)}
}

// Start launches obj.Run(ctx) on a new goroutine. It returns True once the
// goroutine is launched and Fatal if obj is already running.
func (m *ThreadManager) Start(obj TObject, ctx *RunContext, cb Callback) (*Handle, result.Result) {
	m.mu.Lock()
	if h, ok := m.running[obj]; ok {
		m.mu.Unlock()
		logging.Warn("Threads", "%s is already running on thread %s", obj.Name(), h.id)
		return h, result.Fatal()
	}
	h := &Handle{
		id:    uuid.New().String(),
		obj:   obj,
		state: ThreadPending,
		done:  make(chan struct{}),
	}
	if cb != nil {
		h.callbacks = append(h.callbacks, cb)
	}
	m.running[obj] = h
	m.mu.Unlock()

	logging.Debug("Threads", "Starting %s on thread %s", obj.Name(), h.id)
	go m.run(h, ctx)
	return h, result.True
}

func (m *ThreadManager) run(h *Handle, ctx *RunContext) {
	h.mu.Lock()
	cancelled := h.state == ThreadCancelled
	if !cancelled {
		h.state = ThreadRunning
	}
	h.mu.Unlock()

	var r result.Result
	if cancelled {
		r = result.Fatal()
		logging.Debug("Threads", "Thread %s cancelled before start", h.id)
	} else {
		r = h.obj.Run(ctx)
	}

	m.mu.Lock()
	if m.running[h.obj] == h {
		delete(m.running, h.obj)
	}
	m.mu.Unlock()

	h.mu.Lock()
	if !cancelled {
		h.state = ThreadFinished
	}
	h.result = r
	callbacks := h.callbacks
	h.callbacks = nil
	h.mu.Unlock()

	for _, cb := range callbacks {
		cb(h.obj, r)
	}
	close(h.done)
}

// Lookup returns the handle running obj, if any.
func (m *ThreadManager) Lookup(obj TObject) (*Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.running[obj]
	return h, ok
}

// Stop cancels a pending run of obj. With force it tries to terminate a run
// already in progress, which is unsupported and logged. It returns false when
// obj is not running or could not be stopped.
func (m *ThreadManager) Stop(obj TObject, force bool) bool {
	h, ok := m.Lookup(obj)
	if !ok {
		return false
	}
	if h.Cancel() {
		return true
	}
	if !force {
		return false
	}
	if !h.CanTerminate() {
		logging.Warn("Threads", "Cannot terminate %s on thread %s: %v", obj.Name(), h.id, ErrTerminateUnsupported)
		return false
	}
	return h.Terminate() == nil
}

// Wait blocks until obj's current run completes. Objects that are not
// running return their last result.
func (m *ThreadManager) Wait(obj TObject) result.Result {
	if h, ok := m.Lookup(obj); ok {
		return h.Wait()
	}
	return obj.Result()
}

// Running returns the number of live handles.
func (m *ThreadManager) Running() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.running)
}
