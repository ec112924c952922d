// Package transport provides the concrete producers and consumers plugged
// into outlets at run time, addressed by target strings:
//
//	/tmp/out.txt, file:/tmp/out.txt   a file on disk
//	mem:name                          a named in-memory buffer
//	queue:/var/lib/mec/q              a durable FIFO queue on a write-ahead log
//	console:                          standard output / interactive input
//
// Registry implements dataflow.Opener and is the only place that knows about
// schemes.
package transport

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"mec/internal/dataflow"
	"mec/pkg/logging"
)

const (
	SchemeFile    = "file"
	SchemeMem     = "mem"
	SchemeQueue   = "queue"
	SchemeConsole = "console"
)

// Target is a parsed transport address.
type Target struct {
	Scheme string
	Path   string
}

// ParseTarget splits target into scheme and path. Targets without a known
// scheme prefix are file paths.
func ParseTarget(target string) Target {
	if scheme, rest, ok := strings.Cut(target, ":"); ok {
		switch scheme {
		case SchemeFile, SchemeMem, SchemeQueue, SchemeConsole:
			return Target{Scheme: scheme, Path: rest}
		}
	}
	return Target{Scheme: SchemeFile, Path: target}
}

func (t Target) String() string {
	return t.Scheme + ":" + t.Path
}

// Registry opens transports and owns the state shared between them: named
// memory buffers and open queue logs.
type Registry struct {
	mu       sync.Mutex
	mem      map[string]*memBuffer
	queues   map[string]*queueLog
	queueDir string
	stdin    io.ReadCloser
	stdout   io.Writer
	prompt   string
}

// Option configures a Registry.
type Option func(*Registry)

// WithQueueDir resolves relative queue paths against dir.
func WithQueueDir(dir string) Option {
	return func(r *Registry) { r.queueDir = dir }
}

// WithConsole sets the console streams.
func WithConsole(in io.ReadCloser, out io.Writer) Option {
	return func(r *Registry) {
		r.stdin = in
		r.stdout = out
	}
}

// WithPrompt sets the prompt shown by console producers.
func WithPrompt(prompt string) Option {
	return func(r *Registry) { r.prompt = prompt }
}

// NewRegistry creates a registry using the process console by default.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		mem:    make(map[string]*memBuffer),
		queues: make(map[string]*queueLog),
		stdin:  os.Stdin,
		stdout: os.Stdout,
		prompt: "> ",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ dataflow.Opener = (*Registry)(nil)

// OpenProducer opens target for reading.
func (r *Registry) OpenProducer(target string) (dataflow.Producer, error) {
	t := ParseTarget(target)
	logging.Debug("Transport", "Opening producer on %s", t)

	switch t.Scheme {
	case SchemeFile:
		return OpenFileProducer(t.Path)
	case SchemeMem:
		return &memProducer{buf: r.buffer(t.Path)}, nil
	case SchemeQueue:
		q, err := r.queue(t.Path)
		if err != nil {
			return nil, err
		}
		return &queueEnd{q: q}, nil
	case SchemeConsole:
		p, err := newConsoleProducer(r.prompt, r.stdin, r.stdout)
		if err != nil {
			return nil, fmt.Errorf("failed to open console: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %s", dataflow.ErrUnknownTransport, target)
	}
}

// OpenConsumer opens target for writing. appendMode keeps existing file or
// buffer contents; otherwise they are truncated. Queues always append.
func (r *Registry) OpenConsumer(target string, appendMode bool) (dataflow.Consumer, error) {
	t := ParseTarget(target)
	logging.Debug("Transport", "Opening consumer on %s (append=%t)", t, appendMode)

	switch t.Scheme {
	case SchemeFile:
		return OpenFileConsumer(t.Path, appendMode)
	case SchemeMem:
		buf := r.buffer(t.Path)
		if !appendMode {
			buf.mu.Lock()
			buf.data = nil
			buf.mu.Unlock()
		}
		return &memConsumer{buf: buf}, nil
	case SchemeQueue:
		q, err := r.queue(t.Path)
		if err != nil {
			return nil, err
		}
		return &queueEnd{q: q}, nil
	case SchemeConsole:
		return &consoleConsumer{out: r.stdout}, nil
	default:
		return nil, fmt.Errorf("%w: %s", dataflow.ErrUnknownTransport, target)
	}
}

// Mem returns the current contents of a named memory buffer.
func (r *Registry) Mem(name string) (string, bool) {
	r.mu.Lock()
	buf, ok := r.mem[name]
	r.mu.Unlock()
	if !ok {
		return "", false
	}
	return string(buf.snapshot(0)), true
}

// Exists reports whether target currently holds data: a file exists, a
// memory buffer was written or a queue directory is present.
func (r *Registry) Exists(target string) bool {
	t := ParseTarget(target)
	switch t.Scheme {
	case SchemeFile:
		_, err := os.Stat(t.Path)
		return err == nil
	case SchemeMem:
		_, ok := r.Mem(t.Path)
		return ok
	case SchemeQueue:
		_, err := os.Stat(r.queuePath(t.Path))
		return err == nil
	case SchemeConsole:
		return true
	default:
		return false
	}
}

func (r *Registry) buffer(name string) *memBuffer {
	r.mu.Lock()
	defer r.mu.Unlock()
	buf, ok := r.mem[name]
	if !ok {
		buf = &memBuffer{}
		r.mem[name] = buf
	}
	return buf
}

func (r *Registry) queuePath(path string) string {
	if r.queueDir != "" && !filepath.IsAbs(path) {
		return filepath.Join(r.queueDir, path)
	}
	return path
}

func (r *Registry) queue(path string) (*queueLog, error) {
	dir := r.queuePath(path)
	if dir == "" {
		return nil, errors.New("queue target needs a directory")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.queues[dir]
	if !ok {
		var err error
		q, err = openQueueLog(dir)
		if err != nil {
			return nil, err
		}
		q.release = r.releaseQueue
		r.queues[dir] = q
	}
	q.acquire()
	return q, nil
}

func (r *Registry) releaseQueue(q *queueLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.queues[q.dir] == q {
		delete(r.queues, q.dir)
	}
}

// Close closes every queue still open through this registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	queues := make([]*queueLog, 0, len(r.queues))
	for _, q := range r.queues {
		queues = append(queues, q)
	}
	r.queues = make(map[string]*queueLog)
	r.mu.Unlock()

	var errs []error
	for _, q := range queues {
		q.release = nil
		q.mu.Lock()
		q.refs = 1
		q.mu.Unlock()
		if err := q.close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
