// Package factory reconstructs test objects from their serialized form.
//
// Factories are grouped by category ("command", "testcase", "testsuite").
// Construct asks each factory of a category in registration order and the
// first one that recognizes the name builds the object. Factories for nested
// objects receive a Constructor so they can build their children through the
// same registry.
package factory

import (
	"errors"
	"fmt"
	"sync"

	"mec/internal/blob"
	"mec/internal/tobject"
	"mec/pkg/logging"
)

// Well-known categories.
const (
	CategoryCommand   = "command"
	CategoryTestCase  = "testcase"
	CategoryTestSuite = "testsuite"
)

// ErrNoFactory is returned when no factory of a category recognizes a name.
var ErrNoFactory = errors.New("no factory can construct object")

// Constructor builds an object of any category. Registry.Construct
// satisfies it.
type Constructor func(category, name string, data *blob.Blob) (tobject.TObject, error)

// Factory constructs objects for one category.
type Factory interface {
	// Category names the object family this factory builds.
	Category() string
	// Construct builds the object called name from data. A factory that
	// does not know name returns (nil, nil) so the next one is asked; a
	// non-nil error aborts construction.
	Construct(name string, data *blob.Blob, construct Constructor) (tobject.TObject, error)
	// Deinitialize releases resources when the factory is unregistered.
	Deinitialize()
}

// Func adapts a function to the Factory interface. Register it by pointer.
type Func struct {
	Cat string
	Fn  func(name string, data *blob.Blob, construct Constructor) (tobject.TObject, error)
}

func (f *Func) Category() string { return f.Cat }

func (f *Func) Construct(name string, data *blob.Blob, construct Constructor) (tobject.TObject, error) {
	return f.Fn(name, data, construct)
}

func (f *Func) Deinitialize() {}

// Registry holds factories per category, in registration order.
type Registry struct {
	mu        sync.RWMutex
	factories map[string][]Factory
	plugins   *pluginLoader
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string][]Factory)}
	r.plugins = newPluginLoader(r)
	return r
}

// Register appends f to its category.
func (r *Registry) Register(f Factory) {
	if f == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[f.Category()] = append(r.factories[f.Category()], f)
	logging.Debug("Factory", "Registered factory for category %s", f.Category())
}

// Unregister removes f and calls its Deinitialize. It reports whether f was
// registered.
func (r *Registry) Unregister(f Factory) bool {
	r.mu.Lock()
	list := r.factories[f.Category()]
	found := false
	for i, g := range list {
		if g == f {
			r.factories[f.Category()] = append(list[:i:i], list[i+1:]...)
			found = true
			break
		}
	}
	r.mu.Unlock()

	if found {
		f.Deinitialize()
		logging.Debug("Factory", "Unregistered factory for category %s", f.Category())
	}
	return found
}

// Factories returns a snapshot of a category's factories.
func (r *Registry) Factories(category string) []Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Factory(nil), r.factories[category]...)
}

// Categories returns how many factories each category holds.
func (r *Registry) Categories() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int, len(r.factories))
	for c, list := range r.factories {
		out[c] = len(list)
	}
	return out
}

// Construct builds the object called name in category from data. It returns
// ErrNoFactory when every factory declines.
func (r *Registry) Construct(category, name string, data *blob.Blob) (tobject.TObject, error) {
	for _, f := range r.Factories(category) {
		obj, err := f.Construct(name, data, r.Construct)
		if err != nil {
			return nil, fmt.Errorf("failed to construct %s %q: %w", category, name, err)
		}
		if obj != nil {
			return obj, nil
		}
	}
	return nil, fmt.Errorf("%w: %s %q", ErrNoFactory, category, name)
}

// Close unregisters every factory, unloading plugins last.
func (r *Registry) Close() {
	r.mu.Lock()
	all := r.factories
	r.factories = make(map[string][]Factory)
	r.mu.Unlock()

	for _, list := range all {
		for _, f := range list {
			f.Deinitialize()
		}
	}
	r.plugins.unloadAll()
}
