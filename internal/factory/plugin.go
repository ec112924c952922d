package factory

import (
	"fmt"
	"path/filepath"
	"plugin"
	"sync"

	"golang.org/x/sync/singleflight"

	"mec/pkg/logging"
)

// Plugin symbols. A plugin is a Go shared object built with
// -buildmode=plugin that exports:
//
//	func Initialize() factory.Factory
//	func Deinitialize()
const (
	SymbolInitialize   = "Initialize"
	SymbolDeinitialize = "Deinitialize"
)

// openPlugin is swapped in tests.
var openPlugin = func(path string) (symbolLookup, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return p, nil
}

type symbolLookup interface {
	Lookup(name string) (plugin.Symbol, error)
}

type loadedPlugin struct {
	path         string
	factory      Factory
	deinitialize func()
}

// pluginLoader loads each plugin path once. Concurrent loads of the same path
// share one Initialize call.
type pluginLoader struct {
	registry *Registry
	group    singleflight.Group

	mu     sync.Mutex
	loaded map[string]*loadedPlugin
}

func newPluginLoader(r *Registry) *pluginLoader {
	return &pluginLoader{registry: r, loaded: make(map[string]*loadedPlugin)}
}

// LoadPlugin opens the plugin at path, calls its Initialize and registers the
// returned factory. Loading an already loaded path returns the existing
// factory. Failures return a nil factory and an error.
func (r *Registry) LoadPlugin(path string) (Factory, error) {
	return r.plugins.load(path)
}

// UnloadPlugin unregisters a plugin's factory and calls its Deinitialize.
// Go cannot unmap a plugin, so loading the same path again reuses the mapped
// code.
func (r *Registry) UnloadPlugin(path string) bool {
	return r.plugins.unload(path)
}

// Plugins lists loaded plugin paths.
func (r *Registry) Plugins() []string {
	r.plugins.mu.Lock()
	defer r.plugins.mu.Unlock()
	out := make([]string, 0, len(r.plugins.loaded))
	for p := range r.plugins.loaded {
		out = append(out, p)
	}
	return out
}

func (l *pluginLoader) load(path string) (Factory, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve plugin path %s: %w", path, err)
	}

	v, err, shared := l.group.Do(abs, func() (interface{}, error) {
		l.mu.Lock()
		if lp, ok := l.loaded[abs]; ok {
			l.mu.Unlock()
			return lp, nil
		}
		l.mu.Unlock()

		lp, err := initPlugin(abs)
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		l.loaded[abs] = lp
		l.mu.Unlock()
		l.registry.Register(lp.factory)
		logging.Info("Factory", "Loaded plugin %s for category %s", abs, lp.factory.Category())
		return lp, nil
	})
	if err != nil {
		logging.Error("Factory", err, "Failed to load plugin %s", abs)
		return nil, err
	}
	if shared {
		logging.Debug("Factory", "Plugin load of %s was shared with a concurrent caller", abs)
	}
	return v.(*loadedPlugin).factory, nil
}

func initPlugin(path string) (*loadedPlugin, error) {
	p, err := openPlugin(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plugin %s: %w", path, err)
	}

	sym, err := p.Lookup(SymbolInitialize)
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", path, err)
	}
	initialize, ok := sym.(func() Factory)
	if !ok {
		return nil, fmt.Errorf("plugin %s: %s has type %T, want func() factory.Factory", path, SymbolInitialize, sym)
	}

	lp := &loadedPlugin{path: path}
	if sym, err := p.Lookup(SymbolDeinitialize); err == nil {
		deinit, ok := sym.(func())
		if !ok {
			return nil, fmt.Errorf("plugin %s: %s has type %T, want func()", path, SymbolDeinitialize, sym)
		}
		lp.deinitialize = deinit
	}

	lp.factory = initialize()
	if lp.factory == nil {
		return nil, fmt.Errorf("plugin %s: %s returned no factory", path, SymbolInitialize)
	}
	return lp, nil
}

func (l *pluginLoader) unload(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	l.mu.Lock()
	lp, ok := l.loaded[abs]
	delete(l.loaded, abs)
	l.mu.Unlock()
	if !ok {
		return false
	}

	l.registry.Unregister(lp.factory)
	if lp.deinitialize != nil {
		lp.deinitialize()
	}
	logging.Info("Factory", "Unloaded plugin %s", abs)
	return true
}

func (l *pluginLoader) unloadAll() {
	l.mu.Lock()
	all := l.loaded
	l.loaded = make(map[string]*loadedPlugin)
	l.mu.Unlock()

	for _, lp := range all {
		if lp.deinitialize != nil {
			lp.deinitialize()
		}
	}
}
