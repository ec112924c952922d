package factory

import (
	"errors"
	"plugin"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mec/internal/blob"
	"mec/internal/tobject"
)

type named struct{ tobject.Base }

func newNamed(name string) *named {
	n := &named{}
	n.Init(n, name, tobject.TypeTObject)
	return n
}

// only builds objects whose name is in names.
func only(category string, calls *[]string, tag string, names ...string) *Func {
	return &Func{Cat: category, Fn: func(name string, _ *blob.Blob, _ Constructor) (tobject.TObject, error) {
		*calls = append(*calls, tag)
		for _, n := range names {
			if n == name {
				return newNamed(tag + ":" + name), nil
			}
		}
		return nil, nil
	}}
}

func TestConstructChainOfResponsibility(t *testing.T) {
	var calls []string
	r := NewRegistry()
	r.Register(only(CategoryCommand, &calls, "first", "log"))
	r.Register(only(CategoryCommand, &calls, "second", "log", "write"))

	obj, err := r.Construct(CategoryCommand, "write", nil)
	require.NoError(t, err)
	assert.Equal(t, "second:write", obj.Name())
	assert.Equal(t, []string{"first", "second"}, calls)

	calls = nil
	obj, err = r.Construct(CategoryCommand, "log", nil)
	require.NoError(t, err)
	assert.Equal(t, "first:log", obj.Name(), "first registered factory wins")
	assert.Equal(t, []string{"first"}, calls)

	obj, err = r.Construct(CategoryCommand, "unknown", nil)
	assert.Nil(t, obj)
	assert.ErrorIs(t, err, ErrNoFactory)

	_, err = r.Construct(CategoryTestCase, "log", nil)
	assert.ErrorIs(t, err, ErrNoFactory, "categories are separate")
}

func TestConstructErrorAborts(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	r := NewRegistry()
	r.Register(&Func{Cat: CategoryCommand, Fn: func(string, *blob.Blob, Constructor) (tobject.TObject, error) {
		return nil, boom
	}})
	r.Register(only(CategoryCommand, &calls, "later", "log"))

	_, err := r.Construct(CategoryCommand, "log", nil)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, calls)
}

type countingFactory struct {
	Func
	deinit int
}

func (c *countingFactory) Deinitialize() { c.deinit++ }

func TestUnregister(t *testing.T) {
	var calls []string
	f := &countingFactory{Func: *only(CategoryCommand, &calls, "f", "log")}
	r := NewRegistry()
	r.Register(f)
	assert.Equal(t, map[string]int{CategoryCommand: 1}, r.Categories())

	assert.True(t, r.Unregister(f))
	assert.False(t, r.Unregister(f))
	assert.Equal(t, 1, f.deinit)
	assert.Empty(t, r.Factories(CategoryCommand))
}

type fakePlugin map[string]plugin.Symbol

func (p fakePlugin) Lookup(name string) (plugin.Symbol, error) {
	if s, ok := p[name]; ok {
		return s, nil
	}
	return nil, errors.New("symbol " + name + " not found")
}

func withFakePlugins(t *testing.T, plugins map[string]symbolLookup) *int32 {
	t.Helper()
	var opens int32
	orig := openPlugin
	openPlugin = func(path string) (symbolLookup, error) {
		atomic.AddInt32(&opens, 1)
		for suffix, p := range plugins {
			if len(path) >= len(suffix) && path[len(path)-len(suffix):] == suffix {
				return p, nil
			}
		}
		return nil, errors.New("not a plugin")
	}
	t.Cleanup(func() { openPlugin = orig })
	return &opens
}

func TestLoadPlugin(t *testing.T) {
	var calls []string
	var deinit int32
	opens := withFakePlugins(t, map[string]symbolLookup{
		"good.so": fakePlugin{
			SymbolInitialize:   func() Factory { return only(CategoryCommand, &calls, "plugin", "beep") },
			SymbolDeinitialize: func() { atomic.AddInt32(&deinit, 1) },
		},
		"noinit.so": fakePlugin{},
		"badtype.so": fakePlugin{
			SymbolInitialize: func() {},
		},
	})

	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, err := r.LoadPlugin("good.so")
			assert.NoError(t, err)
			assert.NotNil(t, f)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(opens), "one open per path")
	assert.Len(t, r.Plugins(), 1)

	obj, err := r.Construct(CategoryCommand, "beep", nil)
	require.NoError(t, err)
	assert.Equal(t, "plugin:beep", obj.Name())

	for _, bad := range []string{"noinit.so", "badtype.so", "missing.so"} {
		f, err := r.LoadPlugin(bad)
		assert.Nil(t, f, bad)
		assert.Error(t, err, bad)
	}

	assert.True(t, r.UnloadPlugin("good.so"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&deinit))
	_, err = r.Construct(CategoryCommand, "beep", nil)
	assert.ErrorIs(t, err, ErrNoFactory)
	assert.False(t, r.UnloadPlugin("good.so"))
}
