package tobject

import (
	"fmt"
	"sync"
)

// Type is an interned, pointer-comparable type tag. Two tags with the same
// name are the same pointer.
type Type struct {
	name   string
	parent *Type
}

// Name returns the tag name.
func (t *Type) Name() string {
	if t == nil {
		return ""
	}
	return t.name
}

// Parent returns the parent tag, nil for roots.
func (t *Type) Parent() *Type {
	if t == nil {
		return nil
	}
	return t.parent
}

// IsA reports whether t is other or derives from it.
func (t *Type) IsA(other *Type) bool {
	for cur := t; cur != nil; cur = cur.parent {
		if cur == other {
			return true
		}
	}
	return false
}

func (t *Type) String() string { return t.Name() }

var (
	typesMu sync.Mutex
	types   = make(map[string]*Type)
)

// RegisterType interns a type tag. Registering an existing name returns the
// existing tag; registering it with a different parent panics, since tags
// are declared once at package initialization.
func RegisterType(name string, parent *Type) *Type {
	typesMu.Lock()
	defer typesMu.Unlock()

	if t, ok := types[name]; ok {
		if t.parent != parent {
			panic(fmt.Sprintf("type %q already registered with parent %q", name, t.parent.Name()))
		}
		return t
	}
	t := &Type{name: name, parent: parent}
	types[name] = t
	return t
}

// LookupType returns the interned tag for name.
func LookupType(name string) (*Type, bool) {
	typesMu.Lock()
	defer typesMu.Unlock()
	t, ok := types[name]
	return t, ok
}

var (
	// TypeTObject is the root of every type tag.
	TypeTObject = RegisterType("tobject", nil)
	// TypeContainer tags objects that own a tree of children.
	TypeContainer = RegisterType("container", TypeTObject)
)
