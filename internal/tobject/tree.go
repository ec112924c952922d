package tobject

import "mec/internal/result"

// Tree is a non-owning ordered tree of objects. The root value may be nil,
// in which case traversal starts at the children.
type Tree struct {
	value    TObject
	children []*Tree
}

// NewTree creates a tree rooted at value.
func NewTree(value TObject) *Tree {
	return &Tree{value: value}
}

// Value returns the object at this node.
func (t *Tree) Value() TObject { return t.value }

// Add appends value as a new child and returns the child's subtree.
func (t *Tree) Add(value TObject) *Tree {
	child := NewTree(value)
	t.children = append(t.children, child)
	return child
}

// AddTree appends an existing subtree.
func (t *Tree) AddTree(sub *Tree) {
	if sub != nil {
		t.children = append(t.children, sub)
	}
}

// Children returns the direct subtrees in insertion order.
func (t *Tree) Children() []*Tree { return t.children }

// Len returns the number of direct children.
func (t *Tree) Len() int { return len(t.children) }

// Visit walks the tree pre-order and stops at the first node whose visit
// result is not truthy. It returns that node and its result. When every
// node passes, culprit is nil and last is the final visit's result (True
// for a tree with nothing to visit).
func (t *Tree) Visit(v Visitor, ctx *RunContext) (culprit TObject, last result.Result) {
	last = result.True
	culprit, last, _ = t.visit(v, ctx, last)
	return culprit, last
}

func (t *Tree) visit(v Visitor, ctx *RunContext, last result.Result) (TObject, result.Result, bool) {
	if t == nil {
		return nil, last, true
	}
	if t.value != nil {
		last = v.Visit(t.value, ctx)
		if !last.Truthy() {
			return t.value, last, false
		}
	}
	for _, c := range t.children {
		var (
			culprit TObject
			ok      bool
		)
		culprit, last, ok = c.visit(v, ctx, last)
		if !ok {
			return culprit, last, false
		}
	}
	return nil, last, true
}

// VisitUntil visits the direct children in order and stops at the first one
// whose visit is truthy, returning an iterator positioned on it. If none
// matches, the returned iterator is Done.
func (t *Tree) VisitUntil(v Visitor, ctx *RunContext) *Iterator {
	it := NewIterator(t)
	if t == nil {
		it.end()
		return it
	}
	for i, c := range t.children {
		if c.value == nil {
			continue
		}
		if v.Visit(c.value, ctx).Truthy() {
			it.atRoot = false
			it.stack = []frame{{tree: t, index: i}}
			return it
		}
	}
	it.end()
	return it
}
