package tobject

type frame struct {
	tree  *Tree
	index int
}

// Iterator is a restartable pre-order cursor over a Tree. It is positioned
// either on the root value or inside a stack of (subtree, child index)
// frames. An iterator that is neither is at the end.
type Iterator struct {
	root   *Tree
	atRoot bool
	stack  []frame
}

// NewIterator returns an iterator positioned on root's own value.
func NewIterator(root *Tree) *Iterator {
	it := &Iterator{root: root}
	it.Reset()
	return it
}

// Begin returns a fresh iterator over t positioned on its root.
func (t *Tree) Begin() *Iterator { return NewIterator(t) }

// Reset moves the cursor back to the root.
func (it *Iterator) Reset() {
	it.atRoot = it.root != nil
	it.stack = it.stack[:0]
}

func (it *Iterator) end() {
	it.atRoot = false
	it.stack = nil
}

// Done reports whether the traversal is exhausted.
func (it *Iterator) Done() bool {
	return !it.atRoot && len(it.stack) == 0
}

// Current returns the object under the cursor. It is nil at the end and on
// a forest root.
func (it *Iterator) Current() TObject {
	if it.atRoot {
		return it.root.value
	}
	if len(it.stack) == 0 {
		return nil
	}
	top := it.stack[len(it.stack)-1]
	return top.tree.children[top.index].value
}

// Next advances to the next non-nil object in pre-order and returns it, or
// nil once the traversal is exhausted.
func (it *Iterator) Next() TObject {
	for {
		it.advance()
		if it.Done() {
			return nil
		}
		if obj := it.Current(); obj != nil {
			return obj
		}
	}
}

func (it *Iterator) advance() {
	if it.atRoot {
		it.atRoot = false
		if len(it.root.children) > 0 {
			it.stack = append(it.stack, frame{tree: it.root})
		}
		return
	}
	if len(it.stack) == 0 {
		return
	}

	top := &it.stack[len(it.stack)-1]
	if child := top.tree.children[top.index]; len(child.children) > 0 {
		it.stack = append(it.stack, frame{tree: child})
		return
	}

	top.index++
	for len(it.stack) > 0 {
		top = &it.stack[len(it.stack)-1]
		if top.index < len(top.tree.children) {
			return
		}
		it.stack = it.stack[:len(it.stack)-1]
		if len(it.stack) > 0 {
			it.stack[len(it.stack)-1].index++
		}
	}
}

// Objects collects every non-nil object from the cursor onwards, current
// included.
func (it *Iterator) Objects() []TObject {
	var out []TObject
	if obj := it.Current(); obj != nil {
		out = append(out, obj)
	}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		out = append(out, obj)
	}
	return out
}

// Equal reports whether both iterators walk the same tree and sit on the
// same position.
func (it *Iterator) Equal(other *Iterator) bool {
	if it == nil || other == nil {
		return it == other
	}
	if it.root != other.root || it.atRoot != other.atRoot {
		return false
	}
	if len(it.stack) == 0 || len(other.stack) == 0 {
		return len(it.stack) == len(other.stack)
	}
	a := it.stack[len(it.stack)-1]
	b := other.stack[len(other.stack)-1]
	return a.tree == b.tree && a.index == b.index
}
