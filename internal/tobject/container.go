package tobject

import "mec/internal/result"

// Container is a TObject that owns a tree of children. Running a container
// with children visits them instead of processing itself.
type Container struct {
	Base
	children *Tree
}

// Add appends a child and returns its subtree, allocating the tree on first
// use.
func (c *Container) Add(child TObject) *Tree {
	if c.children == nil {
		c.children = NewTree(nil)
	}
	return c.children.Add(child)
}

// Children returns the direct children in order.
func (c *Container) Children() []TObject {
	if c.children == nil {
		return nil
	}
	out := make([]TObject, 0, c.children.Len())
	for _, t := range c.children.Children() {
		out = append(out, t.Value())
	}
	return out
}

// ChildTree exposes the children as a forest rooted at a nil value. It is nil
// until the first Add.
func (c *Container) ChildTree() *Tree { return c.children }

// Len returns the number of direct children.
func (c *Container) Len() int {
	if c.children == nil {
		return 0
	}
	return c.children.Len()
}

// Run processes the container itself when it has no children. Otherwise it
// visits the children with the context's visitor and stops at the first one
// that fails; that child's result becomes the container's result.
func (c *Container) Run(ctx *RunContext) result.Result {
	if c.Len() == 0 {
		return c.Base.Run(ctx)
	}
	r := c.RunChildren(ctx)
	c.Self().SetResult(r)
	return r
}

// RunChildren visits the children without touching the container's own
// state. An empty container succeeds.
func (c *Container) RunChildren(ctx *RunContext) result.Result {
	if c.Len() == 0 {
		return result.True
	}
	_, last := c.children.Visit(ctx.visitor(), ctx)
	return last
}
