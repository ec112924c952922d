// Package tobject implements the test object runtime: the TObject lifecycle
// state machine, the non-owning Tree container with its depth-first visitor
// and restartable iterator, the Container that owns a tree of children, the
// RunContext passed explicitly to every operation, and the ThreadManager used
// for opt-in concurrent runs.
//
// # Lifecycle
//
//	UNINITIALIZED -> INITIAL -> PREPARED -> RUNNING -> (PAUSED) -> STOPPED | FINISHED_BAD | FINISHED_GOOD
//
// Objects start in INITIAL once Init has bound them. Only a Run from PREPARED
// is guaranteed to be meaningful; higher layers (test cases, suites) enforce
// that gate, plain commands do not.
//
// # Embedding
//
// Concrete objects embed Base (or Container) and call Init with themselves so
// that Run dispatches to the outer Process implementation:
//
//	type Echo struct{ tobject.Base }
//
//	func NewEcho() *Echo {
//		e := &Echo{}
//		e.Init(e, "echo", TypeEcho)
//		return e
//	}
//
//	func (e *Echo) Process(ctx *tobject.RunContext) result.Result { ... }
//
// # Traversal
//
// Tree.Visit walks depth-first, parent before children, and stops at the
// first node whose visit coerces to false. Tree.VisitUntil only looks at
// direct children and stops at the first visit that coerces to true. Callers
// rely on that asymmetry: Visit is "run until failure", VisitUntil is
// "search".
//
// # Ownership and concurrency
//
// Trees reference objects without owning them, so one object may appear in
// several trees. Objects are not synchronized: running, stopping or mutating
// the same object from two goroutines is the caller's responsibility.
package tobject
