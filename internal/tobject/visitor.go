package tobject

import (
	"mec/internal/result"
	"mec/pkg/logging"
)

// Visitor is applied to each object during a tree traversal.
type Visitor interface {
	Visit(obj TObject, ctx *RunContext) result.Result
}

// VisitorFunc adapts a function to the Visitor interface.
type VisitorFunc func(obj TObject, ctx *RunContext) result.Result

func (f VisitorFunc) Visit(obj TObject, ctx *RunContext) result.Result {
	return f(obj, ctx)
}

// ProcessVisitor drives an object through RUNNING into FINISHED_GOOD or
// FINISHED_BAD depending on what Process returns.
var ProcessVisitor Visitor = VisitorFunc(processVisit)

func processVisit(obj TObject, ctx *RunContext) result.Result {
	obj.SetState(StateRunning)
	ctx.Emit(Event{Kind: EventStarted, Object: obj})

	r := obj.Process(ctx)
	obj.SetResult(r)
	if r.Truthy() {
		obj.SetState(StateFinishedGood)
	} else {
		obj.SetState(StateFinishedBad)
	}

	ctx.Emit(Event{Kind: EventFinished, Object: obj, Result: r})
	return r
}

// RunVisitor calls Run on objects that have children, so containers nested
// in a tree run their own children. Leaves are processed like ProcessVisitor
// does; calling Run on them would visit them again.
var RunVisitor Visitor = VisitorFunc(func(obj TObject, ctx *RunContext) result.Result {
	if p, ok := obj.(interface{ Len() int }); ok && p.Len() > 0 {
		return obj.Run(ctx)
	}
	return processVisit(obj, ctx)
})

// FindByName matches objects with the given name. Use it with VisitUntil.
func FindByName(name string) Visitor {
	return Predicate(func(obj TObject) bool { return obj.Name() == name })
}

// Predicate turns a boolean test into a visitor returning True or False.
func Predicate(fn func(TObject) bool) Visitor {
	return VisitorFunc(func(obj TObject, _ *RunContext) result.Result {
		return result.Bool(fn(obj))
	})
}

// Trace wraps a visitor, logging each visit and emitting EventVisited.
func Trace(inner Visitor) Visitor {
	return VisitorFunc(func(obj TObject, ctx *RunContext) result.Result {
		r := inner.Visit(obj, ctx)
		logging.Debug("Visitor", "Visited %s (%s): %s", obj.Name(), obj.Type(), r)
		ctx.Emit(Event{Kind: EventVisited, Object: obj, Result: r})
		return r
	})
}
