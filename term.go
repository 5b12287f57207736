package tritium

import (
	"sync/atomic"
)

// PredicateFunc computes a value from a Store-in-progress (reached through
// ctx) and the expression's argument terms. A panic is not recovered by the
// evaluator; a predicate that wants a failure cached must return an error.
type PredicateFunc func(ctx *EvalContext, args []Term) (any, error)

var predicateIDs atomic.Uint64

// Predicate is the head term of an expression: the function invoked when the
// expression is not already cached. Predicates are compared by pointer
// identity, the same way the teacher's *Executor[T] values are used directly
// as map keys — two Predicates are equal iff they are the same allocation.
type Predicate struct {
	id      uint64
	name    string
	fn      PredicateFunc
	cascade *cascadeSetter
}

// NewPredicate creates a named predicate. The name is used only for
// debugging (error messages, the dependency-graph visualizer); it plays no
// role in equality or hashing.
func NewPredicate(name string, fn PredicateFunc) *Predicate {
	return &Predicate{
		id:   predicateIDs.Add(1),
		name: name,
		fn:   fn,
	}
}

// Name returns the predicate's debug name.
func (p *Predicate) Name() string {
	return p.name
}

func (p *Predicate) isCascading() bool {
	return p.cascade != nil
}

// Term is a single element of an Expression's term sequence. Allowed
// dynamic types are: *Predicate (a function reference), a primitive
// (string, bool, nil, int, int32, int64, float32 or float64), *Tag (an
// opaque data key distinct from equal-looking primitives), *DerivativeID,
// and Expression itself (so a call expression can be passed as an ordinary
// argument, e.g. the async bridge's `(STATUS, call)`). Any other dynamic
// type is rejected by NewExpression.
type Term = any

// Tag is an opaque, comparable term used as a pure data key (the expression
// head need not be a function; a Tag-headed expression is cache-only data,
// never evaluated).
type Tag struct {
	name string
}

// NewTag creates a new Tag identified by name for debugging; like Predicate,
// Tags compare by pointer identity, not by name.
func NewTag(name string) *Tag {
	return &Tag{name: name}
}

// Name returns the tag's debug name.
func (t *Tag) Name() string {
	return t.name
}

func isValidTerm(t Term) bool {
	switch t.(type) {
	case *Predicate, *Tag, *DerivativeID, Expression:
		return true
	case string, bool, int, int32, int64, float32, float64, nil:
		return true
	default:
		return false
	}
}

func isPredicate(t Term) (*Predicate, bool) {
	p, ok := t.(*Predicate)
	return p, ok
}
