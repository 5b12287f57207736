package tritium

import "errors"

// evaluator runs Get/Spy against a Store-in-progress. It is created fresh
// for each top-level Get call and discarded once that call returns; its
// fields (currentlyComputing, deepest) are exactly the per-computation
// stacks spec §4.3 describes and spec §9 explicitly says do not belong on
// the persistent Store.
type evaluator struct {
	store              *Store
	currentlyComputing Set
	deepest            Expression // zero value (IsZero) means "none"
}

func newEvaluator(s *Store) *evaluator {
	return &evaluator{store: s}
}

// EvalContext is the handle a PredicateFunc receives. Spy is the only
// sanctioned way to consult another expression from inside a predicate;
// calling the package-level Get instead would omit the contributor edge and
// violate I1/I3 (spec §4.3).
type EvalContext struct {
	eval *evaluator
	expr Expression
}

// Spy resolves e exactly like Get, and additionally records the edge
// "expr consulted e" in the Store-in-progress (spec §4.3).
func (c *EvalContext) Spy(e Expression) (any, error) {
	return c.eval.spy(e)
}

// GetDerivativeID obtains a DerivativeID keyed by uniqueKey, capturing the
// currently-evaluating expression as its creatingExpr (spec §4.4). Calling
// it outside an in-flight evaluation raises DerivativeMisuse.
func (c *EvalContext) GetDerivativeID(uniqueKey any) (*DerivativeID, error) {
	if c.eval.deepest.IsZero() {
		return nil, &DerivativeMisuse{Reason: "GetDerivativeID called outside an in-flight evaluation"}
	}
	return &DerivativeID{CreatingExpr: c.eval.deepest, UniqueKey: uniqueKey}, nil
}

// SetDerivative writes a derivative expression's value and ties its cache
// lifetime to the currently-evaluating expression (spec §4.4): invalidating
// the creator invalidates every derivative it set, because d is recorded as
// one of the creator's dependents.
func (c *EvalContext) SetDerivative(d Expression, value any) error {
	if c.eval.deepest.IsZero() {
		return &DerivativeMisuse{Reason: "SetDerivative called outside an in-flight evaluation"}
	}
	ns, _ := c.eval.store.setDerivative(d, value, c.eval.deepest)
	c.eval.store = ns
	return nil
}

// Peek reads e's currently cached cell without recording a dependency.
func (c *EvalContext) Peek(e Expression) (ResultCell, bool) {
	return c.eval.store.Lookup(e)
}

// get implements the spec §4.3 get(e) contract.
func (ev *evaluator) get(e Expression) (any, error) {
	if cell, ok := ev.store.Lookup(e); ok {
		return cell.Resolve()
	}

	if _, isPred := e.HeadPredicate(); !isPred {
		// Head is a tag or primitive: data-only expression. If any argument
		// is a DerivativeID whose creator hasn't run yet, run it first (for
		// its effect of publishing derivatives through SetDerivative), then
		// check again.
		for _, t := range e.Terms() {
			if d, ok := t.(*DerivativeID); ok {
				if _, cached := ev.store.Lookup(d.CreatingExpr); !cached {
					_, _ = ev.get(d.CreatingExpr) // ignore creator's own return, per spec §4.3
				}
			}
		}
		if cell, ok := ev.store.Lookup(e); ok {
			return cell.Resolve()
		}
		return nil, nil // undefined-valued outcome
	}

	return ev.evaluate(e)
}

// spy implements spec §4.3's spy(e): get(e) plus edge recording against
// whichever expression is currently deepest.
func (ev *evaluator) spy(e Expression) (any, error) {
	v, err := ev.get(e)
	if !ev.deepest.IsZero() {
		ev.store = ev.store.addContributorEdge(e, ev.deepest)
	}
	return v, err
}

// evaluate runs e's predicate (spec §4.3 step 3).
func (ev *evaluator) evaluate(e Expression) (any, error) {
	if ev.currentlyComputing.Contains(e) {
		return nil, &RecursiveExpressionComputation{Expr: e}
	}

	pred, _ := e.HeadPredicate()

	ev.currentlyComputing = ev.currentlyComputing.Add(e)
	savedDeepest := ev.deepest
	ev.deepest = e

	ctx := &EvalContext{eval: ev, expr: e}
	value, err := pred.fn(ctx, e.Args())

	ev.currentlyComputing = ev.currentlyComputing.Remove(e)
	ev.deepest = savedDeepest

	var recErr *RecursiveExpressionComputation
	if errors.As(err, &recErr) {
		// Engine-misuse errors are not cached (spec §7); e stays exactly as
		// uncached as it was before this attempt, so a later Get re-tries
		// evaluation from scratch (spec P5).
		return nil, err
	}

	var cell ResultCell
	if err != nil {
		cell = ThrownCell(&PredicateFailure{Expr: e, Cause: err})
	} else {
		cell = ValueCell(value)
	}

	ev.store = ev.store.withCache(e, cell)

	if pred.isCascading() {
		if v, isValue := cell.Value(); isValue {
			ev.store, _ = runCascade(ev.store, pred, e, v)
		}
	}

	return cell.Resolve()
}

// Get resolves e against store, returning the possibly-advanced store
// alongside the value (or error). This is the pure top-level entry point;
// Reactor.Get/Subscribe build on it.
func Get(store *Store, e Expression) (*Store, any, error) {
	ev := newEvaluator(store)
	v, err := ev.get(e)
	return ev.store, v, err
}

// Modify implements spec §4.2's withModified: read e's current value (which
// may itself trigger evaluation), apply f, and write the result back
// through WithResult. Returns the new store and the affected-set of the
// resulting write.
func Modify(store *Store, e Expression, f func(any) any) (*Store, Set, error) {
	s1, v, err := Get(store, e)
	if err != nil {
		return s1, EmptySet, err
	}
	s2, affected := s1.WithResult(e, ValueCell(f(v)))
	return s2, affected, nil
}
