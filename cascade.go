package tritium

// CascadingSetter is invoked after a CascadingPredicate-headed expression's
// own cache entry is installed. It may call ctx.Set/ctx.SetDerivative to
// write further expressions; those writes' affected-sets are folded into
// the outer write's affected-set automatically (spec §4.5, P6).
//
// Per spec §9 Open Question (b), a setter cannot Spy a foreign expression
// and have the read tracked as a dependency of the write — CascadeContext
// deliberately exposes no Spy method. A setter that needs another
// expression's current value should read it with Peek (untracked) or have
// it passed in as part of value.
type CascadingSetter func(ctx *CascadeContext, expr Expression, value any)

type cascadeSetter struct {
	fn CascadingSetter
}

// NewCascadingPredicate creates a predicate that, in addition to computing
// its own value like an ordinary Predicate, triggers setter whenever an
// expression headed by it is written (spec §3 "CascadingPredicate").
func NewCascadingPredicate(name string, fn PredicateFunc, setter CascadingSetter) *Predicate {
	p := NewPredicate(name, fn)
	p.cascade = &cascadeSetter{fn: setter}
	return p
}

// CascadeContext is the argument passed to a CascadingSetter. Each call to
// Set/SetDerivative applies against the setter's own working Store and
// accumulates into the affected-set eventually returned by the outermost
// write (see runCascade and Store.WithResult).
type CascadeContext struct {
	store       *Store
	affected    Set
	cascadeExpr Expression
}

// Set writes e := value as a consequence of the cascading write. If e is
// itself headed by a CascadingPredicate, its own setter runs too (nested
// cascades), and its consequences are folded into this context's
// affected-set automatically.
func (c *CascadeContext) Set(e Expression, value any) {
	ns, affected := c.store.WithResult(e, ValueCell(value))
	c.store = ns
	c.affected = c.affected.Union(affected)
}

// SetDerivative writes a derivative expression as a consequence of the
// cascading write, attributing it to the cascade itself (spec §4.5:
// "Temporarily sets deepestComputingExpr := cascade-expr").
func (c *CascadeContext) SetDerivative(d Expression, value any) {
	ns, affected := c.store.setDerivative(d, value, c.cascadeExpr)
	c.store = ns
	c.affected = c.affected.Union(affected)
}

// GetDerivativeID mints a DerivativeID attributed to the cascade itself
// rather than to whatever expression is ordinarily deepest, the same
// "deepestComputingExpr := cascade-expr" substitution SetDerivative already
// relies on (spec §4.5). This lets a setter mint a fresh derivative, not
// just forward one it was handed, the same pair EvalContext offers ordinary
// predicates (evaluator.go's GetDerivativeID/SetDerivative).
func (c *CascadeContext) GetDerivativeID(uniqueKey any) *DerivativeID {
	return &DerivativeID{CreatingExpr: c.cascadeExpr, UniqueKey: uniqueKey}
}

// Peek reads e's current cached cell without creating a dependency edge.
func (c *CascadeContext) Peek(e Expression) (ResultCell, bool) {
	return c.store.Lookup(e)
}

// runCascade invokes pred's setter for the write of cascadeExpr := value,
// starting from store (which already has cascadeExpr's own cache entry
// installed and its own invalidation applied). Consequences are applied
// after the outer write's invalidation step, so they are not themselves
// invalidated by it (spec §4.5), and each consequence invalidates its own
// dependents independently through the recursive calls to Store.WithResult.
func runCascade(store *Store, pred *Predicate, cascadeExpr Expression, value any) (*Store, Set) {
	ctx := &CascadeContext{store: store, cascadeExpr: cascadeExpr}
	pred.cascade.fn(ctx, cascadeExpr, value)
	return ctx.store, ctx.affected
}
