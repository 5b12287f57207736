package tritium

import "testing"

func TestExpressionEquality(t *testing.T) {
	p := NewPredicate("p", func(ctx *EvalContext, args []Term) (any, error) { return nil, nil })

	a := NewExpression(p, "x", 1)
	b := NewExpression(p, "x", 1)
	c := NewExpression(p, "x", 2)

	if !exprEqual(a, b) {
		t.Error("expected structurally identical expressions to be equal")
	}
	if exprEqual(a, c) {
		t.Error("expected expressions with different args to be unequal")
	}
}

func TestExpressionEqualityDistinctPredicateIdentity(t *testing.T) {
	p1 := NewPredicate("same-name", func(ctx *EvalContext, args []Term) (any, error) { return nil, nil })
	p2 := NewPredicate("same-name", func(ctx *EvalContext, args []Term) (any, error) { return nil, nil })

	a := NewExpression(p1, "x")
	b := NewExpression(p2, "x")

	if exprEqual(a, b) {
		t.Error("expected expressions with distinct predicate identity to be unequal even with equal names")
	}
}

func TestExpressionHashStability(t *testing.T) {
	p := NewPredicate("p", func(ctx *EvalContext, args []Term) (any, error) { return nil, nil })
	a := NewExpression(p, "x", true, nil)
	b := NewExpression(p, "x", true, nil)

	if exprHash(a) != exprHash(b) {
		t.Error("expected equal expressions to hash identically")
	}
}

func TestNewExpressionFromTermsCopiesSlice(t *testing.T) {
	p := NewPredicate("p", func(ctx *EvalContext, args []Term) (any, error) { return nil, nil })
	terms := []Term{p, "a"}
	e := NewExpressionFromTerms(terms)

	terms[1] = "mutated"

	if e.Args()[0] != "a" {
		t.Errorf("expected expression to be unaffected by caller mutating its source slice, got %v", e.Args()[0])
	}
}

func TestNewExpressionRejectsInvalidTerm(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on invalid term")
		}
	}()
	NewExpression("not-a-predicate", struct{}{})
}

func TestHeadPredicate(t *testing.T) {
	p := NewPredicate("p", func(ctx *EvalContext, args []Term) (any, error) { return nil, nil })
	tag := NewTag("data")

	pe := NewExpression(p)
	if _, ok := pe.HeadPredicate(); !ok {
		t.Error("expected predicate-headed expression to report a head predicate")
	}

	te := NewExpression(tag, "x")
	if _, ok := te.HeadPredicate(); ok {
		t.Error("expected tag-headed expression to report no head predicate")
	}
}
