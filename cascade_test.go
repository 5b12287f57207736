package tritium

import "testing"

func TestCascadingPredicateTriggersConsequence(t *testing.T) {
	parent := NewCascadingPredicate("PARENT",
		func(ctx *EvalContext, args []Term) (any, error) {
			return args[0], nil
		},
		func(ctx *CascadeContext, expr Expression, value any) {
			child := expr.Args()[0].(string)
			ctx.Set(NewExpression(NewTag("parent-of"), child), value)
		},
	)

	s := NewStore()
	childExpr := NewExpression(parent, "B")

	s, affected := s.WithResult(childExpr, ValueCell("A"))

	parentOfB := NewExpression(NewTag("parent-of"), "B")
	if !affected.Contains(parentOfB) {
		t.Fatal("expected the cascade's consequence to be part of the write's affected set (spec P6)")
	}

	cell, ok := s.Lookup(parentOfB)
	if !ok {
		t.Fatal("expected the setter's write to land in the store")
	}
	v, _ := cell.Value()
	if v != "A" {
		t.Errorf("expected parent-of(B) == A, got %v", v)
	}
}

func TestCascadeConsequenceNotReinvalidatedByOuterWrite(t *testing.T) {
	var seenValues []any

	cascading := NewCascadingPredicate("SETTER",
		func(ctx *EvalContext, args []Term) (any, error) { return args[0], nil },
		func(ctx *CascadeContext, expr Expression, value any) {
			seenValues = append(seenValues, value)
			ctx.Set(NewExpression(NewTag("mirror")), value)
		},
	)

	s := NewStore()
	e := NewExpression(cascading, "x")

	s, _ = s.WithResult(e, ValueCell("v1"))

	mirror := NewExpression(NewTag("mirror"))
	cell, ok := s.Lookup(mirror)
	if !ok {
		t.Fatal("expected mirror to be cached")
	}
	v, _ := cell.Value()
	if v != "v1" {
		t.Fatalf("expected mirror == v1, got %v", v)
	}

	if len(seenValues) != 1 {
		t.Fatalf("expected the setter to run exactly once, ran %d times", len(seenValues))
	}
}

func TestEvaluatedCascadingPredicateAlsoRunsSetter(t *testing.T) {
	predicate := NewCascadingPredicate("COMPUTE_AND_SET",
		func(ctx *EvalContext, args []Term) (any, error) { return "computed", nil },
		func(ctx *CascadeContext, expr Expression, value any) {
			ctx.Set(NewExpression(NewTag("echo")), value)
		},
	)
	e := NewExpression(predicate)

	s := NewStore()
	s, _, err := Get(s, e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	echo := NewExpression(NewTag("echo"))
	cell, ok := s.Lookup(echo)
	if !ok {
		t.Fatal("expected an evaluated (not just externally written) cascading predicate to still run its setter")
	}
	v, _ := cell.Value()
	if v != "computed" {
		t.Errorf("expected echo == computed, got %v", v)
	}
}
