package tritium

import "testing"

func TestDerivativeIDEqual(t *testing.T) {
	p := NewPredicate("p", func(ctx *EvalContext, args []Term) (any, error) { return nil, nil })
	creator := NewExpression(p)

	a := &DerivativeID{CreatingExpr: creator, UniqueKey: "row-1"}
	b := &DerivativeID{CreatingExpr: creator, UniqueKey: "row-1"}
	c := &DerivativeID{CreatingExpr: creator, UniqueKey: "row-2"}

	if !a.Equal(b) {
		t.Error("expected derivative ids with equal fields to be equal")
	}
	if a.Equal(c) {
		t.Error("expected derivative ids with different unique keys to be unequal")
	}
}

func TestUniqueKeyEqualRecoversFromUncomparableTypes(t *testing.T) {
	a := []int{1, 2}
	b := []int{1, 2}

	if uniqueKeyEqual(a, b) {
		t.Error("expected uniqueKeyEqual to treat uncomparable values as unequal rather than panicking")
	}
}

func TestGetDerivativeIDOutsideEvaluationFails(t *testing.T) {
	ev := newEvaluator(NewStore())
	ctx := &EvalContext{eval: ev}

	if _, err := ctx.GetDerivativeID("k"); err == nil {
		t.Fatal("expected DerivativeMisuse when called outside an in-flight evaluation")
	} else if _, ok := err.(*DerivativeMisuse); !ok {
		t.Errorf("expected *DerivativeMisuse, got %T", err)
	}
}
