package tritium

import "fmt"

// DerivativeID is an immutable pair (creatingExpr, uniqueKey) tagging an
// expression whose cache lifetime is owned by another expression's
// computation: when creatingExpr recomputes, every expression keyed by one
// of its old DerivativeIDs is invalidated because it was recorded as a
// dependent of creatingExpr (see store.go's setDerivative).
type DerivativeID struct {
	CreatingExpr Expression
	UniqueKey    any
}

// Equal implements the structural-equality rule spec §3 requires for
// DerivativeIds: equal creatingExpr (by Expression equality) and equal
// uniqueKey.
func (d *DerivativeID) Equal(o *DerivativeID) bool {
	if d == o {
		return true
	}
	if d == nil || o == nil {
		return false
	}
	return exprEqual(d.CreatingExpr, o.CreatingExpr) && uniqueKeyEqual(d.UniqueKey, o.UniqueKey)
}

func uniqueKeyEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

func (d *DerivativeID) String() string {
	return fmt.Sprintf("deriv(%s,%v)", d.CreatingExpr, d.UniqueKey)
}
