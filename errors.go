package tritium

import "fmt"

// RecursiveExpressionComputation is raised by the Evaluator when an
// expression is re-entered while it is already being computed (spec §4.3,
// §7). It is never cached; it propagates out of the triggering Get/Spy.
type RecursiveExpressionComputation struct {
	Expr Expression
}

func (e *RecursiveExpressionComputation) Error() string {
	return fmt.Sprintf("tritium: recursive computation of %s", e.Expr)
}

// AsyncCallIncomplete is raised by spyAsyncEffectResult when the targeted
// async call has not reached Complete (spec §4.7, §7). resultIsReady
// catches it specifically; other callers see it propagate, which is how an
// outer predicate also becomes "not ready".
type AsyncCallIncomplete struct {
	Expr Expression
}

func (e *AsyncCallIncomplete) Error() string {
	return fmt.Sprintf("tritium: async call not complete: %s", e.Expr)
}

// DerivativeMisuse is raised by GetDerivativeID/SetDerivative when invoked
// outside an in-flight evaluation (spec §4.4, §7).
type DerivativeMisuse struct {
	Reason string
}

func (e *DerivativeMisuse) Error() string {
	return "tritium: derivative misuse: " + e.Reason
}

// PredicateFailure wraps any value a user predicate threw (spec §7). It is
// captured into the cache as a ThrownCell and re-raised as the same
// *PredicateFailure on every subsequent read; errors.Is/errors.As reach
// Cause through Unwrap, and errors.As on *PredicateFailure distinguishes
// "the predicate itself failed" from an engine-internal error.
type PredicateFailure struct {
	Expr  Expression
	Cause error
}

func (e *PredicateFailure) Error() string {
	return fmt.Sprintf("tritium: predicate failure evaluating %s: %v", e.Expr, e.Cause)
}

func (e *PredicateFailure) Unwrap() error {
	return e.Cause
}
