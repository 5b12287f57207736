// Package tritium is an incremental computation engine: a content-addressed
// cache of computed values whose keys are expressions, ordered tuples headed
// by a predicate function or a plain data tag.
//
// # Overview
//
// Three layers build on each other:
//
//  1. Expression + Store: an immutable, persistent map from Expression to
//     ResultCell, plus a bidirectional contributors/dependents index.
//  2. Evaluator: resolves an Expression against a Store, running predicates
//     on demand and recording the edges they traverse via Spy.
//  3. Reactor: a mutable handle holding the current Store, a subscriber
//     table, and a pending-notification set, plus an async bridge that lifts
//     future-producing side effects into the same dependency graph.
//
// # Basic usage
//
//	base := tritium.NewPredicate("base", func(ctx *tritium.EvalContext, args []tritium.Term) (any, error) {
//	    return args[0], nil
//	})
//
//	double := tritium.NewPredicate("double", func(ctx *tritium.EvalContext, args []tritium.Term) (any, error) {
//	    v, err := ctx.Spy(tritium.NewExpression(base, args[0]))
//	    if err != nil {
//	        return nil, err
//	    }
//	    return v.(int) * 2, nil
//	})
//
//	r := tritium.NewReactor()
//	r.Set(tritium.NewExpression(base, "x"), 10)
//	v, _ := r.Get(tritium.NewExpression(double, "x")) // 20
//
// # Reactivity
//
//	unsubscribe := r.Subscribe(tritium.NewExpression(double, "x"), func(value any, err error) {
//	    fmt.Println("double(x) may have changed:", value, err)
//	})
//	r.Set(tritium.NewExpression(base, "x"), 11)
//	r.Flush() // delivers the notification queued by Set
package tritium
