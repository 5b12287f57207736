package tritium

import (
	"errors"

	"golang.org/x/sync/singleflight"
)

// AsyncStatus is the lifecycle of an async call's effect (spec §4.7).
type AsyncStatus int

const (
	AsyncPending AsyncStatus = iota
	AsyncRunning
	AsyncComplete
)

func (s AsyncStatus) String() string {
	switch s {
	case AsyncRunning:
		return "running"
	case AsyncComplete:
		return "complete"
	default:
		return "pending"
	}
}

var (
	asyncStatusTag  = NewTag("tritium.async.status")
	asyncResultTag  = NewTag("tritium.async.result")
	asyncPromiseTag = NewTag("tritium.async.promise")
)

// AsyncStatusExpr is the expression EnsureAsyncRun writes an AsyncStatus
// into, for a given async call expression.
func AsyncStatusExpr(call Expression) Expression {
	return NewExpression(asyncStatusTag, call)
}

// AsyncResultExpr is the expression EnsureAsyncRun writes the completed
// call's outcome into.
func AsyncResultExpr(call Expression) Expression {
	return NewExpression(asyncResultTag, call)
}

// AsyncPromiseExpr is the expression the in-flight Future itself is cached
// under (spec §2/§4.7's third tag, PROMISE, alongside STATUS and RESULT;
// spec §4.6: "call fn(args…) obtaining a future, store it under
// (promise, fn, args…)").
func AsyncPromiseExpr(call Expression) Expression {
	return NewExpression(asyncPromiseTag, call)
}

// asyncRunner dedupes concurrent EnsureAsyncRun calls for the same call
// expression onto a single in-flight goroutine, the same "only one caller
// actually does the work" guarantee the name "ensureAsyncRun" describes.
// singleflight.Group.DoChan is used instead of Do because it returns
// immediately with a channel rather than blocking the caller until the
// work finishes — exactly the non-blocking launch spec §4.7 requires.
type asyncRunner struct {
	group singleflight.Group
}

func (a *asyncRunner) init() {}

// EnsureAsyncRun launches fn at most once per distinct call (identified by
// call.String()): if the call has never been started, it marks call
// Running, launches fn, and caches the resulting Future under
// AsyncPromiseExpr(call); if already present, it returns that same cached
// Future without invoking fn again (spec §8 scenario 6). On completion it
// writes AsyncComplete plus the outcome and flushes every subscriber that
// depends on either expression (spec §4.7: the async bridge is the one
// place evaluation may genuinely suspend, since fn runs on its own
// goroutine and reports back later).
func (r *Reactor) EnsureAsyncRun(call Expression, fn func() (any, error)) *Future {
	key := call.String()

	r.mu.Lock()
	r.asyncFns[key] = fn
	cell, cached := r.db.Lookup(AsyncPromiseExpr(call))
	r.mu.Unlock()

	if cached {
		if v, isValue := cell.Value(); isValue {
			if existing, ok := v.(*Future); ok {
				return existing
			}
		}
	}

	future := NewFuture()

	r.wrapped(OpAsyncRun, call, func() (any, error) {
		r.mu.Lock()
		ns, affected := r.db.WithResult(AsyncPromiseExpr(call), ValueCell(future))
		r.db = ns
		r.pending = r.pending.Union(affected)
		r.mu.Unlock()

		if err := r.Set(AsyncStatusExpr(call), AsyncRunning); err != nil {
			future.Reject(err)
			return nil, err
		}
		r.Flush()

		ch := r.async.group.DoChan(key, func() (any, error) {
			return fn()
		})

		go func() {
			res := <-ch

			if res.Err != nil {
				r.mu.Lock()
				ns, affected := r.db.WithResult(AsyncResultExpr(call), ThrownCell(res.Err))
				r.db = ns
				r.pending = r.pending.Union(affected)
				r.mu.Unlock()
				future.Reject(res.Err)
			} else {
				_ = r.Set(AsyncResultExpr(call), res.Val)
				future.Resolve(res.Val)
			}
			_ = r.Set(AsyncStatusExpr(call), AsyncComplete)
			r.Flush()
		}()

		return nil, nil
	})

	return future
}

// SpyAsyncResult implements spec §4.7's spyAsyncEffectResult: it spies the
// call's status and, only if AsyncComplete, its result. Any other status
// raises AsyncCallIncomplete, which a predicate that itself becomes
// "not ready" simply lets propagate.
func SpyAsyncResult(ctx *EvalContext, call Expression) (any, error) {
	statusVal, err := ctx.Spy(AsyncStatusExpr(call))
	if err != nil {
		return nil, err
	}
	status, _ := statusVal.(AsyncStatus)
	if status != AsyncComplete {
		return nil, &AsyncCallIncomplete{Expr: call}
	}
	return ctx.Spy(AsyncResultExpr(call))
}

// ResultIsReady implements spec §4.7's resultIsReady specialized to a
// specific async call: it spies call's result and catches
// AsyncCallIncomplete specifically, turning it into ready=false instead of
// propagating. Any other error means the call completed but threw, which is
// reported as ready=true with that error.
func ResultIsReady(ctx *EvalContext, call Expression) (bool, error) {
	_, err := SpyAsyncResult(ctx, call)
	var incomplete *AsyncCallIncomplete
	if errors.As(err, &incomplete) {
		return false, nil
	}
	return true, err
}

// resultIsReadyPredicate is the general form spec §4.6's getResultPromise
// means by "[resultIsReady, e]": e need not itself be a raw async call, it
// can be any expression whose evaluation transitively calls
// SpyAsyncResult. Spying it and catching AsyncCallIncomplete, rather than
// reading call-specific tags, is what makes this usable for an arbitrary
// target (unlike ResultIsReady above, which is specific to one async
// call). Like its spec description says, it never itself raises — it
// swallows AsyncCallIncomplete into false — so it is safely cacheable and
// stable under Subscribe.
var resultIsReadyPredicate = NewPredicate("resultIsReady", func(ctx *EvalContext, args []Term) (any, error) {
	target := args[0].(Expression)
	_, err := ctx.Spy(target)
	var incomplete *AsyncCallIncomplete
	if errors.As(err, &incomplete) {
		return false, nil
	}
	return true, nil
})

func resultIsReadyExpr(target Expression) Expression {
	return NewExpression(resultIsReadyPredicate, target)
}

// GetResultPromise implements spec §4.6's getResultPromise(e): it
// synchronously checks [resultIsReady, e]; if e is already settled, the
// returned Future is resolved (or rejected, for a thrown cache entry)
// immediately from get(e); otherwise it subscribes to [resultIsReady, e]
// and settles the Future the first time a flush reports readiness,
// unsubscribing afterwards.
func (r *Reactor) GetResultPromise(e Expression) *Future {
	f := NewFuture()
	r.awaitResult(e, f, nil)
	return f
}

// GetEnsuredResultPromise implements spec §4.6's getEnsuredResultPromise(e):
// like GetResultPromise, but whenever waiting on e surfaces an
// AsyncCallIncomplete naming some inner call, that call is started via
// EnsureAsyncRun (using whichever fn a prior EnsureAsyncRun registered for
// it) so that waiting on e also schedules the asynchronous work it
// transitively depends on. This repeats on every readiness check until e
// settles, covering a chain of several not-yet-started calls.
func (r *Reactor) GetEnsuredResultPromise(e Expression) *Future {
	f := NewFuture()
	r.awaitResult(e, f, r.startIncompleteCall)
	return f
}

// awaitResult is the shared machinery behind GetResultPromise and
// GetEnsuredResultPromise (spec §4.6).
func (r *Reactor) awaitResult(e Expression, f *Future, onIncomplete func(Expression)) {
	readyExpr := resultIsReadyExpr(e)

	ready, err := r.Get(readyExpr)
	if err != nil {
		f.Reject(err)
		return
	}

	if isReady, _ := ready.(bool); isReady {
		v, err := r.Get(e)
		if err != nil {
			f.Reject(err)
		} else {
			f.Resolve(v)
		}
		return
	}

	var unsubscribe func()
	unsubscribe = r.Subscribe(readyExpr, func(value any, err error) {
		if onIncomplete != nil {
			r.checkIncomplete(e, onIncomplete)
		}
		if err != nil {
			return
		}
		if isReady, _ := value.(bool); isReady {
			unsubscribe()
			v, err := r.Get(e)
			if err != nil {
				f.Reject(err)
			} else {
				f.Resolve(v)
			}
		}
	})

	// Start any missing inner call only once subscribed, so its completion
	// flush cannot arrive before there is a subscriber to receive it.
	if onIncomplete != nil {
		r.checkIncomplete(e, onIncomplete)
	}
}

// checkIncomplete re-evaluates e to discover which inner async call (if
// any) it is currently blocked on, and hands that call to onIncomplete.
func (r *Reactor) checkIncomplete(e Expression, onIncomplete func(Expression)) {
	_, err := r.Get(e)
	var incomplete *AsyncCallIncomplete
	if errors.As(err, &incomplete) {
		onIncomplete(incomplete.Expr)
	}
}

// startIncompleteCall is GetEnsuredResultPromise's onIncomplete hook: start
// call via EnsureAsyncRun using whichever fn a prior EnsureAsyncRun
// registered for it. A call nothing ever registered can't be started from
// here and is simply left pending.
func (r *Reactor) startIncompleteCall(call Expression) {
	r.mu.Lock()
	fn, known := r.asyncFns[call.String()]
	r.mu.Unlock()
	if known {
		r.EnsureAsyncRun(call, fn)
	}
}
