package tritium

import (
	"errors"
	"testing"
	"time"
)

func TestEnsureAsyncRunCompletesAndNotifies(t *testing.T) {
	r := NewReactor()
	call := NewExpression(NewTag("fetch-user"), 42)

	done := make(chan struct{})
	r.Subscribe(AsyncResultExpr(call), func(value any, err error) {
		if value == "user-42" {
			close(done)
		}
	})

	r.EnsureAsyncRun(call, func() (any, error) {
		return "user-42", nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for async completion notification")
	}
}

func TestSpyAsyncResultIncompleteUntilDone(t *testing.T) {
	r := NewReactor()
	call := NewExpression(NewTag("slow-call"))

	release := make(chan struct{})
	consumer := NewPredicate("consumer", func(ctx *EvalContext, args []Term) (any, error) {
		return SpyAsyncResult(ctx, call)
	})
	consumerExpr := NewExpression(consumer)

	if _, err := r.Get(consumerExpr); err == nil {
		t.Fatal("expected AsyncCallIncomplete before the status expression has any value")
	} else {
		var incomplete *AsyncCallIncomplete
		if !errors.As(err, &incomplete) {
			t.Fatalf("expected *AsyncCallIncomplete, got %T: %v", err, err)
		}
	}

	done := make(chan struct{})
	r.Subscribe(AsyncStatusExpr(call), func(value any, err error) {
		if status, ok := value.(AsyncStatus); ok && status == AsyncComplete {
			close(done)
		}
	})

	r.EnsureAsyncRun(call, func() (any, error) {
		<-release
		return "done", nil
	})
	close(release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for async status to complete")
	}
}

func TestResultIsReady(t *testing.T) {
	r := NewReactor()
	call := NewExpression(NewTag("ready-check"))

	checker := NewPredicate("checker", func(ctx *EvalContext, args []Term) (any, error) {
		ready, err := ResultIsReady(ctx, call)
		return ready, err
	})
	checkerExpr := NewExpression(checker)

	v, err := r.Get(checkerExpr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.(bool) {
		t.Error("expected ready=false before the call has ever run")
	}
}

// TestEnsureAsyncRunDedupesSameCall is spec §8 scenario 6's setup: calling
// EnsureAsyncRun twice for the same call expression must return the same
// Future and must not invoke fn a second time.
func TestEnsureAsyncRunDedupesSameCall(t *testing.T) {
	r := NewReactor()
	call := NewExpression(NewTag("outer-fetch"))

	var runs int
	fn := func() (any, error) {
		runs++
		return "fetched", nil
	}

	f1 := r.EnsureAsyncRun(call, fn)
	f2 := r.EnsureAsyncRun(call, fn)

	if f1 != f2 {
		t.Fatal("expected EnsureAsyncRun to return the same Future for the same call")
	}

	v, err := f1.Wait()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "fetched" {
		t.Fatalf("expected fetched, got %v", v)
	}
	if runs != 1 {
		t.Fatalf("expected fn to run exactly once, ran %d times", runs)
	}
}

// TestScenario6GetResultPromiseResolvesAfterAsyncCompletes reproduces spec
// §8 scenario 6: an outer predicate spies an async call's result through
// SpyAsyncResult; getResultPromise([outer]) must resolve only once that
// transitively-depended-on async call actually completes.
func TestScenario6GetResultPromiseResolvesAfterAsyncCompletes(t *testing.T) {
	r := NewReactor()
	call := NewExpression(NewTag("inner-fetch"))

	outer := NewPredicate("outer", func(ctx *EvalContext, args []Term) (any, error) {
		v, err := SpyAsyncResult(ctx, call)
		if err != nil {
			return nil, err
		}
		return "outer:" + v.(string), nil
	})
	outerExpr := NewExpression(outer)

	release := make(chan struct{})
	r.EnsureAsyncRun(call, func() (any, error) {
		<-release
		return "inner", nil
	})

	f := r.GetResultPromise(outerExpr)
	close(release)

	v, err := f.Wait()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "outer:inner" {
		t.Fatalf("expected outer:inner, got %v", v)
	}
}

// TestGetEnsuredResultPromiseStartsTransitiveAsyncCall covers
// getEnsuredResultPromise's distinguishing behavior: when the awaited
// expression depends on an async call nobody has started yet, waiting on it
// must itself start that call (using the fn a prior EnsureAsyncRun
// registered for it) rather than waiting forever.
func TestGetEnsuredResultPromiseStartsTransitiveAsyncCall(t *testing.T) {
	r := NewReactor()
	call := NewExpression(NewTag("lazy-fetch"))

	var started bool
	r.mu.Lock()
	r.asyncFns[call.String()] = func() (any, error) {
		started = true
		return "lazy", nil
	}
	r.mu.Unlock()

	outer := NewPredicate("lazy-outer", func(ctx *EvalContext, args []Term) (any, error) {
		v, err := SpyAsyncResult(ctx, call)
		if err != nil {
			return nil, err
		}
		return "outer:" + v.(string), nil
	})
	outerExpr := NewExpression(outer)

	f := r.GetEnsuredResultPromise(outerExpr)

	v, err := f.Wait()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "outer:lazy" {
		t.Fatalf("expected outer:lazy, got %v", v)
	}
	if !started {
		t.Fatal("expected GetEnsuredResultPromise to start the registered async call")
	}
}
