package tritium

import "sync"

// Future is the single-threaded promise/future abstraction spec §6 asks
// for ("resolve, reject, and a continuation hook"). It is the return type
// of EnsureAsyncRun, GetResultPromise, and GetEnsuredResultPromise (spec
// §4.6). No library in the retrieval pack exports an importable promise
// type for this (the one reference implementation found lives under
// another project's internal/ package and can't be imported), so this is a
// small hand-rolled type in the same shape.
type Future struct {
	mu     sync.Mutex
	done   bool
	value  any
	err    error
	onDone []func(value any, err error)
}

// NewFuture creates an unresolved Future.
func NewFuture() *Future {
	return &Future{}
}

// ResolvedFuture creates a Future already resolved with v.
func ResolvedFuture(v any) *Future {
	f := NewFuture()
	f.Resolve(v)
	return f
}

// RejectedFuture creates a Future already rejected with err.
func RejectedFuture(err error) *Future {
	f := NewFuture()
	f.Reject(err)
	return f
}

// Resolve settles f with value v. A Future settles at most once; later
// Resolve/Reject calls are no-ops.
func (f *Future) Resolve(v any) {
	f.settle(v, nil)
}

// Reject settles f with err.
func (f *Future) Reject(err error) {
	f.settle(nil, err)
}

func (f *Future) settle(v any, err error) {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		return
	}
	f.done = true
	f.value = v
	f.err = err
	callbacks := f.onDone
	f.onDone = nil
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(v, err)
	}
}

// Then registers a continuation: called immediately if f has already
// settled, or on the next Resolve/Reject otherwise. spec §6's "flush of the
// Reactor must run after each resolution callback" is the caller's
// responsibility (see EnsureAsyncRun/awaitResult), not Future's.
func (f *Future) Then(cb func(value any, err error)) {
	f.mu.Lock()
	if f.done {
		v, err := f.value, f.err
		f.mu.Unlock()
		cb(v, err)
		return
	}
	f.onDone = append(f.onDone, cb)
	f.mu.Unlock()
}

// Wait blocks until f settles and returns its result. The Reactor's own
// code never calls Wait — spec §5's engine is single-threaded cooperative —
// it exists for callers outside the Reactor's logical task who need a
// synchronous boundary.
func (f *Future) Wait() (any, error) {
	done := make(chan struct{})
	var v any
	var err error
	f.Then(func(value any, e error) {
		v, err = value, e
		close(done)
	})
	<-done
	return v, err
}
