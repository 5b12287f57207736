package tritium

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
)

// Callback is a Subscribe notification: the subscribed expression's latest
// value, or the error it currently resolves to.
type Callback func(value any, err error)

type subscription struct {
	id int64
	cb Callback
}

var subscriptionIDs atomic.Int64

// ReactorOption configures a Reactor at construction, the same functional-
// options shape as the teacher's ScopeOption (spec §6 External Interfaces).
type ReactorOption func(*Reactor)

// WithReactorExtension registers an extension on the Reactor.
func WithReactorExtension(ext Extension) ReactorOption {
	return func(r *Reactor) {
		if err := r.UseExtension(ext); err != nil {
			panic(err)
		}
	}
}

// WithInitialStore seeds the Reactor with a pre-populated Store instead of
// an empty one.
func WithInitialStore(s *Store) ReactorOption {
	return func(r *Reactor) {
		r.db = s
	}
}

// Reactor is the mutable, single-current-Store handle spec §4.6 describes:
// it owns "the current Store", a subscriber table, and a pending-
// notification set accumulated by writes and drained by Flush. Spec §5
// treats the engine itself as single-threaded and cooperative; the mutex
// here exists for the one place that isn't — the async bridge's completion
// callback, which lands on a goroutine the caller didn't schedule (spec
// §4.7) — mirroring how the teacher's Scope guards downstream/cache against
// its own concurrent extension and cleanup paths.
type Reactor struct {
	mu          sync.Mutex
	db          *Store
	subscribers map[Expression][]*subscription
	pending     Set
	extensions  []Extension
	async       asyncRunner
	asyncFns    map[string]func() (any, error)
}

// NewReactor creates a Reactor over an empty Store.
func NewReactor(opts ...ReactorOption) *Reactor {
	r := &Reactor{
		db:          NewStore(),
		subscribers: make(map[Expression][]*subscription),
		asyncFns:    make(map[string]func() (any, error)),
	}
	r.async.init()
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// UseExtension registers ext, ordered by Order() (lower runs outermost,
// same convention as the teacher's Scope.UseExtension).
func (r *Reactor) UseExtension(ext Extension) error {
	r.mu.Lock()
	r.extensions = append(r.extensions, ext)
	sort.SliceStable(r.extensions, func(i, j int) bool {
		return r.extensions[i].Order() < r.extensions[j].Order()
	})
	r.mu.Unlock()
	return ext.Init(r)
}

func (r *Reactor) extensionSnapshot() []Extension {
	r.mu.Lock()
	defer r.mu.Unlock()
	exts := make([]Extension, len(r.extensions))
	copy(exts, r.extensions)
	return exts
}

func (r *Reactor) wrapped(kind OperationKind, e Expression, fn func() (any, error)) (any, error) {
	op := &Operation{Kind: kind, Expr: e, Reactor: r}
	next := fn
	exts := r.extensionSnapshot()
	for i := len(exts) - 1; i >= 0; i-- {
		ext := exts[i]
		inner := next
		next = func() (any, error) { return ext.Wrap(context.Background(), inner, op) }
	}
	result, err := next()
	if err != nil {
		for _, ext := range exts {
			ext.OnError(err, op, r)
		}
	}
	return result, err
}

// Get resolves e against the Reactor's current Store, advancing it.
func (r *Reactor) Get(e Expression) (any, error) {
	return r.wrapped(OpGet, e, func() (any, error) {
		r.mu.Lock()
		db := r.db
		r.mu.Unlock()

		ns, v, err := Get(db, e)

		r.mu.Lock()
		r.db = ns
		r.mu.Unlock()

		return v, err
	})
}

// Peek reads e's cached cell without triggering evaluation.
func (r *Reactor) Peek(e Expression) (ResultCell, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db.Lookup(e)
}

// Snapshot returns the Reactor's current Store. The returned value is
// immutable and safe to read concurrently with further Reactor operations;
// it simply won't reflect writes that happen after the call (used by debug
// tooling such as the graph visualizer extension).
func (r *Reactor) Snapshot() *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db
}

// Set writes e := v and queues every affected expression for the next
// Flush (spec §4.6: "Set ... applies the pure op, unions the returned
// affected-set into pending").
func (r *Reactor) Set(e Expression, v any) error {
	_, err := r.wrapped(OpSet, e, func() (any, error) {
		r.mu.Lock()
		ns, affected := r.db.WithResult(e, ValueCell(v))
		r.db = ns
		r.pending = r.pending.Union(affected)
		r.mu.Unlock()
		return nil, nil
	})
	return err
}

// Modify reads e, applies f to its current value, and writes the result
// back (spec §4.2's withModified, surfaced through the Reactor).
func (r *Reactor) Modify(e Expression, f func(any) any) error {
	_, err := r.wrapped(OpSet, e, func() (any, error) {
		r.mu.Lock()
		db := r.db
		r.mu.Unlock()

		ns, affected, err := Modify(db, e, f)
		if err != nil {
			r.mu.Lock()
			r.db = ns
			r.mu.Unlock()
			return nil, err
		}

		r.mu.Lock()
		r.db = ns
		r.pending = r.pending.Union(affected)
		r.mu.Unlock()
		return nil, nil
	})
	return err
}

// Subscribe registers cb to run on every Flush that follows a write
// affecting e. The initial Get happens immediately, synchronously, to seed
// e's contributor/dependent edges — its returned value is discarded and cb
// is not invoked for it (spec §4.6: "the returned value is discarded ...
// not leaked from subscribe"). cb only ever fires from a later Flush that
// finds e in pending (spec §8 scenario 2: subscribing alone never queues a
// notification). The returned func removes the subscription.
func (r *Reactor) Subscribe(e Expression, cb Callback) (unsubscribe func()) {
	r.wrapped(OpSubscribe, e, func() (any, error) {
		return r.Get(e)
	})

	sub := &subscription{id: subscriptionIDs.Add(1), cb: cb}

	r.mu.Lock()
	r.subscribers[e] = append(r.subscribers[e], sub)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		subs := r.subscribers[e]
		for i, s := range subs {
			if s.id == sub.id {
				r.subscribers[e] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(r.subscribers[e]) == 0 {
			delete(r.subscribers, e)
		}
	}
}

// Flush notifies every subscriber of an expression currently in pending,
// exactly once, and clears pending (spec §4.6). An expression can appear in
// pending with no subscribers (e.g. an internal derivative); Flush simply
// skips it.
func (r *Reactor) Flush() {
	r.wrapped(OpFlush, Expression{}, func() (any, error) {
		r.mu.Lock()
		pending := r.pending
		r.pending = EmptySet
		r.mu.Unlock()

		pending.ForEach(func(e Expression) {
			r.mu.Lock()
			subs := make([]*subscription, len(r.subscribers[e]))
			copy(subs, r.subscribers[e])
			r.mu.Unlock()
			if len(subs) == 0 {
				return
			}

			v, err := r.Get(e)
			for _, s := range subs {
				s.cb(v, err)
			}
		})
		return nil, nil
	})
}

// Accessor is a convenience handle over a single expression, mirroring the
// teacher's Controller[T] (spec SUPPLEMENTED FEATURES): Get/Peek/Set plus
// Release (drop the cache entry without recomputing) and Reload.
type Accessor struct {
	r *Reactor
	e Expression
}

// NewAccessor creates an Accessor bound to e.
func NewAccessor(r *Reactor, e Expression) *Accessor {
	return &Accessor{r: r, e: e}
}

// Get returns e's current value, resolving it if necessary.
func (a *Accessor) Get() (any, error) { return a.r.Get(a.e) }

// Peek returns e's cached value without resolving.
func (a *Accessor) Peek() (any, bool) {
	cell, ok := a.r.Peek(a.e)
	if !ok {
		return nil, false
	}
	v, isValue := cell.Value()
	return v, isValue
}

// Set writes a new value for e.
func (a *Accessor) Set(v any) error { return a.r.Set(a.e, v) }

// IsCached reports whether e currently has a cache entry.
func (a *Accessor) IsCached() bool {
	_, ok := a.r.Peek(a.e)
	return ok
}

// Release drops e's cache entry (and its dependents') without recomputing,
// the same semantics as invalidate(dependents*(e) ∪ {e}) with no new cell
// installed.
func (a *Accessor) Release() {
	a.r.mu.Lock()
	affected := a.r.db.dependentsClosure(a.e).Add(a.e)
	a.r.db = a.r.db.invalidate(affected)
	a.r.pending = a.r.pending.Union(affected)
	a.r.mu.Unlock()
}

// Reload releases e and immediately re-resolves it.
func (a *Accessor) Reload() (any, error) {
	a.Release()
	return a.Get()
}
