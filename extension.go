package tritium

import "context"

// Extension provides hooks into a Reactor's operation lifecycle, the same
// middleware shape the teacher's Scope uses for executor resolution: Wrap
// chains around the operation itself, OnError/Dispose are fire-and-forget
// notifications.
type Extension interface {
	// Name returns the extension's name.
	Name() string

	// Order determines extension execution order (lower runs outermost).
	Order() int

	// Init is called once, when the extension is registered to a Reactor.
	Init(r *Reactor) error

	// Wrap intercepts a Get, Set, Subscribe, Flush, or async-run operation.
	Wrap(ctx context.Context, next func() (any, error), op *Operation) (any, error)

	// OnError is notified whenever an operation's wrapped chain returns an
	// error, after the chain has already unwound.
	OnError(err error, op *Operation, r *Reactor)

	// Dispose releases the extension's resources. Reactor has no dispose
	// operation of its own and never calls it.
	Dispose(r *Reactor) error
}

// BaseExtension provides no-op defaults for every Extension method, so
// concrete extensions only implement the hooks they care about (spec §6
// External Interfaces: extensions compose like the teacher's BaseExtension).
type BaseExtension struct {
	name string
}

// NewBaseExtension creates a base extension with the given name.
func NewBaseExtension(name string) BaseExtension {
	return BaseExtension{name: name}
}

func (e *BaseExtension) Name() string { return e.name }

func (e *BaseExtension) Order() int { return 100 }

func (e *BaseExtension) Init(r *Reactor) error { return nil }

func (e *BaseExtension) Wrap(ctx context.Context, next func() (any, error), op *Operation) (any, error) {
	return next()
}

func (e *BaseExtension) OnError(err error, op *Operation, r *Reactor) {}

func (e *BaseExtension) Dispose(r *Reactor) error { return nil }

// Operation describes the operation an Extension's Wrap/OnError call is
// about.
type Operation struct {
	Kind    OperationKind
	Expr    Expression
	Reactor *Reactor
}

// OperationKind enumerates the Reactor operations extensions can observe.
type OperationKind string

const (
	// OpGet indicates a Reactor.Get call.
	OpGet OperationKind = "get"
	// OpSet indicates a Reactor.Set or Reactor.Modify call.
	OpSet OperationKind = "set"
	// OpSubscribe indicates a Reactor.Subscribe call.
	OpSubscribe OperationKind = "subscribe"
	// OpFlush indicates a Reactor.Flush call.
	OpFlush OperationKind = "flush"
	// OpAsyncRun indicates a Reactor.EnsureAsyncRun call (spec §4.7).
	OpAsyncRun OperationKind = "async_run"
)
