// Package dispatch routes operation descriptors to their registered handlers.
// The set of operations is fixed when the application is wired, so an unknown
// kind or a payload of the wrong type is a programming error and panics.
package dispatch

import (
	"context"
	"fmt"
	"sync"
)

// Kind identifies an operation, e.g. "product.create".
type Kind string

// Operation is the descriptor the transport layer hands to the dispatcher.
type Operation struct {
	Kind    Kind
	Payload any
}

// HandlerFunc is the type-erased form of a registered handler.
type HandlerFunc func(ctx context.Context, payload any) (any, error)

// Sender is satisfied by *Dispatcher and by test doubles.
type Sender interface {
	Dispatch(ctx context.Context, op Operation) (any, error)
}

// Dispatcher maps operation kinds to handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[Kind]HandlerFunc
}

var _ Sender = (*Dispatcher)(nil)

// New returns an empty Dispatcher.
func New() *Dispatcher {
	return &Dispatcher{handlers: make(map[Kind]HandlerFunc)}
}

// Register adds a handler for kind. Registering the same kind twice panics.
func (d *Dispatcher) Register(kind Kind, h HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.handlers[kind]; exists {
		panic(fmt.Sprintf("dispatch: handler already registered for %q", kind))
	}
	d.handlers[kind] = h
}

// Kinds returns the registered operation kinds.
func (d *Dispatcher) Kinds() []Kind {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Kind, 0, len(d.handlers))
	for k := range d.handlers {
		out = append(out, k)
	}
	return out
}

// Dispatch runs the handler registered for op.Kind.
func (d *Dispatcher) Dispatch(ctx context.Context, op Operation) (any, error) {
	d.mu.RLock()
	h, ok := d.handlers[op.Kind]
	d.mu.RUnlock()
	if !ok {
		panic(fmt.Sprintf("dispatch: no handler registered for %q", op.Kind))
	}
	return h(ctx, op.Payload)
}

// Handle registers a typed handler function under kind.
func Handle[Req, Res any](d *Dispatcher, kind Kind, fn func(context.Context, Req) (Res, error)) {
	d.Register(kind, func(ctx context.Context, payload any) (any, error) {
		req, ok := payload.(Req)
		if !ok {
			var want Req
			panic(fmt.Sprintf("dispatch: %q expects payload %T, got %T", kind, want, payload))
		}
		return fn(ctx, req)
	})
}

// Send dispatches an operation and asserts the result type.
func Send[Res any](ctx context.Context, s Sender, kind Kind, payload any) (Res, error) {
	var zero Res
	out, err := s.Dispatch(ctx, Operation{Kind: kind, Payload: payload})
	if err != nil {
		return zero, err
	}
	if out == nil {
		return zero, nil
	}
	res, ok := out.(Res)
	if !ok {
		panic(fmt.Sprintf("dispatch: %q returned %T, want %T", kind, out, zero))
	}
	return res, nil
}
