package relay

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// Dispatcher routes messages to the handlers of a Table.
//
// Usage:
//  1. Build a Table with a Registry or a Builder
//  2. Create a dispatcher with New, passing a HandlerFactory
//  3. Optionally add middleware with Use
//  4. Dispatch with Send, Publish or Request
//
// Every dispatch call creates its own Envelope, runs the before-routing
// hooks, resolves a handler instance for each binding, invokes the bindings
// one after another in route order and finally runs the after-routed hooks,
// even when resolution or a handler failed.
//
// Dispatcher is safe for concurrent use. Middleware registered with Use
// applies to dispatch calls that start after Use returns.
type Dispatcher struct {
	table   *Table
	factory HandlerFactory
	hooks   hooks

	mu          sync.RWMutex
	middlewares []Middleware
}

// New creates a Dispatcher over table, resolving handler instances with
// factory. It panics if either is nil.
//
// Example:
//
//	d := relay.New(table, relay.Instances(&Billing{}, &Shipping{}),
//	    relay.WithAfterRouted(func(ctx context.Context, env *relay.Envelope, err error) {
//	        metrics.Incr("relay.dispatch", "type:"+env.MessageType().String())
//	    }),
//	)
func New(table *Table, factory HandlerFactory, opts ...Option) *Dispatcher {
	if table == nil {
		panic("relay: nil table")
	}
	if factory == nil {
		panic("relay: nil handler factory")
	}
	d := &Dispatcher{
		table:   table,
		factory: factory,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Table returns the dispatcher's route table.
func (d *Dispatcher) Table() *Table { return d.table }

// Use appends middlewares. The first middleware ever registered is the
// outermost; each later one wraps inside the previous ones.
func (d *Dispatcher) Use(mws ...Middleware) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.middlewares = append(d.middlewares, mws...)
}

func (d *Dispatcher) currentMiddlewares() []Middleware {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.middlewares[:len(d.middlewares):len(d.middlewares)]
}

// Send routes msg to its single handler and discards any response.
//
// The route must hold exactly one binding; otherwise Send fails with a
// *ReceiverError (ErrNoReceiver or ErrAmbiguousReceiver) before any hook or
// handler runs.
func (d *Dispatcher) Send(ctx context.Context, msg any) error {
	route, err := d.lookup(msg)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	bindings := route.Bindings()
	if len(bindings) != 1 {
		return &ReceiverError{Op: "send", MessageType: route.MessageType(), Count: len(bindings)}
	}
	_, err = d.dispatch(ctx, msg, route.MessageType(), bindings)
	return err
}

// Publish routes msg to every handler of its route, in route order.
//
// All handler instances are resolved before the first handler runs; if any
// resolves to nil, Publish fails with a *NilHandlerError and invokes no
// handler. A handler error stops the fan-out and is returned as-is. A route
// without bindings is not an error.
func (d *Dispatcher) Publish(ctx context.Context, msg any) error {
	route, err := d.lookup(msg)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	_, err = d.dispatch(ctx, msg, route.MessageType(), route.Bindings())
	return err
}

// Route routes msg to any handler of its route. It is Publish under the
// Router interface.
func (d *Dispatcher) Route(ctx context.Context, msg any) error {
	return d.Publish(ctx, msg)
}

// Request routes req to its single handler and returns the response.
//
// A request without bindings is unanswered, not misconfigured: Request
// returns a nil response and no error, and runs no hook. More than one
// binding fails with a *ReceiverError.
func (d *Dispatcher) Request(ctx context.Context, req any) (any, error) {
	route, err := d.lookup(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	bindings := route.Bindings()
	switch len(bindings) {
	case 0:
		return nil, nil
	case 1:
		return d.dispatch(ctx, req, route.MessageType(), bindings)
	default:
		return nil, &ReceiverError{Op: "request", MessageType: route.MessageType(), Count: len(bindings)}
	}
}

// RequestAs is Request with a typed response. An unanswered request yields
// the zero R.
//
//	quote, err := relay.RequestAs[*Quote](ctx, d, &GetQuote{SKU: "A-1"})
//
// This is a package-level function (not a method) due to Go generics
// limitations: methods cannot have type parameters independent of the
// receiver.
func RequestAs[R any](ctx context.Context, d *Dispatcher, req any) (R, error) {
	var zero R
	res, err := d.Request(ctx, req)
	if err != nil || res == nil {
		return zero, err
	}
	r, ok := res.(R)
	if !ok {
		return zero, fmt.Errorf("request %T: response %T is not a %v", req, res, reflect.TypeFor[R]())
	}
	return r, nil
}

func (d *Dispatcher) lookup(msg any) (*Route, error) {
	mt, err := messageTypeOf(msg)
	if err != nil {
		return nil, err
	}
	return d.table.Route(mt), nil
}

// dispatch runs one dispatch call over bindings and returns the response of
// the last binding.
func (d *Dispatcher) dispatch(ctx context.Context, msg any, messageType reflect.Type, bindings []*Binding) (res any, err error) {
	env := NewEnvelope(msg, messageType)

	ctx = d.callBeforeRouting(withEnvelope(ctx, env), env)
	defer func() {
		d.callAfterRouted(ctx, env, err)
	}()

	// Resolve every instance first so that a missing handler fails the call
	// before any handler has run.
	handlers := make([]any, len(bindings))
	for i, b := range bindings {
		h, err := d.factory.Resolve(ctx, b.handlerType, env)
		if err != nil {
			return nil, fmt.Errorf("resolve %v for %v: %w", b.handlerType, b.messageType, err)
		}
		if isNil(h) {
			return nil, &NilHandlerError{HandlerType: b.handlerType, MessageType: b.messageType}
		}
		handlers[i] = h
	}

	mws := d.currentMiddlewares()
	for i, b := range bindings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err = d.invoke(ctx, env, mws, b, handlers[i])
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (d *Dispatcher) invoke(ctx context.Context, env *Envelope, mws []Middleware, b *Binding, handler any) (any, error) {
	terminal := func(ctx context.Context, env *Envelope) (any, error) {
		return b.Invoke(ctx, handler, env.Message())
	}
	ctx = withBinding(ctx, b)
	if len(mws) == 0 {
		return terminal(ctx, env)
	}
	return Compose(mws, terminal)(ctx, env)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
