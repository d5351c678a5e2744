package relay

import "context"

// BeforeRoutingFunc is called once per dispatch, after the envelope is built
// and before any handler is resolved. Use it to seed envelope state or to
// enrich the context; the returned context is used for the rest of the
// dispatch.
type BeforeRoutingFunc func(ctx context.Context, env *Envelope) context.Context

// AfterRoutedFunc is called exactly once per dispatch that reached its
// before-routing stage, whether the dispatch succeeded or failed. err is the
// error the dispatch is about to return.
type AfterRoutedFunc func(ctx context.Context, env *Envelope, err error)

// hooks holds all configured hook functions.
type hooks struct {
	beforeRouting []BeforeRoutingFunc
	afterRouted   []AfterRoutedFunc
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithBeforeRouting adds a hook called before routing. Multiple hooks are
// called in order, with context chaining through each.
//
// Example:
//
//	relay.WithBeforeRouting(func(ctx context.Context, env *relay.Envelope) context.Context {
//	    env.SetState("received_at", time.Now())
//	    return ctx
//	})
func WithBeforeRouting(fn BeforeRoutingFunc) Option {
	return func(d *Dispatcher) {
		d.hooks.beforeRouting = append(d.hooks.beforeRouting, fn)
	}
}

// WithAfterRouted adds a hook called after routing, on success and failure
// alike. Multiple hooks are called in order.
//
// Example:
//
//	relay.WithAfterRouted(func(ctx context.Context, env *relay.Envelope, err error) {
//	    if err != nil {
//	        metrics.Incr("relay.failure", "type:"+env.MessageType().String())
//	    }
//	})
func WithAfterRouted(fn AfterRoutedFunc) Option {
	return func(d *Dispatcher) {
		d.hooks.afterRouted = append(d.hooks.afterRouted, fn)
	}
}

// WithMiddleware registers middlewares, as Use does.
func WithMiddleware(mws ...Middleware) Option {
	return func(d *Dispatcher) {
		d.middlewares = append(d.middlewares, mws...)
	}
}

func (d *Dispatcher) callBeforeRouting(ctx context.Context, env *Envelope) context.Context {
	for _, fn := range d.hooks.beforeRouting {
		ctx = fn(ctx, env)
	}
	return ctx
}

func (d *Dispatcher) callAfterRouted(ctx context.Context, env *Envelope, err error) {
	for _, fn := range d.hooks.afterRouted {
		fn(ctx, env, err)
	}
}
