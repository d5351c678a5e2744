package relay

import "context"

// Endpoint handles one envelope and returns the handler's response, if any.
type Endpoint func(ctx context.Context, env *Envelope) (any, error)

// Middleware wraps an Endpoint with pre- and post-processing:
//
//	func timing(next relay.Endpoint) relay.Endpoint {
//	    return func(ctx context.Context, env *relay.Envelope) (any, error) {
//	        start := time.Now()
//	        res, err := next(ctx, env)
//	        metrics.Timing("relay.handler", time.Since(start))
//	        return res, err
//	    }
//	}
//
// A middleware that returns without calling next ends the chain; nothing
// registered after it runs for that binding.
type Middleware func(next Endpoint) Endpoint

// Compose wraps terminal in middlewares. The first middleware becomes the
// outermost wrapper: its pre-processing runs first and its post-processing
// runs last.
func Compose(middlewares []Middleware, terminal Endpoint) Endpoint {
	next := terminal
	for i := len(middlewares) - 1; i >= 0; i-- {
		next = middlewares[i](next)
	}
	return next
}

type (
	bindingKey  struct{}
	envelopeKey struct{}
)

// EnvelopeFromContext returns the envelope of the dispatch a handler runs
// in, giving handlers access to state set by hooks and middleware.
func EnvelopeFromContext(ctx context.Context) (*Envelope, bool) {
	env, ok := ctx.Value(envelopeKey{}).(*Envelope)
	return env, ok
}

func withEnvelope(ctx context.Context, env *Envelope) context.Context {
	return context.WithValue(ctx, envelopeKey{}, env)
}

// BindingFromContext returns the binding being invoked. It is available to
// middlewares and handlers.
func BindingFromContext(ctx context.Context) (*Binding, bool) {
	b, ok := ctx.Value(bindingKey{}).(*Binding)
	return b, ok
}

func withBinding(ctx context.Context, b *Binding) context.Context {
	return context.WithValue(ctx, bindingKey{}, b)
}
