package relay

import "context"

// Router routes a message to whatever handles it, with no questions asked.
// For explicit Send, Publish and Request semantics use a Dispatcher, which
// also implements Router.
type Router interface {
	Route(ctx context.Context, msg any) error
}

// RouterFunc adapts a function to Router.
type RouterFunc func(ctx context.Context, msg any) error

// Route implements Router.
func (f RouterFunc) Route(ctx context.Context, msg any) error {
	return f(ctx, msg)
}

// NopRouter accepts every message and does nothing. It is useful as a
// default where routing is optional.
type NopRouter struct{}

// Route implements Router.
func (NopRouter) Route(context.Context, any) error { return nil }

var (
	_ Router = (*Dispatcher)(nil)
	_ Router = NopRouter{}
	_ Router = RouterFunc(nil)
)
