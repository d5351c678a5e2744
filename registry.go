package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
)

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger used to record registrations.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = l
	}
}

// Registry collects bindings registered explicitly with Handle, Reply,
// Subscribe and Respond, and turns them into a route table.
//
// Each binding is a plain closure over a method expression, so dispatching
// through it involves no reflection:
//
//	reg := relay.NewRegistry()
//	relay.Handle(reg, (*Billing).OnOrderPlaced)
//	relay.Handle(reg, (*Shipping).OnOrderPlaced)
//	relay.Reply(reg, (*Pricing).Quote)
//
//	table, err := reg.Table()
//
// Registration errors are collected and reported together by Routes and
// Table. A Registry is not safe for concurrent registration.
type Registry struct {
	logger   *slog.Logger
	bindings []*Binding
	errs     []error
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle registers fn as the handler of M declared by H. fn is usually a
// method expression such as (*Billing).OnOrderPlaced.
//
// This is a package-level function (not a method) due to Go generics
// limitations: methods cannot have type parameters independent of the
// receiver.
func Handle[H, M any](r *Registry, fn func(H, context.Context, M) error) {
	if fn == nil {
		r.fail(fmt.Errorf("register %v for %v: nil function", reflect.TypeFor[H](), reflect.TypeFor[M]()))
		return
	}
	r.add(reflect.TypeFor[H](), reflect.TypeFor[M](), func(ctx context.Context, handler, msg any) (any, error) {
		h, ok := handler.(H)
		if !ok {
			return nil, fmt.Errorf("handler %T is not a %v", handler, reflect.TypeFor[H]())
		}
		return nil, fn(h, ctx, msg.(M))
	})
}

// Reply registers fn as the request handler of Q declared by H, answering
// with an R.
func Reply[H, Q, R any](r *Registry, fn func(H, context.Context, Q) (R, error)) {
	if fn == nil {
		r.fail(fmt.Errorf("register %v for %v: nil function", reflect.TypeFor[H](), reflect.TypeFor[Q]()))
		return
	}
	r.add(reflect.TypeFor[H](), reflect.TypeFor[Q](), func(ctx context.Context, handler, msg any) (any, error) {
		h, ok := handler.(H)
		if !ok {
			return nil, fmt.Errorf("handler %T is not a %v", handler, reflect.TypeFor[H]())
		}
		return fn(h, ctx, msg.(Q))
	})
}

// Subscribe registers H's Handle method for M.
//
//	relay.Subscribe[*OrderPlaced, *Billing](reg)
func Subscribe[M any, H Handler[M]](r *Registry) {
	Handle(r, func(h H, ctx context.Context, msg M) error {
		return h.Handle(ctx, msg)
	})
}

// Respond registers H's Handle method as the request handler of Q.
func Respond[Q, R any, H RequestHandler[Q, R]](r *Registry) {
	Reply(r, func(h H, ctx context.Context, req Q) (R, error) {
		return h.Handle(ctx, req)
	})
}

func (r *Registry) add(handlerType, messageType reflect.Type, invoke Invoker) {
	b, err := NewBinding(handlerType, messageType, invoke)
	if err != nil {
		r.fail(fmt.Errorf("register: %w", err))
		return
	}
	r.logger.Debug("Registering handler.",
		"message_type", messageType.String(),
		"handler_type", handlerType.String(),
	)
	r.bindings = append(r.bindings, b)
}

func (r *Registry) fail(err error) {
	r.errs = append(r.errs, err)
}

// Bindings returns the registered bindings in registration order.
func (r *Registry) Bindings() []*Binding {
	return append([]*Binding(nil), r.bindings...)
}

// Routes groups the registered bindings into one route per message type.
// Route order follows the first registration of each type; binding order
// follows registration order.
func (r *Registry) Routes() ([]*Route, error) {
	if err := errors.Join(r.errs...); err != nil {
		return nil, err
	}
	return groupRoutes(r.bindings)
}

// Table returns a new table holding the registered routes.
func (r *Registry) Table(opts ...TableOption) (*Table, error) {
	routes, err := r.Routes()
	if err != nil {
		return nil, err
	}
	t := NewTable(opts...)
	if err := t.Add(routes...); err != nil {
		return nil, err
	}
	return t, nil
}
