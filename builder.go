package relay

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
)

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithBuilderLogger sets the logger used to record bound routes.
func WithBuilderLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = l
	}
}

// WithTableOptions sets the options of tables created by Build.
func WithTableOptions(opts ...TableOption) BuilderOption {
	return func(b *Builder) {
		b.tableOpts = append(b.tableOpts, opts...)
	}
}

// Builder turns handler declarations into a route table.
//
// Usage:
//  1. Describe the marker contract, e.g. reflect.TypeFor[relay.Handler[any]]()
//  2. Supply a Discoverer, e.g. relay.ScanTypes(...)
//  3. Call Build
//
// Invocation goes through reflection. Prefer a Registry when handlers can be
// registered explicitly; it compiles bindings as plain closures.
type Builder struct {
	logger    *slog.Logger
	tableOpts []TableOption
}

// NewBuilder creates a Builder with the given options.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build validates markerType, discovers declarations with d and returns a
// new table holding one route per declared message type.
//
// An invalid marker fails before d is consulted. Discovering nothing yields
// an empty table.
func (b *Builder) Build(d Discoverer, markerType reflect.Type) (*Table, error) {
	routes, err := b.Routes(d, markerType)
	if err != nil {
		return nil, err
	}
	t := NewTable(b.tableOpts...)
	if err := t.Add(routes...); err != nil {
		return nil, err
	}
	return t, nil
}

// Routes is like Build but returns the routes instead of a table, so that
// several discovery passes can be added to one table.
func (b *Builder) Routes(d Discoverer, markerType reflect.Type) ([]*Route, error) {
	m, err := NewMarker(markerType)
	if err != nil {
		return nil, err
	}

	decls, err := d.Discover(m)
	if err != nil {
		return nil, fmt.Errorf("discover %v: %w", m, err)
	}

	bindings := make([]*Binding, 0, len(decls))
	for _, decl := range decls {
		binding, err := compileMethod(m, decl)
		if err != nil {
			return nil, err
		}
		b.logger.Debug("Binding handler method.",
			"message_type", decl.MessageType.String(),
			"handler_type", decl.HandlerType.String(),
			"method", m.MethodName(),
		)
		bindings = append(bindings, binding)
	}

	return groupRoutes(bindings)
}

// groupRoutes groups bindings by message type, keeping the order in which
// each type and each binding first appeared.
func groupRoutes(bindings []*Binding) ([]*Route, error) {
	groups := make(map[reflect.Type][]*Binding)
	var order []reflect.Type
	for _, b := range bindings {
		if _, ok := groups[b.messageType]; !ok {
			order = append(order, b.messageType)
		}
		groups[b.messageType] = append(groups[b.messageType], b)
	}

	routes := make([]*Route, 0, len(order))
	for _, mt := range order {
		r, err := NewRoute(mt, groups[mt]...)
		if err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}
	return routes, nil
}

// compileMethod resolves the marker method of decl.HandlerType for exactly
// decl.MessageType and returns a binding that calls it.
func compileMethod(m *Marker, decl Declaration) (*Binding, error) {
	if decl.HandlerType == nil {
		return nil, fmt.Errorf("declaration for %v: nil handler type", decl.MessageType)
	}
	if err := checkMessageType(decl.MessageType); err != nil {
		return nil, fmt.Errorf("handler %v: %w", decl.HandlerType, err)
	}

	method, ok := decl.HandlerType.MethodByName(m.MethodName())
	if !ok || !m.fits(method.Type) || method.Type.In(2) != decl.MessageType {
		return nil, fmt.Errorf("handler %v has no method %s(context.Context, %v): %w",
			decl.HandlerType, m.MethodName(), decl.MessageType, ErrUnresolvedMethod)
	}

	handlerType := decl.HandlerType
	fn := method.Func
	responds := method.Type.NumOut() == 2

	invoke := func(ctx context.Context, handler, msg any) (any, error) {
		hv := reflect.ValueOf(handler)
		if !hv.IsValid() || hv.Type() != handlerType {
			return nil, fmt.Errorf("handler %T is not a %v", handler, handlerType)
		}
		mv := reflect.ValueOf(msg)
		if !mv.IsValid() || mv.Type() != decl.MessageType {
			return nil, fmt.Errorf("message %T is not a %v", msg, decl.MessageType)
		}
		out := fn.Call([]reflect.Value{hv, reflect.ValueOf(ctx), mv})

		var err error
		if e := out[len(out)-1].Interface(); e != nil {
			err = e.(error)
		}
		if responds {
			return out[0].Interface(), err
		}
		return nil, err
	}

	return NewBinding(handlerType, decl.MessageType, invoke)
}
