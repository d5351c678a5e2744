package relay

import (
	"context"
	"fmt"
	"reflect"
)

// Handler is the marker contract for messages routed with Send and Publish.
//
//	type OrderPlacedHandler struct{ mailer Mailer }
//
//	func (h *OrderPlacedHandler) Handle(ctx context.Context, e *OrderPlaced) error {
//	    return h.mailer.Confirm(ctx, e.OrderID)
//	}
type Handler[M any] interface {
	Handle(ctx context.Context, msg M) error
}

// RequestHandler is the marker contract for messages routed with Request.
type RequestHandler[Q, R any] interface {
	Handle(ctx context.Context, req Q) (R, error)
}

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// Marker describes a validated marker contract: an interface with exactly one
// method, which accepts a context.Context and the message and returns either
// an error or a response and an error.
//
// Only the shape and the method name matter. A handler type satisfies the
// marker for message type M when it has a method of that name taking
// (context.Context, M) and returning the same number of results.
type Marker struct {
	typ    reflect.Type
	method reflect.Method
}

// NewMarker validates iface as a marker contract.
//
//	m, err := relay.NewMarker(reflect.TypeFor[relay.Handler[any]]())
func NewMarker(iface reflect.Type) (*Marker, error) {
	if iface == nil {
		return nil, fmt.Errorf("marker <nil>: %w", ErrInvalidMarker)
	}
	if iface.Kind() != reflect.Interface {
		return nil, fmt.Errorf("marker %v: must be an interface: %w", iface, ErrInvalidMarker)
	}
	if iface.NumMethod() != 1 {
		return nil, fmt.Errorf("marker %v: must have exactly one method, has %d: %w", iface, iface.NumMethod(), ErrInvalidMarker)
	}

	m := iface.Method(0)
	mt := m.Type
	if mt.NumIn() != 2 || mt.In(0) != contextType {
		return nil, fmt.Errorf("marker %v: method %s must accept (context.Context, message): %w", iface, m.Name, ErrInvalidMarker)
	}
	if mt.IsVariadic() {
		return nil, fmt.Errorf("marker %v: method %s must not be variadic: %w", iface, m.Name, ErrInvalidMarker)
	}
	switch {
	case mt.NumOut() == 1 && mt.Out(0) == errorType:
	case mt.NumOut() == 2 && mt.Out(1) == errorType:
	default:
		return nil, fmt.Errorf("marker %v: method %s must return error or (response, error): %w", iface, m.Name, ErrInvalidMarker)
	}

	return &Marker{typ: iface, method: m}, nil
}

// Type returns the marker interface type.
func (m *Marker) Type() reflect.Type { return m.typ }

// MethodName returns the name of the handling method.
func (m *Marker) MethodName() string { return m.method.Name }

// Responds reports whether the marker's method returns a response.
func (m *Marker) Responds() bool { return m.method.Type.NumOut() == 2 }

// declaredMessageType returns the message type handlerType handles through
// the marker method, or false when handlerType does not fit the marker.
func (m *Marker) declaredMessageType(handlerType reflect.Type) (reflect.Type, bool) {
	method, ok := handlerType.MethodByName(m.method.Name)
	if !ok {
		return nil, false
	}
	if !m.fits(method.Type) {
		return nil, false
	}
	return method.Type.In(2), true
}

// fits reports whether a method type, receiver first, has the marker's shape.
func (m *Marker) fits(mt reflect.Type) bool {
	want := m.method.Type
	if mt.NumIn() != 3 || mt.In(1) != contextType || mt.IsVariadic() {
		return false
	}
	if mt.NumOut() != want.NumOut() || mt.Out(mt.NumOut()-1) != errorType {
		return false
	}
	return true
}

func (m *Marker) String() string {
	return fmt.Sprintf("marker %v.%s", m.typ, m.method.Name)
}
