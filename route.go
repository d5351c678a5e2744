package relay

import (
	"fmt"
	"reflect"
	"sync/atomic"
)

// Route is the ordered set of bindings registered for one message type.
//
// Routes are compared by message type alone. A Table stores its own copy of
// every route added to it; the copy returned by Table.Route may grow when the
// table merges more bindings into it. Bindings always returns a complete
// snapshot.
type Route struct {
	messageType reflect.Type
	bindings    atomic.Pointer[[]*Binding]
}

// NewRoute returns a route for messageType holding bindings in the given
// order. At least one binding is required and every binding must answer
// messageType.
func NewRoute(messageType reflect.Type, bindings ...*Binding) (*Route, error) {
	if err := checkMessageType(messageType); err != nil {
		return nil, fmt.Errorf("route: %w", err)
	}
	if len(bindings) == 0 {
		return nil, fmt.Errorf("route %v: at least one binding is required", messageType)
	}
	for _, b := range bindings {
		if b == nil {
			return nil, fmt.Errorf("route %v: nil binding", messageType)
		}
		if b.messageType != messageType {
			return nil, fmt.Errorf("route %v: binding %v answers %v", messageType, b.handlerType, b.messageType)
		}
	}

	r := &Route{messageType: messageType}
	bs := append([]*Binding(nil), bindings...)
	r.bindings.Store(&bs)
	return r, nil
}

// EmptyRoute returns a route for messageType with no bindings. It is what a
// Table returns for a type it does not know.
func EmptyRoute(messageType reflect.Type) *Route {
	r := &Route{messageType: messageType}
	r.bindings.Store(&[]*Binding{})
	return r
}

// MessageType returns the routed message type.
func (r *Route) MessageType() reflect.Type { return r.messageType }

// Bindings returns the route's bindings in registration order. The slice is
// shared and must not be modified.
func (r *Route) Bindings() []*Binding { return *r.bindings.Load() }

// Len returns the number of bindings.
func (r *Route) Len() int { return len(r.Bindings()) }

// Equal reports whether r and other route the same message type.
func (r *Route) Equal(other *Route) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r == other || r.messageType == other.messageType
}

// clone returns a route with the same message type and a snapshot of r's
// bindings.
func (r *Route) clone() *Route {
	c := &Route{messageType: r.messageType}
	bs := r.Bindings()
	c.bindings.Store(&bs)
	return c
}

// extend appends bindings. Only the owning table calls it, under its write
// lock; readers see either the old or the new slice.
func (r *Route) extend(bindings []*Binding) {
	old := r.Bindings()
	next := make([]*Binding, 0, len(old)+len(bindings))
	next = append(next, old...)
	next = append(next, bindings...)
	r.bindings.Store(&next)
}

func (r *Route) String() string {
	return fmt.Sprintf("route %v (%d bindings)", r.messageType, r.Len())
}
