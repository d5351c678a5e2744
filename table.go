package relay

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// Policy decides what a Table does when a route is added for a message type
// it already holds.
type Policy int

const (
	// Merge appends the new route's bindings to the existing route. Use it
	// when several discovery passes must coalesce into one table.
	Merge Policy = iota

	// Strict rejects the second route with ErrDuplicateRoute.
	Strict
)

func (p Policy) String() string {
	switch p {
	case Merge:
		return "merge"
	case Strict:
		return "strict"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy returns the policy named s ("merge" or "strict").
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "merge", "":
		return Merge, nil
	case "strict":
		return Strict, nil
	default:
		return 0, fmt.Errorf("unknown table policy %q", s)
	}
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithPolicy sets the duplicate-route policy. The default is Merge.
func WithPolicy(p Policy) TableOption {
	return func(t *Table) {
		t.policy = p
	}
}

// Table maps message types to routes.
//
// Lookups never lock and never observe a partially added route: writers
// publish a new snapshot atomically. Writers are serialized with each other.
// Tables are usually built once at startup and only read afterwards.
type Table struct {
	policy Policy

	mu   sync.Mutex
	seen map[*Route]struct{} // caller instances already added or merged
	snap atomic.Pointer[snapshot]
}

type snapshot struct {
	routes map[reflect.Type]*Route
	order  []reflect.Type
}

// NewTable returns an empty table.
func NewTable(opts ...TableOption) *Table {
	t := &Table{seen: make(map[*Route]struct{})}
	for _, opt := range opts {
		opt(t)
	}
	t.snap.Store(&snapshot{routes: map[reflect.Type]*Route{}})
	return t
}

// Policy returns the table's duplicate-route policy.
func (t *Table) Policy() Policy { return t.policy }

// Add inserts routes in order. The table keeps its own copy of each route,
// so merging into one table never changes a route held by another. Adding a
// route instance the table has already seen, or one it returned from Route,
// is a no-op under either policy.
//
// Under Strict, a route for a known message type fails with
// ErrDuplicateRoute naming the type; routes before it remain added.
func (t *Table) Add(routes ...*Route) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, r := range routes {
		if err := t.add(r); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) add(r *Route) error {
	if r == nil {
		return errors.New("table: nil route")
	}
	if _, ok := t.seen[r]; ok {
		return nil
	}

	cur := t.snap.Load()
	if own, ok := cur.routes[r.messageType]; ok {
		if own == r {
			return nil
		}
		if t.policy == Strict {
			return fmt.Errorf("route for message type %v already exists: %w", r.messageType, ErrDuplicateRoute)
		}
		own.extend(r.Bindings())
		t.seen[r] = struct{}{}
		return nil
	}

	if r.Len() == 0 {
		return fmt.Errorf("table: route %v has no bindings", r.messageType)
	}

	next := &snapshot{
		routes: make(map[reflect.Type]*Route, len(cur.routes)+1),
		order:  make([]reflect.Type, 0, len(cur.order)+1),
	}
	for k, v := range cur.routes {
		next.routes[k] = v
	}
	next.routes[r.messageType] = r.clone()
	next.order = append(next.order, cur.order...)
	next.order = append(next.order, r.messageType)
	t.seen[r] = struct{}{}
	t.snap.Store(next)
	return nil
}

// Route returns the route for messageType. A type with no route yields an
// empty route, never nil.
func (t *Table) Route(messageType reflect.Type) *Route {
	if r, ok := t.snap.Load().routes[messageType]; ok {
		return r
	}
	return EmptyRoute(messageType)
}

// HasRoute reports whether the table holds a route for messageType.
func (t *Table) HasRoute(messageType reflect.Type) bool {
	_, ok := t.snap.Load().routes[messageType]
	return ok
}

// Routes returns every route in the order its message type was first added.
func (t *Table) Routes() []*Route {
	s := t.snap.Load()
	out := make([]*Route, 0, len(s.order))
	for _, mt := range s.order {
		out = append(out, s.routes[mt])
	}
	return out
}

// MessageTypes returns the known message types in the order they were first
// added.
func (t *Table) MessageTypes() []reflect.Type {
	return append([]reflect.Type(nil), t.snap.Load().order...)
}

// IsEmpty reports whether the table holds no routes.
func (t *Table) IsEmpty() bool {
	return len(t.snap.Load().order) == 0
}

// Len returns the number of routes.
func (t *Table) Len() int {
	return len(t.snap.Load().order)
}
