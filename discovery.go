package relay

import (
	"fmt"
	"reflect"
)

// Declaration states that HandlerType handles MessageType through a marker
// contract.
type Declaration struct {
	HandlerType reflect.Type
	MessageType reflect.Type
}

func (d Declaration) String() string {
	return fmt.Sprintf("%v handles %v", d.HandlerType, d.MessageType)
}

// Discoverer enumerates the handler declarations for a marker contract.
//
// The order of the returned declarations decides binding order, and so the
// order in which Publish invokes handlers. Implementations must return the
// same order for the same input.
type Discoverer interface {
	Discover(m *Marker) ([]Declaration, error)
}

// DiscovererFunc adapts a function to Discoverer.
type DiscovererFunc func(m *Marker) ([]Declaration, error)

// Discover implements Discoverer.
func (f DiscovererFunc) Discover(m *Marker) ([]Declaration, error) {
	return f(m)
}

// Declarations is a fixed list of declarations returned as-is.
type Declarations []Declaration

// Discover implements Discoverer.
func (d Declarations) Discover(*Marker) ([]Declaration, error) {
	return d, nil
}

// ScanTypes returns a Discoverer that inspects the given handler types in
// order and declares every type whose method set fits the marker. Types that
// do not fit are skipped.
//
//	d := relay.ScanTypes(
//	    reflect.TypeFor[*OrderPlacedHandler](),
//	    reflect.TypeFor[*AuditHandler](),
//	)
func ScanTypes(types ...reflect.Type) Discoverer {
	return typeScanner(types)
}

// ScanValues is like ScanTypes but takes example values, typically the
// handler instances also handed to Instances.
func ScanValues(handlers ...any) Discoverer {
	types := make([]reflect.Type, 0, len(handlers))
	for _, h := range handlers {
		types = append(types, reflect.TypeOf(h))
	}
	return typeScanner(types)
}

type typeScanner []reflect.Type

func (s typeScanner) Discover(m *Marker) ([]Declaration, error) {
	var decls []Declaration
	for _, t := range s {
		if t == nil {
			return nil, fmt.Errorf("scan %v: nil handler type", m)
		}
		if t.Kind() == reflect.Interface {
			continue
		}
		mt, ok := m.declaredMessageType(t)
		if !ok {
			continue
		}
		decls = append(decls, Declaration{HandlerType: t, MessageType: mt})
	}
	return decls, nil
}
