package relay

import (
	"context"
	"fmt"
	"reflect"
)

// HandlerFactory produces the handler instance a binding is invoked on.
//
// Returning a nil handler with a nil error is a legitimate outcome meaning
// "no instance"; the dispatcher turns it into a NilHandlerError naming the
// binding. Plug a dependency-injection container in here.
type HandlerFactory interface {
	Resolve(ctx context.Context, handlerType reflect.Type, env *Envelope) (any, error)
}

// FactoryFunc adapts a function to HandlerFactory.
//
//	f := relay.FactoryFunc(func(ctx context.Context, t reflect.Type, env *relay.Envelope) (any, error) {
//	    return container.Get(t)
//	})
type FactoryFunc func(ctx context.Context, handlerType reflect.Type, env *Envelope) (any, error)

// Resolve implements HandlerFactory.
func (f FactoryFunc) Resolve(ctx context.Context, handlerType reflect.Type, env *Envelope) (any, error) {
	return f(ctx, handlerType, env)
}

// Instances returns a HandlerFactory serving the given handlers as
// singletons, keyed by their dynamic type. Unknown types resolve to nil.
//
// It panics if two handlers share a type.
func Instances(handlers ...any) HandlerFactory {
	byType := make(map[reflect.Type]any, len(handlers))
	for _, h := range handlers {
		t := reflect.TypeOf(h)
		if _, exists := byType[t]; exists {
			panic(fmt.Sprintf("relay: handler instance of type %v already registered", t))
		}
		byType[t] = h
	}
	return instances(byType)
}

type instances map[reflect.Type]any

func (s instances) Resolve(_ context.Context, handlerType reflect.Type, _ *Envelope) (any, error) {
	return s[handlerType], nil
}

// Transient returns a HandlerFactory that creates a fresh zero-valued
// instance per resolution. Pointer handler types get a newly allocated value.
func Transient() HandlerFactory {
	return FactoryFunc(func(_ context.Context, handlerType reflect.Type, _ *Envelope) (any, error) {
		if handlerType.Kind() == reflect.Pointer {
			return reflect.New(handlerType.Elem()).Interface(), nil
		}
		return reflect.Zero(handlerType).Interface(), nil
	})
}
