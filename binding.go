package relay

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

// Invoker calls a handler method with a message. The handler is an instance
// produced by a HandlerFactory for the binding's handler type, and the
// message has the binding's message type.
//
// The returned value is the handler's response for request/response
// bindings and nil for bindings that only return an error.
type Invoker func(ctx context.Context, handler, msg any) (any, error)

// Binding pairs a message type with the compiled invocation of one handler
// method. Bindings are immutable.
type Binding struct {
	handlerType reflect.Type
	messageType reflect.Type
	invoke      Invoker
}

// NewBinding returns a binding that routes messageType to a method of
// handlerType through invoke. The message type must be a pointer type.
func NewBinding(handlerType, messageType reflect.Type, invoke Invoker) (*Binding, error) {
	if handlerType == nil {
		return nil, errors.New("binding: nil handler type")
	}
	if err := checkMessageType(messageType); err != nil {
		return nil, fmt.Errorf("binding %v: %w", handlerType, err)
	}
	if invoke == nil {
		return nil, fmt.Errorf("binding %v for %v: nil invoker", handlerType, messageType)
	}
	return &Binding{
		handlerType: handlerType,
		messageType: messageType,
		invoke:      invoke,
	}, nil
}

// HandlerType returns the type that declares the handling method.
func (b *Binding) HandlerType() reflect.Type { return b.handlerType }

// MessageType returns the exact message type the binding answers.
func (b *Binding) MessageType() reflect.Type { return b.messageType }

// Invoke calls the bound method on handler with msg.
func (b *Binding) Invoke(ctx context.Context, handler, msg any) (any, error) {
	return b.invoke(ctx, handler, msg)
}

func (b *Binding) String() string {
	return fmt.Sprintf("%v -> %v", b.messageType, b.handlerType)
}

func checkMessageType(t reflect.Type) error {
	if t == nil {
		return ErrNilMessage
	}
	if t.Kind() != reflect.Pointer {
		return fmt.Errorf("%v: %w", t, ErrValueMessage)
	}
	return nil
}

// messageTypeOf returns the routing key for msg.
func messageTypeOf(msg any) (reflect.Type, error) {
	if msg == nil {
		return nil, ErrNilMessage
	}
	t := reflect.TypeOf(msg)
	if err := checkMessageType(t); err != nil {
		return nil, err
	}
	if reflect.ValueOf(msg).IsNil() {
		return nil, fmt.Errorf("%v: %w", t, ErrNilMessage)
	}
	return t, nil
}
