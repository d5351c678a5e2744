package relay

import (
	"fmt"
	"reflect"
)

// Envelope carries one in-flight message and a bag of state shared by every
// hook, middleware and handler taking part in the same dispatch.
//
// A new Envelope is created for each dispatch call and is discarded when the
// call returns. It is not safe for concurrent use; the dispatcher never
// shares one between calls.
type Envelope struct {
	message     any
	messageType reflect.Type
	state       map[string]any
}

// NewEnvelope returns an envelope for msg routed as messageType.
func NewEnvelope(msg any, messageType reflect.Type) *Envelope {
	return &Envelope{
		message:     msg,
		messageType: messageType,
		state:       make(map[string]any),
	}
}

// Message returns the routed message.
func (e *Envelope) Message() any { return e.message }

// MessageType returns the type the message was routed by. It is captured
// once, when the envelope is created.
func (e *Envelope) MessageType() reflect.Type { return e.messageType }

// State returns the value stored under key. It fails with ErrStateNotFound
// when nothing was stored; use LookupState to check for presence.
func (e *Envelope) State(key string) (any, error) {
	v, ok := e.state[key]
	if !ok {
		return nil, fmt.Errorf("envelope %v: key %q: %w", e.messageType, key, ErrStateNotFound)
	}
	return v, nil
}

// LookupState returns the value stored under key and whether it was present.
func (e *Envelope) LookupState(key string) (any, bool) {
	v, ok := e.state[key]
	return v, ok
}

// SetState stores v under key, replacing any previous value.
func (e *Envelope) SetState(key string, v any) {
	e.state[key] = v
}

// StateAs returns the value stored under key as a T. It fails when the key is
// absent or holds a value of another type.
func StateAs[T any](e *Envelope, key string) (T, error) {
	var zero T
	v, err := e.State(key)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("envelope %v: key %q holds %T, not %v", e.messageType, key, v, reflect.TypeFor[T]())
	}
	return t, nil
}
