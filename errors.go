package relay

import (
	"errors"
	"fmt"
	"reflect"
)

// Configuration errors. These are returned while building a route table and
// are never retried.
var (
	// ErrInvalidMarker is returned when a marker contract is not an interface
	// with exactly one method accepting a context and the message.
	ErrInvalidMarker = errors.New("invalid marker contract")

	// ErrUnresolvedMethod is returned when a handler type declares a message
	// type but has no method accepting exactly that type.
	ErrUnresolvedMethod = errors.New("unresolved handler method")

	// ErrDuplicateRoute is returned by a Strict table when a second route is
	// added for a message type that already has one.
	ErrDuplicateRoute = errors.New("duplicate route")

	// ErrValueMessage is returned when a message type is not a pointer.
	// Routing is by pointer type identity only.
	ErrValueMessage = errors.New("message type must be a pointer")
)

// Dispatch errors.
var (
	// ErrNoReceiver is returned by Send when the message has no binding.
	ErrNoReceiver = errors.New("no receiver")

	// ErrAmbiguousReceiver is returned by Send and Request when the message
	// has more than one binding.
	ErrAmbiguousReceiver = errors.New("ambiguous receiver")

	// ErrNilHandler is returned when the handler factory yields no instance
	// for a binding.
	ErrNilHandler = errors.New("nil handler")

	// ErrNilMessage is returned when a nil message is dispatched.
	ErrNilMessage = errors.New("nil message")

	// ErrStateNotFound is returned by Envelope.State for an absent key.
	ErrStateNotFound = errors.New("state not found")
)

// ReceiverError reports a route whose binding count does not suit a
// single-receiver operation. It matches ErrNoReceiver or ErrAmbiguousReceiver
// with errors.Is, depending on Count.
type ReceiverError struct {
	Op          string
	MessageType reflect.Type
	Count       int
}

func (e *ReceiverError) Error() string {
	if e.Count == 0 {
		return fmt.Sprintf("%s %v: no receiver registered", e.Op, e.MessageType)
	}
	return fmt.Sprintf("%s %v: %d receivers registered, want exactly one; use Publish for fan-out",
		e.Op, e.MessageType, e.Count)
}

func (e *ReceiverError) Is(target error) bool {
	if e.Count == 0 {
		return target == ErrNoReceiver
	}
	return target == ErrAmbiguousReceiver
}

// NilHandlerError names the binding whose handler factory returned nil.
type NilHandlerError struct {
	HandlerType reflect.Type
	MessageType reflect.Type
}

func (e *NilHandlerError) Error() string {
	return fmt.Sprintf("handler of type %v created for message type %v was nil", e.HandlerType, e.MessageType)
}

func (e *NilHandlerError) Unwrap() error { return ErrNilHandler }
