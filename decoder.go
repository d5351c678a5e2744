package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/tidwall/gjson"
)

// ErrNoMatch is returned by Decoder.Decode when no registered message type
// recognises the input.
var ErrNoMatch = errors.New("no message type matched")

// validatable is the interface for message validation.
// Compatible with github.com/go-ozzo/ozzo-validation/v4.
type validatable interface {
	Validate() error
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithInspector sets the inspector used to examine raw input. The default is
// JSONInspector.
func WithInspector(i Inspector) DecoderOption {
	return func(d *Decoder) {
		d.inspector = i
	}
}

// Decoder turns raw documents into typed messages ready for dispatch.
//
// Message types are registered with DecodeAs together with a Discriminator.
// Decode examines the input once, picks the first registered type whose
// discriminator matches, unmarshals the payload into a new message and
// validates it if it has a Validate() error method. When discriminators
// overlap, the earlier registration wins regardless of what was decoded
// before.
//
// A payload holding a JSON document encoded as a string, as SNS does with
// its Message field, is unwrapped before unmarshaling.
//
//	dec := relay.NewDecoder()
//	relay.DecodeAs[*OrderPlaced](dec, relay.TypeField("order.placed"), "payload")
//
//	msg, err := dec.Decode(raw)
//	if err != nil {
//	    return err
//	}
//	return d.Publish(ctx, msg)
//
// Register all types before calling Decode. Decode is safe for concurrent
// use.
type Decoder struct {
	inspector Inspector
	entries   []decodeEntry
}

type decodeEntry struct {
	disc        Discriminator
	messageType reflect.Type
	path        string
	decode      func(payload []byte) (any, error)
}

// NewDecoder creates a Decoder with the given options.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{inspector: JSONInspector()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DecodeAs registers M, a pointer message type, as the decoding of documents
// matching disc. The payload is read from path; the empty path means the
// whole document.
//
// It panics if M is not a pointer type.
func DecodeAs[M any](d *Decoder, disc Discriminator, path string) {
	mt := reflect.TypeFor[M]()
	if err := checkMessageType(mt); err != nil {
		panic(fmt.Sprintf("relay: decode: %v", err))
	}
	d.entries = append(d.entries, decodeEntry{
		disc:        disc,
		messageType: mt,
		path:        path,
		decode: func(payload []byte) (any, error) {
			msg := reflect.New(mt.Elem()).Interface().(M)
			if err := json.Unmarshal(payload, msg); err != nil {
				return nil, fmt.Errorf("unmarshal %v: %w", mt, err)
			}
			if v, ok := any(msg).(validatable); ok {
				if err := v.Validate(); err != nil {
					return nil, fmt.Errorf("validate %v: %w", mt, err)
				}
			}
			return msg, nil
		},
	})
}

// Decode returns the message encoded in raw.
func (d *Decoder) Decode(raw []byte) (any, error) {
	view, err := d.inspector.Inspect(raw)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	e, ok := d.match(view)
	if !ok {
		return nil, ErrNoMatch
	}

	r, ok := view.Get(e.path)
	if !ok {
		return nil, fmt.Errorf("decode %v: payload %q not found", e.messageType, e.path)
	}
	return e.decode(payloadBytes(r))
}

// Route decodes raw and routes the message with r.
func (d *Decoder) Route(ctx context.Context, r Router, raw []byte) error {
	msg, err := d.Decode(raw)
	if err != nil {
		return err
	}
	return r.Route(ctx, msg)
}

// match returns the first entry, in registration order, whose discriminator
// matches the view.
func (d *Decoder) match(view View) (decodeEntry, bool) {
	for _, e := range d.entries {
		if e.disc.Match(view) {
			return e, true
		}
	}
	return decodeEntry{}, false
}

func payloadBytes(r gjson.Result) []byte {
	if r.Type == gjson.String && gjson.Valid(r.Str) {
		if inner := gjson.Parse(r.Str); inner.IsObject() || inner.IsArray() {
			return []byte(r.Str)
		}
	}
	return []byte(r.Raw)
}
