package relay

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type ping struct{ ID int }

type pong struct{ ID int }

type query struct{ Q string }

type answer struct{ A string }

type valueMsg struct{}

// recorder collects tags in invocation order.
type recorder struct {
	mu  sync.Mutex
	log []string
}

func (r *recorder) add(tag string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = append(r.log, tag)
}

func (r *recorder) entries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.log...)
}

type handlerA struct {
	rec *recorder
	err error
}

func (h *handlerA) Handle(ctx context.Context, m *ping) error {
	h.rec.add("A.Ping")
	return h.err
}

func (h *handlerA) OnPong(ctx context.Context, m *pong) error {
	h.rec.add("A.Pong")
	return h.err
}

type handlerB struct {
	rec *recorder
	err error
}

func (h *handlerB) Handle(ctx context.Context, m *ping) error {
	h.rec.add("B.Ping")
	return h.err
}

type answerer struct {
	rec *recorder
}

func (h *answerer) Handle(ctx context.Context, q *query) (*answer, error) {
	if h.rec != nil {
		h.rec.add("answerer.Query")
	}
	return &answer{A: "re:" + q.Q}, nil
}

// notAHandler has a Handle method that fits no marker.
type notAHandler struct{}

func (notAHandler) Handle(m *ping) {}

var (
	pingType   = reflect.TypeFor[*ping]()
	pongType   = reflect.TypeFor[*pong]()
	queryType  = reflect.TypeFor[*query]()
	handlerAT  = reflect.TypeFor[*handlerA]()
	handlerBT  = reflect.TypeFor[*handlerB]()
	answererT  = reflect.TypeFor[*answerer]()
	handlerMkr = reflect.TypeFor[Handler[any]]()
	requestMkr = reflect.TypeFor[RequestHandler[any, any]]()
)

func nopInvoker(context.Context, any, any) (any, error) { return nil, nil }

func testBinding(t *testing.T, handlerType, messageType reflect.Type) *Binding {
	t.Helper()
	b, err := NewBinding(handlerType, messageType, nopInvoker)
	require.NoError(t, err)
	return b
}

func testRoute(t *testing.T, messageType reflect.Type, handlerTypes ...reflect.Type) *Route {
	t.Helper()
	bs := make([]*Binding, 0, len(handlerTypes))
	for _, ht := range handlerTypes {
		bs = append(bs, testBinding(t, ht, messageType))
	}
	r, err := NewRoute(messageType, bs...)
	require.NoError(t, err)
	return r
}

func handlerTypes(r *Route) []reflect.Type {
	var out []reflect.Type
	for _, b := range r.Bindings() {
		out = append(out, b.HandlerType())
	}
	return out
}
