package relay

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Run("groups method expressions by message type", func(t *testing.T) {
		reg := NewRegistry()
		Handle(reg, (*handlerA).OnPong)
		Handle(reg, (*handlerA).Handle)
		Handle(reg, (*handlerB).Handle)

		table, err := reg.Table()
		require.NoError(t, err)

		assert.Equal(t, []reflect.Type{pongType, pingType}, table.MessageTypes())
		assert.Equal(t, []reflect.Type{handlerAT, handlerBT}, handlerTypes(table.Route(pingType)))
		assert.Len(t, reg.Bindings(), 3)
	})

	t.Run("Handle binding invokes the method", func(t *testing.T) {
		rec := &recorder{}
		reg := NewRegistry()
		Handle(reg, (*handlerA).OnPong)

		routes, err := reg.Routes()
		require.NoError(t, err)
		require.Len(t, routes, 1)

		res, err := routes[0].Bindings()[0].Invoke(context.Background(), &handlerA{rec: rec}, &pong{})
		require.NoError(t, err)
		assert.Nil(t, res)
		assert.Equal(t, []string{"A.Pong"}, rec.entries())
	})

	t.Run("Reply binding returns the response", func(t *testing.T) {
		reg := NewRegistry()
		Reply(reg, (*answerer).Handle)

		table, err := reg.Table()
		require.NoError(t, err)

		res, err := table.Route(queryType).Bindings()[0].Invoke(context.Background(), &answerer{}, &query{Q: "q"})
		require.NoError(t, err)
		assert.Equal(t, &answer{A: "re:q"}, res)
	})

	t.Run("Subscribe and Respond bind the marker method", func(t *testing.T) {
		reg := NewRegistry()
		Subscribe[*ping, *handlerB](reg)
		Respond[*query, *answer, *answerer](reg)

		table, err := reg.Table()
		require.NoError(t, err)

		assert.Equal(t, []reflect.Type{handlerBT}, handlerTypes(table.Route(pingType)))
		assert.Equal(t, []reflect.Type{answererT}, handlerTypes(table.Route(queryType)))
	})

	t.Run("binding rejects a handler of the wrong type", func(t *testing.T) {
		reg := NewRegistry()
		Handle(reg, (*handlerA).Handle)

		routes, err := reg.Routes()
		require.NoError(t, err)

		_, err = routes[0].Bindings()[0].Invoke(context.Background(), &handlerB{}, &ping{})
		assert.Error(t, err)
	})

	t.Run("registration errors are reported together", func(t *testing.T) {
		reg := NewRegistry()
		Handle(reg, func(h *handlerA, ctx context.Context, m valueMsg) error { return nil })
		Handle[*handlerA, *ping](reg, nil)
		Handle(reg, (*handlerB).Handle)

		_, err := reg.Table()

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrValueMessage)
		assert.Contains(t, err.Error(), "nil function")
	})

	t.Run("strict table rejects nothing from a single registry", func(t *testing.T) {
		reg := NewRegistry()
		Handle(reg, (*handlerA).Handle)
		Handle(reg, (*handlerB).Handle)

		table, err := reg.Table(WithPolicy(Strict))
		require.NoError(t, err)
		assert.Equal(t, 2, table.Route(pingType).Len())
	})
}
