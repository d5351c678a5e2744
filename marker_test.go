package relay

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type twoMethodMarker interface {
	Handle(ctx context.Context, msg any) error
	Close() error
}

type noContextMarker interface {
	Handle(msg any) error
}

type twoParamMarker interface {
	Handle(ctx context.Context, msg any, extra any) error
}

type badResultMarker interface {
	Handle(ctx context.Context, msg any) int
}

type emptyMarker interface{}

type structMarker struct{}

func TestNewMarker(t *testing.T) {
	t.Run("accepts Handler", func(t *testing.T) {
		m, err := NewMarker(handlerMkr)
		require.NoError(t, err)

		assert.Equal(t, "Handle", m.MethodName())
		assert.False(t, m.Responds())
		assert.Equal(t, handlerMkr, m.Type())
	})

	t.Run("accepts RequestHandler", func(t *testing.T) {
		m, err := NewMarker(requestMkr)
		require.NoError(t, err)

		assert.True(t, m.Responds())
	})

	invalid := map[string]reflect.Type{
		"not an interface":   reflect.TypeFor[structMarker](),
		"two methods":        reflect.TypeFor[twoMethodMarker](),
		"no methods":         reflect.TypeFor[emptyMarker](),
		"no context":         reflect.TypeFor[noContextMarker](),
		"two parameters":     reflect.TypeFor[twoParamMarker](),
		"non-error result":   reflect.TypeFor[badResultMarker](),
		"pointer to handler": reflect.TypeFor[*handlerA](),
	}
	for name, typ := range invalid {
		t.Run("rejects "+name, func(t *testing.T) {
			_, err := NewMarker(typ)

			assert.ErrorIs(t, err, ErrInvalidMarker)
			assert.Contains(t, err.Error(), typ.String())
		})
	}

	t.Run("rejects nil", func(t *testing.T) {
		_, err := NewMarker(nil)
		assert.ErrorIs(t, err, ErrInvalidMarker)
	})
}

func TestMarker_DeclaredMessageType(t *testing.T) {
	handler, err := NewMarker(handlerMkr)
	require.NoError(t, err)
	request, err := NewMarker(requestMkr)
	require.NoError(t, err)

	mt, ok := handler.declaredMessageType(handlerAT)
	assert.True(t, ok)
	assert.Equal(t, pingType, mt)

	_, ok = handler.declaredMessageType(answererT)
	assert.False(t, ok, "request handler does not fit the Handler marker")

	mt, ok = request.declaredMessageType(answererT)
	assert.True(t, ok)
	assert.Equal(t, queryType, mt)

	_, ok = handler.declaredMessageType(reflect.TypeFor[notAHandler]())
	assert.False(t, ok)
}
