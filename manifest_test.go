package relay

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `
table {
  policy = "strict"
}

route "*relay.ping" {
  pattern      = "publish"
  min_handlers = 2
}

route "*relay.pong" {
  pattern = "send"
}

route "*relay.query" {
  pattern = "request"
}

state = {
  origin  = "billing"
  retries = 3
  ratio   = 0.5
  dry_run = false
}
`

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(testManifest), "relay.hcl")
	require.NoError(t, err)

	assert.Equal(t, Strict, m.Policy)
	assert.Equal(t, []RouteSpec{
		{MessageType: "*relay.ping", Pattern: PatternPublish, MinHandlers: 2},
		{MessageType: "*relay.pong", Pattern: PatternSend},
		{MessageType: "*relay.query", Pattern: PatternRequest},
	}, m.Routes)
	assert.Equal(t, map[string]any{
		"origin":  "billing",
		"retries": int64(3),
		"ratio":   0.5,
		"dry_run": false,
	}, m.State)
}

func TestParseManifest_Defaults(t *testing.T) {
	m, err := ParseManifest([]byte(`route "*relay.ping" { pattern = "publish" }`), "min.hcl")
	require.NoError(t, err)

	assert.Equal(t, Merge, m.Policy)
	assert.Nil(t, m.State)
	require.Len(t, m.Routes, 1)
	assert.Zero(t, m.Routes[0].MinHandlers)
}

func TestParseManifest_Errors(t *testing.T) {
	tests := map[string]struct {
		src     string
		wantErr string
	}{
		"syntax": {
			src:     `route "*relay.ping" {`,
			wantErr: "failed to parse HCL file",
		},
		"unknown block": {
			src:     `queue "orders" {}`,
			wantErr: "failed to decode HCL file",
		},
		"missing pattern": {
			src:     `route "*relay.ping" {}`,
			wantErr: "failed to decode HCL file",
		},
		"unknown policy": {
			src:     `table { policy = "loose" }`,
			wantErr: `unknown table policy`,
		},
		"unknown pattern": {
			src:     `route "*relay.ping" { pattern = "broadcast" }`,
			wantErr: `unknown pattern "broadcast"`,
		},
		"duplicate route": {
			src: `
route "*relay.ping" { pattern = "publish" }
route "*relay.ping" { pattern = "send" }
`,
			wantErr: "declared twice",
		},
		"min_handlers on send": {
			src:     `route "*relay.pong" {` + "\n" + `pattern = "send"` + "\n" + `min_handlers = 1` + "\n" + `}`,
			wantErr: "min_handlers only applies to publish",
		},
		"negative min_handlers": {
			src:     `route "*relay.ping" {` + "\n" + `pattern = "publish"` + "\n" + `min_handlers = -1` + "\n" + `}`,
			wantErr: "must not be negative",
		},
		"state not an object": {
			src:     `state = "flat"`,
			wantErr: "must be an object",
		},
		"nested state": {
			src:     `state = { limits = { max = 1 } }`,
			wantErr: `key "limits"`,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.src), "bad.hcl")

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.hcl")
	require.NoError(t, os.WriteFile(path, []byte(testManifest), 0o600))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Len(t, m.Routes, 3)

	_, err = LoadManifest(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.Error(t, err)
}

func TestManifest_Verify(t *testing.T) {
	m, err := ParseManifest([]byte(testManifest), "relay.hcl")
	require.NoError(t, err)

	t.Run("satisfied", func(t *testing.T) {
		reg := NewRegistry()
		Handle(reg, (*handlerA).Handle)
		Handle(reg, (*handlerB).Handle)
		Handle(reg, (*handlerA).OnPong)
		table, err := reg.Table(m.TableOptions()...)
		require.NoError(t, err)

		assert.NoError(t, m.Verify(table))
		assert.Equal(t, Strict, table.Policy())
	})

	t.Run("unanswered request is allowed", func(t *testing.T) {
		reg := NewRegistry()
		Handle(reg, (*handlerA).Handle)
		Handle(reg, (*handlerB).Handle)
		Handle(reg, (*handlerA).OnPong)
		Reply(reg, (*answerer).Handle)
		table, err := reg.Table()
		require.NoError(t, err)

		assert.NoError(t, m.Verify(table))
	})

	t.Run("violations are reported together", func(t *testing.T) {
		reg := NewRegistry()
		Handle(reg, (*handlerA).Handle)
		table, err := reg.Table()
		require.NoError(t, err)

		err = m.Verify(table)

		require.ErrorIs(t, err, ErrManifest)
		assert.Contains(t, err.Error(), "route *relay.ping: publish requires at least 2 handlers, found 1")
		assert.Contains(t, err.Error(), "route *relay.pong: send requires exactly one handler, found 0")
	})

	t.Run("ambiguous request", func(t *testing.T) {
		reg := NewRegistry()
		Reply(reg, (*answerer).Handle)
		Reply(reg, func(h *handlerA, ctx context.Context, q *query) (*answer, error) { return nil, nil })
		table, err := reg.Table()
		require.NoError(t, err)

		err = (&Manifest{Routes: []RouteSpec{{MessageType: "*relay.query", Pattern: PatternRequest}}}).Verify(table)

		assert.ErrorIs(t, err, ErrManifest)
		assert.Contains(t, err.Error(), "at most one handler, found 2")
	})
}

func TestManifest_VerifyTypeNames(t *testing.T) {
	type ping struct{ Local bool }

	reg := NewRegistry()
	Handle(reg, (*handlerA).Handle)
	Handle(reg, (*handlerB).Handle)
	Handle(reg, func(h *handlerA, ctx context.Context, m *ping) error { return nil })
	Handle(reg, (*handlerA).OnPong)
	table, err := reg.Table()
	require.NoError(t, err)
	require.Equal(t, "*relay.ping", reflect.TypeFor[*ping]().String())

	t.Run("shared short name is ambiguous", func(t *testing.T) {
		m := &Manifest{Routes: []RouteSpec{{MessageType: "*relay.ping", Pattern: PatternPublish, MinHandlers: 2}}}

		err := m.Verify(table)

		require.ErrorIs(t, err, ErrManifest)
		assert.Contains(t, err.Error(), "route *relay.ping: name matches 2 message types")
	})

	t.Run("import path qualifies a name", func(t *testing.T) {
		m := &Manifest{Routes: []RouteSpec{
			{MessageType: "*github.com/bjaus/relay.pong", Pattern: PatternSend},
			{MessageType: "*relay.pong", Pattern: PatternSend},
		}}

		assert.NoError(t, m.Verify(table))
	})
}

func TestManifest_SeedState(t *testing.T) {
	m, err := ParseManifest([]byte(testManifest), "relay.hcl")
	require.NoError(t, err)

	var origin string
	reg := NewRegistry()
	Handle(reg, func(h *handlerA, ctx context.Context, p *pong) error {
		env, _ := EnvelopeFromContext(ctx)
		var serr error
		origin, serr = StateAs[string](env, "origin")
		return serr
	})
	table, err := reg.Table()
	require.NoError(t, err)

	d := New(table, Instances(&handlerA{}), WithBeforeRouting(m.SeedState()))

	require.NoError(t, d.Send(context.Background(), &pong{}))
	assert.Equal(t, "billing", origin)
}

func TestPattern(t *testing.T) {
	for _, p := range []Pattern{PatternPublish, PatternSend, PatternRequest} {
		got, err := ParsePattern(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	assert.Equal(t, "Pattern(9)", Pattern(9).String())
}
