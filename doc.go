// Package relay provides in-process message routing with send, publish and
// request/response dispatch over a table of typed handler bindings.
//
// Messages are pointers to ordinary structs. The routing key is the message's
// dynamic type, so *OrderPlaced and *PlaceOrder route independently without
// any string keys.
//
// # Quick Start
//
// Define messages and a handler:
//
//	type OrderPlaced struct {
//	    OrderID string
//	}
//
//	type Billing struct {
//	    invoices Invoices
//	}
//
//	func (b *Billing) OnOrderPlaced(ctx context.Context, e *OrderPlaced) error {
//	    return b.invoices.Open(ctx, e.OrderID)
//	}
//
// Register bindings, build the table and dispatch:
//
//	reg := relay.NewRegistry()
//	relay.Handle(reg, (*Billing).OnOrderPlaced)
//	relay.Handle(reg, (*Shipping).OnOrderPlaced)
//
//	table, err := reg.Table()
//	if err != nil {
//	    return err
//	}
//
//	d := relay.New(table, relay.Instances(billing, shipping))
//	err = d.Publish(ctx, &OrderPlaced{OrderID: "o-1"})
//
// # Design Philosophy
//
// The package separates concerns into three layers:
//
//   - Table: which bindings answer which message type, built once at startup
//   - Dispatcher: how a message reaches those bindings (send, publish, request)
//   - Handlers: plain methods with typed messages
//
// Handler instances are not owned by the package. A HandlerFactory resolves
// them per dispatch, which is where a dependency-injection container plugs in.
//
// # Building Tables
//
// A Registry compiles bindings from method expressions with no reflection on
// the dispatch path:
//
//	relay.Handle(reg, (*Billing).OnOrderPlaced)  // Send and Publish
//	relay.Reply(reg, (*Pricing).Quote)           // Request
//	relay.Subscribe[*OrderPlaced, *Audit](reg)   // via Handler[M]
//
// A Builder discovers bindings instead. It validates a marker contract, an
// interface with exactly one method taking a context and the message, asks a
// Discoverer for (handler type, message type) declarations and compiles the
// marker method of each handler type:
//
//	table, err := relay.NewBuilder().Build(
//	    relay.ScanValues(&Billing{}, &Shipping{}),
//	    reflect.TypeFor[relay.Handler[any]](),
//	)
//
// Declaration order is binding order, and binding order is the order in
// which Publish invokes handlers.
//
// # Tables
//
// Tables never return a nil route: unknown message types yield an empty
// route. Two policies decide what adding a second route for a known type
// does:
//
//   - Merge (default): its bindings are appended to the existing route
//   - Strict: Add fails with ErrDuplicateRoute
//
// Re-adding a route instance the table already holds is always a no-op.
//
// # Dispatch
//
// Send requires exactly one binding. Publish accepts any number, including
// none, and invokes them sequentially in route order. Request requires at
// most one; with none it returns a nil response and no error, so an
// unanswered request is not treated as a misconfiguration.
//
// Handler instances are resolved for every binding before any handler runs.
// A factory that yields nil fails the dispatch with a *NilHandlerError
// naming the handler and message types, and no handler is invoked.
//
// Handler errors are returned to the caller unchanged. Nothing is retried,
// queued or logged by the dispatcher.
//
// # Hooks
//
// Use functional options to observe every dispatch:
//
//	d := relay.New(table, factory,
//	    relay.WithBeforeRouting(func(ctx context.Context, env *relay.Envelope) context.Context {
//	        env.SetState("trace_id", trace.ID(ctx))
//	        return ctx
//	    }),
//	    relay.WithAfterRouted(func(ctx context.Context, env *relay.Envelope, err error) {
//	        metrics.Incr("relay.dispatch", "type:"+env.MessageType().String())
//	    }),
//	)
//
// The after-routed hook runs exactly once per dispatch, after all handlers,
// whether the dispatch succeeded or failed. Both hooks wrap the whole
// dispatch, not each handler.
//
// # Middleware
//
// Middleware wraps each binding invocation:
//
//	d.Use(relay.Logging(logger))
//	d.Use(func(next relay.Endpoint) relay.Endpoint {
//	    return func(ctx context.Context, env *relay.Envelope) (any, error) {
//	        if !allowed(ctx) {
//	            return nil, nil // ends the chain; the handler is skipped
//	        }
//	        return next(ctx, env)
//	    }
//	})
//
// The first middleware registered is the outermost. With middlewares M1 and
// M2 and two bindings, Publish runs M1, M2, handler 1, M2, M1 and then the
// same again for handler 2. The chain shares the dispatch's Envelope, so
// state set on the way in is visible to inner layers and state set by the
// handler is visible to outer layers on the way out.
//
// # Decoding
//
// A Decoder turns raw JSON into typed messages using gjson discriminators,
// for queues or files that carry several message types:
//
//	dec := relay.NewDecoder()
//	relay.DecodeAs[*OrderPlaced](dec, relay.TypeField("order.placed"), "payload")
//	err := dec.Route(ctx, d, raw)
//
// # Manifests
//
// An HCL manifest declares the routes an application expects and the state
// seeded into every envelope. Verify it against the built table at startup:
//
//	m, err := relay.LoadManifest("routes.hcl")
//	...
//	table, err := reg.Table(m.TableOptions()...)
//	...
//	if err := m.Verify(table); err != nil {
//	    return err
//	}
//
// # Thread Safety
//
// Table lookups are lock-free and safe alongside Add. Dispatcher is safe for
// concurrent use. Registry, Builder and Decoder registration are not; finish
// them before dispatching.
package relay
