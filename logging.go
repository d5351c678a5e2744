package relay

import (
	"context"
	"log/slog"
	"time"
)

// Logging returns a middleware that records every binding invocation on
// logger: Debug on success, Error on failure. The dispatcher itself never
// logs; register this middleware to get per-handler records.
//
//	d.Use(relay.Logging(slog.Default()))
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, env *Envelope) (any, error) {
			start := time.Now()
			res, err := next(ctx, env)

			attrs := []slog.Attr{
				slog.String("message_type", env.MessageType().String()),
				slog.Duration("duration", time.Since(start)),
			}
			if b, ok := BindingFromContext(ctx); ok {
				attrs = append(attrs, slog.String("handler_type", b.HandlerType().String()))
			}

			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
				logger.LogAttrs(ctx, slog.LevelError, "Handler failed.", attrs...)
				return res, err
			}
			logger.LogAttrs(ctx, slog.LevelDebug, "Handler completed.", attrs...)
			return res, nil
		}
	}
}
