package tooldesk

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Middleware wraps a tool with cross-cutting behavior (logging, timeout). It receives the spec
// as registered and returns the spec to dispatch; usually only Handler changes.
type Middleware func(ToolSpec) ToolSpec

// WithLogging returns a middleware that logs start, end and duration of every handler call.
func WithLogging(logger zerolog.Logger) Middleware {
	return func(spec ToolSpec) ToolSpec {
		next := spec.Handler
		name := spec.Name
		spec.Handler = func(ctx context.Context, args Args) string {
			logger.Info().Str("tool", name).Msg("tool start")
			start := time.Now()
			res := next(ctx, args)
			logger.Info().
				Str("tool", name).
				Dur("duration", time.Since(start)).
				Int("result_bytes", len(res)).
				Msg("tool end")
			return res
		}
		return spec
	}
}

// WithTimeoutMiddleware returns a middleware that sets the execution timeout of every tool it wraps,
// replacing both the registry default and per-tool WithTimeout values. Named with "Middleware" suffix
// to avoid collision with ToolOption WithTimeout. The registry enforces the deadline and reports
// expiry as ErrTimeout.
func WithTimeoutMiddleware(d time.Duration) Middleware {
	return func(spec ToolSpec) ToolSpec {
		if d > 0 {
			spec.Timeout = d
		}
		return spec
	}
}

// Use stores the given middlewares and reapplies them from scratch to all registered tools (onion order:
// first middleware is outermost). Tools registered after Use will also get these middlewares applied.
// Calling Use multiple times replaces the middleware chain and rewraps from raw tools, avoiding double-wrapping.
func (r *Registry) Use(middlewares ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = middlewares
	for _, e := range r.entries {
		e.spec = applyMiddlewares(e.raw, middlewares)
	}
}

func applyMiddlewares(spec ToolSpec, middlewares []Middleware) ToolSpec {
	for i := len(middlewares) - 1; i >= 0; i-- {
		spec = middlewares[i](spec)
	}
	return spec
}
