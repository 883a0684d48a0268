package middleware

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/scry-live/internal/api/shared"
	"github.com/phrazzld/scry-live/internal/platform/logger"
)

// Trace assigns a trace ID to the request and stores a logger carrying it
// in the request context. It should run before every other middleware
// that logs.
func Trace(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context())
			log := base.With(slog.String("trace_id", shared.GetTraceID(ctx)))
			ctx = logger.WithLogger(ctx, log)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
