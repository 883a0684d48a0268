package shared

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// ContextKey namespaces values this package stores on a context.
type ContextKey string

// TraceIDKey is the context key for the request's trace ID.
const TraceIDKey ContextKey = "traceID"

// SetTraceID returns ctx carrying a fresh trace ID. Trace IDs appear in
// logs and in error responses so a caller's report can be matched to the
// server side.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, NewTraceID())
}

// GetTraceID returns the trace ID stored by SetTraceID, or "".
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// NewTraceID returns 32 lowercase hex characters.
func NewTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
