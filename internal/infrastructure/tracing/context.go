package tracing

import (
	"context"

	"github.com/GriffinCanCode/TalentSphere/backend/internal/shared/id"
)

// TraceID represents a unique trace identifier
type TraceID string

// SpanID represents a unique span identifier
type SpanID string

// Propagation headers. Names are lower-case; net/http canonicalizes them.
const (
	HeaderRequestID     = "x-request-id"
	HeaderCorrelationID = "x-correlation-id"
	HeaderParentSpanID  = "x-parent-span-id"
)

// TraceContext correlates one logical request across services.
// TraceID never changes for the lifetime of a request; SpanID changes per hop.
type TraceContext struct {
	TraceID      TraceID
	RequestID    string
	SpanID       SpanID
	ParentSpanID SpanID
}

// FromHeaders seeds a TraceContext from inbound header values. The
// correlation id wins over the request id as the trace id; a fresh id is
// generated for whichever is absent.
func FromHeaders(requestID, correlationID string) TraceContext {
	if requestID == "" {
		requestID = id.NewRequestID()
	}
	traceID := correlationID
	if traceID == "" {
		traceID = requestID
	}
	return TraceContext{
		TraceID:   TraceID(traceID),
		RequestID: requestID,
	}
}

// Context keys for trace propagation
type contextKey string

const (
	traceContextKey contextKey = "trace_context"
	spanKey         contextKey = "span"
	detachedKey     contextKey = "detached"
)

// WithTraceContext returns a context carrying tc.
func WithTraceContext(ctx context.Context, tc TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey, tc)
}

// FromContext returns the TraceContext stored on ctx.
func FromContext(ctx context.Context) (TraceContext, bool) {
	tc, ok := ctx.Value(traceContextKey).(TraceContext)
	return tc, ok
}

// GetTraceID retrieves the trace ID from context
func GetTraceID(ctx context.Context) TraceID {
	tc, _ := FromContext(ctx)
	return tc.TraceID
}

// SpanFromContext returns the active span, or nil.
func SpanFromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(spanKey).(*Span)
	return span
}

// Detach returns a context for work that outlives the request: it keeps the
// trace identity but drops cancellation, and spans started from it are not
// reported as leaks when the request finishes.
func Detach(ctx context.Context) context.Context {
	return context.WithValue(context.WithoutCancel(ctx), detachedKey, true)
}

func isDetached(ctx context.Context) bool {
	detached, _ := ctx.Value(detachedKey).(bool)
	return detached
}

// OutboundHeaders returns the headers to attach to a peer call made from ctx.
func OutboundHeaders(ctx context.Context) map[string]string {
	tc, ok := FromContext(ctx)
	if !ok {
		return map[string]string{}
	}

	headers := map[string]string{
		HeaderRequestID:     tc.RequestID,
		HeaderCorrelationID: string(tc.TraceID),
	}
	if tc.SpanID != "" {
		headers[HeaderParentSpanID] = string(tc.SpanID)
	}
	return headers
}
