package tracing

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// LogSink writes one structured log line per finished span.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Export logs the span.
func (s *LogSink) Export(rec Record) {
	fields := []zap.Field{
		zap.String("trace_id", string(rec.TraceID)),
		zap.String("span_id", string(rec.SpanID)),
		zap.String("parent_id", string(rec.ParentID)),
		zap.String("operation", rec.Name),
		zap.Duration("duration", rec.Duration),
		zap.String("service", rec.Service),
	}
	if len(rec.Tags) > 0 {
		fields = append(fields, zap.Any("tags", rec.Tags))
	}

	if rec.Error != "" {
		fields = append(fields, zap.String("error", rec.Error))
		s.logger.Error("span completed with error", fields...)
		return
	}
	s.logger.Debug("span completed", fields...)
}

// RingSink keeps the most recent finished spans in memory.
type RingSink struct {
	mu      sync.RWMutex
	entries []Record
	size    int
	head    int
	count   int
}

// NewRingSink creates a ring that holds up to size spans.
func NewRingSink(size int) *RingSink {
	if size <= 0 {
		size = 256
	}
	return &RingSink{
		entries: make([]Record, size),
		size:    size,
	}
}

// Export appends rec, overwriting the oldest entry when full.
func (s *RingSink) Export(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[s.head] = rec
	s.head = (s.head + 1) % s.size
	if s.count < s.size {
		s.count++
	}
}

// Last returns the last n spans in the order they finished.
func (s *RingSink) Last(n int) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n > s.count {
		n = s.count
	}
	if n <= 0 {
		return nil
	}

	out := make([]Record, n)
	start := (s.head - n + s.size) % s.size
	for i := range n {
		out[i] = s.entries[(start+i)%s.size]
	}
	return out
}

// Trace returns the buffered spans belonging to traceID.
func (s *RingSink) Trace(traceID TraceID) []Record {
	var out []Record
	for _, rec := range s.Last(s.size) {
		if rec.TraceID == traceID {
			out = append(out, rec)
		}
	}
	return out
}

// OTelSink re-emits finished spans through an OpenTelemetry tracer provider,
// preserving their timestamps. Our span ids travel as attributes.
type OTelSink struct {
	tracer trace.Tracer
}

// NewOTelSink creates a sink on tp, or on the global provider when tp is nil.
func NewOTelSink(tp trace.TracerProvider) *OTelSink {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &OTelSink{tracer: tp.Tracer("github.com/GriffinCanCode/TalentSphere/backend/tracing")}
}

// Export starts and ends an OpenTelemetry span mirroring rec.
func (s *OTelSink) Export(rec Record) {
	attrs := make([]attribute.KeyValue, 0, len(rec.Tags)+4)
	attrs = append(attrs,
		attribute.String("talentsphere.trace_id", string(rec.TraceID)),
		attribute.String("talentsphere.span_id", string(rec.SpanID)),
		attribute.String("talentsphere.parent_id", string(rec.ParentID)),
		attribute.String("service.name", rec.Service),
	)
	for k, v := range rec.Tags {
		attrs = append(attrs, attribute.String(k, v))
	}

	_, span := s.tracer.Start(context.Background(), rec.Name,
		trace.WithTimestamp(rec.StartedAt),
		trace.WithAttributes(attrs...),
	)
	if rec.Error != "" {
		span.RecordError(errors.New(rec.Error))
		span.SetStatus(codes.Error, rec.Error)
	}
	span.End(trace.WithTimestamp(rec.FinishedAt))
}
