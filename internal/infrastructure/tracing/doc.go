/*
Package tracing propagates trace context between services and records spans.

# Overview

Every inbound request carries a TraceContext seeded from the x-request-id and
x-correlation-id headers (fresh ids are generated when they are absent). The
context travels on context.Context and is injected into every outbound peer
call. Spans form a tree: a child's parent id is its creator's span id and a
root span's parent id is the trace id.

# Usage

	rec := tracing.NewRecorder(logger, tracing.Options{
		Service: "job-service",
		Enabled: true,
		Sinks:   []tracing.Sink{tracing.NewLogSink(logger)},
	})

	span, ctx := rec.StartSpan(ctx, "findJobMatches")
	defer rec.Finish(span)

	rec.Tag(span, "job_id", jobID)
	if err != nil {
		rec.LogError(span, err)
	}

# Guarantees

  - Finish is idempotent; a second call only logs a warning.
  - With tracing disabled StartSpan returns a nil span and every call on it
    is a no-op.
  - FlushTrace reports spans a request left open, once. Work started from a
    Detach'ed context is exempt. At most MaxLeaked reported spans stay
    tracked, oldest forgotten first.
  - Sinks run on one collector goroutine fed by a buffered channel; a full
    buffer drops spans rather than blocking callers.
*/
package tracing
