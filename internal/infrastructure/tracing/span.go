package tracing

import (
	"sync"
	"time"
)

// Span represents a single operation in a trace. A nil *Span is valid and
// ignores every call; the recorder hands out nil spans when tracing is off.
type Span struct {
	TraceID   TraceID
	SpanID    SpanID
	ParentID  SpanID
	Name      string
	Service   string
	StartedAt time.Time

	detached bool

	mu         sync.Mutex
	finishedAt time.Time
	finished   bool
	tags       map[string]string
	err        error
}

// Record is an immutable snapshot of a finished span, handed to sinks.
type Record struct {
	TraceID    TraceID           `json:"trace_id"`
	SpanID     SpanID            `json:"span_id"`
	ParentID   SpanID            `json:"parent_id"`
	Name       string            `json:"name"`
	Service    string            `json:"service"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Duration   time.Duration     `json:"duration"`
	Tags       map[string]string `json:"tags,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// SetTag adds a tag to the span
func (s *Span) SetTag(key, value string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags[key] = value
}

// Tags returns a copy of the span's tags.
func (s *Span) Tags() map[string]string {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.tags))
	for k, v := range s.tags {
		out[k] = v
	}
	return out
}

// Err returns the error recorded on the span.
func (s *Span) Err() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Failed reports whether an error was recorded.
func (s *Span) Failed() bool {
	return s.Err() != nil
}

// Finished reports whether the span has been finished.
func (s *Span) Finished() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// FinishedAt returns the finish time, zero while the span is open.
func (s *Span) FinishedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishedAt
}

func (s *Span) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	s.tags["error"] = "true"
}

// finish stamps the end time once. It reports false if already finished.
func (s *Span) finish(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return false
	}
	if now.Before(s.StartedAt) {
		now = s.StartedAt
	}
	s.finished = true
	s.finishedAt = now
	return true
}

func (s *Span) record() Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := Record{
		TraceID:    s.TraceID,
		SpanID:     s.SpanID,
		ParentID:   s.ParentID,
		Name:       s.Name,
		Service:    s.Service,
		StartedAt:  s.StartedAt,
		FinishedAt: s.finishedAt,
		Duration:   s.finishedAt.Sub(s.StartedAt),
		Tags:       make(map[string]string, len(s.tags)),
	}
	for k, v := range s.tags {
		rec.Tags[k] = v
	}
	if s.err != nil {
		rec.Error = s.err.Error()
	}
	return rec
}
