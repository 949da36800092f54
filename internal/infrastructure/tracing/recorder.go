package tracing

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/TalentSphere/backend/internal/shared/id"
)

// Sink receives finished spans.
type Sink interface {
	Export(rec Record)
}

// Options configures a Recorder. MaxLeaked bounds how many leaked spans stay
// tracked; the oldest are forgotten first.
type Options struct {
	Service    string
	Enabled    bool
	BufferSize int
	MaxLeaked  int
	Sinks      []Sink
	Now        func() time.Time
}

// Recorder creates and finishes spans and hands finished spans to sinks
// from a single collector goroutine. A nil or disabled Recorder records
// nothing and never fails.
type Recorder struct {
	service string
	logger  *zap.Logger
	enabled bool
	sinks   []Sink
	nowFn   func() time.Time

	mu        sync.Mutex
	open      map[SpanID]*Span
	leaked    map[SpanID]*Span
	leakOrder []SpanID
	maxLeaked int
	closed    bool

	spans chan *Span
	done  chan struct{}
}

// NewRecorder creates a new recorder instance
func NewRecorder(logger *zap.Logger, opts Options) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1000
	}
	if opts.MaxLeaked <= 0 {
		opts.MaxLeaked = 256
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	r := &Recorder{
		service:   opts.Service,
		logger:    logger,
		enabled:   opts.Enabled,
		sinks:     opts.Sinks,
		nowFn:     opts.Now,
		maxLeaked: opts.MaxLeaked,
		open:      make(map[SpanID]*Span),
		leaked:    make(map[SpanID]*Span),
		spans:     make(chan *Span, opts.BufferSize),
		done:      make(chan struct{}),
	}

	if r.enabled {
		go r.collectSpans()
	} else {
		close(r.done)
	}

	return r
}

// Enabled reports whether spans are being recorded.
func (r *Recorder) Enabled() bool {
	return r != nil && r.enabled
}

// StartSpan creates a span as a child of the span on ctx. Without a parent
// span the new span is a root whose parent id is the request's trace id.
func (r *Recorder) StartSpan(ctx context.Context, name string) (*Span, context.Context) {
	if !r.Enabled() {
		return nil, ctx
	}

	tc, ok := FromContext(ctx)
	if !ok {
		tc = FromHeaders("", "")
	}

	parentID := SpanID(tc.TraceID)
	if parent := SpanFromContext(ctx); parent != nil {
		parentID = parent.SpanID
	}

	span := &Span{
		TraceID:   tc.TraceID,
		SpanID:    SpanID(id.NewSpanID()),
		ParentID:  parentID,
		Name:      name,
		Service:   r.service,
		StartedAt: r.nowFn(),
		detached:  isDetached(ctx),
		tags:      make(map[string]string),
	}

	r.mu.Lock()
	r.open[span.SpanID] = span
	r.mu.Unlock()

	tc.SpanID = span.SpanID
	tc.ParentSpanID = parentID
	newCtx := WithTraceContext(ctx, tc)
	newCtx = context.WithValue(newCtx, spanKey, span)

	return span, newCtx
}

// Tag adds a tag to span.
func (r *Recorder) Tag(span *Span, key, value string) {
	span.SetTag(key, value)
}

// LogError marks span as failed. Call it before Finish.
func (r *Recorder) LogError(span *Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.setError(err)
}

// Finish marks the span as complete and submits it. Finishing a span twice
// is a no-op.
func (r *Recorder) Finish(span *Span) {
	if span == nil || r == nil {
		return
	}
	if !span.finish(r.nowFn()) {
		r.logger.Warn("span finished twice",
			zap.String("trace_id", string(span.TraceID)),
			zap.String("span_id", string(span.SpanID)),
			zap.String("operation", span.Name),
		)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.open, span.SpanID)
	delete(r.leaked, span.SpanID)
	if r.closed {
		return
	}

	select {
	case r.spans <- span:
	default:
		r.logger.Warn("span buffer full, dropping span",
			zap.String("trace_id", string(span.TraceID)),
			zap.String("span_id", string(span.SpanID)),
		)
	}
}

// FlushTrace reports spans of traceID that are still open once the request
// is done. Detached spans are exempt. Leaked spans move to a bounded set that
// Leaks still sees; a late Finish exports them as usual.
func (r *Recorder) FlushTrace(traceID TraceID) []*Span {
	if !r.Enabled() {
		return nil
	}

	r.mu.Lock()
	var leaked []*Span
	for spanID, span := range r.open {
		if span.TraceID == traceID && !span.detached {
			leaked = append(leaked, span)
			delete(r.open, spanID)
		}
	}
	sortSpans(leaked)
	for _, span := range leaked {
		r.trackLeak(span)
	}
	r.mu.Unlock()

	for _, span := range leaked {
		r.logger.Warn("span leaked: not finished when request completed",
			zap.String("trace_id", string(span.TraceID)),
			zap.String("span_id", string(span.SpanID)),
			zap.String("operation", span.Name),
		)
	}
	return leaked
}

// trackLeak remembers span, forgetting the oldest leak past maxLeaked.
// Callers hold r.mu.
func (r *Recorder) trackLeak(span *Span) {
	r.leaked[span.SpanID] = span
	r.leakOrder = append(r.leakOrder, span.SpanID)

	for len(r.leaked) > r.maxLeaked && len(r.leakOrder) > 0 {
		oldest := r.leakOrder[0]
		r.leakOrder = r.leakOrder[1:]
		delete(r.leaked, oldest)
	}

	// Late finishes leave stale ids behind.
	if len(r.leakOrder) > 2*r.maxLeaked {
		live := r.leakOrder[:0]
		for _, spanID := range r.leakOrder {
			if _, ok := r.leaked[spanID]; ok {
				live = append(live, spanID)
			}
		}
		r.leakOrder = live
	}
}

// Leaks returns unfinished spans started more than olderThan ago, including
// spans already reported by FlushTrace.
func (r *Recorder) Leaks(olderThan time.Duration) []*Span {
	if !r.Enabled() {
		return nil
	}

	cutoff := r.nowFn().Add(-olderThan)

	r.mu.Lock()
	var leaked []*Span
	for _, set := range []map[SpanID]*Span{r.open, r.leaked} {
		for _, span := range set {
			if span.StartedAt.Before(cutoff) {
				leaked = append(leaked, span)
			}
		}
	}
	r.mu.Unlock()

	sortSpans(leaked)
	return leaked
}

// OpenCount returns the number of tracked spans started but not finished.
func (r *Recorder) OpenCount() int {
	if !r.Enabled() {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.open) + len(r.leaked)
}

// Close stops accepting spans and waits for queued spans to reach the sinks.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		if r.enabled {
			close(r.spans)
		}
	}
	r.mu.Unlock()
	<-r.done
}

// collectSpans processes completed spans
func (r *Recorder) collectSpans() {
	defer close(r.done)
	for span := range r.spans {
		rec := span.record()
		for _, sink := range r.sinks {
			sink.Export(rec)
		}
	}
}

func sortSpans(spans []*Span) {
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].StartedAt.Equal(spans[j].StartedAt) {
			return spans[i].SpanID < spans[j].SpanID
		}
		return spans[i].StartedAt.Before(spans[j].StartedAt)
	})
}
