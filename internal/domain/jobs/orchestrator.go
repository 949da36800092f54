// Package jobs orchestrates the job service operations over its peers.
//
// Each operation consults the caches, calls peers through the retrying
// circuit-breaker client, records spans and returns plain data or a
// *fault.Error. Cache keys and what each operation invalidates:
//
//	job:<id>             entity cache    set by getJob/createJob/updateJob
//	jobs:query:<json>    query cache     set by searchJobs
//	matches:<jobId>      match cache     set by findJobMatches
//
//	createJob    jobs:query:*
//	updateJob    job:<id> (then re-set), jobs:query:*, matches:<id>
//	deleteJob    job:<id>, jobs:query:*, matches:<id>
//	applyForJob  matches:<jobId>
//
// Cached values are copied on the way in and out. A ranking that dropped
// candidates because the user service was unavailable is not cached.
//
// Analytics events, notifications and search indexing are fire-and-forget:
// they run after the operation returns, on a context detached from the
// request, and never fail it.
package jobs

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/TalentSphere/backend/internal/infrastructure/cache"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/peer"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/shared/fault"
)

// Operation names, used for spans, metrics and error ops.
const (
	opCreateJob      = "createJob"
	opSearchJobs     = "searchJobs"
	opGetJob         = "getJob"
	opUpdateJob      = "updateJob"
	opDeleteJob      = "deleteJob"
	opFindJobMatches = "findJobMatches"
	opApplyForJob    = "applyForJob"
)

const (
	jobKeyPrefix    = "job:"
	queryKeyPrefix  = "jobs:query:"
	matchKeyPrefix  = "matches:"
	defaultLimit    = 50
	defaultMatchTTL = time.Hour
)

func jobKey(id string) string   { return jobKeyPrefix + id }
func matchKey(id string) string { return matchKeyPrefix + id }

// ErrClosed is returned by Close when called twice.
var ErrClosed = errors.New("orchestrator closed")

// Caches are the three cache families.
type Caches struct {
	Jobs    *cache.Store[*Job]
	Queries *cache.Store[*SearchResult]
	Matches *cache.Store[*Matches]
}

// CacheTTLs configures NewCaches.
type CacheTTLs struct {
	Entity time.Duration
	Query  time.Duration
	Match  time.Duration
}

// NewCaches creates the cache families; zero TTLs fall back to five minutes
// for entities and queries and one hour for matches.
func NewCaches(ttl CacheTTLs, opts ...cache.Option) Caches {
	if ttl.Match <= 0 {
		ttl.Match = defaultMatchTTL
	}
	return Caches{
		Jobs:    cache.New[*Job]("job", ttl.Entity, opts...),
		Queries: cache.New[*SearchResult]("query", ttl.Query, opts...),
		Matches: cache.New[*Matches]("matches", ttl.Match, opts...),
	}
}

// Start runs the cache janitors until ctx is done.
func (c Caches) Start(ctx context.Context, every time.Duration) {
	c.Jobs.Start(ctx, every)
	c.Queries.Start(ctx, every)
	c.Matches.Start(ctx, every)
}

// Options tunes the orchestrator.
type Options struct {
	// CandidateLimit is the most candidates requested per match run.
	CandidateLimit int
	// EnrichConcurrency bounds concurrent profile fetches; 0 means
	// CandidateLimit.
	EnrichConcurrency int
	// Now is the clock used for timestamps and scoring.
	Now func() time.Time
}

// Orchestrator runs the job service operations.
type Orchestrator struct {
	peers    PeerClient
	retrier  *resilience.Retrier
	caches   Caches
	recorder *tracing.Recorder
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	opts     Options

	mu      sync.RWMutex // guards closed against background Add
	closed  bool
	pending sync.WaitGroup
}

// NewOrchestrator wires an orchestrator. recorder may be nil.
func NewOrchestrator(peers PeerClient, retrier *resilience.Retrier, caches Caches, recorder *tracing.Recorder, logger *zap.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CandidateLimit <= 0 {
		opts.CandidateLimit = defaultLimit
	}
	if opts.EnrichConcurrency <= 0 {
		opts.EnrichConcurrency = opts.CandidateLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Orchestrator{
		peers:    peers,
		retrier:  retrier,
		caches:   caches,
		recorder: recorder,
		logger:   logger,
		opts:     opts,
	}
}

// WithMetrics adds metrics tracking to the orchestrator
func (o *Orchestrator) WithMetrics(metrics *monitoring.Metrics) *Orchestrator {
	o.metrics = metrics
	return o
}

// Caches exposes the cache families, for the janitor and diagnostics.
func (o *Orchestrator) Caches() Caches {
	return o.caches
}

// Close stops accepting background work and waits for pending side effects
// until ctx is done.
func (o *Orchestrator) Close(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	o.closed = true
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// operation is the bookkeeping shared by every public method.
type operation struct {
	name  string
	span  *tracing.Span
	timer *monitoring.Timer
}

// begin opens the operation span. Pair it with a deferred o.end.
func (o *Orchestrator) begin(ctx context.Context, name string) (context.Context, *operation) {
	span, ctx := o.recorder.StartSpan(ctx, name)
	return ctx, &operation{
		name:  name,
		span:  span,
		timer: monitoring.NewTimer(o.metrics, name),
	}
}

// end tags the error, if any, and finishes the span exactly once.
func (o *Orchestrator) end(op *operation, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	if err != nil {
		o.recorder.Tag(op.span, "error.kind", fault.KindOf(err).String())
		o.recorder.LogError(op.span, err)
	}
	o.recorder.Finish(op.span)
	op.timer.StopErr(err)
}

// call sends req through retry and the circuit breaker.
func (o *Orchestrator) call(ctx context.Context, req peer.Request) resilience.Result[*peer.Response] {
	return resilience.CallWithRetry(ctx, o.retrier, req.Service, func(ctx context.Context) (*peer.Response, error) {
		return o.peers.Do(ctx, req)
	})
}

// log returns the logger annotated with ctx's trace ids.
func (o *Orchestrator) log(ctx context.Context) *zap.Logger {
	return logging.WithTrace(ctx, o.logger)
}

// background runs reqs after the request finishes. Failures are logged and
// counted, never returned.
func (o *Orchestrator) background(ctx context.Context, op string, reqs ...peer.Request) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		o.log(ctx).Debug("dropping side effects after close", zap.String("operation", op))
		return
	}

	detached := tracing.Detach(ctx)
	o.pending.Add(1)
	go func() {
		defer o.pending.Done()

		var g errgroup.Group
		for _, req := range reqs {
			g.Go(func() error {
				o.sideEffect(detached, op, req)
				return nil
			})
		}
		_ = g.Wait()
	}()
}

func (o *Orchestrator) sideEffect(ctx context.Context, op string, req peer.Request) {
	span, ctx := o.recorder.StartSpan(ctx, op+".sideEffect")
	o.recorder.Tag(span, "peer.service", req.Service)
	defer o.recorder.Finish(span)

	res := o.call(ctx, req)
	var err error
	switch {
	case !res.OK():
		err = res.Err
	case !res.Payload.IsSuccess():
		err = rejected(op, req.Service, res.Payload)
	}
	if err == nil {
		return
	}

	o.recorder.LogError(span, err)
	o.metrics.IncSideEffectFailure(req.Service)
	o.log(ctx).Warn("side effect failed",
		zap.String("operation", op),
		zap.String("service", req.Service),
		zap.String("path", req.Path),
		zap.String("status", res.Status.String()),
		zap.Error(err),
	)
}

// resolveJob returns the job from the entity cache or the job-store.
func (o *Orchestrator) resolveJob(ctx context.Context, op, id string) (*Job, error) {
	if job, ok := o.caches.Jobs.Get(jobKey(id)); ok {
		return job.clone(), nil
	}

	res := o.call(ctx, getJobRequest(id))
	if !res.OK() {
		return nil, unavailable(op, "job unavailable", res)
	}
	if res.Payload.Status == http.StatusNotFound {
		return nil, &fault.Error{Kind: fault.KindNotFound, Op: op, Service: res.Service, Msg: "job " + id + " not found"}
	}
	if !res.Payload.IsSuccess() {
		return nil, rejected(op, res.Service, res.Payload)
	}

	var job Job
	if err := decode(op, res.Service, res.Payload, &job); err != nil {
		return nil, err
	}
	if job.ID == "" {
		job.ID = id
	}

	o.caches.Jobs.SetDefault(jobKey(id), job.clone())
	return &job, nil
}

func (o *Orchestrator) traceID(ctx context.Context) string {
	return string(tracing.GetTraceID(ctx))
}
