package resilience

import (
	"context"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/TalentSphere/backend/internal/infrastructure/tracing"
)

// RetryPolicy bounds retries of a peer call. MaxRetries is the total number
// of attempts; attempt k (k >= 2) waits BaseDelay * 2^(k-2) first.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultRetryPolicy returns 3 attempts with a 1s base delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
	}
}

func (p RetryPolicy) normalize() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxRetries <= 0 {
		p.MaxRetries = def.MaxRetries
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	return p
}

// backOff returns a jitter-free exponential schedule starting at BaseDelay.
func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.BaseDelay
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxInterval = p.BaseDelay << uint(p.MaxRetries)
	bo.Reset()
	return bo
}

// Delay returns the wait before attempt (attempt >= 2); earlier attempts
// do not wait.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 2 {
		return 0
	}
	bo := p.normalize().backOff()
	var d time.Duration
	for range attempt - 1 {
		d = bo.NextBackOff()
	}
	return d
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retrier adds bounded exponential backoff on top of a Client. Every attempt
// is recorded as its own span under the caller's span.
type Retrier struct {
	client   *Client
	recorder *tracing.Recorder
	logger   *zap.Logger
	policy   RetryPolicy
	sleep    Sleeper
}

// RetrierOption configures a Retrier.
type RetrierOption func(*Retrier)

// WithSleeper replaces the backoff wait, for tests.
func WithSleeper(s Sleeper) RetrierOption {
	return func(r *Retrier) {
		if s != nil {
			r.sleep = s
		}
	}
}

// NewRetrier creates a retrier with a default policy.
func NewRetrier(client *Client, recorder *tracing.Recorder, logger *zap.Logger, policy RetryPolicy, opts ...RetrierOption) *Retrier {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Retrier{
		client:   client,
		recorder: recorder,
		logger:   logger,
		policy:   policy.normalize(),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the retrier's default policy.
func (r *Retrier) Policy() RetryPolicy {
	return r.policy
}

// Wait sleeps the policy delay that precedes attempt, or until ctx is done.
// Callers that schedule their own attempts use it between rounds.
func (r *Retrier) Wait(ctx context.Context, attempt int) error {
	return r.sleep(ctx, r.policy.Delay(attempt))
}

// Client returns the underlying circuit-breaker client.
func (r *Retrier) Client() *Client {
	return r.client
}

// CallWithRetry calls fn under the retrier's default policy.
func CallWithRetry[T any](ctx context.Context, r *Retrier, service string, fn func(context.Context) (T, error)) Result[T] {
	return CallWithPolicy(ctx, r, service, r.policy, fn)
}

// CallWithPolicy retries failed and timed-out calls; an open circuit is
// returned at once. After the last attempt the final result is returned
// unchanged apart from Attempts.
func CallWithPolicy[T any](ctx context.Context, r *Retrier, service string, policy RetryPolicy, fn func(context.Context) (T, error)) Result[T] {
	policy = policy.normalize()
	bo := policy.backOff()

	var last Result[T]
	for attempt := 1; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 1 {
			delay := bo.NextBackOff()
			if err := r.sleep(ctx, delay); err != nil {
				r.logger.Debug("retry abandoned",
					zap.String("service", service),
					zap.Int("attempt", attempt),
					zap.Error(err),
				)
				break
			}
		}

		span, attemptCtx := r.recorder.StartSpan(ctx, "peer."+service)
		r.recorder.Tag(span, "peer.service", service)
		r.recorder.Tag(span, "attempt", strconv.Itoa(attempt))

		res := Call(attemptCtx, r.client, service, fn)
		res.Attempts = attempt

		r.recorder.Tag(span, "peer.status", res.Status.String())
		if res.Err != nil {
			r.recorder.LogError(span, res.Err)
		}
		r.recorder.Finish(span)

		last = res
		if res.Status == StatusOK || res.Status == StatusCircuitOpen {
			return res
		}

		r.logger.Debug("peer call attempt failed",
			zap.String("service", service),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", policy.MaxRetries),
			zap.String("status", res.Status.String()),
			zap.Error(res.Err),
		)
	}

	return last
}
