package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Status is the outcome of one guarded peer call.
type Status int

const (
	StatusOK Status = iota
	StatusFailed
	StatusCircuitOpen
	StatusTimeout
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	case StatusCircuitOpen:
		return "circuit_open"
	case StatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ErrCallTimeout is the error carried by StatusTimeout results.
var ErrCallTimeout = errors.New("peer call timed out")

// Result is the outcome of a peer call. Payload is set only when Status is
// StatusOK; Err is set for every other status.
type Result[T any] struct {
	Service  string
	Status   Status
	Payload  T
	Err      error
	Latency  time.Duration
	Attempts int
}

// OK reports whether the call succeeded.
func (r Result[T]) OK() bool {
	return r.Status == StatusOK
}

// CallObserver receives per-call outcomes. Implemented by monitoring.Metrics.
type CallObserver interface {
	ObservePeerCall(service, status string, latency time.Duration)
}

// Client guards outbound calls with the per-service breaker and timeout.
type Client struct {
	breakers *Breakers
	logger   *zap.Logger
	observer CallObserver
}

// NewClient creates a circuit-breaker client over breakers.
func NewClient(breakers *Breakers, logger *zap.Logger, observer CallObserver) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		breakers: breakers,
		logger:   logger,
		observer: observer,
	}
}

// Breakers returns the registry backing the client.
func (c *Client) Breakers() *Breakers {
	return c.breakers
}

type callOutcome[T any] struct {
	value T
	err   error
}

// Call runs fn through service's breaker. An open breaker rejects the call
// without running fn. fn gets a context carrying the call timeout; when the
// timeout fires first the call is reported as StatusTimeout and counted as a
// failure, and fn's goroutine is left to finish on its own.
func Call[T any](ctx context.Context, c *Client, service string, fn func(context.Context) (T, error)) Result[T] {
	start := time.Now()
	res := Result[T]{Service: service, Attempts: 1}

	timeout := c.breakers.Settings(service).CallTimeout
	err := c.breakers.Get(service).Execute(func() outcome {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		done := make(chan callOutcome[T], 1)
		go func() {
			var out callOutcome[T]
			defer func() {
				if p := recover(); p != nil {
					out.err = fmt.Errorf("peer call panicked: %v", p)
				}
				done <- out
			}()
			out.value, out.err = fn(callCtx)
		}()

		select {
		case out := <-done:
			res.Latency = time.Since(start)
			switch {
			case out.err == nil:
				res.Status = StatusOK
				res.Payload = out.value
				return outcomeSuccess
			case ctx.Err() != nil:
				// The caller gave up; not the peer's fault.
				res.Status = StatusFailed
				res.Err = out.err
				return outcomeIgnored
			case callCtx.Err() != nil && errors.Is(out.err, context.DeadlineExceeded):
				res.Status = StatusTimeout
				res.Err = fmt.Errorf("%s after %s: %w", service, timeout, ErrCallTimeout)
				return outcomeFailure
			default:
				res.Status = StatusFailed
				res.Err = out.err
				return outcomeFailure
			}

		case <-callCtx.Done():
			res.Latency = time.Since(start)
			if ctx.Err() != nil {
				res.Status = StatusFailed
				res.Err = ctx.Err()
				return outcomeIgnored
			}
			res.Status = StatusTimeout
			res.Err = fmt.Errorf("%s after %s: %w", service, timeout, ErrCallTimeout)
			return outcomeFailure
		}
	})
	if err != nil {
		res.Status = StatusCircuitOpen
		res.Err = fmt.Errorf("%s: %w", service, ErrCircuitOpen)
		c.logger.Debug("peer call rejected", zap.String("service", service), zap.Error(err))
		c.observe(res.Service, res.Status, res.Latency)
		return res
	}

	if res.Status == StatusTimeout {
		c.logger.Warn("peer call timed out",
			zap.String("service", service),
			zap.Duration("timeout", timeout),
		)
	}

	c.observe(res.Service, res.Status, res.Latency)
	return res
}

func (c *Client) observe(service string, status Status, latency time.Duration) {
	if c.observer != nil {
		c.observer.ObservePeerCall(service, status.String(), latency)
	}
}
