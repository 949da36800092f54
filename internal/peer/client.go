// Package peer is the HTTP transport to the platform's peer services.
//
// It knows nothing about breakers or retries; those wrap it from the
// resilience package. A peer answer with status >= 500, or no answer at all,
// is an error. Every other status, 4xx included, is returned as a Response
// so the caller can map it.
package peer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/TalentSphere/backend/internal/infrastructure/tracing"
)

// ErrUnknownPeer is returned for a service with no registered endpoint.
var ErrUnknownPeer = errors.New("unknown peer service")

// Request describes one call to a peer.
type Request struct {
	Service string
	Method  string
	Path    string
	Query   url.Values
	Body    any
}

// Response is a peer answer with a status below 500.
type Response struct {
	Status  int
	Data    []byte
	Headers http.Header
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if len(r.Data) == 0 {
		return errors.New("empty response body")
	}
	return sonic.Unmarshal(r.Data, v)
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.Status >= 200 && r.Status < 300
}

// StatusError is a 5xx answer.
type StatusError struct {
	Service string
	Status  int
	Body    string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s responded %d", e.Service, e.Status)
	}
	return fmt.Sprintf("%s responded %d: %s", e.Service, e.Status, e.Body)
}

// Endpoint registers a peer's base URL and outbound rate limit.
type Endpoint struct {
	Service string
	BaseURL string
	RPS     float64 // <= 0 means unlimited
	Burst   int
}

type endpoint struct {
	baseURL string
	limiter *rate.Limiter
}

// Client sends requests to registered peers with trace headers attached.
type Client struct {
	resty  *resty.Client
	logger *zap.Logger

	mu    sync.RWMutex
	peers map[string]*endpoint
}

// NewClient creates a client over a pooled transport. Timeouts come from the
// request context; the client retries nothing itself.
func NewClient(logger *zap.Logger, endpoints ...Endpoint) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Pooled transport only; retries belong to the resilience layer.
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.Logger = nil

	restyClient := resty.New()
	restyClient.
		SetTransport(retryClient.HTTPClient.Transport).
		SetRetryCount(0).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetLogger(logger.Sugar()).
		SetHeader("User-Agent", "TalentSphere-JobService/1.0").
		SetHeader("Accept", "application/json")

	c := &Client{
		resty:  restyClient,
		logger: logger,
		peers:  make(map[string]*endpoint),
	}
	for _, ep := range endpoints {
		c.Register(ep)
	}
	return c
}

// Register adds or replaces a peer endpoint.
func (c *Client) Register(ep Endpoint) {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if ep.RPS > 0 {
		burst := ep.Burst
		if burst <= 0 {
			burst = max(1, int(ep.RPS))
		}
		limiter = rate.NewLimiter(rate.Limit(ep.RPS), burst)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.peers[ep.Service] = &endpoint{
		baseURL: strings.TrimRight(ep.BaseURL, "/"),
		limiter: limiter,
	}
}

// Services returns the registered service names.
func (c *Client) Services() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.peers))
	for name := range c.peers {
		out = append(out, name)
	}
	return out
}

// Do sends req and waits for the answer or ctx.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	c.mu.RLock()
	ep, ok := c.peers[req.Service]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPeer, req.Service)
	}

	if err := ep.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s rate limit: %w", req.Service, err)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	r := c.resty.R().
		SetContext(ctx).
		SetHeaders(tracing.OutboundHeaders(ctx))
	if len(req.Query) > 0 {
		r.SetQueryParamsFromValues(req.Query)
	}
	if req.Body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(req.Body)
	}

	resp, err := r.Execute(method, ep.baseURL+req.Path)
	if err != nil {
		return nil, fmt.Errorf("%s %s %s: %w", req.Service, method, req.Path, err)
	}

	if resp.StatusCode() >= http.StatusInternalServerError {
		return nil, &StatusError{
			Service: req.Service,
			Status:  resp.StatusCode(),
			Body:    truncate(resp.String(), 256),
		}
	}

	c.logger.Debug("peer responded",
		zap.String("service", req.Service),
		zap.String("method", method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("latency", resp.Time()),
	)

	return &Response{
		Status:  resp.StatusCode(),
		Data:    resp.Body(),
		Headers: resp.Header(),
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
