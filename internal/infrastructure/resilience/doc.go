/*
Package resilience guards outbound peer calls with circuit breakers,
timeouts and bounded retries.

# Overview

Breakers keeps one Breaker per peer service name. Call runs a function
through that breaker and the service's call timeout and reports a Result
whose Status is one of ok, failed, circuit_open or timeout. CallWithRetry
adds exponential backoff on top and records every attempt as a span.

# Usage

	breakers := resilience.NewBreakers(resilience.DefaultServiceSettings(),
		resilience.WithOverride("search", resilience.ServiceSettings{CallTimeout: 2 * time.Second}),
	)
	client := resilience.NewClient(breakers, logger, metrics)
	retrier := resilience.NewRetrier(client, recorder, logger, resilience.DefaultRetryPolicy())

	res := resilience.CallWithRetry(ctx, retrier, "job-store", func(ctx context.Context) (*peer.Response, error) {
		return peers.Do(ctx, req)
	})
	if !res.OK() {
		return res.Err
	}

# States

- Closed: calls pass through; consecutive failures are counted
- Open: calls fail immediately with circuit_open
- Half-Open: one probe call decides between Closed and Open

	Closed --[threshold failures]-> Open --[reset timeout]-> Half-Open --[probe ok]-> Closed
	                                           ^                  |
	                                           +---[probe failed]-+

# Retries

Failed and timed-out attempts are retried, circuit_open never is. Attempt k
(k >= 2) waits BaseDelay * 2^(k-2): with the defaults, 1s then 2s.
*/
package resilience
