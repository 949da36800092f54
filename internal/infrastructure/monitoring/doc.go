/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the job
service, tracking HTTP requests, orchestrator operations, peer calls,
circuit breakers, caches and match scoring.

# Features

- HTTP request metrics (latency, throughput, size) by route template
- Orchestrator operation counts and durations
- Peer call counts and latency by service and status
- Breaker state gauge and transition counter
- Cache hit, miss and eviction counters
- Dropped enrichment counter and match score histogram

# Usage

	registry := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(registry)

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(monitoring.Handler(registry)))

	// Wire into resilience and caches
	breakers := resilience.NewBreakers(defaults, resilience.WithStateChange(metrics.BreakerStateChanged))
	client := resilience.NewClient(breakers, logger, metrics)
	jobs := cache.New[Job]("job", 5*time.Minute, cache.WithObserver(metrics))

	// Time operations
	timer := monitoring.NewTimer(metrics, "getJob")
	// ... perform operation ...
	timer.StopErr(err)

A nil *Metrics accepts every call and records nothing.
*/
package monitoring
