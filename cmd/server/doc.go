// Package main is the entry point for the job service.
//
// The job service fronts job postings, search and candidate matching. It
// owns no storage: every read and write goes to a peer service through a
// per-peer circuit breaker with retries, and results are held in short-lived
// in-process caches.
//
// Architecture:
//
//	client → job service → job-store      (jobs, applications)
//	                     → company        (company lookup)
//	                     → search         (job search, candidate search, index)
//	                     → user           (candidate profiles)
//	                     → analytics      (events, fire-and-forget)
//	                     → notification   (fire-and-forget)
//
// Configuration:
//   - Environment variables (12-factor), see internal/infrastructure/config
//   - Optional YAML or TOML peer topology with per-peer breaker settings
//   - CLI flags override both
//
// Usage:
//
//	# Production mode
//	./server -port 8000 -topology peers.yaml
//
//	# Development mode (console logs, debug level)
//	./server -dev
//
// On SIGINT or SIGTERM the server stops accepting requests, waits for
// pending analytics, notification and indexing calls, then exits.
package main
