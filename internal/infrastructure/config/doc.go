// Package config provides 12-factor configuration management for the job
// service.
//
// Configuration is loaded from environment variables with sensible defaults.
// An optional peer topology file (YAML or TOML) overrides per-peer addresses,
// breaker thresholds, timeouts and outbound rate limits.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Tracing: Span recorder buffer, ring size and OpenTelemetry export
//   - Resilience: Breaker threshold/reset, call timeout, retry budget
//   - Cache: Entity, query and match TTLs
//   - Matching: Candidate limit and enrichment concurrency
//   - Peers: Peer base URLs and the topology file path
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	topo, err := config.LoadTopology(cfg.Peers.TopologyFile)
//	for _, p := range cfg.ResolvePeers(topo) {
//		fmt.Println(p.Name, p.URL, p.Timeout)
//	}
//
// Environment Variables:
//   - PORT, HOST, LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - TRACING_ENABLED, TRACING_BUFFER, TRACING_RING_SIZE, TRACING_OTEL
//   - BREAKER_THRESHOLD, BREAKER_RESET_TIMEOUT, PEER_TIMEOUT
//   - RETRY_MAX, RETRY_BASE_DELAY, PEER_RPS, PEER_BURST
//   - CACHE_ENTITY_TTL, CACHE_QUERY_TTL, CACHE_MATCH_TTL, CACHE_SWEEP_INTERVAL
//   - MATCH_CANDIDATE_LIMIT, MATCH_ENRICH_CONCURRENCY
//   - JOB_STORE_URL, COMPANY_SERVICE_URL, SEARCH_SERVICE_URL, USER_SERVICE_URL,
//     ANALYTICS_SERVICE_URL, NOTIFICATION_SERVICE_URL, PEER_TOPOLOGY_FILE
package config
