package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Peer service names as used for breakers, metrics and the topology file.
const (
	PeerJobStore     = "job-store"
	PeerCompany      = "company"
	PeerSearch       = "search"
	PeerUser         = "user"
	PeerAnalytics    = "analytics"
	PeerNotification = "notification"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Logging    LogConfig
	RateLimit  RateLimitConfig
	Tracing    TracingConfig
	Resilience ResilienceConfig
	Cache      CacheConfig
	Matching   MatchingConfig
	Peers      PeersConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// TracingConfig controls the span recorder and its sinks.
type TracingConfig struct {
	Enabled    bool `envconfig:"TRACING_ENABLED" default:"true"`
	BufferSize int  `envconfig:"TRACING_BUFFER" default:"1000"`
	RingSize   int  `envconfig:"TRACING_RING_SIZE" default:"512"`
	MaxLeaked  int  `envconfig:"TRACING_MAX_LEAKED" default:"256"`
	OTel       bool `envconfig:"TRACING_OTEL" default:"false"`
}

// ResilienceConfig holds the module-wide breaker and retry defaults.
type ResilienceConfig struct {
	BreakerThreshold    int           `envconfig:"BREAKER_THRESHOLD" default:"3"`
	BreakerResetTimeout time.Duration `envconfig:"BREAKER_RESET_TIMEOUT" default:"30s"`
	PeerTimeout         time.Duration `envconfig:"PEER_TIMEOUT" default:"5s"`
	RetryMax            int           `envconfig:"RETRY_MAX" default:"3"`
	RetryBaseDelay      time.Duration `envconfig:"RETRY_BASE_DELAY" default:"1s"`
	PeerRPS             float64       `envconfig:"PEER_RPS" default:"0"` // 0 = unlimited
	PeerBurst           int           `envconfig:"PEER_BURST" default:"20"`
}

// CacheConfig holds TTLs for the three cache families.
type CacheConfig struct {
	EntityTTL     time.Duration `envconfig:"CACHE_ENTITY_TTL" default:"5m"`
	QueryTTL      time.Duration `envconfig:"CACHE_QUERY_TTL" default:"5m"`
	MatchTTL      time.Duration `envconfig:"CACHE_MATCH_TTL" default:"1h"`
	SweepInterval time.Duration `envconfig:"CACHE_SWEEP_INTERVAL" default:"1m"`
}

// MatchingConfig bounds the candidate fan-out.
type MatchingConfig struct {
	CandidateLimit    int `envconfig:"MATCH_CANDIDATE_LIMIT" default:"50"`
	EnrichConcurrency int `envconfig:"MATCH_ENRICH_CONCURRENCY" default:"0"` // 0 = CandidateLimit
}

// PeersConfig holds peer base URLs.
type PeersConfig struct {
	JobStoreURL     string `envconfig:"JOB_STORE_URL" default:"http://localhost:8081"`
	CompanyURL      string `envconfig:"COMPANY_SERVICE_URL" default:"http://localhost:8082"`
	SearchURL       string `envconfig:"SEARCH_SERVICE_URL" default:"http://localhost:8083"`
	UserURL         string `envconfig:"USER_SERVICE_URL" default:"http://localhost:8084"`
	AnalyticsURL    string `envconfig:"ANALYTICS_SERVICE_URL" default:"http://localhost:8085"`
	NotificationURL string `envconfig:"NOTIFICATION_SERVICE_URL" default:"http://localhost:8086"`
	TopologyFile    string `envconfig:"PEER_TOPOLOGY_FILE"`
}

// URLs returns the base URL of every peer keyed by service name.
func (p PeersConfig) URLs() map[string]string {
	return map[string]string{
		PeerJobStore:     p.JobStoreURL,
		PeerCompany:      p.CompanyURL,
		PeerSearch:       p.SearchURL,
		PeerUser:         p.UserURL,
		PeerAnalytics:    p.AnalyticsURL,
		PeerNotification: p.NotificationURL,
	}
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Tracing: TracingConfig{
			Enabled:    true,
			BufferSize: 1000,
			RingSize:   512,
			MaxLeaked:  256,
		},
		Resilience: ResilienceConfig{
			BreakerThreshold:    3,
			BreakerResetTimeout: 30 * time.Second,
			PeerTimeout:         5 * time.Second,
			RetryMax:            3,
			RetryBaseDelay:      time.Second,
			PeerBurst:           20,
		},
		Cache: CacheConfig{
			EntityTTL:     5 * time.Minute,
			QueryTTL:      5 * time.Minute,
			MatchTTL:      time.Hour,
			SweepInterval: time.Minute,
		},
		Matching: MatchingConfig{
			CandidateLimit: 50,
		},
		Peers: PeersConfig{
			JobStoreURL:     "http://localhost:8081",
			CompanyURL:      "http://localhost:8082",
			SearchURL:       "http://localhost:8083",
			UserURL:         "http://localhost:8084",
			AnalyticsURL:    "http://localhost:8085",
			NotificationURL: "http://localhost:8086",
		},
	}
}
