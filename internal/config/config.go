package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/marketpulse/core/pkg/logger"
)

// Config holds every knob the core and its thin façade read at startup.
// Loaded once in the composition root; nothing downstream reloads it.
type Config struct {
	// Server
	Port        string
	Environment string
	AllowedOrigins string

	// Redis (verdict cache + cross-process adapter quota counters only;
	// no durable content storage — see SPEC_FULL.md domain stack)
	RedisURL string

	// Auth
	AuthMode        string // "jwt" | "static-token"
	JWTSecret       string
	IngestTokenHash string

	// Streaming driver (C7)
	RefreshInterval  time.Duration
	MaxAdapterTimeout time.Duration

	// Aggregator (C2)
	AggregatorMode     string // "union" | "ordered-failover"
	AggregatorParallelism int
	SeenSetWatermark   int

	// Chunker (C3)
	ChunkMaxTokens int

	// Sparse index (C5)
	BM25K1 float64
	BM25B  float64

	// Hybrid retriever (C6)
	RRFK int

	// Ingest coordinator (C8)
	MicroBatchSize      int
	MicroBatchWindow    time.Duration
	CommitDrainDeadline time.Duration

	// Push hub (C11)
	SinkWatermark int
	SinkBuffer    int

	// Verdict cache (C10)
	VerdictCacheTTL time.Duration

	// Per-adapter credentials + rate limits (C1)
	Adapters AdapterConfigs
}

// AdapterConfig is one C1 source adapter's credential + rate-limit knobs.
type AdapterConfig struct {
	Name             string
	APIKey           string
	Enabled          bool
	MinIntervalMS    int
	WindowRequests   int
	Window           time.Duration
	CircuitThreshold int
	CircuitReset     time.Duration
}

// AdapterConfigs bundles the five spec-named variants.
type AdapterConfigs struct {
	BreakingNews        AdapterConfig
	CompanyNews         AdapterConfig
	SentimentTaggedNews AdapterConfig
	BusinessNews        AdapterConfig
	PublicFeed          AdapterConfig
}

// Load reads .env (if present — missing is not fatal, matches the
// teacher's "warn, don't fail" stance) then builds Config from the
// environment, defaulting every field.
func Load() (*Config, error) {
	log := logger.With("component", "config")
	if err := godotenv.Load(); err != nil {
		log.Warn("no .env file found, relying on process environment", "error", err)
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),

		AuthMode:        getEnv("AUTH_MODE", "jwt"),
		JWTSecret:       getEnv("JWT_SECRET", "dev-secret-change-me"),
		IngestTokenHash: getEnv("INGEST_TOKEN_HASH", ""),

		RefreshInterval:   getEnvAsDuration("REFRESH_INTERVAL", 30*time.Second),
		MaxAdapterTimeout: getEnvAsDuration("MAX_ADAPTER_TIMEOUT", 15*time.Second),

		AggregatorMode:        getEnv("AGGREGATOR_MODE", "union"),
		AggregatorParallelism: getEnvAsInt("AGGREGATOR_PARALLELISM", 5),
		SeenSetWatermark:      getEnvAsInt("SEEN_SET_WATERMARK", 50000),

		ChunkMaxTokens: getEnvAsInt("CHUNK_MAX_TOKENS", 512),

		BM25K1: getEnvAsFloat("BM25_K1", 1.5),
		BM25B:  getEnvAsFloat("BM25_B", 0.75),

		RRFK: getEnvAsInt("RRF_K", 60),

		MicroBatchSize:      getEnvAsInt("MICRO_BATCH_SIZE", 64),
		MicroBatchWindow:    getEnvAsDuration("MICRO_BATCH_WINDOW", 50*time.Millisecond),
		CommitDrainDeadline: getEnvAsDuration("COMMIT_DRAIN_DEADLINE", 5*time.Second),

		SinkWatermark: getEnvAsInt("SINK_WATERMARK", 256),
		SinkBuffer:    getEnvAsInt("SINK_BUFFER", 256),

		VerdictCacheTTL: getEnvAsDuration("VERDICT_CACHE_TTL", 2*time.Minute),
	}

	cfg.Adapters = AdapterConfigs{
		BreakingNews:        loadAdapterConfig("BREAKING_NEWS", 60, 30, time.Minute, 5, 2*time.Minute),
		CompanyNews:         loadAdapterConfig("COMPANY_NEWS", 30, 60, time.Minute, 5, 2*time.Minute),
		SentimentTaggedNews: loadAdapterConfig("SENTIMENT_TAGGED_NEWS", 30, 30, time.Minute, 5, 2*time.Minute),
		BusinessNews:        loadAdapterConfig("BUSINESS_NEWS", 20, 20, time.Minute, 5, 2*time.Minute),
		PublicFeed:          loadAdapterConfig("PUBLIC_FEED", 5, 120, time.Minute, 3, time.Minute),
	}

	if cfg.AggregatorMode != "union" && cfg.AggregatorMode != "ordered-failover" {
		log.Warn("unrecognized AGGREGATOR_MODE, defaulting to union", "value", cfg.AggregatorMode)
		cfg.AggregatorMode = "union"
	}
	if cfg.AuthMode != "jwt" && cfg.AuthMode != "static-token" {
		log.Warn("unrecognized AUTH_MODE, defaulting to jwt", "value", cfg.AuthMode)
		cfg.AuthMode = "jwt"
	}

	log.Info("configuration loaded",
		"environment", cfg.Environment,
		"aggregator_mode", cfg.AggregatorMode,
		"refresh_interval", cfg.RefreshInterval,
	)

	return cfg, nil
}

func loadAdapterConfig(prefix string, minIntervalMS, windowRequests int, window time.Duration, circuitThreshold int, circuitReset time.Duration) AdapterConfig {
	key := getEnv(prefix+"_API_KEY", "")
	return AdapterConfig{
		Name:             strings.ToLower(prefix),
		APIKey:           key,
		Enabled:          key != "",
		MinIntervalMS:    getEnvAsInt(prefix+"_MIN_INTERVAL_MS", minIntervalMS),
		WindowRequests:   getEnvAsInt(prefix+"_WINDOW_REQUESTS", windowRequests),
		Window:           getEnvAsDuration(prefix+"_WINDOW", window),
		CircuitThreshold: getEnvAsInt(prefix+"_CIRCUIT_THRESHOLD", circuitThreshold),
		CircuitReset:     getEnvAsDuration(prefix+"_CIRCUIT_RESET", circuitReset),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
