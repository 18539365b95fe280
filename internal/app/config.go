package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/docindex/internal/data/db"
	"github.com/yungbote/docindex/internal/indexing/build"
	"github.com/yungbote/docindex/internal/indexing/chunker"
	"github.com/yungbote/docindex/internal/indexing/embedding"
	"github.com/yungbote/docindex/internal/indexing/vectorstore"
	"github.com/yungbote/docindex/internal/platform/envutil"
	"github.com/yungbote/docindex/internal/platform/openai"
)

const (
	CacheBackendDB    = "db"
	CacheBackendRedis = "redis"
	CacheBackendNone  = "none"
)

type Config struct {
	LogMode     string
	ServiceName string
	HTTPAddr    string
	CORSOrigins []string
	JWTSecret   string

	DB     db.Config
	OpenAI openai.Config

	ChunkMaxChars     int
	ChunkOverlapWords int
	EmbedBatchSize    int

	CacheBackend       string
	RedisAddr          string
	EmbedCacheTTL      time.Duration
	QueryCacheTTL      time.Duration
	CacheSweepInterval time.Duration

	VectorProvider      string
	ExactMaxVectors     int
	RemoteOversample    int
	RerankKeywordWeight float64

	BuildConcurrency      int
	BuildHeartbeatTimeout time.Duration
	CategoryMapPath       string

	MetricsAddr string
}

// LoadDotEnv loads .env when present. Variables already set win.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

func LoadConfig() (Config, error) {
	cfg := Config{
		LogMode:     envutil.String("LOG_MODE", "development"),
		ServiceName: envutil.String("SERVICE_NAME", "docindex"),
		HTTPAddr:    ":" + envutil.String("PORT", "8080"),
		CORSOrigins: splitList(envutil.String("CORS_ORIGINS", "")),
		JWTSecret:   envutil.String("JWT_SECRET", ""),
		DB: db.Config{
			Driver:           envutil.String("DB_DRIVER", db.DriverSQLite),
			PostgresHost:     envutil.String("POSTGRES_HOST", "localhost"),
			PostgresPort:     envutil.String("POSTGRES_PORT", "5432"),
			PostgresUser:     envutil.String("POSTGRES_USER", "postgres"),
			PostgresPassword: envutil.String("POSTGRES_PASSWORD", ""),
			PostgresName:     envutil.String("POSTGRES_NAME", "docindex"),
			PostgresSSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
			SQLitePath:       envutil.String("SQLITE_PATH", "docindex.db"),
		},
		OpenAI: openai.ConfigFromEnv(),

		ChunkMaxChars:     envutil.Int("CHUNK_MAX_CHARS", chunker.DefaultMaxChars),
		ChunkOverlapWords: envutil.Int("CHUNK_OVERLAP_WORDS", chunker.DefaultOverlapWords),
		EmbedBatchSize:    envutil.Int("EMBED_BATCH_SIZE", embedding.DefaultBatchSize),

		CacheBackend:       strings.ToLower(envutil.String("CACHE_BACKEND", CacheBackendDB)),
		RedisAddr:          envutil.String("REDIS_ADDR", ""),
		EmbedCacheTTL:      time.Duration(envutil.Int("EMBED_CACHE_TTL_HOURS", 7*24)) * time.Hour,
		QueryCacheTTL:      time.Duration(envutil.Int("QUERY_CACHE_TTL_MINUTES", 60)) * time.Minute,
		CacheSweepInterval: envutil.Seconds("CACHE_SWEEP_INTERVAL_SECONDS", 10*time.Minute),

		VectorProvider:      strings.ToLower(envutil.String("VECTOR_PROVIDER", vectorstore.ProviderExact)),
		ExactMaxVectors:     envutil.Int("EXACT_SEARCH_MAX_VECTORS", vectorstore.DefaultExactMaxVectors),
		RemoteOversample:    envutil.Int("REMOTE_OVERSAMPLE", vectorstore.DefaultOversample),
		RerankKeywordWeight: envutil.Float("RERANK_KEYWORD_WEIGHT", 0.3),

		BuildConcurrency:      envutil.Int("BUILD_CONCURRENCY", build.DefaultConcurrency),
		BuildHeartbeatTimeout: envutil.Seconds("BUILD_HEARTBEAT_TIMEOUT_SECONDS", build.DefaultHeartbeatTimeout),
		CategoryMapPath:       envutil.String("CATEGORY_MAP_PATH", ""),

		MetricsAddr: envutil.String("METRICS_ADDR", ":9090"),
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.ChunkMaxChars <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_MAX_CHARS must be positive, got %d", c.ChunkMaxChars))
	}
	if c.ChunkOverlapWords < 0 {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP_WORDS must not be negative, got %d", c.ChunkOverlapWords))
	}
	if c.BuildConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("BUILD_CONCURRENCY must be positive, got %d", c.BuildConcurrency))
	}
	switch c.CacheBackend {
	case CacheBackendDB, CacheBackendNone:
	case CacheBackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("CACHE_BACKEND=redis requires REDIS_ADDR"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported CACHE_BACKEND %q", c.CacheBackend))
	}
	switch c.VectorProvider {
	case vectorstore.ProviderExact, vectorstore.ProviderQdrant:
	default:
		errs = append(errs, fmt.Errorf("unsupported VECTOR_PROVIDER %q", c.VectorProvider))
	}
	return errors.Join(errs...)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
