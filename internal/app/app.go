package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/docindex/internal/data/db"
	"github.com/yungbote/docindex/internal/data/repos"
	httpapi "github.com/yungbote/docindex/internal/http"
	httpH "github.com/yungbote/docindex/internal/http/handlers"
	httpMW "github.com/yungbote/docindex/internal/http/middleware"
	"github.com/yungbote/docindex/internal/indexing/build"
	"github.com/yungbote/docindex/internal/indexing/cache"
	"github.com/yungbote/docindex/internal/indexing/category"
	"github.com/yungbote/docindex/internal/indexing/chunker"
	"github.com/yungbote/docindex/internal/indexing/embedding"
	"github.com/yungbote/docindex/internal/indexing/query"
	"github.com/yungbote/docindex/internal/indexing/staleness"
	"github.com/yungbote/docindex/internal/indexing/vectorstore"
	"github.com/yungbote/docindex/internal/observability"
	"github.com/yungbote/docindex/internal/platform/logger"
	"github.com/yungbote/docindex/internal/platform/openai"
)

var newEmbeddingProvider = openai.NewClient

type Services struct {
	Categories *category.Table
	CacheStore cache.Store
	Embedder   embedding.Client
	Store      vectorstore.Store
	Detector   *staleness.Detector
	Builder    *build.Orchestrator
	Query      *query.Service
	Sweeper    *cache.Sweeper
}

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *gorm.DB
	Repos    repos.Set
	Redis    *goredis.Client
	Services Services
	Metrics  *observability.Metrics

	dbService    *db.Service
	cancel       context.CancelFunc
	otelShutdown func(context.Context) error
}

// New connects storage and wires every service. It does not start background
// work; call Start for that.
func New(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	a := &App{Log: log, Cfg: cfg}
	a.Metrics = observability.Init(log)
	a.otelShutdown = observability.InitOTel(ctx, log, observability.OtelConfig{ServiceName: cfg.ServiceName})

	dbService, err := db.New(log, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}
	a.dbService = dbService
	if err := dbService.AutoMigrateAll(); err != nil {
		a.Close()
		return nil, fmt.Errorf("db automigrate: %w", err)
	}
	a.DB = dbService.DB()
	a.Repos = repos.New(a.DB, log)

	if err := a.wireServices(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wireServices(ctx context.Context) error {
	cfg := a.Cfg
	log := a.Log

	cats, err := category.Load(cfg.CategoryMapPath)
	if err != nil {
		return fmt.Errorf("load category map: %w", err)
	}

	var cacheStore cache.Store
	switch cfg.CacheBackend {
	case CacheBackendRedis:
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("init redis cache: %w", err)
		}
		a.Redis = rdb
		cacheStore = cache.NewRedisStore(rdb)
	case CacheBackendNone:
		cacheStore = cache.NewNoopStore()
	default:
		cacheStore = cache.NewGormStore(a.Repos.CacheEntries)
	}
	log.Info("Cache backend selected", "backend", cacheStore.Name())

	provider, err := newEmbeddingProvider(log, cfg.OpenAI)
	if err != nil {
		return fmt.Errorf("init embedding provider: %w", err)
	}
	embedCache := cache.New[[]float32](log, cacheStore, cache.Options{
		Namespace: cache.NamespaceEmbeddings,
		TTL:       cfg.EmbedCacheTTL,
	})
	embedder, err := embedding.New(log, provider, embedCache, embedding.Options{BatchSize: cfg.EmbedBatchSize})
	if err != nil {
		return fmt.Errorf("init embedding client: %w", err)
	}

	store, err := resolveVectorStore(ctx, log, cfg, a.Repos)
	if err != nil {
		return err
	}

	detector := staleness.New(log, a.Repos.Metadata)
	builder, err := build.New(build.Deps{
		Log:        log,
		Builds:     a.Repos.Builds,
		Metadata:   a.Repos.Metadata,
		Detector:   detector,
		Chunker:    chunker.New(chunker.Options{MaxChars: cfg.ChunkMaxChars}),
		Embedder:   embedder,
		Store:      store,
		Categories: cats,
		Tokens:     build.NewTokenCounter(log),
	}, build.Config{
		Concurrency:      cfg.BuildConcurrency,
		OverlapWords:     cfg.ChunkOverlapWords,
		HeartbeatTimeout: cfg.BuildHeartbeatTimeout,
	})
	if err != nil {
		return fmt.Errorf("init build orchestrator: %w", err)
	}

	querySvc, err := query.New(log, embedder, store, cacheStore, cfg.QueryCacheTTL)
	if err != nil {
		return fmt.Errorf("init query service: %w", err)
	}

	a.Services = Services{
		Categories: cats,
		CacheStore: cacheStore,
		Embedder:   embedder,
		Store:      store,
		Detector:   detector,
		Builder:    builder,
		Query:      querySvc,
		Sweeper:    cache.NewSweeper(log, cacheStore, cfg.CacheSweepInterval, cache.NamespaceEmbeddings, cache.NamespaceQueries),
	}
	return nil
}

// Router builds the HTTP API. It requires JWT_SECRET.
func (a *App) Router() (*gin.Engine, error) {
	am, err := httpMW.NewAuthMiddleware(a.Log, a.Cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	return httpapi.NewRouter(httpapi.RouterConfig{
		Log:            a.Log,
		ServiceName:    a.Cfg.ServiceName,
		CORSOrigins:    a.Cfg.CORSOrigins,
		Metrics:        a.Metrics,
		AuthMiddleware: am,
		IndexHandler:   httpH.NewIndexHandler(a.Log, a.Services.Builder, a.Services.Detector),
		QueryHandler:   httpH.NewQueryHandler(a.Log, a.Services.Query),
		HealthHandler:  httpH.NewHealthHandler(a.ping),
	}), nil
}

func (a *App) ping(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Start launches background work: the metrics endpoint, collectors and the
// cache sweeper. It is a no-op when already started.
func (a *App) Start(ctx context.Context) {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
	a.Metrics.StartDBCollector(ctx, a.Log, a.DB)
	a.Metrics.StartRedisCollector(ctx, a.Log, a.Redis)
	if a.Cfg.CacheBackend == CacheBackendDB {
		a.Services.Sweeper.Start(ctx)
	}
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.dbService != nil {
		if err := a.dbService.Close(); err != nil && a.Log != nil {
			a.Log.Warn("db close failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
