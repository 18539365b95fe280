package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/docindex/internal/platform/envutil"
	"github.com/yungbote/docindex/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	apiReqError *Counter

	embedRequests *CounterVec
	embedLatency  *HistogramVec
	embedTokens   *Counter

	cacheLookups *CounterVec
	cacheErrors  *CounterVec
	cacheSwept   *CounterVec

	vectorOps     *CounterVec
	vectorLatency *HistogramVec

	buildDocs     *CounterVec
	buildDuration *HistogramVec
	buildStatuses *GaugeVec

	queryTotal   *CounterVec
	queryLatency *HistogramVec

	dbStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

// Current returns the process-wide metrics, or nil when metrics are disabled.
// All methods are safe on a nil receiver.
func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("docindex_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"docindex_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight: NewGauge("docindex_api_inflight_requests", "In-flight API requests."),
		apiReqError: NewCounter("docindex_api_requests_error_total", "Total API requests with 5xx status."),
		embedRequests: NewCounterVec("docindex_embedding_requests_total", "Embedding API requests by model/status.", []string{"model", "status"}),
		embedLatency: NewHistogramVec(
			"docindex_embedding_request_duration_seconds",
			"Embedding API latency in seconds by model/status.",
			[]string{"model", "status"},
			[]float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		),
		embedTokens:  NewCounter("docindex_embedding_tokens_total", "Tokens reported by the embedding API."),
		cacheLookups: NewCounterVec("docindex_cache_lookups_total", "Cache lookups by namespace/result.", []string{"namespace", "result"}),
		cacheErrors:  NewCounterVec("docindex_cache_errors_total", "Cache store errors by namespace/op.", []string{"namespace", "op"}),
		cacheSwept:   NewCounterVec("docindex_cache_swept_total", "Expired cache entries removed by sweeps.", []string{"namespace"}),
		vectorOps:    NewCounterVec("docindex_vector_store_operations_total", "Vector store operations by provider/op/status.", []string{"provider", "op", "status"}),
		vectorLatency: NewHistogramVec(
			"docindex_vector_store_operation_duration_seconds",
			"Vector store operation latency in seconds by provider/op/status.",
			[]string{"provider", "op", "status"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		buildDocs: NewCounterVec("docindex_build_documents_total", "Documents processed by builds, by result.", []string{"result"}),
		buildDuration: NewHistogramVec(
			"docindex_build_duration_seconds",
			"Build duration in seconds by terminal status.",
			[]string{"status"},
			[]float64{1, 5, 10, 30, 60, 120, 300, 600, 1200},
		),
		buildStatuses: NewGaugeVec("docindex_builds", "Build records by status.", []string{"status"}),
		queryTotal:    NewCounterVec("docindex_queries_total", "Queries by provider/cache result.", []string{"provider", "cache"}),
		queryLatency: NewHistogramVec(
			"docindex_query_duration_seconds",
			"Query latency in seconds by provider.",
			[]string{"provider"},
			[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		dbStats:   NewGaugeVec("docindex_db_stats", "Database connection pool stats.", []string{"metric"}),
		redisUp:   NewGauge("docindex_redis_up", "Redis connectivity (1=up, 0=down)."),
		redisPing: NewGauge("docindex_redis_ping_seconds", "Redis ping latency in seconds."),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, pw := range []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiReqError,
		m.embedRequests, m.embedLatency, m.embedTokens,
		m.cacheLookups, m.cacheErrors, m.cacheSwept,
		m.vectorOps, m.vectorLatency,
		m.buildDocs, m.buildDuration, m.buildStatuses,
		m.queryTotal, m.queryLatency,
		m.dbStats, m.redisUp, m.redisPing,
	} {
		if err := pw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	if isServerErrorStatus(status) {
		m.apiReqError.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveEmbeddingRequest(model, status string, dur time.Duration, tokens int) {
	if m == nil {
		return
	}
	m.embedRequests.Inc(model, status)
	m.embedLatency.Observe(dur.Seconds(), model, status)
	if tokens > 0 {
		m.embedTokens.Add(float64(tokens))
	}
}

// ObserveCacheLookup records result hit, miss, expired or error.
func (m *Metrics) ObserveCacheLookup(namespace, result string) {
	if m == nil {
		return
	}
	m.cacheLookups.Inc(namespace, result)
}

func (m *Metrics) IncCacheError(namespace, op string) {
	if m == nil {
		return
	}
	m.cacheErrors.Inc(namespace, op)
}

func (m *Metrics) AddCacheSwept(namespace string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.cacheSwept.Add(float64(n), namespace)
}

func (m *Metrics) ObserveVectorStoreOperation(provider, op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.vectorOps.Inc(provider, op, status)
	m.vectorLatency.Observe(dur.Seconds(), provider, op, status)
}

func (m *Metrics) IncBuildDocument(result string) {
	if m == nil {
		return
	}
	m.buildDocs.Inc(result)
}

func (m *Metrics) ObserveBuild(status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.buildDuration.Observe(dur.Seconds(), status)
}

func (m *Metrics) ObserveQuery(provider string, cached bool, dur time.Duration) {
	if m == nil {
		return
	}
	cache := "miss"
	if cached {
		cache = "hit"
	}
	m.queryTotal.Inc(provider, cache)
	m.queryLatency.Observe(dur.Seconds(), provider)
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")

				var rows []struct {
					Status string
					Count  int64
				}
				if err := db.WithContext(ctx).
					Table("build_statuses").
					Select("status, count(*) as count").
					Group("status").
					Scan(&rows).Error; err != nil {
					if log != nil {
						log.Warn("metrics: build status query failed", "error", err)
					}
					continue
				}
				for _, row := range rows {
					m.buildStatuses.Set(float64(row.Count), row.Status)
				}
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client) {
	if m == nil || rdb == nil {
		return
	}
	interval := envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
