package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/docindex/internal/http/handlers"
	httpMW "github.com/yungbote/docindex/internal/http/middleware"
	"github.com/yungbote/docindex/internal/observability"
	"github.com/yungbote/docindex/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	CORSOrigins    []string
	Metrics        *observability.Metrics
	AuthMiddleware *httpMW.AuthMiddleware

	IndexHandler  *httpH.IndexHandler
	QueryHandler  *httpH.QueryHandler
	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware == nil {
		return r
	}
	protected := api.Group("/", cfg.AuthMiddleware.RequireAuth())
	{
		if cfg.QueryHandler != nil {
			protected.POST("/query", cfg.QueryHandler.Query)
		}
	}

	admin := protected.Group("/", cfg.AuthMiddleware.RequireAdmin())
	{
		if cfg.IndexHandler != nil {
			admin.POST("/index", cfg.IndexHandler.Build)
			admin.POST("/index/stale", cfg.IndexHandler.Stale)
			admin.GET("/index/builds/:id", cfg.IndexHandler.GetBuild)
		}
	}

	return r
}
