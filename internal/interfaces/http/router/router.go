// Package router 提供 HTTP 路由配置
package router

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dee-studio/internal/config"
	"dee-studio/internal/interfaces/http/handler"
	"dee-studio/internal/interfaces/http/middleware"
)

// Handlers 路由所需的全部处理器
type Handlers struct {
	Models   *handler.ModelsHandler
	Generate *handler.GenerateHandler
	Artifact *handler.ArtifactHandler
	History  *handler.HistoryHandler
	Health   *handler.HealthHandler
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	handlers Handlers
	limiter  middleware.RateLimiter
	families []string
}

// New 创建新的路由器
// families 来自模型目录：新增家族只改目录数据，不改路由代码
func New(cfg *config.Config, handlers Handlers, limiter middleware.RateLimiter, families []string) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	r := &Router{
		engine:   engine,
		cfg:      cfg,
		handlers: handlers,
		limiter:  limiter,
		families: families,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	// 系统端点
	r.engine.GET("/health", r.handlers.Health.Health)
	r.engine.GET("/ready", r.handlers.Health.Ready)
	r.engine.GET("/live", r.handlers.Health.Live)

	if r.cfg.Observability.Metrics.Enabled {
		path := r.cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.engine.GET(path, gin.WrapH(promhttp.Handler()))
	}

	// 模型目录
	models := r.engine.Group("/models")
	{
		models.GET("/config", r.handlers.Models.Config)
	}

	// 生成端点：每个启用的家族一组路由，生成端点受限流保护
	rateLimit := middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:           r.cfg.Security.RateLimit.Enabled,
		RequestsPerMinute: r.cfg.Security.RateLimit.RequestsPerMinute,
	}, r.limiter)

	for _, family := range r.families {
		group := r.engine.Group("/" + family)
		group.Use(rateLimit)
		{
			group.POST("/generate", r.handlers.Generate.Generate(family))
			group.POST("/transform", r.handlers.Generate.Transform(family))
		}
	}

	// 制品检索：必须先于 UI 兜底路由注册
	r.engine.GET("/images/:filename", r.handlers.Artifact.Serve)

	// 生成历史
	r.engine.GET("/generations", r.handlers.History.List)
	r.engine.GET("/generations/:filename", r.handlers.History.Get)

	// UI 静态资源兜底：前端构建产物目录存在时托管单页应用
	if dir := r.cfg.UI.StaticDir; dir != "" {
		r.setupUIFallback(dir)
	}
}

// setupUIFallback 注册单页应用兜底路由
// 未匹配的 GET 请求按路径回源到静态目录，目录外路径与缺失文件退回 index.html
func (r *Router) setupUIFallback(dir string) {
	index := filepath.Join(dir, "index.html")

	r.engine.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Status(http.StatusNotFound)
			return
		}

		rel := strings.TrimPrefix(c.Request.URL.Path, "/")
		target := filepath.Join(dir, filepath.Clean("/"+rel))
		if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
			c.File(index)
			return
		}

		if info, err := os.Stat(target); err == nil && !info.IsDir() {
			c.File(target)
			return
		}
		c.File(index)
	})
}
