// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/gin-gonic/gin"

	"dee-studio/internal/application/catalog"
	"dee-studio/internal/application/generation"
	"dee-studio/internal/config"
	"dee-studio/internal/domain/repository"
	"dee-studio/internal/infrastructure/artifact"
	"dee-studio/internal/infrastructure/diffusion"
	"dee-studio/internal/infrastructure/persistence/postgres"
	"dee-studio/internal/infrastructure/persistence/redis"
	"dee-studio/internal/interfaces/http/handler"
	"dee-studio/internal/interfaces/http/middleware"
	"dee-studio/internal/interfaces/http/router"
	"dee-studio/pkg/logger"
)

// App 组装完成的应用
type App struct {
	router *router.Router
}

// Engine 返回 HTTP 引擎
func (a *App) Engine() *gin.Engine {
	return a.router.Engine()
}

// InitializeApp 组装应用依赖图，返回清理函数
// postgres 与 redis 均为可选依赖：未启用时历史记录、目录缓存与限流静默关闭
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// Redis（可选）
	var redisClient *redis.Client
	var catalogCache catalog.KVCache
	var limiter middleware.RateLimiter
	if cfg.Cache.Redis.Enabled {
		client, err := redis.NewClient(&cfg.Cache.Redis)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		cleanups = append(cleanups, func() { _ = client.Close() })
		redisClient = client
		catalogCache = redis.NewCache(client)
		limiter = redis.NewRateLimiter(client)
	}

	// 模型目录
	catalogService := catalog.NewService(&cfg.Models, nil, catalogCache)
	if err := catalogService.Validate(); err != nil {
		cleanup()
		return nil, nil, err
	}
	families := catalogService.EnabledFamilies()

	// PostgreSQL（可选）
	var pgClient *postgres.Client
	var records repository.GenerationRecordRepository
	if cfg.Database.Postgres.Enabled {
		client, err := postgres.NewClient(&cfg.Database.Postgres)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		cleanups = append(cleanups, func() { _ = client.Close() })
		if err := client.Migrate(); err != nil {
			cleanup()
			return nil, nil, err
		}
		pgClient = client
		records = postgres.NewGenerationRecordRepository(client)
	}

	// 制品存储
	store, err := artifact.NewStore(&cfg.Artifacts)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	// 每个启用的家族一个工作进程客户端
	registry := generation.NewRegistry()
	probers := map[string]handler.WorkerProber{}
	for _, family := range families {
		client := diffusion.NewClient(family, cfg.Models.Entries[family])
		registry.Register(family, client)
		probers[family] = client
	}

	generationService := generation.NewService(catalogService, registry, store, records)

	handlers := router.Handlers{
		Models:   handler.NewModelsHandler(catalogService),
		Generate: handler.NewGenerateHandler(generationService),
		Artifact: handler.NewArtifactHandler(store),
		History:  handler.NewHistoryHandler(records),
		Health:   handler.NewHealthHandler(catalogService, probers, pgClient, redisClient),
	}

	r := router.New(cfg, handlers, limiter, families)

	logger.Info(ctx, "app initialized",
		"families", families,
		"postgres", cfg.Database.Postgres.Enabled,
		"redis", cfg.Cache.Redis.Enabled,
	)

	return &App{router: r}, cleanup, nil
}
