package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"

	"dee-studio/internal/config"
	"dee-studio/internal/domain/entity"
	"dee-studio/pkg/errors"
	"dee-studio/pkg/logger"
)

var tracer = otel.Tracer("catalog")

// AvailabilityChecker 判断某个模型当前是否可用
type AvailabilityChecker func(modelID string, entry config.ModelEntryConfig) bool

// WeightsOnDisk 按模型权重文件是否存在判断可用性
func WeightsOnDisk(_ string, entry config.ModelEntryConfig) bool {
	if entry.WeightsPath == "" {
		return false
	}
	_, err := os.Stat(entry.WeightsPath)
	return err == nil
}

// KVCache 目录缓存端口，由 redis 缓存实现
type KVCache interface {
	GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() (interface{}, error)) ([]byte, error)
}

const catalogCacheKey = "catalog:models"

// Service 模型目录服务
type Service struct {
	cfg     *config.ModelsConfig
	checker AvailabilityChecker
	cache   KVCache // 可选，nil 时直接构建
}

// NewService 创建模型目录服务
func NewService(cfg *config.ModelsConfig, checker AvailabilityChecker, cache KVCache) *Service {
	if checker == nil {
		checker = WeightsOnDisk
	}
	return &Service{
		cfg:     cfg,
		checker: checker,
		cache:   cache,
	}
}

// Validate 校验目录配置，默认模型必须指向已注册且启用的家族
// 违反属于配置错误，在启动时报出而非请求时
func (s *Service) Validate() error {
	if len(s.enabledFamilies()) == 0 {
		return errors.ErrSchemaUnavailable.WithDetail("no models configured")
	}
	if s.cfg.Default == "" {
		return nil
	}
	for _, id := range s.enabledFamilies() {
		if id == s.cfg.Default {
			return nil
		}
	}
	return fmt.Errorf("default model %q is not a configured model", s.cfg.Default)
}

// Catalog 构建模型目录
func (s *Service) Catalog(ctx context.Context) (*entity.ModelCatalog, error) {
	ctx, span := tracer.Start(ctx, "catalog.Catalog")
	defer span.End()

	var models []*entity.ParameterSchema
	for _, id := range s.enabledFamilies() {
		schema := builders[id]()
		schema.Available = s.checker(id, s.cfg.Entries[id])
		models = append(models, schema)
	}

	if len(models) == 0 {
		return nil, errors.ErrSchemaUnavailable.WithDetail("no models configured")
	}

	return &entity.ModelCatalog{
		Models:       models,
		DefaultModel: s.defaultModel(models),
	}, nil
}

// CatalogJSON 返回序列化的模型目录，经缓存合并并发构建
func (s *Service) CatalogJSON(ctx context.Context) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "catalog.CatalogJSON")
	defer span.End()

	load := func() (interface{}, error) {
		return s.Catalog(ctx)
	}

	if s.cache != nil && s.cfg.CatalogCacheTTL > 0 {
		data, err := s.cache.GetOrLoadSafe(ctx, catalogCacheKey, s.cfg.CatalogCacheTTL, load)
		if err == nil {
			return data, nil
		}
		if errors.IsAppError(err) {
			return nil, err
		}
		// 缓存故障时退化为直接构建
		logger.Warn(ctx, "catalog cache unavailable, building directly", "error", err.Error())
	}

	cat, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(cat)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternalError, "failed to marshal catalog")
	}
	return data, nil
}

// Schema 返回某个模型的参数纲要
func (s *Service) Schema(ctx context.Context, modelID string) (*entity.ParameterSchema, error) {
	cat, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	schema, ok := cat.Schema(modelID)
	if !ok {
		return nil, errors.ErrModelNotFound.WithDetail(fmt.Sprintf("unknown model: %s", modelID))
	}
	return schema, nil
}

// EnabledFamilies 返回已注册且在配置中启用的家族，路由按此注册
func (s *Service) EnabledFamilies() []string {
	return s.enabledFamilies()
}

// enabledFamilies 返回已注册且在配置中启用的家族，目录顺序固定
func (s *Service) enabledFamilies() []string {
	var out []string
	for _, id := range Families() {
		entry, ok := s.cfg.Entries[id]
		if ok && entry.Enabled {
			out = append(out, id)
		}
	}
	return out
}

// defaultModel 解析默认模型：配置优先，否则 flux 可用时选 flux，退回 sdxl
func (s *Service) defaultModel(models []*entity.ParameterSchema) string {
	if s.cfg.Default != "" {
		return s.cfg.Default
	}
	for _, m := range models {
		if m.ID == "flux" && m.Available {
			return m.ID
		}
	}
	for _, m := range models {
		if m.Available {
			return m.ID
		}
	}
	return models[0].ID
}
