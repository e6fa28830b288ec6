package generation

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"dee-studio/internal/application/catalog"
	"dee-studio/internal/domain/entity"
	"dee-studio/internal/domain/repository"
	"dee-studio/pkg/errors"
	"dee-studio/pkg/logger"
	"dee-studio/pkg/metrics"
)

var tracer = otel.Tracer("generation")

// maxSeed 随机种子上界，与参数纲要中 seed 的取值范围一致
const maxSeed = 1_000_000_000

// ArtifactStore 制品存储端口
type ArtifactStore interface {
	Persist(ctx context.Context, image []byte, modelPrefix string) (*entity.ImageArtifact, error)
}

// Service 生成编排服务
// 无跨请求共享状态，多个请求可并发执行
type Service struct {
	catalog  *catalog.Service
	registry *Registry
	store    ArtifactStore
	records  repository.GenerationRecordRepository // 可选，nil 时不记录历史
}

// NewService 创建生成编排服务
func NewService(cat *catalog.Service, registry *Registry, store ArtifactStore, records repository.GenerationRecordRepository) *Service {
	return &Service{
		catalog:  cat,
		registry: registry,
		store:    store,
		records:  records,
	}
}

// Generate 执行一次生成请求并返回归一化结果
// 结果是全有或全无的：任何一张图渲染或持久化失败则整个请求失败，且不自动重试
func (s *Service) Generate(ctx context.Context, req *entity.GenerationRequest) (*entity.GenerationResult, error) {
	ctx, span := tracer.Start(ctx, "generation.Generate",
		trace.WithAttributes(
			attribute.String("generation.model", req.ModelID),
			attribute.String("generation.mode", string(req.Mode)),
		))
	defer span.End()

	ctx = logger.WithContext(ctx, logger.ModelIDKey, req.ModelID)

	schema, err := s.catalog.Schema(ctx, req.ModelID)
	if err != nil {
		metrics.GenerationTotal.WithLabelValues(req.ModelID, string(req.Mode), "rejected").Inc()
		return nil, err
	}
	if !schema.Available {
		metrics.GenerationTotal.WithLabelValues(req.ModelID, string(req.Mode), "rejected").Inc()
		return nil, errors.ErrModelUnavailable.WithDetail(
			fmt.Sprintf("%s model not found, please download it first", schema.Name))
	}

	pipeline, ok := s.registry.Lookup(req.ModelID)
	if !ok {
		metrics.GenerationTotal.WithLabelValues(req.ModelID, string(req.Mode), "rejected").Inc()
		return nil, errors.ErrModelNotFound.WithDetail(fmt.Sprintf("no pipeline for model: %s", req.ModelID))
	}

	job, numImages, err := s.resolveJob(schema, req)
	if err != nil {
		metrics.GenerationTotal.WithLabelValues(req.ModelID, string(req.Mode), "rejected").Inc()
		return nil, err
	}

	start := time.Now()

	// 渲染串行执行：底层能力的排队策略（如单卡单任务）对本层不透明
	rendered := make([][]byte, 0, numImages)
	for i := 0; i < numImages; i++ {
		frame := *job
		frame.Seed = job.Seed + int64(i)

		logger.Info(ctx, "rendering image",
			"index", i+1, "count", numImages, "seed", frame.Seed)

		image, renderErr := pipeline.Render(ctx, frame)
		if renderErr != nil {
			metrics.GenerationTotal.WithLabelValues(req.ModelID, string(req.Mode), "error").Inc()
			span.RecordError(renderErr)
			if errors.IsAppError(renderErr) {
				return nil, errors.ErrGenerationFailed.WithDetail(errors.AsAppError(renderErr).Reason()).WithError(renderErr)
			}
			return nil, errors.ErrGenerationFailed.WithDetail(renderErr.Error()).WithError(renderErr)
		}
		rendered = append(rendered, image)
	}

	// 持久化并行执行，任一失败则整体失败
	artifacts := make([]entity.ImageArtifact, numImages)
	g, gctx := errgroup.WithContext(ctx)
	for i, image := range rendered {
		g.Go(func() error {
			art, persistErr := s.store.Persist(gctx, image, req.ModelID)
			if persistErr != nil {
				return persistErr
			}
			artifacts[i] = *art
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.GenerationTotal.WithLabelValues(req.ModelID, string(req.Mode), "error").Inc()
		span.RecordError(err)
		return nil, err
	}

	elapsed := time.Since(start).Seconds()
	metrics.GenerationTotal.WithLabelValues(req.ModelID, string(req.Mode), "ok").Inc()
	metrics.GenerationDuration.WithLabelValues(req.ModelID).Observe(elapsed)
	metrics.ImagesGenerated.WithLabelValues(req.ModelID).Add(float64(numImages))

	result := &entity.GenerationResult{
		Images:         artifacts,
		Seed:           job.Seed,
		GenerationTime: elapsed,
	}

	s.record(ctx, req, job, result)

	logger.Info(ctx, "generation complete",
		"images", numImages, "seed", job.Seed, "duration_secs", elapsed)

	return result, nil
}

// resolveJob 将请求与纲要默认值合并为渲染任务，并做尺寸校验与种子解析
func (s *Service) resolveJob(schema *entity.ParameterSchema, req *entity.GenerationRequest) (*RenderJob, int, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, 0, errors.ErrPromptRequired
	}
	if req.Mode == entity.ModeImg2Img && len(req.InputImage) == 0 {
		return nil, 0, errors.ErrImageRequired
	}

	job := &RenderJob{
		ModelID:           req.ModelID,
		Mode:              req.Mode,
		Prompt:            req.Prompt,
		NegativePrompt:    stringOr(req.NegativePrompt, schema, "negative_prompt"),
		Width:             intOr(req.Width, schema, "width"),
		Height:            intOr(req.Height, schema, "height"),
		Steps:             intOr(req.Steps, schema, "steps"),
		CFGScale:          floatOr(req.CFGScale, schema, "cfg_scale"),
		Guidance:          floatOr(req.Guidance, schema, "guidance"),
		Tiled:             boolOr(req.Tiled, schema, "tiled"),
		DenoisingStrength: floatOr(req.DenoisingStrength, schema, "denoising_strength"),
		InputImage:        req.InputImage,
	}

	// 宽高必须对齐到家族步长（SDXL 为 8，FLUX 为 16）
	if step := dimensionStep(schema); step > 1 {
		if job.Width%step != 0 || job.Height%step != 0 {
			return nil, 0, errors.New(errors.CodeInvalidDimensions,
				fmt.Sprintf("width and height must be divisible by %d for %s", step, schema.Name))
		}
	}

	if req.Seed != nil {
		job.Seed = *req.Seed
	} else {
		job.Seed = rand.Int63n(maxSeed)
	}

	numImages := intOr(req.NumImages, schema, "num_images")
	if numImages < 1 {
		numImages = 1
	}

	return job, numImages, nil
}

// record 尽力写入生成历史，失败不影响请求结果
func (s *Service) record(ctx context.Context, req *entity.GenerationRequest, job *RenderJob, result *entity.GenerationResult) {
	if s.records == nil {
		return
	}

	filenames := make([]string, len(result.Images))
	for i, img := range result.Images {
		filenames[i] = img.Filename
	}

	rec := &entity.GenerationRecord{
		ModelID:      req.ModelID,
		Mode:         req.Mode,
		Prompt:       req.Prompt,
		Seed:         result.Seed,
		Width:        job.Width,
		Height:       job.Height,
		Steps:        job.Steps,
		NumImages:    len(result.Images),
		Filenames:    filenames,
		DurationSecs: result.GenerationTime,
	}
	if err := s.records.Create(ctx, rec); err != nil {
		logger.Warn(ctx, "failed to record generation history", "error", err.Error())
	}
}

// dimensionStep 从宽度参数读取家族的尺寸步长
func dimensionStep(schema *entity.ParameterSchema) int {
	spec, ok := schema.Param("width")
	if !ok || spec.Step == nil {
		return 1
	}
	return int(*spec.Step)
}

func stringOr(v *string, schema *entity.ParameterSchema, key string) string {
	if v != nil {
		return *v
	}
	if spec, ok := schema.Param(key); ok {
		if d, ok := spec.Default.(string); ok {
			return d
		}
	}
	return ""
}

func intOr(v *int, schema *entity.ParameterSchema, key string) int {
	if v != nil {
		return *v
	}
	if spec, ok := schema.Param(key); ok {
		if d, ok := spec.Default.(float64); ok {
			return int(d)
		}
	}
	return 0
}

func floatOr(v *float64, schema *entity.ParameterSchema, key string) float64 {
	if v != nil {
		return *v
	}
	if spec, ok := schema.Param(key); ok {
		if d, ok := spec.Default.(float64); ok {
			return d
		}
	}
	return 0
}

func boolOr(v *bool, schema *entity.ParameterSchema, key string) bool {
	if v != nil {
		return *v
	}
	if spec, ok := schema.Param(key); ok {
		if d, ok := spec.Default.(bool); ok {
			return d
		}
	}
	return false
}
