package generation_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dee-studio/internal/application/catalog"
	"dee-studio/internal/application/generation"
	"dee-studio/internal/config"
	"dee-studio/internal/domain/entity"
	"dee-studio/pkg/errors"
)

type pipelineFunc func(ctx context.Context, job generation.RenderJob) ([]byte, error)

func (f pipelineFunc) Render(ctx context.Context, job generation.RenderJob) ([]byte, error) {
	return f(ctx, job)
}

type fakeStore struct {
	mu        sync.Mutex
	persisted [][]byte
	fail      bool
}

func (s *fakeStore) Persist(_ context.Context, image []byte, modelPrefix string) (*entity.ImageArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, errors.ErrArtifactPersist
	}
	s.persisted = append(s.persisted, image)
	name := fmt.Sprintf("%s_%d.png", modelPrefix, len(s.persisted))
	return &entity.ImageArtifact{
		InlineData: "data:image/png;base64,aGk=",
		URL:        "/images/" + name,
		Filename:   name,
	}, nil
}

func newService(t *testing.T, render pipelineFunc, store generation.ArtifactStore, available bool) *generation.Service {
	t.Helper()

	cfg := &config.ModelsConfig{
		Entries: map[string]config.ModelEntryConfig{
			"sdxl": {Enabled: true},
			"flux": {Enabled: true},
		},
	}
	checker := func(_ string, _ config.ModelEntryConfig) bool { return available }
	cat := catalog.NewService(cfg, checker, nil)

	registry := generation.NewRegistry()
	registry.Register("sdxl", render)
	registry.Register("flux", render)

	return generation.NewService(cat, registry, store, nil)
}

func TestGenerateAppliesSchemaDefaults(t *testing.T) {
	var got generation.RenderJob
	store := &fakeStore{}
	svc := newService(t, func(_ context.Context, job generation.RenderJob) ([]byte, error) {
		got = job
		return []byte{1}, nil
	}, store, true)

	result, err := svc.Generate(t.Context(), &entity.GenerationRequest{
		ModelID: "flux",
		Mode:    entity.ModeText2Img,
		Prompt:  "a red fox",
	})
	require.NoError(t, err)

	assert.Equal(t, 1024, got.Width)
	assert.Equal(t, 1024, got.Height)
	assert.Equal(t, 28, got.Steps)
	assert.Equal(t, 3.5, got.Guidance)
	assert.False(t, got.Tiled)
	require.Len(t, result.Images, 1)

	// 未指定 seed 时由服务端随机解析并回报
	assert.GreaterOrEqual(t, result.Seed, int64(0))
	assert.Less(t, result.Seed, int64(1_000_000_000))
}

func TestGenerateFixedSeedAndIncrement(t *testing.T) {
	var seeds []int64
	store := &fakeStore{}
	svc := newService(t, func(_ context.Context, job generation.RenderJob) ([]byte, error) {
		seeds = append(seeds, job.Seed)
		return []byte{1}, nil
	}, store, true)

	seed := int64(42)
	n := 3
	result, err := svc.Generate(t.Context(), &entity.GenerationRequest{
		ModelID:   "sdxl",
		Mode:      entity.ModeText2Img,
		Prompt:    "a red fox",
		Seed:      &seed,
		NumImages: &n,
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{42, 43, 44}, seeds)
	assert.Equal(t, int64(42), result.Seed)
	assert.Len(t, result.Images, 3)
	assert.Len(t, store.persisted, 3)
}

func TestGenerateRejectsEmptyPrompt(t *testing.T) {
	svc := newService(t, func(_ context.Context, _ generation.RenderJob) ([]byte, error) {
		t.Fatal("render must not be called")
		return nil, nil
	}, &fakeStore{}, true)

	_, err := svc.Generate(t.Context(), &entity.GenerationRequest{
		ModelID: "sdxl",
		Mode:    entity.ModeText2Img,
		Prompt:  "   ",
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodePromptRequired))
}

func TestGenerateRejectsImg2ImgWithoutImage(t *testing.T) {
	svc := newService(t, func(_ context.Context, _ generation.RenderJob) ([]byte, error) {
		return []byte{1}, nil
	}, &fakeStore{}, true)

	_, err := svc.Generate(t.Context(), &entity.GenerationRequest{
		ModelID: "sdxl",
		Mode:    entity.ModeImg2Img,
		Prompt:  "a red fox",
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeImageRequired))
}

func TestGenerateValidatesDimensionStep(t *testing.T) {
	svc := newService(t, func(_ context.Context, _ generation.RenderJob) ([]byte, error) {
		return []byte{1}, nil
	}, &fakeStore{}, true)

	width := 1000 // 不被 16 整除
	_, err := svc.Generate(t.Context(), &entity.GenerationRequest{
		ModelID: "flux",
		Mode:    entity.ModeText2Img,
		Prompt:  "a red fox",
		Width:   &width,
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidDimensions))

	// SDXL 步长为 8，1000 可整除
	svc2 := newService(t, func(_ context.Context, _ generation.RenderJob) ([]byte, error) {
		return []byte{1}, nil
	}, &fakeStore{}, true)
	_, err = svc2.Generate(t.Context(), &entity.GenerationRequest{
		ModelID: "sdxl",
		Mode:    entity.ModeText2Img,
		Prompt:  "a red fox",
		Width:   &width,
	})
	assert.NoError(t, err)
}

func TestGenerateUnavailableModel(t *testing.T) {
	svc := newService(t, func(_ context.Context, _ generation.RenderJob) ([]byte, error) {
		return []byte{1}, nil
	}, &fakeStore{}, false)

	_, err := svc.Generate(t.Context(), &entity.GenerationRequest{
		ModelID: "flux",
		Mode:    entity.ModeText2Img,
		Prompt:  "a red fox",
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeModelUnavailable))
}

func TestGenerateUnknownModel(t *testing.T) {
	svc := newService(t, func(_ context.Context, _ generation.RenderJob) ([]byte, error) {
		return []byte{1}, nil
	}, &fakeStore{}, true)

	_, err := svc.Generate(t.Context(), &entity.GenerationRequest{
		ModelID: "sd15",
		Mode:    entity.ModeText2Img,
		Prompt:  "a red fox",
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeModelNotFound))
}

func TestGenerateRenderFailureIsAllOrNothing(t *testing.T) {
	calls := 0
	store := &fakeStore{}
	svc := newService(t, func(_ context.Context, _ generation.RenderJob) ([]byte, error) {
		calls++
		if calls == 2 {
			return nil, fmt.Errorf("CUDA out of memory")
		}
		return []byte{1}, nil
	}, store, true)

	n := 3
	_, err := svc.Generate(t.Context(), &entity.GenerationRequest{
		ModelID:   "sdxl",
		Mode:      entity.ModeText2Img,
		Prompt:    "a red fox",
		NumImages: &n,
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeGenerationFailed))
	assert.Equal(t, "CUDA out of memory", errors.AsAppError(err).Reason())
	assert.Empty(t, store.persisted, "no partial results")
}

func TestGeneratePersistFailureFailsRequest(t *testing.T) {
	svc := newService(t, func(_ context.Context, _ generation.RenderJob) ([]byte, error) {
		return []byte{1}, nil
	}, &fakeStore{fail: true}, true)

	_, err := svc.Generate(t.Context(), &entity.GenerationRequest{
		ModelID: "sdxl",
		Mode:    entity.ModeText2Img,
		Prompt:  "a red fox",
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeArtifactPersistError))
}
