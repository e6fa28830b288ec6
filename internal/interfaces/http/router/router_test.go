package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dee-studio/internal/application/catalog"
	"dee-studio/internal/application/generation"
	"dee-studio/internal/config"
	"dee-studio/internal/infrastructure/artifact"
	"dee-studio/internal/interfaces/http/handler"
	"dee-studio/internal/interfaces/http/router"
)

type pipelineFunc func(ctx context.Context, job generation.RenderJob) ([]byte, error)

func (f pipelineFunc) Render(ctx context.Context, job generation.RenderJob) ([]byte, error) {
	return f(ctx, job)
}

// newTestRouter 组装一套内存中的完整服务栈，扩散工作进程用假实现替代
func newTestRouter(t *testing.T, render pipelineFunc) (*router.Router, *artifact.Store) {
	t.Helper()

	modelsCfg := &config.ModelsConfig{
		Entries: map[string]config.ModelEntryConfig{
			"sdxl": {Enabled: true},
			"flux": {Enabled: true},
		},
	}
	available := func(_ string, _ config.ModelEntryConfig) bool { return true }
	cat := catalog.NewService(modelsCfg, available, nil)

	store, err := artifact.NewStore(&config.ArtifactsConfig{Dir: t.TempDir()})
	require.NoError(t, err)

	registry := generation.NewRegistry()
	families := cat.EnabledFamilies()
	for _, family := range families {
		registry.Register(family, render)
	}
	svc := generation.NewService(cat, registry, store, nil)

	handlers := router.Handlers{
		Models:   handler.NewModelsHandler(cat),
		Generate: handler.NewGenerateHandler(svc),
		Artifact: handler.NewArtifactHandler(store),
		History:  handler.NewHistoryHandler(nil),
		Health:   handler.NewHealthHandler(cat, nil, nil, nil),
	}

	return router.New(&config.Config{}, handlers, nil, families), store
}

func okRender(_ context.Context, _ generation.RenderJob) ([]byte, error) {
	return []byte{0x89, 0x50, 0x4e, 0x47}, nil
}

func TestModelsConfigEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, okRender)

	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/models/config", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	var body struct {
		Models       []json.RawMessage `json:"models"`
		DefaultModel string            `json:"default_model"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Models, 2)
	assert.Equal(t, "flux", body.DefaultModel)
}

func TestGenerateEndpointWireShape(t *testing.T) {
	r, _ := newTestRouter(t, okRender)

	payload := `{"prompt":"a red fox","seed":7}`
	req := httptest.NewRequest(http.MethodPost, "/sdxl/generate", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Images []struct {
			InlineData string `json:"inline_data"`
			URL        string `json:"url"`
			Filename   string `json:"filename"`
		} `json:"images"`
		Seed           int64   `json:"seed"`
		GenerationTime float64 `json:"generation_time"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Images, 1)
	assert.Equal(t, int64(7), body.Seed)
	assert.True(t, strings.HasPrefix(body.Images[0].InlineData, "data:image/png;base64,"))
	assert.True(t, strings.HasPrefix(body.Images[0].Filename, "sdxl_"))
}

func TestGenerateEndpointErrorShape(t *testing.T) {
	r, _ := newTestRouter(t, okRender)

	req := httptest.NewRequest(http.MethodPost, "/flux/generate", strings.NewReader(`{"prompt":"  "}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "4002", body.Code)
	assert.NotEmpty(t, body.Message)
}

func TestTransformEndpointRequiresImage(t *testing.T) {
	r, _ := newTestRouter(t, okRender)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("prompt", "a red fox"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/sdxl/transform", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "4003")
}

func TestTransformEndpointPassesImageThrough(t *testing.T) {
	var got generation.RenderJob
	r, _ := newTestRouter(t, func(_ context.Context, job generation.RenderJob) ([]byte, error) {
		got = job
		return []byte{1}, nil
	})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("prompt", "a red fox"))
	require.NoError(t, mw.WriteField("denoising_strength", "0.5"))
	part, err := mw.CreateFormFile("image", "source.png")
	require.NoError(t, err)
	_, err = part.Write([]byte{0xAA, 0xBB})
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/flux/transform", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []byte{0xAA, 0xBB}, got.InputImage)
	assert.Equal(t, 0.5, got.DenoisingStrength)
}

func TestImagesEndpointServesArtifact(t *testing.T) {
	r, store := newTestRouter(t, okRender)

	art, err := store.Persist(t.Context(), []byte{0x89, 0x50}, "sdxl")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/images/"+art.Filename, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []byte{0x89, 0x50}, w.Body.Bytes())

	w = httptest.NewRecorder()
	r.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/images/sdxl_missing.png", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "3003")
}

func TestHistoryEndpointWithoutDatabase(t *testing.T) {
	r, _ := newTestRouter(t, okRender)

	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/generations", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Generations []json.RawMessage `json:"generations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body.Generations)

	// 非法 limit 即使未接数据库也要报错
	w = httptest.NewRecorder()
	r.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/generations?limit=0", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "1001")

	// 按文件名回查在未接数据库时返回 404
	w = httptest.NewRecorder()
	r.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/generations/sdxl_abc.png", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "1004")
}

func TestUIFallbackServesIndex(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>dee</html>"), 0o644))

	modelsCfg := &config.ModelsConfig{
		Entries: map[string]config.ModelEntryConfig{"sdxl": {Enabled: true}},
	}
	cat := catalog.NewService(modelsCfg, func(_ string, _ config.ModelEntryConfig) bool { return true }, nil)
	store, err := artifact.NewStore(&config.ArtifactsConfig{Dir: t.TempDir()})
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.UI.StaticDir = dir
	handlers := router.Handlers{
		Models:   handler.NewModelsHandler(cat),
		Generate: handler.NewGenerateHandler(generation.NewService(cat, generation.NewRegistry(), store, nil)),
		Artifact: handler.NewArtifactHandler(store),
		History:  handler.NewHistoryHandler(nil),
		Health:   handler.NewHealthHandler(cat, nil, nil, nil),
	}
	r := router.New(cfg, handlers, nil, cat.EnabledFamilies())

	// 未匹配的 GET 退回 index.html
	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/gallery", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "dee")

	// 目录穿越不暴露目录外文件
	w = httptest.NewRecorder()
	r.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/../etc/passwd", nil))
	assert.NotContains(t, w.Body.String(), "root:")
}
