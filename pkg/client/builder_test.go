package client_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dee-studio/internal/domain/entity"
	"dee-studio/pkg/client"
)

func f64(v float64) *float64 { return &v }

// 纲要只声明 prompt/width/steps 的最小模型
func minimalSchema() *entity.ParameterSchema {
	params := entity.NewParameterMap()
	params.Set("prompt", &entity.ParameterSpec{
		Kind:     entity.ParamKindText,
		Label:    "Prompt",
		Required: true,
	})
	params.Set("width", &entity.ParameterSpec{
		Kind:    entity.ParamKindNumber,
		Label:   "Width",
		Default: float64(1024),
		Presets: []float64{512, 768, 1024},
	})
	params.Set("steps", &entity.ParameterSpec{
		Kind:    entity.ParamKindNumber,
		Label:   "Steps",
		Default: float64(20),
		Min:     f64(10),
		Max:     f64(50),
	})
	return &entity.ParameterSchema{ID: "a", Name: "A", Parameters: params}
}

func TestBuildMinimalModelEndToEnd(t *testing.T) {
	f := client.NewForm(minimalSchema(), entity.ModeText2Img)
	require.NoError(t, f.Set("prompt", "a red fox"))

	req := client.Build(f, "a")

	assert.Equal(t, "a", req.ModelID)
	assert.Equal(t, "a red fox", req.Prompt)
	require.NotNil(t, req.Width)
	assert.Equal(t, 1024, *req.Width)
	require.NotNil(t, req.Steps)
	assert.Equal(t, 20, *req.Steps)
	assert.Nil(t, req.Seed)

	// 线上形态不含 seed 键
	data, err := json.Marshal(req)
	require.NoError(t, err)
	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))
	_, hasSeed := wire["seed"]
	assert.False(t, hasSeed)
}

func TestBuildSeedOnlyWithToggle(t *testing.T) {
	f := sdxlForm(t, entity.ModeText2Img)
	require.NoError(t, f.Set("prompt", "a red fox"))
	require.NoError(t, f.Set("seed", 12345))

	// 开关未开：残留的 seed 值绝不进入请求
	req := client.Build(f, "sdxl")
	assert.Nil(t, req.Seed)

	require.NoError(t, f.Set("use_fixed_seed", true))
	req = client.Build(f, "sdxl")
	require.NotNil(t, req.Seed)
	assert.Equal(t, int64(12345), *req.Seed)

	require.NoError(t, f.Set("use_fixed_seed", false))
	req = client.Build(f, "sdxl")
	assert.Nil(t, req.Seed)
}

func TestBuildModelAllowLists(t *testing.T) {
	sdxl := sdxlForm(t, entity.ModeText2Img)
	require.NoError(t, sdxl.Set("prompt", "a red fox"))

	req := client.Build(sdxl, "sdxl")
	assert.NotNil(t, req.NegativePrompt)
	assert.NotNil(t, req.CFGScale)
	assert.Nil(t, req.Guidance)
	assert.Nil(t, req.Tiled)

	flux := fluxForm(t, entity.ModeText2Img)
	require.NoError(t, flux.Set("prompt", "a red fox"))

	req = client.Build(flux, "flux")
	assert.Nil(t, req.NegativePrompt)
	assert.Nil(t, req.CFGScale)
	assert.NotNil(t, req.Guidance)
	assert.NotNil(t, req.Tiled)
}

func TestBuildImg2ImgOnlyFieldsExcludedInText2Img(t *testing.T) {
	f := sdxlForm(t, entity.ModeText2Img)
	require.NoError(t, f.Set("prompt", "a red fox"))
	require.NoError(t, f.Set("denoising_strength", 0.5))

	req := client.Build(f, "sdxl")
	assert.Nil(t, req.DenoisingStrength)
	assert.Nil(t, req.InputImage)
}

func TestBuildImg2ImgIncludesStrengthAndImage(t *testing.T) {
	f := fluxForm(t, entity.ModeImg2Img)
	require.NoError(t, f.Set("prompt", "a red fox"))
	f.SetImage("source.png", []byte{1, 2, 3})

	req := client.Build(f, "flux")
	assert.Equal(t, entity.ModeImg2Img, req.Mode)
	require.NotNil(t, req.DenoisingStrength)
	assert.Equal(t, 0.75, *req.DenoisingStrength)
	assert.Equal(t, []byte{1, 2, 3}, req.InputImage)
	assert.Equal(t, "source.png", req.InputImageName)
}

func TestBuildNeverFailsOnSparseState(t *testing.T) {
	params := entity.NewParameterMap()
	params.Set("prompt", &entity.ParameterSpec{Kind: entity.ParamKindText, Label: "Prompt", Required: true})
	schema := &entity.ParameterSchema{ID: "bare", Name: "Bare", Parameters: params}

	f := client.NewForm(schema, entity.ModeText2Img)
	req := client.Build(f, "bare")

	assert.Equal(t, "", req.Prompt)
	assert.Nil(t, req.Width)
	assert.Nil(t, req.Height)
	assert.Nil(t, req.Steps)
	assert.Nil(t, req.NumImages)
}
