// Package catalog 提供模型参数纲要目录
package catalog

import (
	"dee-studio/internal/domain/entity"
)

// DefaultNegativePrompt SDXL 默认负向提示词
const DefaultNegativePrompt = "nsfw, lowres, bad anatomy, bad hands, text, error, missing fingers, extra digit, fewer digits, cropped, worst quality, low quality, normal quality, jpeg artifacts, signature, watermark, username, blurry"

// dimensionPresets 宽高离散档位
var dimensionPresets = []float64{512, 768, 1024, 1280, 1536, 2048}

// schemaBuilder 构造某个模型家族的参数纲要（不含可用性）
type schemaBuilder func() *entity.ParameterSchema

// families 已注册的模型家族，顺序即目录展示顺序
var families = []string{"sdxl", "flux"}

var builders = map[string]schemaBuilder{
	"sdxl": sdxlSchema,
	"flux": fluxSchema,
}

// Families 返回已注册的模型家族 ID
func Families() []string {
	out := make([]string, len(families))
	copy(out, families)
	return out
}

func f64(v float64) *float64 {
	return &v
}

// sdxlSchema Stable Diffusion XL 参数纲要
func sdxlSchema() *entity.ParameterSchema {
	params := entity.NewParameterMap()
	params.Set("prompt", &entity.ParameterSpec{
		Kind:        entity.ParamKindText,
		Label:       "Prompt",
		Required:    true,
		Placeholder: "A beautiful landscape with mountains and a lake at sunset...",
		Rows:        4,
	})
	params.Set("negative_prompt", &entity.ParameterSpec{
		Kind:        entity.ParamKindText,
		Label:       "Negative Prompt",
		Default:     DefaultNegativePrompt,
		Placeholder: "What to avoid in the image...",
		Rows:        3,
		Collapsible: true,
	})
	params.Set("width", &entity.ParameterSpec{
		Kind:    entity.ParamKindNumber,
		Label:   "Width",
		Min:     f64(512),
		Max:     f64(2048),
		Default: float64(1024),
		Step:    f64(8),
		Presets: dimensionPresets,
	})
	params.Set("height", &entity.ParameterSpec{
		Kind:    entity.ParamKindNumber,
		Label:   "Height",
		Min:     f64(512),
		Max:     f64(2048),
		Default: float64(1024),
		Step:    f64(8),
		Presets: dimensionPresets,
	})
	params.Set("num_images", &entity.ParameterSpec{
		Kind:    entity.ParamKindNumber,
		Label:   "Number of Images",
		Min:     f64(1),
		Max:     f64(4),
		Default: float64(1),
		Help:    "Generate multiple images at once",
	})
	params.Set("steps", &entity.ParameterSpec{
		Kind:    entity.ParamKindNumber,
		Label:   "Inference Steps",
		Min:     f64(10),
		Max:     f64(50),
		Default: float64(20),
		Help:    "More steps = better quality but slower",
	})
	params.Set("cfg_scale", &entity.ParameterSpec{
		Kind:    entity.ParamKindNumber,
		Label:   "CFG Scale",
		Min:     f64(1.0),
		Max:     f64(15.0),
		Default: float64(7.5),
		Step:    f64(0.5),
		Help:    "How closely to follow the prompt (7-8 recommended)",
	})
	params.Set("seed", &entity.ParameterSpec{
		Kind:  entity.ParamKindNumber,
		Label: "Seed",
		Min:   f64(0),
		Max:   f64(999999999),
		Help:  "Random seed for reproducibility",
	})
	params.Set("denoising_strength", &entity.ParameterSpec{
		Kind:             entity.ParamKindNumber,
		Label:            "Denoising Strength",
		Min:              f64(0.0),
		Max:              f64(1.0),
		Default:          float64(0.75),
		Step:             f64(0.05),
		ImageToImageOnly: true,
		Help:             "Higher = more changes, Lower = closer to original",
	})

	return &entity.ParameterSchema{
		ID:          "sdxl",
		Name:        "Stable Diffusion XL",
		Description: "High-quality image generation, 7GB VRAM",
		Features:    []entity.Feature{entity.FeatureText2Img, entity.FeatureImg2Img},
		Parameters:  params,
	}
}

// fluxSchema FLUX.1-dev 参数纲要
func fluxSchema() *entity.ParameterSchema {
	params := entity.NewParameterMap()
	params.Set("prompt", &entity.ParameterSpec{
		Kind:        entity.ParamKindText,
		Label:       "Prompt",
		Required:    true,
		Placeholder: "A beautiful landscape with mountains and a lake at sunset...",
		Rows:        4,
	})
	params.Set("width", &entity.ParameterSpec{
		Kind:    entity.ParamKindNumber,
		Label:   "Width",
		Min:     f64(512),
		Max:     f64(2048),
		Default: float64(1024),
		Step:    f64(16),
		Presets: dimensionPresets,
	})
	params.Set("height", &entity.ParameterSpec{
		Kind:    entity.ParamKindNumber,
		Label:   "Height",
		Min:     f64(512),
		Max:     f64(2048),
		Default: float64(1024),
		Step:    f64(16),
		Presets: dimensionPresets,
	})
	params.Set("num_images", &entity.ParameterSpec{
		Kind:    entity.ParamKindNumber,
		Label:   "Number of Images",
		Min:     f64(1),
		Max:     f64(4),
		Default: float64(1),
		Help:    "Generate multiple images at once",
	})
	params.Set("steps", &entity.ParameterSpec{
		Kind:    entity.ParamKindNumber,
		Label:   "Inference Steps",
		Min:     f64(10),
		Max:     f64(50),
		Default: float64(28),
		Help:    "More steps = better quality but slower (28-30 recommended)",
	})
	params.Set("guidance", &entity.ParameterSpec{
		Kind:    entity.ParamKindNumber,
		Label:   "Guidance",
		Min:     f64(1.0),
		Max:     f64(5.0),
		Default: float64(3.5),
		Step:    f64(0.1),
		Help:    "FLUX guidance strength (3.5 recommended)",
	})
	params.Set("seed", &entity.ParameterSpec{
		Kind:  entity.ParamKindNumber,
		Label: "Seed",
		Min:   f64(0),
		Max:   f64(999999999),
		Help:  "Random seed for reproducibility",
	})
	params.Set("denoising_strength", &entity.ParameterSpec{
		Kind:             entity.ParamKindNumber,
		Label:            "Denoising Strength",
		Min:              f64(0.0),
		Max:              f64(1.0),
		Default:          float64(0.75),
		Step:             f64(0.05),
		ImageToImageOnly: true,
		Help:             "Higher = more changes, Lower = closer to original",
	})
	params.Set("tiled", &entity.ParameterSpec{
		Kind:     entity.ParamKindBoolean,
		Label:    "Tiled Generation",
		Default:  false,
		Advanced: true,
		Help:     "Enable for large images to reduce VRAM usage",
	})

	return &entity.ParameterSchema{
		ID:          "flux",
		Name:        "FLUX.1-dev",
		Description: "State-of-the-art quality, 24GB VRAM (or 8GB with offload)",
		Features:    []entity.Feature{entity.FeatureText2Img, entity.FeatureImg2Img},
		Parameters:  params,
	}
}
