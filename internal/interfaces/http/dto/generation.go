package dto

import (
	"io"
	"mime/multipart"

	"dee-studio/internal/domain/entity"
)

// GenerateRequest 文生图请求体
// 指针字段缺省时由服务端按模型纲要默认值补齐
type GenerateRequest struct {
	Prompt            string   `json:"prompt"`
	NegativePrompt    *string  `json:"negative_prompt"`
	Width             *int     `json:"width"`
	Height            *int     `json:"height"`
	NumImages         *int     `json:"num_images"`
	Steps             *int     `json:"steps"`
	CFGScale          *float64 `json:"cfg_scale"`
	Guidance          *float64 `json:"guidance"`
	Seed              *int64   `json:"seed"`
	Tiled             *bool    `json:"tiled"`
	DenoisingStrength *float64 `json:"denoising_strength"`
}

// ToEntity 转换为领域请求
func (r *GenerateRequest) ToEntity(modelID string) *entity.GenerationRequest {
	return &entity.GenerationRequest{
		ModelID:           modelID,
		Mode:              entity.ModeText2Img,
		Prompt:            r.Prompt,
		NegativePrompt:    r.NegativePrompt,
		Width:             r.Width,
		Height:            r.Height,
		NumImages:         r.NumImages,
		Steps:             r.Steps,
		CFGScale:          r.CFGScale,
		Guidance:          r.Guidance,
		Seed:              r.Seed,
		Tiled:             r.Tiled,
		DenoisingStrength: r.DenoisingStrength,
	}
}

// TransformForm 图生图请求，multipart 表单
// 数值参数以十进制字符串离散出现在各自的表单项中
type TransformForm struct {
	Prompt            string                `form:"prompt"`
	NegativePrompt    *string               `form:"negative_prompt"`
	Width             *int                  `form:"width"`
	Height            *int                  `form:"height"`
	NumImages         *int                  `form:"num_images"`
	Steps             *int                  `form:"steps"`
	CFGScale          *float64              `form:"cfg_scale"`
	Guidance          *float64              `form:"guidance"`
	Seed              *int64                `form:"seed"`
	Tiled             *bool                 `form:"tiled"`
	DenoisingStrength *float64              `form:"denoising_strength"`
	Image             *multipart.FileHeader `form:"image"`
}

// ToEntity 转换为领域请求，读入上传的源图像
func (f *TransformForm) ToEntity(modelID string) (*entity.GenerationRequest, error) {
	req := &entity.GenerationRequest{
		ModelID:           modelID,
		Mode:              entity.ModeImg2Img,
		Prompt:            f.Prompt,
		NegativePrompt:    f.NegativePrompt,
		Width:             f.Width,
		Height:            f.Height,
		NumImages:         f.NumImages,
		Steps:             f.Steps,
		CFGScale:          f.CFGScale,
		Guidance:          f.Guidance,
		Seed:              f.Seed,
		Tiled:             f.Tiled,
		DenoisingStrength: f.DenoisingStrength,
	}

	if f.Image != nil {
		file, err := f.Image.Open()
		if err != nil {
			return nil, err
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return nil, err
		}
		req.InputImage = data
		req.InputImageName = f.Image.Filename
	}

	return req, nil
}
