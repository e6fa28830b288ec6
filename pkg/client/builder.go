package client

import (
	"dee-studio/internal/domain/entity"
)

// sharedFields 所有模型家族共用的请求字段
var sharedFields = []string{"prompt", "width", "height", "num_images", "steps"}

// modelFields 每个家族额外允许的字段
// 新增家族只需在此表加一行，不需要改动构建逻辑
var modelFields = map[string][]string{
	"sdxl": {"negative_prompt", "cfg_scale"},
	"flux": {"guidance", "tiled"},
}

// Build 将表单状态投影为模型专属的生成请求
// 纯函数式投影，从不失败：缺失的值直接省略，由服务端按默认值补齐
func Build(f *Form, modelID string) *entity.GenerationRequest {
	req := &entity.GenerationRequest{
		ModelID: modelID,
		Mode:    f.Mode(),
	}

	for _, key := range sharedFields {
		assign(req, f, key)
	}
	for _, key := range modelFields[modelID] {
		// 图生图专属字段在文生图模式下无条件排除
		if spec, ok := f.Schema().Param(key); ok && spec.ImageToImageOnly && f.Mode() != entity.ModeImg2Img {
			continue
		}
		assign(req, f, key)
	}

	// seed 仅在固定种子开关开启时进入请求，开关关闭时绝不泄漏残留值
	if fixed, _ := f.state[ToggleUseFixedSeed].(bool); fixed {
		if v, ok := f.state["seed"].(float64); ok {
			seed := int64(v)
			req.Seed = &seed
		}
	}

	if f.Mode() == entity.ModeImg2Img {
		assign(req, f, "denoising_strength")
		req.InputImageName, req.InputImage = f.Image()
	}

	return req
}

// assign 把一个状态值填入请求的对应字段，值缺失或键未知时静默省略
func assign(req *entity.GenerationRequest, f *Form, key string) {
	value, ok := f.state[key]
	if !ok {
		return
	}

	switch key {
	case "prompt":
		if s, ok := value.(string); ok {
			req.Prompt = s
		}
	case "negative_prompt":
		if s, ok := value.(string); ok {
			req.NegativePrompt = &s
		}
	case "width":
		req.Width = toInt(value)
	case "height":
		req.Height = toInt(value)
	case "num_images":
		req.NumImages = toInt(value)
	case "steps":
		req.Steps = toInt(value)
	case "cfg_scale":
		req.CFGScale = toFloat(value)
	case "guidance":
		req.Guidance = toFloat(value)
	case "denoising_strength":
		req.DenoisingStrength = toFloat(value)
	case "tiled":
		if b, ok := value.(bool); ok {
			req.Tiled = &b
		}
	}
}

func toInt(value any) *int {
	if v, ok := value.(float64); ok {
		n := int(v)
		return &n
	}
	return nil
}

func toFloat(value any) *float64 {
	if v, ok := value.(float64); ok {
		f := v
		return &f
	}
	return nil
}
