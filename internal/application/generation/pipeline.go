// Package generation 提供服务端生成编排
package generation

import (
	"context"

	"dee-studio/internal/domain/entity"
)

// RenderJob 一次单图渲染任务，参数已按纲要默认值补齐
type RenderJob struct {
	ModelID           string
	Mode              entity.Mode
	Prompt            string
	NegativePrompt    string
	Width             int
	Height            int
	Steps             int
	CFGScale          float64
	Guidance          float64
	Seed              int64
	Tiled             bool
	DenoisingStrength float64
	InputImage        []byte
}

// Pipeline 不透明的图像生成能力：参数进，图像字节出
// 扩散采样、显存调度等均在实现侧，本层不感知
type Pipeline interface {
	Render(ctx context.Context, job RenderJob) ([]byte, error)
}

// Registry 按模型 ID 路由到对应的生成能力
// 新增模型家族只需注册新条目，不需要改动编排逻辑
type Registry struct {
	pipelines map[string]Pipeline
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{pipelines: make(map[string]Pipeline)}
}

// Register 注册一个模型家族的生成能力
func (r *Registry) Register(modelID string, p Pipeline) {
	r.pipelines[modelID] = p
}

// Lookup 按模型 ID 查找生成能力
func (r *Registry) Lookup(modelID string) (Pipeline, bool) {
	p, ok := r.pipelines[modelID]
	return p, ok
}
