// Package entity 定义领域实体
package entity

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ParamKind 参数类型，封闭集合：渲染端必须穷尽处理
type ParamKind string

const (
	ParamKindText    ParamKind = "text"
	ParamKindNumber  ParamKind = "number"
	ParamKindBoolean ParamKind = "boolean"
)

// Feature 模型能力标签
type Feature string

const (
	FeatureText2Img Feature = "text2img"
	FeatureImg2Img  Feature = "img2img"
)

// ParameterSpec 单个参数的声明式描述
// 数值参数若给出 Presets，则 Min/Max/Step 不参与控件选择
type ParameterSpec struct {
	Kind             ParamKind `json:"type"`
	Label            string    `json:"label"`
	Required         bool      `json:"required,omitempty"`
	Default          any       `json:"default,omitempty"`
	Min              *float64  `json:"min,omitempty"`
	Max              *float64  `json:"max,omitempty"`
	Step             *float64  `json:"step,omitempty"`
	Placeholder      string    `json:"placeholder,omitempty"`
	Rows             int       `json:"rows,omitempty"`
	Collapsible      bool      `json:"collapsible,omitempty"`
	Presets          []float64 `json:"presets,omitempty"`
	Advanced         bool      `json:"advanced,omitempty"`
	ImageToImageOnly bool      `json:"img2img_only,omitempty"`
	Help             string    `json:"help,omitempty"`
}

// ParameterMap 参数键到 ParameterSpec 的有序映射，插入顺序即展示顺序
type ParameterMap = orderedmap.OrderedMap[string, *ParameterSpec]

// NewParameterMap 创建空的参数映射
func NewParameterMap() *ParameterMap {
	return orderedmap.New[string, *ParameterSpec]()
}

// ParameterSchema 单个模型的参数纲要，由服务端产出、客户端只读消费
type ParameterSchema struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Available   bool          `json:"available"`
	Features    []Feature     `json:"features"`
	Parameters  *ParameterMap `json:"parameters"`
}

// HasFeature 检查模型是否具备某能力
func (s *ParameterSchema) HasFeature(f Feature) bool {
	for _, feature := range s.Features {
		if feature == f {
			return true
		}
	}
	return false
}

// Param 按键查找参数描述
func (s *ParameterSchema) Param(key string) (*ParameterSpec, bool) {
	if s.Parameters == nil {
		return nil, false
	}
	return s.Parameters.Get(key)
}

// ModelCatalog 模型目录：全部模型纲要加默认模型
type ModelCatalog struct {
	Models       []*ParameterSchema `json:"models"`
	DefaultModel string             `json:"default_model"`
}

// Schema 按模型 ID 查找纲要
func (c *ModelCatalog) Schema(modelID string) (*ParameterSchema, bool) {
	for _, m := range c.Models {
		if m.ID == modelID {
			return m, true
		}
	}
	return nil, false
}
