package client

import (
	"fmt"
	"strings"

	"dee-studio/internal/domain/entity"
	"dee-studio/pkg/errors"
)

// UI 开关键，只存在于表单状态，永不进入请求
const (
	ToggleShowAdvanced = "show_advanced"
	ToggleUseFixedSeed = "use_fixed_seed"
	toggleShowPrefix   = "show_"
)

// ControlType 控件类型
type ControlType string

const (
	ControlSelect      ControlType = "select"
	ControlSlider      ControlType = "slider"
	ControlNumberInput ControlType = "number_input"
	ControlTextArea    ControlType = "text_area"
	ControlToggle      ControlType = "toggle"
)

// sliderLabelHints 连续参数家族的标签特征，命中即渲染为滑杆
var sliderLabelHints = []string{"steps", "cfg", "guidance", "strength"}

// Control 一个可渲染的表单控件，由参数纲要推导
type Control struct {
	Type        ControlType
	Key         string
	Label       string
	Required    bool
	Help        string
	Placeholder string

	// 数值控件
	Min     float64
	Max     float64
	Step    float64
	Presets []float64

	// 文本控件
	Rows        int
	Collapsible bool
}

// ControlSet 可见控件的分组列表
// Advanced 仅在 show_advanced 开启时填充
type ControlSet struct {
	Basic    []Control
	Advanced []Control
}

// Form 纲要驱动的表单引擎
// 状态归属于当前会话的当前模型，切换模型即重建
type Form struct {
	schema *entity.ParameterSchema
	mode   entity.Mode
	state  map[string]any

	imageName string
	image     []byte
}

// NewForm 从一个模型纲要构建表单，状态初始化为纲要默认值
func NewForm(schema *entity.ParameterSchema, mode entity.Mode) *Form {
	f := &Form{
		schema: schema,
		mode:   mode,
	}
	f.Reset()
	return f
}

// Reset 将状态重置为纲要默认值，丢弃所有编辑
// 初始状态恰好包含带默认值的参数键，类型与参数 kind 一致
func (f *Form) Reset() {
	f.state = make(map[string]any)
	f.image = nil
	f.imageName = ""

	if f.schema.Parameters == nil {
		return
	}
	for pair := f.schema.Parameters.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Default == nil {
			continue
		}
		f.state[pair.Key] = pair.Value.Default
	}
}

// Schema 返回驱动本表单的纲要
func (f *Form) Schema() *entity.ParameterSchema {
	return f.schema
}

// Mode 返回表单的生成模式
func (f *Form) Mode() entity.Mode {
	return f.mode
}

// Set 写入一个参数值或 UI 开关，值类型必须与参数 kind 匹配
func (f *Form) Set(key string, value any) error {
	if isToggleKey(key) {
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("toggle %q requires a bool, got %T", key, value)
		}
		f.state[key] = value
		return nil
	}

	spec, ok := f.schema.Param(key)
	if !ok {
		return fmt.Errorf("unknown parameter: %s", key)
	}

	switch spec.Kind {
	case entity.ParamKindText:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("parameter %q requires a string, got %T", key, value)
		}
	case entity.ParamKindNumber:
		switch v := value.(type) {
		case float64:
		case int:
			value = float64(v)
		case int64:
			value = float64(v)
		default:
			return fmt.Errorf("parameter %q requires a number, got %T", key, value)
		}
	case entity.ParamKindBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("parameter %q requires a bool, got %T", key, value)
		}
	default:
		return fmt.Errorf("parameter %q has unsupported kind %q", key, spec.Kind)
	}

	f.state[key] = value
	return nil
}

// Value 读取一个状态值
func (f *Form) Value(key string) (any, bool) {
	v, ok := f.state[key]
	return v, ok
}

// SetImage 设置图生图的源图像
func (f *Form) SetImage(name string, data []byte) {
	f.imageName = name
	f.image = data
}

// Image 返回已上传的源图像
func (f *Form) Image() (string, []byte) {
	return f.imageName, f.image
}

// Controls 从纲要推导当前可见的控件列表
// 控件类型集合封闭，未知参数 kind 属于纲要错误而非静默跳过
func (f *Form) Controls() (*ControlSet, error) {
	set := &ControlSet{}
	if f.schema.Parameters == nil {
		return set, nil
	}

	showAdvanced, _ := f.state[ToggleShowAdvanced].(bool)

	for pair := f.schema.Parameters.Oldest(); pair != nil; pair = pair.Next() {
		key, spec := pair.Key, pair.Value

		// 图生图专属参数只在图生图模式下可见
		if spec.ImageToImageOnly && f.mode != entity.ModeImg2Img {
			continue
		}

		// 折叠文本：开关未开时不渲染
		if spec.Collapsible {
			if shown, _ := f.state[toggleShowPrefix+key].(bool); !shown {
				continue
			}
		}

		ctrl, err := buildControl(key, spec)
		if err != nil {
			return nil, err
		}

		if spec.Advanced {
			if showAdvanced {
				set.Advanced = append(set.Advanced, ctrl)
			}
			continue
		}
		set.Basic = append(set.Basic, ctrl)
	}

	return set, nil
}

// Validate 提交前的本地校验，失败时请求不应发出
func (f *Form) Validate() error {
	prompt, _ := f.state["prompt"].(string)
	if strings.TrimSpace(prompt) == "" {
		return errors.ErrPromptRequired
	}
	if f.mode == entity.ModeImg2Img && len(f.image) == 0 {
		return errors.ErrImageRequired
	}
	return nil
}

// buildControl 由单个参数描述推导控件
func buildControl(key string, spec *entity.ParameterSpec) (Control, error) {
	ctrl := Control{
		Key:         key,
		Label:       spec.Label,
		Required:    spec.Required,
		Help:        spec.Help,
		Placeholder: spec.Placeholder,
		Rows:        spec.Rows,
		Collapsible: spec.Collapsible,
	}

	switch spec.Kind {
	case entity.ParamKindText:
		ctrl.Type = ControlTextArea

	case entity.ParamKindNumber:
		ctrl.Min = deref(spec.Min)
		ctrl.Max = deref(spec.Max)
		ctrl.Step = deref(spec.Step)
		if ctrl.Step == 0 {
			ctrl.Step = 1
		}

		switch {
		case len(spec.Presets) > 0:
			// 离散档位优先，min/max/step 不参与控件选择
			ctrl.Type = ControlSelect
			ctrl.Presets = spec.Presets
		case matchesSliderFamily(spec.Label):
			ctrl.Type = ControlSlider
		default:
			ctrl.Type = ControlNumberInput
		}

	case entity.ParamKindBoolean:
		ctrl.Type = ControlToggle

	default:
		return Control{}, errors.New(errors.CodeSchemaUnavailable,
			fmt.Sprintf("schema error: parameter %q has unknown kind %q", key, spec.Kind))
	}

	return ctrl, nil
}

// matchesSliderFamily 判断标签是否属于连续参数家族
func matchesSliderFamily(label string) bool {
	lower := strings.ToLower(label)
	for _, hint := range sliderLabelHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

func isToggleKey(key string) bool {
	return key == ToggleUseFixedSeed || strings.HasPrefix(key, toggleShowPrefix)
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
