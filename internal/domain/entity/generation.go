package entity

// Mode 生成模式
type Mode string

const (
	ModeText2Img Mode = "text2img"
	ModeImg2Img  Mode = "img2img"
)

// GenerationRequest 生成请求的线上形态
// 可选字段使用指针：nil 表示完全省略，由服务端按纲要默认值补齐
type GenerationRequest struct {
	ModelID           string   `json:"-"`
	Mode              Mode     `json:"-"`
	Prompt            string   `json:"prompt"`
	NegativePrompt    *string  `json:"negative_prompt,omitempty"`
	Width             *int     `json:"width,omitempty"`
	Height            *int     `json:"height,omitempty"`
	NumImages         *int     `json:"num_images,omitempty"`
	Steps             *int     `json:"steps,omitempty"`
	CFGScale          *float64 `json:"cfg_scale,omitempty"`
	Guidance          *float64 `json:"guidance,omitempty"`
	Seed              *int64   `json:"seed,omitempty"`
	DenoisingStrength *float64 `json:"denoising_strength,omitempty"`
	Tiled             *bool    `json:"tiled,omitempty"`

	// 图生图模式的源图像，仅通过 multipart 传输
	InputImage     []byte `json:"-"`
	InputImageName string `json:"-"`
}

// ImageArtifact 一张已持久化的生成图像
type ImageArtifact struct {
	// InlineData 自包含的 data URL，用于立即展示
	InlineData string `json:"inline_data"`
	// URL 相对生成服务自身地址的稳定检索路径
	URL string `json:"url"`
	// Filename 进程生命周期内唯一的文件名
	Filename string `json:"filename"`
}

// GenerationResult 归一化的生成结果
// Seed 以结果为准：客户端未指定种子时由服务端随机解析并回报
type GenerationResult struct {
	Images         []ImageArtifact `json:"images"`
	Seed           int64           `json:"seed"`
	GenerationTime float64         `json:"generation_time"`
}
