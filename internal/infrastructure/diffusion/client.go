// Package diffusion 提供扩散推理工作进程的 HTTP 客户端
package diffusion

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dee-studio/internal/application/generation"
	"dee-studio/internal/config"
	"dee-studio/internal/domain/entity"
	"dee-studio/pkg/errors"
	"dee-studio/pkg/metrics"
)

// Client 单个模型工作进程的客户端，实现 generation.Pipeline
type Client struct {
	modelID    string
	endpoint   string
	httpClient *http.Client
}

type renderRequest struct {
	Mode              string  `json:"mode"`
	Prompt            string  `json:"prompt"`
	NegativePrompt    string  `json:"negative_prompt,omitempty"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	Steps             int     `json:"steps"`
	CFGScale          float64 `json:"cfg_scale,omitempty"`
	Guidance          float64 `json:"guidance,omitempty"`
	Seed              int64   `json:"seed"`
	Tiled             bool    `json:"tiled,omitempty"`
	DenoisingStrength float64 `json:"denoising_strength,omitempty"`
	InputImage        string  `json:"input_image,omitempty"`
}

type renderResponse struct {
	Image string `json:"image"`
}

type workerError struct {
	Detail string `json:"detail"`
}

// NewClient 创建工作进程客户端
// 渲染耗时以分钟计，超时取自配置而非通用默认值
func NewClient(modelID string, cfg config.ModelEntryConfig) *Client {
	timeout := cfg.WorkerTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Client{
		modelID:  modelID,
		endpoint: strings.TrimRight(cfg.WorkerEndpoint, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var _ generation.Pipeline = (*Client)(nil)

// Render 将渲染任务提交给工作进程并返回 PNG 字节
func (c *Client) Render(ctx context.Context, job generation.RenderJob) ([]byte, error) {
	start := time.Now()
	image, err := c.doRender(ctx, job)
	metrics.WorkerCallDuration.WithLabelValues(c.modelID).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.WorkerCallTotal.WithLabelValues(c.modelID, "error").Inc()
		return nil, err
	}
	metrics.WorkerCallTotal.WithLabelValues(c.modelID, "ok").Inc()
	return image, nil
}

func (c *Client) doRender(ctx context.Context, job generation.RenderJob) ([]byte, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("worker endpoint is empty for model %s", c.modelID)
	}

	req := &renderRequest{
		Mode:              string(job.Mode),
		Prompt:            job.Prompt,
		NegativePrompt:    job.NegativePrompt,
		Width:             job.Width,
		Height:            job.Height,
		Steps:             job.Steps,
		CFGScale:          job.CFGScale,
		Guidance:          job.Guidance,
		Seed:              job.Seed,
		Tiled:             job.Tiled,
		DenoisingStrength: job.DenoisingStrength,
	}
	if job.Mode == entity.ModeImg2Img {
		req.InputImage = base64.StdEncoding.EncodeToString(job.InputImage)
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal render request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/render", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create render request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("render request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		var we workerError
		if decodeErr := json.NewDecoder(httpResp.Body).Decode(&we); decodeErr == nil && we.Detail != "" {
			return nil, errors.New(errors.CodeWorkerError, "worker rejected render request").WithDetail(we.Detail)
		}
		return nil, errors.New(errors.CodeWorkerError,
			fmt.Sprintf("render request failed: status=%d", httpResp.StatusCode))
	}

	var resp renderResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode render response: %w", err)
	}

	image, err := base64.StdEncoding.DecodeString(resp.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to decode rendered image: %w", err)
	}
	return image, nil
}

// Healthy 探测工作进程是否可达
func (c *Client) Healthy(ctx context.Context) bool {
	if c.endpoint == "" {
		return false
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/health", nil)
	if err != nil {
		return false
	}
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return false
	}
	defer httpResp.Body.Close()
	return httpResp.StatusCode == http.StatusOK
}
