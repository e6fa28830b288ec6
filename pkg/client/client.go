// Package client 提供生成服务的 Go 客户端：
// 目录获取、纲要驱动的表单、请求构建与生成网关。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"dee-studio/internal/domain/entity"
	"dee-studio/pkg/errors"
)

// Client 生成服务网关
// 生成调用不设超时：单次生成可长达数分钟，取消只经由 ctx
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient 创建客户端
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// FetchCatalog 拉取模型目录
func (c *Client) FetchCatalog(ctx context.Context) (*entity.ModelCatalog, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models/config", nil)
	if err != nil {
		return nil, errors.ErrSchemaUnavailable.WithDetail(err.Error()).WithError(err)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.ErrSchemaUnavailable.WithDetail(err.Error()).WithError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, errors.ErrSchemaUnavailable.WithDetail(readErrorReason(httpResp))
	}

	var catalog entity.ModelCatalog
	if err := json.NewDecoder(httpResp.Body).Decode(&catalog); err != nil {
		return nil, errors.ErrSchemaUnavailable.WithDetail("failed to decode catalog: " + err.Error()).WithError(err)
	}
	return &catalog, nil
}

// Generate 提交生成请求并返回归一化结果
// 端点完全由模型 ID 决定；结果中的 seed 以服务端为准，不做任何改写
func (c *Client) Generate(ctx context.Context, req *entity.GenerationRequest) (*entity.GenerationResult, error) {
	var httpReq *http.Request
	var err error

	if req.Mode == entity.ModeImg2Img {
		httpReq, err = c.newTransformRequest(ctx, req)
	} else {
		httpReq, err = c.newGenerateRequest(ctx, req)
	}
	if err != nil {
		return nil, errors.ErrGenerationFailed.WithDetail(err.Error()).WithError(err)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.ErrGenerationFailed.WithDetail(err.Error()).WithError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, errors.ErrGenerationFailed.WithDetail(readErrorReason(httpResp))
	}

	var result entity.GenerationResult
	if err := json.NewDecoder(httpResp.Body).Decode(&result); err != nil {
		return nil, errors.ErrGenerationFailed.WithDetail("failed to decode result: " + err.Error()).WithError(err)
	}
	return &result, nil
}

// newGenerateRequest 文生图：JSON 请求体
func (c *Client) newGenerateRequest(ctx context.Context, req *entity.GenerationRequest) (*http.Request, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/generate", c.baseURL, req.ModelID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return httpReq, nil
}

// newTransformRequest 图生图：multipart，每个已定义字段一个独立分片
func (c *Client) newTransformRequest(ctx context.Context, req *entity.GenerationRequest) (*http.Request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]*string{
		"negative_prompt":    req.NegativePrompt,
		"width":              formatInt(req.Width),
		"height":             formatInt(req.Height),
		"num_images":         formatInt(req.NumImages),
		"steps":              formatInt(req.Steps),
		"cfg_scale":          formatFloat(req.CFGScale),
		"guidance":           formatFloat(req.Guidance),
		"seed":               formatInt64(req.Seed),
		"denoising_strength": formatFloat(req.DenoisingStrength),
		"tiled":              formatBool(req.Tiled),
	}

	if err := w.WriteField("prompt", req.Prompt); err != nil {
		return nil, err
	}
	for key, value := range fields {
		if value == nil {
			continue
		}
		if err := w.WriteField(key, *value); err != nil {
			return nil, err
		}
	}

	name := req.InputImageName
	if name == "" {
		name = "input.png"
	}
	part, err := w.CreateFormFile("image", name)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(req.InputImage); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s/transform", c.baseURL, req.ModelID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())
	return httpReq, nil
}

// readErrorReason 提取失败原因：优先服务端 detail，其次 message，最后状态码
func readErrorReason(resp *http.Response) string {
	var body struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 65536))
	if err == nil && json.Unmarshal(data, &body) == nil {
		if body.Detail != "" {
			return body.Detail
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return fmt.Sprintf("request failed: status=%d", resp.StatusCode)
}

// 数值使用十进制最短表示序列化，覆盖范围内无精度损失

func formatInt(v *int) *string {
	if v == nil {
		return nil
	}
	s := strconv.Itoa(*v)
	return &s
}

func formatInt64(v *int64) *string {
	if v == nil {
		return nil
	}
	s := strconv.FormatInt(*v, 10)
	return &s
}

func formatFloat(v *float64) *string {
	if v == nil {
		return nil
	}
	s := strconv.FormatFloat(*v, 'f', -1, 64)
	return &s
}

func formatBool(v *bool) *string {
	if v == nil {
		return nil
	}
	s := strconv.FormatBool(*v)
	return &s
}
