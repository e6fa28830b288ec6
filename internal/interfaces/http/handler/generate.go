package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dee-studio/internal/application/generation"
	"dee-studio/internal/interfaces/http/dto"
	"dee-studio/pkg/errors"
	"dee-studio/pkg/logger"
)

// GenerateHandler 图像生成处理器
// 每个模型家族注册一组路由，modelID 在注册时绑定
type GenerateHandler struct {
	service *generation.Service
}

// NewGenerateHandler 创建图像生成处理器
func NewGenerateHandler(service *generation.Service) *GenerateHandler {
	return &GenerateHandler{service: service}
}

// Generate 文生图端点，JSON 请求体
func (h *GenerateHandler) Generate(modelID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var req dto.GenerateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			dto.BadRequest(c, "invalid request body: "+err.Error())
			return
		}

		result, err := h.service.Generate(ctx, req.ToEntity(modelID))
		if err != nil {
			logger.Error(ctx, "generation failed", err, "model", modelID)
			dto.WriteError(c, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// Transform 图生图端点，multipart 表单携带源图像
func (h *GenerateHandler) Transform(modelID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var form dto.TransformForm
		if err := c.ShouldBind(&form); err != nil {
			dto.BadRequest(c, "invalid form data: "+err.Error())
			return
		}
		if form.Image == nil {
			dto.WriteError(c, errors.ErrImageRequired)
			return
		}

		req, err := form.ToEntity(modelID)
		if err != nil {
			dto.BadRequest(c, "failed to read uploaded image: "+err.Error())
			return
		}

		result, err := h.service.Generate(ctx, req)
		if err != nil {
			logger.Error(ctx, "transform failed", err, "model", modelID)
			dto.WriteError(c, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}
