// Package handler 提供 HTTP 请求处理器
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dee-studio/internal/application/catalog"
	"dee-studio/internal/interfaces/http/dto"
	"dee-studio/pkg/logger"
)

// ModelsHandler 模型目录处理器
type ModelsHandler struct {
	catalog *catalog.Service
}

// NewModelsHandler 创建模型目录处理器
func NewModelsHandler(cat *catalog.Service) *ModelsHandler {
	return &ModelsHandler{catalog: cat}
}

// Config 返回模型目录
// 响应体为目录 JSON 本身：{models: [...], default_model}
func (h *ModelsHandler) Config(c *gin.Context) {
	ctx := c.Request.Context()

	data, err := h.catalog.CatalogJSON(ctx)
	if err != nil {
		logger.Error(ctx, "failed to build model catalog", err)
		dto.WriteError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}
