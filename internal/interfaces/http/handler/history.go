package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dee-studio/internal/domain/entity"
	"dee-studio/internal/domain/repository"
	"dee-studio/internal/interfaces/http/dto"
	"dee-studio/pkg/logger"
)

// HistoryHandler 生成历史处理器
// 仓储未配置时端点仍可用，返回空列表
type HistoryHandler struct {
	records repository.GenerationRecordRepository
}

// NewHistoryHandler 创建生成历史处理器
func NewHistoryHandler(records repository.GenerationRecordRepository) *HistoryHandler {
	return &HistoryHandler{records: records}
}

type historyResponse struct {
	Generations []*entity.GenerationRecord `json:"generations"`
}

// List 列出最近的生成记录
func (h *HistoryHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	// 参数校验先于仓储判断，未接数据库时非法 limit 同样报错
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			dto.BadRequest(c, "limit must be an integer between 1 and 500")
			return
		}
		limit = n
	}

	if h.records == nil {
		c.JSON(http.StatusOK, historyResponse{Generations: []*entity.GenerationRecord{}})
		return
	}

	records, err := h.records.ListRecent(ctx, limit)
	if err != nil {
		logger.Error(ctx, "failed to list generation history", err)
		dto.InternalError(c, "failed to list generation history")
		return
	}
	if records == nil {
		records = []*entity.GenerationRecord{}
	}

	c.JSON(http.StatusOK, historyResponse{Generations: records})
}

// Get 按制品文件名回查生成记录
// 分享出去的图像链接可以反查到当时的生成参数
func (h *HistoryHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	filename := c.Param("filename")

	if h.records == nil {
		dto.NotFound(c, "generation history is not enabled")
		return
	}

	record, err := h.records.GetByFilename(ctx, filename)
	if err != nil {
		logger.Error(ctx, "failed to look up generation record", err, "filename", filename)
		dto.InternalError(c, "failed to look up generation record")
		return
	}
	if record == nil {
		dto.NotFound(c, "no generation found for artifact "+filename)
		return
	}

	c.JSON(http.StatusOK, record)
}
