package handler

import (
	"github.com/gin-gonic/gin"

	"dee-studio/internal/infrastructure/artifact"
	"dee-studio/internal/interfaces/http/dto"
	"dee-studio/pkg/metrics"
)

// ArtifactHandler 制品检索处理器
type ArtifactHandler struct {
	store *artifact.Store
}

// NewArtifactHandler 创建制品检索处理器
func NewArtifactHandler(store *artifact.Store) *ArtifactHandler {
	return &ArtifactHandler{store: store}
}

// Serve 按文件名返回制品原始字节
// 无鉴权：制品 URL 即分享链接
func (h *ArtifactHandler) Serve(c *gin.Context) {
	filename := c.Param("filename")

	path, err := h.store.Path(filename)
	if err != nil {
		metrics.ArtifactServedTotal.WithLabelValues("miss").Inc()
		dto.WriteError(c, err)
		return
	}

	metrics.ArtifactServedTotal.WithLabelValues("ok").Inc()
	c.File(path)
}
