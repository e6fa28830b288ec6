package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dee-studio/internal/application/catalog"
	"dee-studio/internal/infrastructure/persistence/postgres"
	"dee-studio/internal/infrastructure/persistence/redis"
)

// WorkerProber 工作进程可达性探测
type WorkerProber interface {
	Healthy(ctx context.Context) bool
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	catalog *catalog.Service
	probers map[string]WorkerProber
	pg      *postgres.Client
	redis   *redis.Client
}

// NewHealthHandler 创建健康检查处理器
// pg 和 redis 均可为 nil，nil 的依赖不参与就绪判定
func NewHealthHandler(cat *catalog.Service, probers map[string]WorkerProber, pg *postgres.Client, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{
		catalog: cat,
		probers: probers,
		pg:      pg,
		redis:   redisClient,
	}
}

type modelHealth struct {
	Available bool `json:"available"`
	Loaded    bool `json:"loaded"`
}

type healthResponse struct {
	Status string                 `json:"status"`
	Models map[string]modelHealth `json:"models"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查：服务状态与每个模型的可用性及加载状态
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	models := map[string]modelHealth{}
	cat, err := h.catalog.Catalog(ctx)
	if err == nil {
		for _, schema := range cat.Models {
			mh := modelHealth{Available: schema.Available}
			if prober, ok := h.probers[schema.ID]; ok && schema.Available {
				mh.Loaded = prober.Healthy(ctx)
			}
			models[schema.ID] = mh
		}
	}

	c.JSON(http.StatusOK, healthResponse{
		Status: "ok",
		Models: models,
	})
}

// Ready 就绪检查：可选依赖未配置时不参与判定
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]*readinessCheck{}
	ready := true

	if h.pg != nil {
		check := &readinessCheck{}
		start := time.Now()
		err := h.pg.HealthCheck(ctx)
		check.LatencyMs = time.Since(start).Milliseconds()
		if err != nil {
			check.Status = "error"
			check.Error = err.Error()
			ready = false
		} else {
			check.Status = "ok"
		}
		checks["postgres"] = check
	} else {
		checks["postgres"] = &readinessCheck{Status: "disabled"}
	}

	if h.redis != nil {
		check := &readinessCheck{}
		start := time.Now()
		err := h.redis.HealthCheck(ctx)
		check.LatencyMs = time.Since(start).Milliseconds()
		if err != nil {
			check.Status = "error"
			check.Error = err.Error()
			ready = false
		} else {
			check.Status = "ok"
		}
		checks["redis"] = check
	} else {
		checks["redis"] = &readinessCheck{Status: "disabled"}
	}

	resp := readinessResponse{
		Status: "ok",
		Checks: checks,
	}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Live 存活检查
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
