/*
 * @module api/controllers/health_controller
 * @description 健康检查控制器，提供服务存活与依赖就绪状态检查
 * @architecture MVC架构 - 控制器层
 * @documentReference DESIGN.md
 * @stateFlow HTTP请求处理流程
 * @rules 存活检查不访问依赖；就绪检查数据库失败时返回503，Redis为可选依赖只报告状态
 * @dependencies github.com/go-chi/render
 * @refs api/routes.go
 */

package controllers

import (
	"agent-datahub/client"
	"agent-datahub/service"
	"context"
	"net/http"
	"time"

	"github.com/go-chi/render"
)

const serviceName = "agent-datahub"

// HealthController 健康检查控制器
type HealthController struct{}

// NewHealthController 创建健康检查控制器实例
func NewHealthController() *HealthController {
	return &HealthController{}
}

// HealthResponse 健康检查响应结构
type HealthResponse struct {
	Status    string                 `json:"status" example:"ok"`
	Timestamp time.Time              `json:"timestamp" example:"2024-01-01T00:00:00Z"`
	Version   string                 `json:"version" example:"1.0.0"`
	Service   string                 `json:"service" example:"agent-datahub"`
	Checks    map[string]string      `json:"checks,omitempty"`
	Clients   map[string]interface{} `json:"clients,omitempty"`
}

// Health 健康检查
// @Summary 健康检查
// @Description 检查服务健康状态
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Service:   serviceName,
	}

	render.JSON(w, r, response)
}

// Ready 就绪检查
// @Summary 就绪检查
// @Description 检查数据库与Redis连接，并返回上游/本地库客户端的请求统计
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /ready [get]
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Service:   serviceName,
		Checks:    map[string]string{},
		Clients:   map[string]interface{}{},
	}

	response.Checks["database"] = "ok"
	if service.DB == nil {
		response.Checks["database"] = "not initialized"
		response.Status = "not ready"
	} else if sqlDB, err := service.DB.DB(); err != nil {
		response.Checks["database"] = err.Error()
		response.Status = "not ready"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		response.Checks["database"] = err.Error()
		response.Status = "not ready"
	}

	switch {
	case service.GlobalRedis == nil:
		response.Checks["redis"] = "disabled"
	default:
		response.Checks["redis"] = "ok"
		if err := service.GlobalRedis.Ping(ctx); err != nil {
			response.Checks["redis"] = err.Error()
		}
	}

	if service.GlobalUpstreamClient != nil {
		st := service.GlobalUpstreamClient.Stats()
		response.Clients["upstream"] = statsView(&st)
	}
	if service.GlobalHubClient != nil {
		st := service.GlobalHubClient.Stats()
		response.Clients["hub"] = statsView(&st)
	}

	if response.Status != "ready" {
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, response)
}

func statsView(s *client.ClientStats) map[string]interface{} {
	return map[string]interface{}{
		"request_count":     s.RequestCount,
		"success_count":     s.SuccessCount,
		"error_count":       s.ErrorCount,
		"last_request_time": s.LastRequestTime,
		"last_error":        s.LastError,
	}
}
