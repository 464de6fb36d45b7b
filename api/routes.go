/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference DESIGN.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式；变更类接口需要API Key
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs main.go
 */

package api

import (
	"agent-datahub/api/controllers"
	apimw "agent-datahub/api/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由，apiKeyHash 为空时不校验API Key
func InitRoute(r chi.Router, apiKeyHash string) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", apimw.APIKeyHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 健康检查
	healthController := controllers.NewHealthController()
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// SSE事件订阅
	eventController := controllers.NewEventController()
	r.Get("/sse/{user_name}", eventController.HandleSSE)

	// 元数据
	metaController := controllers.NewMetaController()
	r.Get("/meta/sync", metaController.GetSyncMeta)

	// 同步管理
	r.Route("/sync", func(r chi.Router) {
		syncController := controllers.NewSyncController()

		r.Get("/status", syncController.GetStatus)
		r.Get("/status/{endpoint}", syncController.GetEndpointStatus)
		r.Get("/endpoints", syncController.ListEndpoints)
		r.Get("/active", syncController.GetActiveRun)
		r.Get("/runs", syncController.ListRuns)
		r.Get("/runs/{id}", syncController.GetRun)
		r.Get("/events", eventController.ListRunEvents)

		r.Group(func(r chi.Router) {
			r.Use(apimw.APIKeyAuth(apiKeyHash))
			r.Post("/run", syncController.StartRun)
			r.Post("/run/{endpoint}", syncController.StartEndpointRun)
			r.Post("/runs/{id}/abort", syncController.AbortRun)
			r.Post("/verify/{endpoint}", syncController.VerifyEndpoint)
		})
	})
}
