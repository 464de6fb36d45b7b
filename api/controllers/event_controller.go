/*
 * @module api/controllers/event_controller
 * @description 进度事件控制器，提供SSE实时推送与持久化事件回放
 * @architecture RESTful API架构 - 控制器层
 * @documentReference DESIGN.md
 * @stateFlow SSE: 建立连接 -> 推送connected -> 循环推送进度事件 -> 断开清理
 * @rules 每个连接独立缓冲队列；客户端断开或服务端移除连接时结束
 * @dependencies agent-datahub/service, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/event/progress_hub.go
 */

package controllers

import (
	"agent-datahub/service"
	"agent-datahub/service/event"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

// EventController 进度事件控制器
type EventController struct {
	hub *event.ProgressHub
}

// NewEventController 创建事件控制器实例
func NewEventController() *EventController {
	return &EventController{
		hub: service.GlobalProgressHub,
	}
}

// HandleSSE 处理SSE连接
// @Summary 建立SSE连接
// @Description 前端页面通过此接口建立SSE连接，实时接收同步进度事件
// @Tags 事件管理
// @Param user_name path string true "用户名"
// @Success 200 {string} string "SSE事件流"
// @Router /sse/{user_name} [get]
func (c *EventController) HandleSSE(w http.ResponseWriter, r *http.Request) {
	userName := chi.URLParam(r, "user_name")
	if userName == "" {
		http.Error(w, "用户名不能为空", http.StatusBadRequest)
		return
	}

	// 设置SSE响应头
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Cache-Control")

	connectionID := uuid.New().String()
	clientIP := r.RemoteAddr
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		clientIP = forwarded
	}

	client := c.hub.AddSSEConnection(userName, connectionID, clientIP)
	defer c.hub.RemoveSSEConnection(userName, connectionID)

	fmt.Fprintf(w, "data: {\"type\":\"connected\",\"connection_id\":\"%s\",\"timestamp\":\"%s\"}\n\n",
		connectionID, time.Now().Format(time.RFC3339))
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	for {
		select {
		case evt := <-client.Channel:
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Step, toJSON(evt))
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}

		case <-client.Done:
			return

		case <-r.Context().Done():
			return
		}
	}
}

// ListRunEvents 查询运行的进度事件
// @Summary 查询运行的进度事件
// @Description 按时间顺序返回某次运行持久化的进度事件，用于断线后回放
// @Tags 事件管理
// @Produce json
// @Param run_id query string true "运行ID"
// @Param limit query int false "最大条数" default(1000)
// @Success 200 {object} APIResponse{data=[]models.SyncProgressEvent}
// @Failure 400 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /sync/events [get]
func (c *EventController) ListRunEvents(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		writeError(w, r, BadRequestResponse("run_id不能为空", nil))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := c.hub.ListRunEvents(runID, limit)
	if err != nil {
		writeError(w, r, InternalErrorResponse("查询进度事件失败", err))
		return
	}
	render.JSON(w, r, SuccessResponse("查询成功", events))
}

func toJSON(v interface{}) string {
	data, _ := json.Marshal(v)
	return string(data)
}
