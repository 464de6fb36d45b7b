/*
 * @module api/controllers/sync_controller
 * @description 同步控制器：水位查询、启动/中止运行、运行历史、抽样核对
 * @architecture 分层架构 - 控制器层
 * @documentReference DESIGN.md
 * @stateFlow HTTP请求 -> 参数验证 -> 服务调用 -> 响应返回
 * @rules 运行异步执行，接口立即返回运行记录；已有运行时返回409
 * @dependencies agent-datahub/service, agent-datahub/service/sync_engine
 * @refs api/routes.go
 */

package controllers

import (
	"agent-datahub/service"
	"agent-datahub/service/meta"
	"agent-datahub/service/models"
	"agent-datahub/service/sync_engine"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// SyncController 同步控制器
type SyncController struct {
	syncService *service.SyncService
}

// NewSyncController 创建同步控制器
func NewSyncController() *SyncController {
	return &SyncController{
		syncService: service.GlobalSyncService,
	}
}

// StartRunRequest 启动运行请求
type StartRunRequest struct {
	Endpoints []string `json:"endpoints,omitempty" example:"members,bet_order"` // 为空时同步全部端点
}

// VerifyRequest 抽样核对请求，ids 与 records 二选一
type VerifyRequest struct {
	IDs     []interface{} `json:"ids,omitempty"`
	Records []models.Row  `json:"records,omitempty"`
	N       int           `json:"n,omitempty" example:"5"`
}

// EndpointInfo 端点配置信息
type EndpointInfo struct {
	Name             string `json:"name" example:"bet_order"`
	Strategy         string `json:"strategy" example:"date_ranged"`
	SyncURL          string `json:"sync_url,omitempty" example:"/sync/bet-orders"`
	DateParam        string `json:"date_param,omitempty" example:"bet_time"`
	DefaultStart     string `json:"default_start,omitempty"`
	DefaultStartDays int    `json:"default_start_days,omitempty" example:"7"`
	LastDataDate     string `json:"last_data_date,omitempty" example:"2025-03-30"`
}

// GetStatus 查询本地库同步状态
// @Summary 查询同步状态
// @Description 从本地库拉取各端点的最新水位并刷新缓存
// @Tags 同步管理
// @Produce json
// @Success 200 {object} APIResponse{data=map[string]models.SyncStatus}
// @Failure 502 {object} APIResponse "本地库不可用"
// @Router /sync/status [get]
func (c *SyncController) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := c.syncService.Engine().GetStatus(r.Context())
	if err != nil {
		writeError(w, r, ErrorResponse(http.StatusBadGateway, "获取同步状态失败", err))
		return
	}
	render.JSON(w, r, SuccessResponse("查询成功", status))
}

// GetEndpointStatus 查询单个端点的水位
// @Summary 查询端点水位
// @Description 返回端点的最新数据日期，缓存为空时先从本地库刷新
// @Tags 同步管理
// @Produce json
// @Param endpoint path string true "端点名称"
// @Success 200 {object} APIResponse{data=EndpointInfo}
// @Failure 404 {object} APIResponse
// @Router /sync/status/{endpoint} [get]
func (c *SyncController) GetEndpointStatus(w http.ResponseWriter, r *http.Request) {
	engine := c.syncService.Engine()
	name := chi.URLParam(r, "endpoint")
	info, ok := c.endpointInfo(name)
	if !ok || !meta.IsKnownEndpoint(name) {
		writeError(w, r, NotFoundResponse("端点不存在", errors.New(name)))
		return
	}

	if !engine.IsStatusCached() {
		if _, err := engine.GetStatus(r.Context()); err != nil {
			writeError(w, r, ErrorResponse(http.StatusBadGateway, "获取同步状态失败", err))
			return
		}
	}
	info.LastDataDate, _ = engine.GetLastDataDate(name)

	data := map[string]interface{}{"endpoint": info}
	if st, ok := engine.GetEndpointStatus(name); ok {
		data["status"] = st
	}
	render.JSON(w, r, SuccessResponse("查询成功", data))
}

// ListEndpoints 列出已配置的端点
// @Summary 列出端点
// @Description 按固定同步顺序列出端点及其策略
// @Tags 同步管理
// @Produce json
// @Success 200 {object} APIResponse{data=[]EndpointInfo}
// @Router /sync/endpoints [get]
func (c *SyncController) ListEndpoints(w http.ResponseWriter, r *http.Request) {
	names := c.syncService.Engine().EndpointNames()
	list := make([]EndpointInfo, 0, len(names))
	for _, name := range names {
		if info, ok := c.endpointInfo(name); ok {
			list = append(list, info)
		}
	}
	render.JSON(w, r, SuccessResponse("查询成功", list))
}

func (c *SyncController) endpointInfo(name string) (EndpointInfo, bool) {
	engine := c.syncService.Engine()
	if name == meta.EndpointConfig {
		for _, n := range engine.EndpointNames() {
			if n == name {
				return EndpointInfo{Name: name, Strategy: meta.EndpointConfig, SyncURL: sync_engine.HubConfigPath}, true
			}
		}
		return EndpointInfo{}, false
	}
	ep, ok := engine.Endpoint(name)
	if !ok {
		return EndpointInfo{}, false
	}
	return EndpointInfo{
		Name:             ep.Name,
		Strategy:         string(ep.Strategy),
		SyncURL:          ep.SyncURL,
		DateParam:        ep.DateParam,
		DefaultStart:     ep.DefaultStart,
		DefaultStartDays: ep.DefaultStartDays,
	}, true
}

// StartRun 启动同步运行
// @Summary 启动同步运行
// @Description 异步启动一次同步运行，endpoints 为空时按固定顺序同步全部端点
// @Tags 同步管理
// @Accept json
// @Produce json
// @Param request body StartRunRequest false "运行参数"
// @Success 200 {object} APIResponse{data=models.SyncRun}
// @Failure 400 {object} APIResponse "端点不存在"
// @Failure 409 {object} APIResponse "已有运行正在执行"
// @Router /sync/run [post]
func (c *SyncController) StartRun(w http.ResponseWriter, r *http.Request) {
	var req StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, BadRequestResponse("请求参数解析失败", err))
		return
	}
	c.startRun(w, r, req.Endpoints)
}

// StartEndpointRun 启动单端点同步
// @Summary 启动单端点同步
// @Description 异步同步单个端点
// @Tags 同步管理
// @Produce json
// @Param endpoint path string true "端点名称"
// @Success 200 {object} APIResponse{data=models.SyncRun}
// @Failure 400 {object} APIResponse "端点不存在"
// @Failure 409 {object} APIResponse "已有运行正在执行"
// @Router /sync/run/{endpoint} [post]
func (c *SyncController) StartEndpointRun(w http.ResponseWriter, r *http.Request) {
	c.startRun(w, r, []string{chi.URLParam(r, "endpoint")})
}

func (c *SyncController) startRun(w http.ResponseWriter, r *http.Request, endpoints []string) {
	run, err := c.syncService.StartRun(r.Context(), endpoints, meta.SyncTriggerManual)
	switch {
	case errors.Is(err, service.ErrRunActive):
		writeError(w, r, ConflictResponse("已有同步运行正在执行", nil))
	case errors.Is(err, sync_engine.ErrUnknownEndpoint):
		writeError(w, r, BadRequestResponse("端点不存在", err))
	case err != nil:
		writeError(w, r, InternalErrorResponse("启动同步失败", err))
	default:
		render.JSON(w, r, SuccessResponse("同步已启动", run))
	}
}

// AbortRun 中止同步运行
// @Summary 中止同步运行
// @Description 设置中止标志，当前端点完成后停止
// @Tags 同步管理
// @Produce json
// @Param id path string true "运行ID"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Failure 409 {object} APIResponse "运行未在执行"
// @Router /sync/runs/{id}/abort [post]
func (c *SyncController) AbortRun(w http.ResponseWriter, r *http.Request) {
	err := c.syncService.Abort(chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, service.ErrRunNotFound):
		writeError(w, r, NotFoundResponse("同步运行不存在", nil))
	case errors.Is(err, service.ErrRunNotActive):
		writeError(w, r, ConflictResponse("同步运行未在执行", nil))
	case err != nil:
		writeError(w, r, InternalErrorResponse("中止失败", err))
	default:
		render.JSON(w, r, SuccessResponse("已请求中止", nil))
	}
}

// GetActiveRun 查询执行中的运行
// @Summary 查询执行中的运行
// @Tags 同步管理
// @Produce json
// @Success 200 {object} APIResponse{data=models.SyncRun}
// @Router /sync/active [get]
func (c *SyncController) GetActiveRun(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, SuccessResponse("查询成功", c.syncService.ActiveRun()))
}

// ListRuns 查询运行历史
// @Summary 查询运行历史
// @Description 按开始时间倒序分页返回运行记录
// @Tags 同步管理
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页数量" default(20)
// @Success 200 {object} PaginatedResponse{data=[]models.SyncRun}
// @Failure 500 {object} APIResponse
// @Router /sync/runs [get]
func (c *SyncController) ListRuns(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if size <= 0 {
		size = 20
	}

	runs, total, err := c.syncService.ListRuns(page, size)
	if err != nil {
		writeError(w, r, InternalErrorResponse("查询运行历史失败", err))
		return
	}
	render.JSON(w, r, PaginatedResponse{
		Status: 0,
		Msg:    "查询成功",
		Data:   runs,
		Total:  total,
		Page:   page,
		Size:   size,
	})
}

// GetRun 查询运行详情
// @Summary 查询运行详情
// @Tags 同步管理
// @Produce json
// @Param id path string true "运行ID"
// @Success 200 {object} APIResponse{data=models.SyncRun}
// @Failure 404 {object} APIResponse
// @Router /sync/runs/{id} [get]
func (c *SyncController) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := c.syncService.GetRun(chi.URLParam(r, "id"))
	if errors.Is(err, service.ErrRunNotFound) {
		writeError(w, r, NotFoundResponse("同步运行不存在", nil))
		return
	}
	if err != nil {
		writeError(w, r, InternalErrorResponse("查询运行失败", err))
		return
	}
	render.JSON(w, r, SuccessResponse("查询成功", run))
}

// VerifyEndpoint 抽样核对
// @Summary 抽样核对
// @Description 随机抽取若干记录到本地库核对是否存在
// @Tags 同步管理
// @Accept json
// @Produce json
// @Param endpoint path string true "端点名称"
// @Param request body VerifyRequest true "待核对的id或记录"
// @Success 200 {object} APIResponse{data=models.VerifyResult}
// @Failure 400 {object} APIResponse
// @Router /sync/verify/{endpoint} [post]
func (c *SyncController) VerifyEndpoint(w http.ResponseWriter, r *http.Request) {
	endpoint := chi.URLParam(r, "endpoint")
	if _, ok := c.syncService.Engine().Endpoint(endpoint); !ok {
		writeError(w, r, BadRequestResponse("端点不存在", errors.New(endpoint)))
		return
	}

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, BadRequestResponse("请求参数解析失败", err))
		return
	}
	records := req.Records
	for _, id := range req.IDs {
		records = append(records, models.Row{"id": id})
	}
	if len(records) == 0 {
		writeError(w, r, BadRequestResponse("ids或records不能为空", nil))
		return
	}

	result := c.syncService.Engine().VerifyRandom(r.Context(), endpoint, records, req.N)
	render.JSON(w, r, SuccessResponse("核对完成", result))
}
