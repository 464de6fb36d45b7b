/*
 * @module service/sync_engine/sync_engine
 * @description 同步引擎：按端点分发同步策略，按固定顺序执行全量同步并发出进度事件
 * @architecture 编排层 - 策略模式
 * @documentReference DESIGN.md
 * @stateFlow 获取水位 -> 选择策略 -> 拉取 -> 上传 -> 校验 -> 结果
 * @rules 同一次运行内所有网络调用顺序执行；单个端点失败不影响后续端点；
 *        引擎内部不检查取消，中止由运行管理器在端点之间处理
 * @dependencies agent-datahub/service/meta, agent-datahub/service/models
 * @refs service/sync_service.go, service/scheduler
 */

package sync_engine

import (
	"agent-datahub/service/meta"
	"agent-datahub/service/models"
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// StatusSource 本地库同步状态查询
type StatusSource interface {
	FetchStatus(ctx context.Context) ([]models.SyncStatus, error)
}

// Hub 本地库提供的全部能力
type Hub interface {
	StatusSource
	Uploader
	Verifier
	UploadConfig(ctx context.Context, body map[string]interface{}) (*models.UploadResponse, error)
}

// ConfigSources 配置同步使用的上游接口
type ConfigSources struct {
	LotteryInit func(ctx context.Context) (*models.LotteryInitResponse, error)
	InviteList  ListFunc
	BankList    ListFunc
}

// Options 引擎构造参数
type Options struct {
	Hub              Hub
	Endpoints        []*EndpointConfig
	Config           *ConfigSources
	AgentID          int64
	BatchSize        int
	PageSize         int
	VerifySampleSize int
	Clock            Clock
	Rand             *rand.Rand
	Metrics          *Metrics
}

// DefaultAgentID 未配置时使用的代理ID
const DefaultAgentID = 1

// Engine 同步引擎
type Engine struct {
	hub       Hub
	endpoints map[string]*EndpointConfig
	config    *ConfigSources
	agentID   int64
	pageSize  int
	clock     Clock
	metrics   *Metrics
	uploader  *BatchUploader
	verifier  *SampleVerifier

	mu     sync.RWMutex
	latest *StatusCache
}

// NewEngine 创建同步引擎
func NewEngine(opts Options) *Engine {
	agentID := opts.AgentID
	if agentID <= 0 {
		agentID = DefaultAgentID
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	endpoints := make(map[string]*EndpointConfig, len(opts.Endpoints))
	for _, ep := range opts.Endpoints {
		if ep != nil {
			endpoints[ep.Name] = ep
		}
	}

	return &Engine{
		hub:       opts.Hub,
		endpoints: endpoints,
		config:    opts.Config,
		agentID:   agentID,
		pageSize:  pageSize,
		clock:     clock,
		metrics:   opts.Metrics,
		uploader:  NewBatchUploader(opts.Hub, opts.BatchSize, opts.Metrics),
		verifier:  NewSampleVerifier(opts.Hub, opts.VerifySampleSize, opts.Rand, opts.Metrics),
		latest:    NewStatusCache(),
	}
}

// AgentID 上传使用的代理ID
func (e *Engine) AgentID() int64 {
	return e.agentID
}

// Endpoint 获取端点配置
func (e *Engine) Endpoint(name string) (*EndpointConfig, bool) {
	ep, ok := e.endpoints[name]
	return ep, ok
}

// EndpointNames 按固定顺序返回可同步的端点
func (e *Engine) EndpointNames() []string {
	names := make([]string, 0, len(meta.SyncOrder))
	for _, name := range meta.SyncOrder {
		if name == meta.EndpointConfig {
			if e.config != nil {
				names = append(names, name)
			}
			continue
		}
		if _, ok := e.endpoints[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// GetStatus 查询本地库水位并刷新最新快照
func (e *Engine) GetStatus(ctx context.Context) (map[string]models.SyncStatus, error) {
	cache := NewStatusCache()
	if err := e.loadStatus(ctx, cache); err != nil {
		return nil, err
	}
	return cache.Snapshot(), nil
}

// LoadStatus 将本地库水位加载进运行级缓存
func (e *Engine) LoadStatus(ctx context.Context, cache *StatusCache) error {
	return e.loadStatus(ctx, cache)
}

func (e *Engine) loadStatus(ctx context.Context, cache *StatusCache) error {
	list, err := e.hub.FetchStatus(ctx)
	if err != nil {
		return fmt.Errorf("获取同步状态失败: %w", err)
	}
	cache.Set(list)

	e.mu.Lock()
	e.latest = cache
	e.mu.Unlock()
	return nil
}

func (e *Engine) latestCache() *StatusCache {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.latest
}

// GetLastDataDate 最近一次状态快照中的水位日期
func (e *Engine) GetLastDataDate(name string) (string, bool) {
	return e.latestCache().LastDataDate(name)
}

// GetEndpointStatus 最近一次状态快照中的端点状态
func (e *Engine) GetEndpointStatus(name string) (models.SyncStatus, bool) {
	return e.latestCache().Get(name)
}

// IsStatusCached 是否已查询过状态
func (e *Engine) IsStatusCached() bool {
	return e.latestCache().IsCached()
}

// VerifyRandom 对任意记录做抽样校验
func (e *Engine) VerifyRandom(ctx context.Context, endpoint string, records []models.Row, n int) *models.VerifyResult {
	return e.verifier.VerifyRandom(ctx, endpoint, records, n)
}

// SyncEndpoint 同步单个端点，使用新的状态缓存
func (e *Engine) SyncEndpoint(ctx context.Context, name string, sink ProgressSink) (*models.SyncResult, error) {
	return e.SyncEndpointWithCache(ctx, name, nil, sink)
}

// SyncEndpointWithCache 使用调用方的状态缓存同步单个端点，cache 未填充时先查询一次
func (e *Engine) SyncEndpointWithCache(ctx context.Context, name string, cache *StatusCache, sink ProgressSink) (*models.SyncResult, error) {
	if cache == nil {
		cache = NewStatusCache()
	}
	if !cache.IsCached() {
		if err := e.loadStatus(ctx, cache); err != nil {
			return nil, err
		}
	}

	started := time.Now()
	result, err := e.dispatch(ctx, name, cache, sink)

	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
	case result.Skipped:
		outcome = "skipped"
		e.metrics.skip(name)
	}
	e.metrics.observe(name, outcome, started)
	return result, err
}

func (e *Engine) dispatch(ctx context.Context, name string, cache *StatusCache, sink ProgressSink) (*models.SyncResult, error) {
	if name == meta.EndpointConfig {
		if e.config == nil {
			return nil, fmt.Errorf("%s: %w", name, ErrNoStrategy)
		}
		return e.syncConfig(ctx, sink)
	}

	cfg, ok := e.endpoints[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownEndpoint)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Strategy {
	case meta.StrategyFull:
		return e.syncFull(ctx, cfg, sink)
	case meta.StrategyDateRanged:
		return e.syncDateRanged(ctx, cfg, cache, sink)
	case meta.StrategyDayByDay:
		return e.syncDayByDay(ctx, cfg, cache, sink)
	}
	return nil, fmt.Errorf("%s: %w", name, ErrNoStrategy)
}

// SyncAll 按固定顺序同步所有端点
func (e *Engine) SyncAll(ctx context.Context, sink ProgressSink) []models.SyncResult {
	started := time.Now()
	cache := NewStatusCache()
	if err := e.loadStatus(ctx, cache); err != nil {
		slog.Warn("全量同步前获取状态失败，各端点将重新获取", "error", err)
	}

	names := e.EndpointNames()
	results := make([]models.SyncResult, 0, len(names))
	for _, name := range names {
		results = append(results, e.RunEndpoint(ctx, name, cache, sink))
	}

	elapsed := time.Since(started).Seconds()
	emitEvent(sink, &models.ProgressEvent{
		Step:    meta.StepComplete,
		Message: fmt.Sprintf("All done in %.1fs", elapsed),
		Results: results,
	})
	return results
}

// RunEndpoint 执行单个端点并发出 start/done/error 事件，错误写入结果
func (e *Engine) RunEndpoint(ctx context.Context, name string, cache *StatusCache, sink ProgressSink) models.SyncResult {
	emit(sink, name, meta.StepStart, "Starting "+name)

	result, err := e.SyncEndpointWithCache(ctx, name, cache, sink)
	if err != nil {
		slog.Error("端点同步失败", "endpoint", name, "error", err)
		failed := models.SyncResult{Endpoint: name, Error: err.Error()}
		emitEvent(sink, &models.ProgressEvent{Endpoint: name, Step: meta.StepError, Message: err.Error(), Result: &failed})
		return failed
	}

	emitEvent(sink, &models.ProgressEvent{Endpoint: name, Step: meta.StepDone, Message: "Done " + name, Result: result})
	return *result
}
