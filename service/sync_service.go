/*
 * @module service/sync_service
 * @description 同步运行管理：启动、中止、历史查询，保证同一时刻只有一个运行
 * @architecture 分层架构 - 服务层
 * @documentReference DESIGN.md
 * @stateFlow StartRun -> 加锁 -> 持久化running -> 后台逐端点执行(检查中止) -> 汇总结果 -> 释放锁
 * @rules 中止标志只在端点之间检查；单个端点失败不影响后续端点；运行结束必须落库
 * @dependencies gorm.io/gorm, service/sync_engine, service/distributed_lock
 * @refs api/controllers/sync_controller.go, service/scheduler/scheduler_service.go
 */

package service

import (
	"agent-datahub/service/distributed_lock"
	"agent-datahub/service/meta"
	"agent-datahub/service/models"
	"agent-datahub/service/sync_engine"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"
)

var (
	ErrRunActive    = errors.New("已有同步运行正在执行")
	ErrRunNotFound  = errors.New("同步运行不存在")
	ErrRunNotActive = errors.New("同步运行未在执行")
)

const (
	defaultLockTTL = 10 * time.Minute
	lockRefreshGap = time.Minute
)

// SyncService 同步运行管理服务
type SyncService struct {
	db      *gorm.DB
	engine  *sync_engine.Engine
	sink    sync_engine.ProgressSink
	lock    distributed_lock.DistributedLock
	lockTTL time.Duration

	mu     sync.Mutex
	active *activeRun
	wg     sync.WaitGroup
}

type activeRun struct {
	run     models.SyncRun
	aborted atomic.Bool
}

// NewSyncService 创建同步运行管理服务，lock 为空时使用进程内锁
func NewSyncService(db *gorm.DB, engine *sync_engine.Engine, sink sync_engine.ProgressSink, lock distributed_lock.DistributedLock) *SyncService {
	if lock == nil {
		lock = distributed_lock.NewLocalLock()
	}
	return &SyncService{
		db:      db,
		engine:  engine,
		sink:    sink,
		lock:    lock,
		lockTTL: defaultLockTTL,
	}
}

// Engine 返回同步引擎
func (s *SyncService) Engine() *sync_engine.Engine {
	return s.engine
}

// StartRun 启动一次同步运行，endpoints 为空时按固定顺序同步全部端点
func (s *SyncService) StartRun(ctx context.Context, endpoints []string, trigger string) (*models.SyncRun, error) {
	names, err := s.resolveEndpoints(endpoints)
	if err != nil {
		return nil, err
	}
	if trigger == "" {
		trigger = meta.SyncTriggerManual
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		return nil, ErrRunActive
	}

	locked, err := s.lock.TryLock(ctx, distributed_lock.SyncRunLockKey, s.lockTTL)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, ErrRunActive
	}

	run := models.SyncRun{
		Endpoints:   models.JSONBStringArray(names),
		TriggerType: trigger,
		Status:      meta.SyncRunStatusRunning,
		StartTime:   time.Now(),
	}
	if err := s.db.Create(&run).Error; err != nil {
		s.releaseLock()
		return nil, fmt.Errorf("创建同步运行记录失败: %w", err)
	}

	state := &activeRun{run: run}
	s.active = state
	s.wg.Add(1)
	go s.execute(state, names)

	slog.Info("同步运行已启动", "run_id", run.ID, "trigger", trigger, "endpoints", names)
	return &run, nil
}

func (s *SyncService) resolveEndpoints(endpoints []string) ([]string, error) {
	known := s.engine.EndpointNames()
	if len(endpoints) == 0 {
		return known, nil
	}

	set := make(map[string]bool, len(known))
	for _, n := range known {
		set[n] = true
	}
	for _, n := range endpoints {
		if !set[n] {
			return nil, fmt.Errorf("%s: %w", n, sync_engine.ErrUnknownEndpoint)
		}
	}
	return endpoints, nil
}

// execute 后台执行运行，不使用请求上下文
func (s *SyncService) execute(state *activeRun, names []string) {
	defer s.wg.Done()

	ctx := context.Background()
	stop := distributed_lock.KeepAlive(s.lock, distributed_lock.SyncRunLockKey, s.lockTTL, lockRefreshGap)
	started := time.Now()
	run := state.run
	sink := sync_engine.RunSink(run.ID, s.sink)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("同步运行异常退出", "run_id", run.ID, "panic", r)
			run.Status = meta.SyncRunStatusFailed
			run.ErrorMessage = fmt.Sprintf("panic: %v", r)
			s.finish(&run)
		}
		stop()
		s.releaseLock()

		s.mu.Lock()
		s.active = nil
		s.mu.Unlock()
	}()

	cache := sync_engine.NewStatusCache()
	if err := s.engine.LoadStatus(ctx, cache); err != nil {
		slog.Warn("运行前获取状态失败，各端点将重新获取", "run_id", run.ID, "error", err)
	}

	results := make([]models.SyncResult, 0, len(names))
	aborted := false
	for _, name := range names {
		if state.aborted.Load() {
			aborted = true
			slog.Info("同步运行已中止", "run_id", run.ID, "next_endpoint", name)
			break
		}
		results = append(results, s.engine.RunEndpoint(ctx, name, cache, sink))
	}

	message := fmt.Sprintf("All done in %.1fs", time.Since(started).Seconds())
	if aborted {
		message = fmt.Sprintf("Aborted after %.1fs", time.Since(started).Seconds())
	}
	sink.Emit(&models.ProgressEvent{
		Step:    meta.StepComplete,
		Message: message,
		Results: results,
		Time:    time.Now(),
	})

	run.Summarize(results, aborted)
	s.finish(&run)
}

func (s *SyncService) finish(run *models.SyncRun) {
	end := time.Now()
	run.EndTime = &end
	if err := s.db.Save(run).Error; err != nil {
		slog.Error("保存同步运行结果失败", "run_id", run.ID, "error", err)
		return
	}
	slog.Info("同步运行结束",
		"run_id", run.ID,
		"status", run.Status,
		"fetched", run.TotalFetched,
		"processed", run.TotalProcessed,
		"failed", run.FailedCount)
}

func (s *SyncService) releaseLock() {
	if err := s.lock.Unlock(context.Background(), distributed_lock.SyncRunLockKey); err != nil {
		slog.Error("释放同步运行锁失败", "error", err)
	}
}

// Abort 设置中止标志，当前端点完成后停止
func (s *SyncService) Abort(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil || s.active.run.ID != id {
		if _, err := s.GetRun(id); err != nil {
			return err
		}
		return ErrRunNotActive
	}
	s.active.aborted.Store(true)
	return nil
}

// ActiveRun 当前执行中的运行，没有时返回 nil
func (s *SyncService) ActiveRun() *models.SyncRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil
	}
	run := s.active.run
	return &run
}

// GetRun 查询运行记录
func (s *SyncService) GetRun(id string) (*models.SyncRun, error) {
	var run models.SyncRun
	if err := s.db.First(&run, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("查询同步运行失败: %w", err)
	}
	return &run, nil
}

// ListRuns 分页查询运行历史，按开始时间倒序
func (s *SyncService) ListRuns(page, size int) ([]models.SyncRun, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	var total int64
	if err := s.db.Model(&models.SyncRun{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计同步运行失败: %w", err)
	}

	var runs []models.SyncRun
	err := s.db.Order("start_time DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&runs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询同步运行列表失败: %w", err)
	}
	return runs, total, nil
}

// Wait 等待所有后台运行结束
func (s *SyncService) Wait() {
	s.wg.Wait()
}
