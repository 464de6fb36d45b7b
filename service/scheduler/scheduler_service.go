/**
 * @module SchedulerService
 * @description 定时同步调度器，按 Cron 表达式周期性触发全量同步运行
 * @architecture 基于 robfig/cron 的调度器模式
 * @documentReference DESIGN.md
 * @stateFlow Start -> 注册Cron -> 到点触发StartRun -> 已有运行则跳过
 * @rules Cron表达式支持秒字段；调度器只负责触发，运行互斥由运行管理服务保证
 * @dependencies github.com/robfig/cron/v3
 * @refs service/sync_service.go, service/init.go
 */

package scheduler

import (
	"agent-datahub/service/meta"
	"agent-datahub/service/models"
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RunStarter 启动同步运行
type RunStarter interface {
	StartRun(ctx context.Context, endpoints []string, trigger string) (*models.SyncRun, error)
}

// SchedulerService 调度器服务
type SchedulerService struct {
	starter  RunStarter
	cron     *cron.Cron
	spec     string
	entryID  cron.EntryID
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	lastFire time.Time
	lastErr  error
}

// NewSchedulerService 创建调度器服务，spec 为空时 Start 不注册任何任务
func NewSchedulerService(starter RunStarter, spec string) *SchedulerService {
	ctx, cancel := context.WithCancel(context.Background())
	return &SchedulerService{
		starter: starter,
		cron:    cron.New(cron.WithSeconds()),
		spec:    spec,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start 启动调度器
func (s *SchedulerService) Start() error {
	if s.spec == "" {
		log.Println("未配置同步Cron表达式，定时同步已禁用")
		return nil
	}

	id, err := s.cron.AddFunc(s.spec, s.fire)
	if err != nil {
		return fmt.Errorf("添加Cron任务失败: %w", err)
	}
	s.entryID = id
	s.cron.Start()

	log.Printf("定时同步调度器启动完成 [%s]", s.spec)
	return nil
}

// Stop 停止调度器，等待正在触发的任务返回
func (s *SchedulerService) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	log.Println("定时同步调度器已停止")
}

// NextRun 下一次触发时间，未启用时返回零值
func (s *SchedulerService) NextRun() time.Time {
	if s.entryID == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// LastFire 上一次触发时间与结果
func (s *SchedulerService) LastFire() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFire, s.lastErr
}

// fire 触发一次全量同步
func (s *SchedulerService) fire() {
	run, err := s.starter.StartRun(s.ctx, nil, meta.SyncTriggerScheduler)

	s.mu.Lock()
	s.lastFire = time.Now()
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		log.Printf("定时同步跳过: %v", err)
		return
	}
	log.Printf("定时同步已启动: %s", run.ID)
}
