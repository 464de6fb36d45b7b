/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数：内存数据库、数据工厂、模拟上游与模拟本地库
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference DESIGN.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, testify, httptest
 * @refs service/models, client
 */

package testutil

import (
	"agent-datahub/service/database"
	"agent-datahub/service/meta"
	"agent-datahub/service/models"
	"context"
	"fmt"
	"time"

	"github.com/stretchr/testify/mock"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}
	// 内存库每个连接是独立的数据库
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := database.AutoMigrate(db); err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}
	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	for _, table := range []string{"sync_runs", "sync_progress_events"} {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	DB *gorm.DB
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{DB: db}
}

// SyncRunOption 运行记录选项函数类型
type SyncRunOption func(*models.SyncRun)

// CreateSyncRun 创建测试运行记录
func (f *TestDataFactory) CreateSyncRun(opts ...SyncRunOption) *models.SyncRun {
	now := time.Now()
	run := &models.SyncRun{
		Endpoints:   models.JSONBStringArray(meta.SyncOrder),
		TriggerType: meta.SyncTriggerManual,
		Status:      meta.SyncRunStatusSuccess,
		StartTime:   now.Add(-time.Minute),
		EndTime:     &now,
	}

	// 应用选项
	for _, opt := range opts {
		opt(run)
	}

	if err := f.DB.Create(run).Error; err != nil {
		panic(fmt.Sprintf("failed to create test sync run: %v", err))
	}
	return run
}

// MockPublisher Mock进度事件发布器
type MockPublisher struct {
	mock.Mock
}

// Name 发布器名称
func (m *MockPublisher) Name() string {
	return "mock"
}

// Publish 发布进度事件
func (m *MockPublisher) Publish(ctx context.Context, evt *models.ProgressEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}
