/*
 * @module service/database/migrate
 * @description 数据库迁移模块，负责创建和更新同步运行记录与进度事件表
 * @architecture 数据访问层 - 迁移管理
 * @documentReference DESIGN.md
 * @stateFlow 应用启动时执行数据库迁移
 * @rules 确保数据库结构与模型定义保持一致
 * @dependencies agent-datahub/service/models, gorm.io/gorm
 * @refs service/init.go
 */

package database

import (
	"agent-datahub/service/meta"
	"agent-datahub/service/models"
	"log"

	"gorm.io/gorm"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB) error {
	log.Println("开始数据库迁移...")

	err := db.AutoMigrate(
		&models.SyncRun{},
		&models.SyncProgressEvent{},
	)
	if err != nil {
		return err
	}

	log.Println("数据库迁移完成")
	return nil
}

// MarkInterruptedRuns 将进程退出前未结束的运行标记为失败
func MarkInterruptedRuns(db *gorm.DB) (int64, error) {
	res := db.Model(&models.SyncRun{}).
		Where("status = ?", meta.SyncRunStatusRunning).
		Updates(map[string]interface{}{
			"status":        meta.SyncRunStatusFailed,
			"error_message": "服务重启，运行被中断",
		})
	return res.RowsAffected, res.Error
}
