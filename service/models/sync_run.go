/*
 * @module service/models/sync_run
 * @description 同步运行记录与进度事件的持久化模型
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference DESIGN.md
 * @stateFlow 运行创建(running) -> 逐端点执行 -> success/partial/failed/aborted
 * @rules 运行记录只追加结果，不回写水位；水位由本地库根据上传数据推导
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/sync_service.go, service/event/progress_hub.go
 */

package models

import (
	"agent-datahub/service/meta"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncRun 一次同步运行（全量或单端点）
type SyncRun struct {
	ID             string           `json:"id" gorm:"primaryKey;type:varchar(36)" example:"550e8400-e29b-41d4-a716-446655440000"`
	Endpoints      JSONBStringArray `json:"endpoints" gorm:"type:jsonb"`
	TriggerType    string           `json:"trigger_type" gorm:"not null;size:20;default:'manual'" example:"manual"`
	Status         string           `json:"status" gorm:"not null;size:20;index" example:"running"`
	StartTime      time.Time        `json:"start_time"`
	EndTime        *time.Time       `json:"end_time,omitempty"`
	TotalFetched   int64            `json:"total_fetched" gorm:"default:0"`
	TotalProcessed int64            `json:"total_processed" gorm:"default:0"`
	FailedCount    int              `json:"failed_count" gorm:"default:0"`
	Aborted        bool             `json:"aborted" gorm:"default:false"`
	Results        JSONBArray       `json:"results,omitempty" gorm:"type:jsonb"`
	ErrorMessage   string           `json:"error_message,omitempty" gorm:"type:text"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// BeforeCreate GORM钩子，创建前生成UUID
func (r *SyncRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.TriggerType == "" {
		r.TriggerType = meta.SyncTriggerManual
	}
	if r.Status == "" {
		r.Status = meta.SyncRunStatusRunning
	}
	return nil
}

// IsFinished 运行是否已结束
func (r *SyncRun) IsFinished() bool {
	return r.Status != meta.SyncRunStatusRunning
}

// Summarize 根据端点结果汇总计数与最终状态
func (r *SyncRun) Summarize(results []SyncResult, aborted bool) {
	r.TotalFetched, r.TotalProcessed, r.FailedCount = 0, 0, 0
	for _, res := range results {
		r.TotalFetched += int64(res.Fetched)
		r.TotalProcessed += res.Processed
		if res.Error != "" {
			r.FailedCount++
		}
	}
	r.Results = ToJSONBArray(results)
	r.Aborted = aborted

	switch {
	case aborted:
		r.Status = meta.SyncRunStatusAborted
	case len(results) > 0 && r.FailedCount == len(results):
		r.Status = meta.SyncRunStatusFailed
	case r.FailedCount > 0:
		r.Status = meta.SyncRunStatusPartial
	default:
		r.Status = meta.SyncRunStatusSuccess
	}
}

// SyncProgressEvent 持久化的进度事件，便于断线后回放
type SyncProgressEvent struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	RunID     string    `json:"run_id" gorm:"type:varchar(36);index"`
	Endpoint  string    `json:"endpoint" gorm:"size:50;index"`
	Step      string    `json:"step" gorm:"not null;size:20"`
	Message   string    `json:"message" gorm:"type:text"`
	Payload   JSONB     `json:"payload,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// BeforeCreate 创建前钩子
func (e *SyncProgressEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}

// NewSyncProgressEvent 由进度事件构造持久化记录
func NewSyncProgressEvent(evt *ProgressEvent) *SyncProgressEvent {
	record := &SyncProgressEvent{
		RunID:     evt.RunID,
		Endpoint:  evt.Endpoint,
		Step:      string(evt.Step),
		Message:   evt.Message,
		CreatedAt: evt.Time,
	}
	if evt.Result != nil {
		record.Payload = JSONB{"result": ToJSONB(evt.Result)}
	} else if len(evt.Results) > 0 {
		record.Payload = JSONB{"results": ToJSONBArray(evt.Results)}
	}
	return record
}
