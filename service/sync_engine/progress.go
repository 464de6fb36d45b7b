/*
 * @module service/sync_engine/progress
 * @description 同步进度回调：进度接收器接口与组合方式
 * @architecture 观察者模式
 * @documentReference DESIGN.md
 * @stateFlow start -> fetch -> upload -> verify -> done | skip | error，全部结束后 complete
 * @rules 接收器可以为空；进度回调不得影响同步结果
 * @dependencies agent-datahub/service/models, agent-datahub/service/meta
 * @refs service/event/progress_hub.go
 */

package sync_engine

import (
	"agent-datahub/service/meta"
	"agent-datahub/service/models"
	"time"
)

// ProgressSink 进度接收器
type ProgressSink interface {
	Emit(evt *models.ProgressEvent)
}

// SinkFunc 函数形式的进度接收器
type SinkFunc func(evt *models.ProgressEvent)

// Emit 实现 ProgressSink
func (f SinkFunc) Emit(evt *models.ProgressEvent) {
	f(evt)
}

// MultiSink 将事件依次分发给多个接收器
type MultiSink []ProgressSink

// Emit 实现 ProgressSink
func (m MultiSink) Emit(evt *models.ProgressEvent) {
	for _, s := range m {
		if s != nil {
			s.Emit(evt)
		}
	}
}

// RunSink 为事件补上运行ID
func RunSink(runID string, next ProgressSink) ProgressSink {
	return SinkFunc(func(evt *models.ProgressEvent) {
		evt.RunID = runID
		if next != nil {
			next.Emit(evt)
		}
	})
}

func emit(sink ProgressSink, endpoint string, step meta.SyncStep, message string) {
	emitEvent(sink, &models.ProgressEvent{Endpoint: endpoint, Step: step, Message: message})
}

func emitEvent(sink ProgressSink, evt *models.ProgressEvent) {
	if sink == nil {
		return
	}
	if evt.Time.IsZero() {
		evt.Time = time.Now()
	}
	sink.Emit(evt)
}
