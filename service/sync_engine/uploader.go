/*
 * @module service/sync_engine/uploader
 * @description 分批上传：按批次顺序上传到本地库并累加处理条数
 * @architecture 数据写入层
 * @documentReference DESIGN.md
 * @stateFlow 切分批次 -> upload 进度事件 -> 上传 -> 累加 processed
 * @rules 批次顺序执行；任一批次失败立即返回错误，之前的批次不回滚
 * @dependencies agent-datahub/service/models
 * @refs client/hub_client.go
 */

package sync_engine

import (
	"agent-datahub/service/meta"
	"agent-datahub/service/models"
	"context"
	"fmt"
	"log/slog"
)

// DefaultBatchSize 单批上传条数
const DefaultBatchSize = 5000

// Uploader 本地库上传能力
type Uploader interface {
	Upload(ctx context.Context, url string, body *models.UploadRequest) (*models.UploadResponse, error)
}

// BatchUploader 分批上传器
type BatchUploader struct {
	uploader  Uploader
	batchSize int
	metrics   *Metrics
}

// NewBatchUploader 创建分批上传器
func NewBatchUploader(uploader Uploader, batchSize int, metrics *Metrics) *BatchUploader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &BatchUploader{uploader: uploader, batchSize: batchSize, metrics: metrics}
}

// PostBatched 分批上传 records 到 url，返回本地库处理总数
func (u *BatchUploader) PostBatched(ctx context.Context, endpoint, url string, records []models.Row, agentID int64, sink ProgressSink) (int64, error) {
	total := (len(records) + u.batchSize - 1) / u.batchSize
	var processed int64

	for i := 0; i < total; i++ {
		from := i * u.batchSize
		to := from + u.batchSize
		if to > len(records) {
			to = len(records)
		}
		batch := records[from:to]
		emit(sink, endpoint, meta.StepUpload, fmt.Sprintf("Batch %d/%d (%d records)", i+1, total, len(batch)))

		resp, err := u.uploader.Upload(ctx, url, &models.UploadRequest{Data: batch, AgentID: agentID})
		if err != nil {
			return processed, fmt.Errorf("上传第%d/%d批失败: %w", i+1, total, err)
		}
		u.metrics.batch(endpoint)
		if resp != nil {
			processed += resp.Processed
		}
		slog.Debug("批次上传完成", "endpoint", endpoint, "batch", i+1, "total", total, "processed", processed)
	}

	u.metrics.processed(endpoint, processed)
	return processed, nil
}
