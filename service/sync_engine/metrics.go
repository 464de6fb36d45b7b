/*
 * @module service/sync_engine/metrics
 * @description 同步引擎的 Prometheus 指标
 * @architecture 监控层
 * @documentReference DESIGN.md
 * @rules 指标为空时所有记录方法都是空操作
 * @dependencies github.com/prometheus/client_golang
 * @refs main.go (/metrics)
 */

package sync_engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 同步指标集合
type Metrics struct {
	rowsFetched    *prometheus.CounterVec
	rowsProcessed  *prometheus.CounterVec
	uploadBatches  *prometheus.CounterVec
	verifyMissing  *prometheus.CounterVec
	skipped        *prometheus.CounterVec
	endpointTiming *prometheus.HistogramVec
}

// NewMetrics 创建并注册指标，reg 为空时使用默认注册器
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		rowsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "datahub_sync_rows_fetched_total",
			Help: "从上游拉取的行数",
		}, []string{"endpoint"}),
		rowsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "datahub_sync_rows_processed_total",
			Help: "本地库确认处理的行数",
		}, []string{"endpoint"}),
		uploadBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "datahub_sync_upload_batches_total",
			Help: "上传批次数",
		}, []string{"endpoint"}),
		verifyMissing: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "datahub_sync_verify_missing_total",
			Help: "抽样校验中缺失的记录数",
		}, []string{"endpoint"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "datahub_sync_skipped_total",
			Help: "因已是最新而跳过的同步次数",
		}, []string{"endpoint"}),
		endpointTiming: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "datahub_sync_endpoint_duration_seconds",
			Help:    "单个端点同步耗时",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"endpoint", "outcome"}),
	}
	reg.MustRegister(m.rowsFetched, m.rowsProcessed, m.uploadBatches, m.verifyMissing, m.skipped, m.endpointTiming)
	return m
}

func (m *Metrics) fetched(endpoint string, n int) {
	if m == nil {
		return
	}
	m.rowsFetched.WithLabelValues(endpoint).Add(float64(n))
}

func (m *Metrics) processed(endpoint string, n int64) {
	if m == nil {
		return
	}
	m.rowsProcessed.WithLabelValues(endpoint).Add(float64(n))
}

func (m *Metrics) batch(endpoint string) {
	if m == nil {
		return
	}
	m.uploadBatches.WithLabelValues(endpoint).Inc()
}

func (m *Metrics) missing(endpoint string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.verifyMissing.WithLabelValues(endpoint).Add(float64(n))
}

func (m *Metrics) skip(endpoint string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(endpoint).Inc()
}

func (m *Metrics) observe(endpoint, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.endpointTiming.WithLabelValues(endpoint, outcome).Observe(time.Since(started).Seconds())
}
