/*
 * @module service/models/sync_models
 * @description 上游同步的数据结构：分页结果、同步水位、同步结果、校验结果、进度事件
 * @architecture 数据模型层
 * @documentReference DESIGN.md
 * @stateFlow 上游分页 -> 行数据 -> 上传 -> 校验 -> 同步结果
 * @rules code=0 表示表格接口成功；返利接口 code=1 表示成功
 * @dependencies agent-datahub/service/meta
 * @refs service/sync_engine, client/upstream_client.go, client/hub_client.go
 */

package models

import (
	"agent-datahub/service/meta"
	"time"
)

// Row 上游返回的单行数据，字段不固定
type Row = map[string]interface{}

// PageResult 上游表格接口的分页响应
type PageResult struct {
	Code      int                    `json:"code"`
	Msg       string                 `json:"msg,omitempty"`
	Count     int64                  `json:"count"`
	Data      []Row                  `json:"data"` // data 不是数组时为 nil
	TotalData map[string]interface{} `json:"total_data,omitempty"`
}

// OK 表格接口成功判断
func (p *PageResult) OK() bool {
	return p != nil && p.Code == 0 && p.Data != nil
}

// SyncParams 同步参数，由本地库根据已上传数据推导
type SyncParams struct {
	LastDataDate string `json:"last_data_date,omitempty"`
}

// SyncStatus 单个端点的同步状态
type SyncStatus struct {
	Endpoint      string     `json:"endpoint"`
	AgentID       int64      `json:"agent_id,omitempty"`
	LastSyncAt    string     `json:"last_sync_at,omitempty"`
	LastSyncCount int64      `json:"last_sync_count,omitempty"`
	SyncStatus    string     `json:"sync_status,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	SyncParams    SyncParams `json:"sync_params"`
}

// StatusResponse 本地库 GET status 响应
type StatusResponse struct {
	Endpoints []SyncStatus `json:"endpoints"`
}

// UploadRequest 批量上传请求体
type UploadRequest struct {
	Data    []Row `json:"data"`
	AgentID int64 `json:"agent_id"`
}

// UploadResponse 批量上传响应
type UploadResponse struct {
	Processed int64  `json:"processed"`
	Endpoint  string `json:"endpoint,omitempty"`
}

// VerifyRequest 抽样校验请求体
type VerifyRequest struct {
	IDs []interface{} `json:"ids"`
}

// VerifyResponse 抽样校验响应，只关心 id
type VerifyResponse struct {
	Records   []Row `json:"records"`
	Count     int   `json:"count,omitempty"`
	Requested int   `json:"requested,omitempty"`
}

// VerifyResult 抽样校验结果
type VerifyResult struct {
	OK      bool          `json:"ok"`
	Checked int           `json:"checked"`
	Found   int           `json:"found,omitempty"`
	Missing []interface{} `json:"missing,omitempty"`
	Reason  string        `json:"reason,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// SubFetchResult 配置同步中单个子请求的结果
type SubFetchResult struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
}

// SyncResult 单个端点一次同步的结果
type SyncResult struct {
	Endpoint    string           `json:"endpoint"`
	Fetched     int              `json:"fetched"`
	Processed   int64            `json:"processed"`
	Skipped     bool             `json:"skipped"`
	Verify      *VerifyResult    `json:"verify,omitempty"`
	StartDate   string           `json:"start_date,omitempty"`
	EndDate     string           `json:"end_date,omitempty"`
	LastDate    string           `json:"last_date,omitempty"`
	ConfigParts []SubFetchResult `json:"config_parts,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// ProgressEvent 同步进度事件
type ProgressEvent struct {
	RunID    string        `json:"run_id,omitempty"`
	Endpoint string        `json:"endpoint,omitempty"`
	Step     meta.SyncStep `json:"step"`
	Message  string        `json:"message"`
	Result   *SyncResult   `json:"result,omitempty"`
	Results  []SyncResult  `json:"results,omitempty"`
	Time     time.Time     `json:"time"`
}

// LotteryInitResponse 返利接口的彩种初始化数据
type LotteryInitResponse struct {
	Code int              `json:"code"`
	Msg  string           `json:"msg"`
	Data *LotteryInitData `json:"data"`
}

// LotteryInitData 彩种系列与彩种列表
type LotteryInitData struct {
	SeriesData  []Row `json:"seriesData"`
	LotteryData []Row `json:"lotteryData"`
}
