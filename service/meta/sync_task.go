/*
 * @module service/meta/sync_task
 * @description 上游同步相关的元数据常量：端点名称、同步策略、进度步骤、运行状态
 * @architecture 常量定义层
 * @documentReference DESIGN.md
 * @stateFlow N/A
 * @rules 端点顺序固定，步骤集合封闭，新增步骤必须同步更新校验函数
 * @dependencies 无
 * @refs service/sync_engine, service/models/sync_models.go
 */

package meta

// 端点名称常量
const (
	EndpointConfig            = "config"
	EndpointMembers           = "members"
	EndpointBetOrder          = "bet_order"
	EndpointBetLottery        = "bet_lottery"
	EndpointDepositWithdrawal = "deposit_withdrawal"
	EndpointReportLottery     = "report_lottery"
	EndpointReportFunds       = "report_funds"
	EndpointReportThirdGame   = "report_third_game"
)

// SyncOrder 全量同步时的固定端点顺序：配置 -> 会员 -> 注单 -> 资金 -> 报表
var SyncOrder = []string{
	EndpointConfig,
	EndpointMembers,
	EndpointBetOrder,
	EndpointBetLottery,
	EndpointDepositWithdrawal,
	EndpointReportLottery,
	EndpointReportFunds,
	EndpointReportThirdGame,
}

// StrategyKind 同步策略类型
type StrategyKind string

const (
	StrategyFull       StrategyKind = "full"
	StrategyDateRanged StrategyKind = "date_ranged"
	StrategyDayByDay   StrategyKind = "day_by_day"
)

var SyncStrategies = []MetaField{
	{
		Name:        string(StrategyFull),
		DisplayName: "全量同步",
		Type:        "string",
		Required:    true,
		Description: "无日期过滤，每次拉取整表",
	},
	{
		Name:        string(StrategyDateRanged),
		DisplayName: "按日期增量",
		Type:        "string",
		Required:    true,
		Description: "从水位日期开始，按7天窗口分段拉取",
	},
	{
		Name:        string(StrategyDayByDay),
		DisplayName: "按天报表",
		Type:        "string",
		Required:    true,
		Description: "逐日拉取报表并回填report_date",
	},
}

// SyncStep 进度事件步骤
type SyncStep string

const (
	StepStart    SyncStep = "start"
	StepFetch    SyncStep = "fetch"
	StepUpload   SyncStep = "upload"
	StepVerify   SyncStep = "verify"
	StepSkip     SyncStep = "skip"
	StepDone     SyncStep = "done"
	StepError    SyncStep = "error"
	StepComplete SyncStep = "complete"
)

// IsValidSyncStep 检查步骤是否属于封闭集合
func IsValidSyncStep(step SyncStep) bool {
	switch step {
	case StepStart, StepFetch, StepUpload, StepVerify, StepSkip, StepDone, StepError, StepComplete:
		return true
	}
	return false
}

// 运行状态常量
const (
	SyncRunStatusRunning = "running"
	SyncRunStatusSuccess = "success"
	SyncRunStatusPartial = "partial"
	SyncRunStatusFailed  = "failed"
	SyncRunStatusAborted = "aborted"
)

var SyncRunStatuses = []MetaField{
	{Name: SyncRunStatusRunning, DisplayName: "执行中", Type: "string", Required: true},
	{Name: SyncRunStatusSuccess, DisplayName: "成功", Type: "string", Required: true},
	{Name: SyncRunStatusPartial, DisplayName: "部分失败", Type: "string", Required: true},
	{Name: SyncRunStatusFailed, DisplayName: "失败", Type: "string", Required: true},
	{Name: SyncRunStatusAborted, DisplayName: "已中止", Type: "string", Required: true},
}

// 触发方式常量
const (
	SyncTriggerManual    = "manual"
	SyncTriggerScheduler = "scheduler"
)

// IsKnownEndpoint 检查端点名称是否在固定顺序中
func IsKnownEndpoint(name string) bool {
	for _, n := range SyncOrder {
		if n == name {
			return true
		}
	}
	return false
}

// 敏感字段，会员数据上传前必须剔除
var SensitiveFields = []string{"password", "fund_password", "salt"}

// DateLayout 上游与本地库统一使用的日期格式
const DateLayout = "2006-01-02"
