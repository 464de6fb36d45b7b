/*
 * @module service/sync_engine/endpoints
 * @description 端点配置：上游列表函数、本地上传地址、同步策略与日期参数
 * @architecture 配置层
 * @documentReference DESIGN.md
 * @rules 配置构造后不可变；按天/按日期策略必须提供日期参数
 * @dependencies agent-datahub/service/meta, agent-datahub/service/models
 * @refs service/sync_engine/strategies.go, client/upstream_api.go
 */

package sync_engine

import (
	"agent-datahub/service/meta"
	"agent-datahub/service/models"
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnknownEndpoint 端点未配置
	ErrUnknownEndpoint = errors.New("未知的同步端点")
	// ErrNoStrategy 端点没有可用的同步策略
	ErrNoStrategy = errors.New("端点没有可用的同步策略")
)

// ListFunc 上游列表接口，params 包含过滤条件以及 page/limit
type ListFunc func(ctx context.Context, params map[string]interface{}) (*models.PageResult, error)

// 本地库同步地址
const (
	HubStatusPath            = "/sync/status"
	HubConfigPath            = "/sync/config"
	HubVerifyPathPrefix      = "/sync/verify/"
	HubMembersPath           = "/sync/members"
	HubBetOrdersPath         = "/sync/bet-orders"
	HubBetLotteryPath        = "/sync/bet-lottery"
	HubDepositsPath          = "/sync/deposits"
	HubReportLotteryPath     = "/sync/reports/lottery"
	HubReportFundsPath       = "/sync/reports/funds"
	HubReportThirdGamePath   = "/sync/reports/third-game"
	defaultDateParam         = "create_time"
	defaultDateRangedDays    = 7
	defaultDayByDayStartDays = 30
)

// EndpointConfig 单个端点的同步配置
type EndpointConfig struct {
	Name     string
	ListFn   ListFunc
	SyncURL  string
	Strategy meta.StrategyKind
	// DateParam 上游日期过滤参数名
	DateParam string
	// DateField 行数据中代表业务日期的字段，仅作说明
	DateField string
	// Datetime 日期过滤值是否带时分秒
	Datetime bool
	// DefaultStart 无水位时的起始日期，为空时使用 DefaultStartDays
	DefaultStart     string
	DefaultStartDays int
	Sensitive        bool
	// RenameDate 报表行中需要改名为 report_date 的字段
	RenameDate string
	PageSize   int
}

// Validate 校验端点配置
func (c *EndpointConfig) Validate() error {
	if c == nil {
		return ErrUnknownEndpoint
	}
	if c.Name == "" {
		return fmt.Errorf("端点名称不能为空: %w", ErrNoStrategy)
	}
	if c.ListFn == nil {
		return fmt.Errorf("端点 %s 未配置列表函数: %w", c.Name, ErrNoStrategy)
	}
	if c.SyncURL == "" {
		return fmt.Errorf("端点 %s 未配置上传地址: %w", c.Name, ErrNoStrategy)
	}
	switch c.Strategy {
	case meta.StrategyFull:
	case meta.StrategyDateRanged, meta.StrategyDayByDay:
		if c.DateParam == "" {
			return fmt.Errorf("端点 %s 缺少日期参数: %w", c.Name, ErrNoStrategy)
		}
	default:
		return fmt.Errorf("端点 %s 策略 %q 无效: %w", c.Name, c.Strategy, ErrNoStrategy)
	}
	return nil
}

// resolveDefaultStart 计算无水位时的起始日期
func (c *EndpointConfig) resolveDefaultStart(clock Clock) string {
	if c.DefaultStart != "" {
		return c.DefaultStart
	}
	days := c.DefaultStartDays
	if days <= 0 {
		days = defaultDateRangedDays
		if c.Strategy == meta.StrategyDayByDay {
			days = defaultDayByDayStartDays
		}
	}
	return clock.DaysAgo(days)
}

// DefaultEndpoints 内置端点表，listers 按端点名称提供上游列表函数
func DefaultEndpoints(listers map[string]ListFunc) []*EndpointConfig {
	return []*EndpointConfig{
		{
			Name:      meta.EndpointMembers,
			ListFn:    listers[meta.EndpointMembers],
			SyncURL:   HubMembersPath,
			Strategy:  meta.StrategyFull,
			DateField: "update_time",
			Sensitive: true,
		},
		{
			Name:             meta.EndpointBetOrder,
			ListFn:           listers[meta.EndpointBetOrder],
			SyncURL:          HubBetOrdersPath,
			Strategy:         meta.StrategyDateRanged,
			DateParam:        "bet_time",
			DateField:        "bet_time",
			DefaultStartDays: 7,
		},
		{
			Name:             meta.EndpointBetLottery,
			ListFn:           listers[meta.EndpointBetLottery],
			SyncURL:          HubBetLotteryPath,
			Strategy:         meta.StrategyDateRanged,
			DateParam:        "create_time",
			DateField:        "create_time",
			Datetime:         true,
			DefaultStartDays: 7,
		},
		{
			Name:             meta.EndpointDepositWithdrawal,
			ListFn:           listers[meta.EndpointDepositWithdrawal],
			SyncURL:          HubDepositsPath,
			Strategy:         meta.StrategyDateRanged,
			DateParam:        "create_time",
			DateField:        "create_time",
			DefaultStartDays: 30,
		},
		{
			Name:             meta.EndpointReportLottery,
			ListFn:           listers[meta.EndpointReportLottery],
			SyncURL:          HubReportLotteryPath,
			Strategy:         meta.StrategyDayByDay,
			DateParam:        "date",
			DateField:        "report_date",
			DefaultStartDays: 30,
		},
		{
			Name:             meta.EndpointReportFunds,
			ListFn:           listers[meta.EndpointReportFunds],
			SyncURL:          HubReportFundsPath,
			Strategy:         meta.StrategyDayByDay,
			DateParam:        "date",
			DateField:        "report_date",
			RenameDate:       "date",
			DefaultStartDays: 30,
		},
		{
			Name:             meta.EndpointReportThirdGame,
			ListFn:           listers[meta.EndpointReportThirdGame],
			SyncURL:          HubReportThirdGamePath,
			Strategy:         meta.StrategyDayByDay,
			DateParam:        "date",
			DateField:        "report_date",
			DefaultStartDays: 30,
		},
	}
}
