/*
 * @module client/upstream_api
 * @description 上游代理平台的业务接口：会员、注单、资金、报表、邀请码、银行卡、彩种初始化
 * @architecture 适配器模式
 * @documentReference DESIGN.md
 * @stateFlow 表单请求 -> JSON 响应 -> 宽松类型转换 -> PageResult
 * @rules 表格接口 code=0 为成功，data 非数组时视为协议失败；返利接口 code=1 为成功
 * @dependencies github.com/spf13/cast, agent-datahub/service/sync_engine
 * @refs service/sync_engine/endpoints.go
 */

package client

import (
	"agent-datahub/service/meta"
	"agent-datahub/service/models"
	"agent-datahub/service/sync_engine"
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cast"
)

// 上游接口路径
const (
	UpstreamMembersPath           = "/agent/user.html"
	UpstreamBetOrderPath          = "/agent/betOrder.html"
	UpstreamBetLotteryPath        = "/agent/bet.html"
	UpstreamDepositWithdrawalPath = "/agent/depositAndWithdrawal.html"
	UpstreamReportLotteryPath     = "/agent/reportLottery.html"
	UpstreamReportFundsPath       = "/agent/reportFunds.html"
	UpstreamReportThirdGamePath   = "/agent/reportThirdGame.html"
	UpstreamInviteListPath        = "/agent/inviteList.html"
	UpstreamBankListPath          = "/agent/bankList.html"
	UpstreamLotteryInitPath       = "/agent/rebate/lotteryInit"
)

var endpointPaths = map[string]string{
	meta.EndpointMembers:           UpstreamMembersPath,
	meta.EndpointBetOrder:          UpstreamBetOrderPath,
	meta.EndpointBetLottery:        UpstreamBetLotteryPath,
	meta.EndpointDepositWithdrawal: UpstreamDepositWithdrawalPath,
	meta.EndpointReportLottery:     UpstreamReportLotteryPath,
	meta.EndpointReportFunds:       UpstreamReportFundsPath,
	meta.EndpointReportThirdGame:   UpstreamReportThirdGamePath,
}

// List 返回指定路径的列表函数
func (c *UpstreamClient) List(path string) sync_engine.ListFunc {
	return func(ctx context.Context, params map[string]interface{}) (*models.PageResult, error) {
		body, err := c.PostForm(ctx, path, params)
		if err != nil {
			return nil, err
		}
		return ParsePageResult(body)
	}
}

// Listers 各端点的列表函数
func (c *UpstreamClient) Listers() map[string]sync_engine.ListFunc {
	out := make(map[string]sync_engine.ListFunc, len(endpointPaths))
	for name, path := range endpointPaths {
		out[name] = c.List(path)
	}
	return out
}

// ConfigSources 配置同步使用的上游接口
func (c *UpstreamClient) ConfigSources() *sync_engine.ConfigSources {
	return &sync_engine.ConfigSources{
		LotteryInit: c.LotteryInit,
		InviteList:  c.List(UpstreamInviteListPath),
		BankList:    c.List(UpstreamBankListPath),
	}
}

// LotteryInit 获取彩种系列与彩种列表
func (c *UpstreamClient) LotteryInit(ctx context.Context) (*models.LotteryInitResponse, error) {
	body, err := c.PostJSON(ctx, UpstreamLotteryInitPath, map[string]interface{}{})
	if err != nil {
		return nil, err
	}
	var resp models.LotteryInitResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("解析彩种数据失败: %w", err)
	}
	return &resp, nil
}

// ParsePageResult 解析上游表格接口响应，字段类型不固定
func ParsePageResult(body []byte) (*models.PageResult, error) {
	var raw map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("上游响应不是有效JSON: %w", err)
	}

	code, err := cast.ToIntE(raw["code"])
	if err != nil {
		code = -1
	}
	result := &models.PageResult{
		Code:  code,
		Msg:   cast.ToString(raw["msg"]),
		Count: cast.ToInt64(raw["count"]),
	}

	if items, ok := raw["data"].([]interface{}); ok {
		result.Data = make([]models.Row, 0, len(items))
		for _, item := range items {
			if row, ok := item.(map[string]interface{}); ok {
				result.Data = append(result.Data, row)
			}
		}
	}
	if total, ok := raw["total_data"].(map[string]interface{}); ok {
		result.TotalData = total
	}
	return result, nil
}
