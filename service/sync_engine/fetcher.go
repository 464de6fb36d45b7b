/*
 * @module service/sync_engine/fetcher
 * @description 上游分页拉取与按日期窗口分段拉取
 * @architecture 数据抽取层
 * @documentReference DESIGN.md
 * @stateFlow page=1 -> 调用列表函数 -> 累积 -> 短页/达到总数/协议失败 -> 结束
 * @rules 协议失败(code!=0 或 data 非数组)保留已拉取数据且不报错；传输错误直接返回；
 *        日期窗口最多跨 7 天，最后一个窗口截断到结束日期
 * @dependencies agent-datahub/service/models, agent-datahub/service/meta
 * @refs service/sync_engine/strategies.go
 */

package sync_engine

import (
	"agent-datahub/service/meta"
	"agent-datahub/service/models"
	"context"
	"fmt"
	"log/slog"
	"math"
)

const (
	// DefaultPageSize 上游单页条数
	DefaultPageSize = 50
	// MaxDays 单个日期窗口的跨度(结束日期 = 开始日期 + MaxDays)
	MaxDays = 6
)

// FetchOptions 分页拉取选项
type FetchOptions struct {
	PageSize int
	// MaxPages 最大页数，0 表示不限制
	MaxPages  int
	Sensitive bool
	// TrustCount 只依据 count 判断结束，不使用短页判断
	TrustCount bool
}

// FetchResult 分页拉取结果
type FetchResult struct {
	Data      []models.Row
	TotalData map[string]interface{}
}

// ChunkOptions 日期分段拉取选项
type ChunkOptions struct {
	PageSize  int
	Datetime  bool
	DateParam string
	Sensitive bool
}

// FetchAllPages 逐页调用列表函数直到没有更多数据
func FetchAllPages(ctx context.Context, listFn ListFunc, filters map[string]interface{}, opts FetchOptions) (*FetchResult, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	result := &FetchResult{Data: make([]models.Row, 0)}
	totalCount := int64(math.MaxInt64)

	for page := 1; int64(len(result.Data)) < totalCount && (opts.MaxPages <= 0 || page <= opts.MaxPages); page++ {
		params := make(map[string]interface{}, len(filters)+2)
		for k, v := range filters {
			params[k] = v
		}
		params["page"] = page
		params["limit"] = pageSize

		res, err := listFn(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("拉取第%d页失败: %w", page, err)
		}
		if !res.OK() {
			if res != nil {
				slog.Warn("上游返回失败，停止分页", "page", page, "code", res.Code, "msg", res.Msg)
			}
			break
		}

		totalCount = res.Count
		result.Data = append(result.Data, res.Data...)
		if result.TotalData == nil && res.TotalData != nil {
			result.TotalData = res.TotalData
		}

		if opts.TrustCount {
			if len(res.Data) == 0 {
				break
			}
			continue
		}
		if len(res.Data) < pageSize {
			break
		}
	}

	if opts.Sensitive {
		result.Data = StripSensitive(result.Data)
	}
	return result, nil
}

// StripSensitive 返回去除敏感字段后的行副本
func StripSensitive(rows []models.Row) []models.Row {
	out := make([]models.Row, len(rows))
	for i, row := range rows {
		clean := make(models.Row, len(row))
		for k, v := range row {
			clean[k] = v
		}
		for _, f := range meta.SensitiveFields {
			delete(clean, f)
		}
		out[i] = clean
	}
	return out
}

// DateWindowValue 生成日期过滤值
func DateWindowValue(start, end string, datetime bool) string {
	if datetime {
		return start + " 00:00:00|" + end + " 23:59:59"
	}
	return start + "|" + end
}

// FetchDateChunked 将日期区间按窗口切分后逐个分页拉取
func FetchDateChunked(ctx context.Context, listFn ListFunc, startDate, endDate string, filters map[string]interface{}, opts ChunkOptions) ([]models.Row, error) {
	start, err := ParseDate(startDate)
	if err != nil {
		return nil, err
	}
	end, err := ParseDate(endDate)
	if err != nil {
		return nil, err
	}
	dateParam := opts.DateParam
	if dateParam == "" {
		dateParam = defaultDateParam
	}

	all := make([]models.Row, 0)
	for chunkStart := start; !chunkStart.After(end); chunkStart = chunkStart.AddDate(0, 0, MaxDays+1) {
		chunkEnd := chunkStart.AddDate(0, 0, MaxDays)
		if chunkEnd.After(end) {
			chunkEnd = end
		}
		window := DateWindowValue(formatDate(chunkStart), formatDate(chunkEnd), opts.Datetime)

		params := make(map[string]interface{}, len(filters)+1)
		for k, v := range filters {
			params[k] = v
		}
		params[dateParam] = window

		res, err := FetchAllPages(ctx, listFn, params, FetchOptions{PageSize: opts.PageSize, Sensitive: opts.Sensitive})
		if err != nil {
			return nil, fmt.Errorf("拉取日期窗口 %s 失败: %w", window, err)
		}
		slog.Debug("日期窗口拉取完成", "window", window, "rows", len(res.Data))
		all = append(all, res.Data...)
	}
	return all, nil
}
