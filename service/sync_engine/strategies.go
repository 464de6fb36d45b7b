/*
 * @module service/sync_engine/strategies
 * @description 端点同步策略：全量、按日期增量、按天报表、配置数据
 * @architecture 策略模式
 * @documentReference DESIGN.md
 * @stateFlow 起始日期 = 水位 ?? 默认起始；起始 >= 今天则跳过；否则拉取 -> 上传 -> 校验
 * @rules 今天只在策略开始时取一次；报表不做抽样校验；配置同步中彩种数据失败不影响整体
 * @dependencies agent-datahub/service/meta, agent-datahub/service/models
 * @refs service/sync_engine/sync_engine.go
 */

package sync_engine

import (
	"agent-datahub/service/meta"
	"agent-datahub/service/models"
	"context"
	"fmt"
	"log/slog"
)

// reportDateField 报表行的统一日期字段
const reportDateField = "report_date"

// syncFull 全量同步
func (e *Engine) syncFull(ctx context.Context, cfg *EndpointConfig, sink ProgressSink) (*models.SyncResult, error) {
	emit(sink, cfg.Name, meta.StepFetch, "Fetching all "+cfg.Name)

	res, err := FetchAllPages(ctx, cfg.ListFn, nil, FetchOptions{
		PageSize:  e.endpointPageSize(cfg),
		Sensitive: cfg.Sensitive,
	})
	if err != nil {
		return nil, fmt.Errorf("拉取 %s 失败: %w", cfg.Name, err)
	}
	e.metrics.fetched(cfg.Name, len(res.Data))

	result := &models.SyncResult{Endpoint: cfg.Name, Fetched: len(res.Data)}
	if len(res.Data) == 0 {
		return result, nil
	}
	return e.uploadAndVerify(ctx, cfg, res.Data, result, sink, true)
}

// syncDateRanged 从水位日期到今天按窗口增量同步
func (e *Engine) syncDateRanged(ctx context.Context, cfg *EndpointConfig, cache *StatusCache, sink ProgressSink) (*models.SyncResult, error) {
	start, end := e.resolveRange(cfg, cache)
	if start >= end {
		return e.skip(cfg, start, sink), nil
	}

	emit(sink, cfg.Name, meta.StepFetch, fmt.Sprintf("Fetching %s from %s to %s", cfg.Name, start, end))
	rows, err := FetchDateChunked(ctx, cfg.ListFn, start, end, nil, ChunkOptions{
		PageSize:  e.endpointPageSize(cfg),
		Datetime:  cfg.Datetime,
		DateParam: cfg.DateParam,
		Sensitive: cfg.Sensitive,
	})
	if err != nil {
		return nil, fmt.Errorf("拉取 %s 失败: %w", cfg.Name, err)
	}
	e.metrics.fetched(cfg.Name, len(rows))

	result := &models.SyncResult{Endpoint: cfg.Name, Fetched: len(rows), StartDate: start, EndDate: end}
	if len(rows) == 0 {
		return result, nil
	}
	return e.uploadAndVerify(ctx, cfg, rows, result, sink, true)
}

// syncDayByDay 报表逐日拉取，统一回填 report_date 后一次性上传
func (e *Engine) syncDayByDay(ctx context.Context, cfg *EndpointConfig, cache *StatusCache, sink ProgressSink) (*models.SyncResult, error) {
	start, end := e.resolveRange(cfg, cache)
	if start >= end {
		return e.skip(cfg, start, sink), nil
	}

	first, err := ParseDate(start)
	if err != nil {
		return nil, err
	}
	last, err := ParseDate(end)
	if err != nil {
		return nil, err
	}

	rows := make([]models.Row, 0)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		d := formatDate(day)
		emit(sink, cfg.Name, meta.StepFetch, fmt.Sprintf("Fetching %s for %s", cfg.Name, d))

		res, err := FetchAllPages(ctx, cfg.ListFn, map[string]interface{}{cfg.DateParam: d + "|" + d}, FetchOptions{
			PageSize:  e.endpointPageSize(cfg),
			Sensitive: cfg.Sensitive,
		})
		if err != nil {
			return nil, fmt.Errorf("拉取 %s %s 失败: %w", cfg.Name, d, err)
		}
		for _, row := range res.Data {
			fillReportDate(row, cfg.RenameDate, d)
		}
		rows = append(rows, res.Data...)
	}
	e.metrics.fetched(cfg.Name, len(rows))

	result := &models.SyncResult{Endpoint: cfg.Name, Fetched: len(rows), StartDate: start, EndDate: end}
	if len(rows) == 0 {
		return result, nil
	}
	return e.uploadAndVerify(ctx, cfg, rows, result, sink, false)
}

// fillReportDate 将 rename 字段改名为 report_date，缺失时回填当天日期
func fillReportDate(row models.Row, rename, day string) {
	if rename != "" {
		if v, ok := row[rename]; ok && v != nil {
			row[reportDateField] = v
			delete(row, rename)
			return
		}
	}
	if v, ok := row[reportDateField]; !ok || v == nil || v == "" {
		row[reportDateField] = day
	}
}

// syncConfig 同步彩种、邀请码、银行卡等配置数据
func (e *Engine) syncConfig(ctx context.Context, sink ProgressSink) (*models.SyncResult, error) {
	emit(sink, meta.EndpointConfig, meta.StepFetch, "Fetching config data")

	payload := map[string]interface{}{"agent_id": e.agentID}
	parts := make([]models.SubFetchResult, 0, 3)
	fetched := 0

	if e.config.LotteryInit != nil {
		part := models.SubFetchResult{Name: "lottery"}
		resp, err := e.config.LotteryInit(ctx)
		switch {
		case err != nil:
			part.Error = err.Error()
		case resp == nil || resp.Code != 1 || resp.Data == nil:
			part.Error = "彩种数据返回失败"
			if resp != nil && resp.Msg != "" {
				part.Error += ": " + resp.Msg
			}
		default:
			if len(resp.Data.SeriesData) > 0 {
				payload["lottery_series"] = resp.Data.SeriesData
			}
			if len(resp.Data.LotteryData) > 0 {
				payload["lottery_games"] = resp.Data.LotteryData
			}
			part.Count = len(resp.Data.SeriesData) + len(resp.Data.LotteryData)
		}
		if part.Error != "" {
			slog.Warn("彩种数据拉取失败，继续同步其他配置", "error", part.Error)
		}
		fetched += part.Count
		parts = append(parts, part)
	}

	lists := []struct {
		name   string
		key    string
		listFn ListFunc
	}{
		{"invite_list", "invite_list", e.config.InviteList},
		{"bank_list", "bank_list", e.config.BankList},
	}
	for _, l := range lists {
		if l.listFn == nil {
			continue
		}
		res, err := FetchAllPages(ctx, l.listFn, nil, FetchOptions{PageSize: e.pageSize})
		if err != nil {
			return nil, fmt.Errorf("拉取 %s 失败: %w", l.name, err)
		}
		if len(res.Data) > 0 {
			payload[l.key] = res.Data
		}
		fetched += len(res.Data)
		parts = append(parts, models.SubFetchResult{Name: l.name, Count: len(res.Data)})
	}
	e.metrics.fetched(meta.EndpointConfig, fetched)

	emit(sink, meta.EndpointConfig, meta.StepUpload, "Uploading config data")
	resp, err := e.hub.UploadConfig(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("上传配置数据失败: %w", err)
	}
	var processed int64
	if resp != nil {
		processed = resp.Processed
	}
	e.metrics.processed(meta.EndpointConfig, processed)

	return &models.SyncResult{
		Endpoint:    meta.EndpointConfig,
		Fetched:     fetched,
		Processed:   processed,
		ConfigParts: parts,
	}, nil
}

// resolveRange 计算同步区间，今天只取一次
func (e *Engine) resolveRange(cfg *EndpointConfig, cache *StatusCache) (string, string) {
	start, ok := cache.LastDataDate(cfg.Name)
	if !ok {
		start = cfg.resolveDefaultStart(e.clock)
	}
	return start, e.clock.Today()
}

func (e *Engine) skip(cfg *EndpointConfig, start string, sink ProgressSink) *models.SyncResult {
	emit(sink, cfg.Name, meta.StepSkip, fmt.Sprintf("%s is up to date (last: %s)", cfg.Name, start))
	return &models.SyncResult{Endpoint: cfg.Name, Skipped: true, LastDate: start}
}

func (e *Engine) uploadAndVerify(ctx context.Context, cfg *EndpointConfig, rows []models.Row, result *models.SyncResult, sink ProgressSink, verify bool) (*models.SyncResult, error) {
	processed, err := e.uploader.PostBatched(ctx, cfg.Name, cfg.SyncURL, rows, e.agentID, sink)
	if err != nil {
		return nil, fmt.Errorf("上传 %s 失败: %w", cfg.Name, err)
	}
	result.Processed = processed

	if verify {
		emit(sink, cfg.Name, meta.StepVerify, "Verifying "+cfg.Name)
		result.Verify = e.verifier.VerifyRandom(ctx, cfg.Name, rows, 0)
	}
	return result, nil
}

func (e *Engine) endpointPageSize(cfg *EndpointConfig) int {
	if cfg.PageSize > 0 {
		return cfg.PageSize
	}
	return e.pageSize
}
