/*
 * @module client/hub_client
 * @description 本地库 HTTP 客户端：同步状态、批量上传、抽样校验、配置上传
 * @architecture 适配器模式
 * @documentReference DESIGN.md
 * @stateFlow JSON 请求 -> Bearer 认证 -> JSON 响应
 * @rules 非 2xx 视为错误，错误信息包含响应片段
 * @dependencies net/http, encoding/json
 * @refs service/sync_engine/sync_engine.go
 */

package client

import (
	"agent-datahub/service/models"
	"agent-datahub/service/sync_engine"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HubConfig 本地库客户端配置
type HubConfig struct {
	BaseURL   string            `json:"base_url"`
	Token     string            `json:"-"`
	Timeout   time.Duration     `json:"timeout"`
	Transport http.RoundTripper `json:"-"`
}

// HubClient 本地库客户端
type HubClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	stats      *ClientStats
}

// NewHubClient 创建本地库客户端
func NewHubClient(config *HubConfig) *HubClient {
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}
	return &HubClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		token:   config.Token,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: config.Transport,
		},
		stats: &ClientStats{},
	}
}

// Stats 请求统计
func (c *HubClient) Stats() ClientStats {
	return c.stats.Snapshot()
}

// FetchStatus 获取各端点同步状态
func (c *HubClient) FetchStatus(ctx context.Context) ([]models.SyncStatus, error) {
	var resp models.StatusResponse
	if err := c.doJSON(ctx, http.MethodGet, sync_engine.HubStatusPath, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Endpoints, nil
}

// Upload 上传一批数据
func (c *HubClient) Upload(ctx context.Context, path string, body *models.UploadRequest) (*models.UploadResponse, error) {
	var resp models.UploadResponse
	if err := c.doJSON(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Verify 按 id 查询本地库中的记录
func (c *HubClient) Verify(ctx context.Context, endpoint string, ids []interface{}) (*models.VerifyResponse, error) {
	var resp models.VerifyResponse
	path := sync_engine.HubVerifyPathPrefix + url.PathEscape(endpoint)
	if err := c.doJSON(ctx, http.MethodPost, path, &models.VerifyRequest{IDs: ids}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadConfig 上传配置数据
func (c *HubClient) UploadConfig(ctx context.Context, body map[string]interface{}) (*models.UploadResponse, error) {
	var resp models.UploadResponse
	if err := c.doJSON(ctx, http.MethodPost, sync_engine.HubConfigPath, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HubClient) doJSON(ctx context.Context, method, path string, in, out interface{}) (err error) {
	c.stats.begin()
	defer func() { c.stats.done(err) }()

	var reader io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("序列化请求失败: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求本地库 %s 失败: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("本地库 %s 返回 HTTP %d: %s", path, resp.StatusCode, truncate(string(raw), 200))
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("解析本地库响应失败: %w", err)
	}
	return nil
}
