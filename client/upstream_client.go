/*
 * @module client/upstream_client
 * @description 上游代理平台 HTTP 客户端：表单请求、会话 Cookie、字符集解码、限速与熔断
 * @architecture 适配器模式 - 封装上游代理后台的 AJAX 接口
 * @documentReference DESIGN.md
 * @stateFlow 本地限速 -> 共享配额 -> 熔断器 -> HTTP 请求 -> 字符集解码 -> 响应体
 * @rules 不做重试；非 2xx 视为错误；空参数不发送
 * @dependencies golang.org/x/time/rate, github.com/sony/gobreaker/v2, golang.org/x/text
 * @refs client/upstream_api.go, service/rate_limiter
 */

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/spf13/cast"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
	"golang.org/x/time/rate"
)

// QuotaWaiter 多实例共享的请求配额
type QuotaWaiter interface {
	Wait(ctx context.Context) error
}

// UpstreamConfig 上游客户端配置
type UpstreamConfig struct {
	BaseURL   string        `json:"base_url"`
	SessionID string        `json:"-"`
	Timeout   time.Duration `json:"timeout"`
	RateLimit float64       `json:"rate_limit"` // 每秒请求数
	RateBurst int           `json:"rate_burst"`
	// BreakerFailures 连续失败多少次后熔断
	BreakerFailures uint32            `json:"breaker_failures"`
	BreakerTimeout  time.Duration     `json:"breaker_timeout"`
	Transport       http.RoundTripper `json:"-"`
}

// UpstreamClient 上游 HTTP 客户端
type UpstreamClient struct {
	baseURL    string
	sessionID  string
	httpClient *http.Client
	limiter    *rate.Limiter
	quota      QuotaWaiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
	stats      *ClientStats
}

// NewUpstreamClient 创建上游客户端，quota 可以为空
func NewUpstreamClient(config *UpstreamConfig, quota QuotaWaiter) *UpstreamClient {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 5
	}
	if config.RateBurst == 0 {
		config.RateBurst = 1
	}
	if config.BreakerFailures == 0 {
		config.BreakerFailures = 5
	}
	if config.BreakerTimeout == 0 {
		config.BreakerTimeout = 30 * time.Second
	}

	failures := config.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "upstream",
		Timeout: config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("上游熔断器状态变化", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &UpstreamClient{
		baseURL:   strings.TrimRight(config.BaseURL, "/"),
		sessionID: config.SessionID,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: config.Transport,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
		quota:   quota,
		breaker: breaker,
		stats:   &ClientStats{},
	}
}

// Stats 请求统计
func (c *UpstreamClient) Stats() ClientStats {
	return c.stats.Snapshot()
}

// PostForm 以表单方式调用上游接口
func (c *UpstreamClient) PostForm(ctx context.Context, path string, params map[string]interface{}) ([]byte, error) {
	form := url.Values{}
	for k, v := range params {
		if v == nil {
			continue
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, fmt.Errorf("参数 %s 无法转换为字符串: %w", k, err)
		}
		if s == "" {
			continue
		}
		form.Set(k, s)
	}
	return c.do(ctx, path, "application/x-www-form-urlencoded; charset=UTF-8", []byte(form.Encode()))
}

// PostJSON 以 JSON 方式调用上游接口
func (c *UpstreamClient) PostJSON(ctx context.Context, path string, body interface{}) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}
	return c.do(ctx, path, "application/json", data)
}

func (c *UpstreamClient) do(ctx context.Context, path, contentType string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("等待限速失败: %w", err)
	}
	if c.quota != nil {
		if err := c.quota.Wait(ctx); err != nil {
			return nil, fmt.Errorf("等待共享配额失败: %w", err)
		}
	}

	c.stats.begin()
	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.send(ctx, path, contentType, body)
	})
	c.stats.done(err)
	if err != nil {
		return nil, fmt.Errorf("请求上游 %s 失败: %w", path, err)
	}
	return data, nil
}

func (c *UpstreamClient) send(ctx context.Context, path, contentType string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if c.sessionID != "" {
		req.AddCookie(&http.Cookie{Name: "PHPSESSID", Value: c.sessionID})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}
	return decodeCharset(raw, resp.Header.Get("Content-Type"))
}

// decodeCharset 按 Content-Type 声明的字符集转换为 UTF-8
func decodeCharset(raw []byte, contentType string) ([]byte, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return raw, nil
	}
	charset := strings.ToLower(params["charset"])
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return raw, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		slog.Warn("未知字符集，按 UTF-8 处理", "charset", charset)
		return raw, nil
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return nil, fmt.Errorf("字符集 %s 解码失败: %w", charset, err)
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
