/*
 * @module service/rate_limiter/redis_rate_limiter
 * @description 基于Redis的上游请求配额，多个同步实例共享同一分钟窗口的请求上限
 * @architecture 工具层 - 提供分布式限流能力
 * @documentReference DESIGN.md
 * @stateFlow Wait -> Check(Redis计数) -> 超限则等待窗口重置 -> 重试
 * @rules 使用Redis INCR和EXPIRE实现固定窗口限流，Lua脚本保证原子性
 * @dependencies github.com/go-redis/redis/v8
 * @refs client/upstream_client.go, service/init.go
 */

package rate_limiter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateLimitResult 限流检查结果
type RateLimitResult struct {
	Allowed   bool          `json:"allowed"`   // 是否允许请求
	Limit     int           `json:"limit"`     // 限制数量
	Remaining int           `json:"remaining"` // 剩余数量
	ResetAt   int64         `json:"reset_at"`  // 重置时间（Unix时间戳）
	RetryIn   time.Duration `json:"-"`
}

// quotaScript 原子地检查并增加计数
const quotaScript = `
	local key = KEYS[1]
	local max_requests = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])

	local current = redis.call('GET', key)
	if current == false then
		current = 0
	else
		current = tonumber(current)
	end

	if current >= max_requests then
		local ttl = redis.call('TTL', key)
		if ttl == -1 then
			ttl = window
		end
		return {0, current, max_requests, ttl}
	end

	local new_count = redis.call('INCR', key)
	if new_count == 1 then
		redis.call('EXPIRE', key, window)
	end

	local ttl = redis.call('TTL', key)
	if ttl == -1 then
		ttl = window
	end

	return {1, new_count, max_requests, ttl}
`

// UpstreamQuota 上游请求配额
type UpstreamQuota struct {
	client      redis.Cmdable
	name        string
	maxRequests int
	window      time.Duration
}

// NewUpstreamQuota 创建上游请求配额，window 按秒取整
func NewUpstreamQuota(client redis.Cmdable, name string, maxRequests int, window time.Duration) *UpstreamQuota {
	if window < time.Second {
		window = time.Minute
	}
	return &UpstreamQuota{
		client:      client,
		name:        name,
		maxRequests: maxRequests,
		window:      window,
	}
}

// Check 检查并占用一个配额
func (q *UpstreamQuota) Check(ctx context.Context) (*RateLimitResult, error) {
	windowSec := int(q.window.Seconds())
	key := q.buildKey(time.Now())

	result, err := q.client.Eval(ctx, quotaScript, []string{key}, q.maxRequests, windowSec).Result()
	if err != nil {
		return nil, fmt.Errorf("限流检查失败: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 4 {
		return nil, fmt.Errorf("限流脚本返回格式错误: %v", result)
	}
	allowed := values[0].(int64) == 1
	current := int(values[1].(int64))
	limit := int(values[2].(int64))
	ttl := time.Duration(values[3].(int64)) * time.Second

	remaining := limit - current
	if remaining < 0 {
		remaining = 0
	}
	return &RateLimitResult{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   time.Now().Add(ttl).Unix(),
		RetryIn:   ttl,
	}, nil
}

// Wait 阻塞直到获得配额或 ctx 结束
func (q *UpstreamQuota) Wait(ctx context.Context) error {
	for {
		res, err := q.Check(ctx)
		if err != nil {
			return err
		}
		if res.Allowed {
			return nil
		}

		wait := res.RetryIn
		if wait <= 0 {
			wait = time.Second
		}
		slog.Debug("上游配额已用尽，等待窗口重置", "quota", q.name, "wait", wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Reset 清除当前窗口计数
func (q *UpstreamQuota) Reset(ctx context.Context) error {
	return q.client.Del(ctx, q.buildKey(time.Now())).Err()
}

// buildKey 构造限流Key
func (q *UpstreamQuota) buildKey(now time.Time) string {
	windowSec := int64(q.window.Seconds())
	return fmt.Sprintf("rate_limit:upstream:%s:%d", q.name, now.Unix()/windowSec)
}
