/*
 * @module service/distributed_lock/redis_lock
 * @description 分布式锁实现，保证多实例部署时同一时刻只有一个同步运行
 * @architecture 工具层 - 提供分布式锁能力
 * @documentReference DESIGN.md
 * @stateFlow 获取锁 -> 执行同步运行(定期续期) -> 释放锁/自动过期
 * @rules 使用Redis SET NX实现，只有持有者可以释放或续期；未配置Redis时使用进程内锁
 * @dependencies github.com/go-redis/redis/v8
 * @refs service/sync_service.go, service/init.go
 */

package distributed_lock

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// SyncRunLockKey 同步运行互斥锁的键
const SyncRunLockKey = "sync_run"

// DistributedLock 分布式锁接口
type DistributedLock interface {
	// TryLock 尝试获取锁
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Unlock 释放锁
	Unlock(ctx context.Context, key string) error
	// Refresh 刷新锁的过期时间
	Refresh(ctx context.Context, key string, ttl time.Duration) error
	// IsLocked 检查锁是否存在
	IsLocked(ctx context.Context, key string) (bool, error)
}

// RedisLock Redis分布式锁实现
type RedisLock struct {
	client     redis.Cmdable
	instanceID string // 实例ID，用于标识锁的持有者
}

// NewRedisLock 基于已有的Redis客户端创建分布式锁
func NewRedisLock(client redis.Cmdable) *RedisLock {
	hostname, _ := os.Hostname()
	instanceID := fmt.Sprintf("%s:%d", hostname, os.Getpid())

	slog.Info("Redis分布式锁初始化成功", "instance_id", instanceID)
	return &RedisLock{
		client:     client,
		instanceID: instanceID,
	}
}

func lockKey(key string) string {
	return fmt.Sprintf("agent_datahub:lock:%s", key)
}

// TryLock 使用SET NX命令，只有当key不存在时才会设置成功
func (r *RedisLock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	result, err := r.client.SetNX(ctx, lockKey(key), r.instanceID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("获取锁失败: %w", err)
	}

	if result {
		slog.Debug("分布式锁: 成功获取锁", "key", key, "ttl", ttl, "instance", r.instanceID)
	}
	return result, nil
}

// Unlock 释放锁
func (r *RedisLock) Unlock(ctx context.Context, key string) error {
	script := `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`

	result, err := r.client.Eval(ctx, script, []string{lockKey(key)}, r.instanceID).Result()
	if err != nil {
		return fmt.Errorf("释放锁失败: %w", err)
	}

	if n, _ := result.(int64); n == 1 {
		slog.Debug("分布式锁: 成功释放锁", "key", key, "instance", r.instanceID)
	} else {
		slog.Warn("分布式锁: 锁不存在或已被其他实例持有", "key", key, "instance", r.instanceID)
	}
	return nil
}

// Refresh 刷新锁的过期时间
func (r *RedisLock) Refresh(ctx context.Context, key string, ttl time.Duration) error {
	script := `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("expire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`

	result, err := r.client.Eval(ctx, script, []string{lockKey(key)}, r.instanceID, int(ttl.Seconds())).Result()
	if err != nil {
		return fmt.Errorf("刷新锁失败: %w", err)
	}
	if n, _ := result.(int64); n == 1 {
		return nil
	}
	return fmt.Errorf("锁不存在或已被其他实例持有")
}

// IsLocked 检查锁是否存在
func (r *RedisLock) IsLocked(ctx context.Context, key string) (bool, error) {
	exists, err := r.client.Exists(ctx, lockKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("检查锁状态失败: %w", err)
	}
	return exists > 0, nil
}

// LocalLock 进程内锁，单实例部署或测试时使用
type LocalLock struct {
	mutex   sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewLocalLock 创建进程内锁
func NewLocalLock() *LocalLock {
	return &LocalLock{expires: make(map[string]time.Time), now: time.Now}
}

func (l *LocalLock) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if exp, ok := l.expires[key]; ok && l.now().Before(exp) {
		return false, nil
	}
	l.expires[key] = l.now().Add(ttl)
	return true, nil
}

func (l *LocalLock) Unlock(_ context.Context, key string) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	delete(l.expires, key)
	return nil
}

func (l *LocalLock) Refresh(_ context.Context, key string, ttl time.Duration) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if _, ok := l.expires[key]; !ok {
		return fmt.Errorf("锁不存在")
	}
	l.expires[key] = l.now().Add(ttl)
	return nil
}

func (l *LocalLock) IsLocked(_ context.Context, key string) (bool, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	exp, ok := l.expires[key]
	return ok && l.now().Before(exp), nil
}

// KeepAlive 定期续期直到返回的 stop 被调用
func KeepAlive(lock DistributedLock, key string, ttl, interval time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := lock.Refresh(ctx, key, ttl); err != nil {
					slog.Error("分布式锁: 续期失败", "key", key, "error", err)
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
