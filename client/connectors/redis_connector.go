/*
 * @module RedisConnector
 * @description Redis连接器，为分布式锁和上游共享配额提供共用的Redis客户端
 * @architecture 适配器模式 - 封装第三方Redis客户端，提供统一的接口
 * @documentReference DESIGN.md
 * @stateFlow 创建客户端 -> Ping 建立连接 -> 提供客户端/健康检查 -> 断开
 * @rules 单机与集群模式统一为 UniversalClient；连接失败时调用方退化为进程内锁
 * @dependencies github.com/go-redis/redis/v8
 * @refs service/distributed_lock/redis_lock.go, service/rate_limiter/redis_rate_limiter.go
 */
package connectors

import (
	"agent-datahub/service/models"
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisConnector Redis连接器结构体
type RedisConnector struct {
	config      *models.RedisConfig
	client      redis.UniversalClient
	logger      *log.Logger
	isConnected bool
	mutex       sync.RWMutex
	stats       *RedisStats
}

// RedisStats Redis连接器统计信息
type RedisStats struct {
	ConnectedAt time.Time `json:"connected_at"` // 连接时间
	PingCount   int64     `json:"ping_count"`   // 健康检查次数
	LastError   string    `json:"last_error"`   // 最后错误信息
	mutex       sync.RWMutex
}

// NewRedisConnector 创建新的Redis连接器，多个地址时使用集群模式
func NewRedisConnector(config *models.RedisConfig, logger *log.Logger) *RedisConnector {
	addrs := config.Addresses
	if len(addrs) == 0 && config.Address != "" {
		addrs = []string{config.Address}
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        addrs,
		Password:     config.Password,
		DB:           config.Database,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	return &RedisConnector{
		config: config,
		client: client,
		logger: logger,
		stats:  &RedisStats{},
	}
}

// Name 连接器名称
func (rc *RedisConnector) Name() string {
	return "redis"
}

// Connect 建立Redis连接
func (rc *RedisConnector) Connect() error {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	if rc.isConnected {
		return nil
	}

	rc.logger.Printf("正在连接Redis...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rc.client.Ping(ctx).Err(); err != nil {
		rc.updateError(fmt.Sprintf("Redis连接失败: %v", err))
		return fmt.Errorf("Redis连接失败: %w", err)
	}

	rc.isConnected = true
	rc.stats.mutex.Lock()
	rc.stats.ConnectedAt = time.Now()
	rc.stats.mutex.Unlock()
	rc.logger.Printf("Redis连接器已连接")
	return nil
}

// Disconnect 断开Redis连接
func (rc *RedisConnector) Disconnect() error {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	if !rc.isConnected {
		return nil
	}
	if err := rc.client.Close(); err != nil {
		rc.logger.Printf("关闭Redis客户端失败: %v", err)
	}
	rc.isConnected = false
	rc.logger.Println("Redis连接器已断开连接")
	return nil
}

// Client 返回底层客户端
func (rc *RedisConnector) Client() redis.UniversalClient {
	return rc.client
}

// Ping 健康检查
func (rc *RedisConnector) Ping(ctx context.Context) error {
	rc.stats.mutex.Lock()
	rc.stats.PingCount++
	rc.stats.mutex.Unlock()

	if err := rc.client.Ping(ctx).Err(); err != nil {
		rc.updateError(err.Error())
		return err
	}
	return nil
}

// IsConnected 检查连接状态
func (rc *RedisConnector) IsConnected() bool {
	rc.mutex.RLock()
	defer rc.mutex.RUnlock()
	return rc.isConnected
}

// GetStatistics 获取连接器统计信息
func (rc *RedisConnector) GetStatistics() map[string]interface{} {
	connected := rc.IsConnected()

	rc.stats.mutex.RLock()
	defer rc.stats.mutex.RUnlock()

	stats := map[string]interface{}{
		"connected":    connected,
		"address":      rc.config.Address,
		"addresses":    rc.config.Addresses,
		"database":     rc.config.Database,
		"connected_at": rc.stats.ConnectedAt,
		"ping_count":   rc.stats.PingCount,
		"last_error":   rc.stats.LastError,
	}

	pool := rc.client.PoolStats()
	stats["pool"] = map[string]interface{}{
		"hits":        pool.Hits,
		"misses":      pool.Misses,
		"timeouts":    pool.Timeouts,
		"total_conns": pool.TotalConns,
		"idle_conns":  pool.IdleConns,
		"stale_conns": pool.StaleConns,
	}
	return stats
}

func (rc *RedisConnector) updateError(errMsg string) {
	rc.stats.mutex.Lock()
	rc.stats.LastError = errMsg
	rc.stats.mutex.Unlock()
}
