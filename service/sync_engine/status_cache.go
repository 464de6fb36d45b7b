/*
 * @module service/sync_engine/status_cache
 * @description 同步水位缓存：一次远程状态查询填充所有端点
 * @architecture 缓存层
 * @documentReference DESIGN.md
 * @rules 每次运行创建独立缓存；没有水位时返回未找到
 * @dependencies agent-datahub/service/models
 * @refs service/sync_engine/sync_engine.go
 */

package sync_engine

import (
	"agent-datahub/service/models"
	"sync"
)

// StatusCache 端点同步状态缓存
type StatusCache struct {
	mu       sync.RWMutex
	statuses map[string]models.SyncStatus
	cached   bool
}

// NewStatusCache 创建空缓存
func NewStatusCache() *StatusCache {
	return &StatusCache{statuses: make(map[string]models.SyncStatus)}
}

// Set 用一次状态查询的结果替换缓存内容
func (c *StatusCache) Set(list []models.SyncStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses = make(map[string]models.SyncStatus, len(list))
	for _, s := range list {
		c.statuses[s.Endpoint] = s
	}
	c.cached = true
}

// Get 获取端点状态
func (c *StatusCache) Get(name string) (models.SyncStatus, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.statuses[name]
	return s, ok
}

// LastDataDate 获取端点水位日期
func (c *StatusCache) LastDataDate(name string) (string, bool) {
	s, ok := c.Get(name)
	if !ok || s.SyncParams.LastDataDate == "" {
		return "", false
	}
	return s.SyncParams.LastDataDate, true
}

// IsCached 是否已经填充
func (c *StatusCache) IsCached() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cached
}

// Clear 清空缓存
func (c *StatusCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses = make(map[string]models.SyncStatus)
	c.cached = false
}

// Snapshot 返回缓存内容副本
func (c *StatusCache) Snapshot() map[string]models.SyncStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]models.SyncStatus, len(c.statuses))
	for k, v := range c.statuses {
		out[k] = v
	}
	return out
}
