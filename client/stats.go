/*
 * @module client/stats
 * @description HTTP 客户端请求统计
 * @architecture 工具层
 * @documentReference DESIGN.md
 * @rules 统计并发安全，对外只返回快照
 * @dependencies sync, time
 * @refs client/upstream_client.go, client/hub_client.go
 */

package client

import (
	"sync"
	"time"
)

// ClientStats 客户端统计信息
type ClientStats struct {
	RequestCount    int64     `json:"request_count"`     // 请求总数
	SuccessCount    int64     `json:"success_count"`     // 成功请求数
	ErrorCount      int64     `json:"error_count"`       // 错误请求数
	LastRequestTime time.Time `json:"last_request_time"` // 最后请求时间
	LastError       string    `json:"last_error,omitempty"`
	mutex           sync.RWMutex
}

func (s *ClientStats) begin() {
	s.mutex.Lock()
	s.RequestCount++
	s.LastRequestTime = time.Now()
	s.mutex.Unlock()
}

func (s *ClientStats) done(err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err != nil {
		s.ErrorCount++
		s.LastError = err.Error()
		return
	}
	s.SuccessCount++
}

// Snapshot 返回统计快照
func (s *ClientStats) Snapshot() ClientStats {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return ClientStats{
		RequestCount:    s.RequestCount,
		SuccessCount:    s.SuccessCount,
		ErrorCount:      s.ErrorCount,
		LastRequestTime: s.LastRequestTime,
		LastError:       s.LastError,
	}
}
