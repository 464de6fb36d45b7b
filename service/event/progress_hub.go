/*
 * @module service/event/progress_hub
 * @description 同步进度事件中心：持久化进度事件，推送给SSE连接，并转发到Kafka/MQTT
 * @architecture 事件驱动架构 - 观察者模式
 * @documentReference DESIGN.md
 * @stateFlow 引擎发出事件 -> 持久化 -> SSE 推送 -> 外部发布队列 -> 发布器
 * @rules 事件中心的任何失败都只记录日志，不影响同步流程；
 *        外部发布由单个协程按顺序执行，队列满时丢弃
 * @dependencies agent-datahub/service/models, gorm.io/gorm
 * @refs service/sync_service.go, api/controllers/event_controller.go
 */

package event

import (
	"agent-datahub/service/meta"
	"agent-datahub/service/models"
	"context"
	"log"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"
)

// Publisher 外部事件发布器
type Publisher interface {
	Name() string
	Publish(ctx context.Context, evt *models.ProgressEvent) error
}

// SSEClient SSE客户端连接
type SSEClient struct {
	ID       string
	UserName string
	Channel  chan *models.ProgressEvent
	Done     chan bool
	ClientIP string
}

// ProgressHub 进度事件中心
type ProgressHub struct {
	db          *gorm.DB
	connections map[string]map[string]*SSEClient // userName -> connectionID -> client
	mu          sync.RWMutex

	publishers     []Publisher
	publishQueue   chan *models.ProgressEvent
	publishTimeout time.Duration
	wg             sync.WaitGroup
	closeOnce      sync.Once
}

// NewProgressHub 创建事件中心，db 为空时不持久化
func NewProgressHub(db *gorm.DB, publishers ...Publisher) *ProgressHub {
	hub := &ProgressHub{
		db:             db,
		connections:    make(map[string]map[string]*SSEClient),
		publishers:     publishers,
		publishQueue:   make(chan *models.ProgressEvent, 1000),
		publishTimeout: 10 * time.Second,
	}
	if len(publishers) > 0 {
		hub.wg.Add(1)
		go hub.publishLoop()
	}
	return hub
}

// Emit 接收一条进度事件
func (h *ProgressHub) Emit(evt *models.ProgressEvent) {
	if !meta.IsValidSyncStep(evt.Step) {
		slog.Warn("未知的进度步骤，丢弃事件", "run_id", evt.RunID, "step", evt.Step)
		return
	}
	if evt.Time.IsZero() {
		evt.Time = time.Now()
	}

	if h.db != nil {
		if err := h.db.Create(models.NewSyncProgressEvent(evt)).Error; err != nil {
			slog.Warn("保存进度事件失败", "run_id", evt.RunID, "step", evt.Step, "error", err)
		}
	}

	h.broadcast(evt)

	if len(h.publishers) > 0 {
		select {
		case h.publishQueue <- evt:
		default:
			slog.Warn("外部发布队列已满，丢弃事件", "run_id", evt.RunID, "step", evt.Step)
		}
	}
}

func (h *ProgressHub) publishLoop() {
	defer h.wg.Done()
	for evt := range h.publishQueue {
		for _, p := range h.publishers {
			ctx, cancel := context.WithTimeout(context.Background(), h.publishTimeout)
			if err := p.Publish(ctx, evt); err != nil {
				slog.Warn("发布进度事件失败", "publisher", p.Name(), "run_id", evt.RunID, "error", err)
			}
			cancel()
		}
	}
}

// Close 停止外部发布并等待队列中的事件发送完成
func (h *ProgressHub) Close() {
	h.closeOnce.Do(func() {
		close(h.publishQueue)
		h.wg.Wait()
	})
}

// === SSE连接管理 ===

// AddSSEConnection 添加SSE连接
func (h *ProgressHub) AddSSEConnection(userName, connectionID, clientIP string) *SSEClient {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.connections[userName] == nil {
		h.connections[userName] = make(map[string]*SSEClient)
	}
	client := &SSEClient{
		ID:       connectionID,
		UserName: userName,
		Channel:  make(chan *models.ProgressEvent, 100), // 缓冲100个事件
		Done:     make(chan bool),
		ClientIP: clientIP,
	}
	h.connections[userName][connectionID] = client

	log.Printf("SSE连接已建立: 用户=%s, 连接ID=%s, IP=%s", userName, connectionID, clientIP)
	return client
}

// RemoveSSEConnection 移除SSE连接
func (h *ProgressHub) RemoveSSEConnection(userName, connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userConnections, exists := h.connections[userName]
	if !exists {
		return
	}
	client, exists := userConnections[connectionID]
	if !exists {
		return
	}
	close(client.Done)
	delete(userConnections, connectionID)
	if len(userConnections) == 0 {
		delete(h.connections, userName)
	}
	log.Printf("SSE连接已断开: 用户=%s, 连接ID=%s", userName, connectionID)
}

// ConnectionCount 当前SSE连接数
func (h *ProgressHub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, conns := range h.connections {
		n += len(conns)
	}
	return n
}

// broadcast 推送给所有SSE连接，队列满时跳过
func (h *ProgressHub) broadcast(evt *models.ProgressEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for userName, userConnections := range h.connections {
		for _, client := range userConnections {
			select {
			case client.Channel <- evt:
			default:
				slog.Warn("SSE事件队列已满，跳过发送", "user", userName, "connection", client.ID)
			}
		}
	}
}

// ListRunEvents 查询某次运行的持久化事件
func (h *ProgressHub) ListRunEvents(runID string, limit int) ([]models.SyncProgressEvent, error) {
	if h.db == nil {
		return []models.SyncProgressEvent{}, nil
	}
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	var events []models.SyncProgressEvent
	err := h.db.Where("run_id = ?", runID).Order("created_at ASC").Limit(limit).Find(&events).Error
	return events, err
}
