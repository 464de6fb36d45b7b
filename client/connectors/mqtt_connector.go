/*
 * @module MQTTConnector
 * @description MQTT连接器，将同步进度事件发布到MQTT主题
 * @architecture 适配器模式 - 封装第三方MQTT客户端，提供统一的发布接口
 * @documentReference DESIGN.md
 * @stateFlow 连接建立 -> 事件序列化 -> 发布 -> 连接断开
 * @rules 主题按端点细分：<topic>/<endpoint>，运行级事件使用 <topic>/run
 * @dependencies github.com/eclipse/paho.mqtt.golang, encoding/json
 * @refs service/event/progress_hub.go, service/models/connector_models.go
 */
package connectors

import (
	"agent-datahub/service/models"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConnector MQTT连接器结构体
type MQTTConnector struct {
	config *models.MQTTConfig
	client mqtt.Client
	logger *log.Logger
	mutex  sync.RWMutex
	stats  *MQTTStats
}

// MQTTStats MQTT连接器统计信息
type MQTTStats struct {
	ConnectedAt    time.Time `json:"connected_at"`    // 连接时间
	MessagesSent   int64     `json:"messages_sent"`   // 发送消息数
	BytesSent      int64     `json:"bytes_sent"`      // 发送字节数
	ReconnectCount int       `json:"reconnect_count"` // 重连次数
	LastError      string    `json:"last_error"`      // 最后错误信息
	mutex          sync.RWMutex
}

// NewMQTTConnector 创建新的MQTT连接器
func NewMQTTConnector(config *models.MQTTConfig, logger *log.Logger) *MQTTConnector {
	if logger == nil {
		logger = log.Default()
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 10 * time.Second
	}
	if config.KeepAlive == 0 {
		config.KeepAlive = 60 * time.Second
	}
	if config.ClientID == "" {
		config.ClientID = fmt.Sprintf("agent-datahub-%d", time.Now().UnixNano())
	}

	connector := &MQTTConnector{
		config: config,
		logger: logger,
		stats:  &MQTTStats{},
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}
	opts.SetKeepAlive(config.KeepAlive)
	opts.SetConnectTimeout(config.ConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(connector.onConnected)
	opts.SetConnectionLostHandler(connector.onConnectionLost)

	connector.client = mqtt.NewClient(opts)
	return connector
}

// Name 发布器名称
func (mc *MQTTConnector) Name() string {
	return "mqtt"
}

// Connect 建立MQTT连接
func (mc *MQTTConnector) Connect() error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if mc.client.IsConnected() {
		return nil
	}
	mc.logger.Printf("正在连接MQTT broker: %s", mc.config.Broker)

	token := mc.client.Connect()
	if !token.WaitTimeout(mc.config.ConnectTimeout) {
		mc.updateError("MQTT连接超时")
		return fmt.Errorf("MQTT连接超时: %s", mc.config.Broker)
	}
	if err := token.Error(); err != nil {
		mc.updateError(err.Error())
		return fmt.Errorf("MQTT连接失败: %w", err)
	}
	return nil
}

// Disconnect 断开MQTT连接
func (mc *MQTTConnector) Disconnect() error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if !mc.client.IsConnected() {
		return nil
	}
	mc.client.Disconnect(250)
	mc.logger.Println("MQTT连接器已断开连接")
	return nil
}

// Publish 发布进度事件
func (mc *MQTTConnector) Publish(ctx context.Context, evt *models.ProgressEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}
	return mc.PublishMessage(ctx, &models.MQTTMessage{
		Topic:     mc.topicFor(evt),
		Payload:   payload,
		QoS:       mc.config.QoS,
		Retained:  mc.config.Retained,
		Timestamp: evt.Time,
	})
}

// PublishMessage 发布消息
func (mc *MQTTConnector) PublishMessage(ctx context.Context, message *models.MQTTMessage) error {
	mc.mutex.RLock()
	client := mc.client
	mc.mutex.RUnlock()

	if !client.IsConnected() {
		return fmt.Errorf("MQTT连接器未连接")
	}

	token := client.Publish(message.Topic, message.QoS, message.Retained, message.Payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(mc.config.ConnectTimeout):
		mc.updateError("发布超时")
		return fmt.Errorf("发布消息超时 topic=%s", message.Topic)
	}
	if err := token.Error(); err != nil {
		mc.updateError(err.Error())
		return fmt.Errorf("发布消息失败 topic=%s: %w", message.Topic, err)
	}

	mc.stats.mutex.Lock()
	mc.stats.MessagesSent++
	mc.stats.BytesSent += int64(len(message.Payload))
	mc.stats.mutex.Unlock()
	return nil
}

// GetStats 获取统计信息
func (mc *MQTTConnector) GetStats() MQTTStats {
	mc.stats.mutex.RLock()
	defer mc.stats.mutex.RUnlock()
	return MQTTStats{
		ConnectedAt:    mc.stats.ConnectedAt,
		MessagesSent:   mc.stats.MessagesSent,
		BytesSent:      mc.stats.BytesSent,
		ReconnectCount: mc.stats.ReconnectCount,
		LastError:      mc.stats.LastError,
	}
}

func (mc *MQTTConnector) topicFor(evt *models.ProgressEvent) string {
	base := strings.TrimRight(mc.config.Topic, "/")
	if evt.Endpoint == "" {
		return base + "/run"
	}
	return base + "/" + evt.Endpoint
}

func (mc *MQTTConnector) onConnected(client mqtt.Client) {
	mc.stats.mutex.Lock()
	if !mc.stats.ConnectedAt.IsZero() {
		mc.stats.ReconnectCount++
	}
	mc.stats.ConnectedAt = time.Now()
	mc.stats.mutex.Unlock()
	mc.logger.Printf("MQTT连接器已连接到broker: %s", mc.config.Broker)
}

func (mc *MQTTConnector) onConnectionLost(client mqtt.Client, err error) {
	mc.updateError(fmt.Sprintf("连接丢失: %v", err))
	mc.logger.Printf("MQTT连接丢失: %v", err)
}

func (mc *MQTTConnector) updateError(msg string) {
	mc.stats.mutex.Lock()
	mc.stats.LastError = msg
	mc.stats.mutex.Unlock()
}
