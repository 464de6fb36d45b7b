/*
 * @module KafkaConnector
 * @description Kafka连接器，将同步进度事件发布到Kafka主题
 * @architecture 适配器模式 - 封装第三方Kafka客户端，提供统一的发布接口
 * @documentReference DESIGN.md
 * @stateFlow 连接建立 -> 事件序列化 -> 消息发送 -> 连接断开
 * @rules 以运行ID作为消息Key，保证同一次运行的事件落在同一分区且有序
 * @dependencies github.com/segmentio/kafka-go, encoding/json
 * @refs service/event/progress_hub.go, service/models/connector_models.go
 */
package connectors

import (
	"agent-datahub/service/models"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// messageWriter kafka.Writer 的最小接口
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConnector Kafka连接器结构体
type KafkaConnector struct {
	config      *models.KafkaConfig
	writer      messageWriter
	mutex       sync.RWMutex
	logger      *log.Logger
	isConnected bool
}

// NewKafkaConnector 创建新的Kafka连接器
func NewKafkaConnector(config *models.KafkaConfig, logger *log.Logger) *KafkaConnector {
	if logger == nil {
		logger = log.Default()
	}
	if config.ConnectionTimeout == 0 {
		config.ConnectionTimeout = 10 * time.Second
	}
	return &KafkaConnector{
		config: config,
		logger: logger,
	}
}

// Name 发布器名称
func (kc *KafkaConnector) Name() string {
	return "kafka"
}

// Connect 建立Kafka连接
func (kc *KafkaConnector) Connect() error {
	kc.mutex.Lock()
	defer kc.mutex.Unlock()

	if kc.isConnected {
		return nil
	}
	if len(kc.config.Brokers) == 0 || kc.config.Topic == "" {
		return fmt.Errorf("Kafka配置不完整: brokers=%v topic=%s", kc.config.Brokers, kc.config.Topic)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(kc.config.Brokers...),
		Topic:        kc.config.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequiredAcks(kc.config.RequiredAcks),
		Async:        kc.config.Async,
	}
	if kc.config.BatchTimeout > 0 {
		writer.BatchTimeout = kc.config.BatchTimeout
	}

	kc.writer = writer
	kc.isConnected = true
	kc.logger.Printf("Kafka连接器已连接到brokers: %v, topic: %s", kc.config.Brokers, kc.config.Topic)
	return nil
}

// Disconnect 断开Kafka连接
func (kc *KafkaConnector) Disconnect() error {
	kc.mutex.Lock()
	defer kc.mutex.Unlock()

	if !kc.isConnected {
		return nil
	}
	if err := kc.writer.Close(); err != nil {
		kc.logger.Printf("关闭生产者失败 topic=%s: %v", kc.config.Topic, err)
	}
	kc.isConnected = false
	kc.logger.Println("Kafka连接器已断开连接")
	return nil
}

// Publish 发布进度事件
func (kc *KafkaConnector) Publish(ctx context.Context, evt *models.ProgressEvent) error {
	return kc.ProduceMessage(ctx, &models.KafkaMessage{
		Topic:     kc.config.Topic,
		Key:       evt.RunID,
		Value:     evt,
		Headers:   map[string]string{"step": string(evt.Step), "endpoint": evt.Endpoint},
		Timestamp: evt.Time,
	})
}

// ProduceMessage 发送消息
func (kc *KafkaConnector) ProduceMessage(ctx context.Context, message *models.KafkaMessage) error {
	kc.mutex.RLock()
	writer, connected := kc.writer, kc.isConnected
	kc.mutex.RUnlock()

	if !connected {
		return fmt.Errorf("Kafka连接器未连接")
	}

	valueBytes, err := json.Marshal(message.Value)
	if err != nil {
		return fmt.Errorf("序列化消息值失败: %w", err)
	}

	kafkaMsg := kafka.Message{
		Key:   []byte(message.Key),
		Value: valueBytes,
		Time:  message.Timestamp,
	}
	for key, value := range message.Headers {
		kafkaMsg.Headers = append(kafkaMsg.Headers, kafka.Header{Key: key, Value: []byte(value)})
	}
	for key, value := range kc.config.CustomHeaders {
		kafkaMsg.Headers = append(kafkaMsg.Headers, kafka.Header{Key: key, Value: []byte(value)})
	}

	ctx, cancel := context.WithTimeout(ctx, kc.config.ConnectionTimeout)
	defer cancel()

	if err := writer.WriteMessages(ctx, kafkaMsg); err != nil {
		return fmt.Errorf("发送消息失败: %w", err)
	}
	return nil
}
