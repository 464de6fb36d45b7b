/*
 * @module service/models/connector_models
 * @description 外部连接器的配置模型（Kafka、MQTT、Redis）
 * @architecture 数据模型层
 * @documentReference DESIGN.md
 * @stateFlow 配置加载 -> 连接器创建 -> 发布
 * @rules 未配置 broker 时不创建连接器
 * @dependencies time
 * @refs client/connectors
 */

package models

import "time"

// KafkaConfig Kafka发布配置
type KafkaConfig struct {
	Brokers           []string          `json:"brokers" yaml:"brokers"`                       // Kafka broker地址列表
	Topic             string            `json:"topic" yaml:"topic"`                           // 进度事件主题
	RequiredAcks      int               `json:"required_acks" yaml:"required_acks"`           // 确认模式
	Async             bool              `json:"async" yaml:"async"`                           // 是否异步发送
	BatchTimeout      time.Duration     `json:"batch_timeout" yaml:"batch_timeout"`           // 批量超时时间
	ConnectionTimeout time.Duration     `json:"connection_timeout" yaml:"connection_timeout"` // 写入超时时间
	CustomHeaders     map[string]string `json:"custom_headers" yaml:"custom_headers"`         // 自定义消息头
}

// KafkaMessage Kafka消息结构体
type KafkaMessage struct {
	Topic     string            `json:"topic"`
	Key       string            `json:"key"`
	Value     interface{}       `json:"value"`
	Headers   map[string]string `json:"headers"`
	Timestamp time.Time         `json:"timestamp"`
}

// MQTTConfig MQTT发布配置
type MQTTConfig struct {
	Broker         string        `json:"broker" yaml:"broker"`                   // MQTT broker地址
	ClientID       string        `json:"client_id" yaml:"client_id"`             // 客户端ID
	Username       string        `json:"username" yaml:"username"`               // 用户名
	Password       string        `json:"password" yaml:"password"`               // 密码
	Topic          string        `json:"topic" yaml:"topic"`                     // 进度事件主题
	QoS            byte          `json:"qos" yaml:"qos"`                         // 服务质量
	Retained       bool          `json:"retained" yaml:"retained"`               // 是否保留
	KeepAlive      time.Duration `json:"keep_alive" yaml:"keep_alive"`           // 保持连接时间
	ConnectTimeout time.Duration `json:"connect_timeout" yaml:"connect_timeout"` // 连接超时
}

// MQTTMessage MQTT消息
type MQTTMessage struct {
	Topic     string    `json:"topic"`
	Payload   []byte    `json:"payload"`
	QoS       byte      `json:"qos"`
	Retained  bool      `json:"retained"`
	Timestamp time.Time `json:"timestamp"`
}

// RedisConfig Redis配置，Address 与 Addresses 都为空时不启用
type RedisConfig struct {
	Address      string        `json:"address" yaml:"address"`               // 单机地址 host:port
	Addresses    []string      `json:"addresses" yaml:"addresses"`           // 集群地址列表
	Password     string        `json:"password" yaml:"password"`             // 密码
	Database     int           `json:"database" yaml:"database"`             // 数据库编号
	PoolSize     int           `json:"pool_size" yaml:"pool_size"`           // 连接池大小
	MinIdleConns int           `json:"min_idle_conns" yaml:"min_idle_conns"` // 最小空闲连接数
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout"`     // 连接超时时间
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`     // 读取超时时间
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`   // 写入超时时间
}

// Enabled 是否配置了Redis
func (c RedisConfig) Enabled() bool {
	return c.Address != "" || len(c.Addresses) > 0
}
