/*
 * @module service/config/config
 * @description 配置加载：.env 文件、YAML 配置文件与环境变量覆盖
 * @architecture 分层架构 - 配置层
 * @documentReference DESIGN.md
 * @stateFlow 默认值 -> .env -> YAML 文件(SYNC_CONFIG_FILE) -> 环境变量 -> 校验
 * @rules 环境变量优先级最高；上游与本地库地址必填；批量与分页大小必须为正数
 * @dependencies gopkg.in/yaml.v3, github.com/joho/godotenv, github.com/spf13/cast
 * @refs service/init.go, main.go
 */

package config

import (
	"agent-datahub/service/models"
	"agent-datahub/service/sync_engine"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	LogLevel string             `yaml:"log_level"`
	Server   ServerConfig       `yaml:"server"`
	Upstream UpstreamConfig     `yaml:"upstream"`
	Hub      HubConfig          `yaml:"hub"`
	Sync     SyncConfig         `yaml:"sync"`
	Database DatabaseConfig     `yaml:"database"`
	Redis    models.RedisConfig `yaml:"redis"`
	Kafka    models.KafkaConfig `yaml:"kafka"`
	MQTT     models.MQTTConfig  `yaml:"mqtt"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port        string `yaml:"port"`
	BaseContext string `yaml:"base_context"`
	// APIKeyHash 变更类接口的 API Key 的 bcrypt 哈希，为空时不校验
	APIKeyHash string `yaml:"api_key_hash"`
}

// UpstreamConfig 上游平台配置
type UpstreamConfig struct {
	BaseURL         string        `yaml:"base_url"`
	SessionID       string        `yaml:"session_id"`
	Timeout         time.Duration `yaml:"timeout"`
	RateLimit       float64       `yaml:"rate_limit"`
	RateBurst       int           `yaml:"rate_burst"`
	BreakerFailures uint32        `yaml:"breaker_failures"`
	BreakerTimeout  time.Duration `yaml:"breaker_timeout"`
	// QuotaPerMinute 多实例共享的每分钟请求上限，0 表示不启用
	QuotaPerMinute int `yaml:"quota_per_minute"`
}

// HubConfig 本地库配置
type HubConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// SyncConfig 同步引擎配置
type SyncConfig struct {
	AgentID          int64                       `yaml:"agent_id"`
	BatchSize        int                         `yaml:"batch_size"`
	PageSize         int                         `yaml:"page_size"`
	VerifySampleSize int                         `yaml:"verify_sample_size"`
	Cron             string                      `yaml:"cron"`
	Endpoints        map[string]EndpointOverride `yaml:"endpoints"`
}

// EndpointOverride 单个端点的覆盖配置
type EndpointOverride struct {
	DefaultStart     string `yaml:"default_start"`
	DefaultStartDays int    `yaml:"default_start_days"`
	PageSize         int    `yaml:"page_size"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // postgres | sqlite
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	Schema   string `yaml:"schema"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		LogLevel: "debug",
		Server:   ServerConfig{Port: "80"},
		Upstream: UpstreamConfig{
			Timeout:         30 * time.Second,
			RateLimit:       5,
			RateBurst:       1,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Hub: HubConfig{Timeout: 120 * time.Second},
		Sync: SyncConfig{
			AgentID:          sync_engine.DefaultAgentID,
			BatchSize:        sync_engine.DefaultBatchSize,
			PageSize:         sync_engine.DefaultPageSize,
			VerifySampleSize: sync_engine.DefaultVerifySampleSize,
		},
		Database: DatabaseConfig{
			Driver:  "postgres",
			Host:    "localhost",
			Port:    "5432",
			User:    "postgres",
			Name:    "postgres",
			SSLMode: "disable",
			Schema:  "public",
		},
		Redis: models.RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: models.KafkaConfig{Topic: "agent-datahub.sync-progress", RequiredAcks: 1},
		MQTT:  models.MQTTConfig{Topic: "agent-datahub/sync", QoS: 1},
	}
}

// Load 加载配置：.env、SYNC_CONFIG_FILE 指定的 YAML 文件，再用环境变量覆盖
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("加载 .env 失败: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("SYNC_CONFIG_FILE"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile 从 YAML 文件加载并覆盖当前配置
func (c *Config) LoadFile(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("不支持的配置文件格式: %s", ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取配置文件失败: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("解析配置文件失败: %w", err)
	}
	return nil
}

// ApplyEnv 环境变量覆盖
func (c *Config) ApplyEnv() {
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Server.Port, "LISTEN_PORT")
	setString(&c.Server.BaseContext, "BASE_CONTEXT")
	setString(&c.Server.APIKeyHash, "API_KEY_HASH")

	setString(&c.Upstream.BaseURL, "UPSTREAM_BASE_URL")
	setString(&c.Upstream.SessionID, "UPSTREAM_SESSION_ID")
	setDuration(&c.Upstream.Timeout, "UPSTREAM_TIMEOUT")
	if v := os.Getenv("UPSTREAM_RPS"); v != "" {
		c.Upstream.RateLimit = cast.ToFloat64(v)
	}
	if v := os.Getenv("UPSTREAM_QUOTA_PER_MINUTE"); v != "" {
		c.Upstream.QuotaPerMinute = cast.ToInt(v)
	}

	setString(&c.Hub.BaseURL, "HUB_BASE_URL")
	setString(&c.Hub.Token, "HUB_TOKEN")
	setDuration(&c.Hub.Timeout, "HUB_TIMEOUT")

	if v := os.Getenv("AGENT_ID"); v != "" {
		c.Sync.AgentID = cast.ToInt64(v)
	}
	setInt(&c.Sync.BatchSize, "SYNC_BATCH_SIZE")
	setInt(&c.Sync.PageSize, "SYNC_PAGE_SIZE")
	setInt(&c.Sync.VerifySampleSize, "SYNC_VERIFY_SAMPLE")
	setString(&c.Sync.Cron, "SYNC_CRON")

	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.Port, "DB_PORT")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Name, "DB_NAME")
	setString(&c.Database.SSLMode, "DB_SSLMODE")
	setString(&c.Database.Schema, "DB_SCHEMA")

	// 未配置 REDIS_HOST 时不启用分布式锁与共享配额
	if host := os.Getenv("REDIS_HOST"); host != "" {
		c.Redis.Address = host + ":" + getEnvWithDefault("REDIS_PORT", "6379")
	}
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setInt(&c.Redis.Database, "REDIS_DB")

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	setString(&c.Kafka.Topic, "KAFKA_TOPIC")
	setString(&c.MQTT.Broker, "MQTT_BROKER")
	setString(&c.MQTT.Topic, "MQTT_TOPIC")
	setString(&c.MQTT.Username, "MQTT_USERNAME")
	setString(&c.MQTT.Password, "MQTT_PASSWORD")
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("UPSTREAM_BASE_URL 不能为空")
	}
	if c.Hub.BaseURL == "" {
		return fmt.Errorf("HUB_BASE_URL 不能为空")
	}
	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("批量大小必须大于0: %d", c.Sync.BatchSize)
	}
	if c.Sync.PageSize <= 0 {
		return fmt.Errorf("分页大小必须大于0: %d", c.Sync.PageSize)
	}
	if c.Sync.VerifySampleSize <= 0 {
		return fmt.Errorf("抽样数量必须大于0: %d", c.Sync.VerifySampleSize)
	}
	if c.Upstream.RateLimit <= 0 {
		return fmt.Errorf("上游限速必须大于0: %v", c.Upstream.RateLimit)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", c.Database.Driver)
	}
	for name, o := range c.Sync.Endpoints {
		if o.DefaultStart != "" {
			if _, err := sync_engine.ParseDate(o.DefaultStart); err != nil {
				return fmt.Errorf("端点 %s 的 default_start 无效: %w", name, err)
			}
		}
	}
	return nil
}

// DSN 数据库连接串
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	if d.Driver == "sqlite" {
		return d.Name
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s TimeZone=Asia/Shanghai",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode, d.Schema)
}

// ApplyEndpointOverrides 将端点覆盖配置应用到端点表
func (c *Config) ApplyEndpointOverrides(endpoints []*sync_engine.EndpointConfig) {
	for _, ep := range endpoints {
		o, ok := c.Sync.Endpoints[ep.Name]
		if !ok {
			continue
		}
		if o.DefaultStart != "" {
			ep.DefaultStart = o.DefaultStart
		}
		if o.DefaultStartDays > 0 {
			ep.DefaultStartDays = o.DefaultStartDays
		}
		if o.PageSize > 0 {
			ep.PageSize = o.PageSize
		}
	}
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = cast.ToInt(v)
	}
}

// setDuration 支持 "30s" 形式，纯数字按秒处理
func setDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return
	}
	*dst = time.Duration(cast.ToInt64(v)) * time.Second
}

func splitList(v string) []string {
	out := make([]string, 0)
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
