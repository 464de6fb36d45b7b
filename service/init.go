/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、迁移、客户端与同步引擎的装配
 * @architecture 分层架构 - 服务层
 * @documentReference DESIGN.md
 * @stateFlow 应用启动时执行初始化流程：数据库 -> 迁移 -> Redis -> 连接器 -> 客户端 -> 引擎 -> 运行管理 -> 调度器
 * @rules 数据库与迁移失败直接退出；Redis、Kafka、MQTT 为可选组件，失败只记录日志
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres, gorm.io/driver/sqlite, github.com/prometheus/client_golang
 * @refs main.go, api/routes.go
 */

package service

import (
	"agent-datahub/client"
	"agent-datahub/client/connectors"
	"agent-datahub/service/config"
	"agent-datahub/service/database"
	"agent-datahub/service/distributed_lock"
	"agent-datahub/service/event"
	"agent-datahub/service/models"
	"agent-datahub/service/rate_limiter"
	"agent-datahub/service/scheduler"
	"agent-datahub/service/sync_engine"
	"log"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	DB                     *gorm.DB
	GlobalConfig           *config.Config
	GlobalRedis            *connectors.RedisConnector
	GlobalUpstreamClient   *client.UpstreamClient
	GlobalHubClient        *client.HubClient
	GlobalProgressHub      *event.ProgressHub
	GlobalSyncEngine       *sync_engine.Engine
	GlobalSyncService      *SyncService
	GlobalSchedulerService *scheduler.SchedulerService

	publishers []connectorPublisher
)

// connectorPublisher 可断开的外部发布器
type connectorPublisher interface {
	event.Publisher
	Connect() error
	Disconnect() error
}

// Init 按配置初始化所有服务
func Init(cfg *config.Config) {
	GlobalConfig = cfg
	initDatabase(cfg.Database)
	runMigrations()
	initRedis(cfg.Redis)
	initServices(cfg)
}

// initDatabase 初始化数据库连接
func initDatabase(cfg config.DatabaseConfig) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN())
	default:
		dialector = postgres.Open(cfg.DSN())
	}

	var err error
	DB, err = gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	log.Printf("数据库连接成功: %s", cfg.Driver)
}

// runMigrations 运行数据库迁移
func runMigrations() {
	log.Println("开始运行数据库迁移...")

	if err := database.AutoMigrate(DB); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	// 上次进程退出时仍在执行的运行标记为失败
	n, err := database.MarkInterruptedRuns(DB)
	if err != nil {
		log.Printf("标记中断的同步运行失败: %v", err)
	} else if n > 0 {
		log.Printf("已将 %d 个中断的同步运行标记为失败", n)
	}

	log.Println("数据库迁移完成")
}

// initRedis 初始化Redis，未配置或连接失败时跳过
func initRedis(cfg models.RedisConfig) {
	if !cfg.Enabled() {
		log.Println("未配置Redis，使用进程内锁且不启用共享配额")
		return
	}
	rc := connectors.NewRedisConnector(&cfg, log.New(os.Stdout, "[redis] ", log.LstdFlags))
	if err := rc.Connect(); err != nil {
		log.Printf("Redis不可用，使用进程内锁: %v", err)
		return
	}
	GlobalRedis = rc
}

// initServices 初始化服务
func initServices(cfg *config.Config) {
	var quota client.QuotaWaiter
	var lock distributed_lock.DistributedLock
	if GlobalRedis != nil {
		lock = distributed_lock.NewRedisLock(GlobalRedis.Client())
		if cfg.Upstream.QuotaPerMinute > 0 {
			quota = rate_limiter.NewUpstreamQuota(GlobalRedis.Client(), "agent", cfg.Upstream.QuotaPerMinute, 0)
		}
	}

	GlobalUpstreamClient = client.NewUpstreamClient(&client.UpstreamConfig{
		BaseURL:         cfg.Upstream.BaseURL,
		SessionID:       cfg.Upstream.SessionID,
		Timeout:         cfg.Upstream.Timeout,
		RateLimit:       cfg.Upstream.RateLimit,
		RateBurst:       cfg.Upstream.RateBurst,
		BreakerFailures: cfg.Upstream.BreakerFailures,
		BreakerTimeout:  cfg.Upstream.BreakerTimeout,
	}, quota)
	GlobalHubClient = client.NewHubClient(&client.HubConfig{
		BaseURL: cfg.Hub.BaseURL,
		Token:   cfg.Hub.Token,
		Timeout: cfg.Hub.Timeout,
	})

	GlobalProgressHub = event.NewProgressHub(DB, initPublishers(cfg)...)

	endpoints := sync_engine.DefaultEndpoints(GlobalUpstreamClient.Listers())
	cfg.ApplyEndpointOverrides(endpoints)
	GlobalSyncEngine = sync_engine.NewEngine(sync_engine.Options{
		Hub:              GlobalHubClient,
		Endpoints:        endpoints,
		Config:           GlobalUpstreamClient.ConfigSources(),
		AgentID:          cfg.Sync.AgentID,
		BatchSize:        cfg.Sync.BatchSize,
		PageSize:         cfg.Sync.PageSize,
		VerifySampleSize: cfg.Sync.VerifySampleSize,
		Metrics:          sync_engine.NewMetrics(prometheus.DefaultRegisterer),
	})

	GlobalSyncService = NewSyncService(DB, GlobalSyncEngine, GlobalProgressHub, lock)

	GlobalSchedulerService = scheduler.NewSchedulerService(GlobalSyncService, cfg.Sync.Cron)
	if err := GlobalSchedulerService.Start(); err != nil {
		log.Printf("启动调度器服务失败: %v", err)
	}
	log.Println("服务初始化完成")
}

// initPublishers 连接配置了 broker 的外部发布器
func initPublishers(cfg *config.Config) []event.Publisher {
	candidates := make([]connectorPublisher, 0, 2)
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaCfg := cfg.Kafka
		candidates = append(candidates, connectors.NewKafkaConnector(&kafkaCfg, log.New(os.Stdout, "[kafka] ", log.LstdFlags)))
	}
	if cfg.MQTT.Broker != "" {
		mqttCfg := cfg.MQTT
		candidates = append(candidates, connectors.NewMQTTConnector(&mqttCfg, log.New(os.Stdout, "[mqtt] ", log.LstdFlags)))
	}

	out := make([]event.Publisher, 0, len(candidates))
	for _, p := range candidates {
		if err := p.Connect(); err != nil {
			log.Printf("连接 %s 失败，跳过进度事件发布: %v", p.Name(), err)
			continue
		}
		publishers = append(publishers, p)
		out = append(out, p)
	}
	return out
}

// Shutdown 停止调度器，等待运行结束并关闭连接
func Shutdown() {
	if GlobalSchedulerService != nil {
		GlobalSchedulerService.Stop()
	}
	if GlobalSyncService != nil {
		GlobalSyncService.Wait()
	}
	if GlobalProgressHub != nil {
		GlobalProgressHub.Close()
	}
	for _, p := range publishers {
		if err := p.Disconnect(); err != nil {
			log.Printf("断开 %s 失败: %v", p.Name(), err)
		}
	}
	if GlobalRedis != nil {
		_ = GlobalRedis.Disconnect()
	}
	log.Println("服务已关闭")
}
