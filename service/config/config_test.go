package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"agent-datahub/service/models"
	"agent-datahub/service/sync_engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseEnv(t *testing.T) {
	t.Setenv("UPSTREAM_BASE_URL", "http://upstream.local")
	t.Setenv("HUB_BASE_URL", "http://hub.local")
}

func TestLoadDefaults(t *testing.T) {
	baseEnv(t)
	t.Setenv("SYNC_CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(sync_engine.DefaultAgentID), cfg.Sync.AgentID)
	assert.Equal(t, sync_engine.DefaultBatchSize, cfg.Sync.BatchSize)
	assert.Equal(t, sync_engine.DefaultPageSize, cfg.Sync.PageSize)
	assert.Equal(t, 30*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
}

func TestLoadRequiresUpstreamAndHub(t *testing.T) {
	t.Setenv("UPSTREAM_BASE_URL", "")
	t.Setenv("HUB_BASE_URL", "http://hub.local")

	_, err := Load()
	assert.ErrorContains(t, err, "UPSTREAM_BASE_URL")
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sync.yaml")
	content := `
upstream:
  base_url: http://from-file
  timeout: 10s
hub:
  base_url: http://hub-file
sync:
  agent_id: 7
  batch_size: 1000
  endpoints:
    bet_order:
      default_start_days: 14
    report_funds:
      default_start: "2025-01-01"
kafka:
  brokers: ["k1:9092"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("SYNC_CONFIG_FILE", path)
	t.Setenv("UPSTREAM_BASE_URL", "")
	t.Setenv("HUB_BASE_URL", "")
	t.Setenv("SYNC_BATCH_SIZE", "2000")
	t.Setenv("UPSTREAM_TIMEOUT", "45")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://from-file", cfg.Upstream.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, int64(7), cfg.Sync.AgentID)
	assert.Equal(t, 2000, cfg.Sync.BatchSize)
	assert.Equal(t, []string{"k1:9092"}, cfg.Kafka.Brokers)

	eps := sync_engine.DefaultEndpoints(nil)
	cfg.ApplyEndpointOverrides(eps)
	for _, ep := range eps {
		switch ep.Name {
		case "bet_order":
			assert.Equal(t, 14, ep.DefaultStartDays)
		case "report_funds":
			assert.Equal(t, "2025-01-01", ep.DefaultStart)
		}
	}
}

func TestLoadFileRejectsUnknownFormat(t *testing.T) {
	cfg := Default()
	err := cfg.LoadFile("config.toml")
	assert.ErrorContains(t, err, "不支持的配置文件格式")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Upstream.BaseURL = "http://u"
	cfg.Hub.BaseURL = "http://h"
	require.NoError(t, cfg.Validate())

	cfg.Sync.BatchSize = 0
	assert.Error(t, cfg.Validate())

	cfg.Sync.BatchSize = 10
	cfg.Database.Driver = "mysql"
	assert.ErrorContains(t, cfg.Validate(), "mysql")

	cfg.Database.Driver = "sqlite"
	cfg.Sync.Endpoints = map[string]EndpointOverride{"bet_order": {DefaultStart: "2025/01/01"}}
	assert.ErrorContains(t, cfg.Validate(), "bet_order")
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Driver: "sqlite", Name: "hub.db"}
	assert.Equal(t, "hub.db", d.DSN())

	d = DatabaseConfig{Driver: "postgres", URL: "postgres://x"}
	assert.Equal(t, "postgres://x", d.DSN())

	d = Default().Database
	assert.Contains(t, d.DSN(), "host=localhost")
	assert.Contains(t, d.DSN(), "search_path=public")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
}

func TestRedisFromEnv(t *testing.T) {
	baseEnv(t)
	t.Setenv("SYNC_CONFIG_FILE", "")
	t.Setenv("REDIS_HOST", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Redis.Enabled())

	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_DB", "3")
	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "cache:6379", cfg.Redis.Address)
	assert.Equal(t, 3, cfg.Redis.Database)

	// 连接器直接使用配置中的 Redis 段
	var rc models.RedisConfig = cfg.Redis
	assert.Equal(t, "cache:6379", rc.Address)
}
