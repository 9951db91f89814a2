package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	commoncfg "telemetry-mdb/common/config"
)

// Config mdb-server 配置
type Config struct {
	HTTP struct {
		Addr string
	}

	// Instances 服务的实例列表，如 "simulator"
	Instances []string

	DBEnabled bool
	Database  commoncfg.DatabaseConfig
	Redis     commoncfg.RedisConfig

	MQTT struct {
		Enabled bool
		commoncfg.MQTTConfig
		// TopicPrefix 快照更新主题前缀，完整主题为 {prefix}/{instance}/snapshot
		TopicPrefix string
	}

	Cache struct {
		Enabled       bool
		KeyPrefix     string        // 快照缓存键前缀，如 "mdb:snapshot:"
		TTL           time.Duration // 快照缓存 TTL
		UpdateStream  string        // 快照更新通知 stream
		StreamMaxLen  int64
		ConsumerGroup string
		ConsumerName  string
	}

	Upstream struct {
		URL     string // 上游 Yamcs 服务地址，空表示不从上游加载
		Timeout time.Duration
		Retries int
	}

	// SeedFile YAML 格式的 MDB 定义文件
	SeedFile string

	List struct {
		DefaultLimit int
		MaxLimit     int
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 从环境变量加载配置（带默认值）
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8090")
	cfg.Instances = splitList(getEnv("MDB_INSTANCES", "simulator"))
	if len(cfg.Instances) == 0 {
		return nil, fmt.Errorf("MDB_INSTANCES must name at least one instance")
	}

	cfg.DBEnabled = getEnv("DB_ENABLED", "false") == "true"
	cfg.Database = commoncfg.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "yamcs_mdb",
		SSLMode:  "disable",
		MaxConns: 10,
		MaxIdle:  2,
	}
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis = commoncfg.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.MQTTConfig = commoncfg.MQTTConfig{
		Broker:         "tcp://localhost:1883",
		ClientID:       "mdb-server",
		QoS:            1,
		ConnectTimeout: 10 * time.Second,
	}
	cfg.MQTT.MQTTConfig.LoadFromEnv("MQTT")
	cfg.MQTT.TopicPrefix = getEnv("MQTT_TOPIC_PREFIX", "mdb")

	cfg.Cache.Enabled = getEnv("CACHE_ENABLED", "true") == "true"
	cfg.Cache.KeyPrefix = getEnv("CACHE_KEY_PREFIX", "mdb:snapshot:")
	cfg.Cache.TTL = time.Duration(parseInt(getEnv("CACHE_TTL_SEC", "3600"), 3600)) * time.Second
	cfg.Cache.UpdateStream = getEnv("CACHE_UPDATE_STREAM", "mdb:updates")
	cfg.Cache.StreamMaxLen = 1000
	cfg.Cache.ConsumerGroup = getEnv("CACHE_CONSUMER_GROUP", "mdb-server")
	cfg.Cache.ConsumerName = getEnv("CACHE_CONSUMER_NAME", hostname())

	cfg.Upstream.URL = getEnv("UPSTREAM_URL", "")
	cfg.Upstream.Timeout = time.Duration(parseInt(getEnv("UPSTREAM_TIMEOUT_SEC", "30"), 30)) * time.Second
	cfg.Upstream.Retries = parseInt(getEnv("UPSTREAM_RETRIES", "3"), 3)

	cfg.SeedFile = getEnv("MDB_SEED_FILE", "")

	cfg.List.DefaultLimit = 100
	cfg.List.MaxLimit = parseInt(getEnv("LIST_MAX_LIMIT", "1000"), 1000)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

// SnapshotTopic 某实例的快照更新主题
func (c *Config) SnapshotTopic(instance string) string {
	return c.MQTT.TopicPrefix + "/" + instance + "/snapshot"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func hostname() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "mdb-server"
}
