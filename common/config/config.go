package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	QoS            byte
	ConnectTimeout time.Duration
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// LoadFromEnv 从环境变量加载数据库配置，prefix 如 "MDB_DB"
func (c *DatabaseConfig) LoadFromEnv(prefix string) {
	c.Host = envString(prefix+"_HOST", c.Host)
	c.Port = envInt(prefix+"_PORT", c.Port)
	c.User = envString(prefix+"_USER", c.User)
	c.Password = envString(prefix+"_PASSWORD", c.Password)
	c.Database = envString(prefix+"_NAME", c.Database)
	c.SSLMode = envString(prefix+"_SSLMODE", c.SSLMode)
	c.MaxConns = envInt(prefix+"_MAX_CONNS", c.MaxConns)
	c.MaxIdle = envInt(prefix+"_MAX_IDLE", c.MaxIdle)
}

// LoadFromEnv 从环境变量加载Redis配置
func (c *RedisConfig) LoadFromEnv(prefix string) {
	c.Addr = envString(prefix+"_ADDR", c.Addr)
	c.Password = envString(prefix+"_PASSWORD", c.Password)
	c.DB = envInt(prefix+"_DB", c.DB)
}

// LoadFromEnv 从环境变量加载MQTT配置
func (c *MQTTConfig) LoadFromEnv(prefix string) {
	c.Broker = envString(prefix+"_BROKER", c.Broker)
	c.ClientID = envString(prefix+"_CLIENT_ID", c.ClientID)
	c.Username = envString(prefix+"_USERNAME", c.Username)
	c.Password = envString(prefix+"_PASSWORD", c.Password)
	if qos := envInt(prefix+"_QOS", int(c.QoS)); qos >= 0 && qos <= 2 {
		c.QoS = byte(qos)
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
