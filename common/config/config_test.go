package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("MDB_DB_HOST", "db.internal")
	t.Setenv("MDB_DB_PORT", "6543")
	t.Setenv("MDB_DB_NAME", "mdb")
	t.Setenv("MDB_DB_MAX_CONNS", "not-a-number")

	cfg := DatabaseConfig{Host: "localhost", Port: 5432, User: "postgres", Database: "yamcs", SSLMode: "disable", MaxConns: 8}
	cfg.LoadFromEnv("MDB_DB")

	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, "postgres", cfg.User)
	assert.Equal(t, "mdb", cfg.Database)
	assert.Equal(t, 8, cfg.MaxConns)
	assert.Equal(t, "host=db.internal port=6543 user=postgres password= dbname=mdb sslmode=disable", cfg.GetDSN())
}

func TestMQTTConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("MDB_MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("MDB_MQTT_QOS", "7")

	cfg := MQTTConfig{ClientID: "mdb-server", QoS: 1}
	cfg.LoadFromEnv("MDB_MQTT")

	assert.Equal(t, "tcp://broker:1883", cfg.Broker)
	assert.Equal(t, "mdb-server", cfg.ClientID)
	// 非法 QoS 保持原值
	assert.Equal(t, byte(1), cfg.QoS)
}
