package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"telemetry-mdb/internal/config"
	"telemetry-mdb/internal/repository"

	"telemetry-mdb/common/database"
	"telemetry-mdb/common/logger"
	mqttcommon "telemetry-mdb/common/mqtt"

	"go.uber.org/zap"
)

// mdb-import 把 YAML 定义的 MDB 写入 PostgreSQL，可选通过 MQTT 推送给在线的 mdb-server
func main() {
	file := flag.String("file", os.Getenv("MDB_SEED_FILE"), "YAML mdb definition")
	schema := flag.Bool("schema", true, "create tables if missing")
	publish := flag.Bool("publish", false, "publish imported mdb to MQTT")
	flag.Parse()

	if *file == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -file <mdb.yaml> [-publish]\n", os.Args[0])
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.NewLogger(cfg.Log.Level, "console", "mdb-import")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal("Failed to read mdb file", zap.String("file", *file), zap.Error(err))
	}
	snaps, err := repository.ParseSnapshotsYAML(data)
	if err != nil {
		log.Fatal("Invalid mdb file", zap.String("file", *file), zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		log.Fatal("Cannot connect to database", zap.Error(err))
	}
	defer db.Close()

	if *schema {
		if err := repository.EnsureSchema(ctx, db); err != nil {
			log.Fatal("Failed to apply schema", zap.Error(err))
		}
	}

	var mqttClient *mqttcommon.Client
	if *publish {
		mqttClient, err = mqttcommon.NewClient(&cfg.MQTT.MQTTConfig, log)
		if err != nil {
			log.Fatal("Cannot connect to MQTT broker", zap.Error(err))
		}
		defer mqttClient.Disconnect()
	}

	instances := make([]string, 0, len(snaps))
	for name := range snaps {
		instances = append(instances, name)
	}
	sort.Strings(instances)

	repo := repository.NewPostgresMdbRepo(db, log)
	for _, instance := range instances {
		snap := snaps[instance]
		if err := repo.SaveSnapshot(ctx, snap); err != nil {
			log.Fatal("Failed to import mdb", zap.String("instance", instance), zap.Error(err))
		}
		if mqttClient == nil {
			continue
		}
		payload, err := json.Marshal(map[string]any{
			"parameters": snap.Parameters,
			"commands":   snap.Commands,
		})
		if err != nil {
			log.Fatal("Failed to encode mdb", zap.String("instance", instance), zap.Error(err))
		}
		topic := cfg.SnapshotTopic(instance)
		if err := mqttClient.Publish(topic, cfg.MQTT.QoS, false, payload); err != nil {
			log.Fatal("Failed to publish mdb", zap.String("topic", topic), zap.Error(err))
		}
		log.Info("Published mdb update", zap.String("topic", topic))
	}

	log.Info("Import completed",
		zap.String("file", *file),
		zap.Strings("instances", instances),
	)
}
