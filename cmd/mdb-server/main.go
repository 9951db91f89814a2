package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"telemetry-mdb/internal/config"
	"telemetry-mdb/internal/consumer"
	httpapi "telemetry-mdb/internal/http"
	"telemetry-mdb/internal/repository"
	"telemetry-mdb/internal/service"
	"telemetry-mdb/internal/store"

	"telemetry-mdb/common/database"
	"telemetry-mdb/common/logger"
	mqttcommon "telemetry-mdb/common/mqtt"
	rediscommon "telemetry-mdb/common/redis"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "mdb-server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := service.NewRegistry(log)

	// 快照仓库：DB 未启用时使用内存仓库（可由 YAML 预置）
	var repo repository.SnapshotRepo
	var db *sql.DB
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(ctx, &cfg.Database); err == nil {
			db = d
			repo = repository.NewPostgresMdbRepo(db, log)
			log.Info("DB enabled for mdb-server")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory", zap.Error(err))
		}
	}
	if repo == nil {
		mem := repository.NewMemoryMdbRepo()
		if cfg.SeedFile != "" {
			n, err := mem.SeedFromYAMLFile(ctx, cfg.SeedFile)
			if err != nil {
				log.Fatal("Failed to seed mdb", zap.String("file", cfg.SeedFile), zap.Error(err))
			}
			log.Info("Seeded mdb from file", zap.String("file", cfg.SeedFile), zap.Int("instance_count", n))
		}
		repo = mem
	}

	// Redis 快照缓存与更新通知
	var (
		redisClient *rediscommon.Client
		cache       service.SnapshotCacher
		snapCache   *store.SnapshotCache
		publisher   service.UpdatePublisher
	)
	if cfg.Cache.Enabled {
		redisClient = rediscommon.NewRedisClient(&cfg.Redis)
		if err := rediscommon.Ping(ctx, redisClient); err != nil {
			log.Warn("Redis unavailable, snapshot cache disabled", zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		} else {
			snapCache = store.NewSnapshotCache(store.NewRedisKV(redisClient), cfg.Cache.KeyPrefix, cfg.Cache.TTL, log)
			cache = snapCache
			publisher = service.NewStreamPublisher(redisClient, cfg.Cache.UpdateStream, cfg.Cache.StreamMaxLen)
		}
	}

	var upstream service.SnapshotFetcher
	if cfg.Upstream.URL != "" {
		upstream = service.NewUpstreamClient(cfg.Upstream.URL, cfg.Upstream.Timeout, cfg.Upstream.Retries, log)
	}

	loader := service.NewLoader(registry, repo, cache, upstream, publisher, log)
	if err := loader.LoadAll(ctx, cfg.Instances); err != nil {
		log.Warn("Some instances have no mdb yet", zap.Error(err))
	}

	var wg sync.WaitGroup

	if snapCache != nil {
		if cached, err := snapCache.Instances(ctx); err == nil {
			log.Info("Snapshot cache contents", zap.Strings("instances", cached))
		}

		streamConsumer := consumer.NewSnapshotStreamConsumer(
			redisClient, snapCache, registry,
			cfg.Cache.UpdateStream, cfg.Cache.ConsumerGroup, cfg.Cache.ConsumerName,
			log,
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := streamConsumer.Start(ctx); err != nil {
				log.Error("Snapshot stream consumer stopped", zap.Error(err))
			}
		}()
	}

	var mqttClient *mqttcommon.Client
	var updateConsumer *consumer.MdbUpdateConsumer
	if cfg.MQTT.Enabled {
		if c, err := mqttcommon.NewClient(&cfg.MQTT.MQTTConfig, log); err == nil {
			mqttClient = c
			updateConsumer = consumer.NewMdbUpdateConsumer(mqttClient, loader, cfg.MQTT.TopicPrefix, cfg.MQTT.QoS, cfg.Instances, log)
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := updateConsumer.Start(ctx); err != nil {
					log.Error("MDB update consumer stopped", zap.Error(err))
				}
			}()
		} else {
			log.Warn("MQTT enabled but connection failed, live updates disabled", zap.Error(err))
		}
	}

	svc := service.NewMdbService(registry, cfg.List.DefaultLimit, cfg.List.MaxLimit, log)
	router := httpapi.NewRouter(log)
	router.RegisterMdbRoutes(httpapi.NewMdbHandler(svc, registry, loader, cfg.Instances, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)

	if updateConsumer != nil {
		_ = updateConsumer.Stop()
	}
	wg.Wait()
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}
}
