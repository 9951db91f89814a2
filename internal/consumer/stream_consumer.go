package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"telemetry-mdb/internal/service"
	"telemetry-mdb/internal/store"

	rediscommon "telemetry-mdb/common/redis"

	"go.uber.org/zap"
)

// SnapshotStreamConsumer 监听快照更新 Stream，从缓存同步其它实例发布的快照
// 每个进程使用独立的消费者组，保证每条通知都能收到
type SnapshotStreamConsumer struct {
	redisClient *rediscommon.Client
	cache       service.SnapshotCacher
	registry    *service.Registry
	stream      string
	group       string
	consumer    string
	batchSize   int64
	block       time.Duration
	logger      *zap.Logger
}

// NewSnapshotStreamConsumer 创建 Stream 消费者
func NewSnapshotStreamConsumer(
	redisClient *rediscommon.Client,
	cache service.SnapshotCacher,
	registry *service.Registry,
	stream, group, consumer string,
	logger *zap.Logger,
) *SnapshotStreamConsumer {
	return &SnapshotStreamConsumer{
		redisClient: redisClient,
		cache:       cache,
		registry:    registry,
		stream:      stream,
		group:       group + "-" + consumer,
		consumer:    consumer,
		batchSize:   10,
		block:       5 * time.Second,
		logger:      logger,
	}
}

// Start 创建消费者组后循环消费，出错时指数退避
func (c *SnapshotStreamConsumer) Start(ctx context.Context) error {
	if err := rediscommon.CreateConsumerGroup(ctx, c.redisClient, c.stream, c.group); err != nil {
		return err
	}

	c.logger.Info("Snapshot stream consumer started",
		zap.String("stream", c.stream),
		zap.String("consumer_group", c.group),
		zap.String("consumer_name", c.consumer),
	)

	backoff := time.Second
	maxBackoff := 30 * time.Second
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := c.consumeOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Failed to consume snapshot stream",
				zap.Error(err),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second
	}
}

func (c *SnapshotStreamConsumer) consumeOnce(ctx context.Context) error {
	messages, err := rediscommon.ReadFromStream(ctx, c.redisClient, c.stream, c.group, c.consumer, c.batchSize, c.block)
	if err != nil {
		return fmt.Errorf("failed to read stream: %w", err)
	}

	for _, msg := range messages {
		if err := c.handleMessage(ctx, msg); err != nil {
			c.logger.Warn("Failed to apply snapshot update",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}
		// 无法处理的消息同样确认，避免反复投递
		if err := rediscommon.Ack(ctx, c.redisClient, c.stream, c.group, msg.ID); err != nil {
			return fmt.Errorf("failed to ack %s: %w", msg.ID, err)
		}
	}
	return nil
}

func (c *SnapshotStreamConsumer) handleMessage(ctx context.Context, msg rediscommon.StreamMessage) error {
	data, ok := msg.Data()
	if !ok {
		return fmt.Errorf("message %s has no data field", msg.ID)
	}
	var update service.SnapshotUpdate
	if err := json.Unmarshal([]byte(data), &update); err != nil {
		return fmt.Errorf("failed to unmarshal update: %w", err)
	}

	// 本进程已有该快照（通常是自己发布的）
	if cur, err := c.registry.Get(update.Instance); err == nil && cur.ID == update.SnapshotID {
		return nil
	}

	snap, err := c.cache.Get(ctx, update.Instance)
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return fmt.Errorf("snapshot %s for %s no longer cached", update.SnapshotID, update.Instance)
		}
		return err
	}
	if snap.ID != update.SnapshotID {
		c.logger.Debug("Cached snapshot differs from notification, applying cached one",
			zap.String("instance", update.Instance),
			zap.String("notified_id", update.SnapshotID),
			zap.String("cached_id", snap.ID),
		)
	}
	c.registry.Replace(snap)
	return nil
}
