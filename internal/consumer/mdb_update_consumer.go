package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"telemetry-mdb/internal/mdb"
	"telemetry-mdb/internal/service"

	mqttcommon "telemetry-mdb/common/mqtt"

	"go.uber.org/zap"
)

// Subscriber MQTT 订阅接口（common/mqtt.Client 实现）
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// mdbPayload MQTT 快照消息体：实例的完整 MDB
type mdbPayload struct {
	Parameters []*mdb.Parameter `json:"parameters"`
	Commands   []*mdb.Command   `json:"commands"`
}

// MdbUpdateConsumer 订阅 {prefix}/{instance}/snapshot，收到完整 MDB 后替换快照
type MdbUpdateConsumer struct {
	subscriber Subscriber
	loader     *service.Loader
	topic      string
	qos        byte
	instances  map[string]bool
	logger     *zap.Logger
}

// NewMdbUpdateConsumer 创建 MQTT 更新消费者
func NewMdbUpdateConsumer(subscriber Subscriber, loader *service.Loader, topicPrefix string, qos byte, instances []string, logger *zap.Logger) *MdbUpdateConsumer {
	allowed := make(map[string]bool, len(instances))
	for _, name := range instances {
		allowed[name] = true
	}
	return &MdbUpdateConsumer{
		subscriber: subscriber,
		loader:     loader,
		topic:      topicPrefix + "/+/snapshot",
		qos:        qos,
		instances:  allowed,
		logger:     logger,
	}
}

// Start 订阅并阻塞直到 ctx 结束
func (c *MdbUpdateConsumer) Start(ctx context.Context) error {
	handler := func(topic string, payload []byte) error {
		return c.handleMessage(ctx, topic, payload)
	}
	if err := c.subscriber.Subscribe(c.topic, c.qos, handler); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", c.topic, err)
	}

	c.logger.Info("MDB update consumer started", zap.String("topic", c.topic))

	<-ctx.Done()
	return nil
}

// Stop 取消订阅
func (c *MdbUpdateConsumer) Stop() error {
	if err := c.subscriber.Unsubscribe(c.topic); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
		return err
	}
	c.logger.Info("MDB update consumer stopped")
	return nil
}

// handleMessage 主题格式: {prefix}/{instance}/snapshot
func (c *MdbUpdateConsumer) handleMessage(ctx context.Context, topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 || parts[len(parts)-1] != "snapshot" {
		return fmt.Errorf("invalid topic format: %s", topic)
	}
	instance := parts[len(parts)-2]
	if !c.instances[instance] {
		c.logger.Debug("Ignoring update for unserved instance",
			zap.String("instance", instance),
		)
		return nil
	}

	var body mdbPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return fmt.Errorf("failed to unmarshal mdb update: %w", err)
	}
	snap, err := mdb.NewSnapshot(instance, body.Parameters, body.Commands)
	if err != nil {
		return fmt.Errorf("rejected mdb update for %s: %w", instance, err)
	}

	c.loader.Install(ctx, snap, service.SourceMQTT)

	c.logger.Info("Applied mdb update from MQTT",
		zap.String("instance", instance),
		zap.String("snapshot_id", snap.ID),
		zap.Int("payload_size", len(payload)),
	)
	return nil
}
