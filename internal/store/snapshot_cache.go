package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"telemetry-mdb/internal/mdb"

	"go.uber.org/zap"
)

// SnapshotCache MDB 快照的 Redis 缓存（JSON 序列化，键为 {prefix}{instance}）
type SnapshotCache struct {
	kv     KV
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewSnapshotCache 创建快照缓存
func NewSnapshotCache(kv KV, prefix string, ttl time.Duration, logger *zap.Logger) *SnapshotCache {
	return &SnapshotCache{kv: kv, prefix: prefix, ttl: ttl, logger: logger}
}

func (c *SnapshotCache) key(instance string) string {
	return c.prefix + instance
}

// Get 读取缓存的快照，未命中返回 ErrMiss
func (c *SnapshotCache) Get(ctx context.Context, instance string) (*mdb.Snapshot, error) {
	val, err := c.kv.Get(ctx, c.key(instance))
	if err != nil {
		if errors.Is(err, ErrMiss) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get cached snapshot: %w", err)
	}

	var snap mdb.Snapshot
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		// 损坏的缓存按未命中处理
		c.logger.Warn("Discarding unreadable cached snapshot",
			zap.String("instance", instance),
			zap.Error(err),
		)
		return nil, ErrMiss
	}
	return &snap, nil
}

// Put 写入快照（设置 TTL）
func (c *SnapshotCache) Put(ctx context.Context, snap *mdb.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := c.kv.Set(ctx, c.key(snap.Instance), string(data), c.ttl); err != nil {
		return fmt.Errorf("failed to set snapshot cache: %w", err)
	}

	c.logger.Debug("Updated snapshot cache",
		zap.String("instance", snap.Instance),
		zap.String("snapshot_id", snap.ID),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// Invalidate 删除实例的缓存
func (c *SnapshotCache) Invalidate(ctx context.Context, instance string) error {
	return c.kv.Del(ctx, c.key(instance))
}

// Instances 列出已缓存的实例
func (c *SnapshotCache) Instances(ctx context.Context) ([]string, error) {
	keys, err := c.kv.ScanKeys(ctx, c.prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot keys: %w", err)
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, c.prefix))
	}
	sort.Strings(out)
	return out, nil
}
