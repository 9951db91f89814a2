package service

import (
	"context"

	commonredis "telemetry-mdb/common/redis"
)

// StreamPublisher 把快照更新写入 Redis Stream
type StreamPublisher struct {
	client *commonredis.Client
	stream string
	maxLen int64
}

// NewStreamPublisher 创建 Stream 发布器
func NewStreamPublisher(client *commonredis.Client, stream string, maxLen int64) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

func (p *StreamPublisher) PublishUpdate(ctx context.Context, update SnapshotUpdate) error {
	_, err := commonredis.PublishJSONToStream(ctx, p.client, p.stream, update, p.maxLen)
	return err
}
