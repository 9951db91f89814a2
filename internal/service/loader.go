package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telemetry-mdb/internal/mdb"
	"telemetry-mdb/internal/repository"
	"telemetry-mdb/internal/store"

	"go.uber.org/zap"
)

// SnapshotFetcher 从上游获取快照
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, instance string) (*mdb.Snapshot, error)
}

// SnapshotCacher 快照缓存
type SnapshotCacher interface {
	Get(ctx context.Context, instance string) (*mdb.Snapshot, error)
	Put(ctx context.Context, snap *mdb.Snapshot) error
	Invalidate(ctx context.Context, instance string) error
}

// UpdatePublisher 快照更新通知
type UpdatePublisher interface {
	PublishUpdate(ctx context.Context, update SnapshotUpdate) error
}

// SnapshotUpdate 快照更新通知消息
type SnapshotUpdate struct {
	Instance   string `json:"instance"`
	SnapshotID string `json:"snapshot_id"`
	Source     string `json:"source"`
	Timestamp  int64  `json:"timestamp"`
}

// 快照来源
const (
	SourceCache    = "cache"
	SourceRepo     = "repository"
	SourceUpstream = "upstream"
	SourceMQTT     = "mqtt"
)

// Loader 按 缓存 -> 仓库 -> 上游 的顺序加载快照
// 可选组件为 nil 时跳过对应步骤
type Loader struct {
	registry  *Registry
	repo      repository.SnapshotRepo
	cache     SnapshotCacher
	upstream  SnapshotFetcher
	publisher UpdatePublisher
	logger    *zap.Logger
}

// NewLoader 创建加载器
func NewLoader(registry *Registry, repo repository.SnapshotRepo, cache SnapshotCacher, upstream SnapshotFetcher, publisher UpdatePublisher, logger *zap.Logger) *Loader {
	return &Loader{
		registry:  registry,
		repo:      repo,
		cache:     cache,
		upstream:  upstream,
		publisher: publisher,
		logger:    logger,
	}
}

// Load 加载实例快照并放入注册表，返回快照来源
func (l *Loader) Load(ctx context.Context, instance string) (string, error) {
	if l.cache != nil {
		snap, err := l.cache.Get(ctx, instance)
		switch {
		case err == nil:
			l.registry.Replace(snap)
			return SourceCache, nil
		case !errors.Is(err, store.ErrMiss):
			l.logger.Warn("Snapshot cache unavailable, falling back",
				zap.String("instance", instance),
				zap.Error(err),
			)
		}
	}

	if l.repo != nil {
		snap, err := l.repo.LoadSnapshot(ctx, instance)
		switch {
		case err == nil:
			l.Install(ctx, snap, SourceRepo)
			return SourceRepo, nil
		case !errors.Is(err, repository.ErrSnapshotNotFound):
			return "", fmt.Errorf("failed to load mdb for %s: %w", instance, err)
		}
	}

	if l.upstream != nil {
		snap, err := l.upstream.FetchSnapshot(ctx, instance)
		if err != nil {
			return "", fmt.Errorf("failed to fetch mdb for %s: %w", instance, err)
		}
		if l.repo != nil {
			if err := l.repo.SaveSnapshot(ctx, snap); err != nil {
				l.logger.Warn("Failed to persist upstream snapshot",
					zap.String("instance", instance),
					zap.Error(err),
				)
			}
		}
		l.Install(ctx, snap, SourceUpstream)
		return SourceUpstream, nil
	}

	return "", fmt.Errorf("no mdb source for %s: %w", instance, repository.ErrSnapshotNotFound)
}

// Reload 丢弃缓存后重新加载，使仓库或上游的最新定义生效
func (l *Loader) Reload(ctx context.Context, instance string) (string, error) {
	if l.cache != nil {
		if err := l.cache.Invalidate(ctx, instance); err != nil {
			l.logger.Warn("Failed to invalidate snapshot cache",
				zap.String("instance", instance),
				zap.Error(err),
			)
		}
	}
	return l.Load(ctx, instance)
}

// Install 放入注册表、写缓存并发布更新通知
// 缓存和通知失败只记录日志
func (l *Loader) Install(ctx context.Context, snap *mdb.Snapshot, source string) {
	if !l.registry.Replace(snap) {
		return
	}
	if l.cache != nil {
		if err := l.cache.Put(ctx, snap); err != nil {
			l.logger.Warn("Failed to cache snapshot",
				zap.String("instance", snap.Instance),
				zap.Error(err),
			)
		}
	}
	if l.publisher != nil {
		update := SnapshotUpdate{
			Instance:   snap.Instance,
			SnapshotID: snap.ID,
			Source:     source,
			Timestamp:  time.Now().Unix(),
		}
		if err := l.publisher.PublishUpdate(ctx, update); err != nil {
			l.logger.Warn("Failed to publish snapshot update",
				zap.String("instance", snap.Instance),
				zap.Error(err),
			)
		}
	}
}

// LoadAll 加载全部实例，单个实例失败不影响其它实例
func (l *Loader) LoadAll(ctx context.Context, instances []string) error {
	var errs []error
	for _, instance := range instances {
		source, err := l.Load(ctx, instance)
		if err != nil {
			l.logger.Error("Failed to load mdb",
				zap.String("instance", instance),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}
		l.logger.Info("Loaded mdb",
			zap.String("instance", instance),
			zap.String("source", source),
		)
	}
	return errors.Join(errs...)
}
