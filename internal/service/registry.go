package service

import (
	"fmt"
	"sort"
	"sync"

	"telemetry-mdb/internal/mdb"

	"go.uber.org/zap"
)

// ErrUnknownInstance 实例没有已加载的 MDB（按“未找到”处理）
var ErrUnknownInstance = fmt.Errorf("unknown instance: %w", mdb.ErrNotFound)

// SnapshotObserver 快照替换回调
type SnapshotObserver func(snap *mdb.Snapshot)

// Registry 各实例当前生效的 MDB 快照
// 快照只会被整体替换，读者拿到的快照不会再变化
type Registry struct {
	mu        sync.RWMutex
	snapshots map[string]*mdb.Snapshot
	observers map[int]SnapshotObserver
	nextID    int
	logger    *zap.Logger
}

// NewRegistry 创建快照注册表
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		snapshots: map[string]*mdb.Snapshot{},
		observers: map[int]SnapshotObserver{},
		logger:    logger,
	}
}

// Get 取实例当前快照
func (r *Registry) Get(instance string) (*mdb.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap, ok := r.snapshots[instance]
	if !ok {
		return nil, fmt.Errorf("%s: %w", instance, ErrUnknownInstance)
	}
	return snap, nil
}

// Replace 替换实例快照并通知观察者
// 返回 false 表示快照 ID 与当前一致，没有替换
func (r *Registry) Replace(snap *mdb.Snapshot) bool {
	r.mu.Lock()
	if cur, ok := r.snapshots[snap.Instance]; ok && cur.ID == snap.ID {
		r.mu.Unlock()
		return false
	}
	r.snapshots[snap.Instance] = snap
	observers := make([]SnapshotObserver, 0, len(r.observers))
	for _, fn := range r.observers {
		observers = append(observers, fn)
	}
	r.mu.Unlock()

	r.logger.Info("MDB snapshot replaced",
		zap.String("instance", snap.Instance),
		zap.String("snapshot_id", snap.ID),
		zap.Int("parameter_count", len(snap.Parameters)),
		zap.Int("command_count", len(snap.Commands)),
	)
	for _, fn := range observers {
		fn(snap)
	}
	return true
}

// Subscribe 注册观察者，返回取消函数
func (r *Registry) Subscribe(fn SnapshotObserver) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.observers[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.observers, id)
	}
}

// Instances 已加载的实例（排序）
func (r *Registry) Instances() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.snapshots))
	for name := range r.snapshots {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
