package repository

import (
	"context"
	"fmt"
	"os"
	"sync"

	"telemetry-mdb/internal/mdb"

	"gopkg.in/yaml.v3"
)

// MemoryMdbRepo 内存 MDB 存储（DB 未启用时使用，可由 YAML 文件预置）
type MemoryMdbRepo struct {
	mu        sync.RWMutex
	snapshots map[string]*mdb.Snapshot
}

// NewMemoryMdbRepo 创建内存仓库
func NewMemoryMdbRepo() *MemoryMdbRepo {
	return &MemoryMdbRepo{snapshots: map[string]*mdb.Snapshot{}}
}

var _ SnapshotRepo = (*MemoryMdbRepo)(nil)

func (r *MemoryMdbRepo) LoadSnapshot(_ context.Context, instance string) (*mdb.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap, ok := r.snapshots[instance]
	if !ok {
		return nil, fmt.Errorf("instance %s: %w", instance, ErrSnapshotNotFound)
	}
	return snap, nil
}

func (r *MemoryMdbRepo) SaveSnapshot(_ context.Context, snap *mdb.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[snap.Instance] = snap
	return nil
}

// mdbFile YAML 文件格式：
//
//	instances:
//	  simulator:
//	    parameters: [...]
//	    commands: [...]
type mdbFile struct {
	Instances map[string]struct {
		Parameters []*mdb.Parameter `yaml:"parameters"`
		Commands   []*mdb.Command   `yaml:"commands"`
	} `yaml:"instances"`
}

// ParseSnapshotsYAML 解析 YAML 定义，每个实例生成一个快照
func ParseSnapshotsYAML(data []byte) (map[string]*mdb.Snapshot, error) {
	var f mdbFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse mdb yaml: %w", err)
	}
	out := make(map[string]*mdb.Snapshot, len(f.Instances))
	for instance, def := range f.Instances {
		snap, err := mdb.NewSnapshot(instance, def.Parameters, def.Commands)
		if err != nil {
			return nil, fmt.Errorf("instance %s: %w", instance, err)
		}
		out[instance] = snap
	}
	return out, nil
}

// SeedFromYAMLFile 从 YAML 文件预置快照，返回加载的实例数
func (r *MemoryMdbRepo) SeedFromYAMLFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	snaps, err := ParseSnapshotsYAML(data)
	if err != nil {
		return 0, err
	}
	for _, snap := range snaps {
		if err := r.SaveSnapshot(ctx, snap); err != nil {
			return 0, err
		}
	}
	return len(snaps), nil
}
