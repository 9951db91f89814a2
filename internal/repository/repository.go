package repository

import (
	"context"
	"errors"

	"telemetry-mdb/internal/mdb"
)

// ErrSnapshotNotFound 实例没有已保存的 MDB
var ErrSnapshotNotFound = errors.New("mdb snapshot not found")

// SnapshotRepo MDB 快照存储
type SnapshotRepo interface {
	LoadSnapshot(ctx context.Context, instance string) (*mdb.Snapshot, error)
	SaveSnapshot(ctx context.Context, snap *mdb.Snapshot) error
}
