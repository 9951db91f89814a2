package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"telemetry-mdb/internal/mdb"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresMdbRepo 基于 PostgreSQL 的 MDB 存储
// 类型定义与指令参数以 JSONB 保存
type PostgresMdbRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresMdbRepo 创建 MDB 仓库
func NewPostgresMdbRepo(db *sql.DB, logger *zap.Logger) *PostgresMdbRepo {
	return &PostgresMdbRepo{db: db, logger: logger}
}

var _ SnapshotRepo = (*PostgresMdbRepo)(nil)

// LoadSnapshot 读取实例的全部参数和指令
func (r *PostgresMdbRepo) LoadSnapshot(ctx context.Context, instance string) (*mdb.Snapshot, error) {
	params, err := r.loadParameters(ctx, instance)
	if err != nil {
		return nil, err
	}
	commands, err := r.loadCommands(ctx, instance)
	if err != nil {
		return nil, err
	}
	if len(params) == 0 && len(commands) == 0 {
		return nil, fmt.Errorf("instance %s: %w", instance, ErrSnapshotNotFound)
	}

	snap, err := mdb.NewSnapshot(instance, params, commands)
	if err != nil {
		return nil, fmt.Errorf("invalid mdb for instance %s: %w", instance, err)
	}

	r.logger.Info("Loaded mdb snapshot from database",
		zap.String("instance", instance),
		zap.String("snapshot_id", snap.ID),
		zap.Int("parameter_count", len(params)),
		zap.Int("command_count", len(commands)),
	)
	return snap, nil
}

func (r *PostgresMdbRepo) loadParameters(ctx context.Context, instance string) ([]*mdb.Parameter, error) {
	query := `
		SELECT
			qualified_name,
			name,
			COALESCE(description, ''),
			COALESCE(data_source, ''),
			aliases,
			type_def
		FROM mdb_parameters
		WHERE instance = $1
		ORDER BY qualified_name
	`
	rows, err := r.db.QueryContext(ctx, query, instance)
	if err != nil {
		return nil, fmt.Errorf("failed to query mdb_parameters: %w", err)
	}
	defer rows.Close()

	var params []*mdb.Parameter
	for rows.Next() {
		var (
			p       mdb.Parameter
			aliases pq.StringArray
			typeDef []byte
		)
		if err := rows.Scan(&p.QualifiedName, &p.Name, &p.Description, &p.DataSource, &aliases, &typeDef); err != nil {
			return nil, fmt.Errorf("failed to scan parameter: %w", err)
		}
		p.Aliases = []string(aliases)
		if len(typeDef) > 0 {
			var t mdb.Type
			if err := json.Unmarshal(typeDef, &t); err != nil {
				return nil, fmt.Errorf("failed to unmarshal type of %s: %w", p.QualifiedName, err)
			}
			p.Type = &t
		}
		params = append(params, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate parameters: %w", err)
	}
	return params, nil
}

func (r *PostgresMdbRepo) loadCommands(ctx context.Context, instance string) ([]*mdb.Command, error) {
	query := `
		SELECT
			qualified_name,
			name,
			COALESCE(description, ''),
			abstract,
			arguments
		FROM mdb_commands
		WHERE instance = $1
		ORDER BY qualified_name
	`
	rows, err := r.db.QueryContext(ctx, query, instance)
	if err != nil {
		return nil, fmt.Errorf("failed to query mdb_commands: %w", err)
	}
	defer rows.Close()

	var commands []*mdb.Command
	for rows.Next() {
		var (
			c    mdb.Command
			args []byte
		)
		if err := rows.Scan(&c.QualifiedName, &c.Name, &c.Description, &c.Abstract, &args); err != nil {
			return nil, fmt.Errorf("failed to scan command: %w", err)
		}
		if len(args) > 0 {
			if err := json.Unmarshal(args, &c.Arguments); err != nil {
				return nil, fmt.Errorf("failed to unmarshal arguments of %s: %w", c.QualifiedName, err)
			}
		}
		commands = append(commands, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate commands: %w", err)
	}
	return commands, nil
}

// SaveSnapshot 在一个事务中整体替换实例的 MDB
func (r *PostgresMdbRepo) SaveSnapshot(ctx context.Context, snap *mdb.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM mdb_parameters WHERE instance = $1`, snap.Instance); err != nil {
		return fmt.Errorf("failed to clear mdb_parameters: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM mdb_commands WHERE instance = $1`, snap.Instance); err != nil {
		return fmt.Errorf("failed to clear mdb_commands: %w", err)
	}

	for _, p := range snap.Parameters {
		var typeDef []byte
		if p.Type != nil {
			if typeDef, err = json.Marshal(p.Type); err != nil {
				return fmt.Errorf("failed to marshal type of %s: %w", p.QualifiedName, err)
			}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO mdb_parameters (instance, qualified_name, name, description, data_source, aliases, type_def)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			snap.Instance, p.QualifiedName, p.Name, p.Description, p.DataSource, pq.Array(p.Aliases), typeDef,
		)
		if err != nil {
			return fmt.Errorf("failed to insert parameter %s: %w", p.QualifiedName, err)
		}
	}

	for _, c := range snap.Commands {
		args, err := json.Marshal(c.Arguments)
		if err != nil {
			return fmt.Errorf("failed to marshal arguments of %s: %w", c.QualifiedName, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO mdb_commands (instance, qualified_name, name, description, abstract, arguments)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			snap.Instance, c.QualifiedName, c.Name, c.Description, c.Abstract, args,
		)
		if err != nil {
			return fmt.Errorf("failed to insert command %s: %w", c.QualifiedName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit mdb snapshot: %w", err)
	}

	r.logger.Info("Saved mdb snapshot",
		zap.String("instance", snap.Instance),
		zap.String("snapshot_id", snap.ID),
	)
	return nil
}
