// Package postgres implements the PostgreSQL storage backend for Roster on
// top of a pgx connection pool. Unlike the SQLite backend there is no JSONL
// mirror: the database is the source of truth.
package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/roster/pkg/types"
)

// attachTimeout bounds connecting, pinging and applying the schema.
const attachTimeout = 15 * time.Second

// txOptions is used for every write. Read committed is enough because each
// save reconciles its edge set inside one transaction and the pair is
// protected by a unique constraint.
var txOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Backend implements the Store interface over PostgreSQL.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	pool     *pgxpool.Pool
	tables   map[string]types.Table
	logger   *zap.Logger
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used for attach and detach events.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBackend creates a detached PostgreSQL backend.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		tables: make(map[string]types.Table),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// GetTable returns the Table for name.
func (b *Backend) GetTable(name string) (types.Table, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	table, ok := b.tables[name]
	if !ok {
		return nil, types.ErrTableNotFound
	}
	return table, nil
}

// Attach connects to the database named by config.PostgresConfig.DSN and
// creates any missing tables.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if config.Backend != types.BackendPostgres {
		return types.ErrBackendUnknown
	}

	poolConfig, err := pgxpool.ParseConfig(config.PostgresConfig.DSN)
	if err != nil {
		return fmt.Errorf("parse postgres dsn: %w", err)
	}
	if config.PostgresConfig.MaxConns > 0 {
		poolConfig.MaxConns = config.PostgresConfig.MaxConns
	}

	ctx, cancel := context.WithTimeout(context.Background(), attachTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping postgres: %w", err)
	}
	for _, stmt := range schemaDDL {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return fmt.Errorf("applying schema: %w", err)
		}
	}

	b.pool = pool
	b.attached = true
	b.tables[types.MembersTable] = &membersTable{backend: b}
	b.tables[types.GroupsTable] = &groupsTable{backend: b}
	b.tables[types.MembershipsTable] = &membershipsTable{backend: b}

	b.logger.Info("postgres backend attached",
		zap.String("host", poolConfig.ConnConfig.Host),
		zap.String("database", poolConfig.ConnConfig.Database),
	)
	return nil
}

// Detach closes the pool. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.pool.Close()
	b.pool = nil
	b.attached = false
	b.tables = make(map[string]types.Table)

	b.logger.Info("postgres backend detached")
	return nil
}

// acquire returns the pool if the backend is attached. The read lock only
// guards the attached flag; pgx handles concurrent use of the pool.
func (b *Backend) acquire() (*pgxpool.Pool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	return b.pool, nil
}

func newUUID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating UUID v7: %w", err)
	}
	return id.String(), nil
}
