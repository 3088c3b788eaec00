// Package sqlite implements the SQLite storage backend for Roster.
// SQLite is the query engine; JSONL files in the data directory are the
// source of truth and are reloaded on every Attach.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/roster/pkg/types"
)

const dbFileName = "roster.db"

// Backend implements the Store interface using SQLite as the query engine
// and JSONL files as the source of truth.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	dataDir  string
	db       *sql.DB
	tables   map[string]types.Table
	logger   *zap.Logger

	// Sync strategy state.
	syncStrategy  string          // immediate, on_close, batch
	batchSize     int             // pending tables before a batch flush
	batchInterval time.Duration   // time between batch flushes
	pending       map[string]bool // tables whose JSONL file is stale
	batchTimer    *time.Timer
	batchMu       sync.Mutex // protects pending and batchTimer
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used for attach, detach and flush events.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
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

// GetTable returns a Table for the specified table name.
// Returns ErrTableNotFound if the table name is not recognized.
// Returns ErrStoreDetached if the backend is not attached.
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

// Attach initializes the backend with the given configuration.
// Creates DataDir if it does not exist, rebuilds the SQLite database from
// the JSONL files, and creates table accessors.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}
	if config.Backend != types.BackendSQLite {
		return types.ErrBackendUnknown
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	// The database is a cache of the JSONL files; start from scratch.
	dbPath := filepath.Join(dataDir, dbFileName)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return err
	}

	for _, stmt := range append(schemaDDL, indexDDL...) {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("applying schema: %w", err)
		}
	}

	if err := initJSONLFiles(dataDir); err != nil {
		db.Close()
		return err
	}

	if err := loadAllJSONL(db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	b.db = db
	b.config = config
	b.dataDir = dataDir

	b.syncStrategy = config.SQLiteConfig.GetSyncStrategy()
	b.batchSize = config.SQLiteConfig.GetBatchSize()
	b.batchInterval = time.Duration(config.SQLiteConfig.GetBatchInterval()) * time.Second
	b.pending = make(map[string]bool)

	b.attached = true

	b.tables[types.MembersTable] = &membersTable{backend: b}
	b.tables[types.GroupsTable] = &groupsTable{backend: b}
	b.tables[types.MembershipsTable] = &membershipsTable{backend: b}

	if b.syncStrategy == types.SyncBatch && b.batchInterval > 0 {
		b.startBatchTimer()
	}

	b.logger.Info("sqlite backend attached",
		zap.String("data_dir", dataDir),
		zap.String("sync_strategy", b.syncStrategy),
	)
	return nil
}

// Detach releases all resources held by the backend. Pending JSONL writes
// are flushed before the SQLite connection closes. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	b.stopBatchTimer()

	if err := b.flushPendingLocked(); err != nil {
		return fmt.Errorf("flush pending writes: %w", err)
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}

	b.attached = false
	b.tables = make(map[string]types.Table)

	b.logger.Info("sqlite backend detached", zap.String("data_dir", b.dataDir))
	return nil
}

// newUUID generates a UUID v7 string. Version 7 ids sort by creation time,
// which the memberships table relies on for roster ordering.
func newUUID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating UUID v7: %w", err)
	}
	return id.String(), nil
}

// persist marks a table's JSONL file as stale and writes it according to the
// sync strategy. The caller must hold b.mu.
func (b *Backend) persist(table string) error {
	if b.syncStrategy == types.SyncImmediate || b.syncStrategy == "" {
		return b.writeTableJSONL(table)
	}

	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	b.pending[table] = true
	if b.syncStrategy == types.SyncBatch && b.batchSize > 0 && len(b.pending) >= b.batchSize {
		return b.flushPendingBatchLocked()
	}
	return nil
}

// flushPendingLocked writes every stale JSONL file.
// The caller must hold b.mu.
func (b *Backend) flushPendingLocked() error {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	return b.flushPendingBatchLocked()
}

// flushPendingBatchLocked writes every stale JSONL file.
// The caller must hold b.batchMu.
func (b *Backend) flushPendingBatchLocked() error {
	if len(b.pending) == 0 {
		return nil
	}

	// Write in load order so a crash mid-flush never leaves edges newer
	// than the entities they reference.
	for _, m := range jsonlTableMapping {
		if !b.pending[m.table] {
			continue
		}
		if err := b.writeTableJSONL(m.table); err != nil {
			// Entries stay pending; the next flush or Attach reconciles.
			return fmt.Errorf("flush %s: %w", m.table, err)
		}
		delete(b.pending, m.table)
	}
	return nil
}

// startBatchTimer starts the periodic flush for the batch strategy.
func (b *Backend) startBatchTimer() {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	if b.batchTimer != nil {
		return
	}

	b.batchTimer = time.AfterFunc(b.batchInterval, func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if !b.attached {
			return
		}

		if err := b.flushPendingLocked(); err != nil {
			b.logger.Warn("batch flush failed", zap.Error(err))
		}

		b.batchMu.Lock()
		if b.batchTimer != nil {
			b.batchTimer.Reset(b.batchInterval)
		}
		b.batchMu.Unlock()
	})
}

// stopBatchTimer stops the batch interval timer if running.
func (b *Backend) stopBatchTimer() {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	if b.batchTimer != nil {
		b.batchTimer.Stop()
		b.batchTimer = nil
	}
}
