package types

import "errors"

// Config holds backend selection and parameters for Store.Attach.
type Config struct {
	Backend        string         `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir        string         `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	SQLiteConfig   SQLiteConfig   `json:"sqlite" yaml:"sqlite" mapstructure:"sqlite"`
	PostgresConfig PostgresConfig `json:"postgres" yaml:"postgres" mapstructure:"postgres"`
}

// Supported backend names.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// SQLite sync strategies control when JSONL files are rewritten after a
// successful SQLite write.
const (
	SyncImmediate = "immediate"
	SyncOnClose   = "on_close"
	SyncBatch     = "batch"
)

// Defaults applied by the SQLiteConfig getters.
const (
	DefaultBatchSize     = 10
	DefaultBatchInterval = 5 // seconds
)

// Config validation errors.
var (
	ErrBackendEmpty         = errors.New("backend must not be empty")
	ErrBackendUnknown       = errors.New("unknown backend")
	ErrSyncStrategyUnknown  = errors.New("unknown sync strategy")
	ErrBatchSizeInvalid     = errors.New("batch size must be positive")
	ErrBatchIntervalInvalid = errors.New("batch interval must be positive")
	ErrDSNEmpty             = errors.New("postgres dsn must not be empty")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite:   true,
	BackendPostgres: true,
}

var knownSyncStrategies = map[string]bool{
	SyncImmediate: true,
	SyncOnClose:   true,
	SyncBatch:     true,
}

// SQLiteConfig tunes JSONL persistence for the SQLite backend.
// Zero values select the defaults.
type SQLiteConfig struct {
	SyncStrategy  string `json:"sync_strategy" yaml:"sync_strategy" mapstructure:"sync_strategy"`
	BatchSize     int    `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`
	BatchInterval int    `json:"batch_interval" yaml:"batch_interval" mapstructure:"batch_interval"`
}

// GetSyncStrategy returns the configured strategy or SyncImmediate.
func (c SQLiteConfig) GetSyncStrategy() string {
	if c.SyncStrategy == "" {
		return SyncImmediate
	}
	return c.SyncStrategy
}

// GetBatchSize returns the configured batch size or DefaultBatchSize.
func (c SQLiteConfig) GetBatchSize() int {
	if c.BatchSize == 0 {
		return DefaultBatchSize
	}
	return c.BatchSize
}

// GetBatchInterval returns the batch interval in seconds or DefaultBatchInterval.
func (c SQLiteConfig) GetBatchInterval() int {
	if c.BatchInterval == 0 {
		return DefaultBatchInterval
	}
	return c.BatchInterval
}

// Validate checks the SQLite settings. Batch values are only checked when
// the batch strategy is selected.
func (c SQLiteConfig) Validate() error {
	if !knownSyncStrategies[c.GetSyncStrategy()] {
		return ErrSyncStrategyUnknown
	}
	if c.GetSyncStrategy() != SyncBatch {
		return nil
	}
	if c.BatchSize < 0 {
		return ErrBatchSizeInvalid
	}
	if c.BatchInterval < 0 {
		return ErrBatchIntervalInvalid
	}
	return nil
}

// PostgresConfig holds connection settings for the PostgreSQL backend.
type PostgresConfig struct {
	DSN      string `json:"dsn" yaml:"dsn" mapstructure:"dsn"`
	MaxConns int32  `json:"max_conns" yaml:"max_conns" mapstructure:"max_conns"`
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	switch c.Backend {
	case BackendSQLite:
		return c.SQLiteConfig.Validate()
	case BackendPostgres:
		if c.PostgresConfig.DSN == "" {
			return ErrDSNEmpty
		}
	}
	return nil
}
