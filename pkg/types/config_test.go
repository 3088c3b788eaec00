package types

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "mysql", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "valid sqlite config",
			config:  Config{Backend: BackendSQLite, DataDir: "/tmp/data"},
			wantErr: nil,
		},
		{
			name:    "sqlite with empty DataDir is valid at config level",
			config:  Config{Backend: BackendSQLite, DataDir: ""},
			wantErr: nil,
		},
		{
			name: "unknown sync strategy",
			config: Config{
				Backend:      BackendSQLite,
				SQLiteConfig: SQLiteConfig{SyncStrategy: "eventually"},
			},
			wantErr: ErrSyncStrategyUnknown,
		},
		{
			name: "negative batch size with batch strategy",
			config: Config{
				Backend:      BackendSQLite,
				SQLiteConfig: SQLiteConfig{SyncStrategy: SyncBatch, BatchSize: -1},
			},
			wantErr: ErrBatchSizeInvalid,
		},
		{
			name: "negative batch interval with batch strategy",
			config: Config{
				Backend:      BackendSQLite,
				SQLiteConfig: SQLiteConfig{SyncStrategy: SyncBatch, BatchInterval: -5},
			},
			wantErr: ErrBatchIntervalInvalid,
		},
		{
			name: "negative batch size ignored outside batch strategy",
			config: Config{
				Backend:      BackendSQLite,
				SQLiteConfig: SQLiteConfig{SyncStrategy: SyncOnClose, BatchSize: -1},
			},
			wantErr: nil,
		},
		{
			name:    "postgres without dsn",
			config:  Config{Backend: BackendPostgres},
			wantErr: ErrDSNEmpty,
		},
		{
			name: "postgres with dsn",
			config: Config{
				Backend:        BackendPostgres,
				PostgresConfig: PostgresConfig{DSN: "postgres://localhost/roster"},
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSQLiteConfigDefaults(t *testing.T) {
	var c SQLiteConfig
	if got := c.GetSyncStrategy(); got != SyncImmediate {
		t.Errorf("GetSyncStrategy() = %q, want %q", got, SyncImmediate)
	}
	if got := c.GetBatchSize(); got != DefaultBatchSize {
		t.Errorf("GetBatchSize() = %d, want %d", got, DefaultBatchSize)
	}
	if got := c.GetBatchInterval(); got != DefaultBatchInterval {
		t.Errorf("GetBatchInterval() = %d, want %d", got, DefaultBatchInterval)
	}
}
