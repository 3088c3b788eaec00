// Package postgres provides the public API for the PostgreSQL Roster backend.
package postgres

import (
	"go.uber.org/zap"

	"github.com/mesh-intelligence/roster/internal/postgres"
	"github.com/mesh-intelligence/roster/pkg/types"
)

// NewBackend creates a detached PostgreSQL backend. Attach with a Config
// whose Backend is types.BackendPostgres and whose PostgresConfig.DSN names
// the database. A nil logger disables backend logging.
func NewBackend(logger *zap.Logger) types.Store {
	return postgres.NewBackend(postgres.WithLogger(logger))
}
