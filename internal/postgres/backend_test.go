package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/roster/internal/storetest"
	"github.com/mesh-intelligence/roster/pkg/types"
)

const dsnEnv = "ROSTER_POSTGRES_DSN"

// attachTestBackend attaches to the database named by ROSTER_POSTGRES_DSN and
// empties the roster tables. Tests are skipped when the variable is unset.
func attachTestBackend(t *testing.T) *Backend {
	t.Helper()
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}

	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{
		Backend:        types.BackendPostgres,
		PostgresConfig: types.PostgresConfig{DSN: dsn, MaxConns: 4},
	}))
	t.Cleanup(func() { b.Detach() })

	_, err := b.pool.Exec(context.Background(), "TRUNCATE memberships, members, groups")
	require.NoError(t, err)
	return b
}

func TestBackend_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) types.Store {
		return attachTestBackend(t)
	})
}

func TestBackend_AttachValidation(t *testing.T) {
	b := NewBackend()
	assert.ErrorIs(t, b.Attach(types.Config{Backend: types.BackendPostgres}), types.ErrDSNEmpty)
	assert.ErrorIs(t, b.Attach(types.Config{Backend: types.BackendSQLite}), types.ErrBackendUnknown)

	_, err := b.GetTable(types.MembersTable)
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	assert.NoError(t, b.Detach())
}

func TestBackend_Lifecycle(t *testing.T) {
	b := attachTestBackend(t)

	err := b.Attach(types.Config{
		Backend:        types.BackendPostgres,
		PostgresConfig: types.PostgresConfig{DSN: os.Getenv(dsnEnv)},
	})
	assert.ErrorIs(t, err, types.ErrAlreadyAttached)

	members, err := b.GetTable(types.MembersTable)
	require.NoError(t, err)
	_, err = b.GetTable("tracks")
	assert.ErrorIs(t, err, types.ErrTableNotFound)

	require.NoError(t, b.Detach())
	_, err = members.Get(context.Background(), "x")
	assert.ErrorIs(t, err, types.ErrStoreDetached)
}
