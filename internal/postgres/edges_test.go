package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/mesh-intelligence/roster/pkg/types"
)

func TestInsertError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantDangling bool
	}{
		{
			name:         "foreign key violation",
			err:          &pgconn.PgError{Code: "23503", ConstraintName: "memberships_member_id_fkey"},
			wantDangling: true,
		},
		{
			name: "unique violation",
			err:  &pgconn.PgError{Code: "23505"},
		},
		{
			name: "connection failure",
			err:  errors.New("connection reset"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := insertError(tt.err)
			assert.Equal(t, tt.wantDangling, errors.Is(got, types.ErrDanglingReference))
			if !tt.wantDangling {
				assert.ErrorIs(t, got, tt.err)
			}
		})
	}
}
