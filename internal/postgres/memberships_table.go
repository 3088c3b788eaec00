package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mesh-intelligence/roster/pkg/types"
)

var _ types.Table = (*membershipsTable)(nil)

type membershipsTable struct {
	backend *Backend
}

func (t *membershipsTable) Get(ctx context.Context, id string) (any, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	pool, err := t.backend.acquire()
	if err != nil {
		return nil, err
	}
	ms, err := scanMembership(pool.QueryRow(ctx,
		"SELECT "+membershipColumns+" FROM memberships WHERE membership_id = $1", id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting membership %s: %w", id, err)
	}
	return ms, nil
}

// Set creates the edge for the pair or returns the existing one. An id
// naming an edge with a different pair is rejected with ErrInvalidData.
func (t *membershipsTable) Set(ctx context.Context, id string, data any) (string, error) {
	ms, ok := data.(*types.Membership)
	if !ok || ms == nil {
		return "", types.ErrInvalidData
	}
	if ms.MemberID == "" || ms.GroupID == "" {
		return "", types.ErrInvalidID
	}
	pool, err := t.backend.acquire()
	if err != nil {
		return "", err
	}

	tx, err := pool.BeginTx(ctx, txOptions)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, ref := range []struct{ table, col, id string }{
		{"members", "member_id", ms.MemberID},
		{"groups", "group_id", ms.GroupID},
	} {
		missing, err := missingIDs(ctx, tx, ref.table, ref.col, []string{ref.id})
		if err != nil {
			return "", err
		}
		if len(missing) > 0 {
			return "", fmt.Errorf("%w: %s %s", types.ErrDanglingReference, ref.col, ref.id)
		}
	}

	requested := id
	if id == "" {
		if id, err = newUUID(); err != nil {
			return "", err
		}
	} else {
		var taken bool
		err := tx.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM memberships WHERE membership_id = $1 AND NOT (member_id = $2 AND group_id = $3))",
			id, ms.MemberID, ms.GroupID,
		).Scan(&taken)
		if err != nil {
			return "", fmt.Errorf("checking membership id: %w", err)
		}
		if taken {
			return "", types.ErrInvalidData
		}
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	if _, err := tx.Exec(ctx,
		"INSERT INTO memberships ("+membershipColumns+") VALUES ($1, $2, $3, $4) ON CONFLICT (member_id, group_id) DO NOTHING",
		id, ms.MemberID, ms.GroupID, now,
	); err != nil {
		return "", insertError(err)
	}

	stored, err := scanMembership(tx.QueryRow(ctx,
		"SELECT "+membershipColumns+" FROM memberships WHERE member_id = $1 AND group_id = $2",
		ms.MemberID, ms.GroupID,
	))
	if err != nil {
		return "", fmt.Errorf("reading membership: %w", err)
	}
	if requested != "" && stored.MembershipID != requested {
		return "", types.ErrInvalidData
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("committing membership: %w", err)
	}

	*ms = *stored
	return stored.MembershipID, nil
}

func (t *membershipsTable) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	pool, err := t.backend.acquire()
	if err != nil {
		return err
	}
	tag, err := pool.Exec(ctx, "DELETE FROM memberships WHERE membership_id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting membership: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (t *membershipsTable) Fetch(ctx context.Context, filter types.Filter) ([]any, error) {
	memberID, hasMember, err := filterString(filter, types.FilterMemberID)
	if err != nil {
		return nil, err
	}
	groupID, hasGroup, err := filterString(filter, types.FilterGroupID)
	if err != nil {
		return nil, err
	}
	pool, err := t.backend.acquire()
	if err != nil {
		return nil, err
	}

	query := "SELECT " + membershipColumns + " FROM memberships"
	var conditions []string
	var args []any
	if hasMember {
		args = append(args, memberID)
		conditions = append(conditions, fmt.Sprintf("member_id = $%d", len(args)))
	}
	if hasGroup {
		args = append(args, groupID)
		conditions = append(conditions, fmt.Sprintf("group_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY membership_id"

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching memberships: %w", err)
	}
	edges, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*types.Membership, error) {
		return scanMembership(row)
	})
	if err != nil {
		return nil, fmt.Errorf("hydrating membership: %w", err)
	}

	results := make([]any, len(edges))
	for i, ms := range edges {
		results[i] = ms
	}
	return results, nil
}
