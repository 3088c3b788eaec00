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

var _ types.Table = (*membersTable)(nil)

type membersTable struct {
	backend *Backend
}

func (t *membersTable) Get(ctx context.Context, id string) (any, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	pool, err := t.backend.acquire()
	if err != nil {
		return nil, err
	}

	m, err := scanMember(pool.QueryRow(ctx, "SELECT "+memberColumns+" FROM members WHERE member_id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting member %s: %w", id, err)
	}
	if m.GroupIDs, err = relatedIDs(ctx, pool, memberSide, id); err != nil {
		return nil, fmt.Errorf("hydrating groups for member %s: %w", id, err)
	}
	return m, nil
}

// Set upserts the member row and reconciles its group edges in one
// transaction. A nil GroupIDs keeps the stored edges.
func (t *membersTable) Set(ctx context.Context, id string, data any) (string, error) {
	m, ok := data.(*types.Member)
	if !ok || m == nil {
		return "", types.ErrInvalidData
	}
	pool, err := t.backend.acquire()
	if err != nil {
		return "", err
	}
	if id == "" {
		if id, err = newUUID(); err != nil {
			return "", err
		}
	}
	now := time.Now().UTC().Truncate(time.Microsecond)

	tx, err := pool.BeginTx(ctx, txOptions)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var created time.Time
	err = tx.QueryRow(ctx,
		`INSERT INTO members (`+memberColumns+`) VALUES ($1, $2, $3, $4, $5, $5)
		 ON CONFLICT (member_id) DO UPDATE
		 SET username = EXCLUDED.username, email = EXCLUDED.email,
		     birth_date = EXCLUDED.birth_date, updated_at = EXCLUDED.updated_at
		 RETURNING created_at`,
		id, m.Username, m.Email, m.BirthDate, now,
	).Scan(&created)
	if err != nil {
		return "", fmt.Errorf("persisting member: %w", err)
	}

	if m.GroupIDs != nil {
		if err := reconcileEdges(ctx, tx, memberSide, id, m.GroupIDs, now); err != nil {
			return "", err
		}
	}
	groupIDs, err := relatedIDs(ctx, tx, memberSide, id)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("committing member: %w", err)
	}

	m.MemberID = id
	m.CreatedAt = created.UTC()
	m.UpdatedAt = now
	m.GroupIDs = groupIDs
	return id, nil
}

// Delete removes the member; the foreign keys cascade to its edges.
func (t *membersTable) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	pool, err := t.backend.acquire()
	if err != nil {
		return err
	}
	tag, err := pool.Exec(ctx, "DELETE FROM members WHERE member_id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (t *membersTable) Fetch(ctx context.Context, filter types.Filter) ([]any, error) {
	ids, hasIDs, err := filterIDs(filter)
	if err != nil {
		return nil, err
	}
	groupID, hasGroup, err := filterString(filter, types.FilterGroupID)
	if err != nil {
		return nil, err
	}
	if hasIDs && len(ids) == 0 {
		return []any{}, nil
	}
	pool, err := t.backend.acquire()
	if err != nil {
		return nil, err
	}

	cols := strings.ReplaceAll("m."+memberColumns, ", ", ", m.")
	query := "SELECT " + cols + " FROM members AS m"
	var conditions []string
	var args []any
	order := " ORDER BY m.created_at, m.member_id"
	if hasGroup {
		args = append(args, groupID)
		query += " INNER JOIN memberships AS ms ON ms.member_id = m.member_id"
		conditions = append(conditions, fmt.Sprintf("ms.group_id = $%d", len(args)))
		order = " ORDER BY ms.membership_id"
	}
	if hasIDs {
		args = append(args, ids)
		conditions = append(conditions, fmt.Sprintf("m.member_id = ANY($%d)", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += order

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching members: %w", err)
	}
	members, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*types.Member, error) {
		return scanMember(row)
	})
	if err != nil {
		return nil, fmt.Errorf("hydrating member: %w", err)
	}

	memberIDs := make([]string, len(members))
	for i, m := range members {
		memberIDs[i] = m.MemberID
	}
	groups, err := relatedIDsBatch(ctx, pool, memberSide, memberIDs)
	if err != nil {
		return nil, fmt.Errorf("hydrating groups: %w", err)
	}

	results := make([]any, len(members))
	for i, m := range members {
		m.GroupIDs = groups[m.MemberID]
		results[i] = m
	}
	return results, nil
}
