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

var _ types.Table = (*groupsTable)(nil)

type groupsTable struct {
	backend *Backend
}

func (t *groupsTable) Get(ctx context.Context, id string) (any, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	pool, err := t.backend.acquire()
	if err != nil {
		return nil, err
	}

	g, err := scanGroup(pool.QueryRow(ctx, "SELECT "+groupColumns+" FROM groups WHERE group_id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting group %s: %w", id, err)
	}
	if g.MemberIDs, err = relatedIDs(ctx, pool, groupSide, id); err != nil {
		return nil, fmt.Errorf("hydrating roster for group %s: %w", id, err)
	}
	return g, nil
}

// Set upserts the group row and replaces its roster in one transaction.
// A nil MemberIDs keeps the stored roster.
func (t *groupsTable) Set(ctx context.Context, id string, data any) (string, error) {
	g, ok := data.(*types.Group)
	if !ok || g == nil {
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
		`INSERT INTO groups (`+groupColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $6)
		 ON CONFLICT (group_id) DO UPDATE
		 SET name = EXCLUDED.name, founded_on = EXCLUDED.founded_on,
		     image_url = EXCLUDED.image_url, description = EXCLUDED.description,
		     updated_at = EXCLUDED.updated_at
		 RETURNING created_at`,
		id, g.Name, g.FoundedOn, g.ImageURL, g.Description, now,
	).Scan(&created)
	if err != nil {
		return "", fmt.Errorf("persisting group: %w", err)
	}

	if g.MemberIDs != nil {
		if err := reconcileEdges(ctx, tx, groupSide, id, g.MemberIDs, now); err != nil {
			return "", err
		}
	}
	roster, err := relatedIDs(ctx, tx, groupSide, id)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("committing group: %w", err)
	}

	g.GroupID = id
	g.CreatedAt = created.UTC()
	g.UpdatedAt = now
	g.MemberIDs = roster
	return id, nil
}

// Delete removes the group; the foreign keys cascade to its edges.
func (t *groupsTable) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	pool, err := t.backend.acquire()
	if err != nil {
		return err
	}
	tag, err := pool.Exec(ctx, "DELETE FROM groups WHERE group_id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (t *groupsTable) Fetch(ctx context.Context, filter types.Filter) ([]any, error) {
	ids, hasIDs, err := filterIDs(filter)
	if err != nil {
		return nil, err
	}
	memberID, hasMember, err := filterString(filter, types.FilterMemberID)
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

	cols := strings.ReplaceAll("g."+groupColumns, ", ", ", g.")
	query := "SELECT " + cols + " FROM groups AS g"
	var conditions []string
	var args []any
	order := " ORDER BY g.created_at, g.group_id"
	if hasMember {
		args = append(args, memberID)
		query += " INNER JOIN memberships AS ms ON ms.group_id = g.group_id"
		conditions = append(conditions, fmt.Sprintf("ms.member_id = $%d", len(args)))
		order = " ORDER BY ms.membership_id"
	}
	if hasIDs {
		args = append(args, ids)
		conditions = append(conditions, fmt.Sprintf("g.group_id = ANY($%d)", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += order

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching groups: %w", err)
	}
	groups, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*types.Group, error) {
		return scanGroup(row)
	})
	if err != nil {
		return nil, fmt.Errorf("hydrating group: %w", err)
	}

	groupIDs := make([]string, len(groups))
	for i, g := range groups {
		groupIDs[i] = g.GroupID
	}
	rosters, err := relatedIDsBatch(ctx, pool, groupSide, groupIDs)
	if err != nil {
		return nil, fmt.Errorf("hydrating rosters: %w", err)
	}

	results := make([]any, len(groups))
	for i, g := range groups {
		g.MemberIDs = rosters[g.GroupID]
		results[i] = g
	}
	return results, nil
}
