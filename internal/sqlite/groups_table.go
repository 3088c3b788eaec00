package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/roster/pkg/types"
)

var _ types.Table = (*groupsTable)(nil)

// groupsTable implements Table for *types.Group. MemberIDs is the roster,
// read from and reconciled against the memberships table.
type groupsTable struct {
	backend *Backend
}

// Get retrieves a group by ID with its roster hydrated.
func (t *groupsTable) Get(ctx context.Context, id string) (any, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}

	b := t.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	g, err := scanGroup(b.db.QueryRowContext(ctx,
		"SELECT "+groupColumns+" FROM groups WHERE group_id = ?", id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting group %s: %w", id, err)
	}
	if g.MemberIDs, err = relatedIDs(ctx, b.db, groupSide, id); err != nil {
		return nil, fmt.Errorf("hydrating roster for group %s: %w", id, err)
	}
	return g, nil
}

// Set creates or updates a group and replaces its roster with MemberIDs in
// one transaction. Surviving edges keep their position in the roster. A nil
// MemberIDs writes the scalar fields only and leaves the edges as stored.
func (t *groupsTable) Set(ctx context.Context, id string, data any) (string, error) {
	g, ok := data.(*types.Group)
	if !ok || g == nil {
		return "", types.ErrInvalidData
	}

	b := t.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return "", types.ErrStoreDetached
	}

	now := time.Now().UTC().Truncate(time.Second)
	if id == "" {
		newID, err := newUUID()
		if err != nil {
			return "", err
		}
		id = newID
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var created string
	err = tx.QueryRowContext(ctx, "SELECT created_at FROM groups WHERE group_id = ?", id).Scan(&created)
	switch {
	case err == nil:
		if g.CreatedAt, err = parseTime("created_at", created); err != nil {
			return "", err
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE groups SET name = ?, founded_on = ?, image_url = ?, description = ?, updated_at = ? WHERE group_id = ?",
			g.Name, g.FoundedOn, g.ImageURL, g.Description, formatTime(now), id,
		)
	case errors.Is(err, sql.ErrNoRows):
		g.CreatedAt = now
		_, err = tx.ExecContext(ctx,
			"INSERT INTO groups ("+groupColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
			id, g.Name, g.FoundedOn, g.ImageURL, g.Description, formatTime(now), formatTime(now),
		)
	}
	if err != nil {
		return "", fmt.Errorf("persisting group: %w", err)
	}

	var edgesChanged bool
	if g.MemberIDs != nil {
		if edgesChanged, err = reconcileEdges(ctx, tx, groupSide, id, g.MemberIDs, now); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing group: %w", err)
	}

	g.GroupID = id
	g.UpdatedAt = now
	// Re-read so surviving edges come back in their original order.
	if g.MemberIDs, err = relatedIDs(ctx, b.db, groupSide, id); err != nil {
		return "", fmt.Errorf("hydrating roster for group %s: %w", id, err)
	}

	if err := b.persist(types.GroupsTable); err != nil {
		return "", fmt.Errorf("persisting groups.jsonl: %w", err)
	}
	if edgesChanged {
		if err := b.persist(types.MembershipsTable); err != nil {
			return "", fmt.Errorf("persisting memberships.jsonl: %w", err)
		}
	}
	return id, nil
}

// Delete removes a group and all of its memberships.
func (t *groupsTable) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}

	b := t.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	edgesDeleted, err := deleteEdges(ctx, tx, groupSide, id)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM groups WHERE group_id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting group: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return types.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing group deletion: %w", err)
	}

	if err := b.persist(types.GroupsTable); err != nil {
		return fmt.Errorf("persisting groups.jsonl: %w", err)
	}
	if edgesDeleted {
		if err := b.persist(types.MembershipsTable); err != nil {
			return fmt.Errorf("persisting memberships.jsonl: %w", err)
		}
	}
	return nil
}

// Fetch returns groups matching the filter. Supported keys are "ids"
// ([]string) and "member_id" (string). With member_id the result follows
// edge creation order; otherwise groups are ordered by created_at.
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

	b := t.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	query := "SELECT " + qualified("g", groupColumns) + " FROM groups AS g"
	var conditions []string
	var args []any
	order := " ORDER BY g.created_at, g.group_id"
	if hasMember {
		query += " INNER JOIN memberships AS ms ON ms.group_id = g.group_id"
		conditions = append(conditions, "ms.member_id = ?")
		args = append(args, memberID)
		order = " ORDER BY ms.membership_id"
	}
	if hasIDs {
		conditions = append(conditions, "g.group_id IN ("+placeholders(len(ids))+")")
		args = append(args, stringArgs(ids)...)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += order

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching groups: %w", err)
	}
	var groups []*types.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("hydrating group: %w", err)
		}
		groups = append(groups, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating groups: %w", err)
	}

	groupIDs := make([]string, len(groups))
	for i, g := range groups {
		groupIDs[i] = g.GroupID
	}
	rosters, err := relatedIDsBatch(ctx, b.db, groupSide, groupIDs)
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
