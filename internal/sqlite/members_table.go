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

var _ types.Table = (*membersTable)(nil)

// membersTable implements Table for *types.Member. GroupIDs is read from
// and reconciled against the memberships table.
type membersTable struct {
	backend *Backend
}

// Get retrieves a member by ID with its group ids hydrated.
func (t *membersTable) Get(ctx context.Context, id string) (any, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}

	b := t.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	m, err := scanMember(b.db.QueryRowContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE member_id = ?", id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting member %s: %w", id, err)
	}
	if m.GroupIDs, err = relatedIDs(ctx, b.db, memberSide, id); err != nil {
		return nil, fmt.Errorf("hydrating groups for member %s: %w", id, err)
	}
	return m, nil
}

// Set creates or updates a member and reconciles its group edges in one
// transaction. An empty id creates a new member with a UUID v7. A nil
// GroupIDs leaves the member's edges untouched.
func (t *membersTable) Set(ctx context.Context, id string, data any) (string, error) {
	m, ok := data.(*types.Member)
	if !ok || m == nil {
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
	err = tx.QueryRowContext(ctx, "SELECT created_at FROM members WHERE member_id = ?", id).Scan(&created)
	switch {
	case err == nil:
		if m.CreatedAt, err = parseTime("created_at", created); err != nil {
			return "", err
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE members SET username = ?, email = ?, birth_date = ?, updated_at = ? WHERE member_id = ?",
			m.Username, m.Email, formatTime(m.BirthDate), formatTime(now), id,
		)
	case errors.Is(err, sql.ErrNoRows):
		m.CreatedAt = now
		_, err = tx.ExecContext(ctx,
			"INSERT INTO members ("+memberColumns+") VALUES (?, ?, ?, ?, ?, ?)",
			id, m.Username, m.Email, formatTime(m.BirthDate), formatTime(now), formatTime(now),
		)
	}
	if err != nil {
		return "", fmt.Errorf("persisting member: %w", err)
	}

	var edgesChanged bool
	if m.GroupIDs != nil {
		if edgesChanged, err = reconcileEdges(ctx, tx, memberSide, id, m.GroupIDs, now); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing member: %w", err)
	}

	m.MemberID = id
	m.UpdatedAt = now
	if m.GroupIDs, err = relatedIDs(ctx, b.db, memberSide, id); err != nil {
		return "", fmt.Errorf("hydrating groups for member %s: %w", id, err)
	}

	if err := b.persist(types.MembersTable); err != nil {
		return "", fmt.Errorf("persisting members.jsonl: %w", err)
	}
	if edgesChanged {
		if err := b.persist(types.MembershipsTable); err != nil {
			return "", fmt.Errorf("persisting memberships.jsonl: %w", err)
		}
	}
	return id, nil
}

// Delete removes a member and all of its memberships.
func (t *membersTable) Delete(ctx context.Context, id string) error {
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

	edgesDeleted, err := deleteEdges(ctx, tx, memberSide, id)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM members WHERE member_id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting member: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return types.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing member deletion: %w", err)
	}

	if err := b.persist(types.MembersTable); err != nil {
		return fmt.Errorf("persisting members.jsonl: %w", err)
	}
	if edgesDeleted {
		if err := b.persist(types.MembershipsTable); err != nil {
			return fmt.Errorf("persisting memberships.jsonl: %w", err)
		}
	}
	return nil
}

// Fetch returns members matching the filter. Supported keys are "ids"
// ([]string) and "group_id" (string). With group_id the result is the
// group's roster in edge creation order; otherwise members are ordered by
// created_at.
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

	b := t.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	query := "SELECT " + qualified("m", memberColumns) + " FROM members AS m"
	var conditions []string
	var args []any
	order := " ORDER BY m.created_at, m.member_id"
	if hasGroup {
		query += " INNER JOIN memberships AS ms ON ms.member_id = m.member_id"
		conditions = append(conditions, "ms.group_id = ?")
		args = append(args, groupID)
		order = " ORDER BY ms.membership_id"
	}
	if hasIDs {
		conditions = append(conditions, "m.member_id IN ("+placeholders(len(ids))+")")
		args = append(args, stringArgs(ids)...)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += order

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching members: %w", err)
	}
	var members []*types.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("hydrating member: %w", err)
		}
		members = append(members, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating members: %w", err)
	}

	memberIDs := make([]string, len(members))
	for i, m := range members {
		memberIDs[i] = m.MemberID
	}
	groups, err := relatedIDsBatch(ctx, b.db, memberSide, memberIDs)
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
