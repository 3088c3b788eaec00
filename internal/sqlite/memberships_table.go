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

var _ types.Table = (*membershipsTable)(nil)

// membershipsTable exposes the edge rows directly.
type membershipsTable struct {
	backend *Backend
}

// Get retrieves an edge by membership ID.
func (t *membershipsTable) Get(ctx context.Context, id string) (any, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}

	b := t.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	ms, err := scanMembership(b.db.QueryRowContext(ctx,
		"SELECT "+membershipColumns+" FROM memberships WHERE membership_id = ?", id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting membership %s: %w", id, err)
	}
	return ms, nil
}

// Set creates the edge (MemberID, GroupID). The pair is a set element: when
// it already exists the stored edge is returned and nothing is written. Edges
// are immutable, so an id that names an edge with a different pair is
// rejected with ErrInvalidData.
func (t *membershipsTable) Set(ctx context.Context, id string, data any) (string, error) {
	ms, ok := data.(*types.Membership)
	if !ok || ms == nil {
		return "", types.ErrInvalidData
	}
	if ms.MemberID == "" || ms.GroupID == "" {
		return "", types.ErrInvalidID
	}

	b := t.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return "", types.ErrStoreDetached
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := scanMembership(tx.QueryRowContext(ctx,
		"SELECT "+membershipColumns+" FROM memberships WHERE member_id = ? AND group_id = ?",
		ms.MemberID, ms.GroupID,
	))
	switch {
	case err == nil:
		if id != "" && id != existing.MembershipID {
			return "", types.ErrInvalidData
		}
		*ms = *existing
		return existing.MembershipID, nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("checking membership: %w", err)
	}

	if id != "" {
		var taken int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM memberships WHERE membership_id = ?", id).Scan(&taken)
		if err == nil {
			return "", types.ErrInvalidData
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("checking membership id: %w", err)
		}
	} else if id, err = newUUID(); err != nil {
		return "", err
	}

	if missing, err := missingIDs(ctx, tx, "members", "member_id", []string{ms.MemberID}); err != nil {
		return "", err
	} else if len(missing) > 0 {
		return "", fmt.Errorf("%w: member_id %s", types.ErrDanglingReference, ms.MemberID)
	}
	if missing, err := missingIDs(ctx, tx, "groups", "group_id", []string{ms.GroupID}); err != nil {
		return "", err
	} else if len(missing) > 0 {
		return "", fmt.Errorf("%w: group_id %s", types.ErrDanglingReference, ms.GroupID)
	}

	now := time.Now().UTC().Truncate(time.Second)
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO memberships ("+membershipColumns+") VALUES (?, ?, ?, ?)",
		id, ms.MemberID, ms.GroupID, formatTime(now),
	); err != nil {
		return "", fmt.Errorf("inserting membership: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing membership: %w", err)
	}

	ms.MembershipID = id
	ms.CreatedAt = now
	if err := b.persist(types.MembershipsTable); err != nil {
		return "", fmt.Errorf("persisting memberships.jsonl: %w", err)
	}
	return id, nil
}

// Delete removes one edge by membership ID.
func (t *membershipsTable) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}

	b := t.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}

	res, err := b.db.ExecContext(ctx, "DELETE FROM memberships WHERE membership_id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting membership: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return types.ErrNotFound
	}

	if err := b.persist(types.MembershipsTable); err != nil {
		return fmt.Errorf("persisting memberships.jsonl: %w", err)
	}
	return nil
}

// Fetch returns edges filtered by "member_id" and/or "group_id", ordered by
// membership ID.
func (t *membershipsTable) Fetch(ctx context.Context, filter types.Filter) ([]any, error) {
	memberID, hasMember, err := filterString(filter, types.FilterMemberID)
	if err != nil {
		return nil, err
	}
	groupID, hasGroup, err := filterString(filter, types.FilterGroupID)
	if err != nil {
		return nil, err
	}

	b := t.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	query := "SELECT " + membershipColumns + " FROM memberships"
	var conditions []string
	var args []any
	if hasMember {
		conditions = append(conditions, "member_id = ?")
		args = append(args, memberID)
	}
	if hasGroup {
		conditions = append(conditions, "group_id = ?")
		args = append(args, groupID)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY membership_id"

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching memberships: %w", err)
	}
	defer rows.Close()

	results := []any{}
	for rows.Next() {
		ms, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("hydrating membership: %w", err)
		}
		results = append(results, ms)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating memberships: %w", err)
	}
	return results, nil
}
