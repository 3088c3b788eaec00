package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/roster/pkg/types"
)

// querier is the subset of *sql.DB and *sql.Tx used by the edge helpers.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// edgeSide describes the memberships table as seen from one endpoint.
// ownerCol holds the id of the entity being read or written, otherCol the
// id on the far side, which must exist in otherTable.
type edgeSide struct {
	ownerCol   string
	otherCol   string
	otherTable string
}

var (
	memberSide = edgeSide{ownerCol: "member_id", otherCol: "group_id", otherTable: "groups"}
	groupSide  = edgeSide{ownerCol: "group_id", otherCol: "member_id", otherTable: "members"}
)

// relatedIDs returns the far-side ids of ownerID in edge creation order.
func relatedIDs(ctx context.Context, q querier, side edgeSide, ownerID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+side.otherCol+" FROM memberships WHERE "+side.ownerCol+" = ? ORDER BY membership_id",
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying memberships: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning membership: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// relatedIDsBatch returns the far-side ids for every owner in ownerIDs, in
// edge creation order. Owners without edges map to an empty slice.
func relatedIDsBatch(ctx context.Context, q querier, side edgeSide, ownerIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(ownerIDs))
	if len(ownerIDs) == 0 {
		return out, nil
	}
	for _, id := range ownerIDs {
		out[id] = []string{}
	}

	rows, err := q.QueryContext(ctx,
		"SELECT "+side.ownerCol+", "+side.otherCol+" FROM memberships WHERE "+
			side.ownerCol+" IN ("+placeholders(len(ownerIDs))+") ORDER BY membership_id",
		stringArgs(ownerIDs)...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying memberships: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var owner, other string
		if err := rows.Scan(&owner, &other); err != nil {
			return nil, fmt.Errorf("scanning membership: %w", err)
		}
		out[owner] = append(out[owner], other)
	}
	return out, rows.Err()
}

// missingIDs returns the ids that have no row in table.
func missingIDs(ctx context.Context, q querier, table, keyCol string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := q.QueryContext(ctx,
		"SELECT "+keyCol+" FROM "+table+" WHERE "+keyCol+" IN ("+placeholders(len(ids))+")",
		stringArgs(ids)...,
	)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", table, err)
	}
	defer rows.Close()

	found := make(map[string]bool, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// reconcileEdges makes the edge set of ownerID equal to want. Edges that
// survive keep their membership id, new edges are inserted in want order.
// Every id in want must exist on the far side, otherwise nothing is written
// and ErrDanglingReference is returned. The result reports whether any edge
// changed.
func reconcileEdges(ctx context.Context, tx querier, side edgeSide, ownerID string, want []string, now time.Time) (bool, error) {
	want = types.UniqueIDs(want)

	missing, err := missingIDs(ctx, tx, side.otherTable, side.otherCol, want)
	if err != nil {
		return false, err
	}
	if len(missing) > 0 {
		return false, fmt.Errorf("%w: %s %s", types.ErrDanglingReference, side.otherCol, strings.Join(missing, ", "))
	}

	current, err := relatedIDs(ctx, tx, side, ownerID)
	if err != nil {
		return false, err
	}

	wanted := make(map[string]bool, len(want))
	for _, id := range want {
		wanted[id] = true
	}
	have := make(map[string]bool, len(current))
	changed := false

	for _, id := range current {
		have[id] = true
		if wanted[id] {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM memberships WHERE "+side.ownerCol+" = ? AND "+side.otherCol+" = ?",
			ownerID, id,
		); err != nil {
			return false, fmt.Errorf("deleting membership: %w", err)
		}
		changed = true
	}

	for _, id := range want {
		if have[id] {
			continue
		}
		edgeID, err := newUUID()
		if err != nil {
			return false, err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO memberships (membership_id, "+side.ownerCol+", "+side.otherCol+", created_at) VALUES (?, ?, ?, ?)",
			edgeID, ownerID, id, formatTime(now),
		); err != nil {
			return false, fmt.Errorf("inserting membership: %w", err)
		}
		changed = true
	}
	return changed, nil
}

// deleteEdges removes every edge of ownerID and reports whether any existed.
func deleteEdges(ctx context.Context, tx querier, side edgeSide, ownerID string) (bool, error) {
	res, err := tx.ExecContext(ctx, "DELETE FROM memberships WHERE "+side.ownerCol+" = ?", ownerID)
	if err != nil {
		return false, fmt.Errorf("deleting memberships: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// filterIDs reads the "ids" key of filter. ok is false when the key is absent.
func filterIDs(filter types.Filter) (ids []string, ok bool, err error) {
	v, present := filter[types.FilterIDs]
	if !present {
		return nil, false, nil
	}
	ids, isSlice := v.([]string)
	if !isSlice {
		return nil, false, types.ErrInvalidFilter
	}
	return types.UniqueIDs(ids), true, nil
}

// filterString reads a string-valued filter key.
func filterString(filter types.Filter, key string) (s string, ok bool, err error) {
	v, present := filter[key]
	if !present {
		return "", false, nil
	}
	s, isString := v.(string)
	if !isString {
		return "", false, types.ErrInvalidFilter
	}
	return s, true, nil
}
