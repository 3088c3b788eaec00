package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mesh-intelligence/roster/pkg/types"
)

type edgeSide struct {
	ownerCol   string
	otherCol   string
	otherTable string
}

var (
	memberSide = edgeSide{ownerCol: "member_id", otherCol: "group_id", otherTable: "groups"}
	groupSide  = edgeSide{ownerCol: "group_id", otherCol: "member_id", otherTable: "members"}
)

func scanMember(row pgx.Row) (*types.Member, error) {
	var m types.Member
	if err := row.Scan(&m.MemberID, &m.Username, &m.Email, &m.BirthDate, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.BirthDate = m.BirthDate.UTC()
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()
	m.GroupIDs = []string{}
	return &m, nil
}

func scanGroup(row pgx.Row) (*types.Group, error) {
	var g types.Group
	if err := row.Scan(&g.GroupID, &g.Name, &g.FoundedOn, &g.ImageURL, &g.Description, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	g.CreatedAt = g.CreatedAt.UTC()
	g.UpdatedAt = g.UpdatedAt.UTC()
	g.MemberIDs = []string{}
	return &g, nil
}

func scanMembership(row pgx.Row) (*types.Membership, error) {
	var ms types.Membership
	if err := row.Scan(&ms.MembershipID, &ms.MemberID, &ms.GroupID, &ms.CreatedAt); err != nil {
		return nil, err
	}
	ms.CreatedAt = ms.CreatedAt.UTC()
	return &ms, nil
}

// relatedIDs returns the far-side ids of ownerID in edge creation order.
func relatedIDs(ctx context.Context, q querier, side edgeSide, ownerID string) ([]string, error) {
	rows, err := q.Query(ctx,
		"SELECT "+side.otherCol+" FROM memberships WHERE "+side.ownerCol+" = $1 ORDER BY membership_id",
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying memberships: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning memberships: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// relatedIDsBatch returns the far-side ids for each owner. Owners without
// edges map to an empty slice.
func relatedIDsBatch(ctx context.Context, q querier, side edgeSide, ownerIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(ownerIDs))
	if len(ownerIDs) == 0 {
		return out, nil
	}
	for _, id := range ownerIDs {
		out[id] = []string{}
	}

	rows, err := q.Query(ctx,
		"SELECT "+side.ownerCol+", "+side.otherCol+" FROM memberships WHERE "+
			side.ownerCol+" = ANY($1) ORDER BY membership_id",
		ownerIDs,
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

// missingIDs returns the ids with no row in table.
func missingIDs(ctx context.Context, q querier, table, keyCol string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := q.Query(ctx, "SELECT "+keyCol+" FROM "+table+" WHERE "+keyCol+" = ANY($1)", ids)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", table, err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", table, err)
	}

	seen := make(map[string]bool, len(found))
	for _, id := range found {
		seen[id] = true
	}
	var missing []string
	for _, id := range ids {
		if !seen[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// reconcileEdges makes the edge set of ownerID equal to want inside tx.
// Surviving edges keep their membership id; new edges follow want order.
func reconcileEdges(ctx context.Context, tx pgx.Tx, side edgeSide, ownerID string, want []string, now time.Time) error {
	want = types.UniqueIDs(want)

	missing, err := missingIDs(ctx, tx, side.otherTable, side.otherCol, want)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s %s", types.ErrDanglingReference, side.otherCol, strings.Join(missing, ", "))
	}

	if _, err := tx.Exec(ctx,
		"DELETE FROM memberships WHERE "+side.ownerCol+" = $1 AND NOT ("+side.otherCol+" = ANY($2))",
		ownerID, want,
	); err != nil {
		return fmt.Errorf("deleting memberships: %w", err)
	}

	for _, id := range want {
		edgeID, err := newUUID()
		if err != nil {
			return err
		}
		// Existing pairs conflict and are left untouched.
		if _, err := tx.Exec(ctx,
			"INSERT INTO memberships (membership_id, "+side.ownerCol+", "+side.otherCol+", created_at) "+
				"VALUES ($1, $2, $3, $4) ON CONFLICT (member_id, group_id) DO NOTHING",
			edgeID, ownerID, id, now,
		); err != nil {
			return insertError(err)
		}
	}
	return nil
}

// foreignKeyViolation is the SQLSTATE raised when an edge names a row that
// was deleted after missingIDs looked for it.
const foreignKeyViolation = "23503"

// insertError wraps a failed memberships insert. A foreign key violation is
// reported as ErrDanglingReference, the same error the pre-insert check
// returns.
func insertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return fmt.Errorf("%w: %s", types.ErrDanglingReference, pgErr.ConstraintName)
	}
	return fmt.Errorf("inserting membership: %w", err)
}

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
