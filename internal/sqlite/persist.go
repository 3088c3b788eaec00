package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/mesh-intelligence/roster/pkg/types"
)

// writeTableJSONL rewrites the JSONL file for table from the current SQLite
// contents. The caller must hold b.mu.
func (b *Backend) writeTableJSONL(table string) error {
	ctx := context.Background()

	var (
		file    string
		records []json.RawMessage
		err     error
	)
	switch table {
	case types.MembersTable:
		file = membersJSONL
		records, err = b.dumpMembers(ctx)
	case types.GroupsTable:
		file = groupsJSONL
		records, err = b.dumpGroups(ctx)
	case types.MembershipsTable:
		file = membershipsJSONL
		records, err = b.dumpMemberships(ctx)
	default:
		return types.ErrTableNotFound
	}
	if err != nil {
		return fmt.Errorf("reading %s for JSONL: %w", table, err)
	}
	return writeJSONL(filepath.Join(b.dataDir, file), records)
}

func (b *Backend) dumpMembers(ctx context.Context) ([]json.RawMessage, error) {
	rows, err := b.db.QueryContext(ctx, "SELECT "+memberColumns+" FROM members ORDER BY created_at, member_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		rec, err := dehydrateMember(m)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (b *Backend) dumpGroups(ctx context.Context) ([]json.RawMessage, error) {
	rows, err := b.db.QueryContext(ctx, "SELECT "+groupColumns+" FROM groups ORDER BY created_at, group_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		rec, err := dehydrateGroup(g)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (b *Backend) dumpMemberships(ctx context.Context) ([]json.RawMessage, error) {
	rows, err := b.db.QueryContext(ctx, "SELECT "+membershipColumns+" FROM memberships ORDER BY membership_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		ms, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		rec, err := dehydrateMembership(ms)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
