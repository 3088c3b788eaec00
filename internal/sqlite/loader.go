package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// jsonlTableMapping maps JSONL filenames to their SQLite tables and column
// lists. Order matters: memberships reference members and groups.
var jsonlTableMapping = []struct {
	file    string
	table   string
	columns []string
}{
	{membersJSONL, "members", []string{"member_id", "username", "email", "birth_date", "created_at", "updated_at"}},
	{groupsJSONL, "groups", []string{"group_id", "name", "founded_on", "image_url", "description", "created_at", "updated_at"}},
	{membershipsJSONL, "memberships", []string{"membership_id", "member_id", "group_id", "created_at"}},
}

// loadAllJSONL reads each JSONL file from dataDir and inserts its records
// into the corresponding SQLite table. Loading is transactional: all files
// load or the database stays empty. Malformed lines, records that violate a
// constraint (duplicate pairs, edges to missing entities) and unknown fields
// are skipped.
func loadAllJSONL(db *sql.DB, dataDir string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	for _, mapping := range jsonlTableMapping {
		records, err := readJSONL(filepath.Join(dataDir, mapping.file))
		if err != nil {
			return fmt.Errorf("reading %s: %w", mapping.file, err)
		}
		if len(records) == 0 {
			continue
		}
		if err := insertRecords(tx, mapping.table, mapping.columns, records); err != nil {
			return fmt.Errorf("loading %s into %s: %w", mapping.file, mapping.table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}

// insertRecords inserts parsed JSONL records into a SQLite table. Only the
// listed columns are extracted from each record.
func insertRecords(tx *sql.Tx, table string, columns []string, records []json.RawMessage) error {
	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		placeholders(len(columns)),
	)

	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return fmt.Errorf("preparing insert for %s: %w", table, err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var obj map[string]any
		if err := json.Unmarshal(rec, &obj); err != nil {
			continue
		}

		args := make([]any, len(columns))
		for i, col := range columns {
			args[i] = obj[col]
		}

		if _, err := stmt.Exec(args...); err != nil {
			continue
		}
	}
	return nil
}

// placeholders returns n comma-separated "?" markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// stringArgs converts ids to query arguments.
func stringArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
