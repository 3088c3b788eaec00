package sqlite

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/roster/pkg/types"
)

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	var data []byte
	for _, l := range lines {
		data = append(data, l...)
		data = append(data, '\n')
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestReadJSONL_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.jsonl")
	writeLines(t, path, `{"a":1}`, `not json`, ``, `{"b":2}`)

	records, err := readJSONL(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.JSONEq(t, `{"a":1}`, string(records[0]))
	assert.JSONEq(t, `{"b":2}`, string(records[1]))
}

func TestWriteJSONL_ReplacesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.jsonl")
	writeLines(t, path, `{"old":true}`)

	require.NoError(t, writeJSONL(path, []json.RawMessage{
		json.RawMessage(`{"n":1}`),
		json.RawMessage(`{"n":2}`),
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"n\":1}\n{\"n\":2}\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func TestLoadAllJSONL(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	writeLines(t, filepath.Join(dir, membersJSONL),
		`{"member_id":"m1","username":"ann","email":"ann@example.com","birth_date":"1990-01-01T00:00:00Z","created_at":"2025-01-01T00:00:00Z","updated_at":"2025-01-01T00:00:00Z","extra":"ignored"}`,
		`{"member_id":"m2","username":"ben","email":"ben@example.com","birth_date":"1991-01-01T00:00:00Z","created_at":"2025-01-02T00:00:00Z","updated_at":"2025-01-02T00:00:00Z"}`,
		`{"member_id":"m3"}`,
		`garbage`,
	)
	writeLines(t, filepath.Join(dir, groupsJSONL),
		`{"group_id":"g1","name":"club","founded_on":"2001","image_url":"","description":"","created_at":"2025-01-01T00:00:00Z","updated_at":"2025-01-01T00:00:00Z"}`,
	)
	writeLines(t, filepath.Join(dir, membershipsJSONL),
		`{"membership_id":"e2","member_id":"m2","group_id":"g1","created_at":"2025-01-03T00:00:00Z"}`,
		`{"membership_id":"e1","member_id":"m1","group_id":"g1","created_at":"2025-01-03T00:00:00Z"}`,
		`{"membership_id":"e3","member_id":"m1","group_id":"g1","created_at":"2025-01-03T00:00:00Z"}`,
		`{"membership_id":"e4","member_id":"ghost","group_id":"g1","created_at":"2025-01-03T00:00:00Z"}`,
	)

	b := setupBackendWithConfig(t, types.Config{Backend: types.BackendSQLite, DataDir: dir})

	all, err := mustTable(t, b, types.MembersTable).Fetch(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2, "incomplete and malformed members are skipped")

	g, err := mustTable(t, b, types.GroupsTable).Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, g.(*types.Group).MemberIDs,
		"duplicate pairs and dangling edges are skipped; roster follows membership id")
}
