package postgres

// Ids are TEXT so that lookups with arbitrary caller-supplied ids simply miss
// instead of failing a uuid cast.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS members (
    member_id TEXT PRIMARY KEY,
    username TEXT NOT NULL,
    email TEXT NOT NULL,
    birth_date TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS groups (
    group_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    founded_on TEXT NOT NULL,
    image_url TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS memberships (
    membership_id TEXT PRIMARY KEY,
    member_id TEXT NOT NULL REFERENCES members(member_id) ON DELETE CASCADE,
    group_id TEXT NOT NULL REFERENCES groups(group_id) ON DELETE CASCADE,
    created_at TIMESTAMPTZ NOT NULL,
    UNIQUE (member_id, group_id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_memberships_group ON memberships(group_id, membership_id)`,
}

const (
	memberColumns     = "member_id, username, email, birth_date, created_at, updated_at"
	groupColumns      = "group_id, name, founded_on, image_url, description, created_at, updated_at"
	membershipColumns = "membership_id, member_id, group_id, created_at"
)
