package sqlite

// Schema DDL for all tables. Timestamps are RFC 3339 strings in UTC.
const (
	createMembers = `CREATE TABLE members (
    member_id TEXT PRIMARY KEY,
    username TEXT NOT NULL,
    email TEXT NOT NULL,
    birth_date TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createGroups = `CREATE TABLE groups (
    group_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    founded_on TEXT NOT NULL,
    image_url TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createMemberships = `CREATE TABLE memberships (
    membership_id TEXT PRIMARY KEY,
    member_id TEXT NOT NULL,
    group_id TEXT NOT NULL,
    created_at TEXT NOT NULL,
    FOREIGN KEY (member_id) REFERENCES members(member_id) ON DELETE CASCADE,
    FOREIGN KEY (group_id) REFERENCES groups(group_id) ON DELETE CASCADE
);`
)

// Index DDL. The unique pair index makes the relation a set.
const (
	idxMembershipsPair  = `CREATE UNIQUE INDEX idx_memberships_pair ON memberships(member_id, group_id);`
	idxMembershipsGroup = `CREATE INDEX idx_memberships_group ON memberships(group_id, membership_id);`
	idxMembersCreatedAt = `CREATE INDEX idx_members_created_at ON members(created_at);`
	idxGroupsCreatedAt  = `CREATE INDEX idx_groups_created_at ON groups(created_at);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createMembers,
	createGroups,
	createMemberships,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxMembershipsPair,
	idxMembershipsGroup,
	idxMembersCreatedAt,
	idxGroupsCreatedAt,
}
