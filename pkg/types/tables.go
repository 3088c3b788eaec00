package types

// Standard table names for Store.GetTable.
const (
	MembersTable     = "members"
	GroupsTable      = "groups"
	MembershipsTable = "memberships"
)

// StandardTableNames lists all standard table names for enumeration.
var StandardTableNames = []string{
	MembersTable,
	GroupsTable,
	MembershipsTable,
}
