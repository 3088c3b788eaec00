package sqlite

import (
	"strings"

	"github.com/mesh-intelligence/roster/pkg/types"
)

// Column lists in scan order.
const (
	memberColumns     = "member_id, username, email, birth_date, created_at, updated_at"
	groupColumns      = "group_id, name, founded_on, image_url, description, created_at, updated_at"
	membershipColumns = "membership_id, member_id, group_id, created_at"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// qualified prefixes every column in cols with alias.
func qualified(alias, cols string) string {
	parts := strings.Split(cols, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}

func scanMember(s rowScanner) (*types.Member, error) {
	var m types.Member
	var birth, created, updated string
	if err := s.Scan(&m.MemberID, &m.Username, &m.Email, &birth, &created, &updated); err != nil {
		return nil, err
	}
	var err error
	if m.BirthDate, err = parseTime("birth_date", birth); err != nil {
		return nil, err
	}
	if m.CreatedAt, err = parseTime("created_at", created); err != nil {
		return nil, err
	}
	if m.UpdatedAt, err = parseTime("updated_at", updated); err != nil {
		return nil, err
	}
	m.GroupIDs = []string{}
	return &m, nil
}

func scanGroup(s rowScanner) (*types.Group, error) {
	var g types.Group
	var created, updated string
	if err := s.Scan(&g.GroupID, &g.Name, &g.FoundedOn, &g.ImageURL, &g.Description, &created, &updated); err != nil {
		return nil, err
	}
	var err error
	if g.CreatedAt, err = parseTime("created_at", created); err != nil {
		return nil, err
	}
	if g.UpdatedAt, err = parseTime("updated_at", updated); err != nil {
		return nil, err
	}
	g.MemberIDs = []string{}
	return &g, nil
}

func scanMembership(s rowScanner) (*types.Membership, error) {
	var ms types.Membership
	var created string
	if err := s.Scan(&ms.MembershipID, &ms.MemberID, &ms.GroupID, &created); err != nil {
		return nil, err
	}
	var err error
	if ms.CreatedAt, err = parseTime("created_at", created); err != nil {
		return nil, err
	}
	return &ms, nil
}
