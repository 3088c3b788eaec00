package types

import (
	"slices"
	"time"
)

// Member is one side of the membership relation. GroupIDs is a projection
// of the memberships table: the store hydrates it on read and reconciles
// the edges against it on Table.Set. A nil GroupIDs on Set leaves the edges
// alone.
type Member struct {
	MemberID  string    `json:"member_id"`
	Username  string    `json:"username" validate:"required"`
	Email     string    `json:"email" validate:"required,email"`
	BirthDate time.Time `json:"birth_date" validate:"required"`
	GroupIDs  []string  `json:"group_ids"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InGroup reports whether groupID is in the member's group set.
func (m *Member) InGroup(groupID string) bool {
	return slices.Contains(m.GroupIDs, groupID)
}

// JoinGroup adds groupID to the group set. Joining a group the member is
// already in is a no-op; the return value reports whether the set changed.
func (m *Member) JoinGroup(groupID string) bool {
	if m.InGroup(groupID) {
		return false
	}
	m.GroupIDs = append(m.GroupIDs, groupID)
	return true
}

// LeaveGroup removes groupID from the group set and reports whether it was
// present.
func (m *Member) LeaveGroup(groupID string) bool {
	n := len(m.GroupIDs)
	m.GroupIDs = slices.DeleteFunc(m.GroupIDs, func(id string) bool { return id == groupID })
	return len(m.GroupIDs) != n
}
