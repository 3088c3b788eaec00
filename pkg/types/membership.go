package types

import "time"

// Membership is a single edge of the Member↔Group relation. The pair
// (MemberID, GroupID) is unique across the memberships table.
type Membership struct {
	// MembershipID is a UUID v7, generated on creation. Ordering by it
	// yields edge creation order.
	MembershipID string `json:"membership_id"`

	MemberID string `json:"member_id"`
	GroupID  string `json:"group_id"`

	// CreatedAt is the timestamp of creation.
	CreatedAt time.Time `json:"created_at"`
}
