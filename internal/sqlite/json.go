package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mesh-intelligence/roster/pkg/types"
)

// JSONL record structures. Field names match the SQLite column names so the
// loader can insert records without per-table code.

// memberJSON represents a member in members.jsonl. Group ids are not stored
// here; they live in memberships.jsonl.
type memberJSON struct {
	MemberID  string `json:"member_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	BirthDate string `json:"birth_date"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// groupJSON represents a group in groups.jsonl.
type groupJSON struct {
	GroupID     string `json:"group_id"`
	Name        string `json:"name"`
	FoundedOn   string `json:"founded_on"`
	ImageURL    string `json:"image_url"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// membershipJSON represents one edge in memberships.jsonl.
type membershipJSON struct {
	MembershipID string `json:"membership_id"`
	MemberID     string `json:"member_id"`
	GroupID      string `json:"group_id"`
	CreatedAt    string `json:"created_at"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(column, s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s: %w", column, err)
	}
	return t, nil
}

func dehydrateMember(m *types.Member) (json.RawMessage, error) {
	rec, err := json.Marshal(memberJSON{
		MemberID:  m.MemberID,
		Username:  m.Username,
		Email:     m.Email,
		BirthDate: formatTime(m.BirthDate),
		CreatedAt: formatTime(m.CreatedAt),
		UpdatedAt: formatTime(m.UpdatedAt),
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling member %s: %w", m.MemberID, err)
	}
	return rec, nil
}

func dehydrateGroup(g *types.Group) (json.RawMessage, error) {
	rec, err := json.Marshal(groupJSON{
		GroupID:     g.GroupID,
		Name:        g.Name,
		FoundedOn:   g.FoundedOn,
		ImageURL:    g.ImageURL,
		Description: g.Description,
		CreatedAt:   formatTime(g.CreatedAt),
		UpdatedAt:   formatTime(g.UpdatedAt),
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling group %s: %w", g.GroupID, err)
	}
	return rec, nil
}

func dehydrateMembership(ms *types.Membership) (json.RawMessage, error) {
	rec, err := json.Marshal(membershipJSON{
		MembershipID: ms.MembershipID,
		MemberID:     ms.MemberID,
		GroupID:      ms.GroupID,
		CreatedAt:    formatTime(ms.CreatedAt),
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling membership %s: %w", ms.MembershipID, err)
	}
	return rec, nil
}
