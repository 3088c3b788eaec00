package types

import (
	"slices"
	"time"
)

// Group is the other side of the membership relation. MemberIDs is the
// group's roster in edge creation order. As with Member.GroupIDs, a nil
// roster on Table.Set keeps the stored edges.
type Group struct {
	GroupID     string    `json:"group_id"`
	Name        string    `json:"name" validate:"required"`
	FoundedOn   string    `json:"founded_on" validate:"required"`
	ImageURL    string    `json:"image_url" validate:"required,url"`
	Description string    `json:"description"`
	MemberIDs   []string  `json:"member_ids"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasMember reports whether memberID is on the roster.
func (g *Group) HasMember(memberID string) bool {
	return slices.Contains(g.MemberIDs, memberID)
}

// AddMember appends memberID to the roster unless it is already there.
func (g *Group) AddMember(memberID string) bool {
	if g.HasMember(memberID) {
		return false
	}
	g.MemberIDs = append(g.MemberIDs, memberID)
	return true
}

// RemoveMember filters memberID out of the roster. Removing an id that is
// not on the roster is not an error; the return value reports whether the
// roster changed.
func (g *Group) RemoveMember(memberID string) bool {
	n := len(g.MemberIDs)
	g.MemberIDs = slices.DeleteFunc(g.MemberIDs, func(id string) bool { return id == memberID })
	return len(g.MemberIDs) != n
}

// SetMembers replaces the roster wholesale. Duplicate ids collapse to their
// first occurrence.
func (g *Group) SetMembers(memberIDs []string) {
	g.MemberIDs = UniqueIDs(memberIDs)
}

// UniqueIDs returns ids with duplicates removed, keeping first-occurrence
// order. The result is never nil.
func UniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
