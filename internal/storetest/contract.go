// Package storetest holds the behavioural checks every Store backend must
// pass. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/roster/pkg/types"
)

// Factory returns an attached, empty store. The factory is responsible for
// detaching it when the test ends.
type Factory func(t *testing.T) types.Store

// Run exercises the Table contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("member round trip", func(t *testing.T) { memberRoundTrip(t, newStore(t)) })
	t.Run("roster is symmetric", func(t *testing.T) { rosterSymmetric(t, newStore(t)) })
	t.Run("nil relation keeps edges", func(t *testing.T) { nilRelationKeepsEdges(t, newStore(t)) })
	t.Run("dangling reference writes nothing", func(t *testing.T) { danglingReference(t, newStore(t)) })
	t.Run("delete cascades edges", func(t *testing.T) { deleteCascades(t, newStore(t)) })
	t.Run("fetch by ids", func(t *testing.T) { fetchByIDs(t, newStore(t)) })
	t.Run("membership pair is a set element", func(t *testing.T) { membershipIdempotent(t, newStore(t)) })
}

// Tables returns the three standard tables of s.
func Tables(t *testing.T, s types.Store) (members, groups, memberships types.Table) {
	t.Helper()
	var err error
	members, err = s.GetTable(types.MembersTable)
	require.NoError(t, err)
	groups, err = s.GetTable(types.GroupsTable)
	require.NoError(t, err)
	memberships, err = s.GetTable(types.MembershipsTable)
	require.NoError(t, err)
	return members, groups, memberships
}

// NewMember returns a valid member with the given username.
func NewMember(username string) *types.Member {
	return &types.Member{
		Username:  username,
		Email:     username + "@example.com",
		BirthDate: time.Date(1988, 7, 3, 0, 0, 0, 0, time.UTC),
	}
}

// NewGroup returns a valid group with the given name.
func NewGroup(name string) *types.Group {
	return &types.Group{Name: name, FoundedOn: "2004-02-29"}
}

func memberRoundTrip(t *testing.T, s types.Store) {
	ctx := context.Background()
	members, _, _ := Tables(t, s)

	id, err := members.Set(ctx, "", NewMember("hana"))
	require.NoError(t, err)

	got, err := members.Get(ctx, id)
	require.NoError(t, err)
	m := got.(*types.Member)
	assert.Equal(t, "hana", m.Username)
	assert.True(t, m.BirthDate.Equal(time.Date(1988, 7, 3, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, []string{}, m.GroupIDs)

	_, err = members.Get(ctx, "no-such-member")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func rosterSymmetric(t *testing.T, s types.Store) {
	ctx := context.Background()
	members, groups, _ := Tables(t, s)

	m1, err := members.Set(ctx, "", NewMember("ivan"))
	require.NoError(t, err)
	m2, err := members.Set(ctx, "", NewMember("jo"))
	require.NoError(t, err)

	g := NewGroup("band")
	g.MemberIDs = []string{m2, m1, m2}
	gid, err := groups.Set(ctx, "", g)
	require.NoError(t, err)
	assert.Equal(t, []string{m2, m1}, g.MemberIDs)

	roster, err := members.Fetch(ctx, types.Filter{types.FilterGroupID: gid})
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, m2, roster[0].(*types.Member).MemberID)

	got, err := members.Get(ctx, m1)
	require.NoError(t, err)
	assert.Equal(t, []string{gid}, got.(*types.Member).GroupIDs)

	g.MemberIDs = []string{m1}
	_, err = groups.Set(ctx, gid, g)
	require.NoError(t, err)
	got, err = members.Get(ctx, m2)
	require.NoError(t, err)
	assert.Empty(t, got.(*types.Member).GroupIDs)
}

func nilRelationKeepsEdges(t *testing.T, s types.Store) {
	ctx := context.Background()
	members, groups, memberships := Tables(t, s)

	m1, err := members.Set(ctx, "", NewMember("uma"))
	require.NoError(t, err)
	gid, err := groups.Set(ctx, "", NewGroup("choir"))
	require.NoError(t, err)
	_, err = memberships.Set(ctx, "", &types.Membership{MemberID: m1, GroupID: gid})
	require.NoError(t, err)

	g := NewGroup("renamed choir")
	_, err = groups.Set(ctx, gid, g)
	require.NoError(t, err)
	assert.Equal(t, []string{m1}, g.MemberIDs)

	m := NewMember("uma2")
	_, err = members.Set(ctx, m1, m)
	require.NoError(t, err)
	assert.Equal(t, []string{gid}, m.GroupIDs)

	got, err := groups.Get(ctx, gid)
	require.NoError(t, err)
	assert.Equal(t, "renamed choir", got.(*types.Group).Name)
	assert.Equal(t, []string{m1}, got.(*types.Group).MemberIDs)

	g.MemberIDs = []string{}
	_, err = groups.Set(ctx, gid, g)
	require.NoError(t, err)
	assert.Empty(t, g.MemberIDs, "an empty roster clears the edges")
}

func danglingReference(t *testing.T, s types.Store) {
	ctx := context.Background()
	members, groups, _ := Tables(t, s)

	m1, err := members.Set(ctx, "", NewMember("kim"))
	require.NoError(t, err)
	g := NewGroup("crew")
	g.MemberIDs = []string{m1}
	gid, err := groups.Set(ctx, "", g)
	require.NoError(t, err)

	g.MemberIDs = []string{"bogus-id"}
	_, err = groups.Set(ctx, gid, g)
	assert.ErrorIs(t, err, types.ErrDanglingReference)

	got, err := groups.Get(ctx, gid)
	require.NoError(t, err)
	assert.Equal(t, []string{m1}, got.(*types.Group).MemberIDs)
}

func deleteCascades(t *testing.T, s types.Store) {
	ctx := context.Background()
	members, groups, memberships := Tables(t, s)

	m1, err := members.Set(ctx, "", NewMember("lee"))
	require.NoError(t, err)
	g := NewGroup("team")
	g.MemberIDs = []string{m1}
	gid, err := groups.Set(ctx, "", g)
	require.NoError(t, err)

	require.NoError(t, members.Delete(ctx, m1))
	got, err := groups.Get(ctx, gid)
	require.NoError(t, err)
	assert.Empty(t, got.(*types.Group).MemberIDs)

	edges, err := memberships.Fetch(ctx, types.Filter{types.FilterGroupID: gid})
	require.NoError(t, err)
	assert.Empty(t, edges)

	assert.ErrorIs(t, members.Delete(ctx, m1), types.ErrNotFound)
}

func fetchByIDs(t *testing.T, s types.Store) {
	ctx := context.Background()
	members, _, _ := Tables(t, s)

	m1, err := members.Set(ctx, "", NewMember("max"))
	require.NoError(t, err)

	found, err := members.Fetch(ctx, types.Filter{types.FilterIDs: []string{m1, "bogus-id"}})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, m1, found[0].(*types.Member).MemberID)

	_, err = members.Fetch(ctx, types.Filter{types.FilterIDs: m1})
	assert.ErrorIs(t, err, types.ErrInvalidFilter)
}

func membershipIdempotent(t *testing.T, s types.Store) {
	ctx := context.Background()
	members, groups, memberships := Tables(t, s)

	m1, err := members.Set(ctx, "", NewMember("noa"))
	require.NoError(t, err)
	gid, err := groups.Set(ctx, "", NewGroup("club"))
	require.NoError(t, err)

	first, err := memberships.Set(ctx, "", &types.Membership{MemberID: m1, GroupID: gid})
	require.NoError(t, err)
	second, err := memberships.Set(ctx, "", &types.Membership{MemberID: m1, GroupID: gid})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = memberships.Set(ctx, "", &types.Membership{MemberID: "bogus-id", GroupID: gid})
	assert.ErrorIs(t, err, types.ErrDanglingReference)

	require.NoError(t, memberships.Delete(ctx, first))
	got, err := groups.Get(ctx, gid)
	require.NoError(t, err)
	assert.Empty(t, got.(*types.Group).MemberIDs)
}
