package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/roster/internal/storetest"
	"github.com/mesh-intelligence/roster/pkg/types"
)

func TestBackend_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) types.Store {
		return setupBackend(t)
	})
}

func TestMembersTable_CRUD(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	members := mustTable(t, b, types.MembersTable)

	m := newMember("alice")
	id, err := members.Set(ctx, "", m)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, id, m.MemberID)
	assert.False(t, m.CreatedAt.IsZero())
	assert.Equal(t, []string{}, m.GroupIDs)

	got, err := members.Get(ctx, id)
	require.NoError(t, err)
	alice := got.(*types.Member)
	assert.Equal(t, "alice", alice.Username)
	assert.True(t, m.BirthDate.Equal(alice.BirthDate))
	assert.Equal(t, []string{}, alice.GroupIDs)

	alice.Email = "alice@roster.test"
	_, err = members.Set(ctx, id, alice)
	require.NoError(t, err)
	got, err = members.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice@roster.test", got.(*types.Member).Email)
	assert.True(t, m.CreatedAt.Equal(got.(*types.Member).CreatedAt), "update keeps created_at")

	require.NoError(t, members.Delete(ctx, id))
	_, err = members.Get(ctx, id)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.ErrorIs(t, members.Delete(ctx, id), types.ErrNotFound)
}

func TestTables_InvalidInput(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	for _, name := range types.StandardTableNames {
		t.Run(name, func(t *testing.T) {
			table := mustTable(t, b, name)

			_, err := table.Get(ctx, "")
			assert.ErrorIs(t, err, types.ErrInvalidID)
			assert.ErrorIs(t, table.Delete(ctx, ""), types.ErrInvalidID)
			_, err = table.Set(ctx, "", "not an entity")
			assert.ErrorIs(t, err, types.ErrInvalidData)
		})
	}
}

func TestMembersTable_GroupEdges(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	members := mustTable(t, b, types.MembersTable)
	groups := mustTable(t, b, types.GroupsTable)

	g1, err := groups.Set(ctx, "", newGroup("one"))
	require.NoError(t, err)
	g2, err := groups.Set(ctx, "", newGroup("two"))
	require.NoError(t, err)

	m := newMember("carol")
	m.GroupIDs = []string{g2, g1, g2}
	id, err := members.Set(ctx, "", m)
	require.NoError(t, err)
	assert.Equal(t, []string{g2, g1}, m.GroupIDs, "duplicates collapse")

	got, err := groups.Get(ctx, g1)
	require.NoError(t, err)
	assert.Equal(t, []string{id}, got.(*types.Group).MemberIDs, "the relation is symmetric")

	m.GroupIDs = []string{g1}
	_, err = members.Set(ctx, id, m)
	require.NoError(t, err)
	got, err = groups.Get(ctx, g2)
	require.NoError(t, err)
	assert.Empty(t, got.(*types.Group).MemberIDs)
}

func TestGroupsTable_ReconcileRoster(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	members := mustTable(t, b, types.MembersTable)
	groups := mustTable(t, b, types.GroupsTable)
	edges := mustTable(t, b, types.MembershipsTable)

	var ids []string
	for _, name := range []string{"m1", "m2", "m3"} {
		id, err := members.Set(ctx, "", newMember(name))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	g := newGroup("club")
	g.MemberIDs = []string{ids[0], ids[1]}
	gid, err := groups.Set(ctx, "", g)
	require.NoError(t, err)

	before, err := edges.Fetch(ctx, types.Filter{types.FilterGroupID: gid})
	require.NoError(t, err)
	require.Len(t, before, 2)
	survivor := before[1].(*types.Membership)

	g.MemberIDs = []string{ids[2], ids[1]}
	_, err = groups.Set(ctx, gid, g)
	require.NoError(t, err)
	assert.Equal(t, []string{ids[1], ids[2]}, g.MemberIDs, "surviving edges keep their position")

	after, err := edges.Fetch(ctx, types.Filter{types.FilterGroupID: gid})
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, survivor.MembershipID, after[0].(*types.Membership).MembershipID)

	m0, err := members.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Empty(t, m0.(*types.Member).GroupIDs)
}

func TestGroupsTable_DanglingReference(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	members := mustTable(t, b, types.MembersTable)
	groups := mustTable(t, b, types.GroupsTable)

	mid, err := members.Set(ctx, "", newMember("dave"))
	require.NoError(t, err)
	g := newGroup("club")
	g.MemberIDs = []string{mid}
	gid, err := groups.Set(ctx, "", g)
	require.NoError(t, err)

	g.Name = "renamed"
	g.MemberIDs = []string{"missing-member"}
	_, err = groups.Set(ctx, gid, g)
	assert.ErrorIs(t, err, types.ErrDanglingReference)

	got, err := groups.Get(ctx, gid)
	require.NoError(t, err)
	assert.Equal(t, "club", got.(*types.Group).Name, "nothing is written on failure")
	assert.Equal(t, []string{mid}, got.(*types.Group).MemberIDs)

	_, err = groups.Set(ctx, "", &types.Group{Name: "x", FoundedOn: "2000", MemberIDs: []string{"ghost"}})
	assert.ErrorIs(t, err, types.ErrDanglingReference)
	all, err := groups.Fetch(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1, "failed create leaves no row behind")
}

func TestDelete_CascadesEdges(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	members := mustTable(t, b, types.MembersTable)
	groups := mustTable(t, b, types.GroupsTable)
	edges := mustTable(t, b, types.MembershipsTable)

	mid, err := members.Set(ctx, "", newMember("erin"))
	require.NoError(t, err)
	g := newGroup("a")
	g.MemberIDs = []string{mid}
	ga, err := groups.Set(ctx, "", g)
	require.NoError(t, err)
	g = newGroup("b")
	g.MemberIDs = []string{mid}
	gb, err := groups.Set(ctx, "", g)
	require.NoError(t, err)

	require.NoError(t, groups.Delete(ctx, ga))
	m, err := members.Get(ctx, mid)
	require.NoError(t, err)
	assert.Equal(t, []string{gb}, m.(*types.Member).GroupIDs)

	require.NoError(t, members.Delete(ctx, mid))
	got, err := groups.Get(ctx, gb)
	require.NoError(t, err)
	assert.Empty(t, got.(*types.Group).MemberIDs)

	all, err := edges.Fetch(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMembersTable_Fetch(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	members := mustTable(t, b, types.MembersTable)
	groups := mustTable(t, b, types.GroupsTable)

	var ids []string
	for _, name := range []string{"a", "b", "c"} {
		id, err := members.Set(ctx, "", newMember(name))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	g := newGroup("g")
	g.MemberIDs = []string{ids[2], ids[0]}
	gid, err := groups.Set(ctx, "", g)
	require.NoError(t, err)

	tests := []struct {
		name    string
		filter  types.Filter
		want    []string
		wantErr error
	}{
		{name: "nil filter returns all", filter: nil, want: ids},
		{name: "ids returns only existing", filter: types.Filter{types.FilterIDs: []string{ids[1], "nope"}}, want: []string{ids[1]}},
		{name: "empty ids returns nothing", filter: types.Filter{types.FilterIDs: []string{}}, want: []string{}},
		{name: "group roster in edge order", filter: types.Filter{types.FilterGroupID: gid}, want: []string{ids[2], ids[0]}},
		{name: "unknown group has empty roster", filter: types.Filter{types.FilterGroupID: "nope"}, want: []string{}},
		{name: "ids of wrong type", filter: types.Filter{types.FilterIDs: "x"}, wantErr: types.ErrInvalidFilter},
		{name: "group_id of wrong type", filter: types.Filter{types.FilterGroupID: 7}, wantErr: types.ErrInvalidFilter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := members.Fetch(ctx, tt.filter)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			got := []string{}
			for _, r := range results {
				got = append(got, r.(*types.Member).MemberID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGroupsTable_FetchByMember(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	members := mustTable(t, b, types.MembersTable)
	groups := mustTable(t, b, types.GroupsTable)

	mid, err := members.Set(ctx, "", newMember("frank"))
	require.NoError(t, err)
	_, err = groups.Set(ctx, "", newGroup("unrelated"))
	require.NoError(t, err)
	g := newGroup("mine")
	g.MemberIDs = []string{mid}
	gid, err := groups.Set(ctx, "", g)
	require.NoError(t, err)

	results, err := groups.Fetch(ctx, types.Filter{types.FilterMemberID: mid})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, gid, results[0].(*types.Group).GroupID)
	assert.Equal(t, []string{mid}, results[0].(*types.Group).MemberIDs)
}

func TestMembershipsTable(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	members := mustTable(t, b, types.MembersTable)
	groups := mustTable(t, b, types.GroupsTable)
	edges := mustTable(t, b, types.MembershipsTable)

	mid, err := members.Set(ctx, "", newMember("gina"))
	require.NoError(t, err)
	gid, err := groups.Set(ctx, "", newGroup("g"))
	require.NoError(t, err)

	first := &types.Membership{MemberID: mid, GroupID: gid}
	eid, err := edges.Set(ctx, "", first)
	require.NoError(t, err)
	assert.Equal(t, eid, first.MembershipID)

	again, err := edges.Set(ctx, "", &types.Membership{MemberID: mid, GroupID: gid})
	require.NoError(t, err)
	assert.Equal(t, eid, again, "the pair is a set element")

	all, err := edges.Fetch(ctx, types.Filter{types.FilterMemberID: mid})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	got, err := edges.Get(ctx, eid)
	require.NoError(t, err)
	assert.Equal(t, gid, got.(*types.Membership).GroupID)

	_, err = edges.Set(ctx, "", &types.Membership{MemberID: "ghost", GroupID: gid})
	assert.ErrorIs(t, err, types.ErrDanglingReference)
	_, err = edges.Set(ctx, "", &types.Membership{MemberID: mid, GroupID: "ghost"})
	assert.ErrorIs(t, err, types.ErrDanglingReference)

	g, err := groups.Get(ctx, gid)
	require.NoError(t, err)
	assert.Equal(t, []string{mid}, g.(*types.Group).MemberIDs)

	require.NoError(t, edges.Delete(ctx, eid))
	assert.ErrorIs(t, edges.Delete(ctx, eid), types.ErrNotFound)
	m, err := members.Get(ctx, mid)
	require.NoError(t, err)
	assert.Empty(t, m.(*types.Member).GroupIDs)
}
