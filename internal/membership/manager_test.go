package membership

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mesh-intelligence/roster/internal/records"
	"github.com/mesh-intelligence/roster/internal/sqlite"
	"github.com/mesh-intelligence/roster/internal/storetest"
	"github.com/mesh-intelligence/roster/pkg/types"
)

type fixture struct {
	store   types.Store
	manager *Manager
	members []string
	groups  []string
}

// newFixture seeds n members and n groups with no memberships.
func newFixture(t *testing.T, n int, opts ...Option) *fixture {
	t.Helper()
	store := sqlite.NewBackend()
	require.NoError(t, store.Attach(types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}))
	t.Cleanup(func() { store.Detach() })

	f := &fixture{store: store, manager: NewManager(store, opts...)}
	members, groups, _ := storetest.Tables(t, store)
	ctx := context.Background()
	for i := 0; i < n; i++ {
		mid, err := members.Set(ctx, "", storetest.NewMember(fmt.Sprintf("member%d", i)))
		require.NoError(t, err)
		gid, err := groups.Set(ctx, "", storetest.NewGroup(fmt.Sprintf("group%d", i)))
		require.NoError(t, err)
		f.members = append(f.members, mid)
		f.groups = append(f.groups, gid)
	}
	return f
}

func rosterIDs(roster []*types.Member) []string {
	ids := make([]string, len(roster))
	for i, m := range roster {
		ids[i] = m.MemberID
	}
	return ids
}

func TestManager_Scenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5)
	m0, g0 := f.members[0], f.groups[0]

	member, err := f.manager.AddMembership(ctx, m0, g0)
	require.NoError(t, err)
	assert.Equal(t, []string{g0}, member.GroupIDs)

	roster, err := f.manager.ListMembers(ctx, g0)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, m0, roster[0].MemberID)

	got, err := f.manager.GetMembership(ctx, m0, g0)
	require.NoError(t, err)
	assert.Equal(t, m0, got.MemberID)

	require.NoError(t, f.manager.RemoveMembership(ctx, m0, g0))

	roster, err = f.manager.ListMembers(ctx, g0)
	require.NoError(t, err)
	assert.Len(t, roster, 0)
}

func TestManager_AddMembership(t *testing.T) {
	ctx := context.Background()

	t.Run("member appears in roster", func(t *testing.T) {
		f := newFixture(t, 2)
		for _, mid := range f.members {
			_, err := f.manager.AddMembership(ctx, mid, f.groups[1])
			require.NoError(t, err)
		}
		roster, err := f.manager.ListMembers(ctx, f.groups[1])
		require.NoError(t, err)
		assert.Equal(t, f.members, rosterIDs(roster))
	})

	t.Run("adding twice keeps one edge", func(t *testing.T) {
		f := newFixture(t, 1)
		_, err := f.manager.AddMembership(ctx, f.members[0], f.groups[0])
		require.NoError(t, err)
		member, err := f.manager.AddMembership(ctx, f.members[0], f.groups[0])
		require.NoError(t, err)
		assert.Equal(t, []string{f.groups[0]}, member.GroupIDs)

		roster, err := f.manager.ListMembers(ctx, f.groups[0])
		require.NoError(t, err)
		assert.Len(t, roster, 1)
	})

	t.Run("member is checked before group", func(t *testing.T) {
		f := newFixture(t, 1)
		_, err := f.manager.AddMembership(ctx, "bogus-member", "bogus-group")
		assert.ErrorIs(t, err, types.ErrMemberNotFound)
		assert.Equal(t, types.KindMemberNotFound, types.KindOf(err))
	})

	t.Run("missing group", func(t *testing.T) {
		f := newFixture(t, 1)
		_, err := f.manager.AddMembership(ctx, f.members[0], "bogus-group")
		assert.ErrorIs(t, err, types.ErrGroupNotFound)
	})

	t.Run("empty ids are not found", func(t *testing.T) {
		f := newFixture(t, 1)
		_, err := f.manager.AddMembership(ctx, "", f.groups[0])
		assert.ErrorIs(t, err, types.ErrMemberNotFound)
		_, err = f.manager.AddMembership(ctx, f.members[0], "")
		assert.ErrorIs(t, err, types.ErrGroupNotFound)
	})
}

func TestManager_ListMembers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)

	roster, err := f.manager.ListMembers(ctx, f.groups[0])
	require.NoError(t, err)
	assert.NotNil(t, roster)
	assert.Empty(t, roster)

	_, err = f.manager.ListMembers(ctx, "bogus-group")
	assert.ErrorIs(t, err, types.ErrGroupNotFound)
}

func TestManager_GetMembership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	_, err := f.manager.AddMembership(ctx, f.members[0], f.groups[0])
	require.NoError(t, err)

	tests := []struct {
		name     string
		memberID string
		groupID  string
		wantErr  error
	}{
		{"related pair", f.members[0], f.groups[0], nil},
		{"never added", f.members[1], f.groups[0], types.ErrMembershipNotFound},
		{"member in another group", f.members[0], f.groups[1], types.ErrMembershipNotFound},
		{"missing member first", "bogus-member", "bogus-group", types.ErrMemberNotFound},
		{"missing group", f.members[0], "bogus-group", types.ErrGroupNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			member, err := f.manager.GetMembership(ctx, tt.memberID, tt.groupID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, member)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.memberID, member.MemberID)
		})
	}
}

func TestManager_ReplaceMembers(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces roster wholesale", func(t *testing.T) {
		f := newFixture(t, 3)
		g := f.groups[0]
		m1, m2, m3 := f.members[0], f.members[1], f.members[2]
		_, err := f.manager.AddMembership(ctx, m3, g)
		require.NoError(t, err)

		group, err := f.manager.ReplaceMembers(ctx, g, []string{m1, m2})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{m1, m2}, group.MemberIDs)

		group, err = f.manager.ReplaceMembers(ctx, g, []string{m1})
		require.NoError(t, err)
		assert.Equal(t, []string{m1}, group.MemberIDs)

		roster, err := f.manager.ListMembers(ctx, g)
		require.NoError(t, err)
		assert.Equal(t, []string{m1}, rosterIDs(roster))

		_, err = f.manager.GetMembership(ctx, m3, g)
		assert.ErrorIs(t, err, types.ErrMembershipNotFound, "removed members lose the edge on both sides")
	})

	t.Run("unresolved ids leave roster unchanged", func(t *testing.T) {
		f := newFixture(t, 2)
		g := f.groups[0]
		_, err := f.manager.AddMembership(ctx, f.members[1], g)
		require.NoError(t, err)

		_, err = f.manager.ReplaceMembers(ctx, g, []string{f.members[0], "bogus-id"})
		assert.ErrorIs(t, err, types.ErrUnresolvedMembers)

		roster, err := f.manager.ListMembers(ctx, g)
		require.NoError(t, err)
		assert.Equal(t, []string{f.members[1]}, rosterIDs(roster))
	})

	t.Run("repeated ids do not all resolve", func(t *testing.T) {
		f := newFixture(t, 2)
		g := f.groups[0]
		_, err := f.manager.AddMembership(ctx, f.members[1], g)
		require.NoError(t, err)

		_, err = f.manager.ReplaceMembers(ctx, g, []string{f.members[0], f.members[0]})
		assert.ErrorIs(t, err, types.ErrUnresolvedMembers)

		roster, err := f.manager.ListMembers(ctx, g)
		require.NoError(t, err)
		assert.Equal(t, []string{f.members[1]}, rosterIDs(roster))
	})

	t.Run("empty list clears roster", func(t *testing.T) {
		f := newFixture(t, 1)
		_, err := f.manager.AddMembership(ctx, f.members[0], f.groups[0])
		require.NoError(t, err)
		group, err := f.manager.ReplaceMembers(ctx, f.groups[0], nil)
		require.NoError(t, err)
		assert.Empty(t, group.MemberIDs)
	})

	t.Run("missing group", func(t *testing.T) {
		f := newFixture(t, 1)
		_, err := f.manager.ReplaceMembers(ctx, "bogus-group", []string{f.members[0]})
		assert.ErrorIs(t, err, types.ErrGroupNotFound)
	})
}

func TestManager_RemoveMembership(t *testing.T) {
	ctx := context.Background()

	t.Run("both projections change", func(t *testing.T) {
		f := newFixture(t, 1)
		m, g := f.members[0], f.groups[0]
		_, err := f.manager.AddMembership(ctx, m, g)
		require.NoError(t, err)

		require.NoError(t, f.manager.RemoveMembership(ctx, m, g))

		members, _, _ := storetest.Tables(t, f.store)
		got, err := members.Get(ctx, m)
		require.NoError(t, err)
		assert.Empty(t, got.(*types.Member).GroupIDs)
	})

	t.Run("non member is a no-op", func(t *testing.T) {
		f := newFixture(t, 1)
		assert.NoError(t, f.manager.RemoveMembership(ctx, f.members[0], f.groups[0]))
	})

	t.Run("missing member then group", func(t *testing.T) {
		f := newFixture(t, 1)
		assert.ErrorIs(t, f.manager.RemoveMembership(ctx, "bogus", "bogus"), types.ErrMemberNotFound)
		assert.ErrorIs(t, f.manager.RemoveMembership(ctx, f.members[0], "bogus"), types.ErrGroupNotFound)
	})
}

func TestManager_StoreFaultsPropagate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)
	require.NoError(t, f.store.Detach())

	_, err := f.manager.ListMembers(ctx, f.groups[0])
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	assert.Equal(t, types.KindNone, types.KindOf(err))
}

func TestManager_Concurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5)
	g := f.groups[0]

	errs := make(chan error, len(f.members))
	for _, mid := range f.members {
		go func(mid string) {
			_, err := f.manager.AddMembership(ctx, mid, g)
			errs <- err
		}(mid)
	}
	for range f.members {
		require.NoError(t, <-errs)
	}

	roster, err := f.manager.ListMembers(ctx, g)
	require.NoError(t, err)
	assert.ElementsMatch(t, f.members, rosterIDs(roster), "concurrent adds lose no edge")
}

func TestManager_ConcurrentRecordUpdates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 20)
	g := f.groups[0]
	groupSvc := records.NewGroupService(f.store, nil)
	memberSvc := records.NewMemberService(f.store, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 3*len(f.members))
	for i, mid := range f.members {
		wg.Add(3)
		go func(mid string) {
			defer wg.Done()
			_, err := f.manager.AddMembership(ctx, mid, g)
			errs <- err
		}(mid)
		go func(i int) {
			defer wg.Done()
			_, err := groupSvc.Update(ctx, g, &types.Group{
				Name:      fmt.Sprintf("renamed%d", i),
				FoundedOn: "1999",
				ImageURL:  "https://example.com/g.png",
			})
			errs <- err
		}(i)
		go func(mid string) {
			defer wg.Done()
			m := storetest.NewMember("renamed")
			_, err := memberSvc.Update(ctx, mid, m)
			errs <- err
		}(mid)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	roster, err := f.manager.ListMembers(ctx, g)
	require.NoError(t, err)
	assert.ElementsMatch(t, f.members, rosterIDs(roster), "scalar updates keep every edge")

	for _, mid := range f.members {
		got, err := memberSvc.Get(ctx, mid)
		require.NoError(t, err)
		assert.Equal(t, []string{g}, got.GroupIDs)
	}
}

func TestManager_MetricsAndLogging(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	core, logs := observer.New(zapcore.DebugLevel)

	f := newFixture(t, 1, WithMetrics(metrics), WithLogger(zap.New(core)))

	_, err := f.manager.AddMembership(ctx, f.members[0], f.groups[0])
	require.NoError(t, err)
	_, err = f.manager.GetMembership(ctx, "bogus", f.groups[0])
	require.True(t, errors.Is(err, types.ErrMemberNotFound))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues(OpAddMembership, outcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues(OpGetMembership, string(types.KindMemberNotFound))))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.duration))

	assert.Equal(t, 1, logs.FilterMessage("membership operation").Len())
	rejected := logs.FilterMessage("membership operation rejected").All()
	require.Len(t, rejected, 1)
	assert.Equal(t, string(types.KindMemberNotFound), rejected[0].ContextMap()["kind"])
}
