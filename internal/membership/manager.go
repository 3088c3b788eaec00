// Package membership manages the Member↔Group relation on top of a
// types.Store. Every operation checks that the entities it names exist
// before it reads or changes relation state, and reports unmet
// preconditions as *types.BusinessError values. Store faults are returned
// unchanged.
package membership

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/roster/pkg/types"
)

// Operation names used in logs and metric labels.
const (
	OpAddMembership    = "add_membership"
	OpListMembers      = "list_members"
	OpGetMembership    = "get_membership"
	OpReplaceMembers   = "replace_members"
	OpRemoveMembership = "remove_membership"
)

// Manager enforces and mutates the membership relation. It holds no relation
// state of its own; every call reads the store.
type Manager struct {
	store   types.Store
	logger  *zap.Logger
	metrics *Metrics
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics sets the collectors the manager records into.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// NewManager returns a Manager over store. The store must be attached before
// any operation is called.
func NewManager(store types.Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddMembership puts the member into the group and returns the member with
// its updated group set. The member is checked before the group. Adding an
// existing membership changes nothing.
func (m *Manager) AddMembership(ctx context.Context, memberID, groupID string) (member *types.Member, err error) {
	defer m.finish(OpAddMembership, time.Now(), &err, zap.String("member_id", memberID), zap.String("group_id", groupID))

	member, err = m.getMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if _, err = m.getGroup(ctx, groupID); err != nil {
		return nil, err
	}
	if !member.JoinGroup(groupID) {
		return member, nil
	}

	edges, err := m.store.GetTable(types.MembershipsTable)
	if err != nil {
		return nil, err
	}
	_, err = edges.Set(ctx, "", &types.Membership{MemberID: memberID, GroupID: groupID})
	if err != nil {
		return nil, m.danglingAs(ctx, err, memberID, groupID)
	}
	return m.getMember(ctx, memberID)
}

// ListMembers returns the group's roster in the order members joined. An
// empty roster is an empty slice.
func (m *Manager) ListMembers(ctx context.Context, groupID string) (roster []*types.Member, err error) {
	defer m.finish(OpListMembers, time.Now(), &err, zap.String("group_id", groupID))

	if _, err = m.getGroup(ctx, groupID); err != nil {
		return nil, err
	}
	members, err := m.store.GetTable(types.MembersTable)
	if err != nil {
		return nil, err
	}
	results, err := members.Fetch(ctx, types.Filter{types.FilterGroupID: groupID})
	if err != nil {
		return nil, err
	}

	roster = make([]*types.Member, 0, len(results))
	for _, r := range results {
		roster = append(roster, r.(*types.Member))
	}
	return roster, nil
}

// GetMembership returns the member if it belongs to the group. Checks run in
// order: member exists, group exists, member is on the roster.
func (m *Manager) GetMembership(ctx context.Context, memberID, groupID string) (member *types.Member, err error) {
	defer m.finish(OpGetMembership, time.Now(), &err, zap.String("member_id", memberID), zap.String("group_id", groupID))

	member, err = m.getMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	group, err := m.getGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(memberID) {
		return nil, types.ErrMembershipNotFound
	}
	return member, nil
}

// ReplaceMembers sets the group's roster to exactly memberIDs. All ids are
// resolved in one lookup; if fewer members resolve than ids were given,
// nothing is written and ErrUnresolvedMembers is returned. A repeated id
// resolves once, so it fails the call too.
func (m *Manager) ReplaceMembers(ctx context.Context, groupID string, memberIDs []string) (group *types.Group, err error) {
	defer m.finish(OpReplaceMembers, time.Now(), &err, zap.String("group_id", groupID), zap.Int("requested", len(memberIDs)))

	group, err = m.getGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	ids := types.UniqueIDs(memberIDs)
	members, err := m.store.GetTable(types.MembersTable)
	if err != nil {
		return nil, err
	}
	resolved, err := members.Fetch(ctx, types.Filter{types.FilterIDs: ids})
	if err != nil {
		return nil, err
	}
	if len(resolved) < len(memberIDs) {
		return nil, types.ErrUnresolvedMembers
	}

	groups, err := m.store.GetTable(types.GroupsTable)
	if err != nil {
		return nil, err
	}
	group.SetMembers(ids)
	if _, err = groups.Set(ctx, groupID, group); err != nil {
		// A member deleted between the lookup and the save.
		if errors.Is(err, types.ErrDanglingReference) {
			return nil, types.ErrUnresolvedMembers.WithCause(err)
		}
		return nil, err
	}
	return group, nil
}

// RemoveMembership takes the member out of the group. Both entities must
// exist; removing a member that is not in the group succeeds and changes
// nothing. The single edge is deleted, so the member's group set and the
// group's roster change together.
func (m *Manager) RemoveMembership(ctx context.Context, memberID, groupID string) (err error) {
	defer m.finish(OpRemoveMembership, time.Now(), &err, zap.String("member_id", memberID), zap.String("group_id", groupID))

	if _, err = m.getMember(ctx, memberID); err != nil {
		return err
	}
	if _, err = m.getGroup(ctx, groupID); err != nil {
		return err
	}

	edges, err := m.store.GetTable(types.MembershipsTable)
	if err != nil {
		return err
	}
	found, err := edges.Fetch(ctx, types.Filter{
		types.FilterMemberID: memberID,
		types.FilterGroupID:  groupID,
	})
	if err != nil {
		return err
	}
	for _, e := range found {
		err = edges.Delete(ctx, e.(*types.Membership).MembershipID)
		if err != nil && !errors.Is(err, types.ErrNotFound) {
			return err
		}
	}
	return nil
}

func (m *Manager) getMember(ctx context.Context, id string) (*types.Member, error) {
	members, err := m.store.GetTable(types.MembersTable)
	if err != nil {
		return nil, err
	}
	entity, err := members.Get(ctx, id)
	if err != nil {
		if isMissing(err) {
			return nil, types.ErrMemberNotFound
		}
		return nil, err
	}
	return entity.(*types.Member), nil
}

func (m *Manager) getGroup(ctx context.Context, id string) (*types.Group, error) {
	groups, err := m.store.GetTable(types.GroupsTable)
	if err != nil {
		return nil, err
	}
	entity, err := groups.Get(ctx, id)
	if err != nil {
		if isMissing(err) {
			return nil, types.ErrGroupNotFound
		}
		return nil, err
	}
	return entity.(*types.Group), nil
}

// danglingAs maps a dangling-reference failure from an edge write to the
// endpoint that disappeared after it was checked.
func (m *Manager) danglingAs(ctx context.Context, err error, memberID, groupID string) error {
	if !errors.Is(err, types.ErrDanglingReference) {
		return err
	}
	if _, merr := m.getMember(ctx, memberID); errors.Is(merr, types.ErrMemberNotFound) {
		return types.ErrMemberNotFound.WithCause(err)
	}
	return types.ErrGroupNotFound.WithCause(err)
}

func isMissing(err error) bool {
	return errors.Is(err, types.ErrNotFound) || errors.Is(err, types.ErrInvalidID)
}

// finish logs and records the outcome of op. Business failures are expected
// and logged at info; anything else is a store fault.
func (m *Manager) finish(op string, start time.Time, errp *error, fields ...zap.Field) {
	err := *errp
	m.metrics.observe(op, start, err)

	fields = append(fields, zap.String("op", op), zap.Duration("duration", time.Since(start)))
	switch {
	case err == nil:
		m.logger.Debug("membership operation", fields...)
	case types.KindOf(err) != types.KindNone:
		m.logger.Info("membership operation rejected", append(fields, zap.String("kind", string(types.KindOf(err))))...)
	default:
		m.logger.Error("membership operation failed", append(fields, zap.Error(err))...)
	}
}
