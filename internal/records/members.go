package records

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/mesh-intelligence/roster/pkg/types"
)

// MemberService manages member attributes.
type MemberService struct {
	store    types.Store
	validate *validator.Validate
}

// NewMemberService returns a MemberService over store. A nil v uses
// NewValidator.
func NewMemberService(store types.Store, v *validator.Validate) *MemberService {
	if v == nil {
		v = NewValidator()
	}
	return &MemberService{store: store, validate: v}
}

// List returns every member, oldest first.
func (s *MemberService) List(ctx context.Context) ([]*types.Member, error) {
	table, err := s.store.GetTable(types.MembersTable)
	if err != nil {
		return nil, err
	}
	results, err := table.Fetch(ctx, nil)
	if err != nil {
		return nil, err
	}
	members := make([]*types.Member, 0, len(results))
	for _, r := range results {
		members = append(members, r.(*types.Member))
	}
	return members, nil
}

// Get returns the member with id or ErrMemberNotFound.
func (s *MemberService) Get(ctx context.Context, id string) (*types.Member, error) {
	table, err := s.store.GetTable(types.MembersTable)
	if err != nil {
		return nil, err
	}
	entity, err := table.Get(ctx, id)
	if err != nil {
		if isMissing(err) {
			return nil, types.ErrMemberNotFound
		}
		return nil, err
	}
	return entity.(*types.Member), nil
}

// Create validates and stores a new member. Any id or group ids on the input
// are ignored; memberships are created through the membership manager.
func (s *MemberService) Create(ctx context.Context, m *types.Member) (*types.Member, error) {
	if m == nil {
		return nil, types.NewInvalidInput("member is required")
	}
	if err := validateStruct(s.validate, m); err != nil {
		return nil, err
	}
	table, err := s.store.GetTable(types.MembersTable)
	if err != nil {
		return nil, err
	}

	created := &types.Member{
		Username:  m.Username,
		Email:     m.Email,
		BirthDate: m.BirthDate.UTC(),
	}
	if _, err := table.Set(ctx, "", created); err != nil {
		return nil, err
	}
	return created, nil
}

// Update replaces the scalar fields of member id with those of m. The
// member's group set is left as stored.
func (s *MemberService) Update(ctx context.Context, id string, m *types.Member) (*types.Member, error) {
	if m == nil {
		return nil, types.NewInvalidInput("member is required")
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateStruct(s.validate, m); err != nil {
		return nil, err
	}
	table, err := s.store.GetTable(types.MembersTable)
	if err != nil {
		return nil, err
	}

	existing.Username = m.Username
	existing.Email = m.Email
	existing.BirthDate = m.BirthDate.UTC()
	existing.GroupIDs = nil
	if _, err := table.Set(ctx, id, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// Delete removes the member and its memberships.
func (s *MemberService) Delete(ctx context.Context, id string) error {
	table, err := s.store.GetTable(types.MembersTable)
	if err != nil {
		return err
	}
	if err := table.Delete(ctx, id); err != nil {
		if isMissing(err) {
			return types.ErrMemberNotFound
		}
		return err
	}
	return nil
}
