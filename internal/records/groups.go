package records

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/mesh-intelligence/roster/pkg/types"
)

// GroupService manages group attributes.
type GroupService struct {
	store    types.Store
	validate *validator.Validate
}

// NewGroupService returns a GroupService over store. A nil v uses
// NewValidator.
func NewGroupService(store types.Store, v *validator.Validate) *GroupService {
	if v == nil {
		v = NewValidator()
	}
	return &GroupService{store: store, validate: v}
}

func (s *GroupService) List(ctx context.Context) ([]*types.Group, error) {
	table, err := s.store.GetTable(types.GroupsTable)
	if err != nil {
		return nil, err
	}
	results, err := table.Fetch(ctx, nil)
	if err != nil {
		return nil, err
	}
	groups := make([]*types.Group, 0, len(results))
	for _, r := range results {
		groups = append(groups, r.(*types.Group))
	}
	return groups, nil
}

func (s *GroupService) Get(ctx context.Context, id string) (*types.Group, error) {
	table, err := s.store.GetTable(types.GroupsTable)
	if err != nil {
		return nil, err
	}
	entity, err := table.Get(ctx, id)
	if err != nil {
		if isMissing(err) {
			return nil, types.ErrGroupNotFound
		}
		return nil, err
	}
	return entity.(*types.Group), nil
}

// Create validates and stores a new group with an empty roster.
func (s *GroupService) Create(ctx context.Context, g *types.Group) (*types.Group, error) {
	if g == nil {
		return nil, types.NewInvalidInput("group is required")
	}
	if err := validateStruct(s.validate, g); err != nil {
		return nil, err
	}
	table, err := s.store.GetTable(types.GroupsTable)
	if err != nil {
		return nil, err
	}

	created := &types.Group{
		Name:        g.Name,
		FoundedOn:   g.FoundedOn,
		ImageURL:    g.ImageURL,
		Description: g.Description,
	}
	if _, err := table.Set(ctx, "", created); err != nil {
		return nil, err
	}
	return created, nil
}

// Update replaces the scalar fields of group id; the roster is kept.
func (s *GroupService) Update(ctx context.Context, id string, g *types.Group) (*types.Group, error) {
	if g == nil {
		return nil, types.NewInvalidInput("group is required")
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateStruct(s.validate, g); err != nil {
		return nil, err
	}
	table, err := s.store.GetTable(types.GroupsTable)
	if err != nil {
		return nil, err
	}

	existing.Name = g.Name
	existing.FoundedOn = g.FoundedOn
	existing.ImageURL = g.ImageURL
	existing.Description = g.Description
	// nil leaves the edges to the membership manager.
	existing.MemberIDs = nil
	if _, err := table.Set(ctx, id, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// Delete removes the group and its memberships.
func (s *GroupService) Delete(ctx context.Context, id string) error {
	table, err := s.store.GetTable(types.GroupsTable)
	if err != nil {
		return err
	}
	if err := table.Delete(ctx, id); err != nil {
		if isMissing(err) {
			return types.ErrGroupNotFound
		}
		return err
	}
	return nil
}
