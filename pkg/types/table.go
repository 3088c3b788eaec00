package types

import (
	"context"
	"errors"
)

// Filter selects entities in Table.Fetch. Keys are table specific; an empty
// or nil filter matches every entity.
type Filter map[string]any

// Filter keys understood by the standard tables.
const (
	FilterIDs      = "ids"       // []string: members, groups
	FilterGroupID  = "group_id"  // string: members (roster), memberships
	FilterMemberID = "member_id" // string: groups, memberships
)

// Table provides uniform CRUD operations for a single entity type.
// Get and Fetch return any; callers type-assert to the concrete entity struct.
type Table interface {
	// Get retrieves the entity with the given ID, with its relation ids
	// hydrated. Returns ErrNotFound if no entity exists with that ID.
	Get(ctx context.Context, id string) (any, error)

	// Set creates or updates an entity together with its relation ids in a
	// single transaction. When id is empty a new UUID v7 is generated.
	// Returns the actual ID used (generated or provided).
	Set(ctx context.Context, id string, data any) (string, error)

	// Delete removes the entity with the given ID and every membership
	// edge that references it. Returns ErrNotFound if no entity exists.
	Delete(ctx context.Context, id string) error

	// Fetch returns all entities matching the filter. Entities that do not
	// exist are simply absent from the result.
	Fetch(ctx context.Context, filter Filter) ([]any, error)
}

// Table operation errors.
var (
	ErrNotFound          = errors.New("entity not found")
	ErrInvalidID         = errors.New("invalid entity ID")
	ErrInvalidData       = errors.New("invalid entity data")
	ErrInvalidFilter     = errors.New("invalid filter value type")
	ErrDanglingReference = errors.New("referenced entity does not exist")
)
