package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusinessErrorIs(t *testing.T) {
	wrapped := fmt.Errorf("adding membership: %w", ErrGroupNotFound)
	assert.ErrorIs(t, wrapped, ErrGroupNotFound)
	assert.NotErrorIs(t, wrapped, ErrMemberNotFound)

	withCause := ErrMemberNotFound.WithCause(ErrNotFound)
	assert.ErrorIs(t, withCause, ErrMemberNotFound)
	assert.ErrorIs(t, withCause, ErrNotFound)
	assert.Equal(t, ErrMemberNotFound.Message, withCause.Error())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "member not found", err: ErrMemberNotFound, want: KindMemberNotFound},
		{name: "group not found", err: ErrGroupNotFound, want: KindGroupNotFound},
		{name: "membership not found", err: ErrMembershipNotFound, want: KindMembershipNotFound},
		{name: "unresolved members", err: ErrUnresolvedMembers, want: KindUnresolvedMembers},
		{name: "invalid input", err: NewInvalidInput("email is required"), want: KindInvalidInput},
		{name: "wrapped", err: fmt.Errorf("op: %w", ErrUnresolvedMembers), want: KindUnresolvedMembers},
		{name: "store fault", err: errors.New("disk full"), want: KindNone},
		{name: "nil", err: nil, want: KindNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}
