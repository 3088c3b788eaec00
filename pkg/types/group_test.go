package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroupAddRemoveMember(t *testing.T) {
	g := &Group{GroupID: "g1"}

	assert.True(t, g.AddMember("m1"))
	assert.True(t, g.AddMember("m2"))
	assert.False(t, g.AddMember("m1"), "adding an existing member is a no-op")
	assert.Equal(t, []string{"m1", "m2"}, g.MemberIDs)

	assert.True(t, g.RemoveMember("m1"))
	assert.False(t, g.HasMember("m1"))
	assert.False(t, g.RemoveMember("absent"))
	assert.Equal(t, []string{"m2"}, g.MemberIDs)
}

func TestGroupSetMembers(t *testing.T) {
	g := &Group{GroupID: "g1", MemberIDs: []string{"old"}}

	g.SetMembers([]string{"m2", "m1", "m2"})
	assert.Equal(t, []string{"m2", "m1"}, g.MemberIDs)

	g.SetMembers(nil)
	assert.NotNil(t, g.MemberIDs)
	assert.Empty(t, g.MemberIDs)
}

func TestUniqueIDs(t *testing.T) {
	assert.Equal(t, []string{}, UniqueIDs(nil))
	assert.Equal(t, []string{"a", "b", "c"}, UniqueIDs([]string{"a", "b", "a", "c", "b"}))
}
