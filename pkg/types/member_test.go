package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemberJoinGroup(t *testing.T) {
	tests := []struct {
		name        string
		initial     []string
		groupID     string
		wantChanged bool
		want        []string
	}{
		{
			name:        "join first group",
			initial:     nil,
			groupID:     "g1",
			wantChanged: true,
			want:        []string{"g1"},
		},
		{
			name:        "join appends in order",
			initial:     []string{"g1"},
			groupID:     "g2",
			wantChanged: true,
			want:        []string{"g1", "g2"},
		},
		{
			name:        "join existing group is a no-op",
			initial:     []string{"g1", "g2"},
			groupID:     "g1",
			wantChanged: false,
			want:        []string{"g1", "g2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Member{MemberID: "m1", GroupIDs: tt.initial}
			changed := m.JoinGroup(tt.groupID)
			assert.Equal(t, tt.wantChanged, changed)
			assert.Equal(t, tt.want, m.GroupIDs)
			assert.True(t, m.InGroup(tt.groupID))
		})
	}
}

func TestMemberLeaveGroup(t *testing.T) {
	m := &Member{MemberID: "m1", GroupIDs: []string{"g1", "g2", "g3"}}

	assert.True(t, m.LeaveGroup("g2"))
	assert.Equal(t, []string{"g1", "g3"}, m.GroupIDs)
	assert.False(t, m.InGroup("g2"))

	assert.False(t, m.LeaveGroup("g2"), "leaving twice reports no change")
	assert.Equal(t, []string{"g1", "g3"}, m.GroupIDs)
}
