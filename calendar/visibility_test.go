package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierops/calcore/storage"
	"github.com/atelierops/calcore/storage/memory"
)

func TestTeamAccessPolicy(t *testing.T) {
	store := memory.New()
	store.SetProjectMembers("p1", "member")

	event := &storage.Event{
		ID:        "ev",
		CreatedBy: "creator",
		StartTime: time.Now(),
		ProjectID: mo.Some("p1"),
		Attendees: []storage.Attendee{{UserID: "guest", Status: storage.AttendeePending}},
	}
	policy := NewTeamAccessPolicy(store)

	tests := []struct {
		name  string
		actor Actor
		want  bool
	}{
		{"admin bypass", Actor{ID: "anyone", Admin: true}, true},
		{"creator", Actor{ID: "creator"}, true},
		{"attendee", Actor{ID: "guest"}, true},
		{"project team member", Actor{ID: "member"}, true},
		{"stranger", Actor{ID: "stranger"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := policy.IsVisible(context.Background(), event, tt.actor)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTeamAccessPolicy_NoProject(t *testing.T) {
	policy := NewTeamAccessPolicy(memory.New())
	event := &storage.Event{ID: "ev", CreatedBy: "creator", StartTime: time.Now()}

	got, err := policy.IsVisible(context.Background(), event, Actor{ID: "stranger"})
	require.NoError(t, err)
	assert.False(t, got)
}
