package calendar

import (
	"context"

	"github.com/atelierops/calcore/storage"
)

// Actor is the identity a query runs as. Authentication happens upstream;
// the engine only consumes the resolved identity.
type Actor struct {
	ID    string
	Admin bool
}

// AccessPolicy decides whether an actor may see a candidate event. The
// engine asks once per candidate, before any expansion work is spent on it,
// and trusts the answer.
type AccessPolicy interface {
	IsVisible(ctx context.Context, event *storage.Event, actor Actor) (bool, error)
}

// TeamAccessPolicy is the standard visibility rule: admins see everything;
// everyone else sees events they created, attend, or share a project team
// with.
type TeamAccessPolicy struct {
	members storage.MembershipStore
}

func NewTeamAccessPolicy(members storage.MembershipStore) *TeamAccessPolicy {
	return &TeamAccessPolicy{members: members}
}

func (p *TeamAccessPolicy) IsVisible(ctx context.Context, event *storage.Event, actor Actor) (bool, error) {
	if actor.Admin {
		return true, nil
	}
	if event.CreatedBy == actor.ID || event.HasAttendee(actor.ID) {
		return true, nil
	}
	projectID, ok := event.ProjectID.Get()
	if !ok {
		return false, nil
	}
	return p.members.IsProjectMember(ctx, actor.ID, projectID)
}

// OpenAccessPolicy makes every event visible. Useful for single-team
// deployments and tests.
type OpenAccessPolicy struct{}

func (OpenAccessPolicy) IsVisible(context.Context, *storage.Event, Actor) (bool, error) {
	return true, nil
}
