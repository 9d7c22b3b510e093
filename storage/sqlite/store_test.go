package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierops/calcore/storage"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEventRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	start := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
	ev := &storage.Event{
		ID:          "e1",
		Title:       "Kickoff",
		Description: "Project kickoff",
		Type:        storage.EventTypeMeeting,
		StartTime:   start,
		EndTime:     mo.Some(start.Add(time.Hour)),
		IsAllDay:    false,
		Recurrence:  mo.Some("FREQ=WEEKLY;COUNT=4"),
		ProjectID:   mo.Some("p1"),
		CreatedBy:   "alice",
		Attendees: []storage.Attendee{
			{UserID: "bob", Status: storage.AttendeePending},
			{UserID: "carol", Status: storage.AttendeeAccepted},
		},
		Created:  start,
		Modified: start,
	}
	require.NoError(t, s.CreateEvent(ctx, ev))

	got, err := s.GetEvent(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Kickoff", got.Title)
	assert.Equal(t, storage.EventTypeMeeting, got.Type)
	assert.True(t, got.StartTime.Equal(start))
	end, ok := got.EndTime.Get()
	require.True(t, ok)
	assert.True(t, end.Equal(start.Add(time.Hour)))
	assert.Equal(t, "FREQ=WEEKLY;COUNT=4", got.Recurrence.OrElse(""))
	assert.Equal(t, "p1", got.ProjectID.OrElse(""))
	require.Len(t, got.Attendees, 2)
	assert.Equal(t, "bob", got.Attendees[0].UserID)

	got.Title = "Kickoff v2"
	got.EndTime = mo.None[time.Time]()
	got.Attendees = got.Attendees[:1]
	require.NoError(t, s.UpdateEvent(ctx, got))

	got, err = s.GetEvent(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Kickoff v2", got.Title)
	assert.True(t, got.EndTime.IsAbsent())
	assert.Len(t, got.Attendees, 1)

	require.NoError(t, s.DeleteEvent(ctx, "e1"))
	_, err = s.GetEvent(ctx, "e1")
	var serr *storage.Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, storage.ErrNotFound, serr.Type)
}

func TestFindEvents_ConservativePredicate(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	winStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	winEnd := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	mustCreate := func(ev *storage.Event) {
		ev.CreatedBy = "a"
		ev.Created = winStart
		ev.Modified = winStart
		require.NoError(t, s.CreateEvent(ctx, ev))
	}

	mustCreate(&storage.Event{ID: "inside", Title: "x", StartTime: winStart.AddDate(0, 0, 5)})
	mustCreate(&storage.Event{
		ID: "spans", Title: "x",
		StartTime: winStart.AddDate(0, 0, -1),
		EndTime:   mo.Some(winStart.AddDate(0, 0, 2)),
	})
	mustCreate(&storage.Event{
		ID: "recurring-old", Title: "x",
		StartTime:  winStart.AddDate(-1, 0, 0),
		Recurrence: mo.Some("FREQ=WEEKLY"),
	})
	mustCreate(&storage.Event{ID: "before", Title: "x", StartTime: winStart.AddDate(0, 0, -10)})

	events, err := s.FindEvents(ctx, winStart, winEnd, storage.EventFilter{})
	require.NoError(t, err)

	var ids []string
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}
	assert.Equal(t, []string{"recurring-old", "spans", "inside"}, ids)
}

func TestFindEvents_Filters(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	at := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	for _, ev := range []*storage.Event{
		{ID: "m1", Title: "Client briefing", Type: storage.EventTypeMeeting, ProjectID: mo.Some("p1"), StartTime: at},
		{ID: "s1", Title: "Studio shoot", Type: storage.EventTypeShoot, ProjectID: mo.Some("p2"), StartTime: at},
	} {
		ev.CreatedBy = "a"
		ev.Created = at
		ev.Modified = at
		require.NoError(t, s.CreateEvent(ctx, ev))
	}

	events, err := s.FindEvents(ctx, at.AddDate(0, 0, -1), at.AddDate(0, 0, 1),
		storage.EventFilter{Type: storage.EventTypeShoot})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "s1", events[0].ID)

	events, err = s.FindEvents(ctx, at.AddDate(0, 0, -1), at.AddDate(0, 0, 1),
		storage.EventFilter{Search: "briefing"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "m1", events[0].ID)
}

func TestTasksAndMembership(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	winStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	winEnd := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.PutTask(ctx, &storage.Task{
		ID: "t1", Title: "Open", Status: storage.TaskStatusTodo,
		Deadline: winStart.AddDate(0, 0, 10), Assignees: []string{"alice", "bob"},
	}))
	require.NoError(t, s.PutTask(ctx, &storage.Task{
		ID: "t2", Title: "Done", Status: storage.TaskStatusDone,
		Deadline: winStart.AddDate(0, 0, 11),
	}))

	tasks, err := s.FindTasksWithDeadlineInWindow(ctx, winStart, winEnd, true)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, []string{"alice", "bob"}, tasks[0].Assignees)

	tasks, err = s.FindTasksWithDeadlineInWindow(ctx, winStart, winEnd, false)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	require.NoError(t, s.AddProjectMember(ctx, "p1", "alice"))
	ok, err := s.IsProjectMember(ctx, "alice", "p1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.IsProjectMember(ctx, "bob", "p1")
	require.NoError(t, err)
	assert.False(t, ok)
}
