package calendar

import (
	"fmt"
	"time"

	"github.com/samber/mo"

	"github.com/atelierops/calcore/storage"
)

// ProjectDeadlines maps task records 1:1 onto synthetic, read-only deadline
// entries. Window and status filtering is the task store's job; keeping the
// projection free of policy makes it trivially testable.
//
// Deadlines are all-day, never recurring, and carry one synthetic accepted
// attendee per assignee (a deadline is not something you RSVP to).
func ProjectDeadlines(tasks []*storage.Task) []Entry {
	entries := make([]Entry, 0, len(tasks))
	for _, task := range tasks {
		entries = append(entries, deadlineEntry(task))
	}
	return entries
}

func deadlineEntry(task *storage.Task) Entry {
	attendees := make([]storage.Attendee, 0, len(task.Assignees))
	for i, userID := range task.Assignees {
		attendees = append(attendees, storage.Attendee{
			ID:     fmt.Sprintf("task-attendee-%s-%d", task.ID, i),
			UserID: userID,
			Status: storage.AttendeeAccepted,
		})
	}

	return Entry{
		ID:           "task-" + task.ID,
		Kind:         KindDeadline,
		Title:        task.Title,
		Type:         storage.EventTypeDeadline,
		StartTime:    task.Deadline,
		EndTime:      mo.None[time.Time](),
		IsAllDay:     true,
		SourceTaskID: task.ID,
		ProjectID:    task.ProjectID,
		Attendees:    attendees,
	}
}
