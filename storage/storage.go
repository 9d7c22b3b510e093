// Package storage defines the calendar domain records and the persistence
// interfaces the query engine consumes. Implementations live in the
// memory and sqlite subpackages.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/mo"
)

// Error types
type ErrorType string

const (
	ErrNotFound      ErrorType = "not_found"
	ErrAlreadyExists ErrorType = "already_exists"
	ErrInvalidInput  ErrorType = "invalid_input"
	ErrUnavailable   ErrorType = "unavailable"
)

// Error represents a storage-related error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// EventType categorizes persisted events for filtering.
type EventType string

const (
	EventTypeMeeting EventType = "meeting"
	EventTypeReview  EventType = "review"
	EventTypeShoot   EventType = "shoot"
	EventTypeOther   EventType = "other"

	// EventTypeDeadline is never persisted; it marks entries projected
	// from task deadlines.
	EventTypeDeadline EventType = "deadline"
)

// AttendeeStatus is an attendee's RSVP state.
type AttendeeStatus string

const (
	AttendeePending  AttendeeStatus = "pending"
	AttendeeAccepted AttendeeStatus = "accepted"
	AttendeeDeclined AttendeeStatus = "declined"
)

// Attendee links a user to an event. ID is empty for persisted attendee
// rows keyed by (event, user); synthetic entries derived from tasks carry a
// generated ID instead.
type Attendee struct {
	ID     string         `json:"id,omitempty"`
	UserID string         `json:"userId"`
	Status AttendeeStatus `json:"status"`
}

// Event is a persisted calendar event. StartTime is the anchor instant for
// recurring events; Recurrence holds the serialized rule text validated on
// the write path.
type Event struct {
	ID          string
	Title       string
	Description string
	Type        EventType
	StartTime   time.Time
	EndTime     mo.Option[time.Time]
	IsAllDay    bool
	Recurrence  mo.Option[string]
	ProjectID   mo.Option[string]
	CreatedBy   string
	Attendees   []Attendee
	Created     time.Time
	Modified    time.Time
}

// Duration returns end minus start, or zero when the event has no end time.
func (e *Event) Duration() time.Duration {
	end, ok := e.EndTime.Get()
	if !ok {
		return 0
	}
	return end.Sub(e.StartTime)
}

// HasAttendee reports whether the given user is on the event.
func (e *Event) HasAttendee(userID string) bool {
	for _, a := range e.Attendees {
		if a.UserID == userID {
			return true
		}
	}
	return false
}

// TaskStatus is owned by the task subsystem; the engine only cares whether
// a status is terminal.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusInReview   TaskStatus = "in_review"
	TaskStatusDone       TaskStatus = "done"
)

// Task is the slice of a task record the calendar cares about.
type Task struct {
	ID        string
	Title     string
	Status    TaskStatus
	Deadline  time.Time
	ProjectID mo.Option[string]
	Assignees []string
}

// EventFilter narrows a calendar query. Zero-value fields mean "no
// constraint".
type EventFilter struct {
	Type      EventType
	ProjectID string
	Search    string
}

// EventStore is the event persistence interface consumed by the query
// engine and the write path.
type EventStore interface {
	// FindEvents returns candidate events for a window using a deliberately
	// conservative predicate: an event matches if its own interval overlaps
	// [windowStart, windowEnd], or if it is recurring and anchored at or
	// before windowEnd. Expansion does the precise filtering afterwards.
	// Results are ordered by (start time, id) ascending.
	FindEvents(ctx context.Context, windowStart, windowEnd time.Time, filter EventFilter) ([]*Event, error)
	GetEvent(ctx context.Context, id string) (*Event, error)
	CreateEvent(ctx context.Context, event *Event) error
	UpdateEvent(ctx context.Context, event *Event) error
	DeleteEvent(ctx context.Context, id string) error
}

// TaskStore exposes the single task lookup the deadline projection needs.
type TaskStore interface {
	// FindTasksWithDeadlineInWindow returns tasks whose deadline lies in
	// [windowStart, windowEnd], ordered by (deadline, id) ascending.
	// When excludeDone is set, tasks in a terminal status are omitted.
	FindTasksWithDeadlineInWindow(ctx context.Context, windowStart, windowEnd time.Time, excludeDone bool) ([]*Task, error)
}

// MembershipStore answers project-team membership questions for the
// visibility policy.
type MembershipStore interface {
	IsProjectMember(ctx context.Context, userID, projectID string) (bool, error)
}
