// Package calendar implements the query engine behind the event list: it
// fetches candidate events and task deadlines, expands recurring events
// into occurrences, and merges everything into one paginated, chronological
// result set.
package calendar

import (
	"time"

	"github.com/samber/mo"

	"github.com/atelierops/calcore/storage"
)

// EntryKind tags the three sources an entry can come from.
type EntryKind string

const (
	KindEvent      EntryKind = "event"
	KindOccurrence EntryKind = "occurrence"
	KindDeadline   EntryKind = "deadline"
)

// Entry is the unified output item of a calendar query. Plain events,
// computed occurrences of recurring events, and task-deadline projections
// all resolve to the same start/end/all-day fields used for sorting and
// rendering.
//
// Occurrences have no stable identity of their own: two occurrences of the
// same anchor are distinguished only by (AnchorEventID, StartTime).
type Entry struct {
	ID                    string               `json:"id"`
	Kind                  EntryKind            `json:"kind"`
	Title                 string               `json:"title"`
	Description           string               `json:"description,omitempty"`
	Type                  storage.EventType    `json:"type"`
	StartTime             time.Time            `json:"startTime"`
	EndTime               mo.Option[time.Time] `json:"endTime"`
	IsAllDay              bool                 `json:"isAllDay"`
	IsRecurringOccurrence bool                 `json:"isRecurringOccurrence"`
	AnchorEventID         string               `json:"anchorEventId,omitempty"`
	SourceTaskID          string               `json:"sourceTaskId,omitempty"`
	ProjectID             mo.Option[string]    `json:"projectId"`
	Attendees             []storage.Attendee   `json:"attendees,omitempty"`
}

func eventEntry(ev *storage.Event) Entry {
	return Entry{
		ID:          ev.ID,
		Kind:        KindEvent,
		Title:       ev.Title,
		Description: ev.Description,
		Type:        ev.Type,
		StartTime:   ev.StartTime,
		EndTime:     ev.EndTime,
		IsAllDay:    ev.IsAllDay,
		ProjectID:   ev.ProjectID,
		Attendees:   ev.Attendees,
	}
}

// occurrenceEntry materializes one computed instance of a recurring anchor.
// The occurrence end is the start shifted by the anchor's duration; an
// anchor without an end time yields occurrences without one.
func occurrenceEntry(ev *storage.Event, start time.Time) Entry {
	entry := eventEntry(ev)
	entry.Kind = KindOccurrence
	entry.IsRecurringOccurrence = true
	entry.AnchorEventID = ev.ID
	entry.StartTime = start
	if _, ok := ev.EndTime.Get(); ok {
		entry.EndTime = mo.Some(start.Add(ev.Duration()))
	}
	return entry
}
