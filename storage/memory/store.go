// Package memory is a map-backed implementation of the storage interfaces,
// used by tests and the demo server.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/atelierops/calcore/storage"
)

// Store implements storage.EventStore, storage.TaskStore and
// storage.MembershipStore using in-memory maps.
type Store struct {
	mu      sync.RWMutex
	events  map[string]*storage.Event
	tasks   map[string]*storage.Task
	members map[string]map[string]bool // projectID -> userID set
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		events:  make(map[string]*storage.Event),
		tasks:   make(map[string]*storage.Task),
		members: make(map[string]map[string]bool),
	}
}

// Event operations

func (s *Store) FindEvents(_ context.Context, windowStart, windowEnd time.Time, filter storage.EventFilter) ([]*storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*storage.Event
	for _, ev := range s.events {
		if !candidateForWindow(ev, windowStart, windowEnd) {
			continue
		}
		if !matchesFilter(ev, filter) {
			continue
		}
		out = append(out, copyEvent(ev))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetEvent(_ context.Context, id string) (*storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[id]
	if !ok {
		return nil, &storage.Error{Type: storage.ErrNotFound, Message: "event not found"}
	}
	return copyEvent(ev), nil
}

func (s *Store) CreateEvent(_ context.Context, event *storage.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[event.ID]; exists {
		return &storage.Error{Type: storage.ErrAlreadyExists, Message: "event already exists"}
	}
	s.events[event.ID] = copyEvent(event)
	return nil
}

func (s *Store) UpdateEvent(_ context.Context, event *storage.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[event.ID]; !exists {
		return &storage.Error{Type: storage.ErrNotFound, Message: "event not found"}
	}
	s.events[event.ID] = copyEvent(event)
	return nil
}

func (s *Store) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[id]; !exists {
		return &storage.Error{Type: storage.ErrNotFound, Message: "event not found"}
	}
	delete(s.events, id)
	return nil
}

// Task operations

func (s *Store) PutTask(task *storage.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
}

func (s *Store) FindTasksWithDeadlineInWindow(_ context.Context, windowStart, windowEnd time.Time, excludeDone bool) ([]*storage.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*storage.Task
	for _, task := range s.tasks {
		if task.Deadline.Before(windowStart) || task.Deadline.After(windowEnd) {
			continue
		}
		if excludeDone && task.Status == storage.TaskStatusDone {
			continue
		}
		out = append(out, task)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Deadline.Equal(out[j].Deadline) {
			return out[i].Deadline.Before(out[j].Deadline)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Membership operations

func (s *Store) SetProjectMembers(projectID string, userIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		set[id] = true
	}
	s.members[projectID] = set
}

func (s *Store) IsProjectMember(_ context.Context, userID, projectID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.members[projectID][userID], nil
}

// candidateForWindow is the conservative window predicate: the event's own
// interval overlaps the window, or it is recurring and anchored at or
// before the window end (it may still produce in-window occurrences).
func candidateForWindow(ev *storage.Event, windowStart, windowEnd time.Time) bool {
	end := ev.EndTime.OrElse(ev.StartTime)
	if !ev.StartTime.After(windowEnd) && !end.Before(windowStart) {
		return true
	}
	return ev.Recurrence.IsPresent() && !ev.StartTime.After(windowEnd)
}

func matchesFilter(ev *storage.Event, filter storage.EventFilter) bool {
	if filter.Type != "" && ev.Type != filter.Type {
		return false
	}
	if filter.ProjectID != "" && ev.ProjectID.OrElse("") != filter.ProjectID {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(ev.Title), needle) &&
			!strings.Contains(strings.ToLower(ev.Description), needle) {
			return false
		}
	}
	return true
}

func copyEvent(ev *storage.Event) *storage.Event {
	clone := *ev
	clone.Attendees = append([]storage.Attendee(nil), ev.Attendees...)
	return &clone
}
