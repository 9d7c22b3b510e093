package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/atelierops/calcore/recurrence"
	"github.com/atelierops/calcore/storage"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

// Page selects one slice of the merged result set.
type Page struct {
	Number int // 1-based
	Limit  int
}

func (p Page) normalized() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// ListResult is one page of a calendar query. Total counts the merged set
// after expansion and visibility filtering, never the raw persisted row
// count, so pagination always operates on what the user actually sees.
type ListResult struct {
	Entries    []Entry `json:"events"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"totalPages"`
}

// Engine orchestrates a calendar query: fetch, filter, expand, project,
// merge, sort, paginate. It is stateless; every query is computed from its
// arguments, and concurrent queries need no coordination.
type Engine struct {
	events storage.EventStore
	tasks  storage.TaskStore
	access AccessPolicy
	logger *slog.Logger
}

func NewEngine(events storage.EventStore, tasks storage.TaskStore, access AccessPolicy, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		events: events,
		tasks:  tasks,
		access: access,
		logger: logger,
	}
}

// ListEntries runs one calendar query for the given window, filters, page
// and actor.
//
// A persisted recurrence string that no longer parses (pre-validation
// legacy data) does not fail the query: the offending event is skipped and
// logged, and the rest of the result is still returned. A failed
// persistence fetch does fail the query.
func (e *Engine) ListEntries(ctx context.Context, win recurrence.Window, filter storage.EventFilter, page Page, actor Actor) (*ListResult, error) {
	if win.End.Before(win.Start) {
		return nil, &storage.Error{
			Type:    storage.ErrInvalidInput,
			Message: "window end precedes window start",
		}
	}

	// The two fetches have no data dependency; issue both and join.
	var (
		wg       sync.WaitGroup
		events   []*storage.Event
		tasks    []*storage.Task
		eventErr error
		taskErr  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		events, eventErr = e.events.FindEvents(ctx, win.Start, win.End, filter)
	}()
	go func() {
		defer wg.Done()
		tasks, taskErr = e.tasks.FindTasksWithDeadlineInWindow(ctx, win.Start, win.End, true)
	}()
	wg.Wait()

	if eventErr != nil {
		return nil, fmt.Errorf("fetch events: %w", eventErr)
	}
	if taskErr != nil {
		return nil, fmt.Errorf("fetch tasks: %w", taskErr)
	}

	visible := make([]*storage.Event, 0, len(events))
	for _, ev := range events {
		ok, err := e.access.IsVisible(ctx, ev, actor)
		if err != nil {
			return nil, fmt.Errorf("visibility check: %w", err)
		}
		if ok {
			visible = append(visible, ev)
		}
	}

	plain, occurrences := e.expandEvents(visible, win)
	deadlines := ProjectDeadlines(tasks)

	// Merge as one immutable sequence. Concatenation order is the tie-break:
	// with a stable sort, entries sharing a start time keep plain events
	// before occurrences before deadlines.
	merged := make([]Entry, 0, len(plain)+len(occurrences)+len(deadlines))
	merged = append(merged, plain...)
	merged = append(merged, occurrences...)
	merged = append(merged, deadlines...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].StartTime.Before(merged[j].StartTime)
	})

	page = page.normalized()
	total := len(merged)
	totalPages := (total + page.Limit - 1) / page.Limit

	start := (page.Number - 1) * page.Limit
	if start > total {
		start = total
	}
	end := start + page.Limit
	if end > total {
		end = total
	}

	return &ListResult{
		Entries:    merged[start:end],
		Total:      total,
		Page:       page.Number,
		Limit:      page.Limit,
		TotalPages: totalPages,
	}, nil
}

// expandEvents splits candidates into direct entries and expanded
// occurrences. Candidates came from the conservative store predicate, so a
// non-recurring event here is already known to overlap the window.
func (e *Engine) expandEvents(events []*storage.Event, win recurrence.Window) (plain, occurrences []Entry) {
	for _, ev := range events {
		text, ok := ev.Recurrence.Get()
		if !ok {
			plain = append(plain, eventEntry(ev))
			continue
		}

		rule, err := recurrence.Parse(text)
		if err != nil {
			// Stale pre-validation data; drop this event, keep the query.
			e.logger.Warn("skipping event with unparseable recurrence",
				"event_id", ev.ID,
				"recurrence", text,
				"error", err)
			continue
		}

		starts := recurrence.Expand(rule, ev.StartTime, win, recurrence.ExpandOptions{
			Duration: ev.Duration(),
			AllDay:   ev.IsAllDay,
		})
		for _, start := range starts {
			occurrences = append(occurrences, occurrenceEntry(ev, start))
		}
	}
	return plain, occurrences
}
