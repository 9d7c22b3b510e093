package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/atelierops/calcore/calendar"
	"github.com/atelierops/calcore/ics"
	"github.com/atelierops/calcore/recurrence"
	"github.com/atelierops/calcore/storage"
)

// handleList serves GET /calendar/events.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	win, err := windowFromQuery(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := storage.EventFilter{
		Type:      storage.EventType(r.URL.Query().Get("type")),
		ProjectID: r.URL.Query().Get("projectId"),
		Search:    r.URL.Query().Get("search"),
	}

	page := calendar.Page{
		Number: intQuery(r, "page", 1),
		Limit:  intQuery(r, "limit", s.DefaultPageLimit),
	}

	result, err := s.engine.ListEntries(r.Context(), win, filter, page, actorFromRequest(r))
	if err != nil {
		s.writeStorageError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// handleExport serves GET /calendar/export.ics: the same visibility-filtered
// window as the list endpoint, rendered as iCalendar with recurring anchors
// kept intact.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	win, err := windowFromQuery(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	actor := actorFromRequest(r)

	events, err := s.events.FindEvents(r.Context(), win.Start, win.End, storage.EventFilter{})
	if err != nil {
		s.writeStorageError(w, err)
		return
	}
	visible := events[:0]
	for _, ev := range events {
		ok, err := s.access.IsVisible(r.Context(), ev, actor)
		if err != nil {
			s.writeStorageError(w, err)
			return
		}
		if ok {
			visible = append(visible, ev)
		}
	}

	tasks, err := s.tasks.FindTasksWithDeadlineInWindow(r.Context(), win.Start, win.End, true)
	if err != nil {
		s.writeStorageError(w, err)
		return
	}

	body, err := ics.Encode(visible, calendar.ProjectDeadlines(tasks))
	if err != nil {
		s.logger.Error("failed to encode calendar export", "error", err)
		s.writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set(headerContentType, mimeTypeCalendar)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		s.logger.Error("failed to write export response", "error", err)
	}
}

func windowFromQuery(r *http.Request) (recurrence.Window, error) {
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		return recurrence.Window{}, fmt.Errorf("invalid start: expected RFC 3339 instant")
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		return recurrence.Window{}, fmt.Errorf("invalid end: expected RFC 3339 instant")
	}
	if end.Before(start) {
		return recurrence.Window{}, fmt.Errorf("end precedes start")
	}
	return recurrence.Window{Start: start, End: end}, nil
}

func intQuery(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
