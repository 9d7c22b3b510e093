package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/atelierops/calcore/recurrence"
	"github.com/atelierops/calcore/storage"
)

// eventRequest is the write-path payload for creating or updating an event.
type eventRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	IsAllDay    bool       `json:"isAllDay"`
	Recurrence  *string    `json:"recurrence"`
	ProjectID   *string    `json:"projectId"`
	Attendees   []string   `json:"attendees"`
}

// validate gates writes: malformed recurrence text never reaches storage,
// so the read path only has to defend against pre-validation legacy rows.
func (req *eventRequest) validate() error {
	if req.Title == "" {
		return fmt.Errorf("title is required")
	}
	if req.StartTime.IsZero() {
		return fmt.Errorf("startTime is required")
	}
	if req.EndTime != nil && req.EndTime.Before(req.StartTime) {
		return fmt.Errorf("endTime precedes startTime")
	}
	if req.Recurrence != nil {
		rule, err := recurrence.Parse(*req.Recurrence)
		if err != nil {
			return err
		}
		if until, ok := rule.Until.Get(); ok && until.Before(req.StartTime) {
			return fmt.Errorf("recurrence UNTIL precedes the event start")
		}
	}
	return nil
}

func (req *eventRequest) apply(ev *storage.Event) {
	ev.Title = req.Title
	ev.Description = req.Description
	ev.Type = storage.EventType(req.Type)
	if ev.Type == "" {
		ev.Type = storage.EventTypeOther
	}
	ev.StartTime = req.StartTime
	ev.IsAllDay = req.IsAllDay

	ev.EndTime = mo.None[time.Time]()
	if req.EndTime != nil {
		ev.EndTime = mo.Some(*req.EndTime)
	}
	ev.Recurrence = mo.None[string]()
	if req.Recurrence != nil {
		ev.Recurrence = mo.Some(*req.Recurrence)
	}
	ev.ProjectID = mo.None[string]()
	if req.ProjectID != nil {
		ev.ProjectID = mo.Some(*req.ProjectID)
	}

	ev.Attendees = ev.Attendees[:0]
	for _, userID := range req.Attendees {
		ev.Attendees = append(ev.Attendees, storage.Attendee{
			UserID: userID,
			Status: storage.AttendeePending,
		})
	}
}

// handleCreate serves POST /calendar/events.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if err := req.validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor := actorFromRequest(r)
	now := time.Now().UTC()
	ev := &storage.Event{
		ID:        uuid.New().String(),
		CreatedBy: actor.ID,
		Created:   now,
		Modified:  now,
	}
	req.apply(ev)

	if err := s.events.CreateEvent(r.Context(), ev); err != nil {
		s.writeStorageError(w, err)
		return
	}

	s.logger.Info("event created", "event_id", ev.ID, "actor", actor.ID)
	s.writeJSON(w, http.StatusCreated, map[string]string{"id": ev.ID})
}

// handleUpdate serves PUT /calendar/events/{id}.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if err := req.validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ev, err := s.events.GetEvent(r.Context(), id)
	if err != nil {
		s.writeStorageError(w, err)
		return
	}

	req.apply(ev)
	ev.Modified = time.Now().UTC()

	if err := s.events.UpdateEvent(r.Context(), ev); err != nil {
		s.writeStorageError(w, err)
		return
	}

	s.logger.Info("event updated", "event_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleDelete serves DELETE /calendar/events/{id}.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.events.DeleteEvent(r.Context(), id); err != nil {
		s.writeStorageError(w, err)
		return
	}
	s.logger.Info("event deleted", "event_id", id)
	w.WriteHeader(http.StatusNoContent)
}
