// Package server exposes the calendar engine over HTTP. Authentication is
// handled upstream; requests arrive with the resolved actor identity in
// headers, and the server only enforces event visibility through the
// engine's access policy.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/atelierops/calcore/calendar"
	"github.com/atelierops/calcore/storage"
)

const (
	headerContentType = "Content-Type"

	mimeTypeJSON     = "application/json; charset=utf-8"
	mimeTypeCalendar = "text/calendar; charset=utf-8"

	// Actor identity headers, set by the auth layer in front of us.
	headerActorID   = "X-User-Id"
	headerActorRole = "X-User-Role"
)

// Server is the HTTP handler for the calendar API.
type Server struct {
	// DefaultPageLimit is used when a list request carries no limit
	// parameter. May be adjusted before the server starts handling
	// requests.
	DefaultPageLimit int

	engine *calendar.Engine
	events storage.EventStore
	tasks  storage.TaskStore
	access calendar.AccessPolicy
	logger *slog.Logger
	mux    *http.ServeMux
}

// New wires the calendar API routes.
func New(engine *calendar.Engine, events storage.EventStore, tasks storage.TaskStore, access calendar.AccessPolicy, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		DefaultPageLimit: calendar.DefaultPageLimit,

		engine: engine,
		events: events,
		tasks:  tasks,
		access: access,
		logger: logger,
		mux:    http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /calendar/events", s.handleList)
	s.mux.HandleFunc("POST /calendar/events", s.handleCreate)
	s.mux.HandleFunc("PUT /calendar/events/{id}", s.handleUpdate)
	s.mux.HandleFunc("DELETE /calendar/events/{id}", s.handleDelete)
	s.mux.HandleFunc("GET /calendar/export.ics", s.handleExport)

	return s
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("received request",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func actorFromRequest(r *http.Request) calendar.Actor {
	return calendar.Actor{
		ID:    r.Header.Get(headerActorID),
		Admin: r.Header.Get(headerActorRole) == "admin",
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(headerContentType, mimeTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// writeStorageError maps storage error types onto HTTP statuses.
func (s *Server) writeStorageError(w http.ResponseWriter, err error) {
	var serr *storage.Error
	if errors.As(err, &serr) {
		switch serr.Type {
		case storage.ErrNotFound:
			s.writeError(w, http.StatusNotFound, serr.Message)
			return
		case storage.ErrInvalidInput:
			s.writeError(w, http.StatusBadRequest, serr.Message)
			return
		case storage.ErrAlreadyExists:
			s.writeError(w, http.StatusConflict, serr.Message)
			return
		}
	}
	s.logger.Error("request failed", "error", err)
	s.writeError(w, http.StatusInternalServerError, "internal error")
}
