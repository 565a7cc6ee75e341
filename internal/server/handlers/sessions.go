package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/oasislearninghub/oasis/internal/errors"
	"github.com/oasislearninghub/oasis/internal/session"
)

const maxEventBytes = 16 << 10

// SessionHandler exposes page sessions over HTTP.
type SessionHandler struct {
	Manager *session.Manager
}

// SessionList is the body of GET /v1/sessions.
type SessionList struct {
	Count    int      `json:"count"`
	Sessions []string `json:"sessions"`
}

// Create starts a session and returns its initial state.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	s, err := h.Manager.Create(r.Context())
	if err != nil {
		respondWithError(w, r, sessionError(r, err))
		return
	}

	st, err := s.Snapshot(r.Context())
	if err != nil {
		respondWithError(w, r, sessionError(r, err))
		return
	}
	w.Header().Set("Location", "/v1/sessions/"+s.ID())
	writeJSON(w, http.StatusCreated, st)
}

// List returns the live session ids.
func (h *SessionHandler) List(w http.ResponseWriter, _ *http.Request) {
	ids := h.Manager.IDs()
	writeJSON(w, http.StatusOK, SessionList{Count: len(ids), Sessions: ids})
}

// Get returns a session snapshot.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	st, err := s.Snapshot(r.Context())
	if err != nil {
		respondWithError(w, r, sessionError(r, err))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Delete closes a session.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.Manager.Close(r.Context(), chi.URLParam(r, "id")) {
		respondWithError(w, r, apperrors.NewNotFoundError("session not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Event dispatches one input and returns its outcome.
func (h *SessionHandler) Event(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var in session.Input
	dec := json.NewDecoder(io.LimitReader(r.Body, maxEventBytes))
	if err := dec.Decode(&in); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "malformed event body"))
		return
	}

	out, err := s.Dispatch(r.Context(), in)
	if err != nil {
		respondWithError(w, r, sessionError(r, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *SessionHandler) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, ok := h.Manager.Get(chi.URLParam(r, "id"))
	if !ok {
		respondWithError(w, r, apperrors.NewNotFoundError("session not found"))
		return nil, false
	}
	return s, true
}

func sessionError(r *http.Request, err error) error {
	switch {
	case errors.Is(err, session.ErrInvalidInput):
		return apperrors.WrapInvalidInput(r.Context(), err, err.Error())
	case errors.Is(err, session.ErrClosed):
		return apperrors.NewGoneError("session closed")
	case errors.Is(err, session.ErrTooManySessions):
		return apperrors.NewServiceUnavailableError("too many active sessions")
	default:
		return apperrors.WrapInternal(r.Context(), err, "session operation failed")
	}
}
