package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// SessionHandler handles session lifecycle requests.
type SessionHandler struct {
	deps Dependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps Dependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

type resetRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
}

// HandlePostReset handles POST /reset requests. An absent session_id
// resets the default session.
func (h *SessionHandler) HandlePostReset(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_reset"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req resetRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
			return
		}
	}

	if err := h.deps.ResetSession(r.Context(), req.SessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true, "reset": true})
}

// HandleSessions handles POST /sessions (create) and DELETE /sessions/{id}.
func (h *SessionHandler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		id := h.deps.CreateSession(r.Context())
		writeJSON(w, http.StatusCreated, sessionResponse{SessionID: id})

	case http.MethodDelete:
		id := strings.TrimPrefix(r.URL.Path, "/sessions/")
		if id == "" || strings.Contains(id, "/") {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		if !h.deps.RemoveSession(r.Context(), id) {
			writeError(w, http.StatusNotFound, "not_found", ErrSessionNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})

	default:
		http.NotFound(w, r)
	}
}
