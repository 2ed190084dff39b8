package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ScoreHandler handles direct-scoring requests.
type ScoreHandler struct {
	deps Dependencies
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps Dependencies) *ScoreHandler {
	return &ScoreHandler{deps: deps}
}

// scoreRequest mirrors the POST /score body. Player and Ref stay raw: the
// session boundary owns their validation and converts malformed content
// into a failure result, not an HTTP error.
type scoreRequest struct {
	SessionID string          `json:"session_id,omitempty"`
	Player    json.RawMessage `json:"player"`
	Ref       json.RawMessage `json:"ref"`
}

// HandlePostScore handles POST /score requests: one performer/reference
// snapshot pair in, one graded result out.
func (h *ScoreHandler) HandlePostScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_score"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	if len(req.Player) == 0 || len(req.Ref) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: player and ref are required", op, ErrBadRequest))
		return
	}

	result, err := h.deps.ScoreJSON(r.Context(), req.SessionID, req.Player, req.Ref)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleGetLatest handles GET /latest requests: the most recent result
// produced by the UDP pipeline, for passive UI polling.
func (h *ScoreHandler) HandleGetLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	result, ok := h.deps.LatestResult(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", errors.New("no frames scored yet"))
		return
	}
	writeJSON(w, http.StatusOK, result)
}
