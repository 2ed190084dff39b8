// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/kata/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// ScoreJSON runs the direct-scoring entry of the addressed session.
	// An empty session id targets the default session.
	ScoreJSON(ctx context.Context, sessionID string, player, ref []byte) (model.ScoreResult, error)

	// ResetSession clears all state of the addressed session.
	ResetSession(ctx context.Context, sessionID string) error

	// CreateSession registers a new isolated session and returns its id.
	CreateSession(ctx context.Context) string

	// RemoveSession drops a session. The default session cannot be removed.
	RemoveSession(ctx context.Context, sessionID string) bool

	// LatestResult returns the most recent UDP-pipeline result, if any.
	LatestResult(ctx context.Context) (model.ScoreResult, bool)
}

// Server wires HTTP routes for the scoring API.
type Server struct {
	scoreHandler   *ScoreHandler
	sessionHandler *SessionHandler
	statsHandler   *StatsHandler
	healthHandler  *HealthHandler
	hub            *Hub
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, hub *Hub) *Server {
	return &Server{
		scoreHandler:   NewScoreHandler(deps),
		sessionHandler: NewSessionHandler(deps),
		statsHandler:   NewStatsHandler(statsProvider),
		healthHandler:  NewHealthHandler(),
		hub:            hub,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/score", MetricsMiddleware(s.scoreHandler.HandlePostScore, "score"))
	mux.HandleFunc("/latest", MetricsMiddleware(s.scoreHandler.HandleGetLatest, "latest"))
	mux.HandleFunc("/reset", MetricsMiddleware(s.sessionHandler.HandlePostReset, "reset"))
	mux.HandleFunc("/sessions", MetricsMiddleware(s.sessionHandler.HandleSessions, "sessions"))
	mux.HandleFunc("/sessions/", MetricsMiddleware(s.sessionHandler.HandleSessions, "sessions"))
	if s.hub != nil {
		mux.HandleFunc("/live", s.hub.HandleLive)
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
