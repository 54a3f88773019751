// Package httpapi declares HTTP contracts and route registration helpers.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/tapline/tapline/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Tap feeds one tap through the service. The second return reports a
	// duplicate event ID.
	Tap(ctx context.Context, tap model.Tap) (model.TapResult, bool, error)

	// Snapshot exposes the current session view.
	Snapshot(ctx context.Context) model.Snapshot

	// Reset restores the session to its defaults and reports the fresh view.
	Reset(ctx context.Context) (model.Snapshot, error)

	// Target and preference mutations.
	SetTarget(ctx context.Context, bpm int) error
	ClearTarget(ctx context.Context) error
	SetShowAccuracy(ctx context.Context, show bool) error
}

// Server wires HTTP routes for the tempo API.
type Server struct {
	tapsHandler      *TapsHandler
	sessionHandler   *SessionHandler
	resetHandler     *ResetHandler
	targetHandler    *TargetHandler
	settingsHandler  *SettingsHandler
	healthHandler    *HealthHandler
	dashboardHandler *dashboardHandler
	live             http.Handler
}

// NewServer creates a new API server with all handlers. live serves the
// WebSocket endpoint; a nil live disables it.
func NewServer(deps Dependencies, live http.Handler) *Server {
	return &Server{
		tapsHandler:      NewTapsHandler(deps),
		sessionHandler:   NewSessionHandler(deps),
		resetHandler:     NewResetHandler(deps),
		targetHandler:    NewTargetHandler(deps),
		settingsHandler:  NewSettingsHandler(deps),
		healthHandler:    NewHealthHandler(),
		dashboardHandler: newDashboardHandler(),
		live:             live,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/taps", MetricsMiddleware(s.tapsHandler.HandlePostTap, "taps"))
	mux.HandleFunc("/session", MetricsMiddleware(s.sessionHandler.HandleGetSession, "session"))
	mux.HandleFunc("/reset", MetricsMiddleware(s.resetHandler.HandlePostReset, "reset"))
	mux.HandleFunc("/target", MetricsMiddleware(s.targetHandler.HandleTarget, "target"))
	mux.HandleFunc("/settings", MetricsMiddleware(s.settingsHandler.HandleSettings, "settings"))
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/", s.dashboardHandler.HandleRoot)
	if s.live != nil {
		mux.Handle("/live", s.live)
	}
}

// tapRequest mirrors the POST /taps body. Both fields are optional: the
// server assigns an event ID when none is given, and an empty source
// defaults to a pointer click.
type tapRequest struct {
	EventID string `json:"event_id"`
	Source  string `json:"source"`
}

// targetRequest mirrors the PUT /target body.
type targetRequest struct {
	BPM int `json:"bpm"`
}

// settingsRequest mirrors the PUT /settings body.
type settingsRequest struct {
	ShowAccuracy bool `json:"show_accuracy"`
}

// settingsResponse mirrors the GET /settings reply.
type settingsResponse struct {
	ShowAccuracy bool `json:"show_accuracy"`
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
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
