// Package httpapi declares HTTP contracts and route registration helpers.
package httpapi

import (
	"net/http"
)

// SessionHandler handles session snapshot requests.
type SessionHandler struct {
	deps Dependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps Dependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

// HandleGetSession handles GET /session requests.
func (h *SessionHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Snapshot(r.Context()))
}

// ResetHandler handles session resets.
type ResetHandler struct {
	deps Dependencies
}

// NewResetHandler creates a new reset handler.
func NewResetHandler(deps Dependencies) *ResetHandler {
	return &ResetHandler{deps: deps}
}

// HandlePostReset handles POST /reset requests and returns the fresh snapshot.
func (h *ResetHandler) HandlePostReset(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.post_reset"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	snap, err := h.deps.Reset(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
