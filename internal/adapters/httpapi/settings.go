// Package httpapi declares HTTP contracts and route registration helpers.
package httpapi

import (
	"encoding/json"
	"net/http"
)

// SettingsHandler handles the accuracy-visibility preference.
type SettingsHandler struct {
	deps Dependencies
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(deps Dependencies) *SettingsHandler {
	return &SettingsHandler{deps: deps}
}

// HandleSettings handles GET and PUT /settings requests.
func (h *SettingsHandler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.settings"
	switch r.Method {
	case http.MethodGet:
		snap := h.deps.Snapshot(r.Context())
		writeJSON(w, http.StatusOK, settingsResponse{ShowAccuracy: snap.ShowAccuracy})

	case http.MethodPut:
		var req settingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		if err := h.deps.SetShowAccuracy(r.Context(), req.ShowAccuracy); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
			return
		}
		writeJSON(w, http.StatusOK, settingsResponse{ShowAccuracy: req.ShowAccuracy})

	default:
		http.NotFound(w, r)
	}
}
