// Package httpapi declares HTTP contracts and route registration helpers.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tapline/tapline/internal/domain/tempo"
)

// TargetHandler handles target BPM updates.
type TargetHandler struct {
	deps Dependencies
}

// NewTargetHandler creates a new target handler.
func NewTargetHandler(deps Dependencies) *TargetHandler {
	return &TargetHandler{deps: deps}
}

// HandleTarget handles PUT and DELETE /target requests. Sub-1 targets are
// rejected with 400 and the prior target retained, the service-side
// rendering of the dashboard field silently keeping its prior value.
func (h *TargetHandler) HandleTarget(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.target"
	switch r.Method {
	case http.MethodPut:
		var req targetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		if err := h.deps.SetTarget(r.Context(), req.BPM); err != nil {
			if errors.Is(err, tempo.ErrInvalidTarget) {
				writeError(w, http.StatusBadRequest, "invalid_target", NewKind(op, ErrInvalidTarget))
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
			return
		}
		writeJSON(w, http.StatusOK, h.deps.Snapshot(r.Context()))

	case http.MethodDelete:
		if err := h.deps.ClearTarget(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
			return
		}
		writeJSON(w, http.StatusOK, h.deps.Snapshot(r.Context()))

	default:
		http.NotFound(w, r)
	}
}
