// Package httpapi declares HTTP contracts and route registration helpers.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/tapline/tapline/internal/domain/model"
)

// TapsHandler handles tap submissions.
type TapsHandler struct {
	deps Dependencies
}

// NewTapsHandler creates a new taps handler.
func NewTapsHandler(deps Dependencies) *TapsHandler {
	return &TapsHandler{deps: deps}
}

// HandlePostTap handles POST /taps requests. The daemon's clock supplies the
// tap instant; client timestamps are not accepted, which keeps the stream of
// instants non-decreasing without trusting remote clocks.
func (h *TapsHandler) HandlePostTap(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.post_tap"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req tapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	source := model.Source(req.Source)
	if req.Source == "" {
		source = model.SourceClick
	}
	if !source.Valid() {
		writeError(w, http.StatusBadRequest, "unknown_source", NewKind(op, ErrBadRequest))
		return
	}

	eventID := req.EventID
	if eventID == "" {
		eventID = uuid.New().String()
	}

	result, duplicate, err := h.deps.Tap(r.Context(), model.Tap{
		EventID: eventID,
		Source:  source,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusOK, result)
}
