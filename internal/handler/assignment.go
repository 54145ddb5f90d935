package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/fairshare/internal/engine"
	"github.com/dukerupert/fairshare/internal/model"
)

type AssignmentHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewAssignmentHandler(e *engine.Engine, logger *slog.Logger) *AssignmentHandler {
	return &AssignmentHandler{engine: e, logger: logger}
}

// Start handles POST /api/assignments/{id}/start
func (h *AssignmentHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "start assignment", h.engine.Start)
}

// Verify handles POST /api/assignments/{id}/verify
func (h *AssignmentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "verify assignment", h.engine.Verify)
}

// Cancel handles POST /api/assignments/{id}/cancel
func (h *AssignmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "cancel assignment", h.engine.Cancel)
}

// Complete handles POST /api/assignments/{id}/complete
func (h *AssignmentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	result, err := h.engine.Complete(r.Context(), id)
	if err != nil {
		writeEngineError(w, h.logger, "complete assignment", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AssignmentHandler) transition(w http.ResponseWriter, r *http.Request, op string, fn func(int64) (*model.Assignment, error)) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	a, err := fn(id)
	if err != nil {
		writeEngineError(w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
