package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/fairshare/internal/engine"
	"github.com/dukerupert/fairshare/internal/push"
)

// JobHandler lets an external scheduler trigger batch runs over HTTP.
type JobHandler struct {
	engine     *engine.Engine
	dispatcher *push.Dispatcher
	logger     *slog.Logger
}

// NewJobHandler creates a job handler. dispatcher may be nil when push is
// not configured; reminders are then scheduled but not delivered.
func NewJobHandler(e *engine.Engine, dispatcher *push.Dispatcher, logger *slog.Logger) *JobHandler {
	return &JobHandler{engine: e, dispatcher: dispatcher, logger: logger}
}

// RotationSweep handles POST /api/jobs/rotation-sweep
func (h *JobHandler) RotationSweep(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.RunRotationSweep(r.Context())
	if err != nil {
		writeEngineError(w, h.logger, "rotation sweep", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// AbsenceReconciliation handles POST /api/jobs/absence-reconciliation
func (h *JobHandler) AbsenceReconciliation(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.RunAbsenceReconciliation(r.Context())
	if err != nil {
		writeEngineError(w, h.logger, "absence reconciliation", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Reminders handles POST /api/jobs/reminders
func (h *JobHandler) Reminders(w http.ResponseWriter, r *http.Request) {
	overdue, err := h.engine.ScheduleOverdueReminders(r.Context())
	if err != nil {
		writeEngineError(w, h.logger, "schedule overdue reminders", err)
		return
	}

	resp := map[string]any{"overdue_scheduled": overdue}
	if h.dispatcher != nil {
		report, err := h.dispatcher.Dispatch(r.Context())
		if err != nil {
			writeEngineError(w, h.logger, "dispatch reminders", err)
			return
		}
		resp["dispatch"] = report
	}
	writeJSON(w, http.StatusOK, resp)
}
