package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/fairshare/internal/engine"
	"github.com/dukerupert/fairshare/internal/fairness"
	"github.com/dukerupert/fairshare/internal/model"
	"github.com/dukerupert/fairshare/internal/schedule"
)

type AllocationHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewAllocationHandler(e *engine.Engine, logger *slog.Logger) *AllocationHandler {
	return &AllocationHandler{engine: e, logger: logger}
}

type allocateRequest struct {
	DueDate string `json:"due_date"`
}

// Allocate handles POST /api/households/{id}/tasks/{task_id}/allocate
func (h *AllocationHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	householdID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid household id")
		return
	}
	taskID, err := parsePathID(r, "task_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var req allocateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	var due time.Time
	if req.DueDate != "" {
		due, err = parseInstant(req.DueDate, h.engine.Location(), schedule.EndOfDay)
		if err != nil {
			writeError(w, http.StatusBadRequest, "due_date must be RFC 3339 or YYYY-MM-DD")
			return
		}
	}

	a, err := h.engine.Allocate(r.Context(), householdID, taskID, due)
	if err != nil {
		writeEngineError(w, h.logger, "allocate", err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// AllocateAll handles POST /api/households/{id}/allocate-all
func (h *AllocationHandler) AllocateAll(w http.ResponseWriter, r *http.Request) {
	householdID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid household id")
		return
	}

	report, err := h.engine.AllocateAll(r.Context(), householdID)
	if err != nil {
		writeEngineError(w, h.logger, "allocate all", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Scores handles GET /api/tasks/{id}/scores?date=YYYY-MM-DD&only_adults=true
func (h *AllocationHandler) Scores(w http.ResponseWriter, r *http.Request) {
	taskID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	q := r.URL.Query()
	target := time.Now().In(h.engine.Location())
	if v := q.Get("date"); v != "" {
		target, err = parseInstant(v, h.engine.Location(), startOfDay)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be RFC 3339 or YYYY-MM-DD")
			return
		}
	}
	var opts fairness.Options
	if v := q.Get("only_adults"); v != "" {
		opts.OnlyAdults, err = strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "only_adults must be a boolean")
			return
		}
	}

	res, err := h.engine.Score(taskID, target, opts)
	if err != nil {
		writeEngineError(w, h.logger, "score task", err)
		return
	}
	if res.Ranked == nil {
		res.Ranked = []fairness.Ranked{}
	}
	if res.Excluded == nil {
		res.Excluded = []fairness.Exclusion{}
	}
	writeJSON(w, http.StatusOK, res)
}

// DueDate handles GET /api/due-date?frequency=WEEKLY&from=RFC3339
func (h *AllocationHandler) DueDate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	freq := model.ParseFrequency(q.Get("frequency"))
	if !freq.Valid() {
		writeError(w, http.StatusBadRequest, "frequency must be one of DAILY, WEEKLY, BIWEEKLY, MONTHLY, ONCE")
		return
	}

	from := time.Now()
	if v := q.Get("from"); v != "" {
		var err error
		from, err = parseInstant(v, h.engine.Location(), startOfDay)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from must be RFC 3339 or YYYY-MM-DD")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"frequency": freq,
		"from":      from.In(h.engine.Location()),
		"due_date":  h.engine.ComputeDueDate(freq, from),
	})
}
