package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/fairshare/internal/engine"
	"github.com/dukerupert/fairshare/internal/model"
	"github.com/dukerupert/fairshare/internal/schedule"
	"github.com/dukerupert/fairshare/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIDParam(r *http.Request) (int64, error) {
	return parsePathID(r, "id")
}

func parsePathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

// writeEngineError maps engine and store errors to HTTP statuses. Anything
// unrecognized is logged and reported as 500.
func writeEngineError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrNoEligibleMembers), errors.Is(err, engine.ErrPolicyConfig):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, engine.ErrOpenAssignmentExists), errors.Is(err, engine.ErrInvalidTransition),
		errors.Is(err, store.ErrAbsenceOverlap):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// parseInstant accepts RFC 3339 or a bare YYYY-MM-DD in loc. A bare date
// resolves through day, e.g. schedule.EndOfDay for due dates.
func parseInstant(s string, loc *time.Location, day func(time.Time) time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	t, err := time.ParseInLocation(model.DateLayout, s, loc)
	if err != nil {
		return time.Time{}, err
	}
	return day(t), nil
}

func startOfDay(t time.Time) time.Time { return schedule.StartOfDay(t) }
