package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/fairshare/internal/model"
	"github.com/dukerupert/fairshare/internal/store"
)

type AbsenceHandler struct {
	absences *store.AbsenceStore
	members  *store.MemberStore
	loc      *time.Location
	logger   *slog.Logger
}

func NewAbsenceHandler(as *store.AbsenceStore, ms *store.MemberStore, loc *time.Location, logger *slog.Logger) *AbsenceHandler {
	return &AbsenceHandler{absences: as, members: ms, loc: loc, logger: logger}
}

type absenceRequest struct {
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	Reason           string `json:"reason"`
	Policy           string `json:"policy"`
	AssignToMemberID *int64 `json:"assign_to_member_id"`
}

// Create handles POST /api/members/{id}/absences
func (h *AbsenceHandler) Create(w http.ResponseWriter, r *http.Request) {
	memberID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid member id")
		return
	}
	member, err := h.members.GetByID(memberID)
	if err != nil {
		h.logger.Error("get member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load member")
		return
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}

	var req absenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	start, err := time.ParseInLocation(model.DateLayout, req.StartDate, h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		return
	}
	end, err := time.ParseInLocation(model.DateLayout, req.EndDate, h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD")
		return
	}
	policy := model.PolicyAuto
	if req.Policy != "" {
		if policy, err = model.ParseAbsencePolicy(req.Policy); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.AssignToMemberID != nil {
		target, err := h.members.GetByID(*req.AssignToMemberID)
		if err != nil {
			h.logger.Error("get target member", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load member")
			return
		}
		if target == nil || target.HouseholdID != member.HouseholdID || target.ID == member.ID {
			writeError(w, http.StatusBadRequest, "assign_to_member_id must be another member of the household")
			return
		}
	}

	abs, err := h.absences.Create(model.MemberAbsence{
		MemberID:         memberID,
		StartDate:        start,
		EndDate:          end,
		Reason:           strings.TrimSpace(req.Reason),
		Policy:           policy,
		AssignToMemberID: req.AssignToMemberID,
	})
	switch {
	case errors.Is(err, store.ErrAbsenceOverlap):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, model.ErrSpecificWithoutTarget):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, model.ErrInvalidAbsence):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("create absence", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create absence")
		return
	}
	writeJSON(w, http.StatusCreated, abs)
}

// List handles GET /api/members/{id}/absences
func (h *AbsenceHandler) List(w http.ResponseWriter, r *http.Request) {
	memberID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid member id")
		return
	}
	absences, err := h.absences.ListByMember(memberID)
	if err != nil {
		h.logger.Error("list absences", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list absences")
		return
	}
	if absences == nil {
		absences = []model.MemberAbsence{}
	}
	writeJSON(w, http.StatusOK, absences)
}

// Delete handles DELETE /api/absences/{id}
func (h *AbsenceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.absences.Delete(id); err != nil {
		h.logger.Error("delete absence", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete absence")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
