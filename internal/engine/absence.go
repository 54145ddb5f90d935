package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/fairshare/internal/fairness"
	"github.com/dukerupert/fairshare/internal/model"
	"github.com/dukerupert/fairshare/internal/schedule"
)

const JobAbsenceReconciliation = "absence_reconciliation"

// ReconcileReport summarizes one absence reconciliation run.
type ReconcileReport struct {
	RunID             string      `json:"run_id"`
	ProcessedAbsences int         `json:"processed_absences"`
	Reassigned        int         `json:"reassigned"`
	Postponed         int         `json:"postponed"`
	Errors            []ItemError `json:"errors"`
}

// RunAbsenceReconciliation applies each absence active today to the absent
// member's PENDING assignments due inside the absence window. Failures are
// recorded per absence or per assignment and never stop the run.
func (e *Engine) RunAbsenceReconciliation(ctx context.Context) (*ReconcileReport, error) {
	start := time.Now()
	report := &ReconcileReport{RunID: uuid.NewString(), Errors: []ItemError{}}
	logger := e.logger.With("job", JobAbsenceReconciliation, "run_id", report.RunID)
	defer func() { e.metrics.ObserveRun(JobAbsenceReconciliation, time.Since(start)) }()

	now := e.clock()
	absences, err := e.absences.ListActiveOn(now)
	if err != nil {
		return nil, err
	}

	for _, abs := range absences {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.ProcessedAbsences++

		affected, err := e.assignments.ListPendingForMemberBetween(
			abs.MemberID,
			schedule.StartOfDay(abs.StartDate.In(e.loc)),
			schedule.EndOfDay(abs.EndDate.In(e.loc)),
		)
		if err != nil {
			report.Errors = append(report.Errors, ItemError{Kind: Kind(err), AbsenceID: abs.ID, Message: err.Error()})
			e.metrics.BatchItem(JobAbsenceReconciliation, "error")
			continue
		}

		for i := range affected {
			a := &affected[i]
			outcome, err := e.reconcileAssignment(abs, a, now)
			if err != nil {
				logger.Warn("absence reconciliation failed",
					"absence_id", abs.ID, "assignment_id", a.ID, "policy", abs.Policy, "error", err)
				report.Errors = append(report.Errors, ItemError{
					Kind:         Kind(err),
					AbsenceID:    abs.ID,
					AssignmentID: a.ID,
					TaskID:       a.TaskID,
					Message:      err.Error(),
				})
				e.metrics.BatchItem(JobAbsenceReconciliation, "error")
				continue
			}
			e.metrics.BatchItem(JobAbsenceReconciliation, outcome)
			switch outcome {
			case "reassigned":
				report.Reassigned++
			case "postponed":
				report.Postponed++
			}
		}
	}

	logger.Info("absence reconciliation finished",
		"processed_absences", report.ProcessedAbsences,
		"reassigned", report.Reassigned,
		"postponed", report.Postponed,
		"errors", len(report.Errors),
	)
	return report, nil
}

func (e *Engine) reconcileAssignment(abs model.MemberAbsence, a *model.Assignment, now time.Time) (string, error) {
	switch abs.Policy {
	case model.PolicyPostpone:
		return e.postpone(abs, a, now)
	case model.PolicySpecific:
		target, err := e.specificTarget(abs, a)
		if err != nil {
			return "", err
		}
		return e.reassign(a, target, "specific")
	case model.PolicyAuto:
		target, err := e.autoTarget(abs, a)
		if err != nil {
			return "", err
		}
		return e.reassign(a, target, "auto")
	default:
		return "", &PolicyConfigError{AbsenceID: abs.ID, Reason: fmt.Sprintf("unknown policy %q", abs.Policy)}
	}
}

func (e *Engine) postpone(abs model.MemberAbsence, a *model.Assignment, now time.Time) (string, error) {
	due := schedule.EndOfDay(abs.EndDate.In(e.loc).AddDate(0, 0, 1))
	updated, err := e.assignments.UpdateDueDate(a.ID, due)
	if err != nil {
		return "", err
	}
	if err := e.rescheduleReminders(updated, now); err != nil {
		e.logger.Error("failed to reschedule reminders", "assignment_id", a.ID, "error", err)
	}
	e.logger.Info("assignment postponed", "assignment_id", a.ID, "absence_id", abs.ID, "due_date", due)
	e.notifier.Notify(Event{
		Type:         EventAssignmentPostponed,
		HouseholdID:  updated.HouseholdID,
		AssignmentID: updated.ID,
		TaskID:       updated.TaskID,
		MemberID:     updated.MemberID,
		Status:       string(updated.Status),
	})
	return "postponed", nil
}

// specificTarget validates the absence's fixed replacement.
func (e *Engine) specificTarget(abs model.MemberAbsence, a *model.Assignment) (int64, error) {
	if abs.AssignToMemberID == nil {
		return 0, &PolicyConfigError{AbsenceID: abs.ID, Reason: "SPECIFIC policy without assign_to_member_id"}
	}
	id := *abs.AssignToMemberID
	if id == abs.MemberID {
		return 0, &PolicyConfigError{AbsenceID: abs.ID, Reason: "SPECIFIC target is the absent member"}
	}
	m, err := e.members.GetByID(id)
	if err != nil {
		return 0, err
	}
	if m == nil || m.HouseholdID != a.HouseholdID {
		return 0, &PolicyConfigError{AbsenceID: abs.ID, Reason: fmt.Sprintf("target member %d is not in household %d", id, a.HouseholdID)}
	}
	if !m.IsActive {
		return 0, &PolicyConfigError{AbsenceID: abs.ID, Reason: fmt.Sprintf("target member %d is inactive", id)}
	}
	return id, nil
}

// autoTarget re-scores the task at the assignment's due date. When scoring
// yields nobody other than the absent member, a random other active member
// is chosen instead.
func (e *Engine) autoTarget(abs model.MemberAbsence, a *model.Assignment) (int64, error) {
	task, err := e.getTask(a.TaskID)
	if err != nil {
		return 0, err
	}
	res, err := e.scoreTask(*task, a.DueDate, fairness.Options{})
	if err != nil {
		return 0, err
	}
	if best, ok := res.Best(); ok && best.MemberID != abs.MemberID {
		return best.MemberID, nil
	}

	members, err := e.members.ListActiveByHousehold(a.HouseholdID)
	if err != nil {
		return 0, err
	}
	others := make([]int64, 0, len(members))
	for _, m := range members {
		if m.ID != abs.MemberID {
			others = append(others, m.ID)
		}
	}
	if len(others) == 0 {
		return 0, &EligibilityError{TaskID: task.ID, TaskName: task.Name}
	}
	id := others[e.pick(len(others))]
	e.logger.Warn("no scored replacement, choosing at random",
		"fallback", "random",
		"absence_id", abs.ID,
		"assignment_id", a.ID,
		"member_id", id,
	)
	return id, nil
}

func (e *Engine) reassign(a *model.Assignment, memberID int64, policy string) (string, error) {
	updated, err := e.assignments.Reassign(a.ID, memberID)
	if err != nil {
		return "", err
	}
	if err := e.reminders.Retarget(a.ID, memberID); err != nil {
		e.logger.Error("failed to retarget reminders", "assignment_id", a.ID, "error", err)
	}
	e.logger.Info("assignment reassigned",
		"assignment_id", a.ID,
		"policy", policy,
		"from_member_id", a.MemberID,
		"to_member_id", memberID,
	)
	e.notifier.Notify(Event{
		Type:         EventAssignmentReassigned,
		HouseholdID:  updated.HouseholdID,
		AssignmentID: updated.ID,
		TaskID:       updated.TaskID,
		MemberID:     updated.MemberID,
		Status:       string(updated.Status),
	})
	return "reassigned", nil
}
