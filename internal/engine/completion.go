package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/fairshare/internal/model"
	"github.com/dukerupert/fairshare/internal/schedule"
	"github.com/dukerupert/fairshare/internal/store"
)

// maxStreakDays bounds how far back the streak lookup reads.
const maxStreakDays = 365

// CompletionResult is what Complete reports back to the caller.
type CompletionResult struct {
	Assignment *model.Assignment `json:"assignment"`
	Member     *model.Member     `json:"member"`
	Points     int               `json:"points"`
	OnTime     bool              `json:"on_time"`
	StreakDays int               `json:"streak_days"`
	// Next is the follow-up occurrence spawned for a recurring task, if any.
	Next *model.Assignment `json:"next,omitempty"`
}

// Complete marks an open assignment COMPLETED, credits points and xp in one
// transaction, and for recurring tasks immediately allocates the next
// occurrence. A follow-up that loses the race against the rotation sweep,
// or finds nobody eligible, does not fail the completion.
func (e *Engine) Complete(ctx context.Context, assignmentID int64) (*CompletionResult, error) {
	a, err := e.getAssignment(assignmentID)
	if err != nil {
		return nil, err
	}
	if !a.Status.CanTransition(model.StatusCompleted) {
		return nil, transitionError(a, model.StatusCompleted)
	}
	task, err := e.getTask(a.TaskID)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	onTime := !now.After(a.DueDate)
	streak, err := e.streakDays(a.MemberID, now)
	if err != nil {
		return nil, err
	}
	pts := e.points.CalculatePoints(task.Weight, task.Frequency, onTime, streak)

	done, member, err := e.assignments.Complete(a.ID, now, pts, e.points.LevelFor)
	if errors.Is(err, store.ErrStatusConflict) {
		return nil, fmt.Errorf("assignment %d changed concurrently: %w", a.ID, ErrInvalidTransition)
	}
	if err != nil {
		return nil, err
	}

	e.logger.Info("assignment completed",
		"assignment_id", done.ID,
		"member_id", done.MemberID,
		"points", pts,
		"on_time", onTime,
		"streak_days", streak,
		"level", member.Level,
	)
	e.notifier.Notify(Event{
		Type:         EventAssignmentCompleted,
		HouseholdID:  done.HouseholdID,
		AssignmentID: done.ID,
		TaskID:       done.TaskID,
		MemberID:     done.MemberID,
		Status:       string(done.Status),
	})

	result := &CompletionResult{
		Assignment: done,
		Member:     member,
		Points:     pts,
		OnTime:     onTime,
		StreakDays: streak,
	}
	if !task.Frequency.Recurring() || !task.IsActive {
		return result, nil
	}

	next, _, err := e.allocate(ctx, *task, schedule.ComputeDueDate(task.Frequency, now), "completion")
	switch {
	case err == nil:
		result.Next = next
	case errors.Is(err, ErrOpenAssignmentExists):
		e.logger.Info("next occurrence already exists", "task_id", task.ID)
	default:
		e.logger.Warn("could not allocate next occurrence", "task_id", task.ID, "kind", Kind(err), "error", err)
	}
	return result, nil
}

// Start moves a PENDING assignment to IN_PROGRESS.
func (e *Engine) Start(assignmentID int64) (*model.Assignment, error) {
	return e.transition(assignmentID, model.StatusInProgress)
}

// Verify confirms a COMPLETED assignment.
func (e *Engine) Verify(assignmentID int64) (*model.Assignment, error) {
	return e.transition(assignmentID, model.StatusVerified)
}

// Cancel closes an open assignment without credit.
func (e *Engine) Cancel(assignmentID int64) (*model.Assignment, error) {
	return e.transition(assignmentID, model.StatusCancelled)
}

func (e *Engine) transition(id int64, to model.AssignmentStatus) (*model.Assignment, error) {
	a, err := e.getAssignment(id)
	if err != nil {
		return nil, err
	}
	if !a.Status.CanTransition(to) {
		return nil, transitionError(a, to)
	}
	updated, err := e.assignments.UpdateStatus(id, a.Status, to)
	if errors.Is(err, store.ErrStatusConflict) {
		return nil, fmt.Errorf("assignment %d changed concurrently: %w", id, ErrInvalidTransition)
	}
	if err != nil {
		return nil, err
	}

	e.logger.Info("assignment status changed", "assignment_id", id, "from", a.Status, "to", to)
	e.notifier.Notify(Event{
		Type:         EventAssignmentStatus,
		HouseholdID:  updated.HouseholdID,
		AssignmentID: updated.ID,
		TaskID:       updated.TaskID,
		MemberID:     updated.MemberID,
		Status:       string(updated.Status),
	})
	return updated, nil
}

func (e *Engine) getAssignment(id int64) (*model.Assignment, error) {
	a, err := e.assignments.GetByID(id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, &NotFoundError{Entity: "assignment", ID: id}
	}
	return a, nil
}

func transitionError(a *model.Assignment, to model.AssignmentStatus) error {
	return fmt.Errorf("assignment %d: %s -> %s: %w", a.ID, a.Status, to, ErrInvalidTransition)
}

// streakDays counts consecutive local days, ending today, on which the
// member completed something. Today always counts since a completion is
// being recorded now.
func (e *Engine) streakDays(memberID int64, now time.Time) (int, error) {
	today := schedule.StartOfDay(now)
	times, err := e.assignments.ListCompletionTimes(memberID, today.AddDate(0, 0, -maxStreakDays))
	if err != nil {
		return 0, err
	}
	days := make(map[string]bool, len(times))
	for _, t := range times {
		days[model.DateKey(t.In(e.loc))] = true
	}

	streak := 1
	for d := today.AddDate(0, 0, -1); days[model.DateKey(d)] && streak < maxStreakDays; d = d.AddDate(0, 0, -1) {
		streak++
	}
	return streak, nil
}
