package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/fairshare/internal/fairness"
	"github.com/dukerupert/fairshare/internal/model"
	"github.com/dukerupert/fairshare/internal/schedule"
)

// AllocationDetail describes one assignment created by AllocateAll.
type AllocationDetail struct {
	TaskID       int64     `json:"task_id"`
	TaskName     string    `json:"task_name"`
	AssignmentID int64     `json:"assignment_id"`
	MemberID     int64     `json:"member_id"`
	MemberName   string    `json:"member_name"`
	Score        int       `json:"score"`
	DueDate      time.Time `json:"due_date"`
}

// SkippedTask is a task AllocateAll did not assign, with the reason.
type SkippedTask struct {
	TaskID   int64  `json:"task_id"`
	TaskName string `json:"task_name"`
	Kind     string `json:"kind"`
	Reason   string `json:"reason"`
}

type AllocationReport struct {
	AssignmentsCreated int                `json:"assignments_created"`
	Details            []AllocationDetail `json:"details"`
	Skipped            []SkippedTask      `json:"skipped"`
}

// Allocate assigns the task to the best-ranked active member of the
// household and persists a PENDING assignment due at dueDate. A zero dueDate
// means the task's next due date computed from now. It returns an error
// wrapping ErrOpenAssignmentExists when the task already has an open
// assignment, and an *EligibilityError when nobody can take it.
func (e *Engine) Allocate(ctx context.Context, householdID, taskID int64, dueDate time.Time) (*model.Assignment, error) {
	task, err := e.getTask(taskID)
	if err != nil {
		return nil, err
	}
	if task.HouseholdID != householdID {
		return nil, &NotFoundError{Entity: "task", ID: taskID}
	}
	if dueDate.IsZero() {
		dueDate = schedule.ComputeDueDate(task.Frequency, e.clock())
	}
	a, _, err := e.allocate(ctx, *task, dueDate, "allocate")
	return a, err
}

func (e *Engine) allocate(ctx context.Context, task model.Task, dueDate time.Time, source string) (*model.Assignment, fairness.Ranked, error) {
	open, err := e.assignments.GetOpenByTask(task.ID)
	if err != nil {
		return nil, fairness.Ranked{}, err
	}
	if open != nil {
		e.metrics.AllocationOutcome(source, "open_assignment")
		return nil, fairness.Ranked{}, fmt.Errorf("task %d has assignment %d: %w", task.ID, open.ID, ErrOpenAssignmentExists)
	}

	res, err := e.scoreTask(task, dueDate, fairness.Options{})
	if err != nil {
		return nil, fairness.Ranked{}, fmt.Errorf("score task %d: %w", task.ID, err)
	}
	if _, ok := res.Best(); !ok {
		e.metrics.AllocationOutcome(source, "eligibility")
		return nil, fairness.Ranked{}, &EligibilityError{TaskID: task.ID, TaskName: task.Name}
	}
	winner := e.choose(ctx, task, res.Ranked)

	a, err := e.assignments.Create(task.ID, winner.MemberID, task.HouseholdID, dueDate)
	if errors.Is(err, ErrOpenAssignmentExists) {
		e.metrics.AllocationOutcome(source, "open_assignment")
		return nil, fairness.Ranked{}, fmt.Errorf("task %d: %w", task.ID, err)
	}
	if err != nil {
		return nil, fairness.Ranked{}, err
	}

	e.metrics.AllocationOutcome(source, "created")
	e.logger.Info("assignment created",
		"source", source,
		"assignment_id", a.ID,
		"task_id", task.ID,
		"member_id", winner.MemberID,
		"score", winner.Score,
		"due_date", a.DueDate,
		"adult_fallback", res.AdultFallback,
	)
	e.notifier.Notify(Event{
		Type:         EventAssignmentCreated,
		HouseholdID:  a.HouseholdID,
		AssignmentID: a.ID,
		TaskID:       a.TaskID,
		MemberID:     a.MemberID,
		Status:       string(a.Status),
	})
	return a, winner, nil
}

// choose asks the planner, if any, and falls back to ranked[0].
func (e *Engine) choose(ctx context.Context, task model.Task, ranked []fairness.Ranked) fairness.Ranked {
	best := ranked[0]
	if e.planner == nil {
		return best
	}
	id, err := e.planner.Choose(ctx, task, ranked)
	if err != nil {
		e.logger.Warn("planner failed, using scored winner", "task_id", task.ID, "error", err)
		return best
	}
	for _, r := range ranked {
		if r.MemberID == id {
			return r
		}
	}
	e.logger.Warn("planner chose ineligible member, using scored winner", "task_id", task.ID, "member_id", id)
	return best
}

// AllocateAll assigns every active task of the household that has no open
// assignment, due per its frequency from now. Per-task failures are recorded
// in the report's Skipped list and never stop the run.
func (e *Engine) AllocateAll(ctx context.Context, householdID int64) (*AllocationReport, error) {
	h, err := e.households.GetByID(householdID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, &NotFoundError{Entity: "household", ID: householdID}
	}

	tasks, err := e.tasks.ListActiveByHousehold(householdID)
	if err != nil {
		return nil, err
	}

	report := &AllocationReport{Details: []AllocationDetail{}, Skipped: []SkippedTask{}}
	now := e.clock()
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		a, winner, err := e.allocate(ctx, task, schedule.ComputeDueDate(task.Frequency, now), "allocate_all")
		if err != nil {
			report.Skipped = append(report.Skipped, SkippedTask{
				TaskID:   task.ID,
				TaskName: task.Name,
				Kind:     Kind(err),
				Reason:   err.Error(),
			})
			continue
		}
		report.AssignmentsCreated++
		report.Details = append(report.Details, AllocationDetail{
			TaskID:       task.ID,
			TaskName:     task.Name,
			AssignmentID: a.ID,
			MemberID:     a.MemberID,
			MemberName:   winner.MemberName,
			Score:        winner.Score,
			DueDate:      a.DueDate,
		})
	}

	e.logger.Info("allocate all finished",
		"household_id", householdID,
		"created", report.AssignmentsCreated,
		"skipped", len(report.Skipped),
	)
	return report, nil
}
