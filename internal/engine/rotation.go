package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/fairshare/internal/fairness"
	"github.com/dukerupert/fairshare/internal/model"
	"github.com/dukerupert/fairshare/internal/schedule"
)

const JobRotationSweep = "rotation_sweep"

// SweepReport summarizes one rotation sweep.
type SweepReport struct {
	RunID     string      `json:"run_id"`
	Processed int         `json:"processed"`
	Generated int         `json:"generated"`
	Skipped   int         `json:"skipped"`
	Errors    []ItemError `json:"errors"`
}

// RunRotationSweep spawns an assignment for every active rotation whose
// next due date has passed, then advances the rotation one step. A rotation
// that fails is reported and left for the next run; the sweep always visits
// every due rotation.
//
// Running the sweep twice in a row generates nothing the second time, since
// each processed rotation's next due date has moved past now.
func (e *Engine) RunRotationSweep(ctx context.Context) (*SweepReport, error) {
	start := time.Now()
	report := &SweepReport{RunID: uuid.NewString(), Errors: []ItemError{}}
	logger := e.logger.With("job", JobRotationSweep, "run_id", report.RunID)
	defer func() { e.metrics.ObserveRun(JobRotationSweep, time.Since(start)) }()

	now := e.clock()
	due, err := e.rotations.ListDue(now)
	if err != nil {
		return nil, err
	}

	for _, r := range due {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Processed++

		outcome, err := e.sweepRotation(ctx, r, now)
		if err != nil {
			logger.Warn("rotation failed", "rotation_id", r.ID, "task_id", r.TaskID, "error", err)
			report.Errors = append(report.Errors, ItemError{
				Kind:       Kind(err),
				RotationID: r.ID,
				TaskID:     r.TaskID,
				Message:    err.Error(),
			})
			e.metrics.BatchItem(JobRotationSweep, "error")
			continue
		}
		e.metrics.BatchItem(JobRotationSweep, outcome)
		switch outcome {
		case "generated":
			report.Generated++
		case "skipped":
			report.Skipped++
		}
	}

	logger.Info("rotation sweep finished",
		"processed", report.Processed,
		"generated", report.Generated,
		"skipped", report.Skipped,
		"errors", len(report.Errors),
	)
	return report, nil
}

func (e *Engine) sweepRotation(ctx context.Context, r model.TaskRotation, now time.Time) (string, error) {
	task, err := e.getTask(r.TaskID)
	if err != nil {
		return "", err
	}

	next := r.NextDueDate.In(e.loc)
	advanced := schedule.Advance(r.Frequency, next)
	keepActive := r.Frequency.Recurring()

	if !task.IsActive {
		if _, err := e.rotations.Advance(r.ID, next, nil, false, now); err != nil {
			return "", err
		}
		e.logger.Info("rotation deactivated for inactive task", "rotation_id", r.ID, "task_id", task.ID)
		return "skipped", nil
	}

	open, err := e.assignments.GetOpenByTask(task.ID)
	if err != nil {
		return "", err
	}
	if open != nil {
		if _, err := e.rotations.Advance(r.ID, advanced, nil, keepActive, now); err != nil {
			return "", err
		}
		e.logger.Info("rotation skipped, task has open assignment",
			"rotation_id", r.ID, "task_id", task.ID, "assignment_id", open.ID)
		return "skipped", nil
	}

	res, err := e.scoreTask(*task, next, fairness.Options{})
	if err != nil {
		return "", err
	}
	best, ok := res.Best()
	if !ok {
		return "", &EligibilityError{TaskID: task.ID, TaskName: task.Name}
	}

	// Claim the rotation before spawning so concurrent sweeps cannot both
	// generate for the same window.
	claimed, err := e.rotations.Advance(r.ID, advanced, &now, keepActive, now)
	if err != nil {
		return "", err
	}
	if !claimed {
		return "skipped", nil
	}

	a, err := e.assignments.Create(task.ID, best.MemberID, task.HouseholdID, schedule.EndOfDay(next))
	if errors.Is(err, ErrOpenAssignmentExists) {
		return "skipped", nil
	}
	if err != nil {
		// Hand the occurrence back so the next run retries it.
		if _, rerr := e.rotations.Release(r, advanced); rerr != nil {
			e.logger.Error("failed to release rotation claim", "rotation_id", r.ID, "error", rerr)
		}
		return "", err
	}

	e.logger.Info("rotation generated assignment",
		"rotation_id", r.ID,
		"task_id", task.ID,
		"assignment_id", a.ID,
		"member_id", a.MemberID,
		"score", best.Score,
		"next_due_date", advanced,
	)
	e.notifier.Notify(Event{
		Type:         EventAssignmentCreated,
		HouseholdID:  a.HouseholdID,
		AssignmentID: a.ID,
		TaskID:       a.TaskID,
		MemberID:     a.MemberID,
		Status:       string(a.Status),
	})

	if _, err := e.scheduleReminders(a, now); err != nil {
		e.logger.Error("failed to schedule reminders", "assignment_id", a.ID, "error", err)
	}
	return "generated", nil
}
