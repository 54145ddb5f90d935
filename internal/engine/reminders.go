package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/dukerupert/fairshare/internal/model"
	"github.com/dukerupert/fairshare/internal/schedule"
)

// ReminderHour is the local hour at which due reminders fire.
const ReminderHour = 9

// scheduleReminders queues DUE_SOON for the day before and DUE_TODAY for the
// due day, skipping instants that are not after now. It returns how many
// reminders were queued.
func (e *Engine) scheduleReminders(a *model.Assignment, now time.Time) (int, error) {
	due := a.DueDate.In(e.loc)
	plan := []struct {
		kind model.ReminderType
		at   time.Time
	}{
		{model.ReminderDueSoon, schedule.At(due.AddDate(0, 0, -1), ReminderHour)},
		{model.ReminderDueToday, schedule.At(due, ReminderHour)},
	}

	queued := 0
	for _, p := range plan {
		if !p.at.After(now) {
			continue
		}
		ok, err := e.reminders.Schedule(a.ID, a.MemberID, p.kind, p.at)
		if err != nil {
			return queued, fmt.Errorf("schedule %s reminder for assignment %d: %w", p.kind, a.ID, err)
		}
		if ok {
			queued++
		}
	}
	return queued, nil
}

// rescheduleReminders replaces unsent reminders after a due date moved.
func (e *Engine) rescheduleReminders(a *model.Assignment, now time.Time) error {
	if err := e.reminders.DeleteUnsent(a.ID); err != nil {
		return err
	}
	_, err := e.scheduleReminders(a, now)
	return err
}

// ScheduleOverdueReminders queues one OVERDUE reminder, due immediately, for
// every PENDING assignment past its due date that has none yet.
func (e *Engine) ScheduleOverdueReminders(ctx context.Context) (int, error) {
	now := e.clock()
	overdue, err := e.assignments.ListOverdue(now)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, a := range overdue {
		if err := ctx.Err(); err != nil {
			return queued, err
		}
		ok, err := e.reminders.Schedule(a.ID, a.MemberID, model.ReminderOverdue, now)
		if err != nil {
			e.logger.Error("failed to schedule overdue reminder", "assignment_id", a.ID, "error", err)
			continue
		}
		if ok {
			queued++
		}
	}
	if queued > 0 {
		e.logger.Info("overdue reminders scheduled", "count", queued)
	}
	return queued, nil
}
