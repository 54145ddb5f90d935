package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/fairshare/internal/metrics"
	"github.com/dukerupert/fairshare/internal/model"
	"github.com/dukerupert/fairshare/internal/store"
)

// DispatchReport summarizes one dispatch pass.
type DispatchReport struct {
	Due     int `json:"due"`
	Sent    int `json:"sent"`
	Dropped int `json:"dropped"`
	Failed  int `json:"failed"`
}

// Dispatcher delivers due task reminders to the assignee's browsers.
type Dispatcher struct {
	sender      Sender
	reminders   *store.ReminderStore
	push        *store.PushStore
	assignments *store.AssignmentStore
	tasks       *store.TaskStore
	metrics     metrics.Recorder
	logger      *slog.Logger
	now         func() time.Time
}

// NewDispatcher creates a reminder dispatcher.
func NewDispatcher(sender Sender, reminders *store.ReminderStore, pushStore *store.PushStore, assignments *store.AssignmentStore, tasks *store.TaskStore, rec metrics.Recorder, logger *slog.Logger) *Dispatcher {
	if rec == nil {
		rec = metrics.NewNop()
	}
	return &Dispatcher{
		sender:      sender,
		reminders:   reminders,
		push:        pushStore,
		assignments: assignments,
		tasks:       tasks,
		metrics:     rec,
		logger:      logger,
		now:         time.Now,
	}
}

// Dispatch sends every unsent reminder scheduled at or before now. A
// reminder is marked sent once at least one subscription accepted it, when
// the member has no subscriptions, or when its assignment is no longer open.
// Reminders whose every send failed stay queued for the next pass.
func (d *Dispatcher) Dispatch(ctx context.Context) (*DispatchReport, error) {
	now := d.now()
	due, err := d.reminders.ListDue(now)
	if err != nil {
		return nil, err
	}

	report := &DispatchReport{Due: len(due)}
	for i := range due {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		r := &due[i]

		result := d.deliver(ctx, r)
		d.metrics.ReminderSent(result)
		switch result {
		case "sent":
			report.Sent++
		case "failed":
			report.Failed++
			continue
		default:
			report.Dropped++
		}
		if err := d.reminders.MarkSent(r.ID, now); err != nil {
			d.logger.Error("failed to mark reminder sent", "reminder_id", r.ID, "error", err)
		}
	}

	if report.Due > 0 {
		d.logger.Info("reminders dispatched",
			"due", report.Due, "sent", report.Sent, "dropped", report.Dropped, "failed", report.Failed)
	}
	return report, nil
}

func (d *Dispatcher) deliver(ctx context.Context, r *model.TaskReminder) string {
	a, err := d.assignments.GetByID(r.AssignmentID)
	if err != nil {
		d.logger.Error("failed to load assignment for reminder", "reminder_id", r.ID, "error", err)
		return "failed"
	}
	if a == nil || !a.Status.Open() {
		return "stale"
	}
	task, err := d.tasks.GetByID(a.TaskID)
	if err != nil || task == nil {
		d.logger.Error("failed to load task for reminder", "reminder_id", r.ID, "task_id", a.TaskID, "error", err)
		return "failed"
	}

	subs, err := d.push.ListByMember(r.MemberID)
	if err != nil {
		d.logger.Error("failed to list subscriptions", "member_id", r.MemberID, "error", err)
		return "failed"
	}
	if len(subs) == 0 {
		return "no_subscription"
	}

	payload := reminderPayload(r.ReminderType, task.Name, a.ID)
	delivered, expired := 0, 0
	for i := range subs {
		sub := &subs[i]
		err := d.sender.Send(ctx, sub, payload)
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, ErrExpired):
			expired++
			if err := d.push.DeleteByEndpoint(sub.Endpoint); err != nil {
				d.logger.Error("failed to delete expired subscription", "subscription_id", sub.ID, "error", err)
			}
		default:
			d.logger.Warn("push send failed", "reminder_id", r.ID, "subscription_id", sub.ID, "error", err)
		}
	}

	switch {
	case delivered > 0:
		return "sent"
	case expired == len(subs):
		return "expired"
	default:
		return "failed"
	}
}

func reminderPayload(kind model.ReminderType, taskName string, assignmentID int64) Payload {
	p := Payload{
		Kind:         kind,
		AssignmentID: assignmentID,
		TaskName:     taskName,
		URL:          fmt.Sprintf("/assignments/%d", assignmentID),
		Tag:          fmt.Sprintf("assignment-%d", assignmentID),
	}
	switch kind {
	case model.ReminderDueSoon:
		p.Title = "Due tomorrow"
		p.Body = fmt.Sprintf("%s is due tomorrow", taskName)
	case model.ReminderDueToday:
		p.Title = "Due today"
		p.Body = fmt.Sprintf("%s is due today", taskName)
	case model.ReminderOverdue:
		p.Title = "Overdue"
		p.Body = fmt.Sprintf("%s is overdue", taskName)
	default:
		p.Title = "Reminder"
		p.Body = taskName
	}
	return p
}
