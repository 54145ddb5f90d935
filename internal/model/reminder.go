package model

import "time"

type ReminderType string

const (
	ReminderDueSoon  ReminderType = "DUE_SOON"
	ReminderDueToday ReminderType = "DUE_TODAY"
	ReminderOverdue  ReminderType = "OVERDUE"
)

type TaskReminder struct {
	ID           int64        `json:"id"`
	AssignmentID int64        `json:"assignment_id"`
	MemberID     int64        `json:"member_id"`
	ReminderType ReminderType `json:"reminder_type"`
	ScheduledFor time.Time    `json:"scheduled_for"`
	SentAt       *time.Time   `json:"sent_at"`
}
