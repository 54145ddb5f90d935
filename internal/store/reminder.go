package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/fairshare/internal/model"
)

type ReminderStore struct {
	db *sql.DB
}

func NewReminderStore(db *sql.DB) *ReminderStore {
	return &ReminderStore{db: db}
}

func scanReminder(scanner interface{ Scan(...any) error }) (*model.TaskReminder, error) {
	var r model.TaskReminder
	var sentAt sql.NullTime
	err := scanner.Scan(&r.ID, &r.AssignmentID, &r.MemberID, &r.ReminderType, &r.ScheduledFor, &sentAt)
	if err != nil {
		return nil, err
	}
	if sentAt.Valid {
		r.SentAt = &sentAt.Time
	}
	return &r, nil
}

func scanReminders(rows *sql.Rows) ([]model.TaskReminder, error) {
	var reminders []model.TaskReminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		reminders = append(reminders, *r)
	}
	return reminders, rows.Err()
}

const reminderCols = `id, assignment_id, member_id, reminder_type, scheduled_for, sent_at`

// Schedule records a reminder. An assignment holds at most one reminder of
// each type; scheduling a duplicate is a no-op and reports false.
func (s *ReminderStore) Schedule(assignmentID, memberID int64, reminderType model.ReminderType, scheduledFor time.Time) (bool, error) {
	result, err := s.db.Exec(
		`INSERT INTO task_reminders (assignment_id, member_id, reminder_type, scheduled_for) VALUES (?, ?, ?, ?)
		 ON CONFLICT(assignment_id, reminder_type) DO NOTHING`,
		assignmentID, memberID, string(reminderType), scheduledFor.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("schedule reminder: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *ReminderStore) ListByAssignment(assignmentID int64) ([]model.TaskReminder, error) {
	rows, err := s.db.Query(
		`SELECT `+reminderCols+` FROM task_reminders WHERE assignment_id = ? ORDER BY scheduled_for, id`,
		assignmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// ListDue returns unsent reminders scheduled at or before now.
func (s *ReminderStore) ListDue(now time.Time) ([]model.TaskReminder, error) {
	rows, err := s.db.Query(
		`SELECT `+reminderCols+` FROM task_reminders
		 WHERE sent_at IS NULL AND scheduled_for <= ?
		 ORDER BY scheduled_for, id`,
		now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// Retarget points unsent reminders of an assignment at its new assignee.
func (s *ReminderStore) Retarget(assignmentID, memberID int64) error {
	_, err := s.db.Exec(
		`UPDATE task_reminders SET member_id = ? WHERE assignment_id = ? AND sent_at IS NULL`,
		memberID, assignmentID,
	)
	if err != nil {
		return fmt.Errorf("retarget reminders: %w", err)
	}
	return nil
}

func (s *ReminderStore) MarkSent(id int64, sentAt time.Time) error {
	_, err := s.db.Exec(`UPDATE task_reminders SET sent_at = ? WHERE id = ?`, sentAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	return nil
}

// DeleteUnsent drops reminders of an assignment that have not gone out yet.
func (s *ReminderStore) DeleteUnsent(assignmentID int64) error {
	_, err := s.db.Exec(`DELETE FROM task_reminders WHERE assignment_id = ? AND sent_at IS NULL`, assignmentID)
	if err != nil {
		return fmt.Errorf("delete unsent reminders: %w", err)
	}
	return nil
}
