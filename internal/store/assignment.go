package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/fairshare/internal/model"
)

type AssignmentStore struct {
	db *sql.DB
}

func NewAssignmentStore(db *sql.DB) *AssignmentStore {
	return &AssignmentStore{db: db}
}

func scanAssignment(scanner interface{ Scan(...any) error }) (*model.Assignment, error) {
	var a model.Assignment
	var completedAt sql.NullTime
	var points sql.NullInt64
	err := scanner.Scan(
		&a.ID, &a.TaskID, &a.MemberID, &a.HouseholdID, &a.DueDate, &a.Status,
		&completedAt, &points, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	if points.Valid {
		p := int(points.Int64)
		a.PointsEarned = &p
	}
	return &a, nil
}

func scanAssignments(rows *sql.Rows) ([]model.Assignment, error) {
	var assignments []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}

const assignmentCols = `id, task_id, member_id, household_id, due_date, status, completed_at, points_earned, created_at, updated_at`

const openStatuses = `('PENDING', 'IN_PROGRESS')`

// Create inserts a PENDING assignment unless the task already has an open
// one, in which case ErrOpenAssignmentExists is returned. The partial unique
// index on assignments(task_id) backs the check against concurrent writers.
func (s *AssignmentStore) Create(taskID, memberID, householdID int64, dueDate time.Time) (*model.Assignment, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var open int
	err = tx.QueryRow(
		`SELECT COUNT(*) FROM assignments WHERE task_id = ? AND status IN `+openStatuses,
		taskID,
	).Scan(&open)
	if err != nil {
		return nil, fmt.Errorf("count open assignments: %w", err)
	}
	if open > 0 {
		return nil, ErrOpenAssignmentExists
	}

	result, err := tx.Exec(
		`INSERT INTO assignments (task_id, member_id, household_id, due_date, status) VALUES (?, ?, ?, ?, ?)`,
		taskID, memberID, householdID, dueDate.UTC(), string(model.StatusPending),
	)
	if isUniqueViolation(err) {
		return nil, ErrOpenAssignmentExists
	}
	if err != nil {
		return nil, fmt.Errorf("insert assignment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrOpenAssignmentExists
		}
		return nil, fmt.Errorf("commit assignment: %w", err)
	}
	return s.GetByID(id)
}

func (s *AssignmentStore) GetByID(id int64) (*model.Assignment, error) {
	row := s.db.QueryRow(`SELECT `+assignmentCols+` FROM assignments WHERE id = ?`, id)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

// GetOpenByTask returns the task's PENDING or IN_PROGRESS assignment, if any.
func (s *AssignmentStore) GetOpenByTask(taskID int64) (*model.Assignment, error) {
	row := s.db.QueryRow(
		`SELECT `+assignmentCols+` FROM assignments WHERE task_id = ? AND status IN `+openStatuses+` LIMIT 1`,
		taskID,
	)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get open assignment: %w", err)
	}
	return a, nil
}

func (s *AssignmentStore) ListByTask(taskID int64) ([]model.Assignment, error) {
	rows, err := s.db.Query(
		`SELECT `+assignmentCols+` FROM assignments WHERE task_id = ? ORDER BY id`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignments by task: %w", err)
	}
	defer rows.Close()
	return scanAssignments(rows)
}

// CountOpenByMember returns each household member's PENDING/IN_PROGRESS count
// across all tasks. Members with no open work are absent from the map.
func (s *AssignmentStore) CountOpenByMember(householdID int64) (map[int64]int, error) {
	rows, err := s.db.Query(
		`SELECT member_id, COUNT(*) FROM assignments
		 WHERE household_id = ? AND status IN `+openStatuses+`
		 GROUP BY member_id`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("count open by member: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var memberID int64
		var n int
		if err := rows.Scan(&memberID, &n); err != nil {
			return nil, fmt.Errorf("scan open count: %w", err)
		}
		counts[memberID] = n
	}
	return counts, rows.Err()
}

// LastCompletionByMember returns, per member, when they last completed the task.
func (s *AssignmentStore) LastCompletionByMember(taskID int64) (map[int64]time.Time, error) {
	rows, err := s.db.Query(
		`SELECT member_id, completed_at FROM assignments
		 WHERE task_id = ? AND completed_at IS NOT NULL AND status IN ('COMPLETED', 'VERIFIED')
		 ORDER BY completed_at DESC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list completions by member: %w", err)
	}
	defer rows.Close()

	last := make(map[int64]time.Time)
	for rows.Next() {
		var memberID int64
		var completedAt time.Time
		if err := rows.Scan(&memberID, &completedAt); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		if _, seen := last[memberID]; !seen {
			last[memberID] = completedAt
		}
	}
	return last, rows.Err()
}

// ListCompletionTimes returns the member's completion instants at or after
// since, newest first.
func (s *AssignmentStore) ListCompletionTimes(memberID int64, since time.Time) ([]time.Time, error) {
	rows, err := s.db.Query(
		`SELECT completed_at FROM assignments
		 WHERE member_id = ? AND completed_at IS NOT NULL AND completed_at >= ?
		 ORDER BY completed_at DESC`,
		memberID, since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list completion times: %w", err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan completion time: %w", err)
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

// ListPendingForMemberBetween returns the member's PENDING assignments due
// within [start, end].
func (s *AssignmentStore) ListPendingForMemberBetween(memberID int64, start, end time.Time) ([]model.Assignment, error) {
	rows, err := s.db.Query(
		`SELECT `+assignmentCols+` FROM assignments
		 WHERE member_id = ? AND status = 'PENDING' AND due_date >= ? AND due_date <= ?
		 ORDER BY due_date, id`,
		memberID, start.UTC(), end.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list pending assignments: %w", err)
	}
	defer rows.Close()
	return scanAssignments(rows)
}

// ListOverdue returns open assignments whose due date is before now.
func (s *AssignmentStore) ListOverdue(now time.Time) ([]model.Assignment, error) {
	rows, err := s.db.Query(
		`SELECT `+assignmentCols+` FROM assignments
		 WHERE status IN `+openStatuses+` AND due_date < ?
		 ORDER BY due_date, id`,
		now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list overdue assignments: %w", err)
	}
	defer rows.Close()
	return scanAssignments(rows)
}

// UpdateDueDate moves a PENDING assignment's due date.
func (s *AssignmentStore) UpdateDueDate(id int64, dueDate time.Time) (*model.Assignment, error) {
	return s.updatePending(id, `due_date = ?`, dueDate.UTC())
}

// Reassign moves a PENDING assignment to another member.
func (s *AssignmentStore) Reassign(id, memberID int64) (*model.Assignment, error) {
	return s.updatePending(id, `member_id = ?`, memberID)
}

func (s *AssignmentStore) updatePending(id int64, set string, arg any) (*model.Assignment, error) {
	result, err := s.db.Exec(
		`UPDATE assignments SET `+set+`, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = 'PENDING'`,
		arg, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update assignment: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrStatusConflict
	}
	return s.GetByID(id)
}

// UpdateStatus moves an assignment from one status to another. It returns
// ErrStatusConflict if the row is no longer in the expected status, and
// ErrOpenAssignmentExists if reopening would break the one-open-per-task rule.
func (s *AssignmentStore) UpdateStatus(id int64, from, to model.AssignmentStatus) (*model.Assignment, error) {
	result, err := s.db.Exec(
		`UPDATE assignments SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`,
		string(to), id, string(from),
	)
	if isUniqueViolation(err) {
		return nil, ErrOpenAssignmentExists
	}
	if err != nil {
		return nil, fmt.Errorf("update assignment status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrStatusConflict
	}
	return s.GetByID(id)
}

// Complete marks an open assignment COMPLETED and credits the assignee's xp
// and level in a single transaction.
func (s *AssignmentStore) Complete(id int64, completedAt time.Time, points int, levelFor func(xp int) int) (*model.Assignment, *model.Member, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var memberID int64
	err = tx.QueryRow(
		`SELECT member_id FROM assignments WHERE id = ? AND status IN `+openStatuses,
		id,
	).Scan(&memberID)
	if err == sql.ErrNoRows {
		return nil, nil, ErrStatusConflict
	}
	if err != nil {
		return nil, nil, fmt.Errorf("lock assignment: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE assignments SET status = ?, completed_at = ?, points_earned = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(model.StatusCompleted), completedAt.UTC(), points, id,
	); err != nil {
		return nil, nil, fmt.Errorf("complete assignment: %w", err)
	}

	var xp int
	if err := tx.QueryRow(`SELECT xp FROM members WHERE id = ?`, memberID).Scan(&xp); err != nil {
		return nil, nil, fmt.Errorf("read member xp: %w", err)
	}
	xp += points
	if _, err := tx.Exec(
		`UPDATE members SET xp = ?, level = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		xp, levelFor(xp), memberID,
	); err != nil {
		return nil, nil, fmt.Errorf("update member xp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit completion: %w", err)
	}

	a, err := s.GetByID(id)
	if err != nil {
		return nil, nil, err
	}
	m, err := NewMemberStore(s.db).GetByID(memberID)
	if err != nil {
		return nil, nil, err
	}
	return a, m, nil
}
