package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/fairshare/internal/model"
)

type RotationStore struct {
	db *sql.DB
}

func NewRotationStore(db *sql.DB) *RotationStore {
	return &RotationStore{db: db}
}

func scanRotation(scanner interface{ Scan(...any) error }) (*model.TaskRotation, error) {
	var r model.TaskRotation
	var lastGenerated sql.NullTime
	var active int
	err := scanner.Scan(&r.ID, &r.TaskID, &r.Frequency, &r.NextDueDate, &lastGenerated, &active, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastGenerated.Valid {
		r.LastGenerated = &lastGenerated.Time
	}
	r.IsActive = active != 0
	return &r, nil
}

const rotationCols = `id, task_id, frequency, next_due_date, last_generated, is_active, created_at, updated_at`

// Create registers the rotation for a task. Each task has at most one.
func (s *RotationStore) Create(taskID int64, frequency model.Frequency, nextDueDate time.Time) (*model.TaskRotation, error) {
	result, err := s.db.Exec(
		`INSERT INTO task_rotations (task_id, frequency, next_due_date) VALUES (?, ?, ?)`,
		taskID, string(frequency), nextDueDate.UTC(),
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("task %d already has a rotation", taskID)
	}
	if err != nil {
		return nil, fmt.Errorf("insert rotation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RotationStore) GetByID(id int64) (*model.TaskRotation, error) {
	row := s.db.QueryRow(`SELECT `+rotationCols+` FROM task_rotations WHERE id = ?`, id)
	r, err := scanRotation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rotation: %w", err)
	}
	return r, nil
}

func (s *RotationStore) GetByTask(taskID int64) (*model.TaskRotation, error) {
	row := s.db.QueryRow(`SELECT `+rotationCols+` FROM task_rotations WHERE task_id = ?`, taskID)
	r, err := scanRotation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rotation by task: %w", err)
	}
	return r, nil
}

// ListDue returns active rotations whose next due date is at or before now.
func (s *RotationStore) ListDue(now time.Time) ([]model.TaskRotation, error) {
	rows, err := s.db.Query(
		`SELECT `+rotationCols+` FROM task_rotations
		 WHERE is_active = 1 AND next_due_date <= ?
		 ORDER BY next_due_date, id`,
		now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list due rotations: %w", err)
	}
	defer rows.Close()

	var rotations []model.TaskRotation
	for rows.Next() {
		r, err := scanRotation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rotation: %w", err)
		}
		rotations = append(rotations, *r)
	}
	return rotations, rows.Err()
}

// Advance moves a due rotation forward. The update only applies while the
// rotation is still due as of now, so a concurrent sweep that already
// advanced it wins and Advance reports false.
func (s *RotationStore) Advance(id int64, nextDueDate time.Time, lastGenerated *time.Time, active bool, now time.Time) (bool, error) {
	var lg sql.NullTime
	if lastGenerated != nil {
		lg = sql.NullTime{Time: lastGenerated.UTC(), Valid: true}
	}
	result, err := s.db.Exec(
		`UPDATE task_rotations
		 SET next_due_date = ?, last_generated = COALESCE(?, last_generated), is_active = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND is_active = 1 AND next_due_date <= ?`,
		nextDueDate.UTC(), lg, boolToInt(active), id, now.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("advance rotation: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Release undoes a claim made by Advance, restoring prev's schedule. It only
// applies while the rotation still carries claimedNext, so a later sweep's
// claim is never overwritten.
func (s *RotationStore) Release(prev model.TaskRotation, claimedNext time.Time) (bool, error) {
	var lg sql.NullTime
	if prev.LastGenerated != nil {
		lg = sql.NullTime{Time: prev.LastGenerated.UTC(), Valid: true}
	}
	result, err := s.db.Exec(
		`UPDATE task_rotations
		 SET next_due_date = ?, last_generated = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND next_due_date = ?`,
		prev.NextDueDate.UTC(), lg, boolToInt(prev.IsActive), prev.ID, claimedNext.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("release rotation: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// SetActive pauses or resumes a rotation.
func (s *RotationStore) SetActive(id int64, active bool) error {
	_, err := s.db.Exec(
		`UPDATE task_rotations SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		boolToInt(active), id,
	)
	if err != nil {
		return fmt.Errorf("set rotation active: %w", err)
	}
	return nil
}
