package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/fairshare/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var minAge sql.NullInt64
	var active int
	err := scanner.Scan(&t.ID, &t.HouseholdID, &t.Name, &t.Frequency, &t.Weight, &minAge, &active, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if minAge.Valid {
		age := int(minAge.Int64)
		t.MinAge = &age
	}
	t.IsActive = active != 0
	return &t, nil
}

const taskCols = `id, household_id, name, frequency, weight, min_age, is_active, created_at, updated_at`

func (s *TaskStore) Create(householdID int64, name string, frequency model.Frequency, weight int, minAge *int) (*model.Task, error) {
	if weight < 1 {
		return nil, fmt.Errorf("task weight must be at least 1, got %d", weight)
	}
	var age sql.NullInt64
	if minAge != nil {
		age = sql.NullInt64{Int64: int64(*minAge), Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO tasks (household_id, name, frequency, weight, min_age) VALUES (?, ?, ?, ?, ?)`,
		householdID, name, string(frequency), weight, age,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// ListActiveByHousehold returns active tasks ordered by id.
func (s *TaskStore) ListActiveByHousehold(householdID int64) ([]model.Task, error) {
	rows, err := s.db.Query(
		`SELECT `+taskCols+` FROM tasks WHERE household_id = ? AND is_active = 1 ORDER BY id`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list active tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) SetActive(id int64, active bool) error {
	_, err := s.db.Exec(
		`UPDATE tasks SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		boolToInt(active), id,
	)
	if err != nil {
		return fmt.Errorf("set task active: %w", err)
	}
	return nil
}
