package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/fairshare/internal/model"
)

type PreferenceStore struct {
	db *sql.DB
}

func NewPreferenceStore(db *sql.DB) *PreferenceStore {
	return &PreferenceStore{db: db}
}

// Set records a member's preference for a task, replacing any earlier one.
func (s *PreferenceStore) Set(memberID, taskID int64, pref model.Preference) error {
	_, err := s.db.Exec(
		`INSERT INTO member_preferences (member_id, task_id, preference) VALUES (?, ?, ?)
		 ON CONFLICT(member_id, task_id) DO UPDATE SET preference = excluded.preference`,
		memberID, taskID, string(pref),
	)
	if err != nil {
		return fmt.Errorf("set preference: %w", err)
	}
	return nil
}

func (s *PreferenceStore) Delete(memberID, taskID int64) error {
	_, err := s.db.Exec(`DELETE FROM member_preferences WHERE member_id = ? AND task_id = ?`, memberID, taskID)
	if err != nil {
		return fmt.Errorf("delete preference: %w", err)
	}
	return nil
}

// ListByTask returns every member's stated preference for the task.
func (s *PreferenceStore) ListByTask(taskID int64) (map[int64]model.Preference, error) {
	rows, err := s.db.Query(`SELECT member_id, preference FROM member_preferences WHERE task_id = ?`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	defer rows.Close()

	prefs := make(map[int64]model.Preference)
	for rows.Next() {
		var memberID int64
		var p string
		if err := rows.Scan(&memberID, &p); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		prefs[memberID] = model.Preference(p)
	}
	return prefs, rows.Err()
}
