package model

import "time"

// TaskRotation is the standing schedule that spawns assignments for a
// recurring task. Frequency may differ from the task's own.
type TaskRotation struct {
	ID            int64      `json:"id"`
	TaskID        int64      `json:"task_id"`
	Frequency     Frequency  `json:"frequency"`
	NextDueDate   time.Time  `json:"next_due_date"`
	LastGenerated *time.Time `json:"last_generated"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
