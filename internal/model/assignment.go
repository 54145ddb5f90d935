package model

import "time"

type AssignmentStatus string

const (
	StatusPending    AssignmentStatus = "PENDING"
	StatusInProgress AssignmentStatus = "IN_PROGRESS"
	StatusCompleted  AssignmentStatus = "COMPLETED"
	StatusVerified   AssignmentStatus = "VERIFIED"
	StatusCancelled  AssignmentStatus = "CANCELLED"
)

var transitions = map[AssignmentStatus][]AssignmentStatus{
	StatusPending:    {StatusInProgress, StatusCompleted, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {StatusVerified},
}

// Open reports whether the status counts toward a task's single outstanding
// assignment and a member's load.
func (s AssignmentStatus) Open() bool {
	return s == StatusPending || s == StatusInProgress
}

// CanTransition reports whether an assignment may move from s to next.
func (s AssignmentStatus) CanTransition(next AssignmentStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Assignment struct {
	ID           int64            `json:"id"`
	TaskID       int64            `json:"task_id"`
	MemberID     int64            `json:"member_id"`
	HouseholdID  int64            `json:"household_id"`
	DueDate      time.Time        `json:"due_date"`
	Status       AssignmentStatus `json:"status"`
	CompletedAt  *time.Time       `json:"completed_at"`
	PointsEarned *int             `json:"points_earned"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}
