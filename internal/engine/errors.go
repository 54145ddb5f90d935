package engine

import (
	"errors"
	"fmt"

	"github.com/dukerupert/fairshare/internal/store"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrNoEligibleMembers = errors.New("no eligible members")
	ErrPolicyConfig      = errors.New("invalid absence policy configuration")
	ErrInvalidTransition = errors.New("invalid assignment status transition")

	// ErrOpenAssignmentExists rejects a spawn for a task that already has an
	// open assignment. Spawn paths treat it as a no-op.
	ErrOpenAssignmentExists = store.ErrOpenAssignmentExists
)

// NotFoundError reports a missing task, rotation, assignment, member or household.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// EligibilityError reports that no member survived exclusion and the
// adults-only fallback.
type EligibilityError struct {
	TaskID   int64
	TaskName string
}

func (e *EligibilityError) Error() string {
	return fmt.Sprintf("no eligible members for task %d (%s)", e.TaskID, e.TaskName)
}

func (e *EligibilityError) Unwrap() error { return ErrNoEligibleMembers }

// PolicyConfigError reports an absence whose policy cannot be applied, such
// as SPECIFIC without a usable target member.
type PolicyConfigError struct {
	AbsenceID int64
	Reason    string
}

func (e *PolicyConfigError) Error() string {
	return fmt.Sprintf("absence %d: %s", e.AbsenceID, e.Reason)
}

func (e *PolicyConfigError) Unwrap() error { return ErrPolicyConfig }

// ItemError is one failed item of a batch run.
type ItemError struct {
	Kind         string `json:"kind"`
	RotationID   int64  `json:"rotation_id,omitempty"`
	AbsenceID    int64  `json:"absence_id,omitempty"`
	AssignmentID int64  `json:"assignment_id,omitempty"`
	TaskID       int64  `json:"task_id,omitempty"`
	Message      string `json:"message"`
}

// Kind classifies an engine error for reports and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNoEligibleMembers):
		return "eligibility"
	case errors.Is(err, ErrPolicyConfig):
		return "policy_config"
	case errors.Is(err, ErrOpenAssignmentExists):
		return "open_assignment"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	default:
		return "internal"
	}
}
