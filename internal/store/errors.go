package store

import (
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrOpenAssignmentExists is returned when a task already has a PENDING or
// IN_PROGRESS assignment.
var ErrOpenAssignmentExists = errors.New("task already has an open assignment")

// ErrAbsenceOverlap is returned when a new absence intersects an existing one
// for the same member.
var ErrAbsenceOverlap = errors.New("absence overlaps an existing absence")

// ErrStatusConflict is returned when an assignment is no longer in the status
// an update expected.
var ErrStatusConflict = errors.New("assignment status changed concurrently")

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		if se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
