package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the day-granularity format used for absence windows.
const DateLayout = "2006-01-02"

// AbsencePolicy governs what happens to pending work during an absence.
type AbsencePolicy string

const (
	PolicyAuto     AbsencePolicy = "AUTO"
	PolicySpecific AbsencePolicy = "SPECIFIC"
	PolicyPostpone AbsencePolicy = "POSTPONE"
)

var ErrSpecificWithoutTarget = errors.New("SPECIFIC absence policy requires assign_to_member_id")

// ErrInvalidAbsence wraps every other absence validation failure.
var ErrInvalidAbsence = errors.New("invalid absence")

func ParseAbsencePolicy(s string) (AbsencePolicy, error) {
	p := AbsencePolicy(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case PolicyAuto, PolicySpecific, PolicyPostpone:
		return p, nil
	}
	return "", fmt.Errorf("unknown absence policy: %q", s)
}

// MemberAbsence is an inclusive, day-granularity window of unavailability.
// StartDate and EndDate carry only a calendar date; their location is the
// household's.
type MemberAbsence struct {
	ID               int64         `json:"id"`
	MemberID         int64         `json:"member_id"`
	StartDate        time.Time     `json:"start_date"`
	EndDate          time.Time     `json:"end_date"`
	Reason           string        `json:"reason"`
	Policy           AbsencePolicy `json:"policy"`
	AssignToMemberID *int64        `json:"assign_to_member_id"`
	CreatedAt        time.Time     `json:"created_at"`
}

// Validate checks the window ordering and the SPECIFIC target requirement.
func (a MemberAbsence) Validate() error {
	if DateKey(a.EndDate) < DateKey(a.StartDate) {
		return fmt.Errorf("%w: ends (%s) before it starts (%s)", ErrInvalidAbsence, DateKey(a.EndDate), DateKey(a.StartDate))
	}
	if a.Policy == PolicySpecific && a.AssignToMemberID == nil {
		return ErrSpecificWithoutTarget
	}
	if a.Policy != PolicySpecific && a.AssignToMemberID != nil {
		return fmt.Errorf("%w: assign_to_member_id is only allowed with SPECIFIC policy", ErrInvalidAbsence)
	}
	return nil
}

// Covers reports whether the calendar day of t, in t's location, falls in the window.
func (a MemberAbsence) Covers(t time.Time) bool {
	day := DateKey(t)
	return day >= DateKey(a.StartDate) && day <= DateKey(a.EndDate)
}

// DateKey formats the calendar day of t in its own location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}
