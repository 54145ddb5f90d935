package model

import (
	"fmt"
	"strings"
	"time"
)

// MemberType determines a member's capacity weight and assumed age bracket.
type MemberType string

const (
	MemberAdult MemberType = "ADULT"
	MemberTeen  MemberType = "TEEN"
	MemberChild MemberType = "CHILD"
)

type memberProfile struct {
	capacity   float64
	assumedAge int
}

// Assumed ages stand in for birthdates, which the system does not collect.
var memberProfiles = map[MemberType]memberProfile{
	MemberAdult: {capacity: 1.0, assumedAge: 25},
	MemberTeen:  {capacity: 0.6, assumedAge: 15},
	MemberChild: {capacity: 0.3, assumedAge: 10},
}

// ParseMemberType accepts any casing of ADULT, TEEN or CHILD.
func ParseMemberType(s string) (MemberType, error) {
	t := MemberType(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := memberProfiles[t]; !ok {
		return "", fmt.Errorf("unknown member type: %q", s)
	}
	return t, nil
}

func (t MemberType) Valid() bool {
	_, ok := memberProfiles[t]
	return ok
}

// CapacityWeight returns the multiplier applied to a member's scoring subtotal.
// Unknown types get zero capacity.
func (t MemberType) CapacityWeight() float64 {
	return memberProfiles[t].capacity
}

// AssumedAge returns the age bracket used for task minimum-age checks.
func (t MemberType) AssumedAge() int {
	return memberProfiles[t].assumedAge
}

type Member struct {
	ID          int64      `json:"id"`
	HouseholdID int64      `json:"household_id"`
	Name        string     `json:"name"`
	Type        MemberType `json:"type"`
	IsActive    bool       `json:"is_active"`
	XP          int        `json:"xp"`
	Level       int        `json:"level"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
