package model

import (
	"fmt"
	"strings"
)

type Preference string

const (
	PreferencePreferred Preference = "PREFERRED"
	PreferenceNeutral   Preference = "NEUTRAL"
	PreferenceDisliked  Preference = "DISLIKED"
)

func ParsePreference(s string) (Preference, error) {
	p := Preference(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case PreferencePreferred, PreferenceNeutral, PreferenceDisliked:
		return p, nil
	}
	return "", fmt.Errorf("unknown preference: %q", s)
}

type MemberPreference struct {
	MemberID   int64      `json:"member_id"`
	TaskID     int64      `json:"task_id"`
	Preference Preference `json:"preference"`
}
