// Package fairness ranks household members for a task.
//
// Scoring is a greedy, explainable heuristic: hard exclusions remove
// candidates outright, then every survivor starts from a base score that is
// adjusted for preference, current load and how long ago they last did the
// task, and finally weighted by the member type's capacity.
package fairness

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/dukerupert/fairshare/internal/model"
	"github.com/dukerupert/fairshare/internal/schedule"
)

const (
	BaseScore       = 100
	PreferenceBonus = 20
	LoadPenalty     = 5
	MaxRecencyBonus = 14
)

// Candidate is everything the scorer needs to know about one member.
type Candidate struct {
	Member          model.Member
	Preference      model.Preference
	OpenAssignments int
	LastCompleted   *time.Time
	Absences        []model.MemberAbsence
}

type Options struct {
	// OnlyAdults restricts the pool to ADULT members. Adults are assumed
	// capable of any task, so the minimum-age check is skipped.
	OnlyAdults bool
}

// Ranked is a scored, eligible candidate.
type Ranked struct {
	MemberID   int64            `json:"member_id"`
	MemberName string           `json:"member_name"`
	MemberType model.MemberType `json:"member_type"`
	Score      int              `json:"score"`
	Subtotal   int              `json:"subtotal"`
	Reasons    []string         `json:"reasons"`
}

// Exclusion names a member removed before scoring and why.
type Exclusion struct {
	MemberID int64  `json:"member_id"`
	Reason   string `json:"reason"`
}

type Result struct {
	Ranked   []Ranked    `json:"ranked"`
	Excluded []Exclusion `json:"excluded"`
	// AdultFallback is set when the first pass left nobody and the
	// adults-only pass produced the ranking.
	AdultFallback bool `json:"adult_fallback"`
}

// Best returns the top-ranked candidate.
func (r Result) Best() (Ranked, bool) {
	if len(r.Ranked) == 0 {
		return Ranked{}, false
	}
	return r.Ranked[0], true
}

// Contains reports whether memberID is among the ranked candidates.
func (r Result) Contains(memberID int64) bool {
	for _, c := range r.Ranked {
		if c.MemberID == memberID {
			return true
		}
	}
	return false
}

// Score ranks pool for task on target's calendar day. target must already be
// in the household's location. Candidates are ordered by score, highest
// first; equal scores are ordered by ascending member id.
//
// If nobody survives the first pass, the pool is re-scored with adults only.
// An empty Ranked slice in the result means no member is eligible.
func Score(task model.Task, pool []Candidate, target time.Time, opts Options) Result {
	res := rank(task, pool, target, opts.OnlyAdults)
	if len(res.Ranked) == 0 && !opts.OnlyAdults {
		res = rank(task, pool, target, true)
		res.AdultFallback = true
	}
	return res
}

func rank(task model.Task, pool []Candidate, target time.Time, onlyAdults bool) Result {
	var res Result
	for _, c := range pool {
		if reason, excluded := exclusion(task, c, target, onlyAdults); excluded {
			res.Excluded = append(res.Excluded, Exclusion{MemberID: c.Member.ID, Reason: reason})
			continue
		}
		res.Ranked = append(res.Ranked, score(c, target))
	}
	sort.SliceStable(res.Ranked, func(i, j int) bool {
		if res.Ranked[i].Score != res.Ranked[j].Score {
			return res.Ranked[i].Score > res.Ranked[j].Score
		}
		return res.Ranked[i].MemberID < res.Ranked[j].MemberID
	})
	return res
}

func exclusion(task model.Task, c Candidate, target time.Time, onlyAdults bool) (string, bool) {
	m := c.Member
	if !m.IsActive {
		return "inactive", true
	}
	for _, a := range c.Absences {
		if a.MemberID == m.ID && a.Covers(target) {
			return fmt.Sprintf("absent %s to %s", model.DateKey(a.StartDate), model.DateKey(a.EndDate)), true
		}
	}
	if onlyAdults {
		if m.Type != model.MemberAdult {
			return "adults only", true
		}
		return "", false
	}
	if task.MinAge != nil && m.Type.AssumedAge() < *task.MinAge {
		return fmt.Sprintf("below minimum age %d", *task.MinAge), true
	}
	return "", false
}

func score(c Candidate, target time.Time) Ranked {
	subtotal := BaseScore
	var reasons []string

	switch c.Preference {
	case model.PreferencePreferred:
		subtotal += PreferenceBonus
		reasons = append(reasons, fmt.Sprintf("prefers this task (+%d)", PreferenceBonus))
	case model.PreferenceDisliked:
		subtotal -= PreferenceBonus
		reasons = append(reasons, fmt.Sprintf("dislikes this task (-%d)", PreferenceBonus))
	}

	if c.OpenAssignments > 0 {
		penalty := LoadPenalty * c.OpenAssignments
		subtotal -= penalty
		reasons = append(reasons, fmt.Sprintf("%d open assignments (-%d)", c.OpenAssignments, penalty))
	}

	bonus := RecencyBonus(c.LastCompleted, target)
	subtotal += bonus
	if c.LastCompleted == nil {
		reasons = append(reasons, fmt.Sprintf("never done this task (+%d)", bonus))
	} else {
		reasons = append(reasons, fmt.Sprintf("last done %s (+%d)", model.DateKey(c.LastCompleted.In(target.Location())), bonus))
	}

	weight := c.Member.Type.CapacityWeight()
	final := int(math.Round(float64(subtotal) * weight))
	reasons = append(reasons, fmt.Sprintf("%s capacity x%.1f", c.Member.Type, weight))

	return Ranked{
		MemberID:   c.Member.ID,
		MemberName: c.Member.Name,
		MemberType: c.Member.Type,
		Score:      final,
		Subtotal:   subtotal,
		Reasons:    reasons,
	}
}

// RecencyBonus rewards members who have not done the task recently: one
// point per calendar day since the last completion, capped at
// MaxRecencyBonus. Members who never did it get the cap.
func RecencyBonus(lastCompleted *time.Time, target time.Time) int {
	if lastCompleted == nil {
		return MaxRecencyBonus
	}
	days := schedule.DaysBetween(*lastCompleted, target)
	return min(max(days, 0), MaxRecencyBonus)
}
