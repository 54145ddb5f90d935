// Package points turns task completions into points and xp into levels.
package points

import (
	"math"

	"github.com/dukerupert/fairshare/internal/model"
)

const (
	PointsPerWeight = 10
	OnTimeBonus     = 0.2
	StreakBonus     = 0.05
	MaxStreakBonus  = 0.5
	// XPPerLevel scales the level curve: level n starts at XPPerLevel*(n-1)^2.
	XPPerLevel = 100
)

var frequencyMultiplier = map[model.Frequency]float64{
	model.FrequencyDaily:    1.0,
	model.FrequencyWeekly:   1.5,
	model.FrequencyBiweekly: 2.0,
	model.FrequencyMonthly:  3.0,
	model.FrequencyOnce:     1.0,
}

// Calculator is the default points engine.
type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// CalculatePoints scales the task weight by frequency, then adds bonuses for
// finishing on time and for the member's current streak. The result is
// never below 1.
func (c *Calculator) CalculatePoints(weight int, frequency model.Frequency, onTime bool, streakDays int) int {
	if weight < 1 {
		weight = 1
	}
	mult, ok := frequencyMultiplier[frequency]
	if !ok {
		mult = 1.0
	}
	base := float64(weight*PointsPerWeight) * mult

	bonus := 0.0
	if onTime {
		bonus += OnTimeBonus
	}
	if streakDays > 1 {
		bonus += math.Min(float64(streakDays-1)*StreakBonus, MaxStreakBonus)
	}

	pts := int(math.Round(base * (1 + bonus)))
	if pts < 1 {
		return 1
	}
	return pts
}

// LevelFor returns the level for an xp total, starting at 1.
func (c *Calculator) LevelFor(xp int) int {
	if xp <= 0 {
		return 1
	}
	return int(math.Sqrt(float64(xp)/XPPerLevel)) + 1
}
