package core

import "math"

// Scoring constants. Treat as configuration: every tuning knob of the
// formula lives here.
const (
	territoryMultiplier  = 10  // points per coverage percentage point
	timeBonusBaseSeconds = 120 // finish under this to earn a time bonus
	timeBonusPerSecond   = 5   // points per second saved under the base
	lifeBonusPoints      = 200 // points per remaining life
	quizBonusFirstTry    = 500
	quizBonusSecondTry   = 200
	levelMultiplierBase  = 1.0
	levelMultiplierStep  = 0.2 // multiplier increase per level
)

// streakBonuses maps streak thresholds to flat bonuses, highest first.
// The first threshold the current streak reaches wins.
var streakBonuses = []struct {
	Streak int
	Bonus  int64
}{
	{20, 6000},
	{15, 4000},
	{10, 2500},
	{5, 1000},
	{3, 500},
}

// Breakdown is the full audit trail of one score computation. Every
// intermediate value is kept so clients can display how a total was earned.
type Breakdown struct {
	TerritoryScore  int64   `json:"territoryScore" db:"territory_score"`
	TimeBonus       int64   `json:"timeBonus" db:"time_bonus"`
	LifeBonus       int64   `json:"lifeBonus" db:"life_bonus"`
	QuizBonus       int64   `json:"quizBonus" db:"quiz_bonus"`
	Subtotal        int64   `json:"subtotal" db:"subtotal"`
	LevelMultiplier float64 `json:"levelMultiplier" db:"level_multiplier"`
	LevelScore      int64   `json:"levelScore" db:"level_score"`
	StreakBonus     int64   `json:"streakBonus" db:"streak_bonus"`
	TotalScore      int64   `json:"totalScore" db:"total_score"`
}

// ComputeBreakdown converts the raw inputs of a level completion into a
// deterministic score breakdown. Pure function, no side effects.
//
// coveragePercent is a fraction in [0,1]; currentStreak is the streak value
// credited to this completion (>= 1).
func ComputeBreakdown(level int, coveragePercent float64, timeTakenSeconds, livesRemaining, quizAttempts, currentStreak int) Breakdown {
	territoryScore := int64(math.Round(coveragePercent * 100 * territoryMultiplier))

	timeBonus := int64(math.Round(float64(timeBonusBaseSeconds-timeTakenSeconds) * timeBonusPerSecond))
	if timeBonus < 0 {
		timeBonus = 0
	}

	lifeBonus := int64(livesRemaining) * lifeBonusPoints

	var quizBonus int64
	switch quizAttempts {
	case 1:
		quizBonus = quizBonusFirstTry
	case 2:
		quizBonus = quizBonusSecondTry
	}

	subtotal := territoryScore + timeBonus + lifeBonus + quizBonus
	levelMultiplier := levelMultiplierBase + float64(level)*levelMultiplierStep
	levelScore := int64(math.Round(float64(subtotal) * levelMultiplier))
	streakBonus := StreakBonus(currentStreak)

	return Breakdown{
		TerritoryScore:  territoryScore,
		TimeBonus:       timeBonus,
		LifeBonus:       lifeBonus,
		QuizBonus:       quizBonus,
		Subtotal:        subtotal,
		LevelMultiplier: levelMultiplier,
		LevelScore:      levelScore,
		StreakBonus:     streakBonus,
		TotalScore:      levelScore + streakBonus,
	}
}

// StreakBonus returns the flat bonus for the highest threshold the streak
// has reached, or 0 below the lowest threshold.
func StreakBonus(currentStreak int) int64 {
	for _, sb := range streakBonuses {
		if currentStreak >= sb.Streak {
			return sb.Bonus
		}
	}
	return 0
}

// NextStreak determines the streak credited to a completion. Finishing with
// every life intact extends the prior streak; any lost life restarts the
// count at 1 (this completion counts as streak length one). A player with no
// prior stats row starts from priorStreak 0.
func NextStreak(priorStreak, livesRemaining, maxLives int) int {
	if livesRemaining == maxLives {
		return priorStreak + 1
	}
	return 1
}
