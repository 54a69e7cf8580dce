package core

import (
	"math"
	"time"
)

// RequirementType names the stat an achievement threshold is checked against.
type RequirementType string

const (
	RequireHighestLevel       RequirementType = "highest_level"
	RequireLevelsCompleted    RequirementType = "levels_completed"
	RequireTotalScore         RequirementType = "total_score"
	RequireBestCoverage       RequirementType = "best_coverage"
	RequireFastestLevel       RequirementType = "fastest_level"
	RequireBestStreak         RequirementType = "best_streak"
	RequireQuizCorrect        RequirementType = "quiz_correct"
	RequireTotalTerritory     RequirementType = "total_territory"
	RequireUniqueCollectibles RequirementType = "unique_collectibles"
)

// Achievement is one entry of the static catalog. Immutable after seeding.
type Achievement struct {
	ID          string          `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Icon        string          `json:"icon" db:"icon"`
	Category    string          `json:"category" db:"category"`
	Points      int             `json:"points" db:"points"`
	Requirement RequirementType `json:"requirementType" db:"requirement_type"`
	Threshold   int64           `json:"requirementValue" db:"requirement_value"`
	Hidden      bool            `json:"hidden,omitempty" db:"hidden"`
}

// AchievementProgress is the per-player row for one achievement. UnlockedAt
// stays zero until the threshold is crossed and is stamped exactly once.
type AchievementProgress struct {
	UserID        UserID    `json:"user_id" db:"user_id"`
	AchievementID string    `json:"achievement_id" db:"achievement_id"`
	Progress      int64     `json:"progress" db:"progress"`
	UnlockedAt    time.Time `json:"unlocked_at,omitempty" db:"unlocked_at"`
}

// Unlocked reports whether the achievement has been earned.
func (p AchievementProgress) Unlocked() bool { return !p.UnlockedAt.IsZero() }

// ProgressValue extracts the stat an achievement of the given requirement
// type measures. Coverage is reported on the 0-100 scale the catalog
// thresholds use.
func ProgressValue(req RequirementType, stats PlayerStats) int64 {
	switch req {
	case RequireHighestLevel:
		return int64(stats.HighestLevel)
	case RequireLevelsCompleted:
		return int64(stats.LevelsCompleted)
	case RequireTotalScore:
		return stats.TotalScore
	case RequireBestCoverage:
		return int64(math.Round(stats.BestCoverage * 100))
	case RequireFastestLevel:
		return int64(stats.FastestLevelSeconds)
	case RequireBestStreak:
		return int64(stats.BestStreak)
	case RequireQuizCorrect:
		return int64(stats.QuizCorrect)
	case RequireTotalTerritory:
		return stats.TotalTerritory
	case RequireUniqueCollectibles:
		return int64(stats.UniqueCollectibles)
	}
	return 0
}

// met checks the unlock condition. fastest_level is the one requirement
// where lower is better.
func (a Achievement) met(progress int64) bool {
	if a.Requirement == RequireFastestLevel {
		return progress <= a.Threshold
	}
	return progress >= a.Threshold
}

// EvaluateAchievements checks every not-yet-unlocked catalog entry against
// the updated stats. Progress rows are returned for persistence even when
// nothing unlocks, so locked-achievement UIs can show partial progress.
// Already-unlocked achievements are skipped, making re-evaluation a no-op.
// Newly unlocked achievements are reported in catalog order.
func EvaluateAchievements(catalog []Achievement, prior map[string]AchievementProgress, stats PlayerStats, now time.Time) (updates []AchievementProgress, unlocked []Achievement) {
	for _, a := range catalog {
		row, exists := prior[a.ID]
		if exists && row.Unlocked() {
			continue
		}
		progress := ProgressValue(a.Requirement, stats)
		update := AchievementProgress{
			UserID:        stats.UserID,
			AchievementID: a.ID,
			Progress:      progress,
		}
		if exists {
			update.UnlockedAt = row.UnlockedAt
		}
		if a.met(progress) {
			update.UnlockedAt = now
			unlocked = append(unlocked, a)
		}
		updates = append(updates, update)
	}
	return updates, unlocked
}

// DefaultCatalog returns the seeded achievement catalog.
func DefaultCatalog() []Achievement {
	return []Achievement{
		// Progress
		{ID: "first_level", Name: "First Steps", Description: "Complete your first level", Icon: "🏁", Category: "progress", Points: 10, Requirement: RequireLevelsCompleted, Threshold: 1},
		{ID: "level_5", Name: "Rising Star", Description: "Reach level 5", Icon: "⭐", Category: "progress", Points: 25, Requirement: RequireHighestLevel, Threshold: 5},
		{ID: "level_10", Name: "Veteran", Description: "Reach level 10", Icon: "🌟", Category: "progress", Points: 50, Requirement: RequireHighestLevel, Threshold: 10},
		{ID: "level_15", Name: "Elite", Description: "Reach level 15", Icon: "💫", Category: "progress", Points: 100, Requirement: RequireHighestLevel, Threshold: 15},
		{ID: "level_20", Name: "Legend", Description: "Reach level 20", Icon: "👑", Category: "progress", Points: 200, Requirement: RequireHighestLevel, Threshold: 20},

		// Performance
		{ID: "coverage_80", Name: "Perfectionist", Description: "Achieve 80% coverage in one level", Icon: "🎯", Category: "performance", Points: 25, Requirement: RequireBestCoverage, Threshold: 80},
		{ID: "coverage_90", Name: "Master Claimer", Description: "Achieve 90% coverage in one level", Icon: "💎", Category: "performance", Points: 50, Requirement: RequireBestCoverage, Threshold: 90},
		{ID: "speed_30", Name: "Speed Demon", Description: "Complete a level in under 30 seconds", Icon: "⚡", Category: "performance", Points: 30, Requirement: RequireFastestLevel, Threshold: 30},
		{ID: "speed_20", Name: "Lightning Fast", Description: "Complete a level in under 20 seconds", Icon: "🚀", Category: "performance", Points: 75, Requirement: RequireFastestLevel, Threshold: 20},

		// Streak
		{ID: "streak_3", Name: "Warming Up", Description: "Complete 3 levels in a row without dying", Icon: "🔥", Category: "streak", Points: 15, Requirement: RequireBestStreak, Threshold: 3},
		{ID: "streak_5", Name: "On Fire", Description: "Complete 5 levels in a row without dying", Icon: "💪", Category: "streak", Points: 30, Requirement: RequireBestStreak, Threshold: 5},
		{ID: "streak_10", Name: "Unstoppable", Description: "Complete 10 levels in a row without dying", Icon: "🌋", Category: "streak", Points: 75, Requirement: RequireBestStreak, Threshold: 10},
		{ID: "streak_20", Name: "Immortal", Description: "Complete 20 levels in a row without dying", Icon: "☄️", Category: "streak", Points: 200, Requirement: RequireBestStreak, Threshold: 20},

		// Quiz
		{ID: "quiz_10", Name: "Student", Description: "Answer 10 quiz questions correctly", Icon: "📚", Category: "quiz", Points: 10, Requirement: RequireQuizCorrect, Threshold: 10},
		{ID: "quiz_50", Name: "Professor", Description: "Answer 50 quiz questions correctly", Icon: "🧠", Category: "quiz", Points: 30, Requirement: RequireQuizCorrect, Threshold: 50},
		{ID: "quiz_100", Name: "Quiz Master", Description: "Answer 100 quiz questions correctly", Icon: "🎓", Category: "quiz", Points: 75, Requirement: RequireQuizCorrect, Threshold: 100},

		// Territory
		{ID: "territory_100k", Name: "Homesteader", Description: "Claim 100,000 total pixels", Icon: "🏠", Category: "territory", Points: 15, Requirement: RequireTotalTerritory, Threshold: 100000},
		{ID: "territory_1m", Name: "Land Baron", Description: "Claim 1,000,000 total pixels", Icon: "🏰", Category: "territory", Points: 50, Requirement: RequireTotalTerritory, Threshold: 1000000},
		{ID: "territory_10m", Name: "World Dominator", Description: "Claim 10,000,000 total pixels", Icon: "🌍", Category: "territory", Points: 150, Requirement: RequireTotalTerritory, Threshold: 10000000},

		// Collection
		{ID: "collect_10", Name: "Collector", Description: "Reveal 10 unique collectibles", Icon: "🐾", Category: "collection", Points: 20, Requirement: RequireUniqueCollectibles, Threshold: 10},
		{ID: "collect_50", Name: "Archivist", Description: "Reveal 50 unique collectibles", Icon: "📖", Category: "collection", Points: 50, Requirement: RequireUniqueCollectibles, Threshold: 50},
		{ID: "collect_100", Name: "Completionist", Description: "Reveal 100 unique collectibles", Icon: "🏆", Category: "collection", Points: 150, Requirement: RequireUniqueCollectibles, Threshold: 100},
		{ID: "collect_151", Name: "Gotta See Em All", Description: "Reveal all 151 collectibles", Icon: "✨", Category: "collection", Points: 500, Requirement: RequireUniqueCollectibles, Threshold: 151},

		// Score
		{ID: "score_10k", Name: "Point Scorer", Description: "Reach 10,000 total score", Icon: "💯", Category: "score", Points: 15, Requirement: RequireTotalScore, Threshold: 10000},
		{ID: "score_100k", Name: "High Roller", Description: "Reach 100,000 total score", Icon: "💰", Category: "score", Points: 50, Requirement: RequireTotalScore, Threshold: 100000},
		{ID: "score_1m", Name: "Millionaire", Description: "Reach 1,000,000 total score", Icon: "🤑", Category: "score", Points: 200, Requirement: RequireTotalScore, Threshold: 1000000},
	}
}
