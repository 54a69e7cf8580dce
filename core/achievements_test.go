package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func progressMap(rows []AchievementProgress) map[string]AchievementProgress {
	m := make(map[string]AchievementProgress, len(rows))
	for _, r := range rows {
		m[r.AchievementID] = r
	}
	return m
}

func TestEvaluateAchievements_UnlocksInCatalogOrder(t *testing.T) {
	now := time.Now().UTC()
	stats := PlayerStats{
		UserID:              UserID("u1"),
		HighestLevel:        5,
		LevelsCompleted:     1,
		TotalScore:          12000,
		FastestLevelSeconds: 25,
		BestStreak:          1,
	}

	updates, unlocked := EvaluateAchievements(DefaultCatalog(), nil, stats, now)
	require.Len(t, updates, len(DefaultCatalog()))

	var ids []string
	for _, a := range unlocked {
		ids = append(ids, a.ID)
	}
	// Catalog order: first_level, level_5, speed_30, score_10k.
	assert.Equal(t, []string{"first_level", "level_5", "speed_30", "score_10k"}, ids)

	for _, u := range updates {
		if u.AchievementID == "level_10" {
			assert.False(t, u.Unlocked())
			assert.EqualValues(t, 5, u.Progress, "locked achievements still record progress")
		}
	}
}

func TestEvaluateAchievements_IdempotentUnlock(t *testing.T) {
	now := time.Now().UTC()
	stats := PlayerStats{UserID: UserID("u1"), LevelsCompleted: 1, FastestLevelSeconds: NoFastestTime}

	updates, unlocked := EvaluateAchievements(DefaultCatalog(), nil, stats, now)
	require.NotEmpty(t, unlocked)
	assert.Equal(t, "first_level", unlocked[0].ID)

	// Re-evaluating with the same crossing stats unlocks nothing new and
	// leaves the earlier timestamp untouched.
	later := now.Add(time.Hour)
	updates2, unlocked2 := EvaluateAchievements(DefaultCatalog(), progressMap(updates), stats, later)
	assert.Empty(t, unlocked2)
	for _, u := range updates2 {
		assert.NotEqual(t, "first_level", u.AchievementID, "unlocked achievements are skipped entirely")
	}
}

func TestEvaluateAchievements_FastestLevelLowerIsBetter(t *testing.T) {
	now := time.Now().UTC()
	catalog := []Achievement{{ID: "speed_30", Requirement: RequireFastestLevel, Threshold: 30}}

	// Fresh player: sentinel fastest time must not unlock a speed achievement.
	fresh := NewPlayerStats(UserID("u1"), now)
	_, unlocked := EvaluateAchievements(catalog, nil, fresh, now)
	assert.Empty(t, unlocked)

	fresh.FastestLevelSeconds = 29
	_, unlocked = EvaluateAchievements(catalog, nil, fresh, now)
	require.Len(t, unlocked, 1)
	assert.Equal(t, "speed_30", unlocked[0].ID)
}

func TestEvaluateAchievements_CoverageUsesPercentScale(t *testing.T) {
	now := time.Now().UTC()
	catalog := []Achievement{{ID: "coverage_80", Requirement: RequireBestCoverage, Threshold: 80}}

	stats := PlayerStats{UserID: UserID("u1"), BestCoverage: 0.79}
	_, unlocked := EvaluateAchievements(catalog, nil, stats, now)
	assert.Empty(t, unlocked)

	stats.BestCoverage = 0.80
	_, unlocked = EvaluateAchievements(catalog, nil, stats, now)
	assert.Len(t, unlocked, 1)
}
