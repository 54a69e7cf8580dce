package core

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"
)

func record(level int, coverage float64, timeTaken, lives, quizAttempts, streak int) ScoreRecord {
	return ScoreRecord{
		Level:            level,
		Breakdown:        ComputeBreakdown(level, coverage, timeTaken, lives, quizAttempts, streak),
		CoveragePercent:  coverage,
		TimeTakenSeconds: timeTaken,
		LivesRemaining:   lives,
		QuizAttempts:     quizAttempts,
	}
}

func TestApplyCompletion_AverageCoverageIsExactMean(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	now := time.Now().UTC()
	stats := NewPlayerStats(UserID("u1"), now)

	var sum float64
	for i := 0; i < 200; i++ {
		cov := rng.Float64()
		sum += cov
		stats.ApplyCompletion(record(1+i%10, cov, 30, MaxLives, 1, i+1), i+1, now)

		mean := sum / float64(i+1)
		if math.Abs(stats.AverageCoverage-mean) > 1e-12 {
			t.Fatalf("after %d submissions: average %v, want %v", i+1, stats.AverageCoverage, mean)
		}
	}
}

func TestApplyCompletion_MonotonicFields(t *testing.T) {
	now := time.Now().UTC()
	stats := NewPlayerStats(UserID("u1"), now)

	stats.ApplyCompletion(record(3, 0.9, 40, MaxLives, 1, 1), 1, now)
	stats.ApplyCompletion(record(2, 0.5, 60, 1, 2, 1), 1, now)

	if stats.HighestLevel != 3 {
		t.Errorf("highest level = %d, want 3", stats.HighestLevel)
	}
	if stats.BestCoverage != 0.9 {
		t.Errorf("best coverage = %v, want 0.9", stats.BestCoverage)
	}
	if stats.FastestLevelSeconds != 40 {
		t.Errorf("fastest level = %d, want 40", stats.FastestLevelSeconds)
	}
	if stats.QuizCorrect != 1 {
		t.Errorf("quiz correct = %d, want 1 (only first-try answers count)", stats.QuizCorrect)
	}
	if stats.QuizAttempts != 3 {
		t.Errorf("quiz attempts = %d, want 3", stats.QuizAttempts)
	}
	if stats.LevelsCompleted != 2 {
		t.Errorf("levels completed = %d, want 2", stats.LevelsCompleted)
	}
	if stats.PlayTimeSeconds != 100 {
		t.Errorf("play time = %d, want 100", stats.PlayTimeSeconds)
	}
}

func TestStreakSequenceAcrossCompletions(t *testing.T) {
	now := time.Now().UTC()
	stats := NewPlayerStats(UserID("u1"), now)

	// Two clean runs, then one with a lost life.
	s1 := NextStreak(stats.CurrentStreak, MaxLives, MaxLives)
	stats.ApplyCompletion(record(1, 0.5, 30, MaxLives, 1, s1), s1, now)
	if stats.CurrentStreak != 1 {
		t.Fatalf("first streak = %d, want 1", stats.CurrentStreak)
	}

	s2 := NextStreak(stats.CurrentStreak, MaxLives, MaxLives)
	stats.ApplyCompletion(record(2, 0.5, 30, MaxLives, 1, s2), s2, now)
	if stats.CurrentStreak != 2 {
		t.Fatalf("second streak = %d, want 2", stats.CurrentStreak)
	}

	s3 := NextStreak(stats.CurrentStreak, 1, MaxLives)
	stats.ApplyCompletion(record(3, 0.5, 30, 1, 1, s3), s3, now)
	if stats.CurrentStreak != 1 {
		t.Fatalf("streak after damage = %d, want 1", stats.CurrentStreak)
	}
	if stats.BestStreak != 2 {
		t.Fatalf("best streak = %d, want 2", stats.BestStreak)
	}
}

func TestNormalizeUserID(t *testing.T) {
	id, err := NormalizeUserID(UserID("  Player-One "))
	if err != nil {
		t.Fatal(err)
	}
	if id != UserID("player-one") {
		t.Fatalf("normalized = %q", id)
	}
	if _, err := NormalizeUserID(UserID("   ")); err == nil {
		t.Fatal("expected error for blank id")
	}
}
