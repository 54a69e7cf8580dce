// Demo: submits a few sample runs against the in-memory store and prints
// the resulting leaderboard and achievement unlocks.
package main

import (
	"context"
	"fmt"
	"os"

	mem "scorekit/adapters/memory"
	"scorekit/core"
	"scorekit/engine"
	"scorekit/leaderboard"
)

func main() {
	ctx := context.Background()
	svc := engine.New(mem.New(), engine.WithBoard(leaderboard.NewSkipList()))
	defer svc.Close()

	svc.Subscribe(core.EventAchievementUnlocked, func(_ context.Context, e core.Event) {
		fmt.Printf("  unlock: %s -> %s\n", e.UserID, e.AchievementID)
	})
	svc.Subscribe(core.EventStreakMilestone, func(_ context.Context, e core.Event) {
		fmt.Printf("  streak milestone: %s streak=%d bonus=%d\n", e.UserID, e.Streak, e.Bonus)
	})

	runs := []struct {
		user core.UserID
		sub  core.Submission
	}{
		{"ash", core.Submission{SessionID: "s-ash", Level: 1, CoveragePercent: 0.75, TimeTakenSeconds: 95, LivesRemaining: 3, QuizAttempts: 1, CollectibleID: 25, CollectibleName: "pikachu"}},
		{"ash", core.Submission{SessionID: "s-ash", Level: 2, CoveragePercent: 0.82, TimeTakenSeconds: 70, LivesRemaining: 3, QuizAttempts: 1, CollectibleID: 4, CollectibleName: "charmander"}},
		{"ash", core.Submission{SessionID: "s-ash", Level: 3, CoveragePercent: 0.68, TimeTakenSeconds: 110, LivesRemaining: 3, QuizAttempts: 2}},
		{"misty", core.Submission{SessionID: "s-misty", Level: 1, CoveragePercent: 0.91, TimeTakenSeconds: 28, LivesRemaining: 2, QuizAttempts: 1, CollectibleID: 7, CollectibleName: "squirtle"}},
		{"brock", core.Submission{SessionID: "s-brock", Level: 1, CoveragePercent: 0.55, TimeTakenSeconds: 140, LivesRemaining: 1, QuizAttempts: 3}},
	}

	for _, r := range runs {
		res, err := svc.SubmitScore(ctx, r.user, r.sub)
		if err != nil {
			fmt.Fprintf(os.Stderr, "submit %s: %v\n", r.user, err)
			continue
		}
		fmt.Printf("%s level %d -> %d points (rank %d, streak %d)\n",
			r.user, r.sub.Level, res.Breakdown.TotalScore, res.Rankings.GlobalRank, res.Session.CurrentStreak)
	}

	fmt.Println("\nleaderboard:")
	entries, total, err := svc.GlobalLeaderboard(ctx, 10, 0)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Printf("  #%d %-8s %6d (best streak %d)\n", e.Rank, e.UserID, e.TotalScore, e.BestStreak)
	}
	fmt.Printf("players: %d\n", total)
}
