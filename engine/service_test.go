package engine_test

import (
	"context"
	"testing"

	mem "scorekit/adapters/memory"
	"scorekit/core"
	"scorekit/engine"
	"scorekit/leaderboard"
)

func newService(t *testing.T, opts ...engine.Option) (*engine.Service, *mem.Store) {
	t.Helper()
	store := mem.New()
	opts = append([]engine.Option{engine.WithBus(engine.NewEventBus(engine.DispatchSync))}, opts...)
	svc := engine.New(store, opts...)
	t.Cleanup(svc.Close)
	return svc, store
}

func cleanRun(session string, level int) core.Submission {
	return core.Submission{
		SessionID:        session,
		Level:            level,
		CoveragePercent:  0.75,
		TimeTakenSeconds: 120,
		LivesRemaining:   core.MaxLives,
		QuizAttempts:     1,
	}
}

func TestSubmitScore_FirstSubmission(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	res, err := svc.SubmitScore(ctx, core.UserID("Alice"), cleanRun("s1", 1))
	if err != nil {
		t.Fatal(err)
	}

	if res.Breakdown.TotalScore != 2220 {
		t.Fatalf("total score = %d, want 2220", res.Breakdown.TotalScore)
	}
	if res.Session.CurrentStreak != 1 {
		t.Fatalf("streak = %d, want 1", res.Session.CurrentStreak)
	}
	if res.Rankings.GlobalRank != 1 || res.Rankings.PreviousRank != 1 {
		t.Fatalf("rankings = %+v", res.Rankings)
	}
	if !res.Rankings.IsNewLevelBest {
		t.Fatal("first completion should be a level best")
	}

	// first_level unlocks on the very first completion
	found := false
	for _, a := range res.Unlocked {
		if a.ID == "first_level" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected first_level unlock, got %+v", res.Unlocked)
	}

	// user id normalized before persistence
	stats, ok, _ := store.PlayerStats(ctx, core.UserID("alice"))
	if !ok {
		t.Fatal("stats row missing")
	}
	if stats.TotalScore != 2220 || stats.LevelsCompleted != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestSubmitScore_AntiCheatLeavesNoState(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	sub := cleanRun("s1", 1)
	sub.TimeTakenSeconds = 3
	_, err := svc.SubmitScore(ctx, core.UserID("bob"), sub)
	if core.CodeOf(err) != core.CodeScoreRejected {
		t.Fatalf("expected SCORE_REJECTED, got %v", err)
	}

	if _, ok, _ := store.PlayerStats(ctx, core.UserID("bob")); ok {
		t.Fatal("rejected submission must not create stats")
	}
	if _, ok, _ := store.Session(ctx, "s1"); ok {
		t.Fatal("rejected submission must not create a session")
	}
}

func TestSubmitScore_ValidationErrors(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	sub := cleanRun("s1", 1)
	sub.CoveragePercent = 1.2
	if _, err := svc.SubmitScore(ctx, core.UserID("bob"), sub); core.CodeOf(err) != core.CodeValidation {
		t.Fatalf("coverage out of range: got %v", err)
	}

	sub = cleanRun("", 1)
	if _, err := svc.SubmitScore(ctx, core.UserID("bob"), sub); core.CodeOf(err) != core.CodeValidation {
		t.Fatalf("missing session: got %v", err)
	}
}

func TestSubmitScore_StreakSequence(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	user := core.UserID("carol")

	res, err := svc.SubmitScore(ctx, user, cleanRun("s1", 1))
	if err != nil {
		t.Fatal(err)
	}
	if res.Session.CurrentStreak != 1 {
		t.Fatalf("first streak = %d, want 1", res.Session.CurrentStreak)
	}

	res, err = svc.SubmitScore(ctx, user, cleanRun("s1", 2))
	if err != nil {
		t.Fatal(err)
	}
	if res.Session.CurrentStreak != 2 {
		t.Fatalf("second streak = %d, want 2", res.Session.CurrentStreak)
	}

	damaged := cleanRun("s1", 3)
	damaged.LivesRemaining = 1
	res, err = svc.SubmitScore(ctx, user, damaged)
	if err != nil {
		t.Fatal(err)
	}
	if res.Session.CurrentStreak != 1 {
		t.Fatalf("streak after damage = %d, want 1", res.Session.CurrentStreak)
	}
}

func TestRankInvariant(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	// u1 scores twice, u2 once, u3 matches u2 exactly.
	mustSubmit(t, svc, "u1", cleanRun("a", 1))
	mustSubmit(t, svc, "u1", cleanRun("a", 2))
	mustSubmit(t, svc, "u2", cleanRun("b", 1))
	mustSubmit(t, svc, "u3", cleanRun("c", 1))

	r1, _ := store.PlayerRank(ctx, core.UserID("u1"))
	r2, _ := store.PlayerRank(ctx, core.UserID("u2"))
	r3, _ := store.PlayerRank(ctx, core.UserID("u3"))

	if r1 != 1 {
		t.Fatalf("rank(u1) = %d, want 1", r1)
	}
	if r2 != r3 {
		t.Fatalf("equal scores must share a rank: %d vs %d", r2, r3)
	}
	if r2 != 2 {
		t.Fatalf("rank(u2) = %d, want 2", r2)
	}
}

func TestSessionLifecycle(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	user := core.UserID("dave")

	sessionID, err := svc.StartSession(ctx, user, "")
	if err != nil {
		t.Fatal(err)
	}
	stats, _, _ := store.PlayerStats(ctx, user)
	if stats.GamesPlayed != 1 {
		t.Fatalf("games played = %d, want 1", stats.GamesPlayed)
	}

	sub := cleanRun(sessionID, 1)
	mustSubmit(t, svc, string(user), sub)
	mustSubmit(t, svc, string(user), cleanRun(sessionID, 2))

	closed, err := svc.EndSession(ctx, sessionID)
	if err != nil {
		t.Fatal(err)
	}
	if !closed.Ended() {
		t.Fatal("session should be closed")
	}
	if closed.LevelsCompleted != 2 {
		t.Fatalf("levels completed = %d, want 2", closed.LevelsCompleted)
	}

	stats, _, _ = store.PlayerStats(ctx, user)
	if stats.BestGameScore != closed.TotalScore {
		t.Fatalf("best game score = %d, want %d", stats.BestGameScore, closed.TotalScore)
	}

	if _, err := svc.EndSession(ctx, "no-such-session"); core.CodeOf(err) != core.CodeNotFound {
		t.Fatalf("unknown session: got %v", err)
	}
}

func TestSubmitScore_CollectibleReveal(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	user := core.UserID("erin")

	sub := cleanRun("s1", 1)
	sub.CollectibleID = 25
	sub.CollectibleName = "sparkmouse"

	res, err := svc.SubmitScore(ctx, user, sub)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Collectible.IsNewReveal || res.Collectible.CollectionCount != 1 {
		t.Fatalf("first reveal: %+v", res.Collectible)
	}

	res, err = svc.SubmitScore(ctx, user, sub)
	if err != nil {
		t.Fatal(err)
	}
	if res.Collectible.IsNewReveal {
		t.Fatal("second sighting of the same collectible is not a new reveal")
	}
	if res.Collectible.CollectionCount != 1 {
		t.Fatalf("collection count = %d, want 1", res.Collectible.CollectionCount)
	}
}

func TestSubmitScore_PublishesEvents(t *testing.T) {
	svc, _ := newService(t)
	user := core.UserID("frank")

	var milestones, unlocks, submitted int
	svc.Subscribe(core.EventStreakMilestone, func(_ context.Context, e core.Event) { milestones++ })
	svc.Subscribe(core.EventAchievementUnlocked, func(_ context.Context, e core.Event) { unlocks++ })
	svc.Subscribe(core.EventScoreSubmitted, func(_ context.Context, e core.Event) { submitted++ })

	// Three clean runs reach streak 3, the first milestone with a bonus.
	mustSubmit(t, svc, string(user), cleanRun("s1", 1))
	mustSubmit(t, svc, string(user), cleanRun("s1", 2))
	mustSubmit(t, svc, string(user), cleanRun("s1", 3))

	if submitted != 3 {
		t.Fatalf("score_submitted events = %d, want 3", submitted)
	}
	if milestones != 1 {
		t.Fatalf("streak_milestone events = %d, want 1", milestones)
	}
	if unlocks == 0 {
		t.Fatal("expected at least one achievement_unlocked event")
	}
}

func TestAchievementUnlockIdempotentAcrossSubmissions(t *testing.T) {
	svc, _ := newService(t)
	user := "gina"

	res1 := mustSubmit(t, svc, user, cleanRun("s1", 1))
	firstUnlocks := map[string]bool{}
	for _, a := range res1.Unlocked {
		firstUnlocks[a.ID] = true
	}
	if !firstUnlocks["first_level"] {
		t.Fatal("first submission should unlock first_level")
	}

	res2 := mustSubmit(t, svc, user, cleanRun("s1", 1))
	for _, a := range res2.Unlocked {
		if firstUnlocks[a.ID] {
			t.Fatalf("achievement %s unlocked twice", a.ID)
		}
	}
}

func TestBoardMirror(t *testing.T) {
	board := leaderboard.NewSkipList()
	svc, _ := newService(t, engine.WithBoard(board))

	mustSubmit(t, svc, "u1", cleanRun("a", 2))
	mustSubmit(t, svc, "u2", cleanRun("b", 1))

	top := svc.LiveTop(2)
	if len(top) != 2 {
		t.Fatalf("live top size = %d, want 2", len(top))
	}
	if top[0].User != core.UserID("u1") {
		t.Fatalf("live top order: %+v", top)
	}
}

func TestAround(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	mustSubmit(t, svc, "u1", cleanRun("a", 3))
	mustSubmit(t, svc, "u2", cleanRun("b", 2))
	mustSubmit(t, svc, "u3", cleanRun("c", 1))

	view, err := svc.Around(ctx, core.UserID("u2"), 5)
	if err != nil {
		t.Fatal(err)
	}
	if view.Rank != 2 {
		t.Fatalf("rank = %d, want 2", view.Rank)
	}
	if len(view.Above) != 1 || view.Above[0].UserID != core.UserID("u1") || view.Above[0].Rank != 1 {
		t.Fatalf("above = %+v", view.Above)
	}
	if len(view.Below) != 1 || view.Below[0].UserID != core.UserID("u3") || view.Below[0].Rank != 3 {
		t.Fatalf("below = %+v", view.Below)
	}
}

func mustSubmit(t *testing.T, svc *engine.Service, user string, sub core.Submission) core.SubmissionResult {
	t.Helper()
	res, err := svc.SubmitScore(context.Background(), core.UserID(user), sub)
	if err != nil {
		t.Fatal(err)
	}
	return res
}
