package engine

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"scorekit/core"
	"scorekit/leaderboard"
)

// Service is the submission orchestrator: it owns persistence of player
// stats, score records, sessions, collectibles, and achievement progress,
// and derives the notification events a dispatcher may deliver.
type Service struct {
	store   Store
	bus     *EventBus
	board   leaderboard.Board
	catalog []core.Achievement
	now     func() time.Time
}

// Option configures the Service builder.
type Option func(*Service)

// WithBus sets the event bus used for post-commit notifications.
func WithBus(b *EventBus) Option { return func(s *Service) { s.bus = b } }

// WithBoard wires an optional leaderboard mirror (in-process skiplist or a
// Redis sorted set) that is updated best-effort after each commit.
func WithBoard(b leaderboard.Board) Option { return func(s *Service) { s.board = b } }

// WithCatalog overrides the achievement catalog.
func WithCatalog(c []core.Achievement) Option { return func(s *Service) { s.catalog = c } }

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// New builds a Service around the given store. Defaults: sync event bus,
// seeded achievement catalog, no leaderboard mirror.
func New(store Store, opts ...Option) *Service {
	if store == nil {
		panic("engine.New requires a non-nil store")
	}
	s := &Service{
		store:   store,
		catalog: core.DefaultCatalog(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	if s.bus == nil {
		s.bus = NewEventBus(DispatchSync)
	}
	return s
}

// Catalog returns the static achievement catalog.
func (s *Service) Catalog() []core.Achievement { return s.catalog }

// Subscribe convenience method.
func (s *Service) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	return s.bus.Subscribe(typ, handler)
}

// Close stops the event bus workers.
func (s *Service) Close() { s.bus.Close() }

// SubmitScore converts a raw level-completion event into a persisted,
// scored submission. Validation and the anti-cheat floor run before any
// write; the persistence steps execute as one atomic unit per player.
// Notification events are published only after that unit commits.
func (s *Service) SubmitScore(ctx context.Context, user core.UserID, sub core.Submission) (core.SubmissionResult, error) {
	user, err := core.NormalizeUserID(user)
	if err != nil {
		return core.SubmissionResult{}, core.Validationf("invalid user id: %v", err)
	}
	if err := sub.Validate(); err != nil {
		return core.SubmissionResult{}, err
	}

	var result core.SubmissionResult
	err = s.store.UpdatePlayer(ctx, user, func(tx Tx) error {
		now := s.now()

		stats, ok, err := tx.PlayerStats(user)
		if err != nil {
			return err
		}
		if !ok {
			stats = core.NewPlayerStats(user, now)
		}
		priorBest := stats.BestGameScore
		priorHighest := stats.HighestLevel

		streak := core.NextStreak(stats.CurrentStreak, sub.LivesRemaining, core.MaxLives)
		breakdown := core.ComputeBreakdown(sub.Level, sub.CoveragePercent, sub.TimeTakenSeconds, sub.LivesRemaining, sub.QuizAttempts, streak)

		previousRank, err := tx.PlayerRank(user)
		if err != nil {
			return err
		}

		rec := core.ScoreRecord{
			ID:               uuid.NewString(),
			UserID:           user,
			GameID:           sub.GameID,
			SessionID:        sub.SessionID,
			Level:            sub.Level,
			Breakdown:        breakdown,
			CoveragePercent:  sub.CoveragePercent,
			TimeTakenSeconds: sub.TimeTakenSeconds,
			LivesRemaining:   sub.LivesRemaining,
			QuizAttempts:     sub.QuizAttempts,
			CollectibleID:    sub.CollectibleID,
			CollectibleName:  sub.CollectibleName,
			CreatedAt:        now,
		}
		if err := tx.AppendScore(rec); err != nil {
			return err
		}

		stats.ApplyCompletion(rec, streak, now)

		sess, ok, err := tx.Session(sub.SessionID)
		if err != nil {
			return err
		}
		if !ok {
			sess = core.GameSession{ID: sub.SessionID, UserID: user, GameID: sub.GameID, StartedAt: now}
		}
		sess.Accumulate(breakdown.TotalScore, sub.Level, streak)
		if err := tx.SaveSession(sess); err != nil {
			return err
		}

		reveal := core.CollectibleReveal{
			CollectibleID:   sub.CollectibleID,
			CollectibleName: sub.CollectibleName,
			CollectionCount: stats.UniqueCollectibles,
			CollectionTotal: core.CollectionTotal,
		}
		if sub.CollectibleID != 0 {
			col, seen, err := tx.Collectible(user, sub.CollectibleID)
			if err != nil {
				return err
			}
			if seen {
				col.TimesRevealed++
				if sub.CoveragePercent > col.BestCoverage {
					col.BestCoverage = sub.CoveragePercent
				}
				if sub.TimeTakenSeconds < col.FastestRevealSeconds {
					col.FastestRevealSeconds = sub.TimeTakenSeconds
				}
			} else {
				col = core.CollectibleProgress{
					UserID:               user,
					CollectibleID:        sub.CollectibleID,
					FirstRevealedAt:      now,
					TimesRevealed:        1,
					BestCoverage:         sub.CoveragePercent,
					FastestRevealSeconds: sub.TimeTakenSeconds,
				}
				stats.UniqueCollectibles++
				reveal.IsNewReveal = true
				reveal.CollectionCount = stats.UniqueCollectibles
			}
			if err := tx.SaveCollectible(col); err != nil {
				return err
			}
		}

		prior, err := tx.AchievementProgress(user)
		if err != nil {
			return err
		}
		updates, unlocked := core.EvaluateAchievements(s.catalog, prior, stats, now)
		for _, u := range updates {
			if err := tx.SaveAchievementProgress(u); err != nil {
				return err
			}
		}

		if err := tx.SavePlayerStats(stats); err != nil {
			return err
		}

		newRank, err := tx.PlayerRank(user)
		if err != nil {
			return err
		}

		result = core.SubmissionResult{
			ScoreID:   rec.ID,
			Breakdown: breakdown,
			Session: core.SessionSummary{
				SessionID:       sess.ID,
				SessionScore:    sess.TotalScore,
				LevelsCompleted: sess.LevelsCompleted,
				CurrentStreak:   streak,
			},
			Rankings: core.RankInfo{
				GlobalRank:        newRank,
				PreviousRank:      previousRank,
				RankChange:        previousRank - newRank,
				IsNewPersonalBest: breakdown.TotalScore > priorBest,
				IsNewLevelBest:    sub.Level > priorHighest,
			},
			Unlocked:    unlocked,
			Collectible: reveal,
		}
		return nil
	})
	if err != nil {
		if core.CodeOf(err) == core.CodePersistence {
			return core.SubmissionResult{}, core.Persistencef(err, "submit score")
		}
		return core.SubmissionResult{}, err
	}

	s.afterSubmit(ctx, user, sub, result)
	return result, nil
}

// afterSubmit runs the fire-and-forget side of a committed submission:
// leaderboard mirror update and notification events.
func (s *Service) afterSubmit(ctx context.Context, user core.UserID, sub core.Submission, result core.SubmissionResult) {
	if s.board != nil {
		if stats, ok, err := s.store.PlayerStats(ctx, user); err == nil && ok {
			s.board.Update(user, stats.TotalScore)
		}
	}

	s.bus.Publish(ctx, core.NewScoreSubmitted(user, result.Breakdown.TotalScore, sub.Level, result.Rankings.GlobalRank))

	r := result.Rankings
	if r.RankChange != 0 && (r.GlobalRank <= 10 || r.GlobalRank < r.PreviousRank) {
		s.bus.Publish(ctx, core.NewRankChange(user, r.PreviousRank, r.GlobalRank))
	}
	for _, a := range result.Unlocked {
		s.bus.Publish(ctx, core.NewAchievementUnlocked(user, a.ID))
	}
	if result.Collectible.IsNewReveal {
		s.bus.Publish(ctx, core.NewCollectibleRevealed(user, result.Collectible.CollectibleID, result.Collectible.CollectionCount))
	}
	if result.Breakdown.StreakBonus > 0 {
		s.bus.Publish(ctx, core.NewStreakMilestone(user, result.Session.CurrentStreak, result.Breakdown.StreakBonus))
	}
}

// StartSession opens a new play session and counts it against the player's
// games-played total.
func (s *Service) StartSession(ctx context.Context, user core.UserID, gameID string) (string, error) {
	user, err := core.NormalizeUserID(user)
	if err != nil {
		return "", core.Validationf("invalid user id: %v", err)
	}
	sessionID := uuid.NewString()
	err = s.store.UpdatePlayer(ctx, user, func(tx Tx) error {
		now := s.now()
		stats, ok, err := tx.PlayerStats(user)
		if err != nil {
			return err
		}
		if !ok {
			stats = core.NewPlayerStats(user, now)
		}
		stats.GamesPlayed++
		stats.UpdatedAt = now
		if err := tx.SavePlayerStats(stats); err != nil {
			return err
		}
		return tx.SaveSession(core.GameSession{ID: sessionID, UserID: user, GameID: gameID, StartedAt: now})
	})
	if err != nil {
		return "", err
	}
	return sessionID, nil
}

// EndSession closes a session, folds its total into the player's best
// single-game score, and returns the final summary.
func (s *Service) EndSession(ctx context.Context, sessionID string) (core.GameSession, error) {
	sess, ok, err := s.store.Session(ctx, sessionID)
	if err != nil {
		return core.GameSession{}, err
	}
	if !ok {
		return core.GameSession{}, core.NotFoundf("session %s not found", sessionID)
	}

	var closed core.GameSession
	err = s.store.UpdatePlayer(ctx, sess.UserID, func(tx Tx) error {
		now := s.now()
		sess, ok, err := tx.Session(sessionID)
		if err != nil {
			return err
		}
		if !ok {
			return core.NotFoundf("session %s not found", sessionID)
		}
		if !sess.Ended() {
			sess.EndedAt = now
			if err := tx.SaveSession(sess); err != nil {
				return err
			}
			stats, ok, err := tx.PlayerStats(sess.UserID)
			if err != nil {
				return err
			}
			if ok && sess.TotalScore > stats.BestGameScore {
				stats.BestGameScore = sess.TotalScore
				stats.UpdatedAt = now
				if err := tx.SavePlayerStats(stats); err != nil {
					return err
				}
			}
		}
		closed = sess
		return nil
	})
	if err != nil {
		return core.GameSession{}, err
	}
	return closed, nil
}

// PlayerRank returns the player's 1-based global rank by total score.
func (s *Service) PlayerRank(ctx context.Context, user core.UserID) (int, error) {
	return s.store.PlayerRank(ctx, user)
}

// GlobalLeaderboard reads the authoritative all-time board from the store.
func (s *Service) GlobalLeaderboard(ctx context.Context, limit, offset int) ([]core.LeaderboardEntry, int, error) {
	entries, err := s.store.TopPlayers(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.PlayerCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// LevelLeaderboard lists the best score records for one level.
func (s *Service) LevelLeaderboard(ctx context.Context, level, limit, offset int) ([]core.ScoreRecord, error) {
	if level < 1 {
		return nil, core.Validationf("level must be >= 1")
	}
	return s.store.LevelTop(ctx, level, limit, offset)
}

// AroundMe is the leaderboard window centered on one player.
type AroundMe struct {
	Rank       int                     `json:"rank"`
	TotalScore int64                   `json:"totalScore"`
	Percentile float64                 `json:"percentile"`
	Above      []core.LeaderboardEntry `json:"above"`
	Below      []core.LeaderboardEntry `json:"below"`
}

// Around returns up to n neighbors on each side of the player's position.
func (s *Service) Around(ctx context.Context, user core.UserID, n int) (AroundMe, error) {
	stats, ok, err := s.store.PlayerStats(ctx, user)
	if err != nil {
		return AroundMe{}, err
	}
	if !ok {
		return AroundMe{}, nil
	}
	rank, err := s.store.PlayerRank(ctx, user)
	if err != nil {
		return AroundMe{}, err
	}
	total, err := s.store.PlayerCount(ctx)
	if err != nil {
		return AroundMe{}, err
	}
	above, below, err := s.store.Neighbors(ctx, stats.TotalScore, n)
	if err != nil {
		return AroundMe{}, err
	}
	for i := range above {
		above[i].Rank = rank - (len(above) - i)
	}
	for i := range below {
		below[i].Rank = rank + i + 1
	}
	percentile := 0.0
	if total > 0 {
		percentile = math.Round(float64(total-rank)/float64(total)*1000) / 10
	}
	return AroundMe{Rank: rank, TotalScore: stats.TotalScore, Percentile: percentile, Above: above, Below: below}, nil
}

// PlayerSummary bundles a player's aggregates with rank context.
type PlayerSummary struct {
	Stats          core.PlayerStats   `json:"stats"`
	Rank           int                `json:"rank"`
	TotalPlayers   int                `json:"totalPlayers"`
	RecentSessions []core.GameSession `json:"recentSessions"`
}

// Summary returns the player's stats, rank, and recent sessions.
func (s *Service) Summary(ctx context.Context, user core.UserID) (PlayerSummary, error) {
	stats, ok, err := s.store.PlayerStats(ctx, user)
	if err != nil {
		return PlayerSummary{}, err
	}
	if !ok {
		return PlayerSummary{Stats: core.NewPlayerStats(user, s.now())}, nil
	}
	rank, err := s.store.PlayerRank(ctx, user)
	if err != nil {
		return PlayerSummary{}, err
	}
	total, err := s.store.PlayerCount(ctx)
	if err != nil {
		return PlayerSummary{}, err
	}
	recent, err := s.store.RecentSessions(ctx, user, 10)
	if err != nil {
		return PlayerSummary{}, err
	}
	return PlayerSummary{Stats: stats, Rank: rank, TotalPlayers: total, RecentSessions: recent}, nil
}

// AchievementsView splits the catalog into unlocked and locked entries with
// the player's progress attached to the locked ones.
type AchievementsView struct {
	Unlocked    []UnlockedAchievement `json:"unlocked"`
	Locked      []LockedAchievement   `json:"locked"`
	TotalPoints int                   `json:"totalPoints"`
	MaxPoints   int                   `json:"maxPoints"`
}

type UnlockedAchievement struct {
	core.Achievement
	UnlockedAt time.Time `json:"unlockedAt"`
}

type LockedAchievement struct {
	core.Achievement
	Progress int64 `json:"progress"`
}

// Achievements returns the per-player achievement view in catalog order.
func (s *Service) Achievements(ctx context.Context, user core.UserID) (AchievementsView, error) {
	progress, err := s.store.AchievementProgress(ctx, user)
	if err != nil {
		return AchievementsView{}, err
	}
	var view AchievementsView
	for _, a := range s.catalog {
		view.MaxPoints += a.Points
		p, ok := progress[a.ID]
		if ok && p.Unlocked() {
			view.Unlocked = append(view.Unlocked, UnlockedAchievement{Achievement: a, UnlockedAt: p.UnlockedAt})
			view.TotalPoints += a.Points
			continue
		}
		view.Locked = append(view.Locked, LockedAchievement{Achievement: a, Progress: p.Progress})
	}
	return view, nil
}

// LiveTop serves the low-latency leaderboard mirror when one is wired;
// callers needing authoritative ordering use GlobalLeaderboard.
func (s *Service) LiveTop(n int) []leaderboard.Entry {
	if s.board == nil {
		return nil
	}
	return s.board.TopN(n)
}

// WarmBoard backfills the leaderboard mirror from the store, typically at
// process start.
func (s *Service) WarmBoard(ctx context.Context, limit int) error {
	if s.board == nil {
		return nil
	}
	entries, err := s.store.TopPlayers(ctx, limit, 0)
	if err != nil {
		return err
	}
	for _, e := range entries {
		s.board.Update(e.UserID, e.TotalScore)
	}
	return nil
}
