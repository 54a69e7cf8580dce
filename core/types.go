package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

// UserID uniquely identifies a player in the scoring domain.
type UserID string

// Game constants shared by the scoring engine.
const (
	// MaxLives is the number of lives a player starts a level with.
	// Finishing with all of them means no damage was taken this run.
	MaxLives = 3

	// CollectionTotal is the number of distinct collectibles in the catalog.
	CollectionTotal = 151

	// PlayAreaPixels is the size of the playable territory, used to convert
	// a coverage fraction into claimed pixels.
	PlayAreaPixels = 800 * 600

	// NoFastestTime marks a player who has not completed any level yet.
	NoFastestTime = 999999

	// MinCompletionSeconds is the anti-cheat floor: completions faster than
	// this are rejected rather than scored.
	MinCompletionSeconds = 5
)

// PlayerStats is the per-player aggregate row, updated on every submission.
// CoverageSum carries the running sum backing AverageCoverage so the average
// stays an exact arithmetic mean instead of drifting under recomputation.
type PlayerStats struct {
	UserID              UserID    `json:"user_id" db:"user_id"`
	HighestLevel        int       `json:"highest_level" db:"highest_level"`
	LevelsCompleted     int       `json:"levels_completed" db:"levels_completed"`
	GamesPlayed         int       `json:"games_played" db:"games_played"`
	TotalScore          int64     `json:"total_score" db:"total_score"`
	BestGameScore       int64     `json:"best_game_score" db:"best_game_score"`
	TotalTerritory      int64     `json:"total_territory" db:"total_territory"`
	CoverageSum         float64   `json:"coverage_sum" db:"coverage_sum"`
	AverageCoverage     float64   `json:"average_coverage" db:"average_coverage"`
	BestCoverage        float64   `json:"best_coverage" db:"best_coverage"`
	FastestLevelSeconds int       `json:"fastest_level_seconds" db:"fastest_level_seconds"`
	CurrentStreak       int       `json:"current_streak" db:"current_streak"`
	BestStreak          int       `json:"best_streak" db:"best_streak"`
	QuizCorrect         int       `json:"quiz_correct" db:"quiz_correct"`
	QuizAttempts        int       `json:"quiz_attempts" db:"quiz_attempts"`
	PlayTimeSeconds     int64     `json:"play_time_seconds" db:"play_time_seconds"`
	UniqueCollectibles  int       `json:"unique_collectibles" db:"unique_collectibles"`
	FirstPlayedAt       time.Time `json:"first_played_at" db:"first_played_at"`
	LastPlayedAt        time.Time `json:"last_played_at" db:"last_played_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// NewPlayerStats returns the default row for a player seen for the first time.
func NewPlayerStats(user UserID, now time.Time) PlayerStats {
	return PlayerStats{
		UserID:              user,
		FastestLevelSeconds: NoFastestTime,
		FirstPlayedAt:       now,
		LastPlayedAt:        now,
		UpdatedAt:           now,
	}
}

// ApplyCompletion folds one scored level completion into the aggregates.
// Monotonic fields move via max/min only; the coverage average is maintained
// through the running sum. streak is the streak value credited to this run.
func (s *PlayerStats) ApplyCompletion(rec ScoreRecord, streak int, now time.Time) {
	s.LevelsCompleted++
	s.TotalScore += rec.TotalScore
	if rec.Level > s.HighestLevel {
		s.HighestLevel = rec.Level
	}
	s.CurrentStreak = streak
	if streak > s.BestStreak {
		s.BestStreak = streak
	}
	if rec.CoveragePercent > s.BestCoverage {
		s.BestCoverage = rec.CoveragePercent
	}
	if rec.TimeTakenSeconds < s.FastestLevelSeconds {
		s.FastestLevelSeconds = rec.TimeTakenSeconds
	}
	if rec.QuizAttempts == 1 {
		s.QuizCorrect++
	}
	s.QuizAttempts += rec.QuizAttempts
	s.CoverageSum += rec.CoveragePercent
	s.AverageCoverage = s.CoverageSum / float64(s.LevelsCompleted)
	s.TotalTerritory += int64(math.Round(PlayAreaPixels * rec.CoveragePercent))
	s.PlayTimeSeconds += int64(rec.TimeTakenSeconds)
	s.LastPlayedAt = now
	s.UpdatedAt = now
}

// ScoreRecord is the immutable, append-only record of one level completion.
type ScoreRecord struct {
	ID        string `json:"id" db:"id"`
	UserID    UserID `json:"user_id" db:"user_id"`
	GameID    string `json:"game_id,omitempty" db:"game_id"`
	SessionID string `json:"session_id" db:"session_id"`
	Level     int    `json:"level" db:"level"`
	Breakdown
	CoveragePercent  float64   `json:"coverage_percent" db:"coverage_percent"`
	TimeTakenSeconds int       `json:"time_taken_seconds" db:"time_taken_seconds"`
	LivesRemaining   int       `json:"lives_remaining" db:"lives_remaining"`
	QuizAttempts     int       `json:"quiz_attempts" db:"quiz_attempts"`
	CollectibleID    int       `json:"collectible_id,omitempty" db:"collectible_id"`
	CollectibleName  string    `json:"collectible_name,omitempty" db:"collectible_name"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// GameSession groups the completions of one continuous play session.
// EndedAt stays zero until the session is closed.
type GameSession struct {
	ID              string    `json:"id" db:"id"`
	UserID          UserID    `json:"user_id" db:"user_id"`
	GameID          string    `json:"game_id,omitempty" db:"game_id"`
	StartedAt       time.Time `json:"started_at" db:"started_at"`
	EndedAt         time.Time `json:"ended_at,omitempty" db:"ended_at"`
	TotalScore      int64     `json:"total_score" db:"total_score"`
	LevelsCompleted int       `json:"levels_completed" db:"levels_completed"`
	HighestLevel    int       `json:"highest_level" db:"highest_level"`
	MaxStreak       int       `json:"max_streak" db:"max_streak"`
}

// Ended reports whether the session has been closed.
func (s GameSession) Ended() bool { return !s.EndedAt.IsZero() }

// Accumulate folds one completion into the session totals.
func (s *GameSession) Accumulate(score int64, level, streak int) {
	s.TotalScore += score
	s.LevelsCompleted++
	if level > s.HighestLevel {
		s.HighestLevel = level
	}
	if streak > s.MaxStreak {
		s.MaxStreak = streak
	}
}

// CollectibleProgress tracks how often a player has revealed one collectible.
type CollectibleProgress struct {
	UserID               UserID    `json:"user_id" db:"user_id"`
	CollectibleID        int       `json:"collectible_id" db:"collectible_id"`
	FirstRevealedAt      time.Time `json:"first_revealed_at" db:"first_revealed_at"`
	TimesRevealed        int       `json:"times_revealed" db:"times_revealed"`
	BestCoverage         float64   `json:"best_coverage" db:"best_coverage"`
	FastestRevealSeconds int       `json:"fastest_reveal_seconds" db:"fastest_reveal_seconds"`
}

// Submission is the raw completion event handed to the orchestrator.
// Field names on the wire match the game client's payload.
type Submission struct {
	SessionID        string  `json:"sessionId"`
	GameID           string  `json:"gameId,omitempty"`
	Level            int     `json:"level"`
	CoveragePercent  float64 `json:"territoryPercentage"`
	TimeTakenSeconds int     `json:"timeTakenSeconds"`
	LivesRemaining   int     `json:"livesRemaining"`
	QuizAttempts     int     `json:"quizAttempts"`
	CollectibleID    int     `json:"pokemonId,omitempty"`
	CollectibleName  string  `json:"pokemonName,omitempty"`
}

// Validate rejects malformed input before any computation. Malformed ranges
// and the anti-cheat floor report distinct error codes; both guarantee that
// no state was mutated.
func (s Submission) Validate() error {
	if s.SessionID == "" {
		return Validationf("sessionId is required")
	}
	if s.Level < 1 {
		return Validationf("level must be >= 1")
	}
	if s.CoveragePercent < 0 || s.CoveragePercent > 1 {
		return Validationf("territory percentage must be between 0 and 1")
	}
	if s.LivesRemaining < 0 || s.LivesRemaining > MaxLives {
		return Validationf("lives remaining must be between 0 and %d", MaxLives)
	}
	if s.QuizAttempts < 1 {
		return Validationf("quiz attempts must be >= 1")
	}
	if s.TimeTakenSeconds < MinCompletionSeconds {
		return RejectScore("completion time below minimum threshold")
	}
	return nil
}

// SessionSummary is the per-session slice of a submission result.
type SessionSummary struct {
	SessionID       string `json:"sessionId"`
	SessionScore    int64  `json:"sessionScore"`
	LevelsCompleted int    `json:"levelsCompleted"`
	CurrentStreak   int    `json:"currentStreak"`
}

// RankInfo reports the before/after global rank of a submission. Ranks are
// best-effort snapshots; concurrent submissions by other players can move
// them between the two reads.
type RankInfo struct {
	GlobalRank        int  `json:"globalRank"`
	PreviousRank      int  `json:"previousRank"`
	RankChange        int  `json:"rankChange"`
	IsNewPersonalBest bool `json:"isNewPersonalBest"`
	IsNewLevelBest    bool `json:"isNewLevelBest"`
}

// CollectibleReveal reports collectible tracking for one submission.
type CollectibleReveal struct {
	CollectibleID   int    `json:"collectibleId,omitempty"`
	CollectibleName string `json:"collectibleName,omitempty"`
	IsNewReveal     bool   `json:"isNewReveal"`
	CollectionCount int    `json:"collectionCount"`
	CollectionTotal int    `json:"collectionTotal"`
}

// SubmissionResult is the consolidated bundle returned by the orchestrator.
type SubmissionResult struct {
	ScoreID     string            `json:"scoreId"`
	Breakdown   Breakdown         `json:"breakdown"`
	Session     SessionSummary    `json:"session"`
	Rankings    RankInfo          `json:"rankings"`
	Unlocked    []Achievement     `json:"unlockedAchievements"`
	Collectible CollectibleReveal `json:"collectible"`
}

// LeaderboardEntry is one row of a leaderboard read.
type LeaderboardEntry struct {
	Rank         int    `json:"rank"`
	UserID       UserID `json:"userId"`
	TotalScore   int64  `json:"totalScore"`
	HighestLevel int    `json:"highestLevel"`
	BestStreak   int    `json:"bestStreak"`
}

// NormalizeUserID trims and lowercases player identifiers.
func NormalizeUserID(id UserID) (UserID, error) {
	s := strings.TrimSpace(string(id))
	if s == "" {
		return "", errors.New("empty user id")
	}
	return UserID(strings.ToLower(s)), nil
}
