package engine

import (
	"context"

	"scorekit/core"
)

// Tx is the per-player atomic view used by the submission orchestrator.
// Every read and write issued through a Tx belongs to one atomic unit: either
// the whole submission persists or none of it does.
type Tx interface {
	PlayerStats(user core.UserID) (core.PlayerStats, bool, error)
	SavePlayerStats(stats core.PlayerStats) error

	AppendScore(rec core.ScoreRecord) error

	Session(id string) (core.GameSession, bool, error)
	SaveSession(sess core.GameSession) error

	Collectible(user core.UserID, collectibleID int) (core.CollectibleProgress, bool, error)
	SaveCollectible(c core.CollectibleProgress) error

	AchievementProgress(user core.UserID) (map[string]core.AchievementProgress, error)
	SaveAchievementProgress(p core.AchievementProgress) error

	// PlayerRank is 1 + the count of players with a strictly greater total
	// score. Equal scores share a rank.
	PlayerRank(user core.UserID) (int, error)
}

// Store abstracts persistence for the scoring engine. UpdatePlayer serializes
// the read-modify-write cycle per player id (transaction or per-player lock);
// the remaining methods are cross-player reads that may run concurrently with
// other players' writes and return eventually-consistent snapshots.
type Store interface {
	UpdatePlayer(ctx context.Context, user core.UserID, fn func(tx Tx) error) error

	PlayerStats(ctx context.Context, user core.UserID) (core.PlayerStats, bool, error)
	PlayerRank(ctx context.Context, user core.UserID) (int, error)
	PlayerCount(ctx context.Context) (int, error)

	Session(ctx context.Context, id string) (core.GameSession, bool, error)
	RecentSessions(ctx context.Context, user core.UserID, limit int) ([]core.GameSession, error)

	AchievementProgress(ctx context.Context, user core.UserID) (map[string]core.AchievementProgress, error)

	TopPlayers(ctx context.Context, limit, offset int) ([]core.LeaderboardEntry, error)
	LevelTop(ctx context.Context, level, limit, offset int) ([]core.ScoreRecord, error)
	Neighbors(ctx context.Context, totalScore int64, n int) (above, below []core.LeaderboardEntry, err error)
}
