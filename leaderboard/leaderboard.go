package leaderboard

import "scorekit/core"

// Entry represents a mirrored leaderboard position.
type Entry struct {
	User  core.UserID
	Score int64
}

// Board is a read-optimized mirror of the total-score ordering. It is
// best-effort by design: the persistent store remains the authority for
// ranks, the board serves low-latency top-N and position lookups.
type Board interface {
	Update(user core.UserID, score int64)
	Remove(user core.UserID)
	TopN(n int) []Entry
	Get(user core.UserID) (Entry, bool)
	Rank(user core.UserID) (int, bool)
}
