package core

import "time"

// EventType enumerates the notification events derived from a submission.
type EventType string

const (
	EventScoreSubmitted      EventType = "score_submitted"
	EventRankChange          EventType = "rank_change"
	EventAchievementUnlocked EventType = "achievement_unlocked"
	EventCollectibleRevealed EventType = "collectible_revealed"
	EventStreakMilestone     EventType = "streak_milestone"
)

// Event is an immutable notification handed to the realtime channel. The
// orchestrator only derives these; delivery belongs to the dispatcher and
// must never roll a submission back.
type Event struct {
	Type          EventType      `json:"type"`
	Time          time.Time      `json:"time"`
	UserID        UserID         `json:"userId"`
	Score         int64          `json:"score,omitempty"`
	Level         int            `json:"level,omitempty"`
	Rank          int            `json:"rank,omitempty"`
	OldRank       int            `json:"oldRank,omitempty"`
	NewRank       int            `json:"newRank,omitempty"`
	AchievementID string         `json:"achievementId,omitempty"`
	CollectibleID int            `json:"collectibleId,omitempty"`
	Streak        int            `json:"streak,omitempty"`
	Bonus         int64          `json:"bonus,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

func NewScoreSubmitted(user UserID, score int64, level, rank int) Event {
	return Event{Type: EventScoreSubmitted, Time: time.Now().UTC(), UserID: user, Score: score, Level: level, Rank: rank}
}

func NewRankChange(user UserID, oldRank, newRank int) Event {
	return Event{Type: EventRankChange, Time: time.Now().UTC(), UserID: user, OldRank: oldRank, NewRank: newRank}
}

func NewAchievementUnlocked(user UserID, achievementID string) Event {
	return Event{Type: EventAchievementUnlocked, Time: time.Now().UTC(), UserID: user, AchievementID: achievementID}
}

func NewCollectibleRevealed(user UserID, collectibleID, collectionCount int) Event {
	return Event{
		Type: EventCollectibleRevealed, Time: time.Now().UTC(), UserID: user,
		CollectibleID: collectibleID,
		Metadata:      map[string]any{"collectionCount": collectionCount, "collectionTotal": CollectionTotal},
	}
}

func NewStreakMilestone(user UserID, streak int, bonus int64) Event {
	return Event{Type: EventStreakMilestone, Time: time.Now().UTC(), UserID: user, Streak: streak, Bonus: bonus}
}
