package memory

import (
	"context"
	"sort"
	"sync"

	"scorekit/core"
	"scorekit/engine"
)

// Store is a concurrent in-memory implementation of the engine store, used
// by tests and the demo server. A single RWMutex guards the whole store:
// UpdatePlayer holds the write lock for the duration of the atomic unit,
// which trivially serializes concurrent submissions for the same player.
type Store struct {
	mu           sync.RWMutex
	stats        map[core.UserID]core.PlayerStats
	scores       []core.ScoreRecord
	sessions     map[string]core.GameSession
	collectibles map[core.UserID]map[int]core.CollectibleProgress
	achievements map[core.UserID]map[string]core.AchievementProgress
}

func New() *Store {
	return &Store{
		stats:        map[core.UserID]core.PlayerStats{},
		sessions:     map[string]core.GameSession{},
		collectibles: map[core.UserID]map[int]core.CollectibleProgress{},
		achievements: map[core.UserID]map[string]core.AchievementProgress{},
	}
}

// UpdatePlayer runs fn under the store write lock, making the whole unit
// atomic with respect to every other reader and writer.
func (s *Store) UpdatePlayer(_ context.Context, _ core.UserID, fn func(t engine.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(tx{s: s})
}

// tx views the locked store. Valid only inside an UpdatePlayer callback.
type tx struct{ s *Store }

func (t tx) PlayerStats(user core.UserID) (core.PlayerStats, bool, error) {
	st, ok := t.s.stats[user]
	return st, ok, nil
}

func (t tx) SavePlayerStats(stats core.PlayerStats) error {
	t.s.stats[stats.UserID] = stats
	return nil
}

func (t tx) AppendScore(rec core.ScoreRecord) error {
	t.s.scores = append(t.s.scores, rec)
	return nil
}

func (t tx) Session(id string) (core.GameSession, bool, error) {
	sess, ok := t.s.sessions[id]
	return sess, ok, nil
}

func (t tx) SaveSession(sess core.GameSession) error {
	t.s.sessions[sess.ID] = sess
	return nil
}

func (t tx) Collectible(user core.UserID, collectibleID int) (core.CollectibleProgress, bool, error) {
	c, ok := t.s.collectibles[user][collectibleID]
	return c, ok, nil
}

func (t tx) SaveCollectible(c core.CollectibleProgress) error {
	if t.s.collectibles[c.UserID] == nil {
		t.s.collectibles[c.UserID] = map[int]core.CollectibleProgress{}
	}
	t.s.collectibles[c.UserID][c.CollectibleID] = c
	return nil
}

func (t tx) AchievementProgress(user core.UserID) (map[string]core.AchievementProgress, error) {
	out := make(map[string]core.AchievementProgress, len(t.s.achievements[user]))
	for k, v := range t.s.achievements[user] {
		out[k] = v
	}
	return out, nil
}

func (t tx) SaveAchievementProgress(p core.AchievementProgress) error {
	if t.s.achievements[p.UserID] == nil {
		t.s.achievements[p.UserID] = map[string]core.AchievementProgress{}
	}
	t.s.achievements[p.UserID][p.AchievementID] = p
	return nil
}

func (t tx) PlayerRank(user core.UserID) (int, error) {
	return t.s.rankLocked(user), nil
}

func (s *Store) rankLocked(user core.UserID) int {
	myScore := s.stats[user].TotalScore
	rank := 1
	for _, st := range s.stats {
		if st.TotalScore > myScore {
			rank++
		}
	}
	return rank
}

func (s *Store) PlayerStats(_ context.Context, user core.UserID) (core.PlayerStats, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stats[user]
	return st, ok, nil
}

func (s *Store) PlayerRank(_ context.Context, user core.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rankLocked(user), nil
}

func (s *Store) PlayerCount(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, st := range s.stats {
		if st.TotalScore > 0 {
			count++
		}
	}
	return count, nil
}

func (s *Store) Session(_ context.Context, id string) (core.GameSession, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok, nil
}

func (s *Store) RecentSessions(_ context.Context, user core.UserID, limit int) ([]core.GameSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.GameSession
	for _, sess := range s.sessions {
		if sess.UserID == user {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) AchievementProgress(_ context.Context, user core.UserID) (map[string]core.AchievementProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]core.AchievementProgress, len(s.achievements[user]))
	for k, v := range s.achievements[user] {
		out[k] = v
	}
	return out, nil
}

func (s *Store) TopPlayers(_ context.Context, limit, offset int) ([]core.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ordered := s.orderedLocked()
	if offset >= len(ordered) {
		return nil, nil
	}
	ordered = ordered[offset:]
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[:limit]
	}
	out := make([]core.LeaderboardEntry, len(ordered))
	for i, st := range ordered {
		out[i] = core.LeaderboardEntry{
			Rank:         offset + i + 1,
			UserID:       st.UserID,
			TotalScore:   st.TotalScore,
			HighestLevel: st.HighestLevel,
			BestStreak:   st.BestStreak,
		}
	}
	return out, nil
}

func (s *Store) orderedLocked() []core.PlayerStats {
	ordered := make([]core.PlayerStats, 0, len(s.stats))
	for _, st := range s.stats {
		if st.TotalScore > 0 {
			ordered = append(ordered, st)
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].TotalScore == ordered[j].TotalScore {
			return ordered[i].UserID < ordered[j].UserID
		}
		return ordered[i].TotalScore > ordered[j].TotalScore
	})
	return ordered
}

func (s *Store) LevelTop(_ context.Context, level, limit, offset int) ([]core.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.ScoreRecord
	for _, rec := range s.scores {
		if rec.Level == level {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalScore > out[j].TotalScore })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Neighbors(_ context.Context, totalScore int64, n int) (above, below []core.LeaderboardEntry, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.orderedLocked() {
		e := core.LeaderboardEntry{UserID: st.UserID, TotalScore: st.TotalScore, HighestLevel: st.HighestLevel, BestStreak: st.BestStreak}
		if st.TotalScore > totalScore {
			above = append(above, e)
		} else if st.TotalScore < totalScore {
			below = append(below, e)
			if len(below) == n {
				break
			}
		}
	}
	// keep only the nearest n above (ordered best-to-worst already)
	if len(above) > n {
		above = above[len(above)-n:]
	}
	return above, below, nil
}

var _ engine.Store = (*Store)(nil)
var _ engine.Tx = tx{}
