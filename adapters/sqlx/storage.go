// Package sqlx provides the SQL-backed store used in production. One schema
// runs on PostgreSQL, MySQL, and SQLite with small type substitutions.
package sqlx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	libsqlx "github.com/jmoiron/sqlx"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"scorekit/core"
	"scorekit/engine"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite3"
)

// Config holds SQL connection configuration.
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns sensible defaults for the given driver.
func DefaultConfig(driver string) Config {
	cfg := Config{
		Driver:          driver,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	}
	switch driver {
	case DriverPostgres:
		cfg.DSN = "postgres://localhost:5432/scorekit?sslmode=disable"
	case DriverMySQL:
		// parseTime is required so TIMESTAMP columns scan into time.Time
		cfg.DSN = "root@tcp(localhost:3306)/scorekit?parseTime=true"
	case DriverSQLite:
		cfg.DSN = "file:scorekit.db?_busy_timeout=5000"
		cfg.MaxOpenConns = 1
	}
	return cfg
}

// Store implements the engine store on a SQL database.
type Store struct {
	db     *libsqlx.DB
	driver string
}

// New opens a connection pool and ensures the schema exists.
func New(cfg Config) (*Store, error) {
	db, err := libsqlx.Connect(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	s := &Store{db: db, driver: cfg.Driver}
	if err := s.EnsureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing database handle, useful for tests.
func NewWithDB(db *libsqlx.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

// Close closes the underlying pool.
func (s *Store) Close() error { return s.db.Close() }

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range s.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Store) schema() []string {
	dbl := "DOUBLE PRECISION"
	ts := "TIMESTAMP"
	if s.driver == DriverMySQL {
		dbl = "DOUBLE"
		ts = "DATETIME"
	}
	raw := []string{
		`CREATE TABLE IF NOT EXISTS player_stats (
			user_id VARCHAR(128) PRIMARY KEY,
			highest_level INTEGER NOT NULL DEFAULT 0,
			levels_completed INTEGER NOT NULL DEFAULT 0,
			games_played INTEGER NOT NULL DEFAULT 0,
			total_score BIGINT NOT NULL DEFAULT 0,
			best_game_score BIGINT NOT NULL DEFAULT 0,
			total_territory BIGINT NOT NULL DEFAULT 0,
			coverage_sum %DBL% NOT NULL DEFAULT 0,
			average_coverage %DBL% NOT NULL DEFAULT 0,
			best_coverage %DBL% NOT NULL DEFAULT 0,
			fastest_level_seconds INTEGER NOT NULL DEFAULT 999999,
			current_streak INTEGER NOT NULL DEFAULT 0,
			best_streak INTEGER NOT NULL DEFAULT 0,
			quiz_correct INTEGER NOT NULL DEFAULT 0,
			quiz_attempts INTEGER NOT NULL DEFAULT 0,
			play_time_seconds BIGINT NOT NULL DEFAULT 0,
			unique_collectibles INTEGER NOT NULL DEFAULT 0,
			first_played_at %TS% NOT NULL,
			last_played_at %TS% NOT NULL,
			updated_at %TS% NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS score_records (
			id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(128) NOT NULL,
			game_id VARCHAR(128) NOT NULL DEFAULT '',
			session_id VARCHAR(64) NOT NULL,
			level INTEGER NOT NULL,
			territory_score BIGINT NOT NULL,
			time_bonus BIGINT NOT NULL,
			life_bonus BIGINT NOT NULL,
			quiz_bonus BIGINT NOT NULL,
			subtotal BIGINT NOT NULL,
			level_multiplier %DBL% NOT NULL,
			level_score BIGINT NOT NULL,
			streak_bonus BIGINT NOT NULL,
			total_score BIGINT NOT NULL,
			coverage_percent %DBL% NOT NULL,
			time_taken_seconds INTEGER NOT NULL,
			lives_remaining INTEGER NOT NULL,
			quiz_attempts INTEGER NOT NULL,
			collectible_id INTEGER NOT NULL DEFAULT 0,
			collectible_name VARCHAR(128) NOT NULL DEFAULT '',
			created_at %TS% NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_level ON score_records (level, total_score)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_user ON score_records (user_id)`,
		`CREATE TABLE IF NOT EXISTS game_sessions (
			id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(128) NOT NULL,
			game_id VARCHAR(128),
			started_at %TS% NOT NULL,
			ended_at %TS%,
			total_score BIGINT NOT NULL DEFAULT 0,
			levels_completed INTEGER NOT NULL DEFAULT 0,
			highest_level INTEGER NOT NULL DEFAULT 0,
			max_streak INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON game_sessions (user_id, started_at)`,
		`CREATE TABLE IF NOT EXISTS collectibles (
			user_id VARCHAR(128) NOT NULL,
			collectible_id INTEGER NOT NULL,
			first_revealed_at %TS% NOT NULL,
			times_revealed INTEGER NOT NULL DEFAULT 0,
			best_coverage %DBL% NOT NULL DEFAULT 0,
			fastest_reveal_seconds INTEGER NOT NULL DEFAULT 999999,
			PRIMARY KEY (user_id, collectible_id)
		)`,
		`CREATE TABLE IF NOT EXISTS achievement_progress (
			user_id VARCHAR(128) NOT NULL,
			achievement_id VARCHAR(64) NOT NULL,
			progress BIGINT NOT NULL DEFAULT 0,
			unlocked_at %TS%,
			PRIMARY KEY (user_id, achievement_id)
		)`,
	}
	out := make([]string, 0, len(raw))
	for _, stmt := range raw {
		stmt = strings.ReplaceAll(stmt, "%DBL%", dbl)
		stmt = strings.ReplaceAll(stmt, "%TS%", ts)
		out = append(out, stmt)
	}
	return out
}

const statsColumns = `user_id, highest_level, levels_completed, games_played, total_score,
	best_game_score, total_territory, coverage_sum, average_coverage, best_coverage,
	fastest_level_seconds, current_streak, best_streak, quiz_correct, quiz_attempts,
	play_time_seconds, unique_collectibles, first_played_at, last_played_at, updated_at`

const scoreColumns = `id, user_id, game_id, session_id, level, territory_score, time_bonus,
	life_bonus, quiz_bonus, subtotal, level_multiplier, level_score, streak_bonus,
	total_score, coverage_percent, time_taken_seconds, lives_remaining, quiz_attempts,
	collectible_id, collectible_name, created_at`

// UpdatePlayer runs fn inside one SQL transaction. On PostgreSQL and MySQL
// the player's stats row is locked first so concurrent submissions for the
// same player serialize; SQLite serializes writers on its own.
func (s *Store) UpdatePlayer(ctx context.Context, user core.UserID, fn func(t engine.Tx) error) error {
	dbtx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return core.Persistencef(err, "begin transaction")
	}

	if s.driver == DriverPostgres || s.driver == DriverMySQL {
		var locked string
		err = dbtx.GetContext(ctx, &locked,
			dbtx.Rebind(`SELECT user_id FROM player_stats WHERE user_id = ? FOR UPDATE`), user)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			_ = dbtx.Rollback()
			return core.Persistencef(err, "lock player row")
		}
	}

	if err := fn(sqlTx{tx: dbtx, ctx: ctx}); err != nil {
		_ = dbtx.Rollback()
		return err
	}
	if err := dbtx.Commit(); err != nil {
		return core.Persistencef(err, "commit transaction")
	}
	return nil
}

type sessionRow struct {
	ID              string       `db:"id"`
	UserID          core.UserID  `db:"user_id"`
	GameID          sql.NullString `db:"game_id"`
	StartedAt       time.Time    `db:"started_at"`
	EndedAt         sql.NullTime `db:"ended_at"`
	TotalScore      int64        `db:"total_score"`
	LevelsCompleted int          `db:"levels_completed"`
	HighestLevel    int          `db:"highest_level"`
	MaxStreak       int          `db:"max_streak"`
}

func (r sessionRow) session() core.GameSession {
	sess := core.GameSession{
		ID: r.ID, UserID: r.UserID, GameID: r.GameID.String, StartedAt: r.StartedAt,
		TotalScore: r.TotalScore, LevelsCompleted: r.LevelsCompleted,
		HighestLevel: r.HighestLevel, MaxStreak: r.MaxStreak,
	}
	if r.EndedAt.Valid {
		sess.EndedAt = r.EndedAt.Time
	}
	return sess
}

type progressRow struct {
	UserID        core.UserID  `db:"user_id"`
	AchievementID string       `db:"achievement_id"`
	Progress      int64        `db:"progress"`
	UnlockedAt    sql.NullTime `db:"unlocked_at"`
}

func (r progressRow) progress() core.AchievementProgress {
	p := core.AchievementProgress{UserID: r.UserID, AchievementID: r.AchievementID, Progress: r.Progress}
	if r.UnlockedAt.Valid {
		p.UnlockedAt = r.UnlockedAt.Time
	}
	return p
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// sqlTx adapts one open transaction to the engine's per-player unit.
type sqlTx struct {
	tx  *libsqlx.Tx
	ctx context.Context
}

func (t sqlTx) PlayerStats(user core.UserID) (core.PlayerStats, bool, error) {
	var st core.PlayerStats
	q := t.tx.Rebind(`SELECT ` + statsColumns + ` FROM player_stats WHERE user_id = ?`)
	err := t.tx.GetContext(t.ctx, &st, q, user)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PlayerStats{}, false, nil
	}
	if err != nil {
		return core.PlayerStats{}, false, core.Persistencef(err, "load player stats")
	}
	return st, true, nil
}

func (t sqlTx) SavePlayerStats(st core.PlayerStats) error {
	res, err := t.tx.ExecContext(t.ctx, t.tx.Rebind(`UPDATE player_stats SET
		highest_level = ?, levels_completed = ?, games_played = ?, total_score = ?,
		best_game_score = ?, total_territory = ?, coverage_sum = ?, average_coverage = ?,
		best_coverage = ?, fastest_level_seconds = ?, current_streak = ?, best_streak = ?,
		quiz_correct = ?, quiz_attempts = ?, play_time_seconds = ?, unique_collectibles = ?,
		last_played_at = ?, updated_at = ?
		WHERE user_id = ?`),
		st.HighestLevel, st.LevelsCompleted, st.GamesPlayed, st.TotalScore,
		st.BestGameScore, st.TotalTerritory, st.CoverageSum, st.AverageCoverage,
		st.BestCoverage, st.FastestLevelSeconds, st.CurrentStreak, st.BestStreak,
		st.QuizCorrect, st.QuizAttempts, st.PlayTimeSeconds, st.UniqueCollectibles,
		st.LastPlayedAt, st.UpdatedAt, st.UserID)
	if err != nil {
		return core.Persistencef(err, "update player stats")
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	_, err = t.tx.ExecContext(t.ctx, t.tx.Rebind(`INSERT INTO player_stats (`+statsColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		st.UserID, st.HighestLevel, st.LevelsCompleted, st.GamesPlayed, st.TotalScore,
		st.BestGameScore, st.TotalTerritory, st.CoverageSum, st.AverageCoverage, st.BestCoverage,
		st.FastestLevelSeconds, st.CurrentStreak, st.BestStreak, st.QuizCorrect, st.QuizAttempts,
		st.PlayTimeSeconds, st.UniqueCollectibles, st.FirstPlayedAt, st.LastPlayedAt, st.UpdatedAt)
	if err != nil {
		return core.Persistencef(err, "insert player stats")
	}
	return nil
}

func (t sqlTx) AppendScore(rec core.ScoreRecord) error {
	_, err := t.tx.ExecContext(t.ctx, t.tx.Rebind(`INSERT INTO score_records (`+scoreColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, rec.UserID, rec.GameID, rec.SessionID, rec.Level,
		rec.TerritoryScore, rec.TimeBonus, rec.LifeBonus, rec.QuizBonus, rec.Subtotal,
		rec.LevelMultiplier, rec.LevelScore, rec.StreakBonus, rec.TotalScore,
		rec.CoveragePercent, rec.TimeTakenSeconds, rec.LivesRemaining, rec.QuizAttempts,
		rec.CollectibleID, rec.CollectibleName, rec.CreatedAt)
	if err != nil {
		return core.Persistencef(err, "append score record")
	}
	return nil
}

func (t sqlTx) Session(id string) (core.GameSession, bool, error) {
	var row sessionRow
	err := t.tx.GetContext(t.ctx, &row, t.tx.Rebind(`SELECT id, user_id, game_id, started_at,
		ended_at, total_score, levels_completed, highest_level, max_streak
		FROM game_sessions WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.GameSession{}, false, nil
	}
	if err != nil {
		return core.GameSession{}, false, core.Persistencef(err, "load session")
	}
	return row.session(), true, nil
}

func (t sqlTx) SaveSession(sess core.GameSession) error {
	res, err := t.tx.ExecContext(t.ctx, t.tx.Rebind(`UPDATE game_sessions SET
		ended_at = ?, total_score = ?, levels_completed = ?, highest_level = ?, max_streak = ?
		WHERE id = ?`),
		nullTime(sess.EndedAt), sess.TotalScore, sess.LevelsCompleted, sess.HighestLevel,
		sess.MaxStreak, sess.ID)
	if err != nil {
		return core.Persistencef(err, "update session")
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	_, err = t.tx.ExecContext(t.ctx, t.tx.Rebind(`INSERT INTO game_sessions
		(id, user_id, game_id, started_at, ended_at, total_score, levels_completed, highest_level, max_streak)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		sess.ID, sess.UserID, nullString(sess.GameID), sess.StartedAt, nullTime(sess.EndedAt),
		sess.TotalScore, sess.LevelsCompleted, sess.HighestLevel, sess.MaxStreak)
	if err != nil {
		return core.Persistencef(err, "insert session")
	}
	return nil
}

func (t sqlTx) Collectible(user core.UserID, collectibleID int) (core.CollectibleProgress, bool, error) {
	var col core.CollectibleProgress
	err := t.tx.GetContext(t.ctx, &col, t.tx.Rebind(`SELECT user_id, collectible_id,
		first_revealed_at, times_revealed, best_coverage, fastest_reveal_seconds
		FROM collectibles WHERE user_id = ? AND collectible_id = ?`), user, collectibleID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CollectibleProgress{}, false, nil
	}
	if err != nil {
		return core.CollectibleProgress{}, false, core.Persistencef(err, "load collectible")
	}
	return col, true, nil
}

func (t sqlTx) SaveCollectible(col core.CollectibleProgress) error {
	res, err := t.tx.ExecContext(t.ctx, t.tx.Rebind(`UPDATE collectibles SET
		times_revealed = ?, best_coverage = ?, fastest_reveal_seconds = ?
		WHERE user_id = ? AND collectible_id = ?`),
		col.TimesRevealed, col.BestCoverage, col.FastestRevealSeconds, col.UserID, col.CollectibleID)
	if err != nil {
		return core.Persistencef(err, "update collectible")
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	_, err = t.tx.ExecContext(t.ctx, t.tx.Rebind(`INSERT INTO collectibles
		(user_id, collectible_id, first_revealed_at, times_revealed, best_coverage, fastest_reveal_seconds)
		VALUES (?, ?, ?, ?, ?, ?)`),
		col.UserID, col.CollectibleID, col.FirstRevealedAt, col.TimesRevealed,
		col.BestCoverage, col.FastestRevealSeconds)
	if err != nil {
		return core.Persistencef(err, "insert collectible")
	}
	return nil
}

func (t sqlTx) AchievementProgress(user core.UserID) (map[string]core.AchievementProgress, error) {
	var rows []progressRow
	err := t.tx.SelectContext(t.ctx, &rows, t.tx.Rebind(`SELECT user_id, achievement_id,
		progress, unlocked_at FROM achievement_progress WHERE user_id = ?`), user)
	if err != nil {
		return nil, core.Persistencef(err, "load achievement progress")
	}
	out := make(map[string]core.AchievementProgress, len(rows))
	for _, r := range rows {
		out[r.AchievementID] = r.progress()
	}
	return out, nil
}

func (t sqlTx) SaveAchievementProgress(p core.AchievementProgress) error {
	res, err := t.tx.ExecContext(t.ctx, t.tx.Rebind(`UPDATE achievement_progress SET
		progress = ?, unlocked_at = ? WHERE user_id = ? AND achievement_id = ?`),
		p.Progress, nullTime(p.UnlockedAt), p.UserID, p.AchievementID)
	if err != nil {
		return core.Persistencef(err, "update achievement progress")
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	_, err = t.tx.ExecContext(t.ctx, t.tx.Rebind(`INSERT INTO achievement_progress
		(user_id, achievement_id, progress, unlocked_at) VALUES (?, ?, ?, ?)`),
		p.UserID, p.AchievementID, p.Progress, nullTime(p.UnlockedAt))
	if err != nil {
		return core.Persistencef(err, "insert achievement progress")
	}
	return nil
}

func (t sqlTx) PlayerRank(user core.UserID) (int, error) {
	var rank int
	err := t.tx.GetContext(t.ctx, &rank, t.tx.Rebind(`SELECT COUNT(*) + 1 FROM player_stats
		WHERE total_score > COALESCE((SELECT total_score FROM player_stats WHERE user_id = ?), 0)`), user)
	if err != nil {
		return 0, core.Persistencef(err, "compute rank")
	}
	return rank, nil
}

func (s *Store) PlayerStats(ctx context.Context, user core.UserID) (core.PlayerStats, bool, error) {
	var st core.PlayerStats
	q := s.db.Rebind(`SELECT ` + statsColumns + ` FROM player_stats WHERE user_id = ?`)
	err := s.db.GetContext(ctx, &st, q, user)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PlayerStats{}, false, nil
	}
	if err != nil {
		return core.PlayerStats{}, false, core.Persistencef(err, "load player stats")
	}
	return st, true, nil
}

func (s *Store) PlayerRank(ctx context.Context, user core.UserID) (int, error) {
	var rank int
	err := s.db.GetContext(ctx, &rank, s.db.Rebind(`SELECT COUNT(*) + 1 FROM player_stats
		WHERE total_score > COALESCE((SELECT total_score FROM player_stats WHERE user_id = ?), 0)`), user)
	if err != nil {
		return 0, core.Persistencef(err, "compute rank")
	}
	return rank, nil
}

func (s *Store) PlayerCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM player_stats WHERE total_score > 0`)
	if err != nil {
		return 0, core.Persistencef(err, "count players")
	}
	return n, nil
}

func (s *Store) Session(ctx context.Context, id string) (core.GameSession, bool, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT id, user_id, game_id, started_at,
		ended_at, total_score, levels_completed, highest_level, max_streak
		FROM game_sessions WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.GameSession{}, false, nil
	}
	if err != nil {
		return core.GameSession{}, false, core.Persistencef(err, "load session")
	}
	return row.session(), true, nil
}

func (s *Store) RecentSessions(ctx context.Context, user core.UserID, limit int) ([]core.GameSession, error) {
	var rows []sessionRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`SELECT id, user_id, game_id, started_at,
		ended_at, total_score, levels_completed, highest_level, max_streak
		FROM game_sessions WHERE user_id = ? ORDER BY started_at DESC LIMIT ?`), user, limit)
	if err != nil {
		return nil, core.Persistencef(err, "load recent sessions")
	}
	out := make([]core.GameSession, len(rows))
	for i, r := range rows {
		out[i] = r.session()
	}
	return out, nil
}

func (s *Store) AchievementProgress(ctx context.Context, user core.UserID) (map[string]core.AchievementProgress, error) {
	var rows []progressRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`SELECT user_id, achievement_id,
		progress, unlocked_at FROM achievement_progress WHERE user_id = ?`), user)
	if err != nil {
		return nil, core.Persistencef(err, "load achievement progress")
	}
	out := make(map[string]core.AchievementProgress, len(rows))
	for _, r := range rows {
		out[r.AchievementID] = r.progress()
	}
	return out, nil
}

func (s *Store) TopPlayers(ctx context.Context, limit, offset int) ([]core.LeaderboardEntry, error) {
	var rows []core.PlayerStats
	q := s.db.Rebind(`SELECT ` + statsColumns + ` FROM player_stats WHERE total_score > 0
		ORDER BY total_score DESC, user_id ASC LIMIT ? OFFSET ?`)
	if err := s.db.SelectContext(ctx, &rows, q, limit, offset); err != nil {
		return nil, core.Persistencef(err, "load leaderboard")
	}
	out := make([]core.LeaderboardEntry, len(rows))
	for i, st := range rows {
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

func (s *Store) LevelTop(ctx context.Context, level, limit, offset int) ([]core.ScoreRecord, error) {
	var rows []core.ScoreRecord
	q := s.db.Rebind(`SELECT ` + scoreColumns + ` FROM score_records WHERE level = ?
		ORDER BY total_score DESC LIMIT ? OFFSET ?`)
	if err := s.db.SelectContext(ctx, &rows, q, level, limit, offset); err != nil {
		return nil, core.Persistencef(err, "load level leaderboard")
	}
	return rows, nil
}

func (s *Store) Neighbors(ctx context.Context, totalScore int64, n int) (above, below []core.LeaderboardEntry, err error) {
	var rows []core.PlayerStats
	q := s.db.Rebind(`SELECT ` + statsColumns + ` FROM player_stats WHERE total_score > ?
		ORDER BY total_score ASC LIMIT ?`)
	if err := s.db.SelectContext(ctx, &rows, q, totalScore, n); err != nil {
		return nil, nil, core.Persistencef(err, "load neighbors above")
	}
	// nearest-first came back worst-to-best, flip to best-to-worst
	for i := len(rows) - 1; i >= 0; i-- {
		st := rows[i]
		above = append(above, core.LeaderboardEntry{
			UserID: st.UserID, TotalScore: st.TotalScore,
			HighestLevel: st.HighestLevel, BestStreak: st.BestStreak,
		})
	}

	rows = rows[:0]
	q = s.db.Rebind(`SELECT ` + statsColumns + ` FROM player_stats WHERE total_score < ? AND total_score > 0
		ORDER BY total_score DESC LIMIT ?`)
	if err := s.db.SelectContext(ctx, &rows, q, totalScore, n); err != nil {
		return nil, nil, core.Persistencef(err, "load neighbors below")
	}
	for _, st := range rows {
		below = append(below, core.LeaderboardEntry{
			UserID: st.UserID, TotalScore: st.TotalScore,
			HighestLevel: st.HighestLevel, BestStreak: st.BestStreak,
		})
	}
	return above, below, nil
}

var _ engine.Store = (*Store)(nil)
var _ engine.Tx = sqlTx{}
