package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"charactermemory/internal/models"
)

// RelationshipDB is the single shared database holding relationship state,
// emotional moments, conversation sessions, and the globally rank-unique
// reward table (SPEC_FULL.md section 4.1).
type RelationshipDB struct {
	db *sql.DB
}

// OpenRelationshipDB opens (creating if absent) the shared relationships
// database at path and runs its migrations.
func OpenRelationshipDB(path string) (*RelationshipDB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create relationship db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	db.SetMaxOpenConns(1)

	r := &RelationshipDB{db: db}
	if err := r.migrate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}
	return r, nil
}

func (r *RelationshipDB) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS relationships (
			user_id TEXT NOT NULL,
			character_id TEXT NOT NULL,
			level INTEGER NOT NULL DEFAULT 0,
			conversations INTEGER NOT NULL DEFAULT 0,
			time_minutes REAL NOT NULL DEFAULT 0,
			emotional_moments INTEGER NOT NULL DEFAULT 0,
			memories_shared INTEGER NOT NULL DEFAULT 0,
			conflicts_resolved INTEGER NOT NULL DEFAULT 0,
			growth_events INTEGER NOT NULL DEFAULT 0,
			consistency_score REAL NOT NULL DEFAULT 0,
			authenticity_score REAL NOT NULL DEFAULT 0,
			trust_score REAL NOT NULL DEFAULT 0,
			last_interaction DATETIME,
			created_at DATETIME NOT NULL,
			UNIQUE(user_id, character_id)
		)`,
		`CREATE TABLE IF NOT EXISTS emotional_moments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			character_id TEXT NOT NULL,
			occurred_at DATETIME NOT NULL,
			score REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_emotional_moments_pair_day ON emotional_moments(user_id, character_id, occurred_at)`,
		`CREATE TABLE IF NOT EXISTS conversation_sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			character_id TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			last_exchange_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS rewards (
			rank INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL,
			character_id TEXT NOT NULL,
			awarded_at DATETIME NOT NULL,
			wallet_address TEXT NOT NULL DEFAULT '',
			minted INTEGER NOT NULL DEFAULT 0,
			UNIQUE(user_id, character_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// GetOrCreateRelationship fetches the relationship row for a pair, creating
// a zero-value one if it doesn't exist yet.
func (r *RelationshipDB) GetOrCreateRelationship(ctx context.Context, userID, characterID string) (*models.RelationshipState, error) {
	state, err := r.GetRelationship(ctx, userID, characterID)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	state = &models.RelationshipState{
		UserID:      userID,
		CharacterID: characterID,
		CreatedAt:   now,
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO relationships (user_id, character_id, created_at) VALUES (?,?,?)
	`, userID, characterID, now)
	if err != nil {
		return nil, err
	}
	return state, nil
}

// GetRelationship fetches the relationship row for a pair.
func (r *RelationshipDB) GetRelationship(ctx context.Context, userID, characterID string) (*models.RelationshipState, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, character_id, level, conversations, time_minutes, emotional_moments,
			memories_shared, conflicts_resolved, growth_events, consistency_score,
			authenticity_score, trust_score, last_interaction, created_at
		FROM relationships WHERE user_id=? AND character_id=?`, userID, characterID)

	var s models.RelationshipState
	var lastInteraction sql.NullTime
	err := row.Scan(&s.UserID, &s.CharacterID, &s.Level, &s.Conversations, &s.TimeMinutes,
		&s.EmotionalMoments, &s.MemoriesShared, &s.ConflictsResolved, &s.GrowthEvents,
		&s.ConsistencyScore, &s.AuthenticityScore, &s.TrustScore, &lastInteraction, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastInteraction.Valid {
		s.LastInteraction = lastInteraction.Time
	}
	return &s, nil
}

// SaveRelationship persists the full relationship row.
func (r *RelationshipDB) SaveRelationship(ctx context.Context, s *models.RelationshipState) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE relationships SET
			level=?, conversations=?, time_minutes=?, emotional_moments=?, memories_shared=?,
			conflicts_resolved=?, growth_events=?, consistency_score=?, authenticity_score=?,
			trust_score=?, last_interaction=?
		WHERE user_id=? AND character_id=?
	`, s.Level, s.Conversations, s.TimeMinutes, s.EmotionalMoments, s.MemoriesShared,
		s.ConflictsResolved, s.GrowthEvents, s.ConsistencyScore, s.AuthenticityScore,
		s.TrustScore, s.LastInteraction, s.UserID, s.CharacterID)
	return err
}

// CountEmotionalMomentsSince counts emotional moments recorded for a pair
// at or after `since`, used to enforce the daily cap.
func (r *RelationshipDB) CountEmotionalMomentsSince(ctx context.Context, userID, characterID string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT count(*) FROM emotional_moments WHERE user_id=? AND character_id=? AND occurred_at >= ?
	`, userID, characterID, since).Scan(&n)
	return n, err
}

// RecordEmotionalMoment inserts a new emotional moment row.
func (r *RelationshipDB) RecordEmotionalMoment(ctx context.Context, m *models.EmotionalMoment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO emotional_moments (user_id, character_id, occurred_at, score) VALUES (?,?,?,?)
	`, m.UserID, m.CharacterID, m.OccurredAt, m.Score)
	return err
}

// LastExchangeAt returns the last recorded exchange time for a pair, used
// to enforce the minimum inter-turn interval.
func (r *RelationshipDB) LastExchangeAt(ctx context.Context, userID, characterID string) (time.Time, error) {
	var t sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT last_exchange_at FROM conversation_sessions
		WHERE user_id=? AND character_id=? ORDER BY last_exchange_at DESC LIMIT 1
	`, userID, characterID).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	if !t.Valid {
		return time.Time{}, nil
	}
	return t.Time, nil
}

// RecordExchange logs an exchange timestamp for inter-turn rate limiting.
func (r *RelationshipDB) RecordExchange(ctx context.Context, userID, characterID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversation_sessions (user_id, character_id, started_at, last_exchange_at) VALUES (?,?,?,?)
	`, userID, characterID, at, at)
	return err
}

// AwardReward allocates the next globally unique rank and persists a
// Reward row, inside a transaction, returning ErrRewardCapReached if the
// cap has already been met and ErrAlreadyAwarded if this pair already
// holds one. This is the sole writer of the `rewards` table's rank
// sequence, so the transaction is what guarantees global uniqueness under
// concurrency.
func (r *RelationshipDB) AwardReward(ctx context.Context, userID, characterID string, cap int) (*models.Reward, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var existing int
	err = tx.QueryRowContext(ctx, `SELECT count(*) FROM rewards WHERE user_id=? AND character_id=?`, userID, characterID).Scan(&existing)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrAlreadyAwarded
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM rewards`).Scan(&count); err != nil {
		return nil, err
	}
	if count >= cap {
		return nil, ErrRewardCapReached
	}

	rank := count + 1
	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO rewards (rank, user_id, character_id, awarded_at, wallet_address, minted)
		VALUES (?,?,?,?,'',0)
	`, rank, userID, characterID, now)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &models.Reward{Rank: rank, UserID: userID, CharacterID: characterID, AwardedAt: now}, nil
}

// Leaderboard returns the top pairs by level then consistency score.
func (r *RelationshipDB) Leaderboard(ctx context.Context, limit int) ([]*models.RelationshipState, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, character_id, level, conversations, time_minutes, emotional_moments,
			memories_shared, conflicts_resolved, growth_events, consistency_score,
			authenticity_score, trust_score, last_interaction, created_at
		FROM relationships ORDER BY level DESC, consistency_score DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.RelationshipState
	for rows.Next() {
		var s models.RelationshipState
		var lastInteraction sql.NullTime
		if err := rows.Scan(&s.UserID, &s.CharacterID, &s.Level, &s.Conversations, &s.TimeMinutes,
			&s.EmotionalMoments, &s.MemoriesShared, &s.ConflictsResolved, &s.GrowthEvents,
			&s.ConsistencyScore, &s.AuthenticityScore, &s.TrustScore, &lastInteraction, &s.CreatedAt); err != nil {
			return nil, err
		}
		if lastInteraction.Valid {
			s.LastInteraction = lastInteraction.Time
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// NFTRewardsStatus summarizes reward issuance for the /nft-rewards endpoint.
type NFTRewardsStatus struct {
	Issued    int
	Remaining int
	Recent    []*models.Reward
}

// GetNFTRewardsStatus reports issued/remaining counts and the most recent awards.
func (r *RelationshipDB) GetNFTRewardsStatus(ctx context.Context, cap int) (*NFTRewardsStatus, error) {
	var issued int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM rewards`).Scan(&issued); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT rank, user_id, character_id, awarded_at, wallet_address, minted
		FROM rewards ORDER BY rank DESC LIMIT 10`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recent []*models.Reward
	for rows.Next() {
		var rw models.Reward
		var minted int
		if err := rows.Scan(&rw.Rank, &rw.UserID, &rw.CharacterID, &rw.AwardedAt, &rw.WalletAddress, &minted); err != nil {
			return nil, err
		}
		rw.Minted = minted != 0
		recent = append(recent, &rw)
	}

	return &NFTRewardsStatus{Issued: issued, Remaining: cap - issued, Recent: recent}, rows.Err()
}

// SetWallet attaches a wallet address to a pair's reward, if one exists.
func (r *RelationshipDB) SetWallet(ctx context.Context, userID, characterID, wallet string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE rewards SET wallet_address=? WHERE user_id=? AND character_id=?`, wallet, userID, characterID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close releases the underlying connection.
func (r *RelationshipDB) Close() error {
	return r.db.Close()
}

// Sentinel errors specific to reward allocation.
var (
	ErrAlreadyAwarded   = fmt.Errorf("reward already awarded for pair")
	ErrRewardCapReached = fmt.Errorf("reward cap reached")
)
