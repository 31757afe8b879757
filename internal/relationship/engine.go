package relationship

import (
	"context"
	"errors"
	"fmt"
	"time"

	"charactermemory/internal/models"
	"charactermemory/internal/storage"
)

// Config tunes the relationship engine's rate limits and reward cap.
type Config struct {
	MinExchangeInterval   time.Duration
	MaxEmotionalPerDay    int
	RewardCap             int
}

// DefaultConfig matches spec.md section 4.4's defaults.
func DefaultConfig() Config {
	return Config{
		MinExchangeInterval: 0, // enforced by the orchestrator's token bucket; engine trusts the caller
		MaxEmotionalPerDay:  10,
		RewardCap:           100,
	}
}

// ErrTooSoon signals an exchange arrived before MinExchangeInterval elapsed
// since the pair's last recorded exchange.
var ErrTooSoon = errors.New("relationship: exchange arrived before minimum interval")

// Engine scores exchanges and advances relationship state for a pair,
// grounded on original_source/systems/relationship_system.py.
type Engine struct {
	db  *storage.RelationshipDB
	cfg Config
}

// New constructs a relationship engine over the shared relationship store.
func New(db *storage.RelationshipDB, cfg Config) *Engine {
	return &Engine{db: db, cfg: cfg}
}

// UpdateResult reports what changed after scoring a single exchange.
type UpdateResult struct {
	State           *models.RelationshipState
	LeveledUp       bool
	NewLevel        int
	EmotionalMoment bool
	Reward          *models.Reward
}

// UpdateExchange scores one user-message/response exchange, applies
// boosters and anti-gaming checks, persists updated counters, and
// recomputes level progression, per spec.md section 4.4.
func (e *Engine) UpdateExchange(ctx context.Context, userID, characterID, userMessage, response string, turnMinutes float64) (*UpdateResult, error) {
	if e.cfg.MinExchangeInterval > 0 {
		last, err := e.db.LastExchangeAt(ctx, userID, characterID)
		if err == nil && !last.IsZero() && time.Since(last) < e.cfg.MinExchangeInterval {
			return nil, ErrTooSoon
		}
	}

	state, err := e.db.GetOrCreateRelationship(ctx, userID, characterID)
	if err != nil {
		return nil, fmt.Errorf("load relationship: %w", err)
	}

	authenticity := AuthenticityScore(userMessage)
	emotional := EmotionalScore(userMessage, response)
	depth := DepthScore(userMessage)
	boosters := DetectBoosters(userMessage)

	if len(userMessage) < MinMessageLength {
		emotional = 0
		depth = 0
	}

	// Anti-gaming: inauthentic messages contribute no emotional or growth
	// credit even if keyword-matched, but still count as a conversation.
	if authenticity < 0.5 {
		emotional = 0
		boosters = Boosters{}
	}

	state.Conversations++
	state.TimeMinutes += turnMinutes
	state.MemoriesShared += boosters.MemoriesBonus
	state.GrowthEvents += boosters.GrowthBonus
	state.ConsistencyScore = runningAverage(state.ConsistencyScore, state.Conversations, depth+boosters.ConsistencyBonus)
	state.AuthenticityScore = runningAverage(state.AuthenticityScore, state.Conversations, authenticity)
	state.TrustScore = runningAverage(state.TrustScore, state.Conversations, authenticity+boosters.TrustBonus)
	state.LastInteraction = time.Now()

	totalEmotional := emotional + boosters.EmotionalBonus
	result := &UpdateResult{State: state}

	if totalEmotional > 0.3 && authenticity > 0.3 {
		count, err := e.db.CountEmotionalMomentsSince(ctx, userID, characterID, dayStart(time.Now()))
		if err != nil {
			return nil, fmt.Errorf("count emotional moments: %w", err)
		}
		if count < e.cfg.MaxEmotionalPerDay {
			state.EmotionalMoments++
			if err := e.db.RecordEmotionalMoment(ctx, &models.EmotionalMoment{
				UserID: userID, CharacterID: characterID, OccurredAt: time.Now(), Score: totalEmotional,
			}); err != nil {
				return nil, fmt.Errorf("record emotional moment: %w", err)
			}
			result.EmotionalMoment = true
		}
	}

	newLevel := recomputeLevel(state, boosters.LevelBoost)
	if newLevel > state.Level {
		result.LeveledUp = true
		result.NewLevel = newLevel
		state.Level = newLevel
	}

	if err := e.db.SaveRelationship(ctx, state); err != nil {
		return nil, fmt.Errorf("save relationship: %w", err)
	}
	if err := e.db.RecordExchange(ctx, userID, characterID, time.Now()); err != nil {
		return nil, fmt.Errorf("record exchange: %w", err)
	}

	if state.Level >= 10 {
		reward, err := e.db.AwardReward(ctx, userID, characterID, e.cfg.RewardCap)
		switch {
		case err == nil:
			result.Reward = reward
		case errors.Is(err, storage.ErrAlreadyAwarded), errors.Is(err, storage.ErrRewardCapReached):
			// not an error condition for the caller: already rewarded or cap full
		default:
			return nil, fmt.Errorf("award reward: %w", err)
		}
	}

	return result, nil
}

// recomputeLevel walks the progression table and returns the highest level
// whose thresholds are all met, applying any direct level boost from a
// connection booster (e.g. the AI-consciousness cluster) as a floor.
func recomputeLevel(s *models.RelationshipState, levelBoost float64) int {
	level := 0
	for _, req := range models.LevelRequirements {
		if s.Conversations >= req.Conversations &&
			s.TimeMinutes >= req.Minutes &&
			s.EmotionalMoments >= req.EmotionalMoments &&
			s.MemoriesShared >= req.MemoriesShared {
			level = req.Level
		}
	}
	if levelBoost > 0 {
		boosted := s.Level + int(levelBoost*10)
		if boosted > level && boosted <= 10 {
			level = boosted
		}
	}
	if level > 10 {
		level = 10
	}
	return level
}

func runningAverage(current float64, n int, sample float64) float64 {
	if n <= 1 {
		return sample
	}
	return current + (sample-current)/float64(n)
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// GetState returns the current relationship state for a pair.
func (e *Engine) GetState(ctx context.Context, userID, characterID string) (*models.RelationshipState, error) {
	return e.db.GetOrCreateRelationship(ctx, userID, characterID)
}

// GetLeaderboard returns the top pairs ranked by level then consistency.
func (e *Engine) GetLeaderboard(ctx context.Context, limit int) ([]*models.RelationshipState, error) {
	return e.db.Leaderboard(ctx, limit)
}

// GetNFTRewardsStatus reports reward issuance counts for the public endpoint.
func (e *Engine) GetNFTRewardsStatus(ctx context.Context) (*storage.NFTRewardsStatus, error) {
	return e.db.GetNFTRewardsStatus(ctx, e.cfg.RewardCap)
}

// SetWallet attaches a wallet address to an already-awarded pair.
func (e *Engine) SetWallet(ctx context.Context, userID, characterID, wallet string) error {
	return e.db.SetWallet(ctx, userID, characterID, wallet)
}
